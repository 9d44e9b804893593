package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groundstation/gsd/internal/source"
)

var (
	// ErrHubStopped is returned by Serve once Stop has been called.
	ErrHubStopped = errors.New("telemetry hub stopped")
	// ErrStreamingUnsupported is returned when the writer cannot flush.
	ErrStreamingUnsupported = errors.New("streaming unsupported")
)

// Session close reasons.
const (
	ReasonStopped      = "stopped"
	ReasonClientGone   = "client_gone"
	ReasonWriteFailed  = "write_failed"
	ReasonSourceFailed = "source_failed"
	ReasonShutdown     = "shutdown"
)

// StateReader reports whether streaming is enabled.
type StateReader interface {
	Enabled() bool
}

// Recorder observes session activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	SessionOpened(kind source.Kind)
	SessionClosed(kind source.Kind, reason string, lived time.Duration)
	EventSent(kind source.Kind)
	SourceSkipped(kind source.Kind)
}

// Client is one open SSE session.
type Client struct {
	ID      string
	Kind    source.Kind
	Since   time.Time
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Cancel  context.CancelFunc
	Sent    int
}

// Hub runs SSE sessions against a shared flag and source.
//
// h.mu protects clients and guards the done check in register so no session
// joins the wait group after Stop.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	state    StateReader
	source   source.Source
	interval time.Duration
	recorder Recorder
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub that emits one event per interval while state is enabled.
func NewHub(state StateReader, src source.Source, interval time.Duration) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		state:    state,
		source:   src,
		interval: interval,
		recorder: nopRecorder{},
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// SetRecorder attaches a session observer. Call before serving.
func (h *Hub) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	h.recorder = r
}

// Serve streams kind to w until the session ends. It returns an error without
// writing anything if the hub is stopped or w cannot flush. Errors after the
// stream has started are returned for logging only.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, kind source.Kind) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	clientCtx, cancel := context.WithCancel(ctx)
	client := &Client{
		ID:      uuid.NewString(),
		Kind:    kind,
		Since:   h.now(),
		Writer:  w,
		Flusher: flusher,
		Cancel:  cancel,
	}

	if err := h.register(client); err != nil {
		cancel()
		return err
	}

	// Streams outlive any server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	log.Printf("Stream %s (%s) opened for %s", client.ID, kind, r.RemoteAddr)

	reason, err := h.handleClient(clientCtx, client)
	h.unregisterClient(client, reason)
	return err
}

// handleClient emits one event per tick until the session ends and returns the
// close reason. The flag is checked on entry and again at every tick.
func (h *Hub) handleClient(ctx context.Context, client *Client) (string, error) {
	if !h.state.Enabled() {
		return ReasonStopped, nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return h.cancelReason(), nil
		case <-ticker.C:
		}

		if !h.state.Enabled() {
			return ReasonStopped, nil
		}

		reading, err := h.source.NextReading(ctx, source.Request{Kind: client.Kind, Since: client.Since})
		switch {
		case ctx.Err() != nil:
			return h.cancelReason(), nil
		case source.Transient(err):
			h.recorder.SourceSkipped(client.Kind)
		case err != nil:
			log.Printf("Stream %s (%s) source failed: %v", client.ID, client.Kind, err)
			return ReasonSourceFailed, fmt.Errorf("source: %w", err)
		default:
			if err := h.sendEventToClient(client, reading); err != nil {
				return ReasonWriteFailed, err
			}
			h.recorder.EventSent(client.Kind)
		}
	}
}

// sendEventToClient writes one reading as an SSE data frame.
func (h *Hub) sendEventToClient(client *Client, reading source.Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(client.Writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}
	client.Flusher.Flush()
	client.Sent++

	return nil
}

func (h *Hub) cancelReason() string {
	select {
	case <-h.done:
		return ReasonShutdown
	default:
		return ReasonClientGone
	}
}

func (h *Hub) register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	h.clients[client.ID] = client
	h.wg.Add(1)
	h.recorder.SessionOpened(client.Kind)
	return nil
}

func (h *Hub) unregisterClient(client *Client, reason string) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()

	client.Cancel()
	h.recorder.SessionClosed(client.Kind, reason, h.now().Sub(client.Since))
	log.Printf("Stream %s (%s) closed: %s after %d events", client.ID, client.Kind, reason, client.Sent)
	h.wg.Done()
}

// ActiveSessions returns the number of open sessions per kind.
func (h *Hub) ActiveSessions() map[source.Kind]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[source.Kind]int, len(source.Kinds))
	for _, kind := range source.Kinds {
		counts[kind] = 0
	}
	for _, client := range h.clients {
		counts[client.Kind]++
	}
	return counts
}

// Stop ends every session and rejects new ones. It waits up to timeout for
// sessions to finish.
func (h *Hub) Stop(timeout time.Duration) {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		close(h.done)
		for _, client := range h.clients {
			client.Cancel()
		}
		h.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("Telemetry hub stop timed out with sessions still open")
	}
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened(source.Kind)                       {}
func (nopRecorder) SessionClosed(source.Kind, string, time.Duration) {}
func (nopRecorder) EventSent(source.Kind)                           {}
func (nopRecorder) SourceSkipped(source.Kind)                       {}
