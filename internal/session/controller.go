package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"
)

// Controller errors.
var (
	ErrInvalidParameter = errors.New("INVALID_PARAMETER")
	ErrLinkFailed       = errors.New("LINK_FAILED")
)

// Audit actions.
const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
)

// ConnectRequest carries the optional connect parameters. Absent fields stay nil.
type ConnectRequest struct {
	ComPort  *string `json:"com_port"`
	Baudrate *int    `json:"baudrate"`
}

// Ack acknowledges a connect or disconnect.
type Ack struct {
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Connected bool   `json:"connected"`
}

// Status is the controller's view of the link.
type Status struct {
	Streaming bool      `json:"streaming"`
	ComPort   string    `json:"com_port,omitempty"`
	Baudrate  int       `json:"baudrate,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// Link is a transport opened on connect and closed on disconnect.
type Link interface {
	Open(ctx context.Context, port string, baud int) error
	Close() error
}

// AuditLogger records controller actions.
type AuditLogger interface {
	LogAction(ctx context.Context, action string, params map[string]interface{}, err error)
}

// StatusPublisher is notified after every state change.
type StatusPublisher interface {
	PublishStatus(st Status) error
}

// StatusPublisherFunc adapts a function to StatusPublisher.
type StatusPublisherFunc func(st Status) error

// PublishStatus calls f(st).
func (f StatusPublisherFunc) PublishStatus(st Status) error { return f(st) }

// Controller flips the streaming State on connect and disconnect.
type Controller struct {
	state *State

	// Optional transport; nil means parameters are accepted and ignored.
	link Link

	auditLogger AuditLogger
	publishers  []StatusPublisher

	// mu serializes Start/Stop so the link and status always agree with the flag.
	mu     sync.Mutex
	status Status
	seq    uint64
	now    func() time.Time

	// pubMu orders publishes without holding mu, so a slow publisher never
	// delays the flag or Status.
	pubMu     sync.Mutex
	published uint64
}

// statusUpdate is a status change captured under mu and delivered after it.
type statusUpdate struct {
	status     Status
	seq        uint64
	publishers []StatusPublisher
}

// NewController creates a controller over state.
func NewController(state *State) *Controller {
	return &Controller{
		state: state,
		now:   time.Now,
	}
}

// SetLink attaches a transport that Start opens and Stop closes.
func (c *Controller) SetLink(link Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.link = link
}

// SetAuditLogger sets the audit logger.
func (c *Controller) SetAuditLogger(logger AuditLogger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditLogger = logger
}

// AddPublisher registers a status publisher.
func (c *Controller) AddPublisher(p StatusPublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers = append(c.publishers, p)
}

// Start enables streaming. Without a link the parameters are only echoed back.
// With a link, both parameters are required and the link must open before the
// flag is set.
func (c *Controller) Start(ctx context.Context, req ConnectRequest) (Ack, error) {
	ack, update, err := c.start(ctx, req)
	if err == nil {
		c.publish(update)
	}
	return ack, err
}

func (c *Controller) start(ctx context.Context, req ConnectRequest) (Ack, statusUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	params := req.auditParams()

	if c.link != nil {
		if req.ComPort == nil || *req.ComPort == "" || req.Baudrate == nil || *req.Baudrate <= 0 {
			err := fmt.Errorf("%w: missing baudrate or COM port", ErrInvalidParameter)
			c.audit(ctx, ActionConnect, params, err)
			return Ack{Message: "Serial not connected", Error: "Missing baudrate or COM port"}, statusUpdate{}, err
		}
		if err := c.link.Open(ctx, *req.ComPort, *req.Baudrate); err != nil {
			err = fmt.Errorf("%w: %v", ErrLinkFailed, err)
			c.audit(ctx, ActionConnect, params, err)
			return Ack{Message: "Serial not connected", Error: err.Error()}, statusUpdate{}, err
		}
	}

	c.state.Set(true)
	c.status = Status{
		Streaming: true,
		ComPort:   valueOr(req.ComPort, ""),
		Baudrate:  valueOr(req.Baudrate, 0),
		ChangedAt: c.now(),
	}
	c.audit(ctx, ActionConnect, params, nil)

	return Ack{
		Message:   fmt.Sprintf("Connected to %s at %s baud", req.portLabel(), req.baudLabel()),
		Connected: true,
	}, c.snapshot(), nil
}

// Stop disables streaming and closes the link. It always succeeds.
func (c *Controller) Stop(ctx context.Context) Ack {
	update := c.stop(ctx)
	c.publish(update)
	return Ack{Message: "Disconnected successfully", Connected: false}
}

func (c *Controller) stop(ctx context.Context) statusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Set(false)

	if c.link != nil {
		if err := c.link.Close(); err != nil {
			log.Printf("Error closing link: %v", err)
		}
	}

	c.status = Status{
		Streaming: false,
		ComPort:   c.status.ComPort,
		Baudrate:  c.status.Baudrate,
		ChangedAt: c.now(),
	}
	c.audit(ctx, ActionDisconnect, nil, nil)
	return c.snapshot()
}

// snapshot captures the current status for publishing. Callers hold mu.
func (c *Controller) snapshot() statusUpdate {
	c.seq++
	return statusUpdate{
		status:     c.status,
		seq:        c.seq,
		publishers: append([]StatusPublisher(nil), c.publishers...),
	}
}

// Status returns the last connect parameters and the current flag.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := c.status
	c.mu.Unlock()

	st.Streaming = c.state.Enabled()
	return st
}

func (c *Controller) audit(ctx context.Context, action string, params map[string]interface{}, err error) {
	if c.auditLogger != nil {
		c.auditLogger.LogAction(ctx, action, params, err)
	}
}

// publish delivers u unless a newer update has already gone out.
func (c *Controller) publish(u statusUpdate) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if u.seq <= c.published {
		return
	}
	c.published = u.seq

	for _, p := range u.publishers {
		if err := p.PublishStatus(u.status); err != nil {
			log.Printf("Failed to publish link status: %v", err)
		}
	}
}

func (r ConnectRequest) auditParams() map[string]interface{} {
	params := make(map[string]interface{})
	if r.ComPort != nil {
		params["com_port"] = *r.ComPort
	}
	if r.Baudrate != nil {
		params["baudrate"] = *r.Baudrate
	}
	return params
}

func (r ConnectRequest) portLabel() string {
	if r.ComPort == nil || *r.ComPort == "" {
		return "unspecified port"
	}
	return *r.ComPort
}

func (r ConnectRequest) baudLabel() string {
	if r.Baudrate == nil {
		return "unspecified"
	}
	return strconv.Itoa(*r.Baudrate)
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
