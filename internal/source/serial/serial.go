// Package serial reads telemetry frames from a serial-attached flight computer.
//
// The board writes one JSON object per line, shaped like source.TelemetryReading.
// A background reader keeps the latest decoded frame; NextReading projects it for
// the requested stream without touching the port, so it never blocks a tick.
package serial

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	bugst "go.bug.st/serial"

	"github.com/groundstation/gsd/internal/source"
)

// maxFrameSize bounds a single line read from the port.
const maxFrameSize = 64 * 1024

// OpenFunc opens a port and returns its byte stream.
type OpenFunc func(port string, baud int) (io.ReadCloser, error)

// OpenPort opens a real serial device in 8N1 mode.
func OpenPort(port string, baud int) (io.ReadCloser, error) {
	p, err := bugst.Open(port, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s at %d baud: %w", port, baud, err)
	}
	return p, nil
}

// Source is a telemetry source backed by a serial port.
type Source struct {
	open OpenFunc
	now  func() time.Time

	mu         sync.RWMutex
	port       io.ReadCloser
	generation uint64
	latest     *source.TelemetryReading
	receivedAt time.Time

	frames  atomic.Uint64
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// New creates a source that opens ports with open.
func New(open OpenFunc) *Source {
	if open == nil {
		open = OpenPort
	}
	return &Source{
		open: open,
		now:  time.Now,
	}
}

// Open connects to port, replacing any previously open port.
func (s *Source) Open(ctx context.Context, port string, baud int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Close existing connection if any
	if err := s.Close(); err != nil {
		log.Printf("serial: closing previous port: %v", err)
	}

	rc, err := s.open(port, baud)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.port = rc
	s.latest = nil
	s.receivedAt = time.Time{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.readLoop(rc, gen)

	log.Printf("serial: reading frames from %s at %d baud", port, baud)
	return nil
}

// Close closes the port and waits for the reader to exit. Closing a closed
// source is a no-op.
func (s *Source) Close() error {
	s.mu.Lock()
	rc := s.port
	s.port = nil
	s.latest = nil
	s.generation++
	s.mu.Unlock()

	var err error
	if rc != nil {
		err = rc.Close()
	}
	s.wg.Wait()
	return err
}

// NextReading projects the latest frame for req.
func (s *Source) NextReading(ctx context.Context, req source.Request) (source.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	connected := s.port != nil
	latest := s.latest
	s.mu.RUnlock()

	if !connected {
		return nil, source.ErrUnavailable
	}
	if latest == nil {
		if _, err := source.ParseKind(string(req.Kind)); err != nil {
			return nil, err
		}
		return nil, source.ErrNoData
	}

	return latest.Project(req, s.now())
}

// Stats reports decoded and dropped frame counts and when the last frame arrived.
func (s *Source) Stats() (frames, dropped uint64, lastFrame time.Time) {
	s.mu.RLock()
	lastFrame = s.receivedAt
	s.mu.RUnlock()
	return s.frames.Load(), s.dropped.Load(), lastFrame
}

// readLoop decodes frames until the port is closed or fails. When the port
// fails underneath a current generation the link is marked down, so readers
// see ErrUnavailable instead of the last frame forever.
func (s *Source) readLoop(rc io.ReadCloser, gen uint64) {
	defer s.wg.Done()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frame source.TelemetryReading
		if err := json.Unmarshal(line, &frame); err != nil {
			s.dropped.Add(1)
			continue
		}
		if frame.Logs == "" {
			frame.Logs = source.LogMessage
		}

		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return
		}
		s.latest = &frame
		s.receivedAt = s.now()
		s.mu.Unlock()
		s.frames.Add(1)
	}

	s.mu.Lock()
	if s.generation != gen {
		// Close or a newer Open owns the port.
		s.mu.Unlock()
		return
	}
	s.port = nil
	s.latest = nil
	s.generation++
	s.mu.Unlock()

	if err := scanner.Err(); err != nil {
		log.Printf("serial: link lost: %v", err)
	} else {
		log.Printf("serial: link lost: port closed by peer")
	}
	_ = rc.Close()
}
