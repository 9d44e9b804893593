package api

import (
	"context"
	"net/http"

	"github.com/groundstation/gsd/internal/session"
	"github.com/groundstation/gsd/internal/source"
	"github.com/groundstation/gsd/internal/telemetry"
)

// ControllerPort defines the minimal interface the API needs from the session controller.
type ControllerPort interface {
	Start(ctx context.Context, req session.ConnectRequest) (session.Ack, error)
	Stop(ctx context.Context) session.Ack
	Status() session.Status
}

// StreamPort defines the minimal interface the API needs from the telemetry hub.
type StreamPort interface {
	Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, kind source.Kind) error
	ActiveSessions() map[source.Kind]int
}

// Compile-time assertions for port conformance
var _ ControllerPort = (*session.Controller)(nil)
var _ StreamPort = (*telemetry.Hub)(nil)
