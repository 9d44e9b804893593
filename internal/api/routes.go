package api

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/groundstation/gsd/internal/session"
	"github.com/groundstation/gsd/internal/source"
)

// maxCommandBody bounds connect and disconnect request bodies.
const maxCommandBody = 64 << 10

// RegisterRoutes registers every endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/disconnect", s.handleDisconnect)

	for _, kind := range source.Kinds {
		mux.HandleFunc("/"+string(kind), s.handleStream(kind))
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
}

// handleConnect handles POST /connect
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
	if err != nil {
		log.Printf("Connect body read failed: %v", err)
	}

	req := parseConnectRequest(body)
	ack, err := s.controller.Start(r.Context(), req)
	if err != nil {
		log.Printf("Connect failed: %v", err)
	}

	writeJSON(w, ConnectStatus(err), ack)
}

// handleDisconnect handles POST /disconnect
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}

	writeJSON(w, http.StatusOK, s.controller.Stop(r.Context()))
}

// handleStream handles GET /telemetry, /maps and /graphs
func (s *Server) handleStream(kind source.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
				"Only GET method is allowed", nil)
			return
		}

		err := s.streams.Serve(r.Context(), w, r, kind)
		if err == nil {
			return
		}

		// Serve reports setup failures before writing headers.
		if w.Header().Get("Content-Type") != "text/event-stream" {
			status, body := ToAPIError(err)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_, _ = w.Write(body)
			return
		}
		log.Printf("Stream %s ended with error: %v", kind, err)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	WriteSuccess(w, map[string]interface{}{
		"status":    "ok",
		"uptimeSec": uptime,
		"version":   Version,
	})
}

// StatusView is the body of GET /status.
type StatusView struct {
	session.Status
	Sessions map[source.Kind]int `json:"sessions"`
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	WriteSuccess(w, StatusView{
		Status:   s.controller.Status(),
		Sessions: s.streams.ActiveSessions(),
	})
}

// handleMetrics handles GET /metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	if s.metricsHandler == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Metrics not available", nil)
		return
	}
	s.metricsHandler.ServeHTTP(w, r)
}

// parseConnectRequest reads com_port and baudrate leniently. A missing,
// malformed or mistyped body yields absent fields, never an error.
func parseConnectRequest(body []byte) session.ConnectRequest {
	var raw struct {
		ComPort  json.RawMessage `json:"com_port"`
		Baudrate json.RawMessage `json:"baudrate"`
	}
	if len(body) == 0 || json.Unmarshal(body, &raw) != nil {
		return session.ConnectRequest{}
	}

	var req session.ConnectRequest

	var port *string
	if json.Unmarshal(raw.ComPort, &port) == nil && port != nil {
		req.ComPort = port
	}

	// Integral floats such as 9600.0 count as integers.
	var baud json.Number
	if json.Unmarshal(raw.Baudrate, &baud) == nil {
		if f, err := baud.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
			n := int(f)
			req.Baudrate = &n
		}
	}

	return req
}
