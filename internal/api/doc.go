// Package api implements the HTTP surface of the ground station daemon.
//
// It exposes the connect/disconnect commands, the three SSE streams, and the
// health, status and metrics endpoints. Commands are translated into
// session.Controller calls; streams are handed to the telemetry hub.
package api
