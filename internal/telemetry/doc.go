// Package telemetry serves the SSE streams for telemetry, map and graph data.
//
// Every stream is an independent session owned by the Hub. A session checks the
// shared streaming flag before each event, pulls one reading from the source and
// writes it as a `data: <json>` frame. It ends when the flag is cleared, the
// client goes away, a write fails, the source fails, or the hub stops.
package telemetry
