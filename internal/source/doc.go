// Package source defines the telemetry source contract consumed by the stream endpoints.
//
// A Source produces exactly one Reading per call and never blocks longer than a
// stream tick. Implementations live in sub-packages:
//   - synthetic: uniform random generator used when no hardware is attached
//   - serial: newline-delimited JSON frames read from a serial port
//
// Readings are value objects created fresh for every tick and are never mutated
// after they are returned.
package source
