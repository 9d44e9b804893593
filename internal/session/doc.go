// Package session owns the process-wide streaming flag and the controller that
// flips it on connect and disconnect.
//
// There is exactly one State per process. It is constructed by main and injected
// into the Controller (writer) and the telemetry hub (readers); nothing reaches it
// through a package variable. A connect from any client enables streaming for every
// open and future stream; a disconnect stops them all at their next tick.
package session
