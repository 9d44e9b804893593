package session

import "sync"

// State is the streaming-enabled flag shared by the controller and every stream.
// A single mutex guards it; the zero value is a disabled flag.
type State struct {
	mu      sync.Mutex
	enabled bool
}

// NewState returns a disabled flag.
func NewState() *State {
	return &State{}
}

// Set overwrites the flag.
func (s *State) Set(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled returns the current value.
func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}
