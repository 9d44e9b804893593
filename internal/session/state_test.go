package session

import (
	"sync"
	"testing"
)

func TestNewStateIsDisabled(t *testing.T) {
	if NewState().Enabled() {
		t.Error("New state should start disabled")
	}

	var zero State
	if zero.Enabled() {
		t.Error("Zero state should be disabled")
	}
}

func TestStateReflectsLastWrite(t *testing.T) {
	s := NewState()

	sequence := []bool{true, true, false, true, false, false}
	for i, v := range sequence {
		s.Set(v)
		if got := s.Enabled(); got != v {
			t.Fatalf("step %d: Enabled() = %v after Set(%v)", i, got, v)
		}
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v bool) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Set(v)
			}
		}(i%2 == 0)
	}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = s.Enabled()
			}
		}()
	}
	wg.Wait()

	// Once writers are quiet the flag must match the last write.
	s.Set(true)
	if !s.Enabled() {
		t.Error("Enabled() = false after final Set(true)")
	}
	s.Set(false)
	if s.Enabled() {
		t.Error("Enabled() = true after final Set(false)")
	}
}
