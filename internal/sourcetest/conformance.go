// Package sourcetest provides a conformance suite every telemetry source must pass.
//
// Endpoints are agnostic to the source behind them, so the synthetic generator and
// the serial reader are held to the same contract: one reading of the requested kind
// per call, ctx honored, no blocking beyond a stream tick, safe for concurrent use.
package sourcetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/groundstation/gsd/internal/source"
)

// MaxLatency bounds a single NextReading call. Well under the shortest tick.
const MaxLatency = 100 * time.Millisecond

// RunConformance runs the suite against sources built by newSource.
// newSource must return a source that is ready to produce readings.
func RunConformance(t *testing.T, newSource func(t *testing.T) source.Source) {
	t.Helper()

	t.Run("KindMatchesRequest", func(t *testing.T) {
		src := newSource(t)
		for _, kind := range source.Kinds {
			r := mustRead(t, src, source.Request{Kind: kind, Since: time.Now()})
			if r.Kind() != kind {
				t.Errorf("Requested %q, got reading of kind %q", kind, r.Kind())
			}
		}
	})

	t.Run("ClockFields", func(t *testing.T) {
		src := newSource(t)

		tr, ok := mustRead(t, src, source.Request{Kind: source.KindTelemetry}).(source.TelemetryReading)
		if !ok {
			t.Fatal("Telemetry request did not return a TelemetryReading")
		}
		if _, err := time.Parse(source.ClockFormat, tr.GNSS.Time); err != nil {
			t.Errorf("gnss.time %q is not HH:MM:SS: %v", tr.GNSS.Time, err)
		}
		if tr.Logs == "" {
			t.Error("Telemetry reading has empty logs field")
		}

		mp, ok := mustRead(t, src, source.Request{Kind: source.KindMap}).(source.MapPoint)
		if !ok {
			t.Fatal("Map request did not return a MapPoint")
		}
		if _, err := time.Parse(source.ClockFormat, mp.Time); err != nil {
			t.Errorf("map time %q is not HH:MM:SS: %v", mp.Time, err)
		}
	})

	t.Run("GraphElapsedMonotonic", func(t *testing.T) {
		src := newSource(t)
		since := time.Now()

		last := -1.0
		for i := 0; i < 5; i++ {
			gp, ok := mustRead(t, src, source.Request{Kind: source.KindGraph, Since: since}).(source.GraphPoint)
			if !ok {
				t.Fatal("Graph request did not return a GraphPoint")
			}
			if gp.TimeSinceLaunch < last {
				t.Fatalf("time_since_launch went backwards: %v after %v", gp.TimeSinceLaunch, last)
			}
			last = gp.TimeSinceLaunch
			time.Sleep(5 * time.Millisecond)
		}
		if last > 1 {
			t.Errorf("time_since_launch should start near 0, got %v", last)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		src := newSource(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := src.NextReading(ctx, source.Request{Kind: source.KindTelemetry}); err == nil {
			t.Error("Expected error for cancelled context")
		}
	})

	t.Run("UnknownKind", func(t *testing.T) {
		src := newSource(t)
		_, err := src.NextReading(context.Background(), source.Request{Kind: "radar"})
		if !errors.Is(err, source.ErrUnknownKind) {
			t.Errorf("Expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("Latency", func(t *testing.T) {
		src := newSource(t)
		for _, kind := range source.Kinds {
			start := time.Now()
			mustRead(t, src, source.Request{Kind: kind})
			if d := time.Since(start); d > MaxLatency {
				t.Errorf("%s reading took %v, limit %v", kind, d, MaxLatency)
			}
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		src := newSource(t)
		var wg sync.WaitGroup
		errs := make(chan error, 30)
		for i := 0; i < 10; i++ {
			for _, kind := range source.Kinds {
				wg.Add(1)
				go func(kind source.Kind) {
					defer wg.Done()
					if _, err := src.NextReading(context.Background(), source.Request{Kind: kind}); err != nil {
						errs <- err
					}
				}(kind)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("Concurrent NextReading failed: %v", err)
		}
	})
}

func mustRead(t *testing.T, src source.Source, req source.Request) source.Reading {
	t.Helper()
	r, err := src.NextReading(context.Background(), req)
	if err != nil {
		t.Fatalf("NextReading(%s) failed: %v", req.Kind, err)
	}
	if r == nil {
		t.Fatalf("NextReading(%s) returned nil reading", req.Kind)
	}
	return r
}
