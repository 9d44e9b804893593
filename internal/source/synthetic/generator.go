// Package synthetic provides a random telemetry source for running without hardware.
package synthetic

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/groundstation/gsd/internal/source"
)

// Range is an inclusive [Min, Max] bound for one field.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Field ranges of the generated readings.
var (
	Altitude      = Range{100, 500}
	Humidity      = Range{10, 90}
	Pressure      = Range{950, 1050}
	Voltage       = Range{3.0, 12.0}
	Temperature   = Range{-10, 50}
	Velocity      = Range{0, 500}
	Latitude      = Range{-90, 90}
	Longitude     = Range{-180, 180}
	Gyro          = Range{-5, 5}
	Acceleration  = Range{-5, 5}
	MagneticField = Range{-50, 50}
	VelocityXYZ   = Range{0, 500}
)

// Generator draws every field independently and uniformly on each call.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the generated sequence reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithClock replaces the wall clock used for timestamps and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator seeded from the current time unless WithSeed is given.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NextReading returns a freshly drawn reading of the requested kind.
func (g *Generator) NextReading(ctx context.Context, req source.Request) (source.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Kind {
	case source.KindTelemetry:
		return g.telemetry(now), nil
	case source.KindMap:
		return source.MapPoint{
			Time:      now.Format(source.ClockFormat),
			Latitude:  g.draw(Latitude),
			Longitude: g.draw(Longitude),
		}, nil
	case source.KindGraph:
		return source.GraphPoint{
			TimeSinceLaunch: source.ElapsedSeconds(req.Since, now),
			Altitude:        g.draw(Altitude),
			Temperature:     g.draw(Temperature),
			Pressure:        g.draw(Pressure),
			Velocity:        g.draw(Velocity),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", source.ErrUnknownKind, req.Kind)
	}
}

// telemetry draws a full reading. Caller must hold g.mu.
func (g *Generator) telemetry(now time.Time) source.TelemetryReading {
	return source.TelemetryReading{
		Altitude:    g.draw(Altitude),
		Humidity:    g.draw(Humidity),
		Pressure:    g.draw(Pressure),
		Voltage:     g.draw(Voltage),
		Temperature: g.draw(Temperature),
		Velocity:    g.draw(Velocity),
		GNSS: source.GNSS{
			Time:      now.Format(source.ClockFormat),
			Latitude:  g.draw(Latitude),
			Longitude: g.draw(Longitude),
		},
		SensorMetrics: source.SensorMetrics{
			Gyro:          g.triad(Gyro),
			Acceleration:  g.triad(Acceleration),
			MagneticField: g.triad(MagneticField),
			VelocityXYZ:   g.triad(VelocityXYZ),
		},
		Logs: source.LogMessage,
	}
}

func (g *Generator) draw(r Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

func (g *Generator) triad(r Range) source.Vector3 {
	return source.Vector3{g.draw(r), g.draw(r), g.draw(r)}
}
