package synthetic

import (
	"context"
	"testing"
	"time"

	"github.com/groundstation/gsd/internal/source"
	"github.com/groundstation/gsd/internal/sourcetest"
)

func TestGeneratorConformance(t *testing.T) {
	sourcetest.RunConformance(t, func(t *testing.T) source.Source {
		return New()
	})
}

func TestTelemetryRanges(t *testing.T) {
	g := New(WithSeed(7))

	for i := 0; i < 500; i++ {
		r, err := g.NextReading(context.Background(), source.Request{Kind: source.KindTelemetry})
		if err != nil {
			t.Fatalf("NextReading failed: %v", err)
		}
		tr := r.(source.TelemetryReading)

		checks := []struct {
			name string
			v    float64
			r    Range
		}{
			{"altitude", tr.Altitude, Altitude},
			{"humidity", tr.Humidity, Humidity},
			{"pressure", tr.Pressure, Pressure},
			{"voltage", tr.Voltage, Voltage},
			{"temperature", tr.Temperature, Temperature},
			{"velocity", tr.Velocity, Velocity},
			{"latitude", tr.GNSS.Latitude, Latitude},
			{"longitude", tr.GNSS.Longitude, Longitude},
		}
		for _, c := range checks {
			if !c.r.Contains(c.v) {
				t.Fatalf("%s = %v outside [%v, %v]", c.name, c.v, c.r.Min, c.r.Max)
			}
		}

		triads := []struct {
			name string
			v    source.Vector3
			r    Range
		}{
			{"gyro", tr.SensorMetrics.Gyro, Gyro},
			{"acceleration", tr.SensorMetrics.Acceleration, Acceleration},
			{"magnetic_field", tr.SensorMetrics.MagneticField, MagneticField},
			{"velocity_xyz", tr.SensorMetrics.VelocityXYZ, VelocityXYZ},
		}
		for _, c := range triads {
			for j, v := range c.v {
				if !c.r.Contains(v) {
					t.Fatalf("%s[%d] = %v outside [%v, %v]", c.name, j, v, c.r.Min, c.r.Max)
				}
			}
		}

		if tr.Logs != source.LogMessage {
			t.Fatalf("logs = %q, want %q", tr.Logs, source.LogMessage)
		}
	}
}

func TestMapAndGraphRanges(t *testing.T) {
	g := New(WithSeed(11))
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		r, _ := g.NextReading(ctx, source.Request{Kind: source.KindMap})
		mp := r.(source.MapPoint)
		if !Latitude.Contains(mp.Latitude) || !Longitude.Contains(mp.Longitude) {
			t.Fatalf("Map point out of range: %+v", mp)
		}

		r, _ = g.NextReading(ctx, source.Request{Kind: source.KindGraph, Since: time.Now()})
		gp := r.(source.GraphPoint)
		if !Altitude.Contains(gp.Altitude) || !Temperature.Contains(gp.Temperature) ||
			!Pressure.Contains(gp.Pressure) || !Velocity.Contains(gp.Velocity) {
			t.Fatalf("Graph point out of range: %+v", gp)
		}
	}
}

func TestSeedIsReproducible(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC) }
	a := New(WithSeed(42), WithClock(clock))
	b := New(WithSeed(42), WithClock(clock))

	for i := 0; i < 10; i++ {
		ra, _ := a.NextReading(context.Background(), source.Request{Kind: source.KindTelemetry})
		rb, _ := b.NextReading(context.Background(), source.Request{Kind: source.KindTelemetry})
		if ra != rb {
			t.Fatalf("Readings diverged at %d: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestClockDrivesTimestampsAndElapsed(t *testing.T) {
	start := time.Date(2024, 5, 1, 23, 59, 58, 0, time.UTC)
	now := start.Add(1750 * time.Millisecond)
	g := New(WithSeed(1), WithClock(func() time.Time { return now }))

	r, _ := g.NextReading(context.Background(), source.Request{Kind: source.KindMap})
	if got := r.(source.MapPoint).Time; got != "23:59:59" {
		t.Errorf("map time = %q, want 23:59:59", got)
	}

	r, _ = g.NextReading(context.Background(), source.Request{Kind: source.KindGraph, Since: start})
	if got := r.(source.GraphPoint).TimeSinceLaunch; got != 1.75 {
		t.Errorf("time_since_launch = %v, want 1.75", got)
	}
}
