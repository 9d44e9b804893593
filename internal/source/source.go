package source

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Kind identifies one of the three stream variants.
type Kind string

const (
	KindTelemetry Kind = "telemetry"
	KindMap       Kind = "maps"
	KindGraph     Kind = "graphs"
)

// Kinds lists every stream variant in route order.
var Kinds = []Kind{KindTelemetry, KindMap, KindGraph}

// ClockFormat is the 24-hour wall clock layout used by timestamp fields.
const ClockFormat = "15:04:05"

// LogMessage is the fixed log line carried by every telemetry reading.
const LogMessage = "Telemetry data received successfully."

// ParseKind converts a route or config token to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Request describes the reading a stream session wants for the current tick.
type Request struct {
	Kind Kind
	// Since is the session start; graph readings report time elapsed from it.
	Since time.Time
}

// Source produces readings for stream sessions.
type Source interface {
	// NextReading returns one reading of the requested kind.
	// It must honor ctx and must not block longer than a stream tick.
	NextReading(ctx context.Context, req Request) (Reading, error)
}

// Reading is an immutable reading of one of the stream variants.
type Reading interface {
	Kind() Kind
}

// Vector3 is an x/y/z sensor triad.
type Vector3 [3]float64

// GNSS is the satellite fix attached to a telemetry reading.
type GNSS struct {
	Time      string  `json:"time"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SensorMetrics groups the IMU triads.
type SensorMetrics struct {
	Gyro          Vector3 `json:"gyro"`
	Acceleration  Vector3 `json:"acceleration"`
	MagneticField Vector3 `json:"magnetic_field"`
	VelocityXYZ   Vector3 `json:"velocity_xyz"`
}

// TelemetryReading is the full payload of the /telemetry stream.
type TelemetryReading struct {
	Altitude      float64       `json:"altitude"`
	Humidity      float64       `json:"humidity"`
	Pressure      float64       `json:"pressure"`
	Voltage       float64       `json:"voltage"`
	Temperature   float64       `json:"temperature"`
	Velocity      float64       `json:"velocity"`
	GNSS          GNSS          `json:"gnss"`
	SensorMetrics SensorMetrics `json:"sensor_metrics"`
	Logs          string        `json:"logs"`
}

// MapPoint is the payload of the /maps stream.
type MapPoint struct {
	Time      string  `json:"time"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GraphPoint is the payload of the /graphs stream.
type GraphPoint struct {
	TimeSinceLaunch float64 `json:"time_since_launch"`
	Altitude        float64 `json:"altitude"`
	Temperature     float64 `json:"temperature"`
	Pressure        float64 `json:"pressure"`
	Velocity        float64 `json:"velocity"`
}

func (TelemetryReading) Kind() Kind { return KindTelemetry }
func (MapPoint) Kind() Kind         { return KindMap }
func (GraphPoint) Kind() Kind       { return KindGraph }

// MapPoint projects the GNSS fix of a telemetry reading.
func (t TelemetryReading) MapPoint() MapPoint {
	return MapPoint{
		Time:      t.GNSS.Time,
		Latitude:  t.GNSS.Latitude,
		Longitude: t.GNSS.Longitude,
	}
}

// GraphPoint projects the plotted quantities of a telemetry reading.
func (t TelemetryReading) GraphPoint(since, now time.Time) GraphPoint {
	return GraphPoint{
		TimeSinceLaunch: ElapsedSeconds(since, now),
		Altitude:        t.Altitude,
		Temperature:     t.Temperature,
		Pressure:        t.Pressure,
		Velocity:        t.Velocity,
	}
}

// Project returns the view of t requested by req.
func (t TelemetryReading) Project(req Request, now time.Time) (Reading, error) {
	switch req.Kind {
	case KindTelemetry:
		return t, nil
	case KindMap:
		return t.MapPoint(), nil
	case KindGraph:
		return t.GraphPoint(req.Since, now), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}

// ElapsedSeconds returns now-since in seconds rounded to two decimals.
// A zero since or a clock that went backwards yields 0.
func ElapsedSeconds(since, now time.Time) float64 {
	if since.IsZero() || now.Before(since) {
		return 0
	}
	return math.Round(now.Sub(since).Seconds()*100) / 100
}
