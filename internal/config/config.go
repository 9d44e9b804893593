package config

import "time"

// Config is the complete daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Stream  StreamConfig  `yaml:"stream"`
	Source  SourceConfig  `yaml:"source"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 0 keeps SSE streams open
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	ShutdownWait time.Duration `yaml:"shutdownWait"`
}

// StreamConfig holds SSE stream settings.
type StreamConfig struct {
	TickInterval time.Duration `yaml:"tickInterval"`
}

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceSerial    = "serial"
)

// SourceConfig selects the telemetry source.
type SourceConfig struct {
	Kind string `yaml:"kind"`
	// Seed fixes the synthetic sequence; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// AuditConfig holds audit trail settings. An empty Dir disables auditing.
type AuditConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// LoggingConfig holds process log settings. An empty File logs to stdout only.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// MQTTConfig holds link-status publication settings. An empty Broker disables it.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"clientId"`
	TopicPrefix    string        `yaml:"topicPrefix"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Baseline returns the built-in defaults.
func Baseline() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  120 * time.Second,
			ShutdownWait: 30 * time.Second,
		},
		Stream: StreamConfig{
			TickInterval: 1 * time.Second,
		},
		Source: SourceConfig{
			Kind: SourceSynthetic,
		},
		Audit: AuditConfig{
			Dir:        "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		MQTT: MQTTConfig{
			ClientID:       "gsd",
			TopicPrefix:    "gsd",
			ConnectTimeout: 5 * time.Second,
		},
	}
}
