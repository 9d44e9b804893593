package config

import "fmt"

// Validate checks the merged configuration.
func Validate(config *Config) error {
	if err := validateServer(config.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if config.Stream.TickInterval <= 0 {
		return fmt.Errorf("stream validation failed: tick interval must be positive, got %v", config.Stream.TickInterval)
	}
	if err := validateSource(config.Source); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}
	if err := validateRotation(config.Audit.MaxSizeMB, config.Audit.MaxBackups); err != nil {
		return fmt.Errorf("audit validation failed: %w", err)
	}
	if config.Audit.MaxAgeDays < 0 {
		return fmt.Errorf("audit validation failed: max age must not be negative, got %d", config.Audit.MaxAgeDays)
	}
	if err := validateRotation(config.Logging.MaxSizeMB, config.Logging.MaxBackups); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}
	if err := validateMQTT(config.MQTT); err != nil {
		return fmt.Errorf("mqtt validation failed: %w", err)
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if s.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative, got %v", s.ReadTimeout)
	}
	if s.WriteTimeout < 0 {
		return fmt.Errorf("write timeout must not be negative, got %v", s.WriteTimeout)
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %v", s.IdleTimeout)
	}
	if s.ShutdownWait <= 0 {
		return fmt.Errorf("shutdown wait must be positive, got %v", s.ShutdownWait)
	}
	return nil
}

func validateSource(s SourceConfig) error {
	switch s.Kind {
	case SourceSynthetic, SourceSerial:
		return nil
	default:
		return fmt.Errorf("kind must be %q or %q, got %q", SourceSynthetic, SourceSerial, s.Kind)
	}
}

func validateRotation(maxSizeMB, maxBackups int) error {
	if maxSizeMB <= 0 {
		return fmt.Errorf("max size must be positive, got %d", maxSizeMB)
	}
	if maxBackups < 0 {
		return fmt.Errorf("max backups must not be negative, got %d", maxBackups)
	}
	return nil
}

func validateMQTT(m MQTTConfig) error {
	if !m.Enabled() {
		return nil
	}
	if m.ClientID == "" {
		return fmt.Errorf("client id must not be empty when a broker is set")
	}
	if m.TopicPrefix == "" {
		return fmt.Errorf("topic prefix must not be empty when a broker is set")
	}
	if m.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %v", m.ConnectTimeout)
	}
	return nil
}
