package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is read when GSD_CONFIG is unset and the file exists.
const DefaultPath = "config/gsd.yaml"

// Load merges Baseline() + optional YAML file + env overrides (GSD_*), then validates.
func Load() (*Config, error) {
	config := Baseline()

	path, explicit := os.LookupEnv("GSD_CONFIG")
	if !explicit || path == "" {
		path = DefaultPath
		explicit = false
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes YAML over config, so absent keys keep their current values.
func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyEnvOverrides applies GSD_* environment variables to the config.
func applyEnvOverrides(config *Config) error {
	if val := os.Getenv("GSD_ADDR"); val != "" {
		config.Server.Addr = val
	}

	if err := envDuration("GSD_READ_TIMEOUT", &config.Server.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("GSD_WRITE_TIMEOUT", &config.Server.WriteTimeout); err != nil {
		return err
	}
	if err := envDuration("GSD_IDLE_TIMEOUT", &config.Server.IdleTimeout); err != nil {
		return err
	}
	if err := envDuration("GSD_TICK_INTERVAL", &config.Stream.TickInterval); err != nil {
		return err
	}

	if val := os.Getenv("GSD_SOURCE"); val != "" {
		config.Source.Kind = val
	}
	if val := os.Getenv("GSD_SOURCE_SEED"); val != "" {
		seed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("GSD_SOURCE_SEED: %w", err)
		}
		config.Source.Seed = seed
	}

	// Audit and log paths may be set to empty to disable them.
	if val, ok := os.LookupEnv("GSD_AUDIT_DIR"); ok {
		config.Audit.Dir = val
	}
	if val, ok := os.LookupEnv("GSD_LOG_FILE"); ok {
		config.Logging.File = val
	}

	if val := os.Getenv("GSD_MQTT_BROKER"); val != "" {
		config.MQTT.Broker = val
	}
	if val := os.Getenv("GSD_MQTT_CLIENT_ID"); val != "" {
		config.MQTT.ClientID = val
	}
	if val := os.Getenv("GSD_MQTT_TOPIC_PREFIX"); val != "" {
		config.MQTT.TopicPrefix = val
	}

	return nil
}

func envDuration(key string, dst *time.Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
