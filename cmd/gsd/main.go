// Package main implements the ground station daemon entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/groundstation/gsd/internal/api"
	"github.com/groundstation/gsd/internal/audit"
	"github.com/groundstation/gsd/internal/broker"
	"github.com/groundstation/gsd/internal/config"
	"github.com/groundstation/gsd/internal/metrics"
	"github.com/groundstation/gsd/internal/session"
	"github.com/groundstation/gsd/internal/source"
	"github.com/groundstation/gsd/internal/source/serial"
	"github.com/groundstation/gsd/internal/source/synthetic"
	"github.com/groundstation/gsd/internal/telemetry"
)

func main() {
	// Step 1: Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Step 2: Route process logs
	logFile := setupLogging(cfg.Logging)
	log.Printf("Starting ground station daemon v%s", api.Version)
	log.Printf("Configuration loaded: addr=%s source=%s tick=%v", cfg.Server.Addr, cfg.Source.Kind, cfg.Stream.TickInterval)

	// Step 3: Shared streaming flag and controller
	state := session.NewState()
	controller := session.NewController(state)

	// Step 4: Telemetry source
	src, closeSource := newSource(cfg.Source, controller)
	log.Printf("Telemetry source initialized (%s)", cfg.Source.Kind)

	// Step 5: Audit logger
	var auditLogger *audit.Logger
	if cfg.Audit.Dir != "" {
		auditLogger, err = audit.NewLogger(cfg.Audit.Dir, audit.Options{
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
		})
		if err != nil {
			log.Fatalf("Failed to initialize audit logger: %v", err)
		}
		controller.SetAuditLogger(auditLogger)
		log.Printf("Audit logger initialized at %s", auditLogger.FilePath())
	}

	// Step 6: Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	controller.AddPublisher(collector)
	if link, ok := src.(*serial.Source); ok {
		if err := collector.WatchLink(link.Stats); err != nil {
			log.Fatalf("Failed to register link metrics: %v", err)
		}
	}
	log.Println("Metrics registered")

	// Step 7: Link status publisher
	var publisher *broker.Publisher
	if cfg.MQTT.Enabled() {
		publisher, err = broker.Connect(cfg.MQTT)
		if err != nil {
			// The daemon still serves streams without the broker.
			log.Printf("MQTT publisher disabled: %v", err)
		} else {
			controller.AddPublisher(publisher)
			log.Printf("Publishing link status to %s on %s", cfg.MQTT.Broker, publisher.Topic())
		}
	}

	// Step 8: Telemetry hub
	hub := telemetry.NewHub(state, src, cfg.Stream.TickInterval)
	hub.SetRecorder(collector)
	log.Println("Telemetry hub initialized")

	// Step 9: API server
	server := api.NewServer(controller, hub, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	server.SetMetricsHandler(collector.Handler())

	log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Addr); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-shutdown:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		log.Printf("Server error: %v", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)

	// Streams first so Shutdown is not held open by them.
	hub.Stop(cfg.Server.ShutdownWait)
	log.Println("Telemetry hub stopped")

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}
	cancel()

	if auditLogger != nil {
		if err := auditLogger.Close(); err != nil {
			log.Printf("Error closing audit logger: %v", err)
		}
	}
	if publisher != nil {
		publisher.Close()
	}
	if err := closeSource(); err != nil {
		log.Printf("Error closing telemetry source: %v", err)
	}

	log.Println("Ground station daemon shutdown complete")
	if logFile != nil {
		_ = logFile.Close()
	}
	os.Exit(exitCode)
}

// setupLogging mirrors the standard logger to a rotated file when configured.
func setupLogging(cfg config.LoggingConfig) *lumberjack.Logger {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.File == "" {
		return nil
	}

	out := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, out))
	return out
}

// newSource builds the configured source. The serial source doubles as the
// controller's link so connect opens the requested port.
func newSource(cfg config.SourceConfig, controller *session.Controller) (source.Source, func() error) {
	switch cfg.Kind {
	case config.SourceSerial:
		s := serial.New(serial.OpenPort)
		controller.SetLink(s)
		return s, s.Close
	default:
		var opts []synthetic.Option
		if cfg.Seed != 0 {
			opts = append(opts, synthetic.WithSeed(cfg.Seed))
		}
		return synthetic.New(opts...), func() error { return nil }
	}
}
