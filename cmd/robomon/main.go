package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/halcyon/robomon/internal/api"
	"codeberg.org/halcyon/robomon/internal/archive"
	"codeberg.org/halcyon/robomon/internal/config"
	"codeberg.org/halcyon/robomon/internal/dedup"
	"codeberg.org/halcyon/robomon/internal/eventlog"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/ingest"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/metric"
	"codeberg.org/halcyon/robomon/internal/pid"
	"codeberg.org/halcyon/robomon/internal/settings"
	"codeberg.org/halcyon/robomon/internal/state"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Daemon failed")
	}
}

func run(ctx context.Context) error {
	store, err := settings.NewStore(cfg.SettingsFile)
	if err != nil {
		return err
	}

	events, err := eventlog.Open(cfg.EventsLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close event log")
		}
	}()

	archiveCfg := archive.DefaultConfig()
	archiveCfg.Enabled = cfg.Archive
	archiveCfg.DBPath = cfg.ArchiveDB
	recorder, err := archive.NewService(archiveCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close frame archive")
		}
	}()

	metrics := metric.New()
	publisher := state.NewPublisher(cfg.HistorySize, time.Duration(cfg.PublishMs)*time.Millisecond, metrics)
	go publisher.Run(ctx)

	pipeline := &ingest.Pipeline{
		Settings: store,
		Dedup:    dedup.New(time.Duration(cfg.CooldownSeconds * float64(time.Second))),
		Events:   events,
		State:    publisher,
		Archive:  recorder,
		Metrics:  metrics,
	}

	thermal := ingest.NewListener(frame.StreamThermal, cfg.ThermalAddr, pipeline)
	if err := thermal.Start(ctx); err != nil {
		return err
	}
	defer thermal.Stop()

	torque := ingest.NewListener(frame.StreamTorque, cfg.TorqueAddr, pipeline)
	if err := torque.Start(ctx); err != nil {
		return err
	}
	defer torque.Stop()

	server := api.NewServer(cfg.HTTPAddr, publisher, store, events, metrics)
	serveErr := make(chan error, 1)
	if err := server.Start(serveErr); err != nil {
		return err
	}

	logger.Info().Msg("robomon started")

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx := context.Background()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
	}

	logger.Info().Msg("robomon stopped")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
