package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"geotrace/internal/client"
	"geotrace/internal/config"
	"geotrace/internal/models"
	"geotrace/internal/monitor"
	"geotrace/internal/sink"
)

// errRunFailed signals a run whose failure the sink already reported
var errRunFailed = errors.New("traceroute failed")

func runTrace(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	transport := client.New(cfg.Server, logger)

	if cfg.CheckHealth {
		if err := transport.Health(ctx); err != nil {
			return err
		}
		logger.Info("service healthy", zap.String("server", cfg.Server))
	}

	var db models.Database
	if cfg.Record {
		d, err := openDB(cfg)
		if err != nil {
			logger.Warn("run will not be recorded", zap.Error(err))
		} else {
			defer d.Close()
			db = d
		}
	}

	sinks := sink.Multi{sink.NewTerminal(os.Stdout, cfg.NoColor)}
	if cfg.GeoJSONPath != "" {
		sinks = append(sinks, sink.NewGeoJSON(cfg.GeoJSONPath, logger))
	}

	mon := monitor.New(cfg, transport, db, sinks, logger)

	// An interrupt stops the run and still prints its outcome.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			mon.Cancel()
		case <-done:
		}
	}()

	outcome, err := mon.Run(context.Background(), cfg.Request())
	if err != nil {
		return err
	}
	if outcome.Status == models.OutcomeFailed {
		return errRunFailed
	}
	return nil
}
