package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geotrace/internal/client"
	"geotrace/internal/config"
	"geotrace/internal/metrics"
	"geotrace/internal/monitor"
	"geotrace/internal/sink"
	"geotrace/internal/web"
)

const maintenanceInterval = time.Hour

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mt := metrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return web.New(db, cfg.Port, reg, logger).Start(ctx)
	})

	g.Go(func() error {
		monitor.NewMaintenance(db, cfg.RetentionDays, maintenanceInterval, logger).Run(ctx)
		return nil
	})

	if len(cfg.Targets) > 0 {
		mon := monitor.New(cfg, client.New(cfg.Server, logger), db, sink.NewLog(logger), logger,
			monitor.WithMetrics(mt))
		g.Go(func() error {
			mon.Watch(ctx, cfg.Targets, cfg.Interval)
			return nil
		})
		logger.Info("watching targets", zap.Strings("targets", cfg.Targets), zap.Duration("interval", cfg.Interval))
	}

	logger.Info("web interface available", zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port)))
	return g.Wait()
}
