package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cwygoda/gather/internal/adapter/process"
	"github.com/cwygoda/gather/internal/adapter/processor"
	"github.com/cwygoda/gather/internal/adapter/sqlite"
	"github.com/cwygoda/gather/internal/config"
	"github.com/cwygoda/gather/internal/dispatcher"
	"github.com/cwygoda/gather/internal/domain"
	"github.com/cwygoda/gather/internal/logging"
	"github.com/cwygoda/gather/internal/metrics"
)

// app wires the adapters for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	repo     *sqlite.Repository
	registry *prometheus.Registry
	svc      *domain.TargetService

	// resolveErr is kept so commands that never launch the tool still work
	// without a usable executable.
	resolveErr error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	executable, resolveErr := process.Resolve(cfg.Executable)
	if resolveErr != nil {
		logger.Debug("executable not usable", zap.String("executable", cfg.Executable), zap.Error(resolveErr))
	}

	disp := dispatcher.New(dispatcher.Config{
		Executable:  executable,
		Concurrency: cfg.Concurrency,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		Charset:     cfg.Charset,
		Layout: processor.Layout{
			OutputDir:       cfg.OutputDir,
			SeparateFolders: cfg.SeparateFolders,
			Folder:          cfg.Folder,
			PreferredFormat: cfg.PreferredFormat,
			ForceOverwrite:  cfg.ForceOverwrite,
			Isolate:         cfg.Isolate,
		},
	},
		dispatcher.WithLogger(logger),
		dispatcher.WithMetrics(metrics.New(registry)),
	)

	svc := domain.NewTargetService(repo, disp)
	recovered, err := svc.Load(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if recovered > 0 {
		logger.Info("recovered interrupted jobs", zap.Int64("count", recovered))
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		registry:   registry,
		svc:        svc,
		resolveErr: resolveErr,
	}, nil
}

// run dispatches task over the working set. It refuses to start when the
// configured executable could not be resolved.
func (a *app) run(ctx context.Context, task domain.Task) ([]domain.Failure, error) {
	if a.resolveErr != nil {
		return nil, a.resolveErr
	}
	return a.svc.Run(ctx, task)
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp builds the app for cmd, runs fn and closes the app.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
