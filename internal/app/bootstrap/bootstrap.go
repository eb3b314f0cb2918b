package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	nftmarketplace "emporium/contexts/trading/nft-marketplace"
	"emporium/internal/platform/config"
	"emporium/internal/platform/httpserver"
	"emporium/internal/platform/logging"
	"emporium/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 15 * time.Second

type APIApp struct {
	server  *httpserver.Server
	runtime *runtime
	// embedded is set when storage lives in this process, so the outbox and
	// sweeper have to run here too.
	embedded *workerLoop
	logger   *zap.Logger
}

type WorkerApp struct {
	runtime     *runtime
	loop        *workerLoop
	metricsAddr string
	logger      *zap.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, "api")
	if err != nil {
		return nil, err
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	module := rt.module()
	server := httpserver.New(
		module,
		metrics.NewHTTP(prometheus.DefaultRegisterer, logger),
		logger,
		normalizeAddr(cfg.HTTPPort),
	)

	app := &APIApp{
		server:  server,
		runtime: rt,
		logger:  logger,
	}
	if cfg.Storage.Backend == config.BackendMemory {
		app.embedded = newWorkerLoop(rt.workers(metrics.NewMarket(prometheus.DefaultRegisterer)), cfg.Worker, logger)
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == config.BackendMemory {
		return nil, errors.New("the worker process needs STORAGE_BACKEND=postgres; with memory storage the api runs the workers itself")
	}
	logger, err := newLogger(cfg, "worker")
	if err != nil {
		return nil, err
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime:     rt,
		loop:        newWorkerLoop(rt.workers(metrics.NewMarket(prometheus.DefaultRegisterer)), cfg.Worker, logger),
		metricsAddr: cfg.Worker.MetricsAddr,
		logger:      logger,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	if a.embedded != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.embedded.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}
	go func() {
		errCh <- a.server.Start()
	}()

	a.logger.Info("api app started",
		zap.String("event", "bootstrap_api_started"),
		zap.String("module", "internal/app/bootstrap"),
		zap.String("layer", "platform"),
		zap.Bool("embedded_workers", a.embedded != nil),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	wg.Wait()
	return runErr
}

func (a *APIApp) Close() error {
	defer func() { _ = a.logger.Sync() }()
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              w.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("worker metrics listener failed",
				zap.String("event", "bootstrap_worker_metrics_failed"),
				zap.String("module", "internal/app/bootstrap"),
				zap.String("layer", "platform"),
				zap.Error(err),
			)
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	return w.loop.Run(ctx)
}

func (w *WorkerApp) Close() error {
	defer func() { _ = w.logger.Sync() }()
	return w.runtime.Close()
}

// workerLoop drives the relay on every poll tick and the sweeper on its own
// slower tick. The projector is a subscription and runs until ctx ends.
type workerLoop struct {
	workers nftmarketplace.Workers
	cfg     config.WorkerConfig
	logger  *zap.Logger
}

func newWorkerLoop(workers nftmarketplace.Workers, cfg config.WorkerConfig, logger *zap.Logger) *workerLoop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &workerLoop{workers: workers, cfg: cfg, logger: logger}
}

func (l *workerLoop) Run(ctx context.Context) error {
	if l.cfg.EnableProjector {
		if err := l.workers.Projector.Start(ctx); err != nil {
			return err
		}
	}

	poll := time.NewTicker(l.cfg.PollInterval)
	defer poll.Stop()
	sweep := time.NewTicker(l.cfg.SweepInterval)
	defer sweep.Stop()

	l.logger.Info("worker loop started",
		zap.String("event", "bootstrap_worker_started"),
		zap.String("module", "internal/app/bootstrap"),
		zap.String("layer", "platform"),
		zap.String("poll_interval", l.cfg.PollInterval.String()),
		zap.String("sweep_interval", l.cfg.SweepInterval.String()),
		zap.Bool("sweeper_enabled", l.cfg.EnableSweeper),
		zap.Bool("projector_enabled", l.cfg.EnableProjector),
	)

	for {
		// Relay failures are logged by the relay and retried next tick.
		_ = l.workers.Relay.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
		case <-sweep.C:
			if l.cfg.EnableSweeper {
				_ = l.workers.Sweeper.RunOnce(ctx)
			}
		}
	}
}

func newLogger(cfg config.Config, process string) (*zap.Logger, error) {
	logger, err := logging.New(logging.Config{
		Service:  cfg.ServiceName,
		Process:  process,
		Debug:    cfg.Debug,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
