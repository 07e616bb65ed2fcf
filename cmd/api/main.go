package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/gomarketplace/cartstore/api/controllers"
	"github.com/gomarketplace/cartstore/api/routes"
	"github.com/gomarketplace/cartstore/internal/cart"
	"github.com/gomarketplace/cartstore/pkg/config"
	"github.com/gomarketplace/cartstore/pkg/instance"
	"github.com/gomarketplace/cartstore/pkg/logger"
	"github.com/gomarketplace/cartstore/pkg/metrics"
	"github.com/gomarketplace/cartstore/pkg/shutdown"
)

const (
	serviceName     = "cart-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "cart api stopped with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	storage, err := openStorage(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, storage.Close())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)

	var (
		persister cart.Persister
		queue     *cart.WriteQueue
	)
	if cfg.Cart.IsAsync() {
		queue = cart.NewWriteQueue(storage.backend, logg, cartMetrics, cart.QueueOptions{
			WriteTimeout: cfg.Cart.WriteTimeout,
			Retry: cart.RetryPolicy{
				MaxAttempts:    cfg.Cart.MaxAttempts,
				InitialBackoff: cfg.Cart.InitialBackoff,
				MaximumBackoff: cfg.Cart.MaxBackoff,
			},
		})
		persister = queue
	} else {
		persister = cart.NewSyncPersister(storage.backend, logg, cartMetrics, cfg.Cart.WriteTimeout)
	}

	store, err := cart.NewStore(ctx, cart.StoreParams{
		Storage:    storage.backend,
		Persister:  persister,
		Key:        cfg.Cart.StorageKey,
		LegacyKeys: cfg.Cart.LegacyKeys,
		Logger:     logg,
		Metrics:    cartMetrics,
	})
	if err != nil {
		if queue != nil {
			err = multierr.Append(err, queue.Close(context.Background()))
		}
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			store,
			map[string]controllers.Pinger{"storage": storage.backend},
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"storage":      storage.backend.Name(),
		"persist_mode": cfg.Cart.PersistMode,
		"cart_lines":   store.Len(),
	})
	logg.Info(logCtx, "starting cart api")

	g, gctx := errgroup.WithContext(ctx)

	if queue != nil {
		g.Go(func() error {
			return queue.Run(gctx)
		})
	}

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down cart api")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		closeErr := server.Shutdown(shutdownCtx)
		if queue != nil {
			closeErr = multierr.Append(closeErr, queue.Close(shutdownCtx))
		}
		return closeErr
	})

	return g.Wait()
}
