// Command petlife-api serves the virtual pet REST API and runs the lifetime
// worker that decays every pet once per period.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rafaeljc/petlife/internal/attributes"
	"github.com/rafaeljc/petlife/internal/cache"
	"github.com/rafaeljc/petlife/internal/config"
	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/lifetime"
	"github.com/rafaeljc/petlife/internal/logger"
	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/petapi"
	"github.com/rafaeljc/petlife/internal/store"
)

const idempotencyMetricsInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	if err := run(cfg, log); err != nil {
		log.Error("petlife stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("petlife stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	users := store.NewMemoryUserStore()
	pets := store.NewMemoryPetStore(store.PetStoreOptions{
		Shards:         cfg.Store.Shards,
		MaxPetsPerUser: cfg.Store.MaxPetsPerUser,
	})

	engine, err := attributes.NewEngine(attributes.TableFromConfig(&cfg.Lifetime))
	if err != nil {
		return fmt.Errorf("invalid attribute rates: %w", err)
	}

	// Event bus
	var (
		publisher events.Publisher = events.NopPublisher{}
		checkers  []observability.Checker
	)
	if cfg.Redis.IsConfigured() {
		client, err := events.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		publisher = events.NewRedisPublisher(client, cfg.Redis.Channel)
		checkers = append(checkers, events.NewHealthChecker(client))
	} else {
		log.Info("redis not configured, domain events are discarded")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", slog.String("error", err.Error()))
		}
	}()

	notifier := events.NewNotifier(logger.Component(log, "events"), publisher, events.NotifierConfig{
		MaxRetries: cfg.Redis.PublishMaxRetries,
		BaseDelay:  cfg.Redis.PublishBaseDelay,
		Timeout:    cfg.Redis.PublishTimeout,
	})

	// Idempotency
	var idem *cache.IdempotencyCache
	if cfg.Idempotency.Enabled {
		idem, err = cache.NewIdempotencyCache(cfg.Idempotency.Capacity, cfg.Idempotency.TTL)
		if err != nil {
			return fmt.Errorf("failed to create idempotency cache: %w", err)
		}
		defer idem.Close()
		go idem.RunMetricsCollector(ctx, idempotencyMetricsInterval)
	}

	api := petapi.NewAPI(users, pets, engine, notifier, petapi.Options{
		Logger:      logger.Component(log, "api"),
		APIKeyHash:  cfg.Server.API.APIKeyHash,
		SkipAuth:    cfg.Server.API.SkipAuth,
		Idempotency: idem,
	})

	var wg sync.WaitGroup

	// Lifetime worker
	if cfg.Lifetime.Enabled {
		svc := lifetime.New(logger.Component(log, "lifetime"), lifetime.Config{Period: cfg.Lifetime.Period}, pets, engine, notifier)
		checkers = append(checkers, svc)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil {
				log.Error("lifetime service failed", slog.String("error", err.Error()))
			}
		}()
	} else {
		log.Warn("lifetime worker disabled, pets will not decay")
	}

	var obs *observability.Server
	if cfg.Observability.Enabled {
		obs = observability.NewServer(logger.Component(log, "observability"), &cfg.Observability, checkers...)
		obs.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Server.API.Address(),
		Handler:           api,
		ReadTimeout:       cfg.Server.API.ReadTimeout,
		WriteTimeout:      cfg.Server.API.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.API.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.API.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.API.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting api server",
			slog.String("addr", srv.Addr),
			slog.Bool("tls", cfg.Server.API.TLSEnabled),
		)

		var err error
		if cfg.Server.API.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.Server.API.TLSCert, cfg.Server.API.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("api server failed: %w", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", slog.String("error", err.Error()))
	}

	// The worker exits on ctx cancellation; wait so its last events are queued.
	wg.Wait()

	if err := notifier.Wait(shutdownCtx); err != nil {
		log.Warn("pending events not delivered before shutdown", slog.String("error", err.Error()))
	}

	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			log.Error("observability server shutdown failed", slog.String("error", err.Error()))
		}
	}

	return runErr
}
