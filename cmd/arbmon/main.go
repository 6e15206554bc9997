package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbmon/internal/arbitrage"
	"arbmon/internal/config"
	"arbmon/internal/database"
	"arbmon/internal/exchange"
	"arbmon/internal/history"
	"arbmon/internal/model"
	"arbmon/internal/poller"
	"arbmon/internal/server"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	httpClient := resty.New()
	httpClient.SetTimeout(time.Duration(cfg.Poll.FetchTimeoutMS) * time.Millisecond)
	venues := exchange.NewClients(httpClient)

	symbols := make([]model.Symbol, 0, len(cfg.Watch.Bases))
	for _, base := range cfg.Watch.Bases {
		symbols = append(symbols, model.Symbol{Base: base, Quote: cfg.Watch.QuoteAsset})
	}

	repo := newRepository(ctx, cfg.Database, logger)

	tracker := history.NewTracker(time.Now)
	if entries, err := repo.LoadHistory(ctx); err != nil {
		logger.Warn("failed to load persisted history", "error", err)
	} else {
		tracker.Load(entries)
	}

	agg := arbitrage.NewAggregator(logger, venues, symbols)
	p := poller.New(logger, venues, agg, tracker, repo, config.SettingsSnapshot, poller.Options{
		Interval:     time.Duration(cfg.Poll.IntervalSec) * time.Second,
		FetchTimeout: time.Duration(cfg.Poll.FetchTimeoutMS) * time.Millisecond,
	})

	hub := server.NewHub(logger, func() time.Duration {
		return time.Duration(config.SettingsSnapshot().UIThrottleMS) * time.Millisecond
	})
	p.OnUpdate(hub.Publish)

	go hub.Run(ctx)
	go p.Run(ctx)

	srv := server.NewServer(cfg.Server.Addr, p, tracker, hub, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("http server: %v", err)
	}
	logger.Info("exited")
}

// newRepository connects the durable history store. Any failure degrades to
// the in-memory store: history durability is best-effort, never fatal.
func newRepository(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) database.Repository {
	if cfg.URL == "" {
		return database.NewMemoryRepository()
	}
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		logger.Warn("cannot connect to database, history will not persist", "error", err)
		return database.NewMemoryRepository()
	}
	repo := &database.PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		logger.Warn("cannot migrate database, history will not persist", "error", err)
		pool.Close()
		return database.NewMemoryRepository()
	}
	return repo
}
