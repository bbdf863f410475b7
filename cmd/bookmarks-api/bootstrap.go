package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/trackmarks/config"
	bookmarksapi "github.com/BearBump/trackmarks/internal/api/bookmarks_api"
	"github.com/BearBump/trackmarks/internal/broker/kafka"
	"github.com/BearBump/trackmarks/internal/cache/rediscache"
	"github.com/BearBump/trackmarks/internal/services/bookmarks"
	"github.com/BearBump/trackmarks/internal/services/claims"
	"github.com/BearBump/trackmarks/internal/storage/pgtracking"
	"github.com/joho/godotenv"
)

type bookmarksApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	opts    bookmarksAPIOpts
	handler *bookmarksapi.BookmarksAPI
	deps    map[string]pinger
	closers []func()
}

func mustBootstrapBookmarksAPI() *bookmarksApp {
	// .env опционален
	_ = godotenv.Load()

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	logger := newLogger(cfg.Bookmarks.LogLevel)
	slog.SetDefault(logger)

	app := &bookmarksApp{
		logger: logger,
		deps:   map[string]pinger{},
		opts: bookmarksAPIOpts{
			httpAddr:    cfg.Bookmarks.HTTPAddr,
			swaggerPath: os.Getenv("swaggerPath"),
			corsOrigins: cfg.Bookmarks.CORSAllowedOrigins,
		},
	}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
	app.closers = append(app.closers, st.Close)
	app.deps["postgres"] = st
	logger.Info("postgres connected")

	var claimer claims.Claimer = claims.Noop{}
	if *cfg.Bookmarks.ClaimOrphans {
		var producer claims.Producer
		if cfg.Kafka.Enabled() {
			p := kafka.NewProducer(cfg.Kafka.Brokers())
			app.closers = append(app.closers, func() { _ = p.Close() })
			producer = p
		}
		claimer = claims.New(logger, st, producer, cfg.Kafka.TrackingClaimedTopicName)
	}

	svc := bookmarks.New(logger, st, st, claimer).WithConcurrency(cfg.Bookmarks.ResolveConcurrency)
	app.handler = bookmarksapi.New(logger, svc)

	if cfg.Redis.Enabled() && cfg.Bookmarks.RateLimitPerMinute > 0 {
		rl := rediscache.NewRateLimiter(cfg.Redis.Addr())
		app.closers = append(app.closers, func() { _ = rl.Close() })
		app.deps["redis"] = rl
		app.handler.WithRateLimit(rl, cfg.Bookmarks.RateLimitPerMinute)
	}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return app
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgtracking.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *bookmarksApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *bookmarksApp) Run() error {
	return runBookmarksAPI(a.ctx, a.logger, a.opts, a.handler, a.deps)
}
