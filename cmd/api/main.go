package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/line-webhook-service/internal/config"
	"github.com/PratikDhanave/line-webhook-service/internal/httpserver"
	"github.com/PratikDhanave/line-webhook-service/internal/logging"
	"github.com/PratikDhanave/line-webhook-service/internal/messaging"
	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
	"github.com/PratikDhanave/line-webhook-service/internal/replies"
	"github.com/PratikDhanave/line-webhook-service/internal/store"
	"github.com/PratikDhanave/line-webhook-service/internal/tracing"
	"github.com/PratikDhanave/line-webhook-service/internal/webhook"
)

// main boots the service: config → logger → journal → messaging → replies → HTTP server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], environ()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func environ() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}

// run returns when ctx is cancelled or the server fails. Configuration is
// validated before anything is bound.
func run(ctx context.Context, args []string, env map[string]string) error {
	cfg, err := config.LoadFromMap(env)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [--port <port>] [--debug] [--help]\n", os.Args[0])
		fs.PrintDefaults()
	}
	fs.IntVar(&cfg.Port, "p", cfg.Port, "port")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port")
	fs.BoolVar(&cfg.Debug, "d", cfg.Debug, "debug")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Downloaded message content lands in static/tmp.
	if err := os.MkdirAll(filepath.Join(cfg.StaticDir, "tmp"), 0o755); err != nil {
		return fmt.Errorf("create static tmp dir: %w", err)
	}

	metricsRegistry := metrics.NewRegistry()

	tracer, tracingCleanup, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingCleanup(shutdownCtx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	}()

	deps := httpserver.Deps{Metrics: metricsRegistry, Logger: logger}

	var (
		journal webhook.Journal
		mem     *store.MemoryJournal
	)
	if cfg.DBURL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer db.Close()

		// Ensure required tables/indexes exist so `docker compose up --build` is enough.
		if err := db.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("apply journal schema: %w", err)
		}
		journal, deps.Journal, deps.Deliveries = db, db, db
		logger.Info("using postgres delivery journal")
	} else {
		mem = store.NewMemoryJournal(cfg.DedupeTTL)
		journal, deps.Journal = mem, mem
		logger.Info("using in-memory delivery journal", zap.Duration("ttl", cfg.DedupeTTL))
	}

	msgOpts := []messaging.Option{
		messaging.WithTimeout(cfg.APITimeout),
		messaging.WithConcurrency(cfg.APIConcurrency),
		messaging.WithMetrics(metricsRegistry),
		messaging.WithTracer(tracer),
		messaging.WithLogger(logger),
	}
	if cfg.APIEndpoint != "" {
		msgOpts = append(msgOpts, messaging.WithEndpoint(cfg.APIEndpoint))
	}
	client, err := messaging.New(cfg.ChannelAccessToken, msgOpts...)
	if err != nil {
		return err
	}

	catalogue, err := replies.Load(cfg.RepliesFile)
	if err != nil {
		return err
	}
	registry := webhook.NewRegistry(replies.Handlers(catalogue, client, logger))
	logger.Info("reply catalogue loaded",
		zap.String("path", cfg.RepliesFile),
		zap.Any("event_types", registry.Types()),
	)

	dispatcher, err := webhook.NewDispatcher(cfg.ChannelSecret, registry,
		webhook.WithJournal(journal),
		webhook.WithLogger(logger),
		webhook.WithMetrics(metricsRegistry),
		webhook.WithTracer(tracer),
	)
	if err != nil {
		return err
	}
	deps.Dispatcher = dispatcher

	router := httpserver.NewRouter(cfg, deps)

	ln, err := httpserver.Listen(fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return err
	}
	server := httpserver.NewServer(router, cfg.ShutdownTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})
	if mem != nil {
		g.Go(func() error {
			return mem.Run(gctx, time.Minute)
		})
	}
	return g.Wait()
}
