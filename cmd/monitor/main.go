package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/cache"
	config "github.com/nostrwatch/relaymon/internal/config/monitor"
	"github.com/nostrwatch/relaymon/internal/monitor"
	"github.com/nostrwatch/relaymon/internal/obs"
	"github.com/nostrwatch/relaymon/internal/probe"
	"github.com/nostrwatch/relaymon/internal/queue"
	"github.com/nostrwatch/relaymon/internal/sched"
	"github.com/nostrwatch/relaymon/internal/store"
	"github.com/nostrwatch/relaymon/internal/store/memory"
	pgstore "github.com/nostrwatch/relaymon/internal/store/postgres"
	"github.com/nostrwatch/relaymon/internal/store/sqlite"
)

func main() {
	cfgPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{
		Level: cfg.LogLevel,
		App:   cfg.Monitor.Daemon,
	})
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting monitor",
		zap.String("store", cfg.Store.Backend),
		zap.String("metrics_addr", cfg.Monitor.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// store
	var (
		backend store.Backend
		health  func(context.Context) error
	)
	switch cfg.Store.Backend {
	case "postgres":
		db, err := pgstore.NewDB(ctx, cfg.Store.DB)
		if err != nil {
			l.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		backend = pgstore.NewBackend(db)
		health = func(ctx context.Context) error { return db.Pool.Ping(ctx) }
	case "sqlite":
		b, err := sqlite.Open(ctx, cfg.Store.SQLite.Path)
		if err != nil {
			l.Fatal("sqlite open", zap.Error(err))
		}
		backend = b
		health = func(context.Context) error { return nil }
	case "memory":
		backend = memory.New()
		health = func(context.Context) error { return nil }
	default:
		l.Fatal("unknown store backend", zap.String("backend", cfg.Store.Backend))
	}
	defer func() { _ = backend.Close() }()

	rc := cache.New(backend, l)

	// queue events
	var events queue.Events = queue.NopEvents{}
	if cfg.Kafka.Enable {
		events = queue.NewKafkaEvents(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Queue.Name, l)
	}

	q := queue.New(cfg.Queue.Name, cfg.Queue.LockDuration, events, l)
	ctrl := queue.NewController(q, events, cfg.Queue.Concurrency, l)

	// wiring
	prober := probe.NewProber(cfg.Monitor.ProbeTimeout, l)
	seed := probe.NewHTTPSeed(cfg.Monitor.SeedURL, cfg.Monitor.SeedRelays, 30*time.Second, l)

	handler := monitor.NewCheckHandler(rc, prober, l)
	populator := monitor.NewPopulator(rc, q, cfg.Monitor.CheckExpiry, l)
	trawler := monitor.NewTrawler(rc, q, seed, cfg.Monitor.ChunkSize, cfg.Monitor.Daemon, l)

	ctrl.Register(queue.KindPopulate, populator.Job)
	ctrl.Register(queue.KindCheckSingle, handler.HandleCheck)
	ctrl.RegisterTrawlBatch(handler.HandleTrawlBatch)

	if err := ctrl.Start(ctx); err != nil {
		l.Fatal("controller start", zap.Error(err))
	}

	// cadences
	engine := sched.New(l)
	if err := engine.Every(cfg.Monitor.CheckInterval.String(), "populate", func() {
		if err := populator.Populate(ctx); err != nil {
			l.Error("populate tick", zap.Error(err))
		}
	}); err != nil {
		l.Fatal("schedule populate", zap.Error(err))
	}
	if err := engine.Every(cfg.Monitor.SyncInterval.String(), "sync", func() {
		if err := trawler.MaybeCheckRelays(ctx); err != nil {
			l.Error("sync tick", zap.Error(err))
		}
	}); err != nil {
		l.Fatal("schedule sync", zap.Error(err))
	}
	engine.Start()

	ms := obs.BootstrapMetricsServer(cfg.Monitor.MetricsAddr, health, l)

	l.Info("monitor started")
	<-ctx.Done()

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	engine.Stop()
	if err := ctrl.Stop(shCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		l.Warn("controller stop", zap.Error(err))
	}
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
