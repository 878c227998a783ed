package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/room-ticket-service/internal/api/http"
	"github.com/spec-kit/room-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/config"
	"github.com/spec-kit/room-ticket-service/internal/events"
	"github.com/spec-kit/room-ticket-service/internal/observability"
	"github.com/spec-kit/room-ticket-service/internal/persistence"
	"github.com/spec-kit/room-ticket-service/internal/repository"
	"github.com/spec-kit/room-ticket-service/internal/service"
	"github.com/spec-kit/room-ticket-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	st, err := newStores(pool, cfg.Postgres, clock.Real().Now(), logger)
	if err != nil {
		logger.Fatal("failed to build stores", zap.Error(err))
	}

	var (
		locker    repository.RoomLocker
		summaries repository.ScanSummaryStore
		stream    events.EventHandler
	)
	if redis.Available() {
		locker = repository.NewRedisRoomLocker(redis.Client, cfg.Redis.LockKeyPrefix, cfg.Redis.LockTTL())
		summaries = repository.NewRedisScanSummaryStore(redis.Client, cfg.Redis.ScanSummaryKey)
		stream = events.NewStreamSink(redis.Client, cfg.Redis.EventStream, cfg.Redis.StreamMaxLen).Handle
	} else {
		locker = repository.NewLocalRoomLocker()
		summaries = repository.NewMemoryScanSummaryStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(registry)
	}

	clk := clock.Real()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, stream, logger))

	delays := service.NewDelayPolicy(cfg.Lifecycle)
	scanService := service.NewScanService(service.ScanDependencies{
		ReadingRepo: st.readings,
		RoomRepo:    st.rooms,
		TicketRepo:  st.tickets,
		HistoryRepo: st.history,
		Summaries:   summaries,
		Locker:      locker,
		Dispatcher:  dispatcher,
		Factory:     service.NewTicketFactory(clk, delays),
		Clock:       clk,
		Window:      cfg.Detection.Window(),
		Workers:     cfg.Detection.Workers,
		Logger:      logger,
		Metrics:     metrics,
	})
	scheduler := service.NewLifecycleScheduler(service.LifecycleDependencies{
		TicketRepo:  st.tickets,
		HistoryRepo: st.history,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Picker:      service.NewRandomPicker(),
		Delays:      delays,
		Technicians: cfg.Lifecycle.Technicians,
		BatchSize:   cfg.Lifecycle.BatchSize,
		Workers:     cfg.Lifecycle.Workers,
		Logger:      logger,
		Metrics:     metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  st.tickets,
		HistoryRepo: st.history,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
	})
	queries := service.NewQueryFacade(st.tickets, clk)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Scans:   handlers.NewScansHandler(scanService),
		Tickets: handlers.NewTicketsHandler(ticketService, queries),
	}
	if cfg.Metrics.Enabled {
		routes.Gatherer = registry
	}
	httptransport.RegisterRoutes(app, routes)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.RunLifecycleWorker(gctx, scheduler, cfg.Lifecycle.PollInterval(), logger)
		return nil
	})
	if cfg.Detection.SchedulerEnabled {
		g.Go(func() error {
			worker.RunScanWorker(gctx, scanService, cfg.Detection.ScanInterval(), logger)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
	}
}
