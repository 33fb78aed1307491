package main // Entry point package

import (
	"context"   // shutdown and background worker lifetimes
	"errors"    // errors.Is on server close
	"net/http"  // http.ErrServerClosed
	"os"        // stdout for logs
	"os/signal" // SIGINT/SIGTERM handling
	"syscall"   // SIGTERM
	"time"      // shutdown timeout

	"github.com/jonboulle/clockwork"                // wall clock for the store and watcher
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request id and recover
	"github.com/redis/go-redis/v9"                  // Redis client
	"github.com/rs/zerolog"                         // structured logging
	"github.com/rs/zerolog/log"                     // global logger

	"github.com/iliyamo/restaurant-table-sessions/internal/config"     // env config
	"github.com/iliyamo/restaurant-table-sessions/internal/database"   // MySQL connection
	"github.com/iliyamo/restaurant-table-sessions/internal/handler"    // HTTP handlers
	"github.com/iliyamo/restaurant-table-sessions/internal/kv"         // Redis-backed KV
	"github.com/iliyamo/restaurant-table-sessions/internal/middleware" // logging, limits, cache
	"github.com/iliyamo/restaurant-table-sessions/internal/queue"      // timer event consumer
	"github.com/iliyamo/restaurant-table-sessions/internal/repository" // slot repository
	"github.com/iliyamo/restaurant-table-sessions/internal/router"     // route registration
	"github.com/iliyamo/restaurant-table-sessions/internal/service"    // timer event publisher
	"github.com/iliyamo/restaurant-table-sessions/internal/slot"       // active slot watcher
	"github.com/iliyamo/restaurant-table-sessions/internal/timer"      // table timer store
)

func main() {
	cfg := config.Load() // Load environment config
	logger := newLogger(cfg)
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	var rdb *redis.Client
	if client, err := config.NewRedisClient(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable")
	} else {
		rdb = client
		defer rdb.Close()
	}

	clock := clockwork.NewRealClock()
	store := timer.NewStore(timerKV(rdb, logger), clock, cfg.TimerKeyPrefix, logger)

	watcher := slot.NewWatcher(repository.NewSlotRepo(db), clock, slot.WatcherConfig{
		TickInterval:    cfg.SlotTickInterval,
		RefreshInterval: cfg.SlotRefreshInterval,
		Location:        cfg.Location,
	}, logger)
	stopWatcher := watcher.Start(ctx)
	defer stopWatcher()

	var publisher handler.TimerEventPublisher = service.NoopPublisher{}
	if cfg.QueueEnabled {
		publisher = service.NewTimerPublisher(cfg.RabbitURL, logger)
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.TimerEventLog, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("timer event consumer stopped")
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.CORS(cfg.CORSOrigins))
	e.Use(echomw.RequestID(), echomw.Recover(), middleware.RequestLogger(logger))

	checks := map[string]handler.Pinger{"mysql": handler.PingFunc(db.PingContext)}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e, handler.Ready(checks))
	router.RegisterAPI(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Slots:     handler.NewSlotHandler(watcher, middleware.NewCachePurger(cacheCfg, rdb, logger)),
		Timers:    handler.NewTimerHandler(store, publisher, clock),
		Limit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, clock, logger),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb, logger),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("timezone", cfg.Location.String()).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newLogger writes human-readable output in dev and JSON elsewhere.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	if cfg.Env == "dev" || cfg.Env == "development" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		base = zerolog.New(os.Stdout)
	}
	return base.With().Timestamp().Str("service", "table-sessions").Logger()
}

// timerKV picks the timer backend.  Without Redis the process can only
// keep timers in memory, which TIMER_STORE=memory must ask for explicitly.
func timerKV(rdb *redis.Client, logger zerolog.Logger) timer.KV {
	if config.TimerStoreBackend() == "memory" {
		logger.Warn().Msg("table timers kept in memory; they will not survive a restart")
		return timer.NewMemoryKV()
	}
	if rdb == nil {
		logger.Fatal().Msg("TIMER_STORE=redis but redis is unavailable")
	}
	return kv.NewRedis(rdb)
}
