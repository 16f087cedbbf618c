package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/api"
	"github.com/sanosuguru/go-event-booker/internal/api/handler"
	"github.com/sanosuguru/go-event-booker/internal/api/middleware"
	"github.com/sanosuguru/go-event-booker/internal/application"
	"github.com/sanosuguru/go-event-booker/internal/config"
	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
	"github.com/sanosuguru/go-event-booker/internal/domain/transaction"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/kafka"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/memory"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
	"github.com/sanosuguru/go-event-booker/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-booker/internal/worker"
)

func main() {
	// .env はローカル開発用。無くてもよい
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("設定が不正です", zap.Error(err))
	}

	if err := run(cfg); err != nil {
		logger.Fatal("サーバーが異常終了しました", zap.Error(err))
	}
}

// stores はストレージ選択の結果
type stores struct {
	catalog   event.Catalog
	ledger    booking.Ledger
	txManager transaction.Manager
	checks    map[string]handler.HealthCheck
	closers []func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	s := &stores{checks: map[string]handler.HealthCheck{}}

	if cfg.Storage.Backend == config.StorageMemory {
		logger.Info("インメモリストアを使用します")
		s.catalog = memory.NewEventCatalog()
		s.ledger = memory.NewBookingLedger()
		s.txManager = memory.NewTxManager()
		return s, nil
	}

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db.Close)

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.catalog = postgres.NewEventCatalog(db)
	s.ledger = postgres.NewBookingLedger(db)
	s.txManager = postgres.NewTxManager(db)
	s.checks["postgres"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	logger.Info("PostgreSQLストアを使用します", zap.String("driver", cfg.Database.Driver))
	return s, nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("クローズに失敗", zap.Error(err))
		}
	}
}

func run(cfg *config.Config) error {
	clk := clockwork.NewRealClock()
	m := metrics.Init()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	engineOpts := []application.EngineOption{
		application.WithTxManager(st.txManager),
		application.WithMetrics(m),
		application.WithLazySweep(cfg.Sweeper.Lazy),
	}
	var sweeperOpts []worker.Option

	// Redis はスイーパーの排他とイベント属性のキャッシュに使う
	var cache application.EventCache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(&redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		st.closers = append(st.closers, client.Close)
		st.checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, client) }

		ec := redis.NewEventCache(client, cfg.Redis.CacheTTL)
		cache = ec
		engineOpts = append(engineOpts, application.WithEventCache(ec))
		sweeperOpts = append(sweeperOpts, worker.WithLocker(redis.NewLockManager(client, m), cfg.Sweeper.LockTTL))
		logger.Info("Redisに接続しました", zap.String("addr", client.Options().Addr))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		st.closers = append(st.closers, pub.Close)
		engineOpts = append(engineOpts, application.WithPublisher(pub))
	}

	engine := application.NewReservationEngine(st.catalog, st.ledger, clk, engineOpts...)
	var sweeper application.ExpiredBookingSweeper
	if cfg.Sweeper.Lazy {
		sweeper = engine
	}
	eventService := application.NewEventService(st.catalog, clk, cfg.Booking.DefaultTTL, cache, sweeper)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	handler.RegisterRoutes(e, handler.Handlers{
		Event:   handler.NewEventHandler(eventService),
		Booking: handler.NewBookingHandler(engine),
		Health:  handler.NewHealthHandler(st.checks),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := worker.NewExpirySweeper(engine, clk, cfg.Sweeper.Interval, sweeperOpts...)
	go sw.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Backend))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		sw.Stop()
		return err
	}

	logger.Info("サーバーをシャットダウンしています...")
	sw.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}
