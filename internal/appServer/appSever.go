package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/config"
	repository "github.com/ds124wfegd/WB_L3/catering/internal/database/postgres"
	cache "github.com/ds124wfegd/WB_L3/catering/internal/database/redis"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"
	"github.com/ds124wfegd/WB_L3/catering/internal/service"
	"github.com/ds124wfegd/WB_L3/catering/internal/transport"
	"github.com/ds124wfegd/WB_L3/catering/internal/worker"

	"github.com/ds124wfegd/WB_L3/catering/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/catering/pkg/postgres"
	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"
	pkgredis "github.com/ds124wfegd/WB_L3/catering/pkg/redis"
	"github.com/ds124wfegd/WB_L3/catering/pkg/scheduler"
	"github.com/ds124wfegd/WB_L3/catering/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ServerAddr(&cfg.Server),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ServerAddr(cfg *config.ServerConfig) string {
	return net.JoinHostPort(cfg.Host, cfg.Port)
}

// SetupLogging switches logrus to JSON output at the configured level.
func SetupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.WithField("log_level", cfg.App.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Migrate applies the schema and exits.
func Migrate(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.RunMigrations(ctx, db)
}

// NewServer wires every component, serves HTTP and blocks until SIGINT or
// SIGTERM, then shuts everything down in reverse order.
func NewServer(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	bookingRepo := repository.NewBookingRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	cashflowRepo := repository.NewCashflowRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	notifier := newNotifier(cfg.Telegram)

	producer := newProducer(ctx, cfg.Kafka)
	defer producer.Close()

	health := map[string]transport.HealthChecker{
		"postgres": db.PingContext,
	}

	// Redis is optional: without it there is no task queue and no rollup cache.
	var (
		redisClient *redis.Client
		rollups     cache.RollupCache = cache.NopRollupCache{}
		redisQueue  *queue.RedisQueue
		publisher   service.TaskPublisher
		admin       *transport.AdminHandler
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, continuing without queue and cache")
		}
	}
	if redisClient != nil {
		defer redisClient.Close()

		rollups = cache.NewRollupCache(redisClient, cfg.Queue.Prefix, cfg.App.RollupCacheTTL)

		queueCfg := queue.ConfigFrom(cfg.Queue)
		retryManager := queue.NewRetryManager(queueCfg.MaxRetries, queueCfg.BaseDelay)
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, queue.KeysFor(queueCfg.Prefix))

		redisQueue, err = queue.NewRedisQueue(redisClient, queueCfg, retryManager, dlqHandler)
		if err != nil {
			logrus.WithError(err).Error("Failed to initialize Redis queue, continuing without it")
		} else {
			defer redisQueue.Close()
			publisher = service.NewQueueAdapter(redisQueue)
			admin = transport.NewAdminHandler(dlqHandler)
			health["redis"] = redisQueue.HealthCheck
			logrus.Info("Redis queue initialized")
		}
	}

	clock := lifecycle.SystemClock{}
	bookingService := service.NewBookingService(bookingRepo, transactionRepo, catalogRepo, rollups, clock, publisher, service.BookingOptions{
		ReminderLead: cfg.App.ReminderLead,
		Location:     loc,
	})
	cashflowService := service.NewCashflowService(bookingRepo, transactionRepo, cashflowRepo, rollups, clock, loc)
	catalogService := service.NewCatalogService(catalogRepo, clock)

	if redisQueue != nil {
		taskHandler := queue.NewTaskHandler(bookingService, producer, notifier)
		if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
			return fmt.Errorf("failed to start queue subscriber: %w", err)
		}
		logrus.Info("Queue subscriber started")
	}

	if _, ok := rollups.(cache.NopRollupCache); !ok {
		rollupWorker := worker.NewRollupWorker(cashflowService, cfg.Worker.RollupInterval)
		go rollupWorker.Start(ctx)
	}

	settlement, err := scheduler.NewScheduler(bookingService, notifier, cfg.Scheduler.SettlementSweep, loc)
	if err != nil {
		return err
	}
	if err := settlement.Start(ctx); err != nil {
		return err
	}

	if err := transport.RegisterValidators(); err != nil {
		return err
	}
	if cfg.IsProduction() || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(&transport.Handlers{
		Booking:  transport.NewBookingHandler(bookingService),
		Cashflow: transport.NewCashflowHandler(cashflowService),
		Catalog:  transport.NewCatalogHandler(catalogService),
		Admin:    admin,
		Health:   health,
	}, time.Duration(cfg.Server.RequestTimeout)*time.Second)

	srv := new(Server)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Run(cfg, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logrus.WithFields(logrus.Fields{
		"addr":    ServerAddr(&cfg.Server),
		"version": cfg.Server.AppVersion,
	}).Info("App started")

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("App shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Error occurred on server shutting down")
	}
	return nil
}

func newNotifier(cfg config.TelegramConfig) telegram.Notifier {
	if !cfg.Enabled || cfg.BotToken == "" {
		logrus.Warn("Telegram bot token not provided, notifications go to the log")
		return telegram.LogNotifier{}
	}
	logrus.Info("Telegram bot initialized")
	return telegram.NewBot(cfg.BotToken, cfg.ChatID)
}

func newProducer(ctx context.Context, cfg config.KafkaConfig) kafka.Producer {
	if !cfg.Enabled {
		return kafka.NewLogProducer()
	}
	return kafka.NewProducer(ctx, cfg.Brokers, cfg.Topic)
}
