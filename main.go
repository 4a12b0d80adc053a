package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/config"
	"github.com/SixtySecondsApp/onboarding-forms/consumer"
	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/handlers"
	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/middleware"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
	"github.com/SixtySecondsApp/onboarding-forms/notify"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	if err := logger.Init(logger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	log := logger.Get()
	defer log.Sync()

	log.Info("starting onboarding-forms", cfg.Fields()...)

	if cfg.SentryDSN != "" {
		if err := utils.InitSentry(cfg.SentryDSN, cfg.Server.Env, cfg.Version); err != nil {
			log.Warn("sentry disabled", zap.Error(err))
		} else {
			defer utils.FlushSentry()
		}
	}

	monitoring.Init()

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal("failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	cache := connectRedis(cfg, log)
	if cache != nil {
		defer cache.Close()
	}

	var publisher store.Publisher
	if cfg.Kafka.Broker != "" {
		producer, err := utils.NewKafkaProducer(cfg.Kafka.Broker)
		if err != nil {
			log.Warn("Kafka unavailable, form events disabled", zap.Error(err))
		} else {
			defer producer.Close()
			publisher = store.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		}
	}

	var search utils.ElasticsearchClient
	if cfg.ElasticsearchURL != "" {
		search, err = utils.NewElasticsearchClient(cfg.ElasticsearchURL)
		if err != nil {
			log.Warn("Elasticsearch unavailable, search disabled", zap.Error(err))
			search = nil
		}
	}

	var feed *notify.Feed
	if cache != nil {
		feed = notify.NewFeed(cache, cfg.PublicURL)
	}

	st := store.New(repo, cache, publisher, cfg.Redis.TTL)
	svc := dashboard.NewService(st, search)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if publisher != nil {
		reader := utils.NewKafkaReader(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		c := consumer.NewFormConsumer(repo, search, feed, notify.NewWebhookSender(nil), reader)
		c.Start(ctx)
		defer c.Stop()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		logger.Middleware(),
		middleware.SentryMiddleware(),
		middleware.PrometheusMetrics(),
		middleware.ErrorHandler(),
	)

	handlers.Router{
		Forms:      handlers.NewFormHandler(svc, cfg.PublicURL),
		Onboarding: handlers.NewOnboardingHandler(st),
		Admin:      handlers.NewAdminHandler(repo, feed, cache),
		JWTSecret:  cfg.JWTSecret,
	}.Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server is running", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openRepository connects to Postgres unless STORAGE=memory asks for the
// in-process repository used for local demos.
func openRepository(cfg *config.Config) (models.Repository, error) {
	if cfg.Storage == "memory" {
		return models.NewMemoryRepository(), nil
	}
	return models.NewPostgresRepository(cfg.DB.DSN(), models.PoolOptions{
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
}

// connectRedis retries a few times since Redis often starts after the
// service in compose setups. It returns nil when Redis stays unreachable;
// the service then runs without a cache.
func connectRedis(cfg *config.Config, log *zap.Logger) utils.RedisClient {
	const maxRetries = 5
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		client, err := utils.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err == nil {
			return client
		}
		log.Warn("failed to connect to Redis", zap.Int("attempt", i+1), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	log.Warn("running without Redis cache")
	return nil
}
