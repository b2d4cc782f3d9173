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
	"github.com/prohmpiriya/event-management/internal/activity"
	"github.com/prohmpiriya/event-management/internal/di"
	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/eventbus"
	"github.com/prohmpiriya/event-management/pkg/config"
	"github.com/prohmpiriya/event-management/pkg/database"
	"github.com/prohmpiriya/event-management/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/event-management/pkg/middleware"
	"github.com/prohmpiriya/event-management/pkg/redis"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	var db *database.PostgresDB
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:              cfg.Database.Host,
			Port:              cfg.Database.Port,
			User:              cfg.Database.User,
			Password:          cfg.Database.Password,
			Database:          cfg.Database.DBName,
			SSLMode:           cfg.Database.SSLMode,
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime:   cfg.Database.ConnMaxIdleTime,
			HealthCheckPeriod: time.Minute,
			ConnectTimeout:    10 * time.Second,
			MaxRetries:        cfg.Database.MaxRetries,
			RetryInterval:     2 * time.Second,
			Tracing:           cfg.OTel.Enabled,
		})
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		log.Info("database connected", zap.String("host", cfg.Database.Host))
	} else {
		log.Warn("using in-memory storage; data is lost on restart")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Tracing:      cfg.OTel.Enabled,
		})
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var publisher eventbus.Publisher = eventbus.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafka, err := eventbus.NewKafkaPublisher(ctx, eventbus.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Topic:    cfg.Kafka.Topic,
			Logger:   log,
		})
		if err != nil {
			log.Fatal("failed to connect to kafka", zap.Error(err))
		}
		publisher = kafka
		log.Info("kafka connected", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	activityConfig := activity.Config{Logger: log}
	if db != nil {
		activityConfig.Sink = activity.NewPostgresSink(db.Pool())
	}
	activityLogger := activity.NewLogger(activityConfig)

	var seedUsers []*domain.User
	if db == nil && cfg.Storage.SeedUserEmail != "" {
		seedUsers = append(seedUsers, &domain.User{Name: cfg.Storage.SeedUserName, Email: cfg.Storage.SeedUserEmail})
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:        db,
		Redis:     redisClient,
		Publisher: publisher,
		Activity:  activityLogger,
		Logger:    log,
		SeedUsers: seedUsers,
	})

	jwtConfig := &pkgmiddleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}
	for _, u := range seedUsers {
		token, err := pkgmiddleware.IssueToken(jwtConfig, u.ID, 24*time.Hour)
		if err != nil {
			log.Fatal("failed to issue demo token", zap.Error(err))
		}
		log.Info("demo bearer token issued", zap.Int64("user_id", u.ID), zap.String("token", token))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := pkgmiddleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.Server.AllowedOrigins
	}

	router := container.Router(di.RouterOptions{
		BasePath:    cfg.Server.BasePath,
		ServiceName: cfg.OTel.ServiceName,
		JWT:         jwtConfig,
		AttendeeRateLimit: pkgmiddleware.RateLimitConfig{
			Requests:  cfg.RateLimit.AttendeeRequestsPerMinute,
			Window:    time.Minute,
			BurstSize: cfg.RateLimit.Burst,
			KeyPrefix: "ratelimit:",
		},
		CORS:           cors,
		RedisRateLimit: cfg.RateLimit.UseRedis,
		Tracing:        cfg.OTel.Enabled,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting",
			zap.String("addr", server.Addr),
			zap.String("base_path", cfg.Server.BasePath),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("http server error", zap.Error(err))
	}

	// Drain in reverse dependency order
	if err := activityLogger.Close(); err != nil {
		log.Error("activity logger close error", zap.Error(err))
	}
	if dropped := activityLogger.Dropped(); dropped > 0 {
		log.Warn("activity entries dropped", zap.Uint64("count", dropped))
	}
	publisher.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("redis close error", zap.Error(err))
		}
	}
	if db != nil {
		db.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry shutdown error", zap.Error(err))
	}

	log.Info("shutdown complete")
}
