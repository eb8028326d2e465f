package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/config"
	"github.com/oksasatya/go-tour-booking/internal/container"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-tour-booking/internal/infrastructure/postgres"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/search"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/internal/router"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
	"github.com/oksasatya/go-tour-booking/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Document store
	stores, closeStore := openStores(ctx, cfg, logger)
	defer closeStore()

	// Audit log (optional)
	if cfg.AuditDatabaseURL != "" {
		if err := pginfra.RunMigrations(cfg.AuditDatabaseURL, cfg.MigrationsDir, logger); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.AuditDatabaseURL, pginfra.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
			ApplicationName: cfg.AppName,
		})
		if err != nil {
			logger.Fatalf("failed to connect to audit database: %v", err)
		}
		defer pool.Close()
		container.SetAuditPool(pool)
	}

	// Redis; the limiter fails open when it is down
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTimeout)
	defer func() { _ = rdb.Close() }()
	if err := helpers.PingRedis(ctx, rdb, cfg.RedisTimeout); err != nil {
		logger.WithError(err).Warn("redis unreachable, rate limiting is degraded")
	}

	// GCS for photo uploads
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("GCS unavailable, photo uploads disabled")
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
		}
	}

	// Elasticsearch for tour search
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable, tour search disabled")
		} else if err := search.NewTourIndex(es, cfg.ESToursIndex, logger).EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("elasticsearch index setup failed, tour search disabled")
		} else {
			container.SetES(es)
		}
	}

	// RabbitMQ email queue
	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, emails will not be sent")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	// Provide singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetStores(stores)
	container.SetRedis(rdb)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}
	r.Use(middleware.BodyLimit(cfg.BodyLimitBytes))

	reg := router.NewRegistry(r)
	reg.Use(middleware.RateLimit(rdb, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByIP("api"), logger))
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// openStores connects the configured document store and creates its indexes.
func openStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*container.Stores, func()) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using the in-memory store; data is lost on exit and aggregations are unavailable")
		return container.NewMemoryStores(), func() {}
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoTimeout)
	if err != nil {
		logger.Fatalf("failed to connect to mongodb: %v", err)
	}
	stores := container.NewMongoStores(client.Database(cfg.MongoDatabase))
	ictx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()
	if err := stores.EnsureIndexes(ictx); err != nil {
		logger.Fatalf("failed to create indexes: %v", err)
	}
	return stores, func() { disconnect(client, logger) }
}

func disconnect(client *mongo.Client, logger *logrus.Logger) {
	if err := mongodb.Disconnect(client); err != nil {
		logger.WithError(err).Warn("mongodb disconnect")
	}
}
