package main

import (
	"context"
	"time"

	"bank-reconciliation-backend/internal/config"
	"bank-reconciliation-backend/internal/lock"
	"bank-reconciliation-backend/internal/metrics"
	"bank-reconciliation-backend/internal/middleware"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/routes"
	"bank-reconciliation-backend/internal/services/matching"
	"bank-reconciliation-backend/internal/services/reconciliation"
	"bank-reconciliation-backend/internal/services/statement"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("failed to load configuration")
	}
	logger := config.NewLogger(cfg.LogLevel)

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	store := repository.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	var locker lock.Locker = lock.NewLocal()
	rdb, err := config.ConnectRedis(context.Background(), cfg.RedisAddress)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedis(rdb, lock.DefaultRedisTTL)
		logger.WithField("address", cfg.RedisAddress).Info("using redis reconciliation locks")
	}

	reconService := reconciliation.NewService(store, matching.NewScorer(cfg.Matching),
		reconciliation.WithLocker(locker),
		reconciliation.WithLogger(logger),
		reconciliation.WithMetrics(recorder),
	)
	statementService := statement.NewService(store, logger, recorder)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Performed-By", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Services{
		Reconciliation: reconService,
		Statement:      statementService,
		Gatherer:       registry,
	})

	logger.WithField("addr", cfg.HTTPAddr).Info("server listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
