package main

import (
	"context"
	"fmt"
	"io"

	"ambulance-finance/internal/config"
	"ambulance-finance/internal/handlers"
	"ambulance-finance/internal/middleware"
	"ambulance-finance/internal/receipts"
	"ambulance-finance/internal/repositories/interfaces"
	"ambulance-finance/internal/repositories/memory"
	"ambulance-finance/internal/repositories/mongodb"
	"ambulance-finance/internal/services"
	"ambulance-finance/pkg/cache"
	"ambulance-finance/pkg/database"
	"ambulance-finance/pkg/logger"
	"ambulance-finance/pkg/websocket"
	"ambulance-finance/routes"

	"github.com/gin-gonic/gin"
)

const walletEventsChannel = "wallet_events"

type app struct {
	router  *gin.Engine
	closers []func() error
	logger  *logger.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{logger: log}
	var checks []handlers.HealthCheck

	repo, err := a.transactionRepository(ctx, cfg, &checks)
	if err != nil {
		a.Close()
		return nil, err
	}

	hub := websocket.NewHub(log.WithField("component", "wallet_hub"))
	go hub.Run(ctx)

	var summaryCache cache.Cache = cache.NewMemoryCache()
	var publisher services.WalletEventPublisher = hub

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, redisCache.Close)
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: redisCache.Ping})

		relay := websocket.NewRedisRelay(redisCache, hub, walletEventsChannel, log.WithField("component", "wallet_relay"))
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("Wallet event relay stopped")
			}
		}()

		summaryCache = redisCache
		publisher = relay
	}

	ledgerService := services.NewLedgerService(repo, summaryCache, publisher, log.WithField("component", "ledger"), cfg.Wallet.SummaryCacheTTL())

	receiptStore, err := receipts.NewStorageProvider(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := receiptStore.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	uploader := receipts.NewUploader(receiptStore, cfg.Wallet.ReceiptMaxWidth, cfg.Wallet.ReceiptMaxHeight, log.WithField("component", "receipts"))

	a.router = newRouter(cfg, log, ledgerService, uploader, hub, checks)
	return a, nil
}

func (a *app) transactionRepository(ctx context.Context, cfg *config.Config, checks *[]handlers.HealthCheck) (interfaces.TransactionRepository, error) {
	switch cfg.App.LedgerStore {
	case "memory":
		a.logger.Warn("Using in-memory ledger store; data is lost on restart")
		return memory.NewTransactionRepository(), nil

	case "mongodb", "":
		db, err := database.NewMongoDB(&database.DatabaseConfig{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Database,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
			MinPoolSize:    cfg.Database.MinPoolSize,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			SocketTimeout:  cfg.Database.SocketTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		*checks = append(*checks, handlers.HealthCheck{Name: "mongodb", Check: db.Ping})

		migrator := database.NewMigrator(db.Database, cfg.Database.Collection, a.logger.WithField("component", "migrations"))
		if err := migrator.Up(ctx); err != nil {
			return nil, err
		}

		return mongodb.NewTransactionRepository(db.Database, cfg.Database.Collection), nil

	default:
		return nil, fmt.Errorf("unknown ledger store %q", cfg.App.LedgerStore)
	}
}

func newRouter(cfg *config.Config, log *logger.Logger, ledgerService services.LedgerService, uploader *receipts.Uploader, hub *websocket.Hub, checks []handlers.HealthCheck) *gin.Engine {
	if cfg.IsProductionEnv() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.SetTrustedProxies(cfg.Security.TrustedProxies)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.ActorIdentity(cfg.Security.JWTSecret))
	router.Use(middleware.LoggingMiddleware(log.WithField("component", "http")))

	transactionHandler := handlers.NewTransactionHandler(ledgerService, log.WithField("component", "transactions"))
	receiptHandler := handlers.NewReceiptHandler(ledgerService, uploader, log.WithField("component", "receipts"))
	socketHandler := websocket.NewHandler(hub, websocket.Config{
		ReadBufferSize:   cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
		PingInterval:     cfg.WebSocket.PingInterval,
		PongTimeout:      cfg.WebSocket.PongTimeout,
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
	}, log.WithField("component", "wallet_socket"))

	v1 := router.Group("/api/v1")
	{
		routes.SetupTransactionRoutes(v1, transactionHandler)
		routes.SetupReceiptRoutes(v1, receiptHandler)
		routes.SetupWalletSocketRoutes(v1, cfg.WebSocket.Path, socketHandler)
	}

	if cfg.Storage.Provider == "local" || cfg.Storage.Provider == "" {
		router.Static("/receipts", cfg.Storage.Local.BasePath)
	}

	routes.SetupHealthRoutes(router, handlers.NewHealthHandler(checks...))

	return router
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Error while closing resource")
		}
	}
}
