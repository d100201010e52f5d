package main

// @title AI Dashboard Backend API
// @version 1.0.0
// @description AI 聊天服务台后端 API 文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 使用格式：Bearer {token}

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aidash/backend/internal/auth"
	jwtpkg "aidash/backend/internal/auth/jwt"
	"aidash/backend/internal/config"
	"aidash/backend/internal/health"
	"aidash/backend/internal/logger"
	"aidash/backend/internal/monitoring"
	"aidash/backend/internal/service"
	"aidash/backend/internal/storage"
	"aidash/backend/internal/storage/memory"
	"aidash/backend/internal/storage/postgres"
	redisstore "aidash/backend/internal/storage/redis"
	httptransport "aidash/backend/internal/transport/http"
)

// main 是后端 HTTP 服务的程序入口。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting aidash API server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层：留空 database.type 时使用内存存储（开发模式）
	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Redis 可选：配置了地址则用作跨实例限流计数器
	var rateLimits storage.RateLimitRepository
	if cfg.Redis.Address != "" {
		redisClient, err := redisstore.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-process rate limiting", zap.Error(err))
		} else {
			defer redisClient.Close()
			rateLimits = redisstore.NewRateLimiter(redisClient)
		}
	}

	// 初始化服务层
	registry := service.NewServiceRegistry(store, log)
	keys := service.NewAPIKeyService(store, log)
	prompts := service.NewSystemPromptService(store, log)
	dashboard := service.NewDashboardService(store, log)

	// 初始化认证服务
	authService := auth.NewService(store, log)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, rateLimits, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		AuthService:   authService,
		JWTManager:    jwtManager,
		Registry:      registry,
		Keys:          keys,
		Prompts:       prompts,
		Dashboard:     dashboard,
		Store:         store,
		RateLimits:    rateLimits,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		Logger:        log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server stopped cleanly")
	}
}

// openStore 根据配置选择存储后端。
func openStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Database.Type {
	case "postgres":
		store, err := postgres.NewStore(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("using PostgreSQL storage")
		return store, nil
	case "mysql":
		store, err := postgres.NewMySQLStore(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		log.Info("using MySQL storage")
		return store, nil
	default:
		log.Info("using memory storage (data is not persisted)")
		return memory.NewStore(), nil
	}
}
