package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"aidash/backend/internal/auth"
	jwtpkg "aidash/backend/internal/auth/jwt"
	"aidash/backend/internal/config"
	"aidash/backend/internal/health"
	"aidash/backend/internal/middleware"
	"aidash/backend/internal/monitoring"
	"aidash/backend/internal/service"
	"aidash/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	AuthService   *auth.Service
	JWTManager    *jwtpkg.Manager
	Registry      *service.ServiceRegistry
	Keys          *service.APIKeyService
	Prompts       *service.SystemPromptService
	Dashboard     *service.DashboardService
	Store         storage.Store
	RateLimits    storage.RateLimitRepository // 为 nil 时使用进程内限流
	Metrics       *monitoring.Metrics         // 为 nil 时不挂指标中间件
	HealthChecker *health.Checker
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.RecoveryHandler(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())

	// 提示词正文可能较长，其余端点保持较小的请求体上限
	router.Use(middleware.DynamicBodySizeLimit(map[string]int64{
		"/v1/prompts":     middleware.PromptBodyLimit,
		"/v1/prompts/:id": middleware.PromptBodyLimit,
	}, middleware.SmallBodyLimit))

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mm.HTTPMetrics())
		router.Use(mm.BusinessMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, log)
	serviceHandler := NewAPIServiceHandler(deps.Registry, log)
	keyHandler := NewAPIKeyHandler(deps.Keys, log)
	promptHandler := NewSystemPromptHandler(deps.Prompts, log)
	dashboardHandler := NewDashboardHandler(deps.Dashboard, log)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, log)

	// 认证端点限流：优先使用共享计数器（redis），否则退回进程内令牌桶
	var authRateLimit gin.HandlerFunc
	if deps.RateLimits != nil {
		authRateLimit = middleware.RateLimitByIP(
			deps.RateLimits, log,
			int64(deps.Config.RateLimit.AuthRequests),
			deps.Config.RateLimit.AuthWindow,
		)
	} else {
		authRateLimit = middleware.LocalRateLimit(middleware.NewLocalRateLimiter(
			int64(deps.Config.RateLimit.AuthRequests),
			deps.Config.RateLimit.AuthWindow,
		))
	}

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.HealthChecker != nil {
		healthHandler := deps.HealthChecker.Handler()
		router.GET("/health/live", gin.WrapH(http.StripPrefix("/health", healthHandler)))
		router.GET("/health/ready", gin.WrapH(http.StripPrefix("/health", healthHandler)))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		authRoutes.Use(authRateLimit)
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Service Routes ==========
		serviceRoutes := v1.Group("/services")
		serviceRoutes.Use(jwtAuth.RequireAuth())
		{
			serviceRoutes.GET("", serviceHandler.ListServices)
			serviceRoutes.POST("", serviceHandler.CreateService)
			serviceRoutes.DELETE("/:id", serviceHandler.DeleteService)

			// 密钥作用域为 (服务, 当前用户)
			serviceRoutes.GET("/:id/keys", keyHandler.ListKeys)
			serviceRoutes.POST("/:id/keys", keyHandler.AddKey)
			serviceRoutes.PATCH("/:id/keys/:keyId/toggle", keyHandler.ToggleKey)
			serviceRoutes.POST("/:id/keys/:keyId/activate", keyHandler.ActivateKey)
		}

		// ========== Key Routes（按ID直接删除） ==========
		keyRoutes := v1.Group("/keys")
		keyRoutes.Use(jwtAuth.RequireAuth())
		{
			keyRoutes.DELETE("/:id", keyHandler.DeleteKey)
		}

		// ========== Prompt Routes ==========
		promptRoutes := v1.Group("/prompts")
		promptRoutes.Use(jwtAuth.RequireAuth())
		{
			promptRoutes.GET("", promptHandler.ListPrompts)
			promptRoutes.POST("", promptHandler.CreatePrompt)
			promptRoutes.GET("/:id", promptHandler.GetPrompt)
			promptRoutes.PUT("/:id", promptHandler.UpdatePrompt)
			promptRoutes.DELETE("/:id", promptHandler.DeletePrompt)
		}

		// ========== Dashboard Routes ==========
		dashboardRoutes := v1.Group("/dashboard")
		dashboardRoutes.Use(jwtAuth.RequireAuth())
		{
			dashboardRoutes.GET("/summary", dashboardHandler.Summary)
		}
	}

	return router
}
