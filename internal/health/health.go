package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"aidash/backend/internal/storage"
)

// Checker 健康检查器
//
// 封装 liveness/readiness 检查：存储层连通性必查，限流存储为可选项。
type Checker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewChecker 创建健康检查器
//
// rateLimits 为 nil 时跳过限流存储检查（例如未配置 redis 的部署）。
func NewChecker(store storage.Store, rateLimits storage.RateLimitRepository, logger *zap.Logger) *Checker {
	c := &Checker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	c.health.AddReadinessCheck("storage", func() error {
		return c.store.Health()
	})
	c.health.AddLivenessCheck("storage", func() error {
		return c.store.Health()
	})

	if rateLimits != nil {
		c.health.AddReadinessCheck("ratelimit", RateLimitHealthCheck(rateLimits))
	}

	return c
}

// Handler 返回健康检查HTTP处理器，提供 /live 和 /ready 两个端点
func (c *Checker) Handler() http.Handler {
	return c.health
}

// Check 执行一次即时健康检查，返回各组件状态
func (c *Checker) Check() map[string]string {
	results := map[string]string{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if err := c.store.Health(); err != nil {
		results["storage"] = "ERROR: " + err.Error()
		c.logger.Warn("storage health check failed", zap.Error(err))
	} else {
		results["storage"] = "OK"
	}

	return results
}

// DatabaseHealthCheck 基于 *sql.DB 的数据库健康检查
func DatabaseHealthCheck(db *sql.DB) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// RateLimitHealthCheck 限流存储健康检查
func RateLimitHealthCheck(repo storage.RateLimitRepository) healthcheck.Check {
	return func() error {
		_, err := repo.GetRateLimit("health_check")
		return err
	}
}
