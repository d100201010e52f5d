package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"aidash/backend/internal/monitoring"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics) *MonitoringMiddleware {
	return &MonitoringMiddleware{metrics: metrics}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := strconv.Itoa(c.Writer.Status())
		responseSize := int64(c.Writer.Size())

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			statusCode,
			duration,
			responseSize,
		)

		if c.Writer.Status() >= 400 {
			mm.metrics.RecordError("http_error", "http")
		}
		if c.Writer.Status() == 429 {
			mm.metrics.RecordRateLimitBlock("http", c.ClientIP())
		}
	}
}

// BusinessMetrics 业务指标中间件
//
// 只统计成功（2xx）的变更请求。
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 300 {
			return
		}

		switch c.FullPath() {
		case "/v1/services":
			if c.Request.Method == "POST" {
				mm.metrics.RecordServiceCreated()
			}
		case "/v1/services/:id":
			if c.Request.Method == "DELETE" {
				mm.metrics.RecordServiceDeleted()
			}
		case "/v1/services/:id/keys":
			if c.Request.Method == "POST" {
				mm.metrics.RecordKeyCreated()
			}
		case "/v1/services/:id/keys/:keyId/toggle":
			if c.Request.Method == "PATCH" {
				mm.metrics.RecordKeyToggle()
			}
		case "/v1/services/:id/keys/:keyId/activate":
			if c.Request.Method == "POST" {
				mm.metrics.RecordKeyActivation()
			}
		case "/v1/keys/:id":
			if c.Request.Method == "DELETE" {
				mm.metrics.RecordKeyDeleted()
			}
		case "/v1/prompts":
			if c.Request.Method == "POST" {
				mm.metrics.RecordPromptCreated()
			}
		case "/v1/auth/register":
			if c.Request.Method == "POST" {
				mm.metrics.RecordUserRegistered()
			}
		}
	}
}
