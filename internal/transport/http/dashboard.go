package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aidash/backend/internal/service"
)

// DashboardHandler 处理仪表盘相关的 HTTP 请求
type DashboardHandler struct {
	dashboard *service.DashboardService
	log       *zap.Logger
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(dashboard *service.DashboardService, log *zap.Logger) *DashboardHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardHandler{dashboard: dashboard, log: log}
}

// Summary 获取仪表盘汇总
// @Summary 获取仪表盘汇总
// @Description 返回服务总数以及当前用户的密钥、提示词数量
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DashboardSummary
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	summary, err := h.dashboard.Summary(userID)
	if err != nil {
		h.log.Error("failed to get dashboard summary", zap.Error(err))
		InternalError(c, MsgSummaryGetFailed)
		return
	}
	Success(c, summary)
}
