package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/service"
)

// APIServiceHandler 处理服务注册表相关的 HTTP 请求
type APIServiceHandler struct {
	registry *service.ServiceRegistry
	log      *zap.Logger
}

// NewAPIServiceHandler 创建服务注册表处理器
func NewAPIServiceHandler(registry *service.ServiceRegistry, log *zap.Logger) *APIServiceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIServiceHandler{registry: registry, log: log}
}

type createServiceRequest struct {
	Name      string `json:"name" binding:"required"`
	WordLimit int    `json:"wordLimit"`
}

type serviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WordLimit int       `json:"wordLimit"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type serviceListResponse struct {
	Items []serviceResponse `json:"items"`
	Count int               `json:"count"`
}

func toServiceResponse(svc *domain.APIService) serviceResponse {
	return serviceResponse{
		ID:        svc.ID,
		Name:      svc.Name,
		WordLimit: svc.WordLimit,
		CreatedAt: svc.CreatedAt,
		UpdatedAt: svc.UpdatedAt,
	}
}

// ListServices 获取服务列表
// @Summary 获取服务列表
// @Description 返回全部已注册的外部API服务，按名称升序
// @Tags 服务
// @Produce json
// @Security BearerAuth
// @Success 200 {object} serviceListResponse
// @Failure 500 {object} Response
// @Router /v1/services [get]
func (h *APIServiceHandler) ListServices(c *gin.Context) {
	services, err := h.registry.List()
	if err != nil {
		InternalError(c, MsgServiceListFailed)
		return
	}

	items := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		items = append(items, toServiceResponse(svc))
	}

	Success(c, serviceListResponse{
		Items: items,
		Count: len(items),
	})
}

// CreateService 创建服务
// @Summary 创建服务
// @Description 注册一个新的外部API服务，名称全局唯一
// @Tags 服务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createServiceRequest true "服务信息"
// @Success 201 {object} serviceResponse
// @Failure 400 {object} Response "名称为空"
// @Failure 409 {object} Response "名称已存在"
// @Failure 500 {object} Response
// @Router /v1/services [post]
func (h *APIServiceHandler) CreateService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	svc, err := h.registry.Create(req.Name, req.WordLimit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrServiceNameRequired):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrServiceNameExists):
			Conflict(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to create service", zap.Error(err))
			InternalError(c, MsgServiceCreateFailed)
		}
		return
	}

	Created(c, toServiceResponse(svc))
}

// DeleteService 删除服务
// @Summary 删除服务
// @Description 删除服务及其下的全部API密钥，删除不存在的服务视为成功
// @Tags 服务
// @Security BearerAuth
// @Param id path string true "服务ID"
// @Success 204
// @Failure 500 {object} Response
// @Router /v1/services/{id} [delete]
func (h *APIServiceHandler) DeleteService(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		h.log.Error("failed to delete service", zap.Error(err))
		InternalError(c, MsgServiceDeleteFailed)
		return
	}
	NoContent(c)
}
