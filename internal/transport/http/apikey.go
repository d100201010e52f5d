package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/service"
)

// APIKeyHandler 处理API密钥相关的 HTTP 请求
//
// 所有端点都要求认证，作用域为 (路径中的服务ID, 当前用户ID)。
type APIKeyHandler struct {
	keys *service.APIKeyService
	log  *zap.Logger
}

// NewAPIKeyHandler 创建API密钥处理器
func NewAPIKeyHandler(keys *service.APIKeyService, log *zap.Logger) *APIKeyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIKeyHandler{keys: keys, log: log}
}

type addKeyRequest struct {
	Name string `json:"name"`
	Key  string `json:"key" binding:"required"`
}

type keyResponse struct {
	ID         string     `json:"id"`
	ServiceID  string     `json:"serviceId"`
	Name       string     `json:"name,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type keyListResponse struct {
	Items []keyResponse `json:"items"`
	Count int           `json:"count"`
}

// toKeyResponse 转换密钥实体为响应体，密钥内容不回传。
func toKeyResponse(key *domain.APIKey) keyResponse {
	return keyResponse{
		ID:         key.ID,
		ServiceID:  key.ServiceID,
		Name:       key.Name,
		Status:     string(key.Status),
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		ExpiresAt:  key.ExpiresAt,
	}
}

func toKeyListResponse(keys []*domain.APIKey) keyListResponse {
	items := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, toKeyResponse(key))
	}
	return keyListResponse{Items: items, Count: len(items)}
}

// currentUserID 读取认证中间件注入的用户ID
func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	userID, ok := userIDVal.(string)
	return userID, ok && userID != ""
}

// ListKeys 获取密钥列表
// @Summary 获取密钥列表
// @Description 返回当前用户在指定服务下的全部密钥，按创建时间倒序
// @Tags 密钥
// @Produce json
// @Security BearerAuth
// @Param id path string true "服务ID"
// @Success 200 {object} keyListResponse
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/services/{id}/keys [get]
func (h *APIKeyHandler) ListKeys(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	keys, err := h.keys.List(c.Param("id"), userID)
	if err != nil {
		InternalError(c, MsgKeyListFailed)
		return
	}

	Success(c, toKeyListResponse(keys))
}

// AddKey 添加密钥
// @Summary 添加密钥
// @Description 在指定服务下添加一把密钥，作用域内首把密钥自动激活
// @Tags 密钥
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "服务ID"
// @Param request body addKeyRequest true "密钥信息"
// @Success 201 {object} keyResponse
// @Failure 400 {object} Response "密钥内容为空"
// @Failure 401 {object} Response
// @Failure 404 {object} Response "服务不存在"
// @Failure 500 {object} Response
// @Router /v1/services/{id}/keys [post]
func (h *APIKeyHandler) AddKey(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req addKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	key, err := h.keys.Add(service.AddKeyInput{
		ServiceID: c.Param("id"),
		UserID:    userID,
		Name:      req.Name,
		Key:       req.Key,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrServiceNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrKeyMaterialRequired):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to add api key", zap.Error(err))
			InternalError(c, MsgKeyCreateFailed)
		}
		return
	}

	Created(c, toKeyResponse(key))
}

// ToggleKey 切换密钥状态
// @Summary 切换密钥状态
// @Description 翻转密钥的激活状态并返回刷新后的完整列表；激活时自动停用作用域内其余密钥
// @Tags 密钥
// @Produce json
// @Security BearerAuth
// @Param id path string true "服务ID"
// @Param keyId path string true "密钥ID"
// @Success 200 {object} keyListResponse
// @Failure 401 {object} Response
// @Failure 404 {object} Response "密钥不存在"
// @Failure 500 {object} Response
// @Router /v1/services/{id}/keys/{keyId}/toggle [patch]
func (h *APIKeyHandler) ToggleKey(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	keys, err := h.keys.ToggleStatus(c.Param("keyId"), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to toggle api key", zap.Error(err))
		InternalError(c, MsgKeyToggleFailed)
		return
	}

	Success(c, toKeyListResponse(keys))
}

// ActivateKey 排他激活密钥
// @Summary 排他激活密钥
// @Description 原子地停用作用域内其余密钥并激活目标；目标不存在时整体回滚
// @Tags 密钥
// @Produce json
// @Security BearerAuth
// @Param id path string true "服务ID"
// @Param keyId path string true "密钥ID"
// @Success 200 {object} keyListResponse
// @Failure 401 {object} Response
// @Failure 404 {object} Response "密钥不存在"
// @Failure 500 {object} Response
// @Router /v1/services/{id}/keys/{keyId}/activate [post]
func (h *APIKeyHandler) ActivateKey(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	serviceID := c.Param("id")
	if err := h.keys.Activate(c.Param("keyId"), serviceID, userID); err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to activate api key", zap.Error(err))
		InternalError(c, MsgKeyActivateFailed)
		return
	}

	keys, err := h.keys.List(serviceID, userID)
	if err != nil {
		InternalError(c, MsgKeyListFailed)
		return
	}

	Success(c, toKeyListResponse(keys))
}

// DeleteKey 删除密钥
// @Summary 删除密钥
// @Description 按ID删除密钥，删除不存在的密钥视为成功
// @Tags 密钥
// @Security BearerAuth
// @Param id path string true "密钥ID"
// @Success 204
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/keys/{id} [delete]
func (h *APIKeyHandler) DeleteKey(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.keys.Delete(c.Param("id")); err != nil {
		h.log.Error("failed to delete api key", zap.Error(err))
		InternalError(c, MsgKeyDeleteFailed)
		return
	}
	NoContent(c)
}
