package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/service"
)

// SystemPromptHandler 处理系统提示词相关的 HTTP 请求
type SystemPromptHandler struct {
	prompts *service.SystemPromptService
	log     *zap.Logger
}

// NewSystemPromptHandler 创建系统提示词处理器
func NewSystemPromptHandler(prompts *service.SystemPromptService, log *zap.Logger) *SystemPromptHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemPromptHandler{prompts: prompts, log: log}
}

type promptRequest struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

type promptResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type promptListResponse struct {
	Items []promptResponse `json:"items"`
	Count int              `json:"count"`
}

func toPromptResponse(p *domain.SystemPrompt) promptResponse {
	return promptResponse{
		ID:        p.ID,
		Name:      p.Name,
		Prompt:    p.Prompt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// respondPromptError 按提示词业务错误选择响应
func (h *SystemPromptHandler) respondPromptError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrPromptNotFound):
		NotFound(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrPromptNameRequired), errors.Is(err, service.ErrPromptContentRequired):
		BadRequest(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrPromptNameExists):
		Conflict(c, GetErrorMessage(err))
	default:
		h.log.Error("system prompt operation failed", zap.Error(err))
		InternalError(c, fallback)
	}
}

// ListPrompts 获取提示词列表
// @Summary 获取提示词列表
// @Description 返回当前用户的全部系统提示词，按创建时间倒序
// @Tags 提示词
// @Produce json
// @Security BearerAuth
// @Success 200 {object} promptListResponse
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/prompts [get]
func (h *SystemPromptHandler) ListPrompts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	prompts, err := h.prompts.List(userID)
	if err != nil {
		InternalError(c, MsgPromptListFailed)
		return
	}

	items := make([]promptResponse, 0, len(prompts))
	for _, p := range prompts {
		items = append(items, toPromptResponse(p))
	}
	Success(c, promptListResponse{Items: items, Count: len(items)})
}

// GetPrompt 获取提示词详情
// @Summary 获取提示词详情
// @Tags 提示词
// @Produce json
// @Security BearerAuth
// @Param id path string true "提示词ID"
// @Success 200 {object} promptResponse
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/prompts/{id} [get]
func (h *SystemPromptHandler) GetPrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	prompt, err := h.prompts.Get(c.Param("id"), userID)
	if err != nil {
		h.respondPromptError(c, err, MsgInternalError)
		return
	}
	Success(c, toPromptResponse(prompt))
}

// CreatePrompt 创建提示词
// @Summary 创建提示词
// @Tags 提示词
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body promptRequest true "提示词内容"
// @Success 201 {object} promptResponse
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 409 {object} Response "名称已存在"
// @Router /v1/prompts [post]
func (h *SystemPromptHandler) CreatePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	prompt, err := h.prompts.Create(userID, req.Name, req.Prompt)
	if err != nil {
		h.respondPromptError(c, err, MsgPromptCreateFailed)
		return
	}
	Created(c, toPromptResponse(prompt))
}

// UpdatePrompt 更新提示词
// @Summary 更新提示词
// @Tags 提示词
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提示词ID"
// @Param request body promptRequest true "提示词内容"
// @Success 200 {object} promptResponse
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response "名称已存在"
// @Router /v1/prompts/{id} [put]
func (h *SystemPromptHandler) UpdatePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	prompt, err := h.prompts.Update(c.Param("id"), userID, req.Name, req.Prompt)
	if err != nil {
		h.respondPromptError(c, err, MsgPromptUpdateFailed)
		return
	}
	Success(c, toPromptResponse(prompt))
}

// DeletePrompt 删除提示词
// @Summary 删除提示词
// @Tags 提示词
// @Security BearerAuth
// @Param id path string true "提示词ID"
// @Success 204
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/prompts/{id} [delete]
func (h *SystemPromptHandler) DeletePrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.prompts.Delete(c.Param("id"), userID); err != nil {
		h.respondPromptError(c, err, MsgPromptDeleteFailed)
		return
	}
	NoContent(c)
}
