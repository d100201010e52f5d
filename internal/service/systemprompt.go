package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

var (
	// ErrPromptNotFound 提示词不存在或不属于调用者
	ErrPromptNotFound = errors.New("system prompt not found")
	// ErrPromptNameRequired 提示词名称不能为空
	ErrPromptNameRequired = errors.New("prompt name is required")
	// ErrPromptNameExists 提示词名称已存在
	ErrPromptNameExists = errors.New("prompt name already exists")
	// ErrPromptContentRequired 提示词内容不能为空
	ErrPromptContentRequired = errors.New("prompt content is required")
)

// SystemPromptService 系统提示词业务逻辑
//
// 提示词按用户隔离:读取、更新、删除都要求目标属于调用者。
type SystemPromptService struct {
	store storage.Store
	log   *zap.Logger
}

// NewSystemPromptService 创建系统提示词服务
func NewSystemPromptService(store storage.Store, log *zap.Logger) *SystemPromptService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemPromptService{store: store, log: log}
}

// List 列出用户的全部提示词,按创建时间倒序
func (s *SystemPromptService) List(userID string) ([]*domain.SystemPrompt, error) {
	prompts, err := s.store.ListSystemPromptsByUserID(userID)
	if err != nil {
		s.log.Error("查询提示词列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return prompts, nil
}

// Get 获取属于调用者的单个提示词
func (s *SystemPromptService) Get(id, userID string) (*domain.SystemPrompt, error) {
	prompt, err := s.store.GetSystemPrompt(id)
	if err != nil {
		if errors.Is(err, storage.ErrPromptNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	if prompt.UserID != userID {
		return nil, ErrPromptNotFound
	}
	return prompt, nil
}

// Create 创建提示词
//
// 参数:
//   - userID: 所属用户
//   - name: 名称,非空且全局唯一
//   - content: 提示词正文,非空
func (s *SystemPromptService) Create(userID, name, content string) (*domain.SystemPrompt, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPromptNameRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrPromptContentRequired
	}

	now := time.Now().UTC()
	prompt := &domain.SystemPrompt{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Prompt:    content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveSystemPrompt(prompt); err != nil {
		if errors.Is(err, storage.ErrPromptNameExists) {
			return nil, ErrPromptNameExists
		}
		s.log.Error("创建提示词失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return prompt, nil
}

// Update 更新属于调用者的提示词
func (s *SystemPromptService) Update(id, userID, name, content string) (*domain.SystemPrompt, error) {
	prompt, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPromptNameRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrPromptContentRequired
	}

	prompt.Name = name
	prompt.Prompt = content
	prompt.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSystemPrompt(prompt); err != nil {
		if errors.Is(err, storage.ErrPromptNameExists) {
			return nil, ErrPromptNameExists
		}
		s.log.Error("更新提示词失败", zap.String("prompt_id", id), zap.Error(err))
		return nil, err
	}

	return prompt, nil
}

// Delete 删除属于调用者的提示词
func (s *SystemPromptService) Delete(id, userID string) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	if err := s.store.DeleteSystemPrompt(id); err != nil {
		s.log.Error("删除提示词失败", zap.String("prompt_id", id), zap.Error(err))
		return err
	}
	return nil
}
