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
	// ErrKeyNotFound 密钥不存在或不在调用者的作用域内
	ErrKeyNotFound = errors.New("api key not found")
	// ErrKeyMaterialRequired 密钥内容不能为空
	ErrKeyMaterialRequired = errors.New("api key material is required")
)

// APIKeyService API密钥生命周期管理
//
// 所有操作都限定在 (serviceID, userID) 作用域内,并维护作用域内
// 至多一把 active 密钥的不变量。允许零把 active 密钥（例如停用了
// 唯一的激活密钥之后）,不会自动重新激活其他密钥。
type APIKeyService struct {
	store storage.Store
	log   *zap.Logger
}

// NewAPIKeyService 创建API密钥服务
func NewAPIKeyService(store storage.Store, log *zap.Logger) *APIKeyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIKeyService{store: store, log: log}
}

// List 列出作用域内的密钥,按创建时间倒序
//
// 只返回属于 userID 的密钥,绝不泄露同一服务下其他用户的密钥。
func (s *APIKeyService) List(serviceID, userID string) ([]*domain.APIKey, error) {
	keys, err := s.store.ListAPIKeysByScope(serviceID, userID)
	if err != nil {
		s.log.Error("查询密钥列表失败",
			zap.String("service_id", serviceID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return keys, nil
}

// AddKeyInput 添加密钥的输入参数
type AddKeyInput struct {
	ServiceID string
	UserID    string
	Name      string // 显示名,可为空
	Key       string // 密钥内容
	ExpiresAt *time.Time
}

// Add 在作用域内添加一把新密钥
//
// 参数:
//   - input: 添加参数
//
// 返回值:
//   - *domain.APIKey: 创建的密钥,Status 已由存储层确定
//   - error: ErrServiceNotFound / ErrKeyMaterialRequired 或存储错误
//
// 作用域内没有 active 密钥时新密钥以 active 状态创建（首把密钥默认
// 激活）,否则以 inactive 状态创建。判定与插入在存储层的同一个原子
// 单元内完成,并发添加不会产生两把 active 密钥。
func (s *APIKeyService) Add(input AddKeyInput) (*domain.APIKey, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, ErrKeyMaterialRequired
	}

	// 引用完整性:密钥必须挂在已存在的服务上
	if _, err := s.store.GetAPIService(input.ServiceID); err != nil {
		if errors.Is(err, storage.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	key := &domain.APIKey{
		ID:        uuid.New().String(),
		ServiceID: input.ServiceID,
		UserID:    input.UserID,
		Key:       strings.TrimSpace(input.Key),
		Name:      strings.TrimSpace(input.Name),
		Status:    domain.KeyStatusInactive,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: input.ExpiresAt,
	}

	if err := s.store.CreateAPIKey(key); err != nil {
		s.log.Error("创建密钥失败",
			zap.String("service_id", input.ServiceID),
			zap.String("user_id", input.UserID),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("密钥已创建",
		zap.String("key_id", key.ID),
		zap.String("service_id", key.ServiceID),
		zap.String("status", string(key.Status)))
	return key, nil
}

// ToggleStatus 翻转一把密钥的状态并返回刷新后的作用域列表
//
// 参数:
//   - keyID: 目标密钥ID
//   - serviceID: 所属服务ID
//   - userID: 调用者用户ID
//
// 返回值:
//   - []*domain.APIKey: 翻转后作用域内的完整密钥列表,调用方可据此
//     直接同步视图,无需二次查询
//   - error: ErrKeyNotFound 或存储错误
//
// 激活方向走排他激活的原子单元（先停用其余、再激活目标）,停用方向
// 只写目标单行。两个方向完成后作用域内 active 密钥数都不超过一。
func (s *APIKeyService) ToggleStatus(keyID, serviceID, userID string) ([]*domain.APIKey, error) {
	keys, err := s.store.ListAPIKeysByScope(serviceID, userID)
	if err != nil {
		return nil, err
	}

	var target *domain.APIKey
	for _, k := range keys {
		if k.ID == keyID {
			target = k
			break
		}
	}
	if target == nil {
		return nil, ErrKeyNotFound
	}

	if target.IsActive() {
		err = s.store.UpdateAPIKeyStatus(keyID, serviceID, userID, domain.KeyStatusInactive)
	} else {
		err = s.store.ActivateAPIKeyExclusive(keyID, serviceID, userID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		s.log.Error("翻转密钥状态失败", zap.String("key_id", keyID), zap.Error(err))
		return nil, err
	}

	return s.store.ListAPIKeysByScope(serviceID, userID)
}

// Activate 排他激活一把密钥
//
// 在一个原子单元内停用作用域内其余密钥并激活目标。目标不存在时
// 整体回滚并返回 ErrKeyNotFound,不会留下"全部被停用而目标未激活"
// 的中间状态。
func (s *APIKeyService) Activate(keyID, serviceID, userID string) error {
	if err := s.store.ActivateAPIKeyExclusive(keyID, serviceID, userID); err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return ErrKeyNotFound
		}
		s.log.Error("激活密钥失败", zap.String("key_id", keyID), zap.Error(err))
		return err
	}
	return nil
}

// Delete 按ID删除密钥
//
// 幂等:删除不存在的密钥视为成功。删除 active 密钥后作用域内可以
// 没有任何 active 密钥,不做任何补偿激活。
func (s *APIKeyService) Delete(keyID string) error {
	if err := s.store.DeleteAPIKey(keyID); err != nil {
		s.log.Error("删除密钥失败", zap.String("key_id", keyID), zap.Error(err))
		return err
	}
	return nil
}

// MarkUsed 更新密钥的最后使用时间
//
// 先校验密钥属于调用者的作用域,越权访问按不存在处理。
func (s *APIKeyService) MarkUsed(keyID, serviceID, userID string) error {
	key, err := s.store.GetAPIKey(keyID)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return ErrKeyNotFound
		}
		return err
	}
	if key.ServiceID != serviceID || key.UserID != userID {
		return ErrKeyNotFound
	}
	return s.store.UpdateAPIKeyLastUsed(keyID)
}
