package storage

import (
	"errors"
	"time"

	"aidash/backend/internal/domain"
)

var (
	// ErrServiceNotFound 服务未找到错误
	ErrServiceNotFound = errors.New("api service not found")
	// ErrServiceNameExists 服务名称已存在错误
	ErrServiceNameExists = errors.New("api service name already exists")
	// ErrAPIKeyNotFound API密钥未找到错误
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrPromptNotFound 系统提示词未找到错误
	ErrPromptNotFound = errors.New("system prompt not found")
	// ErrPromptNameExists 系统提示词名称已存在错误
	ErrPromptNameExists = errors.New("system prompt name already exists")
	// ErrUserNotFound 用户不存在错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已存在错误
	ErrEmailExists = errors.New("email already exists")
)

// APIServiceRepository 定义服务注册表数据存取操作。
type APIServiceRepository interface {
	// SaveAPIService 持久化一个新服务；名称冲突时返回 ErrServiceNameExists
	//（唯一性由存储层约束保证，不做预查询）。
	SaveAPIService(svc *domain.APIService) error
	GetAPIService(id string) (*domain.APIService, error)
	// ListAPIServices 返回全部服务，按名称升序。
	ListAPIServices() ([]*domain.APIService, error)
	// DeleteAPIServiceCascade 先删除该服务下的全部密钥，再删除服务本身，
	// 两步必须在同一个原子单元内完成。删除不存在的服务是幂等的成功。
	DeleteAPIServiceCascade(id string) error
	CountAPIServices() (int64, error)
}

// APIKeyRepository 定义API密钥数据存取操作。
//
// 涉及 (serviceID, userID) 作用域内多行状态变更的操作必须串行化
//（SQL 实现用事务，内存实现用互斥锁），以保证单一激活不变量。
type APIKeyRepository interface {
	// CreateAPIKey 插入新密钥并在同一原子单元内确定其初始状态：
	// 作用域内已存在 active 密钥时插入为 inactive，否则插入为 active。
	// 确定的状态会回写到 key.Status。
	CreateAPIKey(key *domain.APIKey) error
	GetAPIKey(id string) (*domain.APIKey, error)
	// ListAPIKeysByScope 返回指定作用域内的密钥，按创建时间倒序。
	ListAPIKeysByScope(serviceID, userID string) ([]*domain.APIKey, error)
	// UpdateAPIKeyStatus 更新作用域内单把密钥的状态；
	// 目标不在作用域内时返回 ErrAPIKeyNotFound。
	UpdateAPIKeyStatus(keyID, serviceID, userID string, status domain.KeyStatus) error
	// ActivateAPIKeyExclusive 在一个原子单元内将作用域其余密钥全部置为
	// inactive 并激活目标密钥。目标不存在时整体回滚并返回
	// ErrAPIKeyNotFound，不产生任何部分停用。
	ActivateAPIKeyExclusive(keyID, serviceID, userID string) error
	// DeleteAPIKey 按ID无条件删除，幂等。
	DeleteAPIKey(id string) error
	UpdateAPIKeyLastUsed(id string) error
	CountAPIKeysByUserID(userID string) (int64, error)
}

// SystemPromptRepository 定义系统提示词数据存取操作。
type SystemPromptRepository interface {
	SaveSystemPrompt(prompt *domain.SystemPrompt) error
	GetSystemPrompt(id string) (*domain.SystemPrompt, error)
	// ListSystemPromptsByUserID 返回用户的全部提示词，按创建时间倒序。
	ListSystemPromptsByUserID(userID string) ([]*domain.SystemPrompt, error)
	UpdateSystemPrompt(prompt *domain.SystemPrompt) error
	DeleteSystemPrompt(id string) error
	CountSystemPromptsByUserID(userID string) (int64, error)
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	UpdateLastLogin(userID string) error
}

// RateLimitRepository 定义限流操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 聚合所有存储接口
type Store interface {
	APIServiceRepository
	APIKeyRepository
	SystemPromptRepository
	UserRepository

	// Health 检查存储层连通性
	Health() error
	// Close 释放底层资源
	Close() error
}
