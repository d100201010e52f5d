package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

// Store 使用内存保存服务、密钥与提示词数据，主要用于开发验证和测试。
//
// 所有跨行状态变更都在同一把互斥锁内完成，天然满足作用域写串行化要求。
type Store struct {
	mu           sync.RWMutex
	services     map[string]*domain.APIService   // serviceID -> service
	byName       map[string]string               // name -> serviceID
	apiKeys      map[string]*domain.APIKey       // keyID -> apiKey
	prompts      map[string]*domain.SystemPrompt // promptID -> prompt
	byPromptName map[string]string               // name -> promptID
	users        map[string]*domain.User         // userID -> user
	byEmail      map[string]string               // email -> userID
	byUsername   map[string]string               // username -> userID

	// 速率限制相关
	rateLimits map[string]*rateLimitEntry
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		services:     make(map[string]*domain.APIService),
		byName:       make(map[string]string),
		apiKeys:      make(map[string]*domain.APIKey),
		prompts:      make(map[string]*domain.SystemPrompt),
		byPromptName: make(map[string]string),
		users:        make(map[string]*domain.User),
		byEmail:      make(map[string]string),
		byUsername:   make(map[string]string),
		rateLimits:   make(map[string]*rateLimitEntry),
	}
}

// ========== APIService Repository ==========

// SaveAPIService 保存服务信息，名称冲突时返回 ErrServiceNameExists。
func (s *Store) SaveAPIService(svc *domain.APIService) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byName[svc.Name]; ok && existingID != svc.ID {
		return storage.ErrServiceNameExists
	}

	s.services[svc.ID] = svc
	s.byName[svc.Name] = svc.ID
	return nil
}

// GetAPIService 根据ID获取服务。
func (s *Store) GetAPIService(id string) (*domain.APIService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, storage.ErrServiceNotFound
	}
	return svc, nil
}

// ListAPIServices 返回全部服务的快照，按名称升序。
func (s *Store) ListAPIServices() ([]*domain.APIService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]*domain.APIService, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})
	return services, nil
}

// DeleteAPIServiceCascade 删除服务及其全部密钥。
//
// 先删密钥后删服务，整个过程在同一临界区内完成。删除不存在的服务
// 是幂等的成功。
func (s *Store) DeleteAPIServiceCascade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 先删除该服务下的全部密钥
	for keyID, key := range s.apiKeys {
		if key.ServiceID == id {
			delete(s.apiKeys, keyID)
		}
	}

	svc, ok := s.services[id]
	if !ok {
		return nil
	}
	delete(s.byName, svc.Name)
	delete(s.services, id)
	return nil
}

// CountAPIServices 返回服务总数。
func (s *Store) CountAPIServices() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.services)), nil
}

// ========== APIKey Repository ==========

// CreateAPIKey 插入新密钥并确定初始状态。
//
// 作用域内已有 active 密钥时插入为 inactive，否则插入为 active；
// 判定和插入在同一临界区内完成，并发调用不会产生两把 active 密钥。
func (s *Store) CreateAPIKey(key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasActive := false
	for _, existing := range s.apiKeys {
		if existing.ServiceID == key.ServiceID && existing.UserID == key.UserID && existing.IsActive() {
			hasActive = true
			break
		}
	}

	if hasActive {
		key.Status = domain.KeyStatusInactive
	} else {
		key.Status = domain.KeyStatusActive
	}

	s.apiKeys[key.ID] = key
	return nil
}

// GetAPIKey 根据ID获取密钥。
func (s *Store) GetAPIKey(id string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	return key, nil
}

// ListAPIKeysByScope 返回作用域内的密钥，按创建时间倒序。
func (s *Store) ListAPIKeysByScope(serviceID, userID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*domain.APIKey, 0)
	for _, key := range s.apiKeys {
		if key.ServiceID == serviceID && key.UserID == userID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID > keys[j].ID
		}
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

// UpdateAPIKeyStatus 更新作用域内单把密钥的状态。
func (s *Store) UpdateAPIKeyStatus(keyID, serviceID, userID string, status domain.KeyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[keyID]
	if !ok || key.ServiceID != serviceID || key.UserID != userID {
		return storage.ErrAPIKeyNotFound
	}
	key.Status = status
	return nil
}

// ActivateAPIKeyExclusive 停用作用域其余密钥并激活目标密钥。
//
// 目标不在作用域内时不做任何修改，直接返回 ErrAPIKeyNotFound。
func (s *Store) ActivateAPIKeyExclusive(keyID, serviceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.apiKeys[keyID]
	if !ok || target.ServiceID != serviceID || target.UserID != userID {
		return storage.ErrAPIKeyNotFound
	}

	for _, key := range s.apiKeys {
		if key.ServiceID == serviceID && key.UserID == userID && key.ID != keyID {
			key.Status = domain.KeyStatusInactive
		}
	}
	target.Status = domain.KeyStatusActive
	return nil
}

// DeleteAPIKey 删除密钥，幂等。
func (s *Store) DeleteAPIKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.apiKeys, id)
	return nil
}

// UpdateAPIKeyLastUsed 更新密钥最后使用时间。
func (s *Store) UpdateAPIKeyLastUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

// CountAPIKeysByUserID 返回用户的密钥总数。
func (s *Store) CountAPIKeysByUserID(userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, key := range s.apiKeys {
		if key.UserID == userID {
			count++
		}
	}
	return count, nil
}

// ========== SystemPrompt Repository ==========

// SaveSystemPrompt 保存提示词，名称冲突时返回 ErrPromptNameExists。
func (s *Store) SaveSystemPrompt(prompt *domain.SystemPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byPromptName[prompt.Name]; ok && existingID != prompt.ID {
		return storage.ErrPromptNameExists
	}

	s.prompts[prompt.ID] = prompt
	s.byPromptName[prompt.Name] = prompt.ID
	return nil
}

// GetSystemPrompt 根据ID获取提示词。
func (s *Store) GetSystemPrompt(id string) (*domain.SystemPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompt, ok := s.prompts[id]
	if !ok {
		return nil, storage.ErrPromptNotFound
	}
	return prompt, nil
}

// ListSystemPromptsByUserID 返回用户的全部提示词，按创建时间倒序。
func (s *Store) ListSystemPromptsByUserID(userID string) ([]*domain.SystemPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := make([]*domain.SystemPrompt, 0)
	for _, prompt := range s.prompts {
		if prompt.UserID == userID {
			prompts = append(prompts, prompt)
		}
	}
	sort.Slice(prompts, func(i, j int) bool {
		if prompts[i].CreatedAt.Equal(prompts[j].CreatedAt) {
			return prompts[i].ID > prompts[j].ID
		}
		return prompts[i].CreatedAt.After(prompts[j].CreatedAt)
	})
	return prompts, nil
}

// UpdateSystemPrompt 更新提示词。
func (s *Store) UpdateSystemPrompt(prompt *domain.SystemPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.prompts[prompt.ID]
	if !ok {
		return storage.ErrPromptNotFound
	}

	// 改名时维护名称索引
	if existing.Name != prompt.Name {
		if conflictID, ok := s.byPromptName[prompt.Name]; ok && conflictID != prompt.ID {
			return storage.ErrPromptNameExists
		}
		delete(s.byPromptName, existing.Name)
		s.byPromptName[prompt.Name] = prompt.ID
	}

	s.prompts[prompt.ID] = prompt
	return nil
}

// DeleteSystemPrompt 删除提示词，幂等。
func (s *Store) DeleteSystemPrompt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt, ok := s.prompts[id]
	if !ok {
		return nil
	}
	delete(s.byPromptName, prompt.Name)
	delete(s.prompts, id)
	return nil
}

// CountSystemPromptsByUserID 返回用户的提示词总数。
func (s *Store) CountSystemPromptsByUserID(userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, prompt := range s.prompts {
		if prompt.UserID == userID {
			count++
		}
	}
	return count, nil
}

// ========== User Repository ==========

// CreateUser 创建新用户。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrEmailExists
	}

	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	if user.Username != "" {
		s.byUsername[strings.ToLower(user.Username)] = user.ID
	}
	return nil
}

// GetUserByID 根据ID获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail 根据邮箱获取用户。
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return s.users[userID], nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return s.users[userID], nil
}

// UpdateUser 更新用户信息。
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}

	// 维护索引
	if existing.Email != user.Email {
		delete(s.byEmail, strings.ToLower(existing.Email))
		s.byEmail[strings.ToLower(user.Email)] = user.ID
	}
	if existing.Username != user.Username {
		delete(s.byUsername, strings.ToLower(existing.Username))
		if user.Username != "" {
			s.byUsername[strings.ToLower(user.Username)] = user.ID
		}
	}

	s.users[user.ID] = user
	return nil
}

// UpdateLastLogin 更新用户最后登录时间。
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

// ========== RateLimit Repository ==========

// IncrementRateLimit 增加限流计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 获取限流计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// ========== 生命周期 ==========

// Health 内存存储始终可用。
func (s *Store) Health() error {
	return nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}
