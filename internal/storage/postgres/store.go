package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

// Store PostgreSQL 存储实现
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	// 配置 GORM
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// 连接数据库
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.APIService{},
		&domain.APIKey{},
		&domain.SystemPrompt{},
	)
}

// isDuplicateKeyError 判断错误是否为唯一性约束冲突
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// PostgreSQL: "duplicate key value violates unique constraint"
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "Duplicate entry")
}

// ========== APIService Repository ==========

// SaveAPIService 保存服务信息
//
// 名称唯一性由数据库唯一索引保证，冲突时返回 ErrServiceNameExists。
func (s *Store) SaveAPIService(svc *domain.APIService) error {
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now

	if err := s.db.Create(svc).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrServiceNameExists
		}
		return err
	}
	return nil
}

// GetAPIService 根据ID获取服务
func (s *Store) GetAPIService(id string) (*domain.APIService, error) {
	var svc domain.APIService
	err := s.db.Where("id = ?", id).First(&svc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

// ListAPIServices 返回全部服务，按名称升序
func (s *Store) ListAPIServices() ([]*domain.APIService, error) {
	var services []*domain.APIService
	err := s.db.Order("name ASC").Find(&services).Error
	return services, err
}

// DeleteAPIServiceCascade 删除服务及其全部密钥
//
// 使用事务先删密钥后删服务，保证引用完整性的删除顺序。
func (s *Store) DeleteAPIServiceCascade(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// 删除该服务下的全部密钥
		if err := tx.Where("service_id = ?", id).Delete(&domain.APIKey{}).Error; err != nil {
			return err
		}

		// 删除服务本身
		return tx.Where("id = ?", id).Delete(&domain.APIService{}).Error
	})
}

// CountAPIServices 返回服务总数
func (s *Store) CountAPIServices() (int64, error) {
	var count int64
	err := s.db.Model(&domain.APIService{}).Count(&count).Error
	return count, err
}

// ========== APIKey Repository ==========

// CreateAPIKey 插入新密钥并在事务内确定初始状态
//
// 作用域内已有 active 密钥时插入为 inactive，否则插入为 active；
// 判定和插入在同一事务内完成。
func (s *Store) CreateAPIKey(key *domain.APIKey) error {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var activeCount int64
		if err := tx.Model(&domain.APIKey{}).
			Where("service_id = ? AND user_id = ? AND status = ?", key.ServiceID, key.UserID, domain.KeyStatusActive).
			Count(&activeCount).Error; err != nil {
			return err
		}

		if activeCount > 0 {
			key.Status = domain.KeyStatusInactive
		} else {
			key.Status = domain.KeyStatusActive
		}

		return tx.Create(key).Error
	})
}

// GetAPIKey 根据ID获取密钥
func (s *Store) GetAPIKey(id string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.Where("id = ?", id).First(&key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

// ListAPIKeysByScope 返回作用域内的密钥，按创建时间倒序
func (s *Store) ListAPIKeysByScope(serviceID, userID string) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.Where("service_id = ? AND user_id = ?", serviceID, userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// UpdateAPIKeyStatus 更新作用域内单把密钥的状态
func (s *Store) UpdateAPIKeyStatus(keyID, serviceID, userID string, status domain.KeyStatus) error {
	result := s.db.Model(&domain.APIKey{}).
		Where("id = ? AND service_id = ? AND user_id = ?", keyID, serviceID, userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// ActivateAPIKeyExclusive 停用作用域其余密钥并激活目标密钥
//
// 整个操作在一个事务内执行：目标不存在时事务回滚，已执行的停用
// 全部撤销，不会留下零激活的中间状态。
func (s *Store) ActivateAPIKeyExclusive(keyID, serviceID, userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// 停用作用域内的全部密钥
		if err := tx.Model(&domain.APIKey{}).
			Where("service_id = ? AND user_id = ?", serviceID, userID).
			Update("status", domain.KeyStatusInactive).Error; err != nil {
			return err
		}

		// 激活目标密钥
		result := tx.Model(&domain.APIKey{}).
			Where("id = ? AND service_id = ? AND user_id = ?", keyID, serviceID, userID).
			Update("status", domain.KeyStatusActive)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrAPIKeyNotFound
		}
		return nil
	})
}

// DeleteAPIKey 删除密钥，幂等
func (s *Store) DeleteAPIKey(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.APIKey{}).Error
}

// UpdateAPIKeyLastUsed 更新密钥最后使用时间
func (s *Store) UpdateAPIKeyLastUsed(id string) error {
	return s.db.Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now().UTC()).Error
}

// CountAPIKeysByUserID 返回用户的密钥总数
func (s *Store) CountAPIKeysByUserID(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&domain.APIKey{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ========== SystemPrompt Repository ==========

// SaveSystemPrompt 保存提示词
func (s *Store) SaveSystemPrompt(prompt *domain.SystemPrompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = now
	}
	prompt.UpdatedAt = now

	if err := s.db.Create(prompt).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrPromptNameExists
		}
		return err
	}
	return nil
}

// GetSystemPrompt 根据ID获取提示词
func (s *Store) GetSystemPrompt(id string) (*domain.SystemPrompt, error) {
	var prompt domain.SystemPrompt
	err := s.db.Where("id = ?", id).First(&prompt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrPromptNotFound
		}
		return nil, err
	}
	return &prompt, nil
}

// ListSystemPromptsByUserID 返回用户的全部提示词，按创建时间倒序
func (s *Store) ListSystemPromptsByUserID(userID string) ([]*domain.SystemPrompt, error) {
	var prompts []*domain.SystemPrompt
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&prompts).Error
	return prompts, err
}

// UpdateSystemPrompt 更新提示词
func (s *Store) UpdateSystemPrompt(prompt *domain.SystemPrompt) error {
	prompt.UpdatedAt = time.Now().UTC()

	result := s.db.Model(&domain.SystemPrompt{}).
		Where("id = ? AND user_id = ?", prompt.ID, prompt.UserID).
		Updates(map[string]interface{}{
			"name":       prompt.Name,
			"prompt":     prompt.Prompt,
			"updated_at": prompt.UpdatedAt,
		})
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return storage.ErrPromptNameExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrPromptNotFound
	}
	return nil
}

// DeleteSystemPrompt 删除提示词，幂等
func (s *Store) DeleteSystemPrompt(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.SystemPrompt{}).Error
}

// CountSystemPromptsByUserID 返回用户的提示词总数
func (s *Store) CountSystemPromptsByUserID(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&domain.SystemPrompt{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ========== User Repository ==========

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	// 检查邮箱是否已存在
	var existingUser domain.User
	err := s.db.Where("email = ?", user.Email).First(&existingUser).Error
	if err == nil {
		return storage.ErrEmailExists
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	// 生成ID
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.db.Create(user).Error
}

// GetUserByID 根据ID获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 根据用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser 更新用户信息
func (s *Store) UpdateUser(user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	return s.db.Save(user).Error
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	return s.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error
}

// ========== 生命周期 ==========

// Health 检查数据库连通性
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
