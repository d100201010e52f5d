package domain

import "time"

// KeyStatus API密钥状态
type KeyStatus string

const (
	// KeyStatusActive 激活状态：该密钥是当前作用域内对外调用使用的凭证
	KeyStatusActive KeyStatus = "active"
	// KeyStatusInactive 未激活状态
	KeyStatusInactive KeyStatus = "inactive"
)

// APIKey API密钥实体
//
// 密钥归属于一个服务和一个用户。核心不变量：任意时刻，同一
// (ServiceID, UserID) 作用域内最多只有一把密钥处于 active 状态。
// 作用域内允许没有 active 密钥（例如唯一的 active 密钥被停用或删除后）。
type APIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ServiceID  string     `json:"serviceId" gorm:"type:varchar(36);index:idx_api_keys_scope;not null"` // 所属服务
	UserID     string     `json:"userId" gorm:"type:varchar(36);index:idx_api_keys_scope;not null"`    // 所属用户
	Key        string     `json:"key" gorm:"type:text;not null"`                                       // 凭证内容
	Name       string     `json:"name,omitempty" gorm:"type:varchar(256)"`                             // 显示名称（可选）
	Status     KeyStatus  `json:"status" gorm:"type:varchar(32);not null;default:'inactive'"`          // 密钥状态
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"` // 最后使用时间
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`  // 过期时间（可选）
}

// TableName 指定表名
func (APIKey) TableName() string {
	return "api_keys"
}

// IsActive 判断密钥是否处于激活状态
func (k *APIKey) IsActive() bool {
	return k.Status == KeyStatusActive
}
