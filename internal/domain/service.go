package domain

import "time"

// DefaultWordLimit 服务默认的词数限额
const DefaultWordLimit = 10000

// APIService 外部API服务实体
//
// 服务注册表是全局的（不按用户隔离），每个服务记录一个词数限额，
// 供前端展示和配额统计使用。
type APIService struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(256);uniqueIndex;not null"` // 服务名称（全局唯一）
	WordLimit int       `json:"wordLimit" gorm:"not null;default:10000"`            // 词数限额
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (APIService) TableName() string {
	return "api_services"
}
