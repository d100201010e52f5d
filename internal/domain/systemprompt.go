package domain

import "time"

// SystemPrompt 系统提示词实体
//
// 用户可复用的对话系统提示词，名称全局唯一。
type SystemPrompt struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);index;not null"`      // 所属用户
	Name      string    `json:"name" gorm:"type:varchar(256);uniqueIndex;not null"` // 提示词名称
	Prompt    string    `json:"prompt" gorm:"type:text;not null"`                   // 提示词内容
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (SystemPrompt) TableName() string {
	return "system_prompts"
}
