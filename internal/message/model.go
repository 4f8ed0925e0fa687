package message

import (
	"time"

	"productivity-hub/pkg/types"
)

// 发送状态
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// TemplateUser 使用模板配置的系统用户
const TemplateUser = "system"

// ConfigItemPO 模板配置，所有用户共享
type ConfigItemPO struct {
	ID          string `gorm:"primaryKey;size:32"`
	Module      string `gorm:"size:64;not null;uniqueIndex:uk_sys_config"`
	ConfigKey   string `gorm:"size:128;not null;uniqueIndex:uk_sys_config"`
	ConfigValue string `gorm:"type:text"`
	Description string `gorm:"size:255"`
	UpdatedBy   string `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ConfigItemPO) TableName() string { return "sys_config" }

// UserConfigPO 用户自己的配置值
type UserConfigPO struct {
	ID          string `gorm:"primaryKey;size:32"`
	UserID      string `gorm:"size:64;not null;uniqueIndex:uk_sys_user_config"`
	Module      string `gorm:"size:64;not null;uniqueIndex:uk_sys_user_config"`
	ConfigKey   string `gorm:"size:128;not null;uniqueIndex:uk_sys_user_config"`
	ConfigValue string `gorm:"type:text"`
	Description string `gorm:"size:255"`
	UpdatedBy   string `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (UserConfigPO) TableName() string { return "sys_user_config" }

// HistoryPO 发送记录，ID 即请求ID
type HistoryPO struct {
	ID           string       `gorm:"primaryKey;size:40"`
	UserID       string       `gorm:"size:64;index:idx_message_history_user_created"`
	Channel      string       `gorm:"size:32;not null"`
	RequestData  types.Extras `gorm:"column:request_data"`
	Status       string       `gorm:"size:16;not null"`
	ResponseData string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"index:idx_message_history_user_created"`
}

func (HistoryPO) TableName() string { return "message_history" }

// Models 需要迁移的表
func Models() []any {
	return []any{&ConfigItemPO{}, &UserConfigPO{}, &HistoryPO{}}
}

// SendDTO 发送请求，Data 的字段由渠道约定
type SendDTO struct {
	Channel string       `json:"channel" validate:"required"`
	Data    types.Extras `json:"data" validate:"required"`
}

// SendResponseVO 发送结果
type SendResponseVO struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
}

// HistoryVO 发送记录视图
type HistoryVO struct {
	ID        string       `json:"id"`
	Channel   string       `json:"channel"`
	Status    string       `json:"status"`
	Request   types.Extras `json:"request"`
	Response  string       `json:"response"`
	CreatedAt time.Time    `json:"createdAt"`
}
