package notification

import (
	"time"

	"productivity-hub/pkg/types"
)

// 推送消息类型与客户端类型
const (
	TypeNotification = "notification"
	ClientWeb        = "web"
)

// NotificationPO 站内通知
type NotificationPO struct {
	ID        string       `gorm:"primaryKey;size:32"`
	UserID    string       `gorm:"size:64;not null;index:idx_notification_user_created"`
	Title     string       `gorm:"size:255"`
	Content   string       `gorm:"type:text"`
	Link      string       `gorm:"size:512"`
	ReadFlag  bool         `gorm:"not null;default:false"`
	ExtraData types.Extras `gorm:"column:extra_data"`
	CreatedAt time.Time    `gorm:"index:idx_notification_user_created"`
}

func (NotificationPO) TableName() string { return "notification" }

// Models 需要迁移的表
func Models() []any {
	return []any{&NotificationPO{}}
}

// PublishDTO 发布通知
type PublishDTO struct {
	UserID  string       `json:"userId"`
	Title   string       `json:"title" validate:"max=255"`
	Content string       `json:"content"`
	Path    string       `json:"path" validate:"max=512"`
	Extra   types.Extras `json:"extra"`
}

// VO 通知视图
type VO struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Link      string       `json:"link,omitempty"`
	Read      bool         `json:"read"`
	CreatedAt time.Time    `json:"createdAt"`
	Extra     types.Extras `json:"extra,omitempty"`
}

// Payload WebSocket 推送内容
type Payload struct {
	Type    string       `json:"type"`
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Path    string       `json:"path"`
	Extra   types.Extras `json:"extra"`
}

// Event 通知事件，发往消息队列
type Event struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Path      string       `json:"path,omitempty"`
	Extra     types.Extras `json:"extra,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
