package announcement

import "time"

// Type 公告类型
type Type string

const (
	TypeNormal  Type = "NORMAL"
	TypeUrgent  Type = "URGENT"
	TypeInfo    Type = "INFO"
	TypeWarning Type = "WARNING"
)

// Status 公告状态
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// PushStrategy 推送策略
type PushStrategy string

const (
	PushImmediate PushStrategy = "IMMEDIATE" // 发布时推送给全部用户
	PushLogin     PushStrategy = "LOGIN"     // 用户登录后拉取未读
	PushScheduled PushStrategy = "SCHEDULED" // 到达计划时间自动发布
)

// AnnouncementPO 公告
type AnnouncementPO struct {
	ID             string       `gorm:"primaryKey;size:32"`
	Title          string       `gorm:"size:255;not null"`
	Content        string       `gorm:"type:text"`
	RichContent    string       `gorm:"type:text"`
	Link           string       `gorm:"size:512"`
	Type           Type         `gorm:"size:16;not null"`
	Priority       int          `gorm:"not null;default:0"`
	Status         Status       `gorm:"size:16;not null;index"`
	PushStrategy   PushStrategy `gorm:"size:16;not null"`
	RequireConfirm int          `gorm:"not null;default:0"`
	EffectiveTime  *time.Time
	ExpireTime     *time.Time
	ScheduledTime  *time.Time
	CreatedBy      string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (AnnouncementPO) TableName() string { return "announcement" }

// AnnouncementReadPO 阅读记录，每个用户每条公告一行
type AnnouncementReadPO struct {
	ID             string    `gorm:"primaryKey;size:32"`
	AnnouncementID string    `gorm:"size:32;not null;uniqueIndex:uk_announcement_read"`
	UserID         string    `gorm:"size:64;not null;uniqueIndex:uk_announcement_read"`
	ReadAt         time.Time `gorm:"not null"`
}

func (AnnouncementReadPO) TableName() string { return "announcement_read" }

// Models 需要迁移的表
func Models() []any {
	return []any{&AnnouncementPO{}, &AnnouncementReadPO{}}
}

// CreateDTO 创建公告，时间格式 yyyy-MM-dd HH:mm:ss
type CreateDTO struct {
	Title          string `json:"title" validate:"required,max=255"`
	Content        string `json:"content"`
	RichContent    string `json:"richContent"`
	Link           string `json:"link" validate:"max=512"`
	Type           string `json:"type" validate:"omitempty,oneof=NORMAL URGENT INFO WARNING"`
	Priority       *int   `json:"priority"`
	PushStrategy   string `json:"pushStrategy" validate:"omitempty,oneof=IMMEDIATE LOGIN SCHEDULED"`
	RequireConfirm *int   `json:"requireConfirm" validate:"omitempty,oneof=0 1"`
	EffectiveTime  string `json:"effectiveTime"`
	ExpireTime     string `json:"expireTime"`
	ScheduledTime  string `json:"scheduledTime"`
}

// UpdateDTO 部分更新，nil字段保持不变
type UpdateDTO struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content        *string `json:"content"`
	RichContent    *string `json:"richContent"`
	Link           *string `json:"link" validate:"omitempty,max=512"`
	Type           *string `json:"type" validate:"omitempty,oneof=NORMAL URGENT INFO WARNING"`
	Priority       *int    `json:"priority"`
	Status         *string `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED WITHDRAWN"`
	PushStrategy   *string `json:"pushStrategy" validate:"omitempty,oneof=IMMEDIATE LOGIN SCHEDULED"`
	RequireConfirm *int    `json:"requireConfirm" validate:"omitempty,oneof=0 1"`
	EffectiveTime  *string `json:"effectiveTime"`
	ExpireTime     *string `json:"expireTime"`
	ScheduledTime  *string `json:"scheduledTime"`
}

// VO 公告视图
type VO struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Content        string       `json:"content,omitempty"`
	RichContent    string       `json:"richContent,omitempty"`
	Link           string       `json:"link,omitempty"`
	Type           Type         `json:"type"`
	Priority       int          `json:"priority"`
	Status         Status       `json:"status"`
	PushStrategy   PushStrategy `json:"pushStrategy"`
	RequireConfirm int          `json:"requireConfirm"`
	EffectiveTime  string       `json:"effectiveTime,omitempty"`
	ExpireTime     string       `json:"expireTime,omitempty"`
	ScheduledTime  string       `json:"scheduledTime,omitempty"`
	CreatedAt      string       `json:"createdAt"`
	UpdatedAt      string       `json:"updatedAt"`
	Read           *bool        `json:"read,omitempty"`
}

// StatsVO 阅读统计
type StatsVO struct {
	AnnouncementID string  `json:"announcementId"`
	TotalUsers     int64   `json:"totalUsers"`
	ReadUsers      int64   `json:"readUsers"`
	ReadRate       float64 `json:"readRate"`
}
