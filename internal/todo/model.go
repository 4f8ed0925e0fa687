package todo

import (
	"time"

	"productivity-hub/pkg/types"
)

// ModulePO 任务模块
type ModulePO struct {
	ID          string    `gorm:"primaryKey;size:32"`
	UserID      string    `gorm:"size:64;not null;index"`
	Name        string    `gorm:"size:128;not null"`
	Description string    `gorm:"size:512"`
	Status      string    `gorm:"size:16;not null"`
	SortOrder   int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (ModulePO) TableName() string { return "todo_module" }

// TaskPO 任务
//
// DurationMs 为已结算的运行时长，进行中的任务还需加上 ActiveStartAt 至今的时间
type TaskPO struct {
	ID               string            `gorm:"primaryKey;size:32"`
	UserID           string            `gorm:"size:64;not null;index:idx_todo_task_user_status"`
	ModuleID         string            `gorm:"size:32;not null;index"`
	Title            string            `gorm:"size:255;not null"`
	Description      string            `gorm:"type:text"`
	Priority         Priority          `gorm:"size:4;not null"`
	Tags             types.StringSlice `gorm:"column:tags_json"`
	Status           Status            `gorm:"size:16;not null;index:idx_todo_task_user_status"`
	DueDate          *time.Time
	StartedAt        *time.Time
	EndedAt          *time.Time
	ActiveStartAt    *time.Time
	PauseStartedAt   *time.Time
	LastEventAt      *time.Time
	DurationMs       int64 `gorm:"not null;default:0"`
	PausedDurationMs int64 `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (TaskPO) TableName() string { return "todo_task" }

// EventPO 任务状态变更事件
type EventPO struct {
	ID         string    `gorm:"primaryKey;size:32"`
	TodoID     string    `gorm:"size:32;not null;index"`
	UserID     string    `gorm:"size:64;not null"`
	EventType  EventType `gorm:"size:32;not null"`
	OccurredAt time.Time `gorm:"not null"`
	Payload    string    `gorm:"size:512"`
	CreatedAt  time.Time
}

func (EventPO) TableName() string { return "todo_event" }

// Models 需要迁移的表
func Models() []any {
	return []any{&ModulePO{}, &TaskPO{}, &EventPO{}}
}
