package todo

import "strings"

// Status 任务状态
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusPaused      Status = "PAUSED"
	StatusCompleted   Status = "COMPLETED"
	StatusInterrupted Status = "INTERRUPTED"
)

// IsTerminal 已完成或已中断
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusInterrupted
}

// CanStart 待开始或已暂停的任务可以开始
func (s Status) CanStart() bool {
	return s == StatusPending || s == StatusPaused
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPaused, StatusCompleted, StatusInterrupted:
		return true
	}
	return false
}

// ParseStatus 无法识别时视为 PENDING
func ParseStatus(s string) Status {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return StatusPending
	}
	return status
}

// Priority 任务优先级，P0最高
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"

	DefaultPriority = PriorityP2
)

// NormalizePriority 空值或非法值取默认优先级
func NormalizePriority(s string) Priority {
	switch p := Priority(strings.TrimSpace(s)); p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return p
	}
	return DefaultPriority
}

// EventType 任务事件类型
type EventType string

const (
	EventCreate          EventType = "CREATE"
	EventStart           EventType = "START"
	EventPause           EventType = "PAUSE"
	EventResume          EventType = "RESUME"
	EventComplete        EventType = "COMPLETE"
	EventInterrupt       EventType = "INTERRUPT"
	EventSystemInterrupt EventType = "SYSTEM_INTERRUPT"
)

// 事件附加信息
const (
	PayloadAutoSwitch = "auto-switch"
	PayloadSystemAuto = "system-auto"
	PayloadImport     = "import"
)

// 模块状态
const (
	ModuleEnabled  = "ENABLED"
	ModuleDisabled = "DISABLED"
)
