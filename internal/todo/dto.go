package todo

import "time"

// ModuleCreateDTO 创建模块
type ModuleCreateDTO struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
	SortOrder   *int   `json:"sortOrder"`
	Status      string `json:"status" validate:"omitempty,oneof=ENABLED DISABLED"`
}

// ModuleUpdateDTO 更新模块，空字段不修改
type ModuleUpdateDTO struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
	SortOrder   *int    `json:"sortOrder"`
	Status      string  `json:"status" validate:"omitempty,oneof=ENABLED DISABLED"`
}

// TaskCreateDTO 创建任务
type TaskCreateDTO struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	ModuleID    string   `json:"moduleId" validate:"required"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"` // yyyy-MM-dd 或 yyyy-MM-dd HH:mm:ss
}

// TaskUpdateDTO 更新任务，nil字段不修改；DueDate 为空字符串时清空截止日期
type TaskUpdateDTO struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"max=255"`
	Description *string  `json:"description"`
	ModuleID    string   `json:"moduleId"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     *string  `json:"dueDate"`
}

// TaskInterruptDTO 中断原因
type TaskInterruptDTO struct {
	Reason string `json:"reason" validate:"max=512"`
}

// TaskQuery 任务筛选
type TaskQuery struct {
	ModuleID string `form:"moduleId"`
	Status   string `form:"status"`
	PageNum  int    `form:"pageNum"`
	PageSize int    `form:"pageSize"`
}

// ImportItemDTO 导入的一行
type ImportItemDTO struct {
	ModuleName  string   `json:"moduleName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"`
}

// ModuleVO 模块及其统计
type ModuleVO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	SortOrder       int    `json:"sortOrder"`
	TotalTasks      int64  `json:"totalTasks"`
	CompletedTasks  int64  `json:"completedTasks"`
	TotalDurationMs int64  `json:"totalDurationMs"`
}

// TaskVO 任务视图
type TaskVO struct {
	ID               string     `json:"id"`
	ModuleID         string     `json:"moduleId"`
	ModuleName       string     `json:"moduleName,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         Priority   `json:"priority"`
	Tags             []string   `json:"tags"`
	Status           Status     `json:"status"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	ActiveStartAt    *time.Time `json:"activeStartAt,omitempty"`
	PauseStartedAt   *time.Time `json:"pauseStartedAt,omitempty"`
	DurationMs       int64      `json:"durationMs"`
	PausedDurationMs int64      `json:"pausedDurationMs"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// EventVO 事件视图
type EventVO struct {
	ID         string    `json:"id"`
	TodoID     string    `json:"todoId"`
	EventType  EventType `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    string    `json:"payload,omitempty"`
}

// ModuleStat 单模块统计
type ModuleStat struct {
	ModuleID       string `json:"moduleId"`
	ModuleName     string `json:"moduleName,omitempty"`
	TotalTasks     int64  `json:"totalTasks"`
	CompletedTasks int64  `json:"completedTasks"`
	DurationMs     int64  `json:"durationMs"`
}

// DailyStat 单日统计，Date 为 yyyy-MM-dd
type DailyStat struct {
	Date           string `json:"date"`
	CompletedTasks int64  `json:"completedTasks"`
	DurationMs     int64  `json:"durationMs"`
}

// StatsVO 统计概览
type StatsVO struct {
	TotalTasks       int64        `json:"totalTasks"`
	CompletedTasks   int64        `json:"completedTasks"`
	InProgressTasks  int64        `json:"inProgressTasks"`
	InterruptedTasks int64        `json:"interruptedTasks"`
	TotalDurationMs  int64        `json:"totalDurationMs"`
	ModuleStats      []ModuleStat `json:"moduleStats"`
	Timeline         []DailyStat  `json:"timeline"`
}

// ImportResultVO 导入结果
type ImportResultVO struct {
	Total          int      `json:"total"`
	Success        int      `json:"success"`
	Failed         int      `json:"failed"`
	CreatedModules int      `json:"createdModules"`
	Errors         []string `json:"errors"`
}
