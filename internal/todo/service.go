// Package todo 待办模块与任务：计时、自动切换、事件流水与统计。
package todo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
)

// Service 待办服务
type Service struct {
	db     *gorm.DB
	ids    idgen.IDGenerator
	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option 服务选项
type Option func(*Service)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation 截止日期和日统计使用的时区
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService 创建待办服务
func NewService(db *gorm.DB, ids idgen.IDGenerator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:     db,
		ids:    ids,
		logger: logger.Named("todo"),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) nextID() (string, error) {
	id, err := s.ids.GenerateID()
	if err != nil {
		return "", errs.Internal("generate id failed", err)
	}
	return id, nil
}

func (s *Service) requireTask(tx *gorm.DB, id, userID string) (*TaskPO, error) {
	var task TaskPO
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("task not found")
	}
	if err != nil {
		return nil, errs.Internal("query task failed", err)
	}
	return &task, nil
}

func (s *Service) requireModule(tx *gorm.DB, id, userID string) (*ModulePO, error) {
	var module ModulePO
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("module not found or access denied")
	}
	if err != nil {
		return nil, errs.Internal("query module failed", err)
	}
	return &module, nil
}

func (s *Service) recordEvent(tx *gorm.DB, todoID, userID string, eventType EventType, at time.Time, payload string) error {
	id, err := s.nextID()
	if err != nil {
		return err
	}
	event := EventPO{
		ID:         id,
		TodoID:     todoID,
		UserID:     userID,
		EventType:  eventType,
		OccurredAt: at,
		Payload:    payload,
		CreatedAt:  at,
	}
	if err := tx.Create(&event).Error; err != nil {
		return errs.Internal("record task event failed", err)
	}
	return nil
}

// parseDueDate 支持 yyyy-MM-dd 和 yyyy-MM-dd HH:mm:ss，只保留日期；格式错误时忽略
func (s *Service) parseDueDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if len(raw) > 10 && raw[10] == ' ' {
		raw = raw[:10]
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
	if err != nil {
		s.logger.Warn("parse due date failed", zap.String("dueDate", raw), zap.Error(err))
		return nil
	}
	return &date
}

// elapsedMs from 至 to 的毫秒数，时钟回拨时为0
func elapsedMs(from, to time.Time) int64 {
	return max(to.Sub(from).Milliseconds(), 0)
}

func accumulateRunning(task *TaskPO, now time.Time) {
	if task.ActiveStartAt == nil {
		return
	}
	task.DurationMs += elapsedMs(*task.ActiveStartAt, now)
	task.ActiveStartAt = nil
}

func accumulatePaused(task *TaskPO, now time.Time) {
	if task.PauseStartedAt == nil {
		return
	}
	task.PausedDurationMs += elapsedMs(*task.PauseStartedAt, now)
	task.PauseStartedAt = nil
}

func (s *Service) toTaskVO(task *TaskPO, moduleName string) TaskVO {
	duration := task.DurationMs
	if task.Status == StatusInProgress && task.ActiveStartAt != nil {
		duration += elapsedMs(*task.ActiveStartAt, s.now())
	}
	tags := []string(task.Tags)
	if tags == nil {
		tags = []string{}
	}
	return TaskVO{
		ID:               task.ID,
		ModuleID:         task.ModuleID,
		ModuleName:       moduleName,
		Title:            task.Title,
		Description:      task.Description,
		Priority:         task.Priority,
		Tags:             tags,
		Status:           task.Status,
		DueDate:          task.DueDate,
		StartedAt:        task.StartedAt,
		EndedAt:          task.EndedAt,
		ActiveStartAt:    task.ActiveStartAt,
		PauseStartedAt:   task.PauseStartedAt,
		DurationMs:       duration,
		PausedDurationMs: task.PausedDurationMs,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

// toTaskVOs 批量查询模块名后转换
func (s *Service) toTaskVOs(tx *gorm.DB, userID string, tasks []TaskPO) ([]TaskVO, error) {
	names, err := s.moduleNames(tx, userID)
	if err != nil {
		return nil, err
	}
	vos := make([]TaskVO, 0, len(tasks))
	for i := range tasks {
		vos = append(vos, s.toTaskVO(&tasks[i], names[tasks[i].ModuleID]))
	}
	return vos, nil
}

func (s *Service) moduleNames(tx *gorm.DB, userID string) (map[string]string, error) {
	var modules []ModulePO
	if err := tx.Select("id", "name").Where("user_id = ?", userID).Find(&modules).Error; err != nil {
		return nil, errs.Internal("query modules failed", err)
	}
	names := make(map[string]string, len(modules))
	for _, m := range modules {
		names[m.ID] = m.Name
	}
	return names, nil
}

// loadTaskVO 重新读取任务并转换
func (s *Service) loadTaskVO(ctx context.Context, id, userID string) (*TaskVO, error) {
	db := s.db.WithContext(ctx)
	task, err := s.requireTask(db, id, userID)
	if err != nil {
		return nil, err
	}
	var name string
	if module, err := s.requireModule(db, task.ModuleID, userID); err == nil {
		name = module.Name
	}
	vo := s.toTaskVO(task, name)
	return &vo, nil
}
