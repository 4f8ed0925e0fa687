package todo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/types"
	"productivity-hub/pkg/validator"
)

func (s *Service) taskQuery(ctx context.Context, userID string, q TaskQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&TaskPO{}).Where("user_id = ?", userID)
	if q.ModuleID != "" {
		db = db.Where("module_id = ?", q.ModuleID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", strings.ToUpper(q.Status))
	}
	return db
}

// ListTasks 按模块和状态筛选
func (s *Service) ListTasks(ctx context.Context, userID string, q TaskQuery) ([]TaskVO, error) {
	var tasks []TaskPO
	if err := s.taskQuery(ctx, userID, q).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, errs.Internal("list tasks failed", err)
	}
	return s.toTaskVOs(s.db.WithContext(ctx), userID, tasks)
}

// PageTasks 分页查询
func (s *Service) PageTasks(ctx context.Context, userID string, q TaskQuery) (*types.PageResult[TaskVO], error) {
	pageNum, pageSize := types.NormalizePage(q.PageNum, q.PageSize, types.MaxPageSize)

	var total int64
	if err := s.taskQuery(ctx, userID, q).Count(&total).Error; err != nil {
		return nil, errs.Internal("count tasks failed", err)
	}

	var tasks []TaskPO
	err := s.taskQuery(ctx, userID, q).
		Order("created_at DESC, id DESC").
		Offset(types.Offset(pageNum, pageSize)).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, errs.Internal("page tasks failed", err)
	}

	vos, err := s.toTaskVOs(s.db.WithContext(ctx), userID, tasks)
	if err != nil {
		return nil, err
	}
	return types.NewPageResult(vos, total, pageNum, pageSize), nil
}

// GetTask 单个任务
func (s *Service) GetTask(ctx context.Context, id, userID string) (*TaskVO, error) {
	return s.loadTaskVO(ctx, id, userID)
}

// CreateTask 创建待开始的任务
func (s *Service) CreateTask(ctx context.Context, dto *TaskCreateDTO, userID string) (*TaskVO, error) {
	if dto == nil || strings.TrimSpace(dto.Title) == "" {
		return nil, errs.BadRequest("task title is required")
	}
	if strings.TrimSpace(dto.ModuleID) == "" {
		return nil, errs.BadRequest("module is required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, errs.Validation(err)
	}

	var taskID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, err := s.requireModule(tx, dto.ModuleID, userID)
		if err != nil {
			return err
		}
		task, err := s.insertTask(tx, userID, module.ID, dto.Title, dto.Description, dto.Priority, dto.Tags, dto.DueDate, "")
		if err != nil {
			return err
		}
		taskID = task.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, taskID, userID)
}

// insertTask 写入任务和 CREATE 事件
func (s *Service) insertTask(tx *gorm.DB, userID, moduleID, title, description, priority string, tags []string, dueDate, payload string) (*TaskPO, error) {
	id, err := s.nextID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	task := TaskPO{
		ID:          id,
		UserID:      userID,
		ModuleID:    moduleID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Priority:    NormalizePriority(priority),
		Tags:        types.NormalizeStrings(tags),
		Status:      StatusPending,
		DueDate:     s.parseDueDate(dueDate),
		LastEventAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Create(&task).Error; err != nil {
		return nil, errs.Internal("create task failed", err)
	}
	if err := s.recordEvent(tx, task.ID, userID, EventCreate, now, payload); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask 进行中的任务需先暂停或完成
func (s *Service) UpdateTask(ctx context.Context, dto *TaskUpdateDTO, userID string) (*TaskVO, error) {
	if dto == nil || strings.TrimSpace(dto.ID) == "" {
		return nil, errs.BadRequest("task id is required")
	}
	if err := validator.Check(dto, validator.SceneUpdate); err != nil {
		return nil, errs.Validation(err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.requireTask(tx, dto.ID, userID)
		if err != nil {
			return err
		}
		if task.Status == StatusInProgress {
			return errs.BadRequest("pause or complete the running task before editing")
		}

		if title := strings.TrimSpace(dto.Title); title != "" {
			task.Title = title
		}
		if dto.Description != nil {
			task.Description = strings.TrimSpace(*dto.Description)
		}
		if moduleID := strings.TrimSpace(dto.ModuleID); moduleID != "" {
			module, err := s.requireModule(tx, moduleID, userID)
			if err != nil {
				return err
			}
			task.ModuleID = module.ID
		}
		if strings.TrimSpace(dto.Priority) != "" {
			task.Priority = NormalizePriority(dto.Priority)
		}
		if dto.Tags != nil {
			task.Tags = types.NormalizeStrings(dto.Tags)
		}
		if dto.DueDate != nil {
			task.DueDate = s.parseDueDate(*dto.DueDate)
		}
		task.UpdatedAt = s.now()

		if err := tx.Save(task).Error; err != nil {
			return errs.Internal("update task failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, dto.ID, userID)
}

// DeleteTask 进行中的任务不能删除
func (s *Service) DeleteTask(ctx context.Context, id, userID string) error {
	return s.BatchDeleteTasks(ctx, []string{id}, userID)
}

// BatchDeleteTasks 任一任务不存在或进行中时整体失败
func (s *Service) BatchDeleteTasks(ctx context.Context, ids []string, userID string) error {
	ids = types.NormalizeStrings(ids)
	if len(ids) == 0 {
		return errs.BadRequest("task ids are required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			task, err := s.requireTask(tx, id, userID)
			if err != nil {
				return err
			}
			if task.Status == StatusInProgress {
				return errs.Newf(errs.CodeBadRequest, "task %q is in progress, pause or complete it first", task.Title)
			}
		}

		if err := tx.Where("id IN ? AND user_id = ?", []string(ids), userID).Delete(&TaskPO{}).Error; err != nil {
			return errs.Internal("delete tasks failed", err)
		}
		if err := tx.Where("todo_id IN ? AND user_id = ?", []string(ids), userID).Delete(&EventPO{}).Error; err != nil {
			return errs.Internal("delete task events failed", err)
		}
		return nil
	})
}

// StartTask 开始或继续任务，其它进行中的任务会被自动暂停
func (s *Service) StartTask(ctx context.Context, id, userID string) (*TaskVO, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.requireTask(tx, id, userID)
		if err != nil {
			return err
		}
		previous := ParseStatus(string(task.Status))
		if !previous.CanStart() {
			return errs.BadRequest("task status does not allow start")
		}

		now := s.now()
		if err := s.pauseOtherRunning(tx, userID, id, now); err != nil {
			return err
		}

		// 步骤1：结算暂停时长
		accumulatePaused(task, now)
		// 步骤2：首次开始记录开始时间
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		task.ActiveStartAt = &now
		task.EndedAt = nil
		task.Status = StatusInProgress
		task.LastEventAt = &now
		task.UpdatedAt = now
		if err := tx.Save(task).Error; err != nil {
			return errs.Internal("start task failed", err)
		}

		eventType := EventStart
		if previous == StatusPaused {
			eventType = EventResume
		}
		return s.recordEvent(tx, task.ID, userID, eventType, now, "")
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, id, userID)
}

// ResumeTask 等同于 StartTask
func (s *Service) ResumeTask(ctx context.Context, id, userID string) (*TaskVO, error) {
	return s.StartTask(ctx, id, userID)
}

// PauseTask 只有进行中的任务可以暂停，system 标记系统触发
func (s *Service) PauseTask(ctx context.Context, id, userID string, system bool) (*TaskVO, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.requireTask(tx, id, userID)
		if err != nil {
			return err
		}
		if task.Status != StatusInProgress {
			return errs.BadRequest("only running tasks can be paused")
		}

		now := s.now()
		if err := s.pause(tx, task, now); err != nil {
			return err
		}
		payload := ""
		if system {
			payload = PayloadSystemAuto
		}
		return s.recordEvent(tx, task.ID, userID, EventPause, now, payload)
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, id, userID)
}

// CompleteTask 完成任务，重复完成直接返回
func (s *Service) CompleteTask(ctx context.Context, id, userID string) (*TaskVO, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.requireTask(tx, id, userID)
		if err != nil {
			return err
		}
		if task.Status == StatusCompleted {
			return nil
		}
		now := s.now()
		if err := s.finish(tx, task, StatusCompleted, now); err != nil {
			return err
		}
		return s.recordEvent(tx, task.ID, userID, EventComplete, now, "")
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, id, userID)
}

// InterruptTask 已完成的任务不能中断，原因写入事件附加信息
func (s *Service) InterruptTask(ctx context.Context, id, userID string, dto *TaskInterruptDTO, system bool) (*TaskVO, error) {
	if dto != nil {
		if err := validator.Check(dto, validator.SceneUpdate); err != nil {
			return nil, errs.Validation(err)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.requireTask(tx, id, userID)
		if err != nil {
			return err
		}
		if task.Status == StatusCompleted {
			return errs.BadRequest("completed task cannot be interrupted")
		}

		now := s.now()
		if err := s.finish(tx, task, StatusInterrupted, now); err != nil {
			return err
		}

		eventType := EventInterrupt
		if system {
			eventType = EventSystemInterrupt
		}
		var reason string
		if dto != nil {
			reason = strings.TrimSpace(dto.Reason)
		}
		return s.recordEvent(tx, task.ID, userID, eventType, now, reason)
	})
	if err != nil {
		return nil, err
	}
	return s.loadTaskVO(ctx, id, userID)
}

// ActiveTask 当前进行中的任务，没有时返回nil
func (s *Service) ActiveTask(ctx context.Context, userID string) (*TaskVO, error) {
	db := s.db.WithContext(ctx)

	var task TaskPO
	err := db.Where("user_id = ? AND status = ?", userID, StatusInProgress).Order("active_start_at DESC").First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Internal("query active task failed", err)
	}

	vos, err := s.toTaskVOs(db, userID, []TaskPO{task})
	if err != nil {
		return nil, err
	}
	return &vos[0], nil
}

// ListEvents 任务事件，按发生时间升序
func (s *Service) ListEvents(ctx context.Context, todoID, userID string) ([]EventVO, error) {
	var events []EventPO
	err := s.db.WithContext(ctx).
		Where("todo_id = ? AND user_id = ?", todoID, userID).
		Order("occurred_at, created_at, id").
		Find(&events).Error
	if err != nil {
		return nil, errs.Internal("list task events failed", err)
	}

	vos := make([]EventVO, 0, len(events))
	for _, e := range events {
		vos = append(vos, EventVO{
			ID:         e.ID,
			TodoID:     e.TodoID,
			EventType:  e.EventType,
			OccurredAt: e.OccurredAt,
			Payload:    e.Payload,
		})
	}
	return vos, nil
}

func (s *Service) pause(tx *gorm.DB, task *TaskPO, now time.Time) error {
	accumulateRunning(task, now)
	task.PauseStartedAt = &now
	task.Status = StatusPaused
	task.LastEventAt = &now
	task.UpdatedAt = now
	if err := tx.Save(task).Error; err != nil {
		return errs.Internal("pause task failed", err)
	}
	return nil
}

// pauseOtherRunning 同一时间只保留一个进行中的任务
func (s *Service) pauseOtherRunning(tx *gorm.DB, userID, excludeID string, now time.Time) error {
	var running []TaskPO
	if err := tx.Where("user_id = ? AND status = ? AND id <> ?", userID, StatusInProgress, excludeID).Find(&running).Error; err != nil {
		return errs.Internal("query running tasks failed", err)
	}
	for i := range running {
		if err := s.pause(tx, &running[i], now); err != nil {
			return err
		}
		if err := s.recordEvent(tx, running[i].ID, userID, EventPause, now, PayloadAutoSwitch); err != nil {
			return err
		}
	}
	return nil
}

// finish 结算运行和暂停时长并进入终态
func (s *Service) finish(tx *gorm.DB, task *TaskPO, status Status, now time.Time) error {
	accumulateRunning(task, now)
	accumulatePaused(task, now)
	task.Status = status
	task.EndedAt = &now
	task.LastEventAt = &now
	task.UpdatedAt = now
	if err := tx.Save(task).Error; err != nil {
		return errs.Internal("update task status failed", err)
	}
	return nil
}
