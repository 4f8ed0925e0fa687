package todo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/validator"
)

// ListModules 用户的全部模块及任务统计
func (s *Service) ListModules(ctx context.Context, userID string) ([]ModuleVO, error) {
	db := s.db.WithContext(ctx)

	var modules []ModulePO
	if err := db.Where("user_id = ?", userID).Order("sort_order, created_at").Find(&modules).Error; err != nil {
		return nil, errs.Internal("list modules failed", err)
	}

	stats, err := s.moduleStats(db, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	vos := make([]ModuleVO, 0, len(modules))
	for i := range modules {
		vos = append(vos, toModuleVO(&modules[i], stats[modules[i].ID]))
	}
	return vos, nil
}

// CreateModule 创建模块，同一用户下名称不区分大小写唯一
func (s *Service) CreateModule(ctx context.Context, dto *ModuleCreateDTO, userID string) (*ModuleVO, error) {
	if dto == nil || strings.TrimSpace(dto.Name) == "" {
		return nil, errs.BadRequest("module name is required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, errs.Validation(err)
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureModuleNameUnique(db, userID, dto.Name, ""); err != nil {
		return nil, err
	}

	id, err := s.nextID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	module := ModulePO{
		ID:          id,
		UserID:      userID,
		Name:        strings.TrimSpace(dto.Name),
		Description: strings.TrimSpace(dto.Description),
		Status:      ModuleEnabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if dto.Status != "" {
		module.Status = dto.Status
	}
	if dto.SortOrder != nil {
		module.SortOrder = *dto.SortOrder
	}

	if err := db.Create(&module).Error; err != nil {
		return nil, errs.Internal("create module failed", err)
	}
	vo := toModuleVO(&module, nil)
	return &vo, nil
}

// UpdateModule 更新模块，空字段保持不变
func (s *Service) UpdateModule(ctx context.Context, dto *ModuleUpdateDTO, userID string) (*ModuleVO, error) {
	if dto == nil || strings.TrimSpace(dto.ID) == "" {
		return nil, errs.BadRequest("module id is required")
	}
	if err := validator.Check(dto, validator.SceneUpdate); err != nil {
		return nil, errs.Validation(err)
	}

	db := s.db.WithContext(ctx)
	module, err := s.requireModule(db, dto.ID, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(dto.Name); name != "" {
		if err := s.ensureModuleNameUnique(db, userID, name, module.ID); err != nil {
			return nil, err
		}
		module.Name = name
	}
	if dto.Description != nil {
		module.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.SortOrder != nil {
		module.SortOrder = *dto.SortOrder
	}
	if dto.Status != "" {
		module.Status = dto.Status
	}
	module.UpdatedAt = s.now()

	if err := db.Save(module).Error; err != nil {
		return nil, errs.Internal("update module failed", err)
	}

	stats, err := s.moduleStats(db, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	vo := toModuleVO(module, stats[module.ID])
	return &vo, nil
}

// DeleteModule 模块下仍有任务时拒绝删除
func (s *Service) DeleteModule(ctx context.Context, id, userID string) error {
	if strings.TrimSpace(id) == "" {
		return errs.BadRequest("module id is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireModule(tx, id, userID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&TaskPO{}).Where("module_id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return errs.Internal("count module tasks failed", err)
		}
		if count > 0 {
			return errs.BadRequest("module still has tasks")
		}

		if err := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&ModulePO{}).Error; err != nil {
			return errs.Internal("delete module failed", err)
		}
		return nil
	})
}

func (s *Service) ensureModuleNameUnique(tx *gorm.DB, userID, name, excludeID string) error {
	query := tx.Model(&ModulePO{}).Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(strings.TrimSpace(name)))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return errs.Internal("check module name failed", err)
	}
	if count > 0 {
		return errs.BadRequest("module with the same name already exists")
	}
	return nil
}

// findModuleByName 不区分大小写
func (s *Service) findModuleByName(tx *gorm.DB, userID, name string) (*ModulePO, error) {
	var modules []ModulePO
	err := tx.Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).Limit(1).Find(&modules).Error
	if err != nil {
		return nil, errs.Internal("query module failed", err)
	}
	if len(modules) == 0 {
		return nil, nil
	}
	return &modules[0], nil
}

func toModuleVO(m *ModulePO, stat *ModuleStat) ModuleVO {
	vo := ModuleVO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		SortOrder:   m.SortOrder,
	}
	if stat != nil {
		vo.TotalTasks = stat.TotalTasks
		vo.CompletedTasks = stat.CompletedTasks
		vo.TotalDurationMs = stat.DurationMs
	}
	return vo
}
