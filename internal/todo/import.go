package todo

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
)

// ImportTasks 批量导入，每行独立提交；模块按名称查找，不存在时自动创建
func (s *Service) ImportTasks(ctx context.Context, userID string, items []ImportItemDTO) (*ImportResultVO, error) {
	result := &ImportResultVO{Total: len(items), Errors: []string{}}
	if len(items) == 0 {
		return result, nil
	}

	db := s.db.WithContext(ctx)
	modules := make(map[string]*ModulePO)

	for i, item := range items {
		row := i + 1
		title := strings.TrimSpace(item.Title)
		moduleName := strings.TrimSpace(item.ModuleName)
		if title == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: task title is required", row))
			continue
		}
		if moduleName == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: module name is required", row))
			continue
		}

		var (
			module  *ModulePO
			created bool
		)
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			module, created, err = s.getOrCreateModule(tx, userID, moduleName, modules)
			if err != nil {
				return err
			}
			_, err = s.insertTask(tx, userID, module.ID, title, item.Description, item.Priority, item.Tags, item.DueDate, PayloadImport)
			return err
		})
		if err != nil {
			s.logger.Warn("import task failed", zap.Int("row", row), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: import failed: %s", row, errs.Message(err)))
			continue
		}
		modules[strings.ToLower(moduleName)] = module
		if created {
			result.CreatedModules++
		}
		result.Success++
	}

	result.Failed = result.Total - result.Success
	return result, nil
}

// getOrCreateModule cache 以小写名称为键，只存放已提交的模块
func (s *Service) getOrCreateModule(tx *gorm.DB, userID, name string, cache map[string]*ModulePO) (*ModulePO, bool, error) {
	key := strings.ToLower(name)
	if module, ok := cache[key]; ok {
		return module, false, nil
	}

	module, err := s.findModuleByName(tx, userID, name)
	if err != nil {
		return nil, false, err
	}
	created := false
	if module == nil {
		id, err := s.nextID()
		if err != nil {
			return nil, false, err
		}
		now := s.now()
		module = &ModulePO{
			ID:        id,
			UserID:    userID,
			Name:      name,
			Status:    ModuleEnabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(module).Error; err != nil {
			return nil, false, errs.Internal("create module failed", err)
		}
		created = true
	}
	return module, created, nil
}
