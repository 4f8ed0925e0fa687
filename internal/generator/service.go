// Package generator 按业务模块分配worker/datacenter并生成ID。
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/idgen/registry"
	"productivity-hub/pkg/idgen/snowflake"
)

var ErrModuleKeyEmpty = errs.BadRequest("module key is empty")

// IDSource 按组合生成ID，由 idgen.Service 实现
type IDSource interface {
	GeneratorID(workerID, datacenterID int64) (string, error)
}

var _ IDSource = (*idgen.Service)(nil)

// Service 基于数据库配置的ID生成
type Service struct {
	db     *gorm.DB
	cache  Cache
	ids    IDSource
	logger *zap.Logger
}

// NewService cache为nil时使用进程内缓存
func NewService(db *gorm.DB, cache Cache, ids IDSource, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cache: cache, ids: ids, logger: logger.Named("generator")}
}

// GeneratorID 按模块配置生成ID
//
// 查找顺序：缓存 -> id_generator_info 中 NORMAL 的第一行 -> 默认 0/0
func (s *Service) GeneratorID(ctx context.Context, moduleKey string) (string, error) {
	info, err := s.Resolve(ctx, moduleKey)
	if err != nil {
		return "", err
	}
	return s.ids.GeneratorID(info.WorkerID, info.DatacenterID)
}

// Resolve 解析模块对应的worker/datacenter，未配置时返回默认组合
func (s *Service) Resolve(ctx context.Context, moduleKey string) (*IdGeneratorInfoPO, error) {
	moduleKey = strings.TrimSpace(moduleKey)
	if moduleKey == "" {
		return nil, ErrModuleKeyEmpty
	}

	cached, ok, err := s.cache.Get(ctx, moduleKey)
	if err != nil {
		s.logger.Warn("read module cache failed", zap.String("moduleKey", moduleKey), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	var info IdGeneratorInfoPO
	err = s.db.WithContext(ctx).
		Where("module_key = ? AND status = ?", moduleKey, StatusNormal).
		Order("id").
		First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &IdGeneratorInfoPO{
			ModuleKey:    moduleKey,
			WorkerID:     registry.DefaultWorkerID,
			DatacenterID: registry.DefaultDatacenterID,
			Status:       StatusNormal,
		}, nil
	}
	if err != nil {
		return nil, errs.Internal("query id generator info failed", err)
	}

	if err := s.cache.Set(ctx, moduleKey, &info); err != nil {
		s.logger.Warn("write module cache failed", zap.String("moduleKey", moduleKey), zap.Error(err))
	}
	return &info, nil
}

// Register 为模块分配worker/datacenter，已有NORMAL配置时覆盖
func (s *Service) Register(ctx context.Context, moduleKey string, workerID, datacenterID int64, remark string) (*IdGeneratorInfoPO, error) {
	moduleKey = strings.TrimSpace(moduleKey)
	if moduleKey == "" {
		return nil, ErrModuleKeyEmpty
	}
	if workerID < 0 || workerID > snowflake.MaxWorkerID {
		return nil, errs.Newf(errs.CodeBadRequest, "worker id must be between 0 and %d", snowflake.MaxWorkerID)
	}
	if datacenterID < 0 || datacenterID > snowflake.MaxDatacenterID {
		return nil, errs.Newf(errs.CodeBadRequest, "datacenter id must be between 0 and %d", snowflake.MaxDatacenterID)
	}

	var info IdGeneratorInfoPO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("module_key = ? AND status = ?", moduleKey, StatusNormal).Order("id").First(&info).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			info = IdGeneratorInfoPO{ModuleKey: moduleKey, Status: StatusNormal}
		case err != nil:
			return err
		}
		info.WorkerID = workerID
		info.DatacenterID = datacenterID
		info.Remark = remark
		return tx.Save(&info).Error
	})
	if err != nil {
		return nil, errs.Internal("save id generator info failed", err)
	}

	s.evict(ctx, moduleKey)
	s.logger.Info("module registered",
		zap.String("moduleKey", moduleKey),
		zap.Int64("workerId", workerID),
		zap.Int64("datacenterId", datacenterID))
	return &info, nil
}

// Disable 停用模块配置，之后回落到默认组合
func (s *Service) Disable(ctx context.Context, moduleKey string) error {
	moduleKey = strings.TrimSpace(moduleKey)
	if moduleKey == "" {
		return ErrModuleKeyEmpty
	}

	res := s.db.WithContext(ctx).Model(&IdGeneratorInfoPO{}).
		Where("module_key = ? AND status = ?", moduleKey, StatusNormal).
		Update("status", StatusDisabled)
	if res.Error != nil {
		return errs.Internal("disable id generator info failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound(fmt.Sprintf("module %q not registered", moduleKey))
	}

	s.evict(ctx, moduleKey)
	return nil
}

// List 全部模块配置
func (s *Service) List(ctx context.Context) ([]IdGeneratorInfoPO, error) {
	var list []IdGeneratorInfoPO
	if err := s.db.WithContext(ctx).Order("module_key, id").Find(&list).Error; err != nil {
		return nil, errs.Internal("list id generator info failed", err)
	}
	return list, nil
}

func (s *Service) evict(ctx context.Context, moduleKey string) {
	if err := s.cache.Delete(ctx, moduleKey); err != nil {
		s.logger.Warn("evict module cache failed", zap.String("moduleKey", moduleKey), zap.Error(err))
	}
}
