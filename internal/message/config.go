package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
)

// ConfigStore 渠道配置，system 用户读模板，其他用户读自己的配置
type ConfigStore struct {
	db  *gorm.DB
	ids idgen.IDGenerator
	now func() time.Time
}

func NewConfigStore(db *gorm.DB, ids idgen.IDGenerator) *ConfigStore {
	return &ConfigStore{db: db, ids: ids, now: time.Now}
}

// Value 读取配置，不存在时 ok=false
func (s *ConfigStore) Value(ctx context.Context, module, key, userID string) (string, bool, error) {
	if module == "" || key == "" {
		return "", false, errs.BadRequest("config module and key are required")
	}
	if userID == TemplateUser {
		return s.TemplateValue(ctx, module, key)
	}
	if strings.TrimSpace(userID) == "" {
		return "", false, errs.Unauthorized("user is required")
	}

	var po UserConfigPO
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND module = ? AND config_key = ?", userID, module, key).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Internal("query user config failed", err)
	}
	return po.ConfigValue, true, nil
}

// TemplateValue 读取模板配置
func (s *ConfigStore) TemplateValue(ctx context.Context, module, key string) (string, bool, error) {
	var po ConfigItemPO
	err := s.db.WithContext(ctx).
		Where("module = ? AND config_key = ?", module, key).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Internal("query template config failed", err)
	}
	return po.ConfigValue, true, nil
}

// SetTemplate 写入模板配置
func (s *ConfigStore) SetTemplate(ctx context.Context, module, key, value, operator string) error {
	id, err := s.ids.GenerateID()
	if err != nil {
		return errs.Internal("generate id failed", err)
	}
	now := s.now()
	po := ConfigItemPO{ID: id, Module: module, ConfigKey: key, ConfigValue: value, UpdatedBy: operator, CreatedAt: now, UpdatedAt: now}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "module"}, {Name: "config_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_by", "updated_at"}),
	}).Create(&po).Error
	if err != nil {
		return errs.Internal("save template config failed", err)
	}
	return nil
}

// SetUserValue 写入用户配置
func (s *ConfigStore) SetUserValue(ctx context.Context, userID, module, key, value string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Unauthorized("user is required")
	}
	id, err := s.ids.GenerateID()
	if err != nil {
		return errs.Internal("generate id failed", err)
	}
	now := s.now()
	po := UserConfigPO{ID: id, UserID: userID, Module: module, ConfigKey: key, ConfigValue: value, UpdatedBy: userID, CreatedAt: now, UpdatedAt: now}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "module"}, {Name: "config_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_by", "updated_at"}),
	}).Create(&po).Error
	if err != nil {
		return errs.Internal("save user config failed", err)
	}
	return nil
}

// channelConfig 按渠道读取一组配置键，缺失的键不出现在结果中
func (s *ConfigStore) channelConfig(ctx context.Context, channel, userID string, keys ...string) (map[string]string, error) {
	cfg := make(map[string]string, len(keys))
	for _, key := range keys {
		value, ok, err := s.Value(ctx, channel, channel+"."+key, userID)
		if err != nil {
			return nil, err
		}
		if ok {
			cfg[key] = value
		}
	}
	return cfg, nil
}
