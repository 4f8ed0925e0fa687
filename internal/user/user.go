// Package user 记录访问过系统的用户，供公告推送和阅读统计使用。
package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"productivity-hub/internal/errs"
)

// UserPO 用户目录
type UserPO struct {
	ID         string `gorm:"primaryKey;size:64"`
	Username   string `gorm:"size:128"`
	LastSeenAt time.Time
	CreatedAt  time.Time
}

func (UserPO) TableName() string { return "sys_user" }

// Models 需要迁移的表
func Models() []any {
	return []any{&UserPO{}}
}

// Directory 用户目录
type Directory struct {
	db   *gorm.DB
	seen sync.Map // userID -> struct{}，进程内去重，避免每个请求都写库
	now  func() time.Time
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

// Touch 首次见到用户时写入目录
func (d *Directory) Touch(ctx context.Context, userID, username string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	if _, ok := d.seen.Load(userID); ok {
		return nil
	}

	now := d.now()
	row := UserPO{ID: userID, Username: username, LastSeenAt: now, CreatedAt: now}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "last_seen_at"}),
	}).Create(&row).Error
	if err != nil {
		return errs.Internal("save user failed", err)
	}
	d.seen.Store(userID, struct{}{})
	return nil
}

// ListIDs 全部用户ID
func (d *Directory) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := d.db.WithContext(ctx).Model(&UserPO{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errs.Internal("list users failed", err)
	}
	return ids, nil
}

// Count 用户总数
func (d *Directory) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&UserPO{}).Count(&count).Error; err != nil {
		return 0, errs.Internal("count users failed", err)
	}
	return count, nil
}
