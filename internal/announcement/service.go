// Package announcement 系统公告：草稿、发布、撤回、定时发布、推送和阅读统计。
package announcement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"productivity-hub/internal/errs"
	"productivity-hub/internal/notification"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/types"
	"productivity-hub/pkg/validator"
)

// UserDirectory 推送对象和阅读率分母
type UserDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// Notifier 站内通知
type Notifier interface {
	Publish(ctx context.Context, dto *notification.PublishDTO) (string, error)
}

// Service 公告服务
type Service struct {
	db       *gorm.DB
	ids      idgen.IDGenerator
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option 服务选项
type Option func(*Service)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation 解析和展示时间使用的时区
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(db *gorm.DB, ids idgen.IDGenerator, users UserDirectory, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:       db,
		ids:      ids,
		users:    users,
		notifier: notifier,
		logger:   logger.Named("announcement"),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 新公告为草稿，默认 NORMAL / 优先级0 / LOGIN / 无需确认
func (s *Service) Create(ctx context.Context, dto *CreateDTO, creatorID string) (*VO, error) {
	if dto == nil {
		return nil, errs.BadRequest("announcement is required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, errs.Validation(err)
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return nil, errs.Internal("generate id failed", err)
	}
	now := s.now()
	po := AnnouncementPO{
		ID:           id,
		Title:        dto.Title,
		Content:      dto.Content,
		RichContent:  dto.RichContent,
		Link:         dto.Link,
		Type:         TypeNormal,
		Status:       StatusDraft,
		PushStrategy: PushLogin,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if dto.Type != "" {
		po.Type = Type(dto.Type)
	}
	if dto.Priority != nil {
		po.Priority = *dto.Priority
	}
	if dto.PushStrategy != "" {
		po.PushStrategy = PushStrategy(dto.PushStrategy)
	}
	if dto.RequireConfirm != nil {
		po.RequireConfirm = *dto.RequireConfirm
	}
	if po.EffectiveTime, err = s.parseTime(dto.EffectiveTime); err != nil {
		return nil, err
	}
	if po.ExpireTime, err = s.parseTime(dto.ExpireTime); err != nil {
		return nil, err
	}
	if po.ScheduledTime, err = s.parseTime(dto.ScheduledTime); err != nil {
		return nil, err
	}
	if err := checkSchedule(&po); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&po).Error; err != nil {
		return nil, errs.Internal("create announcement failed", err)
	}
	return s.toVO(&po, nil), nil
}

// Update 部分更新；更新后为 PUBLISHED 且策略为 IMMEDIATE 时推送给全部用户
func (s *Service) Update(ctx context.Context, id string, dto *UpdateDTO) (*VO, error) {
	if dto == nil {
		return nil, errs.BadRequest("announcement is required")
	}
	if err := validator.Check(dto, validator.SceneUpdate); err != nil {
		return nil, errs.Validation(err)
	}

	po, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		po.Title = *dto.Title
	}
	if dto.Content != nil {
		po.Content = *dto.Content
	}
	if dto.RichContent != nil {
		po.RichContent = *dto.RichContent
	}
	if dto.Link != nil {
		po.Link = *dto.Link
	}
	if dto.Type != nil {
		po.Type = Type(*dto.Type)
	}
	if dto.Priority != nil {
		po.Priority = *dto.Priority
	}
	if dto.Status != nil {
		po.Status = Status(*dto.Status)
	}
	if dto.PushStrategy != nil {
		po.PushStrategy = PushStrategy(*dto.PushStrategy)
	}
	if dto.RequireConfirm != nil {
		po.RequireConfirm = *dto.RequireConfirm
	}
	if dto.EffectiveTime != nil {
		if po.EffectiveTime, err = s.parseTime(*dto.EffectiveTime); err != nil {
			return nil, err
		}
	}
	if dto.ExpireTime != nil {
		if po.ExpireTime, err = s.parseTime(*dto.ExpireTime); err != nil {
			return nil, err
		}
	}
	if dto.ScheduledTime != nil {
		if po.ScheduledTime, err = s.parseTime(*dto.ScheduledTime); err != nil {
			return nil, err
		}
	}
	if err := checkSchedule(po); err != nil {
		return nil, err
	}
	po.UpdatedAt = s.now()

	if err := s.db.WithContext(ctx).Save(po).Error; err != nil {
		return nil, errs.Internal("update announcement failed", err)
	}
	if po.Status == StatusPublished && po.PushStrategy == PushImmediate {
		s.pushToAll(ctx, po)
	}
	return s.toVO(po, nil), nil
}

// Delete 删除公告及阅读记录，不存在时忽略
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("announcement_id = ?", id).Delete(&AnnouncementReadPO{}).Error; err != nil {
			return errs.Internal("delete announcement reads failed", err)
		}
		if err := tx.Where("id = ?", id).Delete(&AnnouncementPO{}).Error; err != nil {
			return errs.Internal("delete announcement failed", err)
		}
		return nil
	})
}

// Publish 发布公告，IMMEDIATE 策略立即推送
func (s *Service) Publish(ctx context.Context, id string) (*VO, error) {
	po, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, po); err != nil {
		return nil, err
	}
	if po.PushStrategy == PushImmediate {
		s.pushToAll(ctx, po)
	}
	return s.toVO(po, nil), nil
}

// Withdraw 撤回公告
func (s *Service) Withdraw(ctx context.Context, id string) (*VO, error) {
	po, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}
	po.Status = StatusWithdrawn
	po.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(po).Error; err != nil {
		return nil, errs.Internal("withdraw announcement failed", err)
	}
	return s.toVO(po, nil), nil
}

// Get 单条公告
func (s *Service) Get(ctx context.Context, id string) (*VO, error) {
	po, err := s.require(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toVO(po, nil), nil
}

// Page 分页，status 为空时不过滤
func (s *Service) Page(ctx context.Context, pageNum, pageSize int, status string) (*types.PageResult[VO], error) {
	pageNum, pageSize = types.NormalizePage(pageNum, pageSize, types.MaxPageSize)

	db := s.db.WithContext(ctx).Model(&AnnouncementPO{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, errs.Internal("count announcements failed", err)
	}

	var rows []AnnouncementPO
	err := db.Order("priority DESC, created_at DESC").
		Offset(types.Offset(pageNum, pageSize)).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, errs.Internal("page announcements failed", err)
	}

	items := make([]VO, 0, len(rows))
	for i := range rows {
		items = append(items, *s.toVO(&rows[i], nil))
	}
	return types.NewPageResult(items, total, pageNum, pageSize), nil
}

// Unread 用户未读的、已生效且未过期的已发布公告
func (s *Service) Unread(ctx context.Context, userID string) ([]VO, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	readIDs := db.Model(&AnnouncementReadPO{}).Select("announcement_id").Where("user_id = ?", userID)
	var rows []AnnouncementPO
	err := db.Where("status = ?", StatusPublished).
		Where("effective_time IS NULL OR effective_time <= ?", now).
		Where("expire_time IS NULL OR expire_time > ?", now).
		Where("id NOT IN (?)", readIDs).
		Order("priority DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Internal("query unread announcements failed", err)
	}

	unread := false
	items := make([]VO, 0, len(rows))
	for i := range rows {
		items = append(items, *s.toVO(&rows[i], &unread))
	}
	return items, nil
}

// MarkRead 记录阅读，重复调用无副作用
func (s *Service) MarkRead(ctx context.Context, announcementID, userID string) error {
	if userID == "" {
		return errs.Unauthorized("user is required")
	}
	if _, err := s.require(ctx, announcementID); err != nil {
		return err
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return errs.Internal("generate id failed", err)
	}
	read := AnnouncementReadPO{ID: id, AnnouncementID: announcementID, UserID: userID, ReadAt: s.now()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "announcement_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(&read).Error
	if err != nil {
		return errs.Internal("mark announcement read failed", err)
	}
	return nil
}

// Stats 阅读率 = 已读用户 * 100 / 用户总数，无用户时为0
func (s *Service) Stats(ctx context.Context, announcementID string) (*StatsVO, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	var read int64
	err = s.db.WithContext(ctx).Model(&AnnouncementReadPO{}).
		Where("announcement_id = ?", announcementID).
		Count(&read).Error
	if err != nil {
		return nil, errs.Internal("count announcement reads failed", err)
	}

	stats := &StatsVO{AnnouncementID: announcementID, TotalUsers: total, ReadUsers: read}
	if total > 0 {
		stats.ReadRate = float64(read) * 100 / float64(total)
	}
	return stats, nil
}

// PublishDue 发布计划时间已到的 SCHEDULED 草稿，返回发布数量
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	var due []AnnouncementPO
	err := s.db.WithContext(ctx).
		Where("status = ? AND push_strategy = ? AND scheduled_time IS NOT NULL AND scheduled_time <= ?",
			StatusDraft, PushScheduled, s.now()).
		Order("scheduled_time").
		Find(&due).Error
	if err != nil {
		return 0, errs.Internal("query scheduled announcements failed", err)
	}

	published := 0
	for i := range due {
		if err := s.publish(ctx, &due[i]); err != nil {
			s.logger.Error("publish scheduled announcement failed", zap.String("id", due[i].ID), zap.Error(err))
			continue
		}
		s.pushToAll(ctx, &due[i])
		published++
	}
	return published, nil
}

// RunScheduler 按间隔执行 PublishDue，直到ctx取消
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PublishDue(ctx)
			if err != nil {
				s.logger.Error("scheduled publish failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("scheduled announcements published", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) publish(ctx context.Context, po *AnnouncementPO) error {
	po.Status = StatusPublished
	po.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(po).Error; err != nil {
		return errs.Internal("publish announcement failed", err)
	}
	return nil
}

// pushToAll 逐个用户发通知，单个失败不中断
func (s *Service) pushToAll(ctx context.Context, po *AnnouncementPO) int {
	if s.notifier == nil || s.users == nil {
		return 0
	}
	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		s.logger.Error("list users for push failed", zap.String("id", po.ID), zap.Error(err))
		return 0
	}

	pushed := 0
	for _, userID := range userIDs {
		_, err := s.notifier.Publish(ctx, &notification.PublishDTO{
			UserID:  userID,
			Title:   po.Title,
			Content: po.Content,
			Path:    po.Link,
			Extra:   types.Extras{"announcementId": po.ID, "type": string(po.Type)},
		})
		if err != nil {
			s.logger.Warn("push announcement failed", zap.String("id", po.ID), zap.String("userId", userID), zap.Error(err))
			continue
		}
		pushed++
	}
	s.logger.Info("announcement pushed", zap.String("id", po.ID), zap.Int("users", pushed))
	return pushed
}

func (s *Service) require(ctx context.Context, id string) (*AnnouncementPO, error) {
	var po AnnouncementPO
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("announcement not found")
	}
	if err != nil {
		return nil, errs.Internal("query announcement failed", err)
	}
	return &po, nil
}

func (s *Service) parseTime(raw string) (*time.Time, error) {
	t, err := types.ParseDateTime(raw, s.loc)
	if err != nil {
		return nil, errs.BadRequest(err.Error())
	}
	return t, nil
}

// checkSchedule 过期时间须晚于生效时间，定时推送必须有计划时间
func checkSchedule(po *AnnouncementPO) error {
	if po.EffectiveTime != nil && po.ExpireTime != nil && !po.ExpireTime.After(*po.EffectiveTime) {
		return errs.BadRequest("expire time must be after effective time")
	}
	if po.PushStrategy == PushScheduled && po.ScheduledTime == nil {
		return errs.BadRequest("scheduled time is required for SCHEDULED push strategy")
	}
	return nil
}

func (s *Service) toVO(po *AnnouncementPO, read *bool) *VO {
	return &VO{
		ID:             po.ID,
		Title:          po.Title,
		Content:        po.Content,
		RichContent:    po.RichContent,
		Link:           po.Link,
		Type:           po.Type,
		Priority:       po.Priority,
		Status:         po.Status,
		PushStrategy:   po.PushStrategy,
		RequireConfirm: po.RequireConfirm,
		EffectiveTime:  types.FormatDateTime(po.EffectiveTime, s.loc),
		ExpireTime:     types.FormatDateTime(po.ExpireTime, s.loc),
		ScheduledTime:  types.FormatDateTime(po.ScheduledTime, s.loc),
		CreatedAt:      types.FormatDateTime(&po.CreatedAt, s.loc),
		UpdatedAt:      types.FormatDateTime(&po.UpdatedAt, s.loc),
		Read:           read,
	}
}
