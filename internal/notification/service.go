// Package notification 站内通知：持久化、WebSocket 实时推送和事件投递。
package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/types"
	"productivity-hub/pkg/validator"
)

// Service 通知服务
type Service struct {
	db     *gorm.DB
	ids    idgen.IDGenerator
	pusher Pusher
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewService pusher、events 可以为nil
func NewService(db *gorm.DB, ids idgen.IDGenerator, pusher Pusher, events EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		db:     db,
		ids:    ids,
		pusher: pusher,
		events: events,
		logger: logger.Named("notification"),
		now:    time.Now,
	}
}

// Publish 写库后推送给用户的web连接，用户为空时忽略；返回通知ID
//
// 推送和事件投递失败只记录日志，不影响通知本身
func (s *Service) Publish(ctx context.Context, dto *PublishDTO) (string, error) {
	if dto == nil || strings.TrimSpace(dto.UserID) == "" {
		return "", nil
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return "", errs.Validation(err)
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return "", errs.Internal("generate id failed", err)
	}
	po := NotificationPO{
		ID:        id,
		UserID:    dto.UserID,
		Title:     dto.Title,
		Content:   dto.Content,
		Link:      dto.Path,
		ExtraData: dto.Extra,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&po).Error; err != nil {
		return "", errs.Internal("save notification failed", err)
	}

	s.push(&po)

	event := &Event{
		ID:        po.ID,
		UserID:    po.UserID,
		Title:     po.Title,
		Content:   po.Content,
		Path:      po.Link,
		Extra:     po.ExtraData,
		CreatedAt: po.CreatedAt,
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("publish notification event failed", zap.String("id", po.ID), zap.Error(err))
	}
	return po.ID, nil
}

func (s *Service) push(po *NotificationPO) {
	if s.pusher == nil {
		return
	}
	message, err := json.Marshal(Payload{
		Type:    TypeNotification,
		ID:      po.ID,
		Title:   po.Title,
		Content: po.Content,
		Path:    po.Link,
		Extra:   po.ExtraData,
	})
	if err != nil {
		s.logger.Warn("marshal notification payload failed", zap.String("id", po.ID), zap.Error(err))
		return
	}
	delivered := s.pusher.SendToUser(po.UserID, ClientWeb, message)
	s.logger.Debug("notification pushed", zap.String("id", po.ID), zap.Int("connections", delivered))
}

// Page 当前用户的通知，新的在前
func (s *Service) Page(ctx context.Context, userID string, pageNum, pageSize int) (*types.PageResult[VO], error) {
	pageNum, pageSize = types.NormalizePage(pageNum, pageSize, types.MaxPageSize)
	db := s.db.WithContext(ctx).Model(&NotificationPO{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, errs.Internal("count notifications failed", err)
	}

	var rows []NotificationPO
	err := db.Order("created_at DESC, id DESC").
		Offset(types.Offset(pageNum, pageSize)).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, errs.Internal("page notifications failed", err)
	}

	items := make([]VO, 0, len(rows))
	for _, po := range rows {
		items = append(items, VO{
			ID:        po.ID,
			Title:     po.Title,
			Content:   po.Content,
			Link:      po.Link,
			Read:      po.ReadFlag,
			CreatedAt: po.CreatedAt,
			Extra:     po.ExtraData,
		})
	}
	return types.NewPageResult(items, total, pageNum, pageSize), nil
}

// MarkRead 只对自己的通知生效，参数为空时忽略
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&NotificationPO{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_flag", true).Error
	if err != nil {
		return errs.Internal("mark notification read failed", err)
	}
	return nil
}

// UnreadCount 未读数量
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&NotificationPO{}).
		Where("user_id = ? AND read_flag = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, errs.Internal("count unread notifications failed", err)
	}
	return count, nil
}
