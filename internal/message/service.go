// Package message 通过外部渠道（钉钉、SendGrid、Resend）推送消息并记录发送历史。
package message

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/types"
	"productivity-hub/pkg/validator"
)

// RequestIDPrefix 请求ID前缀
const RequestIDPrefix = "req-"

// Service 消息推送服务
type Service struct {
	db       *gorm.DB
	ids      idgen.IDGenerator
	configs  *ConfigStore
	channels map[string]Channel
	logger   *zap.Logger
	now      func() time.Time
}

// DefaultChannels 内置渠道
func DefaultChannels(timeout time.Duration) []Channel {
	client := &http.Client{Timeout: timeout}
	return []Channel{
		NewDingTalk(client),
		NewSendGrid(client, ""),
		NewResend(client, ""),
	}
}

func NewService(db *gorm.DB, ids idgen.IDGenerator, configs *ConfigStore, channels []Channel, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:       db,
		ids:      ids,
		configs:  configs,
		channels: make(map[string]Channel, len(channels)),
		logger:   logger.Named("message"),
		now:      time.Now,
	}
	for _, ch := range channels {
		s.channels[ch.Name()] = ch
	}
	return s
}

// SendMessage 发送消息
//
// 渠道调用失败不返回错误，结果状态为 failed；发送记录保存失败只记日志
func (s *Service) SendMessage(ctx context.Context, dto *SendDTO, userID string) (*SendResponseVO, error) {
	if dto == nil {
		return nil, errs.BadRequest("channel and data are required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, errs.Validation(err)
	}

	channelName := strings.TrimSpace(dto.Channel)
	channel, ok := s.channels[channelName]
	if !ok {
		return nil, errs.Newf(errs.CodeBadRequest, "unsupported channel: %s", dto.Channel)
	}
	cfg, err := s.configs.channelConfig(ctx, channelName, userID, channel.ConfigKeys()...)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return nil, errs.Internal("generate id failed", err)
	}
	requestID := RequestIDPrefix + id
	s.logger.Info("send message", zap.String("requestId", requestID), zap.String("channel", channelName))

	status := StatusSuccess
	response, err := channel.Send(ctx, dto.Data, cfg)
	if err != nil {
		s.logger.Error("send message failed", zap.String("requestId", requestID), zap.Error(err))
		status = StatusFailed
		response = "send failed: " + err.Error()
	}

	s.saveHistory(ctx, &HistoryPO{
		ID:           requestID,
		UserID:       userID,
		Channel:      channelName,
		RequestData:  dto.Data,
		Status:       status,
		ResponseData: response,
		CreatedAt:    s.now(),
	})

	vo := &SendResponseVO{RequestID: requestID, Status: status, Detail: response}
	if status == StatusSuccess {
		vo.Detail = "message delivered"
	}
	return vo, nil
}

// History 用户的发送记录，pageNum 至少为1，pageSize 限制在 1..100
func (s *Service) History(ctx context.Context, pageNum, pageSize int, userID string) (*types.PageResult[HistoryVO], error) {
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize = min(max(pageSize, 1), types.MaxPageSize)

	db := s.db.WithContext(ctx).Model(&HistoryPO{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, errs.Internal("count message history failed", err)
	}

	var rows []HistoryPO
	err := db.Order("created_at DESC, id DESC").
		Offset(types.Offset(pageNum, pageSize)).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, errs.Internal("page message history failed", err)
	}

	items := make([]HistoryVO, 0, len(rows))
	for _, po := range rows {
		request := po.RequestData
		if request == nil {
			request = types.NewExtras(0)
		}
		items = append(items, HistoryVO{
			ID:        po.ID,
			Channel:   po.Channel,
			Status:    po.Status,
			Request:   request,
			Response:  po.ResponseData,
			CreatedAt: po.CreatedAt,
		})
	}
	return types.NewPageResult(items, total, pageNum, pageSize), nil
}

func (s *Service) saveHistory(ctx context.Context, po *HistoryPO) {
	if err := s.db.WithContext(ctx).Create(po).Error; err != nil {
		s.logger.Error("save message history failed",
			zap.String("requestId", po.ID), zap.String("channel", po.Channel), zap.Error(err))
		return
	}
	s.logger.Info("message history saved",
		zap.String("requestId", po.ID), zap.String("channel", po.Channel), zap.String("status", po.Status))
}
