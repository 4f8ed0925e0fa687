package image

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/types"
)

// newShareToken 去掉连字符的UUID
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateShare 生成分享链接，已有分享时替换令牌
//
// 图片须属于用户且未删除；过期时间早于当前时间时返回 4004
func (s *Service) CreateShare(ctx context.Context, id string, dto *ShareDTO, userID string) (*ShareVO, error) {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if po.Status == StatusDeleted {
		return nil, errs.New(errs.CodeImageDeleted, "image has been deleted")
	}

	var raw string
	if dto != nil {
		raw = strings.TrimSpace(dto.ExpiresAt)
	}
	expiresAt, err := s.parseTime(raw)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if expiresAt != nil && expiresAt.Before(now) {
		return nil, errs.New(errs.CodeInvalidParameter, "expiresAt must not be earlier than now")
	}

	token := s.newToken()
	res := s.db.WithContext(ctx).Model(&ImagePO{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"share_token": token, "share_expires_at": expiresAt, "updated_at": now})
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, errs.Wrap(errs.CodeProcessingFailed, "create share link failed", res.Error)
	}
	s.logger.Info("image shared", zap.String("id", id), zap.String("userId", userID))

	po.ShareToken, po.ShareExpiresAt = &token, expiresAt
	return s.toShareVO(po), nil
}

// CancelShare 清除分享令牌
func (s *Service) CancelShare(ctx context.Context, id, userID string) error {
	if _, err := s.requireOwned(ctx, id, userID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&ImagePO{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"share_token": nil, "share_expires_at": nil, "updated_at": s.now()})
	if res.Error != nil || res.RowsAffected == 0 {
		return errs.Wrap(errs.CodeProcessingFailed, "cancel share failed", res.Error)
	}
	return nil
}

// ShareInfo 按令牌查询分享，不存在或已过期返回 4042
func (s *Service) ShareInfo(ctx context.Context, token string) (*ShareVO, error) {
	po, err := s.findShared(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.toShareVO(po), nil
}

// AccessByShareToken 通过分享链接访问并累计访问次数
func (s *Service) AccessByShareToken(ctx context.Context, token string) (*VO, error) {
	po, err := s.findShared(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.incrementAccess(ctx, po); err != nil {
		return nil, err
	}
	return s.toVO(po), nil
}

func (s *Service) findShared(ctx context.Context, token string) (*ImagePO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.New(errs.CodeInvalidParameter, "share token is required")
	}
	po, err := s.find(ctx, "share_token = ? AND status <> ?", token, StatusDeleted)
	if errs.Code(err) == errs.CodeImageNotFound {
		return nil, errs.New(errs.CodeShareNotFound, "share link not found or expired")
	}
	if err != nil {
		return nil, err
	}
	if po.ShareExpiresAt != nil && po.ShareExpiresAt.Before(s.now()) {
		return nil, errs.New(errs.CodeShareNotFound, "share link has expired")
	}
	return po, nil
}

func (s *Service) toShareVO(po *ImagePO) *ShareVO {
	vo := &ShareVO{ID: po.ID, ExpiresAt: types.FormatDateTime(po.ShareExpiresAt, s.loc)}
	if po.ShareToken != nil {
		vo.ShareToken = *po.ShareToken
		vo.ShareURL = s.shareBasePath + *po.ShareToken
	}
	return vo
}
