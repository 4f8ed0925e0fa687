// Package image 图片元数据管理、分享链接与访问统计。
package image

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/types"
	"productivity-hub/pkg/validator"
)

const (
	DefaultPageSize = 20
	// DefaultShareBasePath 分享链接前缀，后接令牌
	DefaultShareBasePath = "/api/images/share/"
)

// sortColumns 允许排序的字段
var sortColumns = map[string]string{
	"createTime":  "created_at",
	"updateTime":  "updated_at",
	"fileSize":    "file_size",
	"accessCount": "access_count",
	"filename":    "original_filename",
}

// Service 图片服务
type Service struct {
	db            *gorm.DB
	ids           idgen.IDGenerator
	logger        *zap.Logger
	shareBasePath string
	countAccess   bool
	now           func() time.Time
	loc           *time.Location
	newToken      func() string
}

// Option 服务选项
type Option func(*Service)

// WithShareBasePath 分享链接前缀
func WithShareBasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.shareBasePath = strings.TrimSuffix(path, "/") + "/"
		}
	}
}

// WithAccessStatistics 是否累计访问次数，默认开启
func WithAccessStatistics(enabled bool) Option {
	return func(s *Service) { s.countAccess = enabled }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation 解析和展示时间使用的时区
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(db *gorm.DB, ids idgen.IDGenerator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:            db,
		ids:           ids,
		logger:        logger.Named("image"),
		shareBasePath: DefaultShareBasePath,
		countAccess:   true,
		now:           time.Now,
		loc:           time.Local,
		newToken:      newShareToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 登记图片
func (s *Service) Create(ctx context.Context, dto *CreateDTO, userID string) (*VO, error) {
	if dto == nil {
		return nil, errs.New(errs.CodeInvalidParameter, "image is required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, invalidParameter(err)
	}

	id, err := s.ids.GenerateID()
	if err != nil {
		return nil, errs.Internal("generate id failed", err)
	}
	now := s.now()
	po := ImagePO{
		ID:               id,
		UserID:           userID,
		OriginalFilename: dto.OriginalFilename,
		StoredFilename:   dto.StoredFilename,
		FilePath:         dto.FilePath,
		FileURL:          dto.FileURL,
		FileSize:         dto.FileSize,
		FileType:         dto.FileType,
		FileExtension:    strings.ToLower(strings.TrimPrefix(filepath.Ext(dto.OriginalFilename), ".")),
		Width:            dto.Width,
		Height:           dto.Height,
		Category:         dto.Category,
		BusinessModule:   dto.BusinessModule,
		BusinessID:       dto.BusinessID,
		Description:      dto.Description,
		ThumbnailPath:    dto.ThumbnailPath,
		ThumbnailURL:     dto.ThumbnailURL,
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if po.Category == "" {
		po.Category = "other"
	}
	if err := s.db.WithContext(ctx).Create(&po).Error; err != nil {
		return nil, errs.Wrap(errs.CodeProcessingFailed, "save image failed", err)
	}
	return s.toVO(&po), nil
}

// Get 用户自己的图片
func (s *Service) Get(ctx context.Context, id, userID string) (*VO, error) {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.toVO(po), nil
}

// List 分页查询，pageSize 默认20、最大100，状态默认 ACTIVE
func (s *Service) List(ctx context.Context, q *QueryDTO, userID string) (*types.PageResult[VO], error) {
	if q == nil {
		q = &QueryDTO{}
	}
	pageNum, pageSize := types.NormalizePage(q.PageNum, q.PageSize, types.MaxPageSize)
	if q.PageSize < 1 {
		pageSize = DefaultPageSize
	}

	start, err := s.parseTime(q.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := s.parseTime(q.EndTime)
	if err != nil {
		return nil, err
	}

	status := q.Status
	if status == "" {
		status = string(StatusActive)
	}

	db := s.db.WithContext(ctx).Model(&ImagePO{}).Where("user_id = ? AND status = ?", userID, status)
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.BusinessModule != "" {
		db = db.Where("business_module = ?", q.BusinessModule)
	}
	if q.BusinessID != "" {
		db = db.Where("business_id = ?", q.BusinessID)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		like := "%" + kw + "%"
		db = db.Where("original_filename LIKE ? OR description LIKE ?", like, like)
	}
	if start != nil {
		db = db.Where("created_at >= ?", *start)
	}
	if end != nil {
		db = db.Where("created_at <= ?", *end)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, errs.Internal("count images failed", err)
	}

	var rows []ImagePO
	err = db.Order(orderClause(q.SortBy, q.SortOrder)).
		Offset(types.Offset(pageNum, pageSize)).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, errs.Internal("query images failed", err)
	}

	items := make([]VO, 0, len(rows))
	for i := range rows {
		items = append(items, *s.toVO(&rows[i]))
	}
	return types.NewPageResult(items, total, pageNum, pageSize), nil
}

// Update 修改描述和业务关联
func (s *Service) Update(ctx context.Context, id string, dto *UpdateDTO, userID string) (*VO, error) {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if dto != nil {
		if err := validator.Check(dto, validator.SceneUpdate); err != nil {
			return nil, invalidParameter(err)
		}
		if dto.Description != "" {
			po.Description = dto.Description
		}
		if dto.BusinessModule != "" {
			po.BusinessModule = dto.BusinessModule
		}
		if dto.BusinessID != "" {
			po.BusinessID = dto.BusinessID
		}
	}
	po.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(po).Error; err != nil {
		return nil, errs.Wrap(errs.CodeProcessingFailed, "update image failed", err)
	}
	return s.toVO(po), nil
}

// Delete 软删除，已删除时直接返回
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if po.Status == StatusDeleted {
		return nil
	}
	_, err = s.setStatus(ctx, po, StatusDeleted)
	return err
}

// BatchDelete 批量软删除，返回影响的行数
func (s *Service) BatchDelete(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&ImagePO{}).
		Where("id IN ? AND user_id = ? AND status <> ?", ids, userID, StatusDeleted).
		Updates(map[string]any{"status": StatusDeleted, "updated_at": s.now()})
	if res.Error != nil {
		return 0, errs.Wrap(errs.CodeProcessingFailed, "delete images failed", res.Error)
	}
	return res.RowsAffected, nil
}

// Restore 只能恢复已删除的图片
func (s *Service) Restore(ctx context.Context, id, userID string) (*VO, error) {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if po.Status != StatusDeleted {
		return nil, errs.New(errs.CodeInvalidRestore, "only deleted images can be restored")
	}
	return s.setStatus(ctx, po, StatusActive)
}

// Archive 归档，已归档时直接返回
func (s *Service) Archive(ctx context.Context, id, userID string) (*VO, error) {
	po, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if po.Status == StatusArchived {
		return s.toVO(po), nil
	}
	return s.setStatus(ctx, po, StatusArchived)
}

// AccessByID 访问图片并累计访问次数；userID 为空时不校验归属
func (s *Service) AccessByID(ctx context.Context, id, userID string) (*VO, error) {
	var (
		po  *ImagePO
		err error
	)
	if userID != "" {
		po, err = s.requireOwned(ctx, id, userID)
	} else {
		po, err = s.find(ctx, "id = ?", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.incrementAccess(ctx, po); err != nil {
		return nil, err
	}
	return s.toVO(po), nil
}

func (s *Service) setStatus(ctx context.Context, po *ImagePO, status Status) (*VO, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Model(&ImagePO{}).
		Where("id = ? AND user_id = ?", po.ID, po.UserID).
		Updates(map[string]any{"status": status, "updated_at": now}).Error
	if err != nil {
		return nil, errs.Wrap(errs.CodeProcessingFailed, "update image status failed", err)
	}
	po.Status = status
	po.UpdatedAt = now
	return s.toVO(po), nil
}

func (s *Service) incrementAccess(ctx context.Context, po *ImagePO) error {
	if !s.countAccess {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&ImagePO{}).
		Where("id = ?", po.ID).
		UpdateColumn("access_count", gorm.Expr("access_count + ?", 1)).Error
	if err != nil {
		return errs.Wrap(errs.CodeProcessingFailed, "update access count failed", err)
	}
	po.AccessCount++
	return nil
}

// requireOwned 图片必须属于用户
func (s *Service) requireOwned(ctx context.Context, id, userID string) (*ImagePO, error) {
	return s.find(ctx, "id = ? AND user_id = ?", id, userID)
}

func (s *Service) find(ctx context.Context, query string, args ...any) (*ImagePO, error) {
	var po ImagePO
	err := s.db.WithContext(ctx).Where(query, args...).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.CodeImageNotFound, "image not found")
	}
	if err != nil {
		return nil, errs.Internal("query image failed", err)
	}
	return &po, nil
}

func (s *Service) parseTime(raw string) (*time.Time, error) {
	t, err := types.ParseDateTime(raw, s.loc)
	if err != nil {
		return nil, errs.New(errs.CodeInvalidParameter, err.Error())
	}
	return t, nil
}

// invalidParameter 字段验证错误转为 4004
func invalidParameter(err error) error {
	message := err.Error()
	var fieldErrs validator.Errors
	if errors.As(err, &fieldErrs) {
		message = fieldErrs.First()
	}
	return errs.Wrap(errs.CodeInvalidParameter, message, err)
}

// orderClause 未知字段按创建时间排序
func orderClause(sortBy, sortOrder string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}

func (s *Service) toVO(po *ImagePO) *VO {
	return &VO{
		ID:               po.ID,
		OriginalFilename: po.OriginalFilename,
		FileURL:          po.FileURL,
		FileSize:         po.FileSize,
		FileType:         po.FileType,
		FileExtension:    po.FileExtension,
		Width:            po.Width,
		Height:           po.Height,
		Category:         po.Category,
		BusinessModule:   po.BusinessModule,
		BusinessID:       po.BusinessID,
		Description:      po.Description,
		ThumbnailURL:     po.ThumbnailURL,
		Shared:           po.ShareToken != nil,
		AccessCount:      po.AccessCount,
		Status:           po.Status,
		CreatedAt:        types.FormatDateTime(&po.CreatedAt, s.loc),
		UpdatedAt:        types.FormatDateTime(&po.UpdatedAt, s.loc),
	}
}
