package image

import "time"

// Status 图片状态
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDeleted  Status = "DELETED"
	StatusArchived Status = "ARCHIVED"
)

// ImagePO 图片元数据，文件本身不在库中
type ImagePO struct {
	ID               string `gorm:"primaryKey;size:32"`
	UserID           string `gorm:"size:64;not null;index:idx_image_user_status"`
	OriginalFilename string `gorm:"size:255"`
	StoredFilename   string `gorm:"size:255"`
	FilePath         string `gorm:"size:512"`
	FileURL          string `gorm:"column:file_url;size:512"`
	FileSize         int64  `gorm:"not null;default:0"`
	FileType         string `gorm:"size:64"`
	FileExtension    string `gorm:"size:16"`
	Width            int
	Height           int
	Category         string     `gorm:"size:64;index"`
	BusinessModule   string     `gorm:"size:64"`
	BusinessID       string     `gorm:"size:64"`
	Description      string     `gorm:"size:512"`
	ThumbnailPath    string     `gorm:"size:512"`
	ThumbnailURL     string     `gorm:"column:thumbnail_url;size:512"`
	ShareToken       *string    `gorm:"size:32;uniqueIndex"`
	ShareExpiresAt   *time.Time
	AccessCount      int64      `gorm:"not null;default:0"`
	Status           Status     `gorm:"size:16;not null;index:idx_image_user_status"`
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (ImagePO) TableName() string { return "image" }

// Models 需要迁移的表
func Models() []any {
	return []any{&ImagePO{}}
}

// CreateDTO 登记已存储的图片
type CreateDTO struct {
	OriginalFilename string `json:"originalFilename" validate:"required,max=255"`
	StoredFilename   string `json:"storedFilename" validate:"max=255"`
	FilePath         string `json:"filePath" validate:"max=512"`
	FileURL          string `json:"fileUrl" validate:"max=512"`
	FileSize         int64  `json:"fileSize" validate:"gte=0"`
	FileType         string `json:"fileType" validate:"max=64"`
	Width            int    `json:"width" validate:"gte=0"`
	Height           int    `json:"height" validate:"gte=0"`
	Category         string `json:"category" validate:"max=64"`
	BusinessModule   string `json:"businessModule" validate:"max=64"`
	BusinessID       string `json:"businessId" validate:"max=64"`
	Description      string `json:"description" validate:"max=512"`
	ThumbnailPath    string `json:"thumbnailPath" validate:"max=512"`
	ThumbnailURL     string `json:"thumbnailUrl" validate:"max=512"`
}

// UpdateDTO 空字符串表示不修改
type UpdateDTO struct {
	Description    string `json:"description" validate:"max=512"`
	BusinessModule string `json:"businessModule" validate:"max=64"`
	BusinessID     string `json:"businessId" validate:"max=64"`
}

// QueryDTO 列表条件，时间格式 yyyy-MM-dd HH:mm:ss
type QueryDTO struct {
	PageNum        int    `json:"pageNum" form:"pageNum"`
	PageSize       int    `json:"pageSize" form:"pageSize"`
	Category       string `json:"category" form:"category"`
	BusinessModule string `json:"businessModule" form:"businessModule"`
	BusinessID     string `json:"businessId" form:"businessId"`
	Keyword        string `json:"keyword" form:"keyword"`
	StartTime      string `json:"startTime" form:"startTime"`
	EndTime        string `json:"endTime" form:"endTime"`
	Status         string `json:"status" form:"status"`
	SortBy         string `json:"sortBy" form:"sortBy"`
	SortOrder      string `json:"sortOrder" form:"sortOrder"`
}

// ShareDTO 创建分享，ExpiresAt 为空表示永久有效
type ShareDTO struct {
	ExpiresAt string `json:"expiresAt"`
}

// VO 图片视图
type VO struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"originalFilename"`
	FileURL          string `json:"fileUrl"`
	FileSize         int64  `json:"fileSize"`
	FileType         string `json:"fileType"`
	FileExtension    string `json:"fileExtension"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Category         string `json:"category"`
	BusinessModule   string `json:"businessModule,omitempty"`
	BusinessID       string `json:"businessId,omitempty"`
	Description      string `json:"description,omitempty"`
	ThumbnailURL     string `json:"thumbnailUrl,omitempty"`
	Shared           bool   `json:"shared"`
	AccessCount      int64  `json:"accessCount"`
	Status           Status `json:"status"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// ShareVO 分享信息
type ShareVO struct {
	ID         string `json:"id"`
	ShareToken string `json:"shareToken"`
	ShareURL   string `json:"shareUrl"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
}

// CategoryStat 分类统计
type CategoryStat struct {
	Category  string `json:"category"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"totalSize"`
}

// AccessStat 访问统计
type AccessStat struct {
	TotalAccessCount   int64 `json:"totalAccessCount"`
	AverageAccessCount int64 `json:"averageAccessCount"`
	MaxAccessCount     int64 `json:"maxAccessCount"`
}

// TrendItem 按日计数
type TrendItem struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatisticsVO 图片统计
type StatisticsVO struct {
	TotalCount    int64          `json:"totalCount"`
	TotalSize     int64          `json:"totalSize"`
	AverageSize   int64          `json:"averageSize"`
	MaxFileSize   int64          `json:"maxFileSize"`
	MinFileSize   int64          `json:"minFileSize"`
	CategoryStats []CategoryStat `json:"categoryStats"`
	AccessStats   AccessStat     `json:"accessStats"`
	HotImages     []VO           `json:"hotImages"`
	UploadTrend   []TrendItem    `json:"uploadTrend"`
}
