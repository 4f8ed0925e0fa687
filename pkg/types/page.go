package types

// 分页默认值
const (
	DefaultPageNum  = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageResult 分页结果
type PageResult[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	PageNum  int   `json:"pageNum"`
	PageSize int   `json:"pageSize"`
}

// NewPageResult items为nil时序列化为空数组
func NewPageResult[T any](items []T, total int64, pageNum, pageSize int) *PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResult[T]{Items: items, Total: total, PageNum: pageNum, PageSize: pageSize}
}

// Pages 总页数
func (p *PageResult[T]) Pages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// NormalizePage 非正数取默认值，pageSize 超过上限时截断；maxSize<=0 表示不限制
func NormalizePage(pageNum, pageSize, maxSize int) (int, int) {
	if pageNum <= 0 {
		pageNum = DefaultPageNum
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	return pageNum, pageSize
}

// Offset 计算偏移量
func Offset(pageNum, pageSize int) int {
	return (pageNum - 1) * pageSize
}
