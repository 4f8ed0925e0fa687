package image

import (
	"context"
	"sort"

	"productivity-hub/internal/errs"
)

// hotImageLimit 热门图片数量
const hotImageLimit = 10

// Statistics 用户未删除图片的统计，start/end 按创建时间过滤，可为空
func (s *Service) Statistics(ctx context.Context, userID, start, end string) (*StatisticsVO, error) {
	startAt, err := s.parseTime(start)
	if err != nil {
		return nil, err
	}
	endAt, err := s.parseTime(end)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx).Where("user_id = ? AND status <> ?", userID, StatusDeleted)
	if startAt != nil {
		db = db.Where("created_at >= ?", *startAt)
	}
	if endAt != nil {
		db = db.Where("created_at <= ?", *endAt)
	}
	var rows []ImagePO
	if err := db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, errs.Internal("query image statistics failed", err)
	}

	vo := &StatisticsVO{
		TotalCount:    int64(len(rows)),
		CategoryStats: []CategoryStat{},
		HotImages:     []VO{},
		UploadTrend:   []TrendItem{},
	}
	if len(rows) == 0 {
		return vo, nil
	}

	categories := make(map[string]*CategoryStat)
	var categoryOrder []string
	trend := make(map[string]int64)
	var dates []string

	vo.MinFileSize = rows[0].FileSize
	for i := range rows {
		po := &rows[i]
		vo.TotalSize += po.FileSize
		vo.MaxFileSize = max(vo.MaxFileSize, po.FileSize)
		vo.MinFileSize = min(vo.MinFileSize, po.FileSize)
		vo.AccessStats.TotalAccessCount += po.AccessCount
		vo.AccessStats.MaxAccessCount = max(vo.AccessStats.MaxAccessCount, po.AccessCount)

		stat, ok := categories[po.Category]
		if !ok {
			stat = &CategoryStat{Category: po.Category}
			categories[po.Category] = stat
			categoryOrder = append(categoryOrder, po.Category)
		}
		stat.Count++
		stat.TotalSize += po.FileSize

		date := po.CreatedAt.In(s.loc).Format("2006-01-02")
		if _, ok := trend[date]; !ok {
			dates = append(dates, date)
		}
		trend[date]++
	}
	vo.AverageSize = vo.TotalSize / vo.TotalCount
	vo.AccessStats.AverageAccessCount = vo.AccessStats.TotalAccessCount / vo.TotalCount

	// 分类按数量倒序，数量相同按名称
	for _, name := range categoryOrder {
		vo.CategoryStats = append(vo.CategoryStats, *categories[name])
	}
	sort.SliceStable(vo.CategoryStats, func(i, j int) bool {
		a, b := vo.CategoryStats[i], vo.CategoryStats[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})

	sort.Strings(dates)
	for _, d := range dates {
		vo.UploadTrend = append(vo.UploadTrend, TrendItem{Date: d, Count: trend[d]})
	}

	hot := make([]*ImagePO, 0, len(rows))
	for i := range rows {
		if rows[i].AccessCount > 0 {
			hot = append(hot, &rows[i])
		}
	}
	sort.SliceStable(hot, func(i, j int) bool { return hot[i].AccessCount > hot[j].AccessCount })
	for _, po := range hot[:min(len(hot), hotImageLimit)] {
		vo.HotImages = append(vo.HotImages, *s.toVO(po))
	}
	return vo, nil
}
