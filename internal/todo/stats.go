package todo

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"productivity-hub/internal/errs"
)

// Stats 统计概览
//
// 状态计数覆盖全部任务；时长、模块统计按 last_event_at 落在 [start, end] 内的任务计算，
// 日统计按结束时间归入 start..end 内的自然日。start/end 为nil表示不限制。
func (s *Service) Stats(ctx context.Context, userID string, start, end *time.Time) (*StatsVO, error) {
	db := s.db.WithContext(ctx)

	type statusCount struct {
		Status Status
		Count  int64
	}
	var counts []statusCount
	err := db.Model(&TaskPO{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, errs.Internal("count tasks failed", err)
	}

	vo := &StatsVO{ModuleStats: []ModuleStat{}, Timeline: []DailyStat{}}
	for _, c := range counts {
		vo.TotalTasks += c.Count
		switch c.Status {
		case StatusCompleted:
			vo.CompletedTasks = c.Count
		case StatusInProgress:
			vo.InProgressTasks = c.Count
		case StatusInterrupted:
			vo.InterruptedTasks = c.Count
		}
	}

	stats, err := s.moduleStats(db, userID, start, end)
	if err != nil {
		return nil, err
	}
	for _, stat := range stats {
		vo.TotalDurationMs += stat.DurationMs
		vo.ModuleStats = append(vo.ModuleStats, *stat)
	}
	sort.Slice(vo.ModuleStats, func(i, j int) bool {
		if vo.ModuleStats[i].DurationMs != vo.ModuleStats[j].DurationMs {
			return vo.ModuleStats[i].DurationMs > vo.ModuleStats[j].DurationMs
		}
		return vo.ModuleStats[i].ModuleName < vo.ModuleStats[j].ModuleName
	})

	vo.Timeline, err = s.dailyStats(db, userID, start, end)
	if err != nil {
		return nil, err
	}
	return vo, nil
}

// moduleStats 按模块聚合任务数、完成数和时长
func (s *Service) moduleStats(tx *gorm.DB, userID string, start, end *time.Time) (map[string]*ModuleStat, error) {
	query := tx.Model(&TaskPO{}).Where("user_id = ?", userID)
	if start != nil {
		query = query.Where("last_event_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("last_event_at <= ?", *end)
	}

	var tasks []TaskPO
	if err := query.Select("module_id", "status", "duration_ms").Find(&tasks).Error; err != nil {
		return nil, errs.Internal("aggregate module stats failed", err)
	}

	names, err := s.moduleNames(tx, userID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*ModuleStat)
	for _, t := range tasks {
		stat, ok := stats[t.ModuleID]
		if !ok {
			stat = &ModuleStat{ModuleID: t.ModuleID, ModuleName: names[t.ModuleID]}
			stats[t.ModuleID] = stat
		}
		stat.TotalTasks++
		if t.Status == StatusCompleted {
			stat.CompletedTasks++
		}
		stat.DurationMs += t.DurationMs
	}
	return stats, nil
}

// dailyStats 按结束日期聚合，日期升序
func (s *Service) dailyStats(tx *gorm.DB, userID string, start, end *time.Time) ([]DailyStat, error) {
	query := tx.Model(&TaskPO{}).
		Where("user_id = ? AND ended_at IS NOT NULL", userID)
	if start != nil {
		query = query.Where("ended_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("ended_at <= ?", *end)
	}

	var tasks []TaskPO
	if err := query.Select("status", "ended_at", "duration_ms").Find(&tasks).Error; err != nil {
		return nil, errs.Internal("aggregate daily stats failed", err)
	}

	byDate := make(map[string]*DailyStat)
	for _, t := range tasks {
		date := t.EndedAt.In(s.loc).Format(time.DateOnly)
		stat, ok := byDate[date]
		if !ok {
			stat = &DailyStat{Date: date}
			byDate[date] = stat
		}
		if t.Status == StatusCompleted {
			stat.CompletedTasks++
		}
		stat.DurationMs += t.DurationMs
	}

	timeline := make([]DailyStat, 0, len(byDate))
	for _, stat := range byDate {
		timeline = append(timeline, *stat)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Date < timeline[j].Date })
	return timeline, nil
}
