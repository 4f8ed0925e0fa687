// Package monitor 采集系统与请求指标，按规则触发告警并通知管理员。
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"productivity-hub/internal/errs"
	"productivity-hub/internal/notification"
	"productivity-hub/pkg/validator"
)

const (
	DefaultAlertUser   = "admin"
	DefaultAlertDedupe = 5 * time.Minute
	AlertPath          = "/monitor/alerts"

	// equalTolerance == 运算的容差
	equalTolerance = 0.01
)

// Notifier 告警通知
type Notifier interface {
	Publish(ctx context.Context, dto *notification.PublishDTO) (string, error)
}

// DefaultRules 内置规则
func DefaultRules() []AlertRulePO {
	return []AlertRulePO{
		{ID: "rule_cpu_usage", MetricName: MetricCPUUsage, Threshold: 80, Operator: ">", Level: LevelWarn, Enabled: true, MessageTemplate: "CPU usage too high: {value}%"},
		{ID: "rule_memory_usage", MetricName: MetricMemoryUsage, Threshold: 85, Operator: ">", Level: LevelWarn, Enabled: true, MessageTemplate: "memory usage too high: {value}%"},
		{ID: "rule_error_rate", MetricName: MetricErrorRate, Threshold: 5, Operator: ">", Level: LevelError, Enabled: true, MessageTemplate: "error rate too high: {value}%"},
	}
}

// Service 监控与告警
type Service struct {
	db        *gorm.DB
	recorder  *Recorder
	sampler   SystemSampler
	notifier  Notifier
	logger    *zap.Logger
	alertUser string
	dedupe    time.Duration
	now       func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithAlertUser 接收告警通知的用户
func WithAlertUser(userID string) Option {
	return func(s *Service) {
		if userID != "" {
			s.alertUser = userID
		}
	}
}

// WithDedupe 同一指标未处理告警的去重窗口
func WithDedupe(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dedupe = d
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, recorder *Recorder, sampler SystemSampler, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:        db,
		recorder:  recorder,
		sampler:   sampler,
		notifier:  notifier,
		logger:    logger.Named("monitor"),
		alertUser: DefaultAlertUser,
		dedupe:    DefaultAlertDedupe,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recorder 请求指标记录器
func (s *Service) Recorder() *Recorder { return s.recorder }

// EnsureDefaultRules 写入缺失的内置规则，已存在的不覆盖
func (s *Service) EnsureDefaultRules(ctx context.Context) error {
	rules := DefaultRules()
	now := s.now()
	for i := range rules {
		rules[i].CreatedAt = now
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rules).Error
	if err != nil {
		return errs.Internal("init alert rules failed", err)
	}
	return nil
}

// SystemMetrics 主机指标
func (s *Service) SystemMetrics(ctx context.Context) (*SystemMetricsVO, error) {
	vo, err := s.sampler.Sample(ctx)
	if err != nil {
		return nil, errs.Internal("sample system metrics failed", err)
	}
	return vo, nil
}

// ApplicationMetrics 请求指标
func (s *Service) ApplicationMetrics() *ApplicationMetricsVO {
	return s.recorder.Snapshot()
}

// CheckAndTriggerAlerts 对所有启用的规则求值，返回新触发的告警数
func (s *Service) CheckAndTriggerAlerts(ctx context.Context) (int, error) {
	var rules []AlertRulePO
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&rules).Error; err != nil {
		return 0, errs.Internal("query alert rules failed", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	system, err := s.sampler.Sample(ctx)
	if err != nil {
		return 0, errs.Internal("sample system metrics failed", err)
	}
	app := s.recorder.Snapshot()

	triggered := 0
	for i := range rules {
		rule := &rules[i]
		value, ok := metricValue(rule.MetricName, system, app)
		if !ok || !checkThreshold(value, rule.Threshold, rule.Operator) {
			continue
		}
		fired, err := s.trigger(ctx, rule, value)
		if err != nil {
			s.logger.Error("trigger alert failed", zap.String("rule", rule.ID), zap.Error(err))
			continue
		}
		if fired {
			triggered++
		}
	}
	return triggered, nil
}

// Run 按间隔检查告警，直到ctx取消
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CheckAndTriggerAlerts(ctx); err != nil {
				s.logger.Error("check alerts failed", zap.Error(err))
			}
		}
	}
}

// Alerts 告警列表，handled 为nil时不过滤，按时间倒序
func (s *Service) Alerts(ctx context.Context, handled *bool) ([]AlertVO, error) {
	db := s.db.WithContext(ctx)
	if handled != nil {
		db = db.Where("handled = ?", *handled)
	}
	var rows []AlertPO
	if err := db.Order("alert_time DESC").Find(&rows).Error; err != nil {
		return nil, errs.Internal("query alerts failed", err)
	}
	items := make([]AlertVO, 0, len(rows))
	for _, po := range rows {
		items = append(items, AlertVO{
			ID:          po.ID,
			RuleID:      po.RuleID,
			MetricName:  po.MetricName,
			MetricValue: po.MetricValue,
			Level:       po.Level,
			Message:     po.Message,
			Handled:     po.Handled,
			AlertTime:   po.AlertTime,
			HandledTime: po.HandledTime,
		})
	}
	return items, nil
}

// HandleAlert 标记告警已处理，不存在时忽略
func (s *Service) HandleAlert(ctx context.Context, alertID string) error {
	now := s.now()
	err := s.db.WithContext(ctx).Model(&AlertPO{}).
		Where("id = ? AND handled = ?", alertID, false).
		Updates(map[string]any{"handled": true, "handled_time": now}).Error
	if err != nil {
		return errs.Internal("handle alert failed", err)
	}
	return nil
}

// AddRule 新增或覆盖规则，未指定ID时生成
func (s *Service) AddRule(ctx context.Context, dto *AlertRuleDTO) (*AlertRuleDTO, error) {
	if dto == nil {
		return nil, errs.BadRequest("alert rule is required")
	}
	if err := validator.Check(dto, validator.SceneCreate); err != nil {
		return nil, errs.Validation(err)
	}

	po := AlertRulePO{
		ID:              strings.TrimSpace(dto.ID),
		MetricName:      dto.MetricName,
		Threshold:       dto.Threshold,
		Operator:        dto.Operator,
		Level:           dto.Level,
		Enabled:         dto.Enabled == nil || *dto.Enabled,
		MessageTemplate: dto.MessageTemplate,
		CreatedAt:       s.now(),
	}
	if po.ID == "" {
		po.ID = fmt.Sprintf("rule_%d", s.now().UnixMilli())
	}
	if po.MessageTemplate == "" {
		po.MessageTemplate = po.MetricName + " = {value}"
	}
	if err := s.db.WithContext(ctx).Save(&po).Error; err != nil {
		return nil, errs.Internal("save alert rule failed", err)
	}
	return ruleDTO(&po), nil
}

// Rules 全部规则
func (s *Service) Rules(ctx context.Context) ([]AlertRuleDTO, error) {
	var rows []AlertRulePO
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errs.Internal("query alert rules failed", err)
	}
	items := make([]AlertRuleDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *ruleDTO(&rows[i]))
	}
	return items, nil
}

// DeleteRule 删除规则
func (s *Service) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", ruleID).Delete(&AlertRulePO{}).Error; err != nil {
		return errs.Internal("delete alert rule failed", err)
	}
	return nil
}

// trigger 去重窗口内同一指标已有未处理告警时跳过
func (s *Service) trigger(ctx context.Context, rule *AlertRulePO, value float64) (bool, error) {
	now := s.now()

	var recent AlertPO
	err := s.db.WithContext(ctx).
		Where("metric_name = ? AND handled = ? AND alert_time > ?", rule.MetricName, false, now.Add(-s.dedupe)).
		First(&recent).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("query recent alerts: %w", err)
	}

	alert := AlertPO{
		ID:          fmt.Sprintf("alert_%d_%s", now.UnixMilli(), rule.ID),
		RuleID:      rule.ID,
		MetricName:  rule.MetricName,
		MetricValue: value,
		Level:       rule.Level,
		Message:     strings.ReplaceAll(rule.MessageTemplate, "{value}", fmt.Sprintf("%.2f", value)),
		AlertTime:   now,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return false, fmt.Errorf("save alert: %w", err)
	}
	s.logger.Warn("alert triggered", zap.String("metric", rule.MetricName), zap.Float64("value", value), zap.String("message", alert.Message))

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, &notification.PublishDTO{
			UserID:  s.alertUser,
			Title:   "System alert: " + rule.Level,
			Content: alert.Message,
			Path:    AlertPath,
		})
		if err != nil {
			s.logger.Error("send alert notification failed", zap.String("alert", alert.ID), zap.Error(err))
		}
	}
	return true, nil
}

// metricValue 常用指标直接取字段，其他从指标列表查找
func metricValue(name string, system *SystemMetricsVO, app *ApplicationMetricsVO) (float64, bool) {
	switch name {
	case MetricCPUUsage:
		return system.CPUUsage, true
	case MetricMemoryUsage:
		return system.MemoryUsage, true
	case MetricErrorRate:
		return app.ErrorRate, true
	case MetricAvgResponseTime:
		return app.AvgResponseTime, true
	}
	for _, list := range [][]MetricVO{system.Metrics, app.Metrics} {
		for _, m := range list {
			if m.Name == name {
				return m.Value, true
			}
		}
	}
	return 0, false
}

func checkThreshold(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case ">=":
		return value >= threshold
	case "<":
		return value < threshold
	case "<=":
		return value <= threshold
	case "==":
		return math.Abs(value-threshold) < equalTolerance
	default:
		return false
	}
}

func ruleDTO(po *AlertRulePO) *AlertRuleDTO {
	enabled := po.Enabled
	return &AlertRuleDTO{
		ID:              po.ID,
		MetricName:      po.MetricName,
		Threshold:       po.Threshold,
		Operator:        po.Operator,
		Level:           po.Level,
		Enabled:         &enabled,
		MessageTemplate: po.MessageTemplate,
	}
}
