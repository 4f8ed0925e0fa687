package monitor

import "time"

// 指标名
const (
	MetricCPUUsage        = "cpu_usage"
	MetricMemoryUsage     = "memory_usage"
	MetricDiskUsage       = "disk_usage"
	MetricGoroutines      = "goroutine_count"
	MetricHeapAlloc       = "heap_alloc"
	MetricUptime          = "uptime"
	MetricErrorRate       = "error_rate"
	MetricAvgResponseTime = "avg_response_time"
	MetricQPS             = "qps"
)

// 告警级别
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// MetricVO 单个指标
type MetricVO struct {
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// SystemMetricsVO 主机与进程指标
type SystemMetricsVO struct {
	CPUUsage      float64    `json:"cpuUsage"`
	MemoryUsage   float64    `json:"memoryUsage"`
	MemoryUsedMB  uint64     `json:"memoryUsedMb"`
	MemoryTotalMB uint64     `json:"memoryTotalMb"`
	HeapAllocMB   uint64     `json:"heapAllocMb"`
	Goroutines    int        `json:"goroutines"`
	NumCPU        int        `json:"numCpu"`
	Uptime        int64      `json:"uptime"` // 秒
	DiskUsage     float64    `json:"diskUsage"`
	Metrics       []MetricVO `json:"metrics"`
}

// ApiStatVO 单个接口的统计
type ApiStatVO struct {
	Path            string  `json:"path"`
	RequestCount    int64   `json:"requestCount"`
	SuccessCount    int64   `json:"successCount"`
	ErrorCount      int64   `json:"errorCount"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	MaxResponseTime float64 `json:"maxResponseTime"`
	MinResponseTime float64 `json:"minResponseTime"`
}

// ApplicationMetricsVO 请求指标汇总
type ApplicationMetricsVO struct {
	TotalRequests   int64                `json:"totalRequests"`
	SuccessRequests int64                `json:"successRequests"`
	ErrorRequests   int64                `json:"errorRequests"`
	ErrorRate       float64              `json:"errorRate"`
	AvgResponseTime float64              `json:"avgResponseTime"`
	MaxResponseTime float64              `json:"maxResponseTime"`
	MinResponseTime float64              `json:"minResponseTime"`
	QPS             float64              `json:"qps"`
	ApiStats        map[string]ApiStatVO `json:"apiStats"`
	Metrics         []MetricVO           `json:"metrics"`
}

// AlertRulePO 告警规则
type AlertRulePO struct {
	ID              string  `gorm:"primaryKey;size:64"`
	MetricName      string  `gorm:"size:64;not null"`
	Threshold       float64 `gorm:"not null"`
	Operator        string  `gorm:"size:4;not null"`
	Level           string  `gorm:"size:16;not null"`
	Enabled         bool    `gorm:"not null"`
	MessageTemplate string  `gorm:"size:255"`
	CreatedAt       time.Time
}

func (AlertRulePO) TableName() string { return "monitor_alert_rule" }

// AlertPO 告警记录
type AlertPO struct {
	ID          string    `gorm:"primaryKey;size:96"`
	RuleID      string    `gorm:"size:64"`
	MetricName  string    `gorm:"size:64;not null;index:idx_monitor_alert_metric"`
	MetricValue float64   `gorm:"not null"`
	Level       string    `gorm:"size:16;not null"`
	Message     string    `gorm:"size:512"`
	Handled     bool      `gorm:"not null;index:idx_monitor_alert_metric"`
	AlertTime   time.Time `gorm:"not null;index:idx_monitor_alert_metric"`
	HandledTime *time.Time
}

func (AlertPO) TableName() string { return "monitor_alert" }

// Models 需要迁移的表
func Models() []any {
	return []any{&AlertRulePO{}, &AlertPO{}}
}

// AlertRuleDTO 告警规则，模板中的 {value} 替换为指标值
type AlertRuleDTO struct {
	ID              string  `json:"id"`
	MetricName      string  `json:"metricName" validate:"required,max=64"`
	Threshold       float64 `json:"threshold"`
	Operator        string  `json:"operator" validate:"required,oneof=> >= < <= =="`
	Level           string  `json:"level" validate:"required,oneof=INFO WARN ERROR"`
	Enabled         *bool   `json:"enabled"`
	MessageTemplate string  `json:"messageTemplate" validate:"max=255"`
}

// AlertVO 告警视图
type AlertVO struct {
	ID          string     `json:"id"`
	RuleID      string     `json:"ruleId"`
	MetricName  string     `json:"metricName"`
	MetricValue float64    `json:"metricValue"`
	Level       string     `json:"level"`
	Message     string     `json:"message"`
	Handled     bool       `json:"handled"`
	AlertTime   time.Time  `json:"alertTime"`
	HandledTime *time.Time `json:"handledTime,omitempty"`
}
