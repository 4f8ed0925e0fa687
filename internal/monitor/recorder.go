package monitor

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSampleWindow 每个接口保留的响应时间样本数
const DefaultSampleWindow = 1000

// pathStat 单个接口的计数与最近样本（环形缓冲）
type pathStat struct {
	requests int64
	success  int64
	errors   int64
	samples  []int64
	next     int
}

func (p *pathStat) add(elapsedMs int64, window int) {
	if len(p.samples) < window {
		p.samples = append(p.samples, elapsedMs)
		return
	}
	p.samples[p.next] = elapsedMs
	p.next = (p.next + 1) % window
}

// Recorder 请求指标，同时输出到 prometheus
type Recorder struct {
	mu      sync.RWMutex
	paths   map[string]*pathStat
	window  int
	started time.Time
	now     func() time.Time

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder reg 为nil时不注册 prometheus 指标
func NewRecorder(window int, reg prometheus.Registerer) *Recorder {
	if window <= 0 {
		window = DefaultSampleWindow
	}
	r := &Recorder{
		paths:   make(map[string]*pathStat),
		window:  window,
		started: time.Now(),
		now:     time.Now,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and result.",
		}, []string{"path", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
	if reg != nil {
		reg.MustRegister(r.requests, r.duration)
	}
	return r
}

// RecordRequest 记录一次请求
func (r *Recorder) RecordRequest(path string, success bool, elapsedMs int64) {
	result := "success"
	if !success {
		result = "error"
	}
	r.requests.WithLabelValues(path, result).Inc()
	r.duration.WithLabelValues(path).Observe(float64(elapsedMs) / 1000)

	r.mu.Lock()
	defer r.mu.Unlock()

	stat, ok := r.paths[path]
	if !ok {
		stat = &pathStat{}
		r.paths[path] = stat
	}
	stat.requests++
	if success {
		stat.success++
	} else {
		stat.errors++
	}
	stat.add(elapsedMs, r.window)
}

// Snapshot 汇总所有接口
func (r *Recorder) Snapshot() *ApplicationMetricsVO {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	vo := &ApplicationMetricsVO{ApiStats: make(map[string]ApiStatVO, len(r.paths))}

	var (
		sum   int64
		count int
		maxMs int64
		minMs int64 = math.MaxInt64
	)
	for path, stat := range r.paths {
		vo.TotalRequests += stat.requests
		vo.SuccessRequests += stat.success
		vo.ErrorRequests += stat.errors

		if len(stat.samples) == 0 {
			continue
		}
		var pathSum, pathMax int64
		pathMin := int64(math.MaxInt64)
		for _, ms := range stat.samples {
			pathSum += ms
			pathMax = max(pathMax, ms)
			pathMin = min(pathMin, ms)
		}
		vo.ApiStats[path] = ApiStatVO{
			Path:            path,
			RequestCount:    stat.requests,
			SuccessCount:    stat.success,
			ErrorCount:      stat.errors,
			AvgResponseTime: float64(pathSum) / float64(len(stat.samples)),
			MaxResponseTime: float64(pathMax),
			MinResponseTime: float64(pathMin),
		}
		sum += pathSum
		count += len(stat.samples)
		maxMs = max(maxMs, pathMax)
		minMs = min(minMs, pathMin)
	}

	if vo.TotalRequests > 0 {
		vo.ErrorRate = float64(vo.ErrorRequests) / float64(vo.TotalRequests) * 100
	}
	if elapsed := now.Sub(r.started).Seconds(); elapsed > 0 {
		vo.QPS = float64(vo.TotalRequests) / elapsed
	}
	vo.Metrics = append(vo.Metrics, metric(MetricErrorRate, vo.ErrorRate, "%", "error rate", now))
	if count > 0 {
		vo.AvgResponseTime = float64(sum) / float64(count)
		vo.MaxResponseTime = float64(maxMs)
		vo.MinResponseTime = float64(minMs)
		vo.Metrics = append(vo.Metrics, metric(MetricAvgResponseTime, vo.AvgResponseTime, "ms", "average response time", now))
	}
	vo.Metrics = append(vo.Metrics, metric(MetricQPS, vo.QPS, "req/s", "requests per second", now))
	return vo
}

// Paths 已记录的接口，按字典序
func (r *Recorder) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func metric(name string, value float64, unit, description string, ts time.Time) MetricVO {
	return MetricVO{Name: name, Value: value, Unit: unit, Description: description, Timestamp: ts}
}
