package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const mb = 1024 * 1024

// SystemSampler 采集主机指标
type SystemSampler interface {
	Sample(ctx context.Context) (*SystemMetricsVO, error)
}

// HostSampler 基于 gopsutil 的采集，单项失败时记录日志并置0
type HostSampler struct {
	diskPath string
	started  time.Time
	logger   *zap.Logger

	cpuGauge  prometheus.Gauge
	memGauge  prometheus.Gauge
	diskGauge prometheus.Gauge
}

func NewHostSampler(diskPath string, reg prometheus.Registerer, logger *zap.Logger) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HostSampler{
		diskPath: diskPath,
		started:  time.Now(),
		logger:   logger,
		cpuGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hub", Subsystem: "system", Name: "cpu_usage_percent", Help: "Host CPU usage.",
		}),
		memGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hub", Subsystem: "system", Name: "memory_usage_percent", Help: "Host memory usage.",
		}),
		diskGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hub", Subsystem: "system", Name: "disk_usage_percent", Help: "Disk usage of the data path.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.cpuGauge, s.memGauge, s.diskGauge)
	}
	return s
}

func (s *HostSampler) Sample(ctx context.Context) (*SystemMetricsVO, error) {
	now := time.Now()
	vo := &SystemMetricsVO{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
		Uptime:     int64(now.Sub(s.started).Seconds()),
	}

	// 间隔为0时返回距上次调用的平均值
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		s.logger.Warn("read cpu usage failed", zap.Error(err))
	} else if len(percents) > 0 {
		vo.CPUUsage = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.logger.Warn("read memory usage failed", zap.Error(err))
	} else {
		vo.MemoryUsage = vm.UsedPercent
		vo.MemoryUsedMB = vm.Used / mb
		vo.MemoryTotalMB = vm.Total / mb
	}

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		s.logger.Warn("read disk usage failed", zap.String("path", s.diskPath), zap.Error(err))
	} else {
		vo.DiskUsage = usage.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	vo.HeapAllocMB = ms.HeapAlloc / mb

	s.cpuGauge.Set(vo.CPUUsage)
	s.memGauge.Set(vo.MemoryUsage)
	s.diskGauge.Set(vo.DiskUsage)

	vo.Metrics = []MetricVO{
		metric(MetricCPUUsage, vo.CPUUsage, "%", "cpu usage", now),
		metric(MetricMemoryUsage, vo.MemoryUsage, "%", "memory usage", now),
		metric(MetricHeapAlloc, float64(vo.HeapAllocMB), "MB", "heap allocated", now),
		metric(MetricGoroutines, float64(vo.Goroutines), "", "goroutines", now),
		metric(MetricUptime, float64(vo.Uptime), "s", "process uptime", now),
		metric(MetricDiskUsage, vo.DiskUsage, "%", "disk usage", now),
	}
	return vo, nil
}
