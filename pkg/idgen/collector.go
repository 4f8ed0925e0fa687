package idgen

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	idsDesc = prometheus.NewDesc("hub_idgen_ids_total",
		"Snowflake IDs generated.", []string{"worker", "datacenter"}, nil)
	overflowDesc = prometheus.NewDesc("hub_idgen_sequence_overflow_total",
		"Times the per-millisecond sequence was exhausted.", []string{"worker", "datacenter"}, nil)
	backwardDesc = prometheus.NewDesc("hub_idgen_clock_backward_total",
		"Clock backward drifts detected.", []string{"worker", "datacenter"}, nil)
	waitDesc = prometheus.NewDesc("hub_idgen_wait_total",
		"Waits for the next millisecond.", []string{"worker", "datacenter"}, nil)
	avgWaitDesc = prometheus.NewDesc("hub_idgen_avg_wait_nanoseconds",
		"Average wait for the next millisecond.", []string{"worker", "datacenter"}, nil)
	cachedDesc = prometheus.NewDesc("hub_idgen_cached_generators",
		"Generators held by the worker cache.", nil, nil)
)

// Collector 把各缓存生成器的计数导出为prometheus指标
type Collector struct {
	svc *Service
}

func NewCollector(svc *Service) *Collector {
	return &Collector{svc: svc}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- idsDesc
	ch <- overflowDesc
	ch <- backwardDesc
	ch <- waitDesc
	ch <- avgWaitDesc
	ch <- cachedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	keys := c.svc.registry.ListKeys()
	ch <- prometheus.MustNewConstMetric(cachedDesc, prometheus.GaugeValue, float64(len(keys)))

	for _, key := range keys {
		gen, err := c.svc.registry.Get(key)
		if err != nil {
			// 采集期间被移除
			continue
		}
		m := gen.GetMetrics()
		if m["metrics_enabled"] == 0 {
			continue
		}
		worker := strconv.FormatInt(gen.GetWorkerID(), 10)
		dc := strconv.FormatInt(gen.GetDatacenterID(), 10)

		ch <- prometheus.MustNewConstMetric(idsDesc, prometheus.CounterValue, float64(m["id_count"]), worker, dc)
		ch <- prometheus.MustNewConstMetric(overflowDesc, prometheus.CounterValue, float64(m["sequence_overflow"]), worker, dc)
		ch <- prometheus.MustNewConstMetric(backwardDesc, prometheus.CounterValue, float64(m["clock_backward"]), worker, dc)
		ch <- prometheus.MustNewConstMetric(waitDesc, prometheus.CounterValue, float64(m["wait_count"]), worker, dc)
		ch <- prometheus.MustNewConstMetric(avgWaitDesc, prometheus.GaugeValue, float64(m["avg_wait_time_ns"]), worker, dc)
	}
}
