package snowflake

import "sync/atomic"

// Metrics 生成器计数器，全部为原子操作
type Metrics struct {
	idCount          atomic.Uint64
	sequenceOverflow atomic.Uint64
	clockBackward    atomic.Uint64
	waitCount        atomic.Uint64
	waitNs           atomic.Uint64
}

// MetricsSnapshot 某一时刻的计数
type MetricsSnapshot struct {
	IDCount          uint64
	SequenceOverflow uint64
	ClockBackward    uint64
	WaitCount        uint64
	AvgWaitNs        uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordWait(ns int64) {
	if m == nil {
		return
	}
	m.waitCount.Add(1)
	if ns > 0 {
		m.waitNs.Add(uint64(ns))
	}
}

// Snapshot nil表示未开启统计，返回零值
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	s := MetricsSnapshot{
		IDCount:          m.idCount.Load(),
		SequenceOverflow: m.sequenceOverflow.Load(),
		ClockBackward:    m.clockBackward.Load(),
		WaitCount:        m.waitCount.Load(),
	}
	if s.WaitCount > 0 {
		s.AvgWaitNs = m.waitNs.Load() / s.WaitCount
	}
	return s
}

func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.idCount.Store(0)
	m.sequenceOverflow.Store(0)
	m.clockBackward.Store(0)
	m.waitCount.Store(0)
	m.waitNs.Store(0)
}

// ToMap metrics_enabled 为0时其余键缺省
func (m *Metrics) ToMap() map[string]uint64 {
	if m == nil {
		return map[string]uint64{"metrics_enabled": 0}
	}
	s := m.Snapshot()
	return map[string]uint64{
		"metrics_enabled":   1,
		"id_count":          s.IDCount,
		"sequence_overflow": s.SequenceOverflow,
		"clock_backward":    s.ClockBackward,
		"wait_count":        s.WaitCount,
		"avg_wait_time_ns":  s.AvgWaitNs,
	}
}
