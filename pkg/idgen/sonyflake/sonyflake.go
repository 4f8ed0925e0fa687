// Package sonyflake 基于 sony/sonyflake 的生成器实现，时间粒度10ms，16位机器号。
package sonyflake

import (
	"fmt"
	"sync/atomic"
	"time"

	sf "github.com/sony/sonyflake"
	"go.uber.org/zap"

	"productivity-hub/pkg/idgen/core"
)

const (
	// MaxMachineID 机器号上限
	MaxMachineID = 1<<16 - 1

	// 时间单位（sonyflake固定为10ms）
	timeUnitMs = 10

	maxBatchSize = 100_000

	maxFutureTimeTolerance = time.Minute
)

// DefaultStartTime 与Snowflake生成器共用的起始时间 (2023-01-01 00:00:00 +08:00)
var DefaultStartTime = time.UnixMilli(1672502400000)

// Config Sonyflake生成器配置
type Config struct {
	// MachineID 机器号，范围0-65535
	MachineID int64

	// StartTime 起始时间，零值使用DefaultStartTime
	StartTime time.Time

	// Logger 日志，nil时不输出
	Logger *zap.Logger
}

// Generator Sonyflake生成器，实现core.IGenerator
type Generator struct {
	flake     *sf.Sonyflake
	machineID int64
	startMs   int64
	idCount   atomic.Uint64
}

var _ core.IGenerator = (*Generator)(nil)

// New 创建Sonyflake生成器
func New(config *Config) (*Generator, error) {
	if config == nil {
		return nil, core.ErrNilConfig
	}
	if config.MachineID < 0 || config.MachineID > MaxMachineID {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidMachineID, config.MachineID)
	}

	start := config.StartTime
	if start.IsZero() {
		start = DefaultStartTime
	}
	if start.After(time.Now()) {
		return nil, fmt.Errorf("start time %s is in the future", start.Format(time.RFC3339))
	}

	machineID := uint16(config.MachineID)
	flake := sf.NewSonyflake(sf.Settings{
		StartTime: start,
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	})
	if flake == nil {
		return nil, fmt.Errorf("sonyflake: failed to initialise machine %d", machineID)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("sonyflake generator created", zap.Int64("machine_id", config.MachineID))

	// sonyflake内部按10ms截断起始时间
	return &Generator{
		flake:     flake,
		machineID: config.MachineID,
		startMs:   start.UTC().UnixNano() / int64(timeUnitMs*time.Millisecond) * timeUnitMs,
	}, nil
}

// NextID 生成下一个ID
func (g *Generator) NextID() (int64, error) {
	id, err := g.flake.NextID()
	if err != nil {
		return 0, err
	}
	g.idCount.Add(1)
	return int64(id), nil
}

// NextIDBatch 批量生成ID
func (g *Generator) NextIDBatch(n int) ([]int64, error) {
	if n <= 0 || n > maxBatchSize {
		return nil, fmt.Errorf("%w: got %d, valid range [1, %d]", core.ErrInvalidBatchSize, n, maxBatchSize)
	}
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := g.NextID()
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetWorkerID 返回机器号
func (g *Generator) GetWorkerID() int64 {
	return g.machineID
}

// GetDatacenterID Sonyflake没有数据中心位
func (g *Generator) GetDatacenterID() int64 {
	return 0
}

// GetMetrics 获取监控指标
func (g *Generator) GetMetrics() map[string]uint64 {
	return map[string]uint64{
		"metrics_enabled": 1,
		"id_count":        g.idCount.Load(),
	}
}

// ResetMetrics 重置监控指标
func (g *Generator) ResetMetrics() {
	g.idCount.Store(0)
}

// GetIDCount 获取已生成的ID总数
func (g *Generator) GetIDCount() uint64 {
	return g.idCount.Load()
}

// ParseID 解析ID
func (g *Generator) ParseID(id int64) (*core.IDInfo, error) {
	if err := g.ValidateID(id); err != nil {
		return nil, err
	}
	parts := sf.Decompose(uint64(id))
	return &core.IDInfo{
		ID:        id,
		Timestamp: g.startMs + int64(parts["time"])*timeUnitMs,
		WorkerID:  int64(parts["machine-id"]),
		Sequence:  int64(parts["sequence"]),
	}, nil
}

// ValidateID 验证ID：正数且时间不超前1分钟
func (g *Generator) ValidateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", core.ErrInvalidSnowflakeID, id)
	}
	parts := sf.Decompose(uint64(id))
	ts := time.UnixMilli(g.startMs + int64(parts["time"])*timeUnitMs)
	if ts.After(time.Now().Add(maxFutureTimeTolerance)) {
		return fmt.Errorf("%w: timestamp %s is too far in the future",
			core.ErrInvalidSnowflakeID, ts.Format(time.RFC3339))
	}
	return nil
}

// Factory Sonyflake生成器工厂
type Factory struct{}

// NewFactory 创建工厂
func NewFactory() *Factory {
	return &Factory{}
}

// Create 实现core.IGeneratorFactory接口
func (f *Factory) Create(config any) (core.IGenerator, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type: expected *sonyflake.Config, got %T", config)
	}
	gen, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return gen, nil
}
