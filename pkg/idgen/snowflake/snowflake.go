package snowflake

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"productivity-hub/pkg/idgen/core"
)

var _ core.IGenerator = (*Generator)(nil)

// Generator Snowflake算法的ID生成器实现
type Generator struct {
	// ========== 核心状态 ==========
	lastTimestamp int64 // 上次生成ID的时间戳（毫秒，UseLastTimestamp下可能领先墙钟）
	datacenterID  int64
	workerID      int64
	sequence      int64 // 当前毫秒内已使用的最后一个序列号

	config *Config

	// datacenterID和workerID部分在生命周期内不变
	precomputedPart int64

	metrics   *Metrics // nil时不收集
	validator *Validator
	parser    *Parser
	now       Clock
	logger    *zap.Logger

	mu sync.Mutex
}

// New 创建一个新的Snowflake ID生成器，默认关闭监控
func New(datacenterID, workerID int64) (*Generator, error) {
	return NewWithConfig(&Config{
		DatacenterID: datacenterID,
		WorkerID:     workerID,
	})
}

// NewWithConfig 使用配置创建Snowflake ID生成器
func NewWithConfig(config *Config) (*Generator, error) {
	if config == nil {
		return nil, core.ErrNilConfig
	}

	// 步骤1：验证配置（不修改调用方的对象）
	cfg := config.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 步骤2：设置默认值
	cfg.SetDefaults()

	// 步骤3：初始化监控（如果启用）
	var metrics *Metrics
	if cfg.EnableMetrics {
		metrics = NewMetrics()
	}

	validator := newValidatorWithClock(cfg.Clock)
	g := &Generator{
		datacenterID:    cfg.DatacenterID,
		workerID:        cfg.WorkerID,
		lastTimestamp:   -1,
		sequence:        -1,
		config:          cfg,
		precomputedPart: (cfg.DatacenterID << DatacenterIDShift) | (cfg.WorkerID << WorkerIDShift),
		metrics:         metrics,
		validator:       validator,
		parser:          &Parser{validator: validator},
		now:             cfg.Clock,
		logger:          cfg.Logger,
	}

	g.logger.Debug("snowflake generator created",
		zap.Int64("datacenter_id", cfg.DatacenterID),
		zap.Int64("worker_id", cfg.WorkerID),
		zap.Stringer("clock_backward_strategy", cfg.ClockBackwardStrategy),
		zap.Bool("metrics_enabled", cfg.EnableMetrics))

	return g, nil
}

// NextID 生成下一个唯一ID（线程安全）
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.nextIDUnsafe()
}

// NextIDBatch 批量生成ID（线程安全）
// 时钟回拨失败时返回已生成的部分ID和错误
func (g *Generator) NextIDBatch(n int) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d",
			core.ErrInvalidBatchSize, n)
	}
	if n > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size too large (max %d), got %d",
			core.ErrInvalidBatchSize, MaxBatchSize, n)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.nextIDBatchUnsafe(n)
}

// GetWorkerID 获取工作机器ID
func (g *Generator) GetWorkerID() int64 {
	return g.workerID
}

// GetDatacenterID 获取数据中心ID
func (g *Generator) GetDatacenterID() int64 {
	return g.datacenterID
}

// GetMetrics 获取性能监控指标
func (g *Generator) GetMetrics() map[string]uint64 {
	return g.metrics.ToMap()
}

// ResetMetrics 重置性能监控指标
func (g *Generator) ResetMetrics() {
	g.metrics.Reset()
}

// GetIDCount 获取已生成的ID总数
func (g *Generator) GetIDCount() uint64 {
	if g.metrics == nil {
		return 0
	}
	return g.metrics.Snapshot().IDCount
}

// ParseID 解析ID
func (g *Generator) ParseID(id int64) (*core.IDInfo, error) {
	return g.parser.Parse(id)
}

// ValidateID 验证ID
func (g *Generator) ValidateID(id int64) error {
	return g.validator.Validate(id)
}

// nextIDUnsafe 调用者必须已持有锁
func (g *Generator) nextIDUnsafe() (int64, error) {
	// 步骤1：获取当前时间戳
	timestamp, err := g.currentTimestamp()
	if err != nil {
		return 0, err
	}

	// 步骤2：序列号管理
	if timestamp == g.lastTimestamp {
		if g.sequence >= MaxSequence {
			// 当前毫秒序列号已用尽
			timestamp = g.nextMillis()
			g.sequence = -1
			g.lastTimestamp = timestamp
		}
		g.sequence++
	} else {
		g.sequence = 0
		g.lastTimestamp = timestamp
	}

	// 步骤3：组装ID
	// 时间戳(41位) | 数据中心ID(5位) | 工作机器ID(5位) | 序列号(12位)
	id := ((timestamp - Epoch) << TimestampShift) | g.precomputedPart | g.sequence

	if g.metrics != nil {
		g.metrics.idCount.Add(1)
	}

	return id, nil
}

// nextIDBatchUnsafe 调用者必须已持有锁
func (g *Generator) nextIDBatchUnsafe(n int) ([]int64, error) {
	ids := make([]int64, 0, n)

	for len(ids) < n {
		// 步骤1：获取当前时间戳
		timestamp, err := g.currentTimestamp()
		if err != nil {
			if g.metrics != nil {
				g.metrics.idCount.Add(uint64(len(ids)))
			}
			return ids, fmt.Errorf("%w (generated %d/%d IDs)", err, len(ids), n)
		}

		// 步骤2：计算当前毫秒可用的序列号
		if timestamp == g.lastTimestamp {
			if g.sequence >= MaxSequence {
				timestamp = g.nextMillis()
				g.sequence = -1
				g.lastTimestamp = timestamp
			}
		} else {
			g.sequence = -1
			g.lastTimestamp = timestamp
		}
		available := int(MaxSequence - g.sequence)

		// 步骤3：确定本轮生成数量
		batchSize := n - len(ids)
		if batchSize > available {
			batchSize = available
		}

		// 步骤4：批量组装
		baseID := ((timestamp - Epoch) << TimestampShift) | g.precomputedPart
		for i := 0; i < batchSize; i++ {
			g.sequence++
			ids = append(ids, baseID|g.sequence)
		}
	}

	if g.metrics != nil {
		g.metrics.idCount.Add(uint64(n))
	}

	return ids, nil
}

// currentTimestamp 读取时钟并处理回拨，返回本次可用的时间戳
func (g *Generator) currentTimestamp() (int64, error) {
	timestamp := g.now()
	if timestamp >= g.lastTimestamp {
		return timestamp, nil
	}
	return g.handleClockBackward(timestamp)
}

// handleClockBackward 处理时钟回拨
func (g *Generator) handleClockBackward(current int64) (int64, error) {
	offset := g.lastTimestamp - current

	if g.metrics != nil {
		g.metrics.clockBackward.Add(1)
	}

	switch g.config.ClockBackwardStrategy {
	case core.StrategyWait:
		if offset > g.config.ClockBackwardTolerance {
			g.logger.Warn("clock moved backwards beyond tolerance",
				zap.Int64("offset_ms", offset),
				zap.Int64("tolerance_ms", g.config.ClockBackwardTolerance))
			return 0, fmt.Errorf("%w: backward drift %d ms exceeds tolerance %d ms",
				core.ErrClockMovedBackwards, offset, g.config.ClockBackwardTolerance)
		}
		for retries := 0; retries < maxWaitRetries; retries++ {
			time.Sleep(time.Duration(offset+1) * time.Millisecond)
			now := g.now()
			if now >= g.lastTimestamp {
				return now, nil
			}
			offset = g.lastTimestamp - now
		}
		return 0, fmt.Errorf("%w: backward drift persisted after %d retries",
			core.ErrClockMovedBackwards, maxWaitRetries)

	case core.StrategyUseLastTimestamp:
		// 可能与回拨前同一毫秒内生成的ID交叉，序列号继续递增保证唯一
		g.logger.Warn("clock moved backwards, reusing last timestamp",
			zap.Int64("offset_ms", offset))
		return g.lastTimestamp, nil

	default:
		g.logger.Warn("clock moved backwards",
			zap.Int64("offset_ms", offset),
			zap.Int64("last_timestamp", g.lastTimestamp))
		return 0, fmt.Errorf("%w: detected backward drift of %d ms",
			core.ErrClockMovedBackwards, offset)
	}
}

// nextMillis 序列号用尽后获取下一个可用毫秒
func (g *Generator) nextMillis() int64 {
	if g.metrics != nil {
		g.metrics.sequenceOverflow.Add(1)
	}

	// 墙钟落后于逻辑时间戳时不等待，直接推进逻辑时间戳
	if g.config.ClockBackwardStrategy == core.StrategyUseLastTimestamp && g.now() < g.lastTimestamp {
		return g.lastTimestamp + 1
	}

	timestamp := g.now()
	if timestamp > g.lastTimestamp {
		return timestamp
	}

	start := time.Now()
	for timestamp <= g.lastTimestamp {
		time.Sleep(sleepDuration)
		timestamp = g.now()
	}
	g.metrics.recordWait(time.Since(start).Nanoseconds())
	return timestamp
}
