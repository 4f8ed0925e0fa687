package snowflake

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"productivity-hub/pkg/idgen/core"
)

// Clock 返回当前Unix毫秒时间戳
type Clock func() int64

// SystemClock 系统时钟
func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// Config Snowflake生成器配置
type Config struct {
	// DatacenterID 数据中心ID，范围0-31
	DatacenterID int64

	// WorkerID 工作机器ID，范围0-31
	WorkerID int64

	// ClockBackwardStrategy 时钟回拨处理策略
	//   - StrategyError: 直接返回错误（默认）
	//   - StrategyWait: 回拨在容忍范围内时等待时钟追上
	//   - StrategyUseLastTimestamp: 沿用上次时间戳，序列号用尽后逻辑时间戳+1
	ClockBackwardStrategy core.ClockBackwardStrategy

	// ClockBackwardTolerance 时钟回拨容忍时间（毫秒）
	// 仅在 StrategyWait 下生效，范围0-1000，默认5
	ClockBackwardTolerance int64

	// EnableMetrics 是否收集生成统计
	EnableMetrics bool

	// Clock 时间源，nil时使用系统时钟
	Clock Clock

	// Logger 日志，nil时不输出
	Logger *zap.Logger
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.DatacenterID < 0 || c.DatacenterID > MaxDatacenterID {
		return fmt.Errorf("%w: got %d, valid range [0, %d]",
			core.ErrInvalidDatacenterID, c.DatacenterID, MaxDatacenterID)
	}

	if c.WorkerID < 0 || c.WorkerID > MaxWorkerID {
		return fmt.Errorf("%w: got %d, valid range [0, %d]",
			core.ErrInvalidWorkerID, c.WorkerID, MaxWorkerID)
	}

	if !c.ClockBackwardStrategy.IsValid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidStrategy, c.ClockBackwardStrategy)
	}

	if c.ClockBackwardTolerance < 0 {
		return fmt.Errorf("clock backward tolerance must be non-negative, got %d ms",
			c.ClockBackwardTolerance)
	}

	if c.ClockBackwardTolerance > maxClockBackwardToleranceLimit {
		return fmt.Errorf("clock backward tolerance too large: max %d ms, got %d ms",
			maxClockBackwardToleranceLimit, c.ClockBackwardTolerance)
	}

	return nil
}

// SetDefaults 设置配置的默认值
func (c *Config) SetDefaults() {
	// 等待策略下0容忍没有意义
	if c.ClockBackwardStrategy == core.StrategyWait && c.ClockBackwardTolerance == 0 {
		c.ClockBackwardTolerance = defaultClockBackwardTolerance
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Clone 克隆配置对象
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
