package core

// GeneratorType 生成器类型枚举
type GeneratorType string

const (
	// GeneratorTypeSnowflake Snowflake算法生成器（时间戳+数据中心+机器+序列号）
	GeneratorTypeSnowflake GeneratorType = "snowflake"
	// GeneratorTypeSonyflake Sonyflake算法生成器（10ms时间粒度，16位机器号）
	GeneratorTypeSonyflake GeneratorType = "sonyflake"
)

// String 实现Stringer接口
func (t GeneratorType) String() string {
	return string(t)
}

// IsValid 验证生成器类型是否有效
func (t GeneratorType) IsValid() bool {
	switch t {
	case GeneratorTypeSnowflake, GeneratorTypeSonyflake:
		return true
	default:
		return false
	}
}

// ClockBackwardStrategy 时钟回拨处理策略
type ClockBackwardStrategy int

const (
	// StrategyError 直接返回错误（默认，最安全）
	StrategyError ClockBackwardStrategy = iota
	// StrategyWait 等待追上（容忍短暂回拨）
	StrategyWait
	// StrategyUseLastTimestamp 沿用上次时间戳继续分配序列号
	StrategyUseLastTimestamp
)

// String 实现Stringer接口
func (s ClockBackwardStrategy) String() string {
	switch s {
	case StrategyError:
		return "Error"
	case StrategyWait:
		return "Wait"
	case StrategyUseLastTimestamp:
		return "UseLastTimestamp"
	default:
		return "Unknown"
	}
}

// IsValid 策略是否为已知取值
func (s ClockBackwardStrategy) IsValid() bool {
	return s >= StrategyError && s <= StrategyUseLastTimestamp
}

// ParseClockBackwardStrategy 从配置字符串解析策略（大小写不敏感，空串为StrategyError）
func ParseClockBackwardStrategy(s string) (ClockBackwardStrategy, error) {
	switch s {
	case "", "error", "Error", "ERROR":
		return StrategyError, nil
	case "wait", "Wait", "WAIT":
		return StrategyWait, nil
	case "use_last_timestamp", "UseLastTimestamp", "USE_LAST_TIMESTAMP":
		return StrategyUseLastTimestamp, nil
	default:
		return StrategyError, ErrInvalidStrategy
	}
}
