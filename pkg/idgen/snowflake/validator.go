package snowflake

import (
	"errors"
	"fmt"

	"productivity-hub/pkg/idgen/core"
)

// Validator Snowflake ID验证器
type Validator struct {
	clock Clock
}

// NewValidator 创建验证器
func NewValidator() *Validator {
	return &Validator{clock: SystemClock}
}

// newValidatorWithClock 按生成器的时间源校验未来时间
func newValidatorWithClock(clock Clock) *Validator {
	return &Validator{clock: clock}
}

// ValidateID 使用系统时钟验证ID
func ValidateID(id int64) error {
	return NewValidator().Validate(id)
}

// Validate 验证Snowflake ID的有效性
func (v *Validator) Validate(id int64) error {
	// 验证1：ID必须为正整数
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d",
			core.ErrInvalidSnowflakeID, id)
	}

	// 验证2：时间戳必须在Epoch之后（正数ID恒成立，保留以防位宽调整）
	timestamp := (id >> TimestampShift) + Epoch
	if timestamp < Epoch {
		return fmt.Errorf("%w: timestamp %d is before epoch %d",
			core.ErrInvalidSnowflakeID, timestamp, Epoch)
	}

	// 验证3：时间戳不能超前1分钟以上
	now := v.clock()
	if timestamp > now+maxFutureTimeTolerance {
		return fmt.Errorf("%w: timestamp %d is too far in the future (now %d, tolerance %d ms)",
			core.ErrInvalidSnowflakeID, timestamp, now, maxFutureTimeTolerance)
	}

	return nil
}

// ValidateBatch 批量验证ID，遇到第一个错误立即返回
func (v *Validator) ValidateBatch(ids []int64) error {
	if ids == nil {
		return errors.New("ids slice cannot be nil")
	}

	for i, id := range ids {
		if err := v.Validate(id); err != nil {
			return fmt.Errorf("invalid ID at index %d: %w", i, err)
		}
	}

	return nil
}
