package snowflake

import (
	"fmt"
	"time"

	"productivity-hub/pkg/idgen/core"
)

// Parser Snowflake ID解析器
type Parser struct {
	validator core.IIDValidator
}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{validator: NewValidator()}
}

// Parse 解析Snowflake ID，提取完整的元信息
func (p *Parser) Parse(id int64) (*core.IDInfo, error) {
	// 只解析有效的ID
	if err := p.validator.Validate(id); err != nil {
		return nil, err
	}

	timestamp, datacenterID, workerID, sequence := Decompose(id)
	return &core.IDInfo{
		ID:           id,
		Timestamp:    timestamp,
		DatacenterID: datacenterID,
		WorkerID:     workerID,
		Sequence:     sequence,
	}, nil
}

// Decompose 按位拆分ID，不做有效性校验
func Decompose(id int64) (timestamp, datacenterID, workerID, sequence int64) {
	timestamp = (id >> TimestampShift) + Epoch
	datacenterID = (id >> DatacenterIDShift) & MaxDatacenterID
	workerID = (id >> WorkerIDShift) & MaxWorkerID
	sequence = id & MaxSequence
	return
}

// Compose 按位组装ID
func Compose(timestamp, datacenterID, workerID, sequence int64) (int64, error) {
	if timestamp < Epoch {
		return 0, fmt.Errorf("%w: timestamp %d is before epoch %d",
			core.ErrInvalidSnowflakeID, timestamp, Epoch)
	}
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return 0, core.ErrInvalidDatacenterID
	}
	if workerID < 0 || workerID > MaxWorkerID {
		return 0, core.ErrInvalidWorkerID
	}
	if sequence < 0 || sequence > MaxSequence {
		return 0, fmt.Errorf("%w: sequence %d out of range", core.ErrInvalidSnowflakeID, sequence)
	}
	return ((timestamp - Epoch) << TimestampShift) |
		(datacenterID << DatacenterIDShift) |
		(workerID << WorkerIDShift) |
		sequence, nil
}

// GetTimestamp 提取ID中的生成时间，无效ID返回零值
func GetTimestamp(id int64) time.Time {
	if id <= 0 {
		return time.Time{}
	}
	ts, _, _, _ := Decompose(id)
	return time.UnixMilli(ts)
}
