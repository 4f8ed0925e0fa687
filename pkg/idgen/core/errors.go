package core

import "errors"

// 配置与生成
var (
	ErrInvalidWorkerID     = errors.New("invalid worker id: must be between 0 and 31")
	ErrInvalidDatacenterID = errors.New("invalid datacenter id: must be between 0 and 31")
	ErrInvalidMachineID    = errors.New("invalid machine id: must be between 0 and 65535")
	ErrInvalidStrategy     = errors.New("invalid clock backward strategy")
	ErrNilConfig           = errors.New("config cannot be nil")
	ErrClockMovedBackwards = errors.New("clock moved backwards: refusing to generate id")
	ErrInvalidBatchSize    = errors.New("invalid batch size")
	ErrUnsupported         = errors.New("operation not supported by generator")
)

// ErrInvalidSnowflakeID 解析或校验失败，包括负数、早于纪元、超前时间过多
var ErrInvalidSnowflakeID = errors.New("invalid snowflake id")

// 注册表
var (
	ErrGeneratorNotFound      = errors.New("generator not found")
	ErrGeneratorAlreadyExists = errors.New("generator already exists")
	ErrInvalidGeneratorType   = errors.New("invalid generator type")
	ErrInvalidKey             = errors.New("invalid key")
	ErrFactoryNotFound        = errors.New("factory not found")
	ErrMaxGeneratorsReached   = errors.New("maximum number of generators reached")
)
