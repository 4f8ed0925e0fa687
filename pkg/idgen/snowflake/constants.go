package snowflake

import "time"

// ID布局（高位到低位）：
//
//	1 bit 符号位(0) | 41 bit 时间戳 | 5 bit 数据中心 | 5 bit worker | 12 bit 序列号
//
// 时间戳为相对 Epoch 的毫秒数，约可使用69年。
const (
	Epoch int64 = 1672502400000 // 2023-01-01 00:00:00 +08:00

	SequenceBits     = 12
	WorkerIDBits     = 5
	DatacenterIDBits = 5

	MaxSequence     = 1<<SequenceBits - 1     // 4095
	MaxWorkerID     = 1<<WorkerIDBits - 1     // 31
	MaxDatacenterID = 1<<DatacenterIDBits - 1 // 31

	WorkerIDShift     = SequenceBits
	DatacenterIDShift = WorkerIDShift + WorkerIDBits
	TimestampShift    = DatacenterIDShift + DatacenterIDBits

	MaxBatchSize = 100_000
)

// 时钟相关
const (
	sleepDuration = 100 * time.Microsecond

	defaultClockBackwardTolerance  = 5    // ms
	maxClockBackwardToleranceLimit = 1000 // ms
	maxWaitRetries                 = 10

	// ValidateID 允许的超前量，超过视为伪造或时钟异常
	maxFutureTimeTolerance = int64(time.Minute / time.Millisecond)
)
