package core

// IGenerator 业务侧使用的int64 ID生成器
//
// snowflake 与 sonyflake 两种实现都需满足，方法均线程安全。
// sonyflake 没有datacenter概念，GetDatacenterID 恒为0。
type IGenerator interface {
	NextID() (int64, error)
	// NextIDBatch n超出实现允许的范围时返回 ErrInvalidBatchSize，
	// 中途失败时返回已生成的部分
	NextIDBatch(n int) ([]int64, error)

	GetWorkerID() int64
	GetDatacenterID() int64

	// GetMetrics 未开启统计时只有 metrics_enabled=0
	GetMetrics() map[string]uint64
	ResetMetrics()
	GetIDCount() uint64

	ParseID(id int64) (*IDInfo, error)
	ValidateID(id int64) error
}

// IGeneratorFactory 按类型注册到 registry，config 为实现自己的配置指针
type IGeneratorFactory interface {
	Create(config any) (IGenerator, error)
}

// IIDValidator 解析前的格式校验
type IIDValidator interface {
	Validate(id int64) error
	ValidateBatch(ids []int64) error
}

// IDInfo 拆解后的ID，接口层直接序列化返回
type IDInfo struct {
	ID           int64 `json:"id,string"`
	Timestamp    int64 `json:"timestamp"` // Unix毫秒
	DatacenterID int64 `json:"datacenter_id"`
	WorkerID     int64 `json:"worker_id"`
	Sequence     int64 `json:"sequence"`
}
