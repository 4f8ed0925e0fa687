package registry

// 未配置时使用的 worker/datacenter 组合
const (
	DefaultWorkerID     int64 = 0
	DefaultDatacenterID int64 = 0
)
