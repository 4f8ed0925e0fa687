package generator

import "time"

// Status 模块配置状态
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusDisabled Status = "DISABLED"
)

// IdGeneratorInfoPO 业务模块的worker/datacenter分配
type IdGeneratorInfoPO struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ModuleKey    string    `gorm:"size:128;not null;index" json:"moduleKey"`
	WorkerID     int64     `gorm:"not null" json:"workerId"`
	DatacenterID int64     `gorm:"not null" json:"datacenterId"`
	Status       Status    `gorm:"size:16;not null;index" json:"status"`
	Remark       string    `gorm:"size:255" json:"remark"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (IdGeneratorInfoPO) TableName() string {
	return "id_generator_info"
}

// Models 需要迁移的表
func Models() []any {
	return []any{&IdGeneratorInfoPO{}}
}
