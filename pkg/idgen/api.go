package idgen

import (
	"fmt"

	"go.uber.org/zap"

	"productivity-hub/pkg/idgen/core"
	"productivity-hub/pkg/idgen/registry"
	"productivity-hub/pkg/idgen/snowflake"
)

// maxCachedWorkers worker(32) x datacenter(32) 的全部组合
const maxCachedWorkers = (snowflake.MaxWorkerID + 1) * (snowflake.MaxDatacenterID + 1)

// Config ID服务配置
type Config struct {
	// WorkerID 默认工作机器ID
	WorkerID int64 `mapstructure:"worker_id"`
	// DatacenterID 默认数据中心ID
	DatacenterID int64 `mapstructure:"datacenter_id"`
	// ClockBackwardStrategy error | wait | use_last_timestamp
	ClockBackwardStrategy string `mapstructure:"clock_backward_strategy"`
	// ClockBackwardToleranceMs 等待策略的容忍时间
	ClockBackwardToleranceMs int64 `mapstructure:"clock_backward_tolerance_ms"`
	// EnableMetrics 是否收集生成统计
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// IDGenerator 业务模块使用的字符串ID生成接口
type IDGenerator interface {
	GenerateID() (string, error)
}

var _ IDGenerator = (*Service)(nil)

// Service 分布式ID生成服务（Snowflake）
// 默认组合使用同一个实例，其它worker/datacenter组合首次使用时创建并缓存
type Service struct {
	defaultGen core.IGenerator
	registry   *registry.Registry
	base       snowflake.Config
	workerID   int64
	dcID       int64
	logger     *zap.Logger
}

// NewService 创建ID生成服务
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	strategy, err := core.ParseClockBackwardStrategy(cfg.ClockBackwardStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.ClockBackwardStrategy)
	}

	s := &Service{
		registry: registry.New(
			registry.WithLogger(logger),
			registry.WithMaxGenerators(maxCachedWorkers),
		),
		base: snowflake.Config{
			ClockBackwardStrategy:  strategy,
			ClockBackwardTolerance: cfg.ClockBackwardToleranceMs,
			EnableMetrics:          cfg.EnableMetrics,
			Logger:                 logger,
		},
		workerID: cfg.WorkerID,
		dcID:     cfg.DatacenterID,
		logger:   logger,
	}

	s.defaultGen, err = s.generator(cfg.WorkerID, cfg.DatacenterID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NextID 使用默认组合生成ID
func (s *Service) NextID() (ID, error) {
	id, err := s.defaultGen.NextID()
	if err != nil {
		return 0, err
	}
	return ID(id), nil
}

// GenerateID 使用默认组合生成ID的字符串形式
func (s *Service) GenerateID() (string, error) {
	id, err := s.NextID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GeneratorID 使用指定worker/datacenter生成ID的字符串形式
func (s *Service) GeneratorID(workerID, datacenterID int64) (string, error) {
	gen := s.defaultGen
	if workerID != s.workerID || datacenterID != s.dcID {
		var err error
		gen, err = s.generator(workerID, datacenterID)
		if err != nil {
			return "", err
		}
	}

	id, err := gen.NextID()
	if err != nil {
		return "", err
	}
	return ID(id).String(), nil
}

// NextIDBatch 使用指定组合批量生成ID
func (s *Service) NextIDBatch(workerID, datacenterID int64, n int) (IDSlice, error) {
	gen, err := s.generator(workerID, datacenterID)
	if err != nil {
		return nil, err
	}
	raw, err := gen.NextIDBatch(n)
	ids := make(IDSlice, len(raw))
	for i, id := range raw {
		ids[i] = ID(id)
	}
	return ids, err
}

// Metrics 默认生成器的运行指标
func (s *Service) Metrics() map[string]uint64 {
	return s.defaultGen.GetMetrics()
}

// CachedWorkers 已缓存的worker/datacenter组合
func (s *Service) CachedWorkers() []string {
	return s.registry.ListKeys()
}

// generator 获取或创建指定组合的生成器
func (s *Service) generator(workerID, datacenterID int64) (core.IGenerator, error) {
	cfg := s.base
	cfg.WorkerID = workerID
	cfg.DatacenterID = datacenterID
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return s.registry.GetOrCreate(workerKey(workerID, datacenterID), core.GeneratorTypeSnowflake, &cfg)
}

// workerKey 注册表键 "w<worker>-d<datacenter>"
func workerKey(workerID, datacenterID int64) string {
	return fmt.Sprintf("w%d-d%d", workerID, datacenterID)
}
