package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"productivity-hub/pkg/idgen/core"
	"productivity-hub/pkg/idgen/snowflake"
	"productivity-hub/pkg/idgen/sonyflake"
)

// FactoryRegistry 按生成器类型索引的工厂表
type FactoryRegistry struct {
	factories map[core.GeneratorType]core.IGeneratorFactory
	mu        sync.RWMutex
}

// NewFactoryRegistry 创建空的工厂注册表
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{
		factories: make(map[core.GeneratorType]core.IGeneratorFactory),
	}
}

// DefaultFactories 返回已注册snowflake与sonyflake工厂的注册表
func DefaultFactories() *FactoryRegistry {
	r := NewFactoryRegistry()
	_ = r.Register(core.GeneratorTypeSnowflake, snowflake.NewFactory())
	_ = r.Register(core.GeneratorTypeSonyflake, sonyflake.NewFactory())
	return r
}

// Register 注册工厂（允许覆盖已有工厂）
func (r *FactoryRegistry) Register(generatorType core.GeneratorType, factory core.IGeneratorFactory) error {
	if !generatorType.IsValid() {
		return fmt.Errorf("%w: %s", core.ErrInvalidGeneratorType, generatorType)
	}
	if factory == nil {
		return errors.New("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[generatorType] = factory
	return nil
}

// Get 获取工厂
func (r *FactoryRegistry) Get(generatorType core.GeneratorType) (core.IGeneratorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[generatorType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrFactoryNotFound, generatorType)
	}
	return factory, nil
}

// List 列出所有已注册的工厂类型
func (r *FactoryRegistry) List() []core.GeneratorType {
	r.mu.RLock()
	types := make([]core.GeneratorType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	r.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
