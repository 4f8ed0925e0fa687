package registry

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"

	"productivity-hub/pkg/idgen/core"
)

const (
	// DefaultMaxGenerators 默认最大生成器数量
	DefaultMaxGenerators = 100

	// absoluteMaxGenerators 绝对上限，SetMaxGenerators也不能超过
	absoluteMaxGenerators = 100_000

	// maxKeyLength 键的最大长度
	maxKeyLength = 256
)

// keyFormatRegex 允许字母、数字、下划线、连字符、点
var keyFormatRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// Registry 按键管理生成器实例
type Registry struct {
	generators    map[string]core.IGenerator
	factories     *FactoryRegistry
	maxGenerators int
	logger        *zap.Logger
	mu            sync.RWMutex
}

// Option 注册表选项
type Option func(*Registry)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxGenerators 设置容量，超出绝对上限时截断
func WithMaxGenerators(max int) Option {
	return func(r *Registry) {
		if max > absoluteMaxGenerators {
			max = absoluteMaxGenerators
		}
		if max > 0 {
			r.maxGenerators = max
		}
	}
}

// WithFactories 使用自定义工厂注册表
func WithFactories(factories *FactoryRegistry) Option {
	return func(r *Registry) {
		if factories != nil {
			r.factories = factories
		}
	}
}

// New 创建生成器注册表
func New(opts ...Option) *Registry {
	r := &Registry{
		generators:    make(map[string]core.IGenerator),
		factories:     DefaultFactories(),
		maxGenerators: DefaultMaxGenerators,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create 创建并注册一个新的生成器，键已存在时返回错误
func (r *Registry) Create(key string, generatorType core.GeneratorType, config any) (core.IGenerator, error) {
	// 步骤1：验证参数
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !generatorType.IsValid() {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidGeneratorType, generatorType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// 步骤2：检查key是否已存在
	if _, exists := r.generators[key]; exists {
		return nil, fmt.Errorf("%w: key '%s'", core.ErrGeneratorAlreadyExists, key)
	}

	return r.createLocked(key, generatorType, config)
}

// Get 获取已注册的生成器
func (r *Registry) Get(key string) (core.IGenerator, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	generator, exists := r.generators[key]
	if !exists {
		return nil, fmt.Errorf("%w: key '%s'", core.ErrGeneratorNotFound, key)
	}
	return generator, nil
}

// GetOrCreate 获取生成器，不存在则创建
func (r *Registry) GetOrCreate(key string, generatorType core.GeneratorType, config any) (core.IGenerator, error) {
	// 步骤1：验证参数
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !generatorType.IsValid() {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidGeneratorType, generatorType)
	}

	// 步骤2：读锁快速路径
	r.mu.RLock()
	generator, exists := r.generators[key]
	r.mu.RUnlock()
	if exists {
		return generator, nil
	}

	// 步骤3：写锁下二次检查
	r.mu.Lock()
	defer r.mu.Unlock()
	if generator, exists := r.generators[key]; exists {
		return generator, nil
	}

	return r.createLocked(key, generatorType, config)
}

// createLocked 调用者必须持有写锁
func (r *Registry) createLocked(key string, generatorType core.GeneratorType, config any) (core.IGenerator, error) {
	if len(r.generators) >= r.maxGenerators {
		return nil, fmt.Errorf("%w: current %d, max %d",
			core.ErrMaxGeneratorsReached, len(r.generators), r.maxGenerators)
	}

	factory, err := r.factories.Get(generatorType)
	if err != nil {
		return nil, err
	}

	generator, err := factory.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	r.generators[key] = generator
	r.logger.Info("id generator registered",
		zap.String("key", key),
		zap.Stringer("type", generatorType),
		zap.Int64("worker_id", generator.GetWorkerID()),
		zap.Int64("datacenter_id", generator.GetDatacenterID()))

	return generator, nil
}

// Has 检查生成器是否存在
func (r *Registry) Has(key string) bool {
	if err := validateKey(key); err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.generators[key]
	return exists
}

// Remove 移除生成器
func (r *Registry) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.generators[key]; !exists {
		return fmt.Errorf("%w: key '%s'", core.ErrGeneratorNotFound, key)
	}
	delete(r.generators, key)

	r.logger.Info("id generator removed", zap.String("key", key))
	return nil
}

// Clear 清空所有生成器
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generators = make(map[string]core.IGenerator)
}

// Count 获取生成器数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.generators)
}

// ListKeys 按字典序列出所有生成器的键
func (r *Registry) ListKeys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.generators))
	for key := range r.generators {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// SetMaxGenerators 设置最大生成器数量
func (r *Registry) SetMaxGenerators(max int) error {
	if max <= 0 {
		return fmt.Errorf("max generators must be positive, got %d", max)
	}
	if max > absoluteMaxGenerators {
		return fmt.Errorf("max generators cannot exceed absolute limit %d, got %d",
			absoluteMaxGenerators, max)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.generators) > max {
		return fmt.Errorf("current generator count %d exceeds new max %d",
			len(r.generators), max)
	}
	r.maxGenerators = max
	return nil
}

// GetMaxGenerators 获取最大生成器数量
func (r *Registry) GetMaxGenerators() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.maxGenerators
}

// validateKey 验证键的有效性
func validateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: key cannot be empty", core.ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key too long (max %d), got %d",
			core.ErrInvalidKey, maxKeyLength, len(key))
	}
	if !keyFormatRegex.MatchString(key) {
		return fmt.Errorf("%w: key '%s' contains invalid characters",
			core.ErrInvalidKey, key)
	}
	return nil
}
