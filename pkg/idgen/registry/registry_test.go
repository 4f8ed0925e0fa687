package registry_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/pkg/idgen/core"
	"productivity-hub/pkg/idgen/registry"
	"productivity-hub/pkg/idgen/snowflake"
	"productivity-hub/pkg/idgen/sonyflake"
)

// ============================================================================
// 1. Registry基础功能测试
// ============================================================================

func TestRegistry_Create(t *testing.T) {
	r := registry.New()
	config := &snowflake.Config{DatacenterID: 1, WorkerID: 1}

	t.Run("正常创建", func(t *testing.T) {
		gen, err := r.Create("test1", core.GeneratorTypeSnowflake, config)
		require.NoError(t, err)
		assert.Equal(t, int64(1), gen.GetWorkerID())
	})

	t.Run("重复键", func(t *testing.T) {
		_, err := r.Create("test1", core.GeneratorTypeSnowflake, config)
		assert.ErrorIs(t, err, core.ErrGeneratorAlreadyExists)
	})

	t.Run("无效类型", func(t *testing.T) {
		_, err := r.Create("test2", core.GeneratorType("invalid"), config)
		assert.ErrorIs(t, err, core.ErrInvalidGeneratorType)
	})

	t.Run("配置类型不匹配", func(t *testing.T) {
		_, err := r.Create("test3", core.GeneratorTypeSonyflake, config)
		assert.Error(t, err)
		assert.False(t, r.Has("test3"))
	})

	t.Run("Sonyflake生成器", func(t *testing.T) {
		gen, err := r.Create("sony", core.GeneratorTypeSonyflake, &sonyflake.Config{MachineID: 9})
		require.NoError(t, err)
		assert.Equal(t, int64(9), gen.GetWorkerID())
	})
}

func TestRegistry_KeyValidation(t *testing.T) {
	r := registry.New()
	config := &snowflake.Config{}

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"字母数字", "order_service-1.v2", false},
		{"空键", "", true},
		{"冒号", "1:2", true},
		{"空格", "a b", true},
		{"斜杠", "a/b", true},
		{"最大长度", strings.Repeat("k", 256), false},
		{"超长", strings.Repeat("k", 257), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.GetOrCreate(tt.key, core.GeneratorTypeSnowflake, config)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidKey)
				assert.False(t, r.Has(tt.key))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := registry.New()
	config := &snowflake.Config{DatacenterID: 1, WorkerID: 1}

	first, err := r.GetOrCreate("test1", core.GeneratorTypeSnowflake, config)
	require.NoError(t, err)
	second, err := r.GetOrCreate("test1", core.GeneratorTypeSnowflake, &snowflake.Config{WorkerID: 5})
	require.NoError(t, err)
	assert.Same(t, first, second, "已存在的键应返回同一实例")

	got, err := r.Get("test1")
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, core.ErrGeneratorNotFound)
}

func TestRegistry_RemoveAndClear(t *testing.T) {
	r := registry.New()
	for i := 0; i < 3; i++ {
		_, err := r.Create(fmt.Sprintf("gen-%d", i), core.GeneratorTypeSnowflake, &snowflake.Config{WorkerID: int64(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"gen-0", "gen-1", "gen-2"}, r.ListKeys())

	require.NoError(t, r.Remove("gen-1"))
	assert.ErrorIs(t, r.Remove("gen-1"), core.ErrGeneratorNotFound)
	assert.Equal(t, 2, r.Count())

	r.Clear()
	assert.Zero(t, r.Count())
	assert.Empty(t, r.ListKeys())
}

func TestRegistry_MaxGenerators(t *testing.T) {
	r := registry.New(registry.WithMaxGenerators(2))
	assert.Equal(t, 2, r.GetMaxGenerators())

	_, err := r.Create("a", core.GeneratorTypeSnowflake, &snowflake.Config{})
	require.NoError(t, err)
	_, err = r.Create("b", core.GeneratorTypeSnowflake, &snowflake.Config{})
	require.NoError(t, err)
	_, err = r.Create("c", core.GeneratorTypeSnowflake, &snowflake.Config{})
	assert.ErrorIs(t, err, core.ErrMaxGeneratorsReached)

	assert.Error(t, r.SetMaxGenerators(0))
	assert.Error(t, r.SetMaxGenerators(100_001))
	assert.Error(t, r.SetMaxGenerators(1), "当前数量超过新上限")
	assert.NoError(t, r.SetMaxGenerators(10))

	_, err = r.Create("c", core.GeneratorTypeSnowflake, &snowflake.Config{})
	assert.NoError(t, err)
}

func TestFactoryRegistry(t *testing.T) {
	f := registry.DefaultFactories()
	assert.Equal(t, []core.GeneratorType{core.GeneratorTypeSnowflake, core.GeneratorTypeSonyflake}, f.List())

	assert.Error(t, f.Register(core.GeneratorTypeSnowflake, nil))
	assert.ErrorIs(t, f.Register("custom", snowflake.NewFactory()), core.ErrInvalidGeneratorType)

	empty := registry.NewFactoryRegistry()
	r := registry.New(registry.WithFactories(empty))
	_, err := r.Create("x", core.GeneratorTypeSnowflake, &snowflake.Config{})
	assert.ErrorIs(t, err, core.ErrFactoryNotFound)
}

// ============================================================================
// 2. 并发测试
// ============================================================================

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	r := registry.New()

	const goroutines = 100
	gens := make([]core.IGenerator, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gen, err := r.GetOrCreate("shared", core.GeneratorTypeSnowflake, &snowflake.Config{WorkerID: 3})
			if err != nil {
				t.Error(err)
				return
			}
			gens[i] = gen
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, r.Count())
	for _, g := range gens {
		assert.Same(t, gens[0], g)
	}
}

func TestRegistry_ConcurrentIDGeneration(t *testing.T) {
	r := registry.New()
	const keys = 4
	const perKey = 5000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, keys*perKey)
	var wg sync.WaitGroup
	for k := 0; k < keys; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			gen, err := r.GetOrCreate(fmt.Sprintf("worker-%d", k), core.GeneratorTypeSnowflake,
				&snowflake.Config{WorkerID: int64(k)})
			if err != nil {
				t.Error(err)
				return
			}
			ids, err := gen.NextIDBatch(perKey)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}(k)
	}
	wg.Wait()

	assert.Len(t, seen, keys*perKey, "不同worker生成的ID不应冲突")
}

func BenchmarkRegistry_Get(b *testing.B) {
	r := registry.New()
	_, _ = r.Create("bench", core.GeneratorTypeSnowflake, &snowflake.Config{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Get("bench")
	}
}

func BenchmarkRegistry_GetOrCreateParallel(b *testing.B) {
	r := registry.New()
	config := &snowflake.Config{}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = r.GetOrCreate("bench", core.GeneratorTypeSnowflake, config)
		}
	})
}
