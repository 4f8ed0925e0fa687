package generator

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"productivity-hub/internal/data"
	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
)

type call struct{ worker, dc int64 }

// recordingSource 记录调用的组合
type recordingSource struct {
	calls []call
}

func (r *recordingSource) GeneratorID(workerID, datacenterID int64) (string, error) {
	r.calls = append(r.calls, call{workerID, datacenterID})
	return strconv.FormatInt(workerID*100+datacenterID, 10), nil
}

// brokenCache 所有操作都失败
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*IdGeneratorInfoPO, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, *IdGeneratorInfoPO) error { return errors.New("cache down") }
func (brokenCache) Delete(context.Context, string) error                  { return errors.New("cache down") }

func newTestService(t *testing.T, cache Cache) (*Service, *recordingSource) {
	t.Helper()
	db := data.NewTestDB(t, Models()...)
	src := &recordingSource{}
	return NewService(db, cache, src, zap.NewNop()), src
}

func TestGeneratorID_EmptyModuleKey(t *testing.T) {
	svc, src := newTestService(t, nil)

	for _, key := range []string{"", "   "} {
		_, err := svc.GeneratorID(context.Background(), key)
		assert.ErrorIs(t, err, ErrModuleKeyEmpty)
	}
	assert.Empty(t, src.calls, "空键不应生成ID")
}

func TestGeneratorID_DefaultWhenNotRegistered(t *testing.T) {
	cache := NewMemoryCache()
	svc, src := newTestService(t, cache)

	id, err := svc.GeneratorID(context.Background(), "todo")
	require.NoError(t, err)
	assert.Equal(t, "0", id)
	assert.Equal(t, []call{{0, 0}}, src.calls)

	_, ok, _ := cache.Get(context.Background(), "todo")
	assert.False(t, ok, "默认组合不写缓存")
}

func TestGeneratorID_RegisteredModule(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	svc, src := newTestService(t, cache)

	_, err := svc.Register(ctx, "image", 3, 7, "image service")
	require.NoError(t, err)

	id, err := svc.GeneratorID(ctx, "image")
	require.NoError(t, err)
	assert.Equal(t, "307", id)

	cached, ok, err := cache.Get(ctx, "image")
	require.NoError(t, err)
	require.True(t, ok, "查库后写入缓存")
	assert.Equal(t, int64(3), cached.WorkerID)

	// 直接改库，缓存仍然生效
	require.NoError(t, svc.db.Model(&IdGeneratorInfoPO{}).Where("module_key = ?", "image").Update("worker_id", 9).Error)
	_, err = svc.GeneratorID(ctx, "image")
	require.NoError(t, err)
	assert.Equal(t, call{3, 7}, src.calls[len(src.calls)-1])
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("覆盖已有配置并清理缓存", func(t *testing.T) {
		cache := NewMemoryCache()
		svc, _ := newTestService(t, cache)

		first, err := svc.Register(ctx, "todo", 1, 1, "")
		require.NoError(t, err)
		_, err = svc.Resolve(ctx, "todo")
		require.NoError(t, err)

		second, err := svc.Register(ctx, "todo", 2, 5, "moved")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		_, ok, _ := cache.Get(ctx, "todo")
		assert.False(t, ok)

		info, err := svc.Resolve(ctx, "todo")
		require.NoError(t, err)
		assert.Equal(t, int64(2), info.WorkerID)
		assert.Equal(t, int64(5), info.DatacenterID)
	})

	t.Run("参数越界", func(t *testing.T) {
		svc, _ := newTestService(t, nil)

		tests := []struct {
			name   string
			key    string
			worker int64
			dc     int64
		}{
			{"空键", "", 0, 0},
			{"worker过大", "a", 32, 0},
			{"worker为负", "a", -1, 0},
			{"datacenter过大", "a", 0, 32},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Register(ctx, tt.key, tt.worker, tt.dc, "")
				require.Error(t, err)
				assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
			})
		}
	})
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	svc, src := newTestService(t, nil)

	_, err := svc.Register(ctx, "message", 4, 4, "")
	require.NoError(t, err)
	require.NoError(t, svc.Disable(ctx, "message"))

	_, err = svc.GeneratorID(ctx, "message")
	require.NoError(t, err)
	assert.Equal(t, call{0, 0}, src.calls[len(src.calls)-1], "停用后回落默认组合")

	err = svc.Disable(ctx, "message")
	assert.Equal(t, errs.CodeNotFound, errs.Code(err))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusDisabled, list[0].Status)
}

func TestResolve_CacheFailureFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, brokenCache{})

	require.NoError(t, svc.db.Create(&IdGeneratorInfoPO{ModuleKey: "monitor", WorkerID: 6, DatacenterID: 1, Status: StatusNormal}).Error)

	info, err := svc.Resolve(ctx, "monitor")
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.WorkerID)
}

func TestGeneratorID_WithIdgenService(t *testing.T) {
	ctx := context.Background()
	db := data.NewTestDB(t, Models()...)
	ids, err := idgen.NewService(idgen.Config{}, nil)
	require.NoError(t, err)
	svc := NewService(db, nil, ids, nil)

	_, err = svc.Register(ctx, "announcement", 5, 2, "")
	require.NoError(t, err)

	raw, err := svc.GeneratorID(ctx, "announcement")
	require.NoError(t, err)

	id, err := idgen.ParseID(raw)
	require.NoError(t, err)
	info, err := id.Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.WorkerID)
	assert.Equal(t, int64(2), info.DatacenterID)
	assert.Contains(t, ids.CachedWorkers(), "w5-d2")
}
