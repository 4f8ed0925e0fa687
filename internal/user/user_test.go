package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/internal/data"
)

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(data.NewTestDB(t, Models()...))

	require.NoError(t, dir.Touch(ctx, "bob", "Bob"))
	require.NoError(t, dir.Touch(ctx, "alice", "Alice"))
	require.NoError(t, dir.Touch(ctx, "bob", "Bob"), "重复写入")
	require.NoError(t, dir.Touch(ctx, " ", ""), "空ID忽略")

	ids, err := dir.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)

	count, err := dir.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDirectory_UpsertAfterRestart(t *testing.T) {
	ctx := context.Background()
	db := data.NewTestDB(t, Models()...)

	require.NoError(t, NewDirectory(db).Touch(ctx, "carol", "old"))
	// 新实例没有进程内缓存，走冲突更新
	require.NoError(t, NewDirectory(db).Touch(ctx, "carol", "new"))

	var row UserPO
	require.NoError(t, db.First(&row, "id = ?", "carol").Error)
	assert.Equal(t, "new", row.Username)
}
