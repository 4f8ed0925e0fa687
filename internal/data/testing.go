package data

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"productivity-hub/internal/config"
)

var memSeq atomic.Int64

// NewTestDB 为测试创建独立的sqlite内存库并建表
func NewTestDB(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:hubtest%d?mode=memory&cache=shared", memSeq.Add(1))
	db, err := OpenDB(config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, models...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
