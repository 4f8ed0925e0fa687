// Package data 管理数据库与缓存连接。
package data

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productivity-hub/internal/config"
)

// Data 持有数据库和可选的redis客户端
type Data struct {
	DB    *gorm.DB
	Redis *redis.Client // redis.enabled=false 时为nil
}

// NewData 打开数据库和redis，返回的cleanup负责关闭连接
func NewData(cfg *config.Config, logger *zap.Logger) (*Data, func(), error) {
	db, err := OpenDB(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}

	d := &Data{DB: db}
	if cfg.Redis.Enabled {
		d.Redis = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		defer cancel()
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			// 缓存不可用时降级为直接查库
			logger.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	cleanup := func() {
		logger.Info("closing data resources")
		if d.Redis != nil {
			if err := d.Redis.Close(); err != nil {
				logger.Error("close redis", zap.Error(err))
			}
		}
		if sqlDB, err := d.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error("close database", zap.Error(err))
			}
		}
	}
	return d, cleanup, nil
}

// OpenDB 按驱动打开gorm连接并设置连接池
func OpenDB(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("data: unsupported driver %q", cfg.Driver)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Migrate 自动建表
func Migrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("data: auto migrate: %w", err)
	}
	return nil
}
