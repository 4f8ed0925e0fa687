// Package app 组装各模块并管理后台任务的生命周期。
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"productivity-hub/internal/announcement"
	"productivity-hub/internal/config"
	"productivity-hub/internal/data"
	"productivity-hub/internal/generator"
	"productivity-hub/internal/image"
	"productivity-hub/internal/message"
	"productivity-hub/internal/monitor"
	"productivity-hub/internal/notification"
	"productivity-hub/internal/server"
	"productivity-hub/internal/shop"
	"productivity-hub/internal/todo"
	"productivity-hub/internal/user"
	"productivity-hub/pkg/idgen"
)

// generator 模块缓存的redis键前缀
const moduleCachePrefix = "hub:idgen:module:"

// App 进程内的全部服务
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Server       *server.Server
	IDs          *idgen.Service
	Announcement *announcement.Service
	Monitor      *monitor.Service
	Hub          *notification.Hub
	ShopPusher   *shop.Pusher // 未开启库存播报时为nil
}

// Models 全部需要迁移的表
func Models() []any {
	var models []any
	for _, group := range [][]any{
		user.Models(),
		generator.Models(),
		todo.Models(),
		announcement.Models(),
		notification.Models(),
		message.Models(),
		monitor.Models(),
		image.Models(),
	} {
		models = append(models, group...)
	}
	return models
}

// New 打开存储并组装服务，cleanup 按创建的逆序释放资源
func New(cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	d, cleanupData, err := data.NewData(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := data.Migrate(d.DB, Models()...); err != nil {
			cleanupData()
			return nil, nil, err
		}
	}

	ids, err := idgen.NewService(cfg.IDGen, logger)
	if err != nil {
		cleanupData()
		return nil, nil, err
	}

	var cache generator.Cache = generator.NewMemoryCache()
	if d.Redis != nil {
		cache = generator.NewRedisCache(d.Redis, moduleCachePrefix)
	}

	var events notification.EventPublisher = notification.NopPublisher{}
	if cfg.Kafka.Enabled {
		events = notification.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, cfg.Kafka.WriteTimeout)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		idgen.NewCollector(ids),
	)

	hub := notification.NewHub(logger, nil)
	notifications := notification.NewService(d.DB, ids, hub, events, logger)
	users := user.NewDirectory(d.DB)

	recorder := monitor.NewRecorder(cfg.Monitor.SampleWindow, reg)
	mon := monitor.NewService(d.DB, recorder, monitor.NewHostSampler(cfg.Monitor.DiskPath, reg, logger), notifications, logger,
		monitor.WithAlertUser(cfg.Monitor.AlertUserID),
		monitor.WithDedupe(cfg.Monitor.AlertDedupe),
	)
	notices := announcement.NewService(d.DB, ids, users, notifications, logger)
	messages := message.NewService(d.DB, ids, message.NewConfigStore(d.DB, ids), message.DefaultChannels(cfg.Message.HTTPTimeout), logger)
	commodities := shop.NewService(cfg.Shop, logger)

	var pusher *shop.Pusher
	if cfg.Shop.PushEnabled {
		loc := time.Local
		if cfg.Shop.PushTimezone != "" {
			if loc, err = time.LoadLocation(cfg.Shop.PushTimezone); err != nil {
				_ = events.Close()
				cleanupData()
				return nil, nil, fmt.Errorf("load shop push timezone: %w", err)
			}
		}
		pusher = shop.NewPusher(commodities, messages, logger, shop.WithPushLocation(loc))
	}

	srv, err := server.New(cfg, server.Services{
		IDs:          ids,
		Generator:    generator.NewService(d.DB, cache, ids, logger),
		Todo:         todo.NewService(d.DB, ids, logger),
		Announcement: notices,
		Notification: notifications,
		Hub:          hub,
		Message:      messages,
		Monitor:      mon,
		Image:        image.NewService(d.DB, ids, logger, image.WithShareBasePath(cfg.Image.ShareBasePath)),
		Shop:         commodities,
		Users:        users,
	}, reg, logger)
	if err != nil {
		_ = events.Close()
		cleanupData()
		return nil, nil, err
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		Server:       srv,
		IDs:          ids,
		Announcement: notices,
		Monitor:      mon,
		Hub:          hub,
		ShopPusher:   pusher,
	}
	cleanup := func() {
		hub.Close()
		if err := events.Close(); err != nil {
			logger.Error("close event publisher", zap.Error(err))
		}
		cleanupData()
	}
	return a, cleanup, nil
}

// Run 启动后台任务和HTTP服务，ctx取消后等待后台任务退出
func (a *App) Run(ctx context.Context) error {
	if err := a.Monitor.EnsureDefaultRules(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 间隔<=0 的后台任务不启动
	var wg sync.WaitGroup
	if interval := a.cfg.Monitor.AlertInterval; interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Monitor.Run(ctx, interval)
		}()
	}
	if interval := a.cfg.Notice.ScheduleInterval; interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Announcement.RunScheduler(ctx, interval)
		}()
	}
	if a.ShopPusher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.ShopPusher.Run(ctx)
		}()
	}

	err := a.Server.Run(ctx)
	cancel()
	wg.Wait()
	a.logger.Info("background jobs stopped")
	return err
}
