// Package server HTTP 接口层：gin 路由、鉴权和各业务模块的处理函数。
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"productivity-hub/docs"
	"productivity-hub/internal/announcement"
	"productivity-hub/internal/config"
	"productivity-hub/internal/generator"
	"productivity-hub/internal/image"
	"productivity-hub/internal/message"
	"productivity-hub/internal/monitor"
	"productivity-hub/internal/notification"
	"productivity-hub/internal/shop"
	"productivity-hub/internal/todo"
	"productivity-hub/internal/user"
	"productivity-hub/pkg/idgen"
)

// Services 路由依赖的业务服务，为nil的模块不注册路由
type Services struct {
	IDs          *idgen.Service
	Generator    *generator.Service
	Todo         *todo.Service
	Announcement *announcement.Service
	Notification *notification.Service
	Hub          *notification.Hub
	Message      *message.Service
	Monitor      *monitor.Service
	Image        *image.Service
	Shop         *shop.Service
	Users        *user.Directory
}

// Server HTTP 服务
type Server struct {
	cfg      config.ServerConfig
	svc      Services
	tokens   *TokenIssuer
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	engine   *gin.Engine
}

// New 构建路由，gatherer 为nil时使用默认注册表
func New(cfg *config.Config, svc Services, gatherer prometheus.Gatherer, logger *zap.Logger) (*Server, error) {
	tokens, err := NewTokenIssuer(cfg.JWT)
	if err != nil {
		return nil, err
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	s := &Server{
		cfg:      cfg.Server,
		svc:      svc,
		tokens:   tokens,
		gatherer: gatherer,
		logger:   logger.Named("http"),
		engine:   gin.New(),
	}
	s.routes()
	return s, nil
}

// Handler 供 http.Server 和测试使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Tokens 令牌签发器
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Server) routes() {
	r := s.engine
	r.Use(s.recovery(), s.accessLog())
	if s.svc.Monitor != nil {
		r.Use(monitor.Middleware(s.svc.Monitor.Recorder()))
	}

	r.GET("/health", func(c *gin.Context) { ok(c, gin.H{"status": "UP"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	if s.cfg.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))
	}

	// 公开的分享访问
	if s.svc.Image != nil {
		r.GET("/api/images/share/:token", s.accessShared)
		r.GET("/api/images/share/:token/info", s.shareInfo)
	}

	auth := s.authMiddleware()
	if s.svc.Hub != nil {
		r.GET("/ws/notifications", auth, s.serveWS)
	}

	api := r.Group("/api", auth)
	s.registerIDGen(api)
	s.registerTodo(api)
	s.registerAnnouncement(api)
	s.registerNotification(api)
	s.registerMessage(api)
	s.registerMonitor(api)
	s.registerImage(api)
	s.registerShop(api)
}

// Run 监听直到ctx取消，随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
