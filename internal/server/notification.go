package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"productivity-hub/internal/notification"
)

func (s *Server) registerNotification(api *gin.RouterGroup) {
	if s.svc.Notification == nil {
		return
	}
	g := api.Group("/notifications")
	g.GET("", s.pageNotifications)
	g.GET("/unread-count", s.unreadNotificationCount)
	g.POST("/:id/read", s.readNotification)
}

// serveWS 升级失败时 websocket 库已写回错误响应
func (s *Server) serveWS(c *gin.Context) {
	clientType := c.DefaultQuery("clientType", notification.ClientWeb)
	if err := s.svc.Hub.ServeWS(c.Writer, c.Request, currentUser(c), clientType); err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("userId", currentUser(c)), zap.Error(err))
	}
}

func (s *Server) pageNotifications(c *gin.Context) {
	pageNum, pageSize, err := pageQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := s.svc.Notification.Page(c.Request.Context(), currentUser(c), pageNum, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}

func (s *Server) unreadNotificationCount(c *gin.Context) {
	n, err := s.svc.Notification.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"count": n})
}

func (s *Server) readNotification(c *gin.Context) {
	if err := s.svc.Notification.MarkRead(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}
