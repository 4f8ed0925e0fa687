package server

import (
	"github.com/gin-gonic/gin"

	"productivity-hub/internal/announcement"
)

func (s *Server) registerAnnouncement(api *gin.RouterGroup) {
	if s.svc.Announcement == nil {
		return
	}
	g := api.Group("/announcements")
	g.GET("", s.pageAnnouncements)
	g.POST("", s.createAnnouncement)
	g.GET("/unread", s.unreadAnnouncements)
	g.GET("/:id", s.getAnnouncement)
	g.PUT("/:id", s.updateAnnouncement)
	g.DELETE("/:id", s.deleteAnnouncement)
	g.POST("/:id/publish", s.publishAnnouncement)
	g.POST("/:id/withdraw", s.withdrawAnnouncement)
	g.POST("/:id/read", s.readAnnouncement)
	g.GET("/:id/stats", s.announcementStats)
}

func (s *Server) pageAnnouncements(c *gin.Context) {
	pageNum, pageSize, err := pageQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := s.svc.Announcement.Page(c.Request.Context(), pageNum, pageSize, c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}

func (s *Server) createAnnouncement(c *gin.Context) {
	var dto announcement.CreateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Announcement.Create(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) unreadAnnouncements(c *gin.Context) {
	list, err := s.svc.Announcement.Unread(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) getAnnouncement(c *gin.Context) {
	vo, err := s.svc.Announcement.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) updateAnnouncement(c *gin.Context) {
	var dto announcement.UpdateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Announcement.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) deleteAnnouncement(c *gin.Context) {
	if err := s.svc.Announcement.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) publishAnnouncement(c *gin.Context) {
	vo, err := s.svc.Announcement.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) withdrawAnnouncement(c *gin.Context) {
	vo, err := s.svc.Announcement.Withdraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) readAnnouncement(c *gin.Context) {
	if err := s.svc.Announcement.MarkRead(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) announcementStats(c *gin.Context) {
	stats, err := s.svc.Announcement.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, stats)
}
