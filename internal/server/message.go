package server

import (
	"github.com/gin-gonic/gin"

	"productivity-hub/internal/message"
)

func (s *Server) registerMessage(api *gin.RouterGroup) {
	if s.svc.Message == nil {
		return
	}
	g := api.Group("/messages")
	g.POST("/send", s.sendMessage)
	g.GET("/history", s.messageHistory)
}

// sendMessage 渠道调用失败时仍返回200，结果在 status 中
func (s *Server) sendMessage(c *gin.Context) {
	var dto message.SendDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Message.SendMessage(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) messageHistory(c *gin.Context) {
	pageNum, pageSize, err := pageQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := s.svc.Message.History(c.Request.Context(), pageNum, pageSize, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}
