package server

import (
	"github.com/gin-gonic/gin"

	"productivity-hub/internal/errs"
	"productivity-hub/internal/image"
)

func (s *Server) registerImage(api *gin.RouterGroup) {
	if s.svc.Image == nil {
		return
	}
	g := api.Group("/images")
	g.POST("", s.createImage)
	g.GET("", s.listImages)
	g.GET("/statistics", s.imageStatistics)
	g.POST("/batch-delete", s.batchDeleteImages)
	g.GET("/:id", s.getImage)
	g.PUT("/:id", s.updateImage)
	g.DELETE("/:id", s.deleteImage)
	g.GET("/:id/access", s.accessImage)
	g.POST("/:id/restore", s.restoreImage)
	g.POST("/:id/archive", s.archiveImage)
	g.POST("/:id/share", s.createShare)
	g.DELETE("/:id/share", s.cancelShare)
}

func (s *Server) createImage(c *gin.Context) {
	var dto image.CreateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Image.Create(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) listImages(c *gin.Context) {
	var q image.QueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, errs.Wrap(errs.CodeInvalidParameter, "invalid query", err))
		return
	}
	page, err := s.svc.Image.List(c.Request.Context(), &q, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}

func (s *Server) imageStatistics(c *gin.Context) {
	stats, err := s.svc.Image.Statistics(c.Request.Context(), currentUser(c), c.Query("startTime"), c.Query("endTime"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, stats)
}

func (s *Server) batchDeleteImages(c *gin.Context) {
	var req idsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	n, err := s.svc.Image.BatchDelete(c.Request.Context(), req.IDs, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": n})
}

func (s *Server) getImage(c *gin.Context) {
	vo, err := s.svc.Image.Get(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) updateImage(c *gin.Context) {
	var dto image.UpdateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Image.Update(c.Request.Context(), c.Param("id"), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) deleteImage(c *gin.Context) {
	if err := s.svc.Image.Delete(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) accessImage(c *gin.Context) {
	vo, err := s.svc.Image.AccessByID(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) restoreImage(c *gin.Context) {
	vo, err := s.svc.Image.Restore(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) archiveImage(c *gin.Context) {
	vo, err := s.svc.Image.Archive(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) createShare(c *gin.Context) {
	var dto image.ShareDTO
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &dto); err != nil {
			s.fail(c, err)
			return
		}
	}
	vo, err := s.svc.Image.CreateShare(c.Request.Context(), c.Param("id"), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) cancelShare(c *gin.Context) {
	if err := s.svc.Image.CancelShare(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

// accessShared 公开访问，计入访问次数
func (s *Server) accessShared(c *gin.Context) {
	vo, err := s.svc.Image.AccessByShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) shareInfo(c *gin.Context) {
	vo, err := s.svc.Image.ShareInfo(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}
