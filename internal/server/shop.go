package server

import "github.com/gin-gonic/gin"

func (s *Server) registerShop(api *gin.RouterGroup) {
	if s.svc.Shop == nil {
		return
	}
	api.GET("/tools/shop/commodities", s.listCommodities)
}

// listCommodities 每次请求都实时拉取上游
func (s *Server) listCommodities(c *gin.Context) {
	items, err := s.svc.Shop.FetchCommodities(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, items)
}
