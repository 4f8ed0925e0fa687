package server

import (
	"github.com/gin-gonic/gin"

	"productivity-hub/internal/monitor"
)

func (s *Server) registerMonitor(api *gin.RouterGroup) {
	if s.svc.Monitor == nil {
		return
	}
	g := api.Group("/monitor")
	g.GET("/system", s.systemMetrics)
	g.GET("/application", s.applicationMetrics)
	g.GET("/alerts", s.listAlerts)
	g.POST("/alerts/check", s.checkAlerts)
	g.POST("/alerts/:id/handle", s.handleAlert)
	g.GET("/rules", s.listAlertRules)
	g.POST("/rules", s.addAlertRule)
	g.DELETE("/rules/:id", s.deleteAlertRule)
}

func (s *Server) systemMetrics(c *gin.Context) {
	vo, err := s.svc.Monitor.SystemMetrics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) applicationMetrics(c *gin.Context) {
	ok(c, s.svc.Monitor.ApplicationMetrics())
}

// listAlerts handled 为空时返回全部
func (s *Server) listAlerts(c *gin.Context) {
	handled, err := queryBool(c, "handled")
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.svc.Monitor.Alerts(c.Request.Context(), handled)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) checkAlerts(c *gin.Context) {
	n, err := s.svc.Monitor.CheckAndTriggerAlerts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"triggered": n})
}

func (s *Server) handleAlert(c *gin.Context) {
	if err := s.svc.Monitor.HandleAlert(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) listAlertRules(c *gin.Context) {
	list, err := s.svc.Monitor.Rules(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) addAlertRule(c *gin.Context) {
	var dto monitor.AlertRuleDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	rule, err := s.svc.Monitor.AddRule(c.Request.Context(), &dto)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, rule)
}

func (s *Server) deleteAlertRule(c *gin.Context) {
	if err := s.svc.Monitor.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}
