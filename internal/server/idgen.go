package server

import (
	"github.com/gin-gonic/gin"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/idgen/core"
)

// 单次批量生成上限
const maxBatchPerRequest = 1000

type registerModuleRequest struct {
	ModuleKey    string `json:"moduleKey"`
	WorkerID     int64  `json:"workerId"`
	DatacenterID int64  `json:"datacenterId"`
	Remark       string `json:"remark"`
}

type parsedIDResponse struct {
	*core.IDInfo
	Time string `json:"time"`
}

func (s *Server) registerIDGen(api *gin.RouterGroup) {
	if s.svc.IDs != nil {
		g := api.Group("/id")
		g.GET("/next", s.nextID)
		g.GET("/batch", s.batchIDs)
		g.GET("/parse/:id", s.parseID)
		g.GET("/metrics", s.idMetrics)
	}
	if s.svc.Generator != nil {
		m := api.Group("/id/modules")
		m.GET("", s.listIDModules)
		m.POST("", s.registerIDModule)
		m.GET("/:moduleKey/next", s.nextModuleID)
		m.DELETE("/:moduleKey", s.disableIDModule)
	}
}

// nextID 未传worker/datacenter时使用默认组合
func (s *Server) nextID(c *gin.Context) {
	_, hasWorker := c.GetQuery("workerId")
	_, hasDC := c.GetQuery("datacenterId")
	if !hasWorker && !hasDC {
		id, err := s.svc.IDs.GenerateID()
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, gin.H{"id": id})
		return
	}

	workerID, err := queryInt(c, "workerId", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	dcID, err := queryInt(c, "datacenterId", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	id, err := s.svc.IDs.GeneratorID(int64(workerID), int64(dcID))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"id": id})
}

func (s *Server) batchIDs(c *gin.Context) {
	count, err := queryInt(c, "count", 10)
	if err != nil {
		s.fail(c, err)
		return
	}
	if count <= 0 || count > maxBatchPerRequest {
		s.fail(c, errs.Newf(errs.CodeBadRequest, "count must be between 1 and %d", maxBatchPerRequest))
		return
	}
	workerID, err := queryInt(c, "workerId", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	dcID, err := queryInt(c, "datacenterId", 0)
	if err != nil {
		s.fail(c, err)
		return
	}

	ids, err := s.svc.IDs.NextIDBatch(int64(workerID), int64(dcID), count)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"ids": ids})
}

func (s *Server) parseID(c *gin.Context) {
	id, err := idgen.ParseID(c.Param("id"))
	if err != nil {
		s.fail(c, errs.Wrap(errs.CodeBadRequest, "invalid id", err))
		return
	}
	info, err := id.Parse()
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, parsedIDResponse{IDInfo: info, Time: id.Time().Format("2006-01-02 15:04:05.000")})
}

func (s *Server) idMetrics(c *gin.Context) {
	ok(c, gin.H{
		"metrics":       s.svc.IDs.Metrics(),
		"cachedWorkers": s.svc.IDs.CachedWorkers(),
	})
}

func (s *Server) listIDModules(c *gin.Context) {
	list, err := s.svc.Generator.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) registerIDModule(c *gin.Context) {
	var req registerModuleRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	info, err := s.svc.Generator.Register(c.Request.Context(), req.ModuleKey, req.WorkerID, req.DatacenterID, req.Remark)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, info)
}

func (s *Server) nextModuleID(c *gin.Context) {
	id, err := s.svc.Generator.GeneratorID(c.Request.Context(), c.Param("moduleKey"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"id": id})
}

func (s *Server) disableIDModule(c *gin.Context) {
	if err := s.svc.Generator.Disable(c.Request.Context(), c.Param("moduleKey")); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}
