package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"productivity-hub/internal/errs"
	"productivity-hub/internal/todo"
	"productivity-hub/pkg/types"
)

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) registerTodo(api *gin.RouterGroup) {
	if s.svc.Todo == nil {
		return
	}
	g := api.Group("/todo")

	g.GET("/modules", s.listTodoModules)
	g.POST("/modules", s.createTodoModule)
	g.PUT("/modules", s.updateTodoModule)
	g.DELETE("/modules/:id", s.deleteTodoModule)

	g.GET("/tasks", s.listTasks)
	g.GET("/tasks/page", s.pageTasks)
	g.GET("/tasks/active", s.activeTask)
	g.GET("/tasks/:id", s.getTask)
	g.GET("/tasks/:id/events", s.taskEvents)
	g.POST("/tasks", s.createTask)
	g.PUT("/tasks", s.updateTask)
	g.DELETE("/tasks/:id", s.deleteTask)
	g.POST("/tasks/batch-delete", s.batchDeleteTasks)
	g.POST("/tasks/:id/start", s.taskAction(s.svc.Todo.StartTask))
	g.POST("/tasks/:id/resume", s.taskAction(s.svc.Todo.ResumeTask))
	g.POST("/tasks/:id/complete", s.taskAction(s.svc.Todo.CompleteTask))
	g.POST("/tasks/:id/pause", s.pauseTask)
	g.POST("/tasks/:id/interrupt", s.interruptTask)

	g.GET("/stats", s.todoStats)
	g.POST("/import", s.importTasks)
}

func (s *Server) listTodoModules(c *gin.Context) {
	list, err := s.svc.Todo.ListModules(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) createTodoModule(c *gin.Context) {
	var dto todo.ModuleCreateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Todo.CreateModule(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) updateTodoModule(c *gin.Context) {
	var dto todo.ModuleUpdateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Todo.UpdateModule(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) deleteTodoModule(c *gin.Context) {
	if err := s.svc.Todo.DeleteModule(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) listTasks(c *gin.Context) {
	var q todo.TaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, errs.Wrap(errs.CodeBadRequest, "invalid query", err))
		return
	}
	list, err := s.svc.Todo.ListTasks(c.Request.Context(), currentUser(c), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) pageTasks(c *gin.Context) {
	var q todo.TaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.fail(c, errs.Wrap(errs.CodeBadRequest, "invalid query", err))
		return
	}
	page, err := s.svc.Todo.PageTasks(c.Request.Context(), currentUser(c), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}

// activeTask 没有进行中的任务时 data 为空
func (s *Server) activeTask(c *gin.Context) {
	vo, err := s.svc.Todo.ActiveTask(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) getTask(c *gin.Context) {
	vo, err := s.svc.Todo.GetTask(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) taskEvents(c *gin.Context) {
	list, err := s.svc.Todo.ListEvents(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) createTask(c *gin.Context) {
	var dto todo.TaskCreateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Todo.CreateTask(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) updateTask(c *gin.Context) {
	var dto todo.TaskUpdateDTO
	if err := bindJSON(c, &dto); err != nil {
		s.fail(c, err)
		return
	}
	vo, err := s.svc.Todo.UpdateTask(c.Request.Context(), &dto, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.svc.Todo.DeleteTask(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) batchDeleteTasks(c *gin.Context) {
	var req idsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.svc.Todo.BatchDeleteTasks(c.Request.Context(), req.IDs, currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

// taskAction 只需要任务ID的状态操作
func (s *Server) taskAction(action func(ctx context.Context, id, userID string) (*todo.TaskVO, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		vo, err := action(c.Request.Context(), c.Param("id"), currentUser(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, vo)
	}
}

// pauseTask 用户手动暂停
func (s *Server) pauseTask(c *gin.Context) {
	vo, err := s.svc.Todo.PauseTask(c.Request.Context(), c.Param("id"), currentUser(c), false)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

func (s *Server) interruptTask(c *gin.Context) {
	var dto todo.TaskInterruptDTO
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &dto); err != nil {
			s.fail(c, err)
			return
		}
	}
	vo, err := s.svc.Todo.InterruptTask(c.Request.Context(), c.Param("id"), currentUser(c), &dto, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, vo)
}

// todoStats start/end 为 yyyy-MM-dd 或 yyyy-MM-dd HH:mm:ss
func (s *Server) todoStats(c *gin.Context) {
	start, err := parseQueryTime(c, "start", false)
	if err != nil {
		s.fail(c, err)
		return
	}
	end, err := parseQueryTime(c, "end", true)
	if err != nil {
		s.fail(c, err)
		return
	}
	stats, err := s.svc.Todo.Stats(c.Request.Context(), currentUser(c), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, stats)
}

func (s *Server) importTasks(c *gin.Context) {
	var items []todo.ImportItemDTO
	if err := bindJSON(c, &items); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.svc.Todo.ImportTasks(c.Request.Context(), currentUser(c), items)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, result)
}

// parseQueryTime 只有日期时 endOfDay 取当天最后一刻
func parseQueryTime(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if d, err := time.ParseInLocation(time.DateOnly, raw, time.Local); err == nil {
		if endOfDay {
			d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &d, nil
	}
	t, err := types.ParseDateTime(raw, time.Local)
	if err != nil {
		return nil, errs.Newf(errs.CodeBadRequest, "query %s: %v", key, err)
	}
	return t, nil
}
