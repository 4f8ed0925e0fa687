package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen/core"
)

// Response 统一响应体
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: errs.CodeOK, Message: "success", Data: data})
}

// fail 按错误码渲染，5xx 记录底层错误
func (s *Server) fail(c *gin.Context, err error) {
	err = mapIDGenError(err)
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, Response{Code: errs.Code(err), Message: errs.Message(err)})
}

// mapIDGenError ID参数类错误视为400
func mapIDGenError(err error) error {
	for _, target := range []error{
		core.ErrInvalidWorkerID,
		core.ErrInvalidDatacenterID,
		core.ErrInvalidBatchSize,
		core.ErrInvalidSnowflakeID,
	} {
		if errors.Is(err, target) {
			return errs.Wrap(errs.CodeBadRequest, err.Error(), err)
		}
	}
	return err
}

func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return errs.Wrap(errs.CodeBadRequest, "invalid request body", err)
	}
	return nil
}

// queryInt 参数缺失时返回def
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, exists := c.GetQuery(key)
	if !exists || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Newf(errs.CodeBadRequest, "query %s must be an integer", key)
	}
	return n, nil
}

func pageQuery(c *gin.Context) (pageNum, pageSize int, err error) {
	if pageNum, err = queryInt(c, "pageNum", 0); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(c, "pageSize", 0); err != nil {
		return 0, 0, err
	}
	return pageNum, pageSize, nil
}

// queryBool 参数缺失时返回nil
func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, exists := c.GetQuery(key)
	if !exists || raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.Newf(errs.CodeBadRequest, "query %s must be a boolean", key)
	}
	return &b, nil
}
