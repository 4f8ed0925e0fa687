package monitor

import (
	"time"

	"github.com/gin-gonic/gin"
)

// UnmatchedPath 未匹配路由的请求统一记到此路径
const UnmatchedPath = "unmatched"

// Middleware 记录每个请求的路由、结果和耗时，状态码 < 400 视为成功
func Middleware(rec *Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = UnmatchedPath
		}
		rec.RecordRequest(path, c.Writer.Status() < 400, time.Since(start).Milliseconds())
	}
}
