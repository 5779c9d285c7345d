package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBytesReader 限制请求体大小，超限时读取返回 *http.MaxBytesError
func MaxBytesReader(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.Header("Connection", "close")
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
