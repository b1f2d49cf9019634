package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an id, reusing the caller's if present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog writes one structured line per request once it has finished
func accessLog(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"client_ip":  c.ClientIP(),
			"bytes":      c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		logger.LogRequest(l, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), fields)
	}
}

// recovery turns a handler panic into a 500 so one bad request never takes
// the server down
func recovery(l logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		l.ErrorWithFields("Handler panicked", map[string]interface{}{
			"panic":      err,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// cors allows the wall to be opened from anywhere and answers preflights
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Range")
		h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
