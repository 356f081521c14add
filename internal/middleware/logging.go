// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"yourmind-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 这些路径的请求体和响应体含有密码或 token，不写入日志
var sensitivePaths = []string{"/users/login", "/users/register", "/auth/refreshToken"}

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		// WebSocket 升级请求不能替换 ResponseWriter
		if strings.Contains(path, "/ws/") {
			c.Next()
			log.Infow("HTTP Request Log",
				"statusCode", c.Writer.Status(),
				"latency", time.Since(startTime).String(),
				"clientIP", c.ClientIP(),
				"method", c.Request.Method,
				"path", path,
			)
			return
		}

		sensitive := isSensitive(path)
		var requestBody []byte
		if c.Request.Body != nil && !sensitive {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 重新设置请求体，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}
		if !sensitive {
			fields = append(fields, "requestBody", string(requestBody), "responseBody", blw.body.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}

func isSensitive(path string) bool {
	for _, p := range sensitivePaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
