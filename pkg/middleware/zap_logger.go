package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"whatsflow/pkg/logger"
)

// quietPaths are probed too often to be worth an access log line.
var quietPaths = []string{"/health", "/metrics", "/ping", "/favicon.ico"}

// AccessLog logs one line per request, tagged with the correlation id.
// RequestID must run before it.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  quietPaths,
		Context: func(c *gin.Context) []zapcore.Field {
			if id, ok := RequestIDFrom(c); ok {
				return []zapcore.Field{logger.RequestIDField(id)}
			}
			return nil
		},
	})
}
