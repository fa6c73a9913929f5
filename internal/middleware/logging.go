package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/pkg/logger"
	"github.com/psds-microservice/consultation-service/pkg/metrics"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	correlationIDKey    = "correlation_id"
)

// Logging логирует каждый запрос и пишет метрики; correlation id берётся из заголовка или генерируется.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set(correlationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)

		c.Next()

		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		s := SessionFrom(c)

		log.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", duration),
			zap.String("correlation_id", correlationID),
			zap.String("user_id", s.UserID),
			zap.String("role", string(s.Role)),
			zap.String("remote_addr", c.ClientIP()),
		)

		metrics.RecordRequest(c.Request.Method, path, strconv.Itoa(status), duration.Seconds())
	}
}

// CorrelationID возвращает id, назначенный в Logging, если он есть.
func CorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}
