package devserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	statusWarnThreshold  = 400
	statusErrorThreshold = 500
)

// AccessLog is a Gin middleware that logs requests using zerolog.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		evt := log.Info()
		switch {
		case status >= statusErrorThreshold:
			evt = log.Error()
		case status >= statusWarnThreshold:
			evt = log.Warn()
		}

		if raw != "" {
			path = path + "?" + raw
		}

		evt.
			Int("status", status).
			Str("method", method).
			Str("path", path).
			Dur("latency", latency).
			Int("bytes", c.Writer.Size()).
			Msg("request")
	}
}
