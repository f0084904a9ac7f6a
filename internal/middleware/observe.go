package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/health"
	"github.com/offolaunch/launchtrack/internal/ids"
	"github.com/offolaunch/launchtrack/internal/types"
	"go.uber.org/zap"
)

const slowRequest = time.Second

// RequestID tags each request with an id, reusing one sent by the client.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(types.RequestIDHeader)
		if id == "" {
			id = ids.New()
		}
		ctx.Set(types.ContextRequestIDKey, id)
		ctx.Header(types.RequestIDHeader, id)
		ctx.Next()
	}
}

// Observe logs every request and feeds the route monitors. Server errors
// also go to the error-rate window.
func Observe(lg *zap.SugaredLogger, metrics *health.Metrics, times *health.ResponseTimes, errs *health.ErrorRate) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		var finish func(method, route string, status int, elapsed time.Duration)
		if metrics != nil {
			finish = metrics.RequestStarted()
		}

		ctx.Next()

		elapsed := time.Since(start)
		status := ctx.Writer.Status()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		key := ctx.Request.Method + " " + route

		if finish != nil {
			finish(ctx.Request.Method, route, status, elapsed)
		}
		if times != nil {
			times.Record(key, elapsed)
		}
		if errs != nil && status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if len(ctx.Errors) > 0 {
				msg = ctx.Errors.Last().Error()
			}
			errs.Record(msg, key)
		}

		fields := []interface{}{
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", ctx.GetString(types.ContextRequestIDKey),
		}
		switch {
		case status >= http.StatusInternalServerError:
			lg.Errorw("request failed", fields...)
		case elapsed > slowRequest:
			lg.Warnw("slow request", fields...)
		default:
			lg.Debugw("request", fields...)
		}
	}
}
