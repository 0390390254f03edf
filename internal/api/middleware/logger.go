package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"permguard-lab/pkg/logger"
)

// Logger returns a middleware that logs each request once it completes.
// Server errors log at error level and client errors at warn.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	log = log.WithComponent("http")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				reqLog := log.WithRequestID(middleware.GetReqID(r.Context()))
				var event *zerolog.Event
				switch {
				case status >= 500:
					event = reqLog.Error()
				case status >= 400:
					event = reqLog.Warn()
				default:
					event = reqLog.Info()
				}

				event.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
