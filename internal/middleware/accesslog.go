package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusCapture records the status code written by downstream handlers.
type statusCapture struct {
	http.ResponseWriter
	statusCode int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.statusCode = code
	sc.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request handled by a site chain.
func AccessLog(logger *zap.Logger, domain string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sc := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sc, r)

			logger.Info("request",
				zap.String("site", domain),
				zap.String("method", r.Method),
				zap.String("host", r.Host),
				zap.String("path", r.URL.Path),
				zap.Int("status", sc.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}
