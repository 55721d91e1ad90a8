package analytics

import (
	"net/http"
	"time"

	"github.com/sitemux/sitemux/internal/middleware"
)

type statusCapture struct {
	http.ResponseWriter
	statusCode int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.statusCode = code
	sc.ResponseWriter.WriteHeader(code)
}

// Middleware records one analytics entry per request handled by the site.
func (a *Recorder) Middleware(domain string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sc := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sc, r)

			a.Record(r.Context(), domain, r.URL.Path, time.Since(start), sc.statusCode)
		})
	}
}
