package observability

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sitemux/sitemux/internal/middleware"
)

// Tracing opens a span per request handled by the site chain.
func Tracing(domain string) middleware.Middleware {
	tracer := otel.Tracer("sitemux")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					attribute.String("site.domain", domain),
					attribute.String("http.host", r.Host),
				))
			defer span.End()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
