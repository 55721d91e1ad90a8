// Package wellknown serves the root-level resources crawlers and agents
// expect: sitemap.xml, robots.txt and the .well-known directory.
package wellknown

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/sitemux/sitemux/internal/classify"
	"github.com/sitemux/sitemux/internal/middleware"
)

// allowed is the fixed set of first path segments the gate intercepts.
var allowed = map[string]bool{
	"sitemap.xml": true,
	"robots.txt":  true,
	".well-known": true,
}

// Gate serves the allow-listed root resources from assetsRoot with a
// text/plain content type, 404s when the file is missing, and passes every
// other request down the chain.
func Gate(assetsRoot string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := classify.FromContext(r.Context())
			if !ok || !c.Owned {
				next.ServeHTTP(w, r)
				return
			}

			segments := c.SitePath()
			if len(segments) == 0 || !allowed[segments[0]] {
				next.ServeHTTP(w, r)
				return
			}
			for _, seg := range segments {
				if seg == ".." {
					http.NotFound(w, r)
					return
				}
			}

			full := filepath.Join(assetsRoot, filepath.FromSlash(path.Join(segments...)))
			body, err := os.ReadFile(full)
			if err != nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write(body)
		})
	}
}
