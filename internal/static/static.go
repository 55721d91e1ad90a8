// Package static serves a site's asset files under the /static path prefix.
package static

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/sitemux/sitemux/internal/classify"
	"github.com/sitemux/sitemux/internal/middleware"
)

const marker = "static"

// Gate intercepts owned requests under /static or /{domain}/static and
// resolves them against assetsRoot. A missing file is a terminal 404; an
// existing file is served from disk. Requests outside the static prefix, and
// requests not owned by the site, continue down the chain.
func Gate(assetsRoot string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := classify.FromContext(r.Context())
			if !ok || !c.Owned {
				next.ServeHTTP(w, r)
				return
			}

			segments := c.SitePath()
			if len(segments) == 0 || segments[0] != marker {
				next.ServeHTTP(w, r)
				return
			}

			rel, ok := safeJoin(segments[1:])
			if !ok {
				// Traversal attempts look like any other missing file.
				http.NotFound(w, r)
				return
			}

			full := filepath.Join(assetsRoot, filepath.FromSlash(rel))
			f, err := os.Open(full)
			if err != nil {
				http.NotFound(w, r)
				return
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil || info.IsDir() {
				http.NotFound(w, r)
				return
			}
			// ServeContent rather than ServeFile: no index.html redirect
			// handling, content type and ranges still apply.
			http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		})
	}
}

// safeJoin rebuilds a relative path from segments, rejecting anything that
// would escape the asset root.
func safeJoin(segments []string) (string, bool) {
	for _, seg := range segments {
		if seg == ".." {
			return "", false
		}
	}
	return path.Join(segments...), true
}
