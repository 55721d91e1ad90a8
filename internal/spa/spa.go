// Package spa serves the single-page-application shell as the terminal
// fallback of a site chain.
package spa

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sitemux/sitemux/internal/classify"
)

const shellFile = "index.html"

// Config describes one site's fallback behavior.
type Config struct {
	Domain     string
	AssetsRoot string
	Production bool
	MultiSite  bool
}

// Fallback returns the terminal handler of a site chain. Owned GET requests
// that no earlier gate claimed receive the shell document; a missing shell
// is a 404. Outside production the shell's asset references are normalized
// between the bare /static form and the domain-scoped /{domain}/static form,
// because the development server does not apply the URL rewriting a
// production build step would.
func Fallback(cfg Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := classify.FromContext(r.Context())
		if !ok || !c.Owned || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}

		body, err := os.ReadFile(filepath.Join(cfg.AssetsRoot, shellFile))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if r.Context().Err() != nil {
			// Client went away while we were reading.
			return
		}
		if !cfg.Production {
			body = RewriteAssetPaths(body, cfg.Domain, cfg.MultiSite)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	})
}

// RewriteAssetPaths normalizes quoted asset references in an HTML document.
// When toDomainScoped is true, "/static/..." becomes "/{domain}/static/...";
// otherwise "/{domain}/static/..." becomes "/static/...".
//
// The rewrite works on parsed path segments of each quoted value, not on raw
// substrings, so it is idempotent and cannot touch "static" appearing
// elsewhere in a URL or in text content.
func RewriteAssetPaths(doc []byte, domain string, toDomainScoped bool) []byte {
	var out strings.Builder
	out.Grow(len(doc))

	s := string(doc)
	for {
		i := strings.IndexAny(s, `"'`)
		if i < 0 {
			out.WriteString(s)
			break
		}
		quote := s[i]
		end := strings.IndexByte(s[i+1:], quote)
		if end < 0 {
			out.WriteString(s)
			break
		}
		value := s[i+1 : i+1+end]
		out.WriteString(s[:i+1])
		out.WriteString(rewritePath(value, domain, toDomainScoped))
		out.WriteByte(quote)
		s = s[i+2+end:]
	}
	return []byte(out.String())
}

func rewritePath(value, domain string, toDomainScoped bool) string {
	if !strings.HasPrefix(value, "/") {
		return value
	}
	segments := classify.SplitPath(value)
	switch {
	case toDomainScoped && len(segments) > 0 && segments[0] == "static":
		segments = append([]string{domain}, segments...)
	case !toDomainScoped && len(segments) > 1 && segments[0] == domain && segments[1] == "static":
		segments = segments[1:]
	default:
		return value
	}
	return "/" + strings.Join(segments, "/")
}
