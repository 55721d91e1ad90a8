// Package endpoints binds a site's API and SSR routes onto a request mux and
// guards the API prefix so unknown routes 404 instead of receiving the SPA
// shell.
package endpoints

import (
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/sitemux/sitemux/internal/classify"
	"github.com/sitemux/sitemux/internal/middleware"
)

// Spec declares one endpoint. Path must be "METHOD /url-path"; path segments
// starting with ":" are treated as parameters.
type Spec struct {
	Path    string
	Handler Handler
	Secure  bool
	Data    map[string]any
}

// Context is what an endpoint handler is invoked with.
type Context struct {
	Writer  http.ResponseWriter
	Request *http.Request
	// Secure is the Spec's Secure flag, for authorization layers to consume.
	Secure bool
	// Data is the site's shared data overridden key-by-key by the
	// endpoint's own data.
	Data map[string]any
}

// Handler handles one endpoint invocation.
type Handler func(*Context)

type endpoint struct {
	method  string
	urlPath string
	// base are the url path segments up to the first :param, used by the
	// existence guard.
	base []string
	spec Spec
}

// Registry holds a site's parsed endpoints and their mux bindings.
type Registry struct {
	domain    string
	multiSite bool
	apiBase   []string
	list      []endpoint
	shared    map[string]any
}

// NewRegistry parses and validates the endpoint specs for one site.
// apiBasePath must already carry its leading slash.
func NewRegistry(domain, apiBasePath string, multiSite bool, shared map[string]any, specs []Spec) (*Registry, error) {
	reg := &Registry{
		domain:    domain,
		multiSite: multiSite,
		apiBase:   classify.SplitPath(apiBasePath),
		shared:    shared,
	}
	for _, spec := range specs {
		fields := strings.Fields(spec.Path)
		if len(fields) != 2 {
			return nil, fmt.Errorf("endpoint path %q must be \"METHOD /url-path\"", spec.Path)
		}
		method, urlPath := fields[0], fields[1]
		if !strings.HasPrefix(urlPath, "/") {
			urlPath = "/" + urlPath
		}
		reg.list = append(reg.list, endpoint{
			method:  strings.ToUpper(method),
			urlPath: urlPath,
			base:    baseSegments(urlPath),
			spec:    spec,
		})
	}
	return reg, nil
}

// Handler returns the terminal handler for the site chain: registered
// endpoints are dispatched by method and path (with a domain-scoped variant
// in multi-site mode), everything else goes to fallback.
func (reg *Registry) Handler(fallback http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", fallback)
	for _, ep := range reg.list {
		h := reg.invoke(ep.spec)
		mux.Handle(ep.method+" "+muxPath(ep.urlPath), h)
		if reg.multiSite {
			mux.Handle(ep.method+" /"+reg.domain+muxPath(ep.urlPath), h)
		}
	}
	return mux
}

// invoke adapts a Spec to http.Handler, merging site data under the
// endpoint's own data. The merge happens once, at registration.
func (reg *Registry) invoke(spec Spec) http.Handler {
	data := make(map[string]any, len(reg.shared)+len(spec.Data))
	maps.Copy(data, reg.shared)
	maps.Copy(data, spec.Data)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spec.Handler(&Context{
			Writer:  w,
			Request: r,
			Secure:  spec.Secure,
			Data:    data,
		})
	})
}

// guardDepth is how many leading path segments the guard skips looking for
// the API base, tolerating domain prefixing in multi-site mode.
const guardDepth = 2

// Guard rejects owned requests under the API base path that match no
// registered endpoint. Without it an unknown API call would fall through to
// the catch-all and receive the SPA shell with a 200.
//
// Matching is exact-segment prefix matching against each endpoint's path
// with parameter segments stripped, so /api/test-1 never matches an
// endpoint registered at /api/test-12.
func (reg *Registry) Guard() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := classify.FromContext(r.Context())
			if !ok || !c.Owned || len(reg.apiBase) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			for skip := 0; skip <= guardDepth && skip < len(c.Segments); skip++ {
				rest := c.Segments[skip:]
				if !hasPrefix(rest, reg.apiBase) {
					continue
				}
				// It is an API request; require a known endpoint.
				for _, ep := range reg.list {
					if hasPrefix(rest, ep.base) {
						next.ServeHTTP(w, r)
						return
					}
				}
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// baseSegments returns the path's segments up to the first parameter token.
func baseSegments(urlPath string) []string {
	segments := classify.SplitPath(urlPath)
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			return segments[:i]
		}
	}
	return segments
}

// muxPath converts ":param" tokens to the {param} form http.ServeMux uses.
func muxPath(urlPath string) string {
	segments := strings.Split(urlPath, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// hasPrefix reports whether segs begins with prefix, segment by segment.
func hasPrefix(segs, prefix []string) bool {
	if len(segs) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}
