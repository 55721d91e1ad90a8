package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sitemux/sitemux/internal/classify"
)

// Scope wraps a site-supplied middleware so it runs only for requests owned
// by the site, and, when pattern is non-empty, only for requests matching it.
//
// pattern has the form "METHOD /url-path". The path part is matched against
// the tail of the request path, so a pattern "GET /x" fires for "/x" as well
// as the domain-prefixed "/{domain}/x" (or any deeper prefix nesting) that
// multi-site mode produces. An empty pattern scopes to every owned request.
//
// A skipped middleware never runs, not even partially: the request goes
// straight to the next handler in the chain.
func Scope(pattern string, mw Middleware) (Middleware, error) {
	method, segments, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := classify.FromContext(r.Context())
			if !ok || !c.Owned {
				next.ServeHTTP(w, r)
				return
			}
			if pattern != "" && !matches(method, segments, r.Method, c.Segments) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}, nil
}

func parsePattern(pattern string) (method string, segments []string, err error) {
	if pattern == "" {
		return "", nil, nil
	}
	fields := strings.Fields(pattern)
	if len(fields) != 2 {
		return "", nil, fmt.Errorf("middleware path %q must be \"METHOD /url-path\"", pattern)
	}
	return fields[0], classify.SplitPath(fields[1]), nil
}

// matches reports whether the request method and path match the pattern,
// allowing any number of extra leading path segments on the request side.
func matches(method string, patternSegs []string, reqMethod string, reqSegs []string) bool {
	if !strings.EqualFold(method, reqMethod) {
		return false
	}
	if len(reqSegs) < len(patternSegs) {
		return false
	}
	tail := reqSegs[len(reqSegs)-len(patternSegs):]
	for i, seg := range patternSegs {
		if tail[i] != seg {
			return false
		}
	}
	return true
}
