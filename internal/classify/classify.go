// Package classify decides which site owns an inbound request.
//
// Classification happens once per site-chain attempt; the result is an
// immutable record carried in the request context so every downstream gate
// reads the same answer instead of recomputing (or mutating) it.
package classify

import (
	"context"
	"strings"
)

// key type for context
type contextKey string

const classificationKey contextKey = "classification"

// Classification is the result of matching one request against one site.
type Classification struct {
	// Domain is the site the request was classified against.
	Domain string
	// Segments are the non-empty path components of the request URL.
	Segments []string
	// Owned reports whether the request belongs to the site.
	Owned bool
}

// domainDepth is how deep into the path the site domain may appear as a
// prefix segment: /{domain}/..., plus one extra nesting level tolerated.
const domainDepth = 3

// Classify matches a request's hostname and URL path against a site.
//
// In single-site mode every request is owned. In multi-site mode ownership
// is established either by hostname or by the domain appearing as one of the
// first path segments. The hostname check is substring-based on purpose:
// "www.example.com" and "example.com:8080" both own "example.com". That
// leniency can over-match (a domain that is a substring of another), and is
// kept as documented behavior rather than tightened.
func Classify(hostname, urlPath, domain string, multiSite bool) Classification {
	c := Classification{
		Domain:   domain,
		Segments: SplitPath(urlPath),
	}

	if !multiSite || strings.Contains(hostname, domain) {
		c.Owned = true
		return c
	}
	for i := 0; i < domainDepth && i < len(c.Segments); i++ {
		if c.Segments[i] == domain {
			c.Owned = true
			return c
		}
	}
	return c
}

// SplitPath splits a URL path on "/" and drops empty components.
func SplitPath(urlPath string) []string {
	parts := strings.Split(urlPath, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// SitePath returns the path segments with a leading domain segment removed,
// so gates can reason about site-relative paths regardless of whether the
// request arrived domain-prefixed.
func (c Classification) SitePath() []string {
	if len(c.Segments) > 0 && c.Segments[0] == c.Domain {
		return c.Segments[1:]
	}
	return c.Segments
}

// WithClassification attaches a classification record to the context.
func WithClassification(ctx context.Context, c Classification) context.Context {
	return context.WithValue(ctx, classificationKey, c)
}

// FromContext returns the classification attached to ctx, if any.
func FromContext(ctx context.Context) (Classification, bool) {
	c, ok := ctx.Value(classificationKey).(Classification)
	return c, ok
}
