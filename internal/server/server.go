// Package server dispatches requests across the mounted site chains.
package server

import (
	"net/http"
	"strings"

	"github.com/sitemux/sitemux/internal/classify"
)

// AdminPrefix is the path prefix reserved for the server's admin surface.
const AdminPrefix = "/_admin/"

// Chain is one mounted site: it can classify a request and, when the
// request is owned, handle it to completion.
type Chain interface {
	Domain() string
	Classify(r *http.Request) classify.Classification
	http.Handler
}

// Server tries each mounted chain in mount order. The first chain that owns
// a request handles it; a request no chain owns gets the terminal 404. The
// dispatch order is the registration order, made explicit here instead of
// relying on handler fallthrough.
type Server struct {
	chains []Chain
	admin  *http.ServeMux
}

func New() *Server {
	return &Server{}
}

// Mount appends a chain. Mounting the same chain twice double-registers it;
// that is a caller error and is not guarded.
func (s *Server) Mount(c Chain) {
	s.chains = append(s.chains, c)
}

// Admin returns the mux behind AdminPrefix, creating it on first use.
func (s *Server) Admin() *http.ServeMux {
	if s.admin == nil {
		s.admin = http.NewServeMux()
	}
	return s.admin
}

// Domains returns the mounted site domains in dispatch order.
func (s *Server) Domains() []string {
	domains := make([]string, len(s.chains))
	for i, c := range s.chains {
		domains[i] = c.Domain()
	}
	return domains
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.admin != nil && strings.HasPrefix(r.URL.Path, AdminPrefix) {
		s.admin.ServeHTTP(w, r)
		return
	}
	for _, c := range s.chains {
		cl := c.Classify(r)
		if !cl.Owned {
			continue
		}
		ctx := classify.WithClassification(r.Context(), cl)
		c.ServeHTTP(w, r.WithContext(ctx))
		return
	}
	http.NotFound(w, r)
}
