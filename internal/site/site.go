// Package site builds one website's request-handling chain: static assets,
// well-known resources, scoped middleware, API endpoints and the SPA
// fallback, assembled in a fixed order and mounted onto the shared server.
package site

import (
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sitemux/sitemux/internal/classify"
	"github.com/sitemux/sitemux/internal/endpoints"
	"github.com/sitemux/sitemux/internal/middleware"
	"github.com/sitemux/sitemux/internal/server"
	"github.com/sitemux/sitemux/internal/spa"
	"github.com/sitemux/sitemux/internal/static"
	"github.com/sitemux/sitemux/internal/wellknown"
)

// MiddlewareSpec is one site-supplied request interceptor. Path, when set,
// has the form "METHOD /url-path" and restricts where the handler runs; an
// empty Path runs it for every request the site owns.
type MiddlewareSpec struct {
	Path    string
	Handler middleware.Middleware
}

// Config is the construction input for one site. It is consumed by New and
// never mutated afterwards.
type Config struct {
	// Domain identifies the site and drives ownership matching. Required.
	Domain string
	// MultiSite enables hostname/path-prefix ownership checks. When false
	// every request belongs to this site.
	MultiSite bool
	// Production selects the dist asset root and disables the
	// development-mode asset path rewriting in the SPA shell.
	Production bool
	// APIBasePath is normalized to a leading slash. Default "/api".
	APIBasePath string
	// SitesBaseDir is the directory holding per-domain asset roots.
	// Default "sites".
	SitesBaseDir string
	// SharedData is merged into every endpoint invocation, overridden
	// key-by-key by each endpoint's own data.
	SharedData map[string]any

	Endpoints  []endpoints.Spec
	Middleware []MiddlewareSpec

	// Logger receives the access log. Defaults to a nop logger.
	Logger *zap.Logger
}

// Site is an immutable, loaded-once website chain.
type Site struct {
	domain     string
	multiSite  bool
	assetsRoot string
	handler    http.Handler
}

// New validates cfg and assembles the site's chain. Configuration problems
// are reported as *ConfigurationError; a site that fails construction is
// never loaded.
func New(cfg Config) (*Site, error) {
	if cfg.Domain == "" {
		return nil, &ConfigurationError{Reason: `"domain" is required`}
	}

	apiBase := cfg.APIBasePath
	if apiBase == "" {
		apiBase = "/api"
	}
	if !strings.HasPrefix(apiBase, "/") {
		apiBase = "/" + apiBase
	}

	baseDir := cfg.SitesBaseDir
	if baseDir == "" {
		baseDir = "sites"
	}
	sub := "public"
	if cfg.Production {
		sub = "dist"
	}
	assetsRoot := filepath.Join(baseDir, cfg.Domain, sub)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry, err := endpoints.NewRegistry(cfg.Domain, apiBase, cfg.MultiSite, cfg.SharedData, cfg.Endpoints)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.AccessLog(logger, cfg.Domain),
		static.Gate(assetsRoot),
	)
	for _, spec := range cfg.Middleware {
		scoped, err := middleware.Scope(spec.Path, spec.Handler)
		if err != nil {
			return nil, &ConfigurationError{Reason: err.Error()}
		}
		chain = chain.Append(scoped)
	}
	chain = chain.Append(
		wellknown.Gate(assetsRoot),
		registry.Guard(),
	)

	fallback := spa.Fallback(spa.Config{
		Domain:     cfg.Domain,
		AssetsRoot: assetsRoot,
		Production: cfg.Production,
		MultiSite:  cfg.MultiSite,
	})

	return &Site{
		domain:     cfg.Domain,
		multiSite:  cfg.MultiSite,
		assetsRoot: assetsRoot,
		handler:    chain.Then(registry.Handler(fallback)),
	}, nil
}

// Domain returns the site's domain.
func (s *Site) Domain() string { return s.domain }

// AssetsRoot returns the derived asset root directory.
func (s *Site) AssetsRoot() string { return s.assetsRoot }

// Classify decides whether a request belongs to this site. The result is
// computed once per dispatch attempt and attached to the request context by
// the server.
func (s *Site) Classify(r *http.Request) classify.Classification {
	return classify.Classify(r.Host, r.URL.Path, s.domain, s.multiSite)
}

// ServeHTTP runs the site chain. The server only dispatches owned requests
// here; the gates re-check ownership from the context themselves.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Load mounts the site onto the shared server. Calling Load twice mounts
// the chain twice; that is a caller error and is not guarded.
func (s *Site) Load(srv *server.Server) {
	srv.Mount(s)
}
