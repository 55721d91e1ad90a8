package site

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitemux/sitemux/internal/endpoints"
	"github.com/sitemux/sitemux/internal/middleware"
	"github.com/sitemux/sitemux/internal/server"
)

// writeSite lays out <base>/<domain>/public with an index.html and a static
// asset, mirroring the filesystem layout the system consumes.
func writeSite(t *testing.T, base, domain, title string) {
	t.Helper()
	root := filepath.Join(base, domain, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))

	shell := fmt.Sprintf(`<html><head><title>%s</title><link href="/static/css/main.css"></head></html>`, title)
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(shell), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "main.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "robots.txt"), []byte("User-agent: *"), 0o644))
}

func get(t *testing.T, h http.Handler, host, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, "GET", host, path)
}

func do(t *testing.T, h http.Handler, method, host, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	r.Host = host
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestNewRequiresDomain(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, `"domain" is required`, err.Error())
}

func TestNewRejectsMalformedEndpointPath(t *testing.T) {
	_, err := New(Config{
		Domain: "site-1",
		Endpoints: []endpoints.Spec{
			{Path: "/no-method", Handler: func(c *endpoints.Context) {}},
		},
	})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "/no-method")
}

func TestAssetsRootDerivation(t *testing.T) {
	s, err := New(Config{Domain: "site-1", SitesBaseDir: "/srv/www"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/www", "site-1", "public"), s.AssetsRoot())

	s, err = New(Config{Domain: "site-1", SitesBaseDir: "/srv/www", Production: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/www", "site-1", "dist"), s.AssetsRoot())
}

func TestSingleSiteServesShellAtRoot(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	s, err := New(Config{Domain: "site-1", SitesBaseDir: base})
	require.NoError(t, err)

	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Site 1</title>")
}

func TestMultiSiteDispatchByPathPrefix(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")
	writeSite(t, base, "site-2", "Site 2")

	srv := server.New()
	for _, domain := range []string{"site-1", "site-2"} {
		s, err := New(Config{Domain: domain, SitesBaseDir: base, MultiSite: true})
		require.NoError(t, err)
		s.Load(srv)
	}

	rec := get(t, srv, "localhost", "/site-2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Site 2</title>")

	rec = get(t, srv, "localhost", "/site-1")
	assert.Contains(t, rec.Body.String(), "<title>Site 1</title>")

	// Unclaimed requests reach the terminal 404.
	rec = get(t, srv, "localhost", "/site-3")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMultiSiteDispatchByHostname(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "example.com", "Example")

	s, err := New(Config{Domain: "example.com", SitesBaseDir: base, MultiSite: true})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	for _, host := range []string{"example.com", "www.example.com", "example.com:8080"} {
		rec := get(t, srv, host, "/")
		assert.Equal(t, http.StatusOK, rec.Code, "host %s", host)
		assert.Contains(t, rec.Body.String(), "<title>Example</title>")
	}
}

func TestStaticAssetsAndMisses(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	s, err := New(Config{Domain: "site-1", SitesBaseDir: base})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/static/css/main.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())

	// A static miss is terminal, never the SPA shell.
	rec = get(t, srv, "localhost", "/static/missing.js")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<title>")
}

func TestWellKnownResources(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	s, err := New(Config{Domain: "site-1", SitesBaseDir: base})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	rec = get(t, srv, "localhost", "/sitemap.xml")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownAPIRouteIs404NotShell(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	s, err := New(Config{
		Domain:       "site-1",
		SitesBaseDir: base,
		Endpoints: []endpoints.Spec{
			{Path: "GET /api/items", Handler: func(c *endpoints.Context) {
				fmt.Fprint(c.Writer, "items")
			}},
		},
	})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/api/items")
	assert.Equal(t, "items", rec.Body.String())

	rec = get(t, srv, "localhost", "/api/other")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<title>")

	// Non-API unknown paths still get the shell.
	rec = get(t, srv, "localhost", "/client/route")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Site 1</title>")
}

func TestEndpointIsolationBetweenSites(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")
	writeSite(t, base, "site-2", "Site 2")

	srv := server.New()
	for _, domain := range []string{"site-1", "site-2"} {
		domain := domain
		s, err := New(Config{
			Domain:       domain,
			SitesBaseDir: base,
			MultiSite:    true,
			Endpoints: []endpoints.Spec{
				{Path: "GET /api/whoami", Handler: func(c *endpoints.Context) {
					fmt.Fprint(c.Writer, domain)
				}},
			},
		})
		require.NoError(t, err)
		s.Load(srv)
	}

	rec := get(t, srv, "localhost", "/site-1/api/whoami")
	assert.Equal(t, "site-1", rec.Body.String())

	rec = get(t, srv, "localhost", "/site-2/api/whoami")
	assert.Equal(t, "site-2", rec.Body.String())
}

func TestMiddlewareScoping(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	var scopedRuns, globalRuns []string
	record := func(log *[]string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*log = append(*log, r.URL.Path)
				next.ServeHTTP(w, r)
			})
		}
	}

	s, err := New(Config{
		Domain:       "site-1",
		SitesBaseDir: base,
		Middleware: []MiddlewareSpec{
			{Path: "GET /x", Handler: record(&scopedRuns)},
			{Handler: record(&globalRuns)},
		},
	})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	get(t, srv, "localhost", "/x")
	get(t, srv, "localhost", "/y")

	assert.Equal(t, []string{"/x"}, scopedRuns)
	assert.Equal(t, []string{"/x", "/y"}, globalRuns)
}

func TestMiddlewareRunsBeforeEndpointDispatch(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	var order []string
	s, err := New(Config{
		Domain:       "site-1",
		SitesBaseDir: base,
		Middleware: []MiddlewareSpec{
			{Handler: func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, "middleware")
					next.ServeHTTP(w, r)
				})
			}},
		},
		Endpoints: []endpoints.Spec{
			{Path: "GET /api/items", Handler: func(c *endpoints.Context) {
				order = append(order, "endpoint")
			}},
		},
	})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	get(t, srv, "localhost", "/api/items")
	assert.Equal(t, []string{"middleware", "endpoint"}, order)
}

func TestAPIBasePathNormalization(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	// Missing leading slash is tolerated.
	s, err := New(Config{
		Domain:       "site-1",
		SitesBaseDir: base,
		APIBasePath:  "backend",
		Endpoints: []endpoints.Spec{
			{Path: "GET /backend/items", Handler: func(c *endpoints.Context) {
				fmt.Fprint(c.Writer, "items")
			}},
		},
	})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/backend/items")
	assert.Equal(t, "items", rec.Body.String())

	rec = get(t, srv, "localhost", "/backend/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDevShellRewriteThroughFullChain(t *testing.T) {
	base := t.TempDir()
	writeSite(t, base, "site-1", "Site 1")

	s, err := New(Config{Domain: "site-1", SitesBaseDir: base, MultiSite: true})
	require.NoError(t, err)
	srv := server.New()
	s.Load(srv)

	rec := get(t, srv, "localhost", "/site-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/site-1/static/css/main.css"`)
}
