// Package faults injects configurable failures into site chains for
// resilience drills: artificial delay, error responses and dropped requests,
// togglable at runtime through the admin mux.
package faults

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sitemux/sitemux/internal/middleware"
)

// Config is one site's active fault injection.
type Config struct {
	Enabled bool
	// Path restricts injection to one request path; empty hits all paths.
	Path      string
	Delay     time.Duration
	ErrorRate int // percent of requests answered 503
	DropRate  int // percent of requests answered 504
	ExpiresAt time.Time
}

// Stats tracks injection outcomes across all sites.
type Stats struct {
	TotalRequests   int64
	DelayedRequests int64
	FailedRequests  int64
	DroppedRequests int64
	LastRecovery    time.Time
	LastInjection   time.Time
}

// Controller holds per-site fault configs.
type Controller struct {
	mu      sync.RWMutex
	configs map[string]Config
	stats   Stats
	logger  *zap.Logger
}

func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		configs: make(map[string]Config),
		logger:  logger,
	}
}

// Set activates fault injection for one site.
func (c *Controller) Set(domain string, cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[domain] = cfg
	if cfg.Enabled {
		c.stats.LastInjection = time.Now()
	}
}

// Get returns the site's config, expiring it lazily when its deadline has
// passed.
func (c *Controller) Get(domain string) Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.configs[domain]
	if cfg.Enabled && !cfg.ExpiresAt.IsZero() && time.Now().After(cfg.ExpiresAt) {
		delete(c.configs, domain)
		c.stats.LastRecovery = time.Now()
		return Config{}
	}
	return cfg
}

// Clear disables injection for every site.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs = make(map[string]Config)
	c.stats.LastRecovery = time.Now()
}

func (c *Controller) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *Controller) count(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Middleware applies the site's active fault config to each request.
func (c *Controller) Middleware(domain string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := c.Get(domain)
			c.count(&c.stats.TotalRequests)

			if !cfg.Enabled || (cfg.Path != "" && cfg.Path != r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.Delay > 0 {
				c.count(&c.stats.DelayedRequests)
				c.logger.Info("fault injected",
					zap.String("site", domain),
					zap.String("kind", "delay"),
					zap.Duration("delay", cfg.Delay))
				select {
				case <-time.After(cfg.Delay):
				case <-r.Context().Done():
					return
				}
			}

			if cfg.ErrorRate > 0 && rand.Intn(100) < cfg.ErrorRate {
				c.count(&c.stats.FailedRequests)
				c.logger.Info("fault injected",
					zap.String("site", domain),
					zap.String("kind", "error"))
				http.Error(w, "service unavailable (fault injection)", http.StatusServiceUnavailable)
				return
			}

			if cfg.DropRate > 0 && rand.Intn(100) < cfg.DropRate {
				c.count(&c.stats.DroppedRequests)
				c.logger.Info("fault injected",
					zap.String("site", domain),
					zap.String("kind", "drop"))
				http.Error(w, "request dropped (fault injection)", http.StatusGatewayTimeout)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
