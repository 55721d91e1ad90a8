// Package analytics records per-site request counters in redis and exposes
// them through the server admin mux.
package analytics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Recorder struct {
	redis *redis.Client
}

func New(rdb *redis.Client) *Recorder {
	return &Recorder{redis: rdb}
}

// Record bumps the counters for one handled request. Errors are swallowed;
// analytics must never fail a request.
func (a *Recorder) Record(ctx context.Context, domain, path string, duration time.Duration, statusCode int) {
	reqKey := "analytics:req:" + domain + ":" + path
	a.redis.Incr(ctx, reqKey)

	latKey := "analytics:lat:" + domain + ":" + path
	a.redis.Set(ctx, latKey, duration.Milliseconds(), time.Hour)

	if statusCode >= 400 {
		errKey := "analytics:err:" + domain + ":" + path
		a.redis.Incr(ctx, errKey)
	}
}

// PathStats are the counters kept per request path.
type PathStats struct {
	Requests  int   `json:"requests"`
	Errors    int   `json:"errors"`
	LatencyMs int64 `json:"latency_ms"`
}

// Fetch returns the per-path stats recorded for one site.
func (a *Recorder) Fetch(ctx context.Context, domain string) (map[string]PathStats, error) {
	result := make(map[string]PathStats)

	prefix := "analytics:req:" + domain + ":"
	keys, err := a.redis.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		path := strings.TrimPrefix(k, prefix)

		val, _ := a.redis.Get(ctx, k).Result()
		requests, _ := strconv.Atoi(val)

		errVal, _ := a.redis.Get(ctx, "analytics:err:"+domain+":"+path).Result()
		errors, _ := strconv.Atoi(errVal)

		latVal, _ := a.redis.Get(ctx, "analytics:lat:"+domain+":"+path).Result()
		latency, _ := strconv.ParseInt(latVal, 10, 64)

		result[path] = PathStats{Requests: requests, Errors: errors, LatencyMs: latency}
	}
	return result, nil
}
