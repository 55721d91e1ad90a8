package faults

import (
	"encoding/json"
	"net/http"
	"time"
)

// configRequest is the body of POST /_admin/faults.
type configRequest struct {
	Site        string `json:"site"`
	Path        string `json:"path"`
	FailPercent int    `json:"fail_percent"`
	SlowMs      int    `json:"slow_ms"`
	DropPercent int    `json:"drop_percent"`
	DurationSec int    `json:"duration_sec"` // 0 = manual recovery only
}

type statusResponse struct {
	Stats Stats `json:"stats"`
}

// Register mounts the fault admin handlers onto mux.
func (c *Controller) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /_admin/faults", c.handleConfigure)
	mux.HandleFunc("POST /_admin/faults/recover", c.handleRecover)
	mux.HandleFunc("GET /_admin/faults/status", c.handleStatus)
}

func (c *Controller) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Site == "" {
		http.Error(w, "missing site", http.StatusBadRequest)
		return
	}

	cfg := Config{
		Enabled:   true,
		Path:      req.Path,
		ErrorRate: req.FailPercent,
		DropRate:  req.DropPercent,
		Delay:     time.Duration(req.SlowMs) * time.Millisecond,
	}
	if req.DurationSec > 0 {
		cfg.ExpiresAt = time.Now().Add(time.Duration(req.DurationSec) * time.Second)
	}
	c.Set(req.Site, cfg)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "faults enabled"})
}

func (c *Controller) handleRecover(w http.ResponseWriter, r *http.Request) {
	c.Clear()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "faults cleared"})
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{Stats: c.Snapshot()})
}
