package analytics

import (
	"encoding/json"
	"net/http"
)

// AdminHandler serves GET /_admin/analytics?site=<domain>.
func AdminHandler(a *Recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain := r.URL.Query().Get("site")
		if domain == "" {
			http.Error(w, "missing site parameter", http.StatusBadRequest)
			return
		}

		stats, err := a.Fetch(r.Context(), domain)
		if err != nil {
			http.Error(w, "analytics unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})
}
