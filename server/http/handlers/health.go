package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienstroheker/pairrelay/internal/logging"
)

// HealthStatus is the body of a /healthz response
type HealthStatus struct {
	Status    string `json:"status"`
	Transport string `json:"transport"`
	Addr      string `json:"addr"`
}

// NewHealthHandler reports that the relay process is up and where peers connect
func NewHealthHandler(transport, addr string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}

		err := json.NewEncoder(w).Encode(HealthStatus{
			Status:    "ok",
			Transport: transport,
			Addr:      addr,
		})
		if err != nil {
			logging.FromContext(r.Context()).Debug("Failed to write health response", logging.Error(err))
		}
	}
}
