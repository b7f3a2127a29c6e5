package health

import (
	"encoding/json"
	"net/http"
)

type ReadinessReporter interface {
	Endpoint() string
}

// Readiness reports the download endpoint the service forwards to.
func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status   string `json:"status"`
			Endpoint string `json:"endpoint,omitempty"`
		}
		out := resp{Status: "not_ready"}
		ep := ""
		if rr != nil {
			ep = rr.Endpoint()
		}
		if ep != "" {
			out.Status = "ready"
			out.Endpoint = ep
		}
		w.Header().Set("Content-Type", "application/json")
		if ep == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
