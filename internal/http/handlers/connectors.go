package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"payhub/internal/provider"
)

// ListConnectors returns the capability profile of every connector.
func ListConnectors(reg *provider.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := reg.Capabilities()
		if r.URL.Query().Get("enabled") == "true" {
			kept := caps[:0]
			for _, c := range caps {
				if c.Enabled {
					kept = append(kept, c)
				}
			}
			caps = kept
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": caps})
	}
}

func GetConnector(reg *provider.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "connector")
		for _, c := range reg.Capabilities() {
			if c.Connector == name {
				writeJSON(w, http.StatusOK, c)
				return
			}
		}
		writeError(w, r, &provider.ProviderError{
			Code:    provider.ErrConnectorNotFound,
			Message: "unknown connector " + name,
		})
	}
}
