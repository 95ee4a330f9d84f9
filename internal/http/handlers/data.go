package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middlewarex "payhub/internal/http/middleware"
	"payhub/internal/services/data"
)

// ListAttempts handles attempt listing requests using the data service
func ListAttempts(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}

		response, err := dataService.ListAttempts(r.Context(), merchantID, parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// GetAttempt returns one attempt with its connector call log.
func GetAttempt(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}

		response, err := dataService.GetAttempt(r.Context(), merchantID, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func ListConnectorEvents(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}

		response, err := dataService.ListConnectorEvents(r.Context(), merchantID, parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// ListWebhookEvents handles webhook listing requests using the data service
func ListWebhookEvents(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}

		response, err := dataService.ListWebhookEvents(r.Context(), merchantID, parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// parseListRequest parses HTTP query parameters into ListRequest
func parseListRequest(r *http.Request) data.ListRequest {
	req := data.ListRequest{}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}

	return req
}
