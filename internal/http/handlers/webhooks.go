package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"payhub/internal/domain/webhook"
	middlewarex "payhub/internal/http/middleware"
	webhooksvc "payhub/internal/services/webhook"
)

const maxWebhookBody = 1 << 20

// ReceiveWebhook accepts a connector notification for one merchant account.
// Connectors retry on anything but 2xx, so an event that was stored but not
// understood still answers 200.
func ReceiveWebhook(svc *webhooksvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		req := &webhook.Request{
			Method:      r.Method,
			URI:         r.URL.Path,
			Headers:     r.Header.Clone(),
			QueryParams: r.URL.RawQuery,
			Body:        body,
		}

		ev, err := svc.Receive(r.Context(), chi.URLParam(r, "connector"), chi.URLParam(r, "merchantID"), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"event_id": ev.ID,
			"result":   string(ev.ProcessingStatus),
		})
	}
}

// ReplayWebhooks re-applies stored webhooks, by id or by time window.
func ReplayWebhooks(svc *webhooksvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}

		var requestData struct {
			EventIDs []string `json:"event_ids,omitempty"`
			SinceISO string   `json:"since,omitempty"` // RFC3339
			UntilISO string   `json:"until,omitempty"` // RFC3339
			Max      int      `json:"max,omitempty"`   // default 200, max 1000
		}
		if err := decode(r, &requestData); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		req := webhooksvc.ReplayRequest{
			EventIDs: requestData.EventIDs,
			Max:      requestData.Max,
		}
		if requestData.SinceISO != "" {
			t, err := time.Parse(time.RFC3339, requestData.SinceISO)
			if err != nil {
				http.Error(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
			req.Since = &t
		}
		if requestData.UntilISO != "" {
			t, err := time.Parse(time.RFC3339, requestData.UntilISO)
			if err != nil {
				http.Error(w, "until must be RFC3339", http.StatusBadRequest)
				return
			}
			req.Until = &t
		}

		response, err := svc.Replay(r.Context(), merchantID, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}
