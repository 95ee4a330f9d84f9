package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	middlewarex "payhub/internal/http/middleware"
	paymentsvc "payhub/internal/services/payment"
)

// Authorize creates an attempt and runs the Authorize flow.
func Authorize(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var req paymentsvc.AuthorizeRequest
		if err := decode(r, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		req.MerchantID = merchantID

		res, err := svc.Authorize(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func Capture(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var req paymentsvc.CaptureRequest
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		req.MerchantID = merchantID
		req.AttemptID = chi.URLParam(r, "attemptID")

		res, err := svc.Capture(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func Void(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var body struct {
			Reason string `json:"reason,omitempty"`
		}
		if err := decodeOptional(r, &body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		res, err := svc.Void(r.Context(), merchantID, chi.URLParam(r, "attemptID"), body.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func Sync(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		res, err := svc.Sync(r.Context(), merchantID, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func Refund(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var req paymentsvc.RefundRequest
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		req.MerchantID = merchantID
		req.AttemptID = chi.URLParam(r, "attemptID")

		res, err := svc.Refund(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func RefundSync(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		req := paymentsvc.RefundSyncRequest{
			MerchantID:        merchantID,
			AttemptID:         chi.URLParam(r, "attemptID"),
			RefundID:          chi.URLParam(r, "refundID"),
			ConnectorRefundID: r.URL.Query().Get("connector_refund_id"),
		}
		res, err := svc.RefundSync(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// flowAnswer is the body of flows that are not tied to an attempt.
type flowAnswer struct {
	Response *payment.ResponseData    `json:"response,omitempty"`
	Error    *connector.ErrorResponse `json:"error,omitempty"`
}

func Session(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var req paymentsvc.SessionRequest
		if err := decode(r, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		req.MerchantID = merchantID

		resp, er, err := svc.Session(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, flowAnswer{Response: resp, Error: er})
	}
}

func Tokenize(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var body struct {
			Connector string `json:"connector"`
			payment.TokenizationData
		}
		if err := decode(r, &body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		resp, er, err := svc.Tokenize(r.Context(), merchantID, body.Connector, body.TokenizationData)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, flowAnswer{Response: resp, Error: er})
	}
}
