package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"payhub/internal/domain/credential"
	middlewarex "payhub/internal/http/middleware"
	"payhub/internal/masking"
	"payhub/internal/provider"
	"payhub/internal/store/repositories"
)

type saveAccountReq struct {
	Connector     string              `json:"connector"`
	Label         string              `json:"label,omitempty"`
	Auth          credential.AuthType `json:"auth"`
	WebhookSecret string              `json:"webhook_secret,omitempty"`
	TestMode      bool                `json:"test_mode,omitempty"`
}

// accountView never carries credential material.
type accountView struct {
	ID         string              `json:"id"`
	Connector  string              `json:"connector"`
	Label      string              `json:"label,omitempty"`
	AuthType   credential.AuthKind `json:"auth_type"`
	TestMode   bool                `json:"test_mode"`
	Disabled   bool                `json:"disabled"`
	WebhookURL string              `json:"webhook_url"`
}

func newAccountView(a *credential.Account, baseURL string) accountView {
	return accountView{
		ID:         a.ID,
		Connector:  a.Connector.String(),
		Label:      a.Label,
		AuthType:   a.Auth.Kind,
		TestMode:   a.TestMode,
		Disabled:   a.Disabled,
		WebhookURL: strings.TrimRight(baseURL, "/") + "/webhooks/" + a.Connector.String() + "/" + a.MerchantID,
	}
}

// SaveAccount creates or replaces the merchant's account for one connector.
func SaveAccount(reg *provider.Registry, accounts repositories.AccountRepository, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		var in saveAccountReq
		if err := decode(r, &in); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		a, err := reg.GetByName(strings.TrimSpace(in.Connector))
		if err != nil {
			writeError(w, r, err)
			return
		}
		acct, err := credential.NewAccount(uuid.NewString(), merchantID, a.Connector, in.Auth)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorBody{Code: "invalid_account", Message: err.Error()})
			return
		}
		acct.Label = in.Label
		acct.WebhookSecret = masking.Secret(in.WebhookSecret)
		acct.TestMode = in.TestMode

		if err := accounts.Save(r.Context(), acct); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAccountView(acct, baseURL))
	}
}

func ListAccounts(accounts repositories.AccountRepository, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		rows, err := accounts.FindByMerchant(r.Context(), merchantID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]accountView, 0, len(rows))
		for _, a := range rows {
			out = append(out, newAccountView(a, baseURL))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	}
}

func DeactivateAccount(reg *provider.Registry, accounts repositories.AccountRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, ok := middlewarex.MerchantID(r.Context())
		if !ok {
			http.Error(w, "merchant not found", http.StatusUnauthorized)
			return
		}
		a, err := reg.GetByName(chi.URLParam(r, "connector"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := accounts.Deactivate(r.Context(), merchantID, a.Connector); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
