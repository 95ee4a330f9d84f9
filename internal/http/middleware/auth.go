package middlewarex

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderMerchantID names the merchant an admin call acts for.
const HeaderMerchantID = "X-Merchant-ID"

// AdminAuth guards routes with the static admin bearer token. An empty
// token locks the routes entirely.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			got := strings.TrimPrefix(auth, "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MerchantScope reads the merchant from X-Merchant-ID into the context.
func MerchantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := strings.TrimSpace(r.Header.Get(HeaderMerchantID))
		if m == "" {
			http.Error(w, "missing "+HeaderMerchantID, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithMerchantID(r.Context(), m)))
	})
}
