package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payhub/internal/config"
	"payhub/internal/http/handlers"
	middlewarex "payhub/internal/http/middleware"
	"payhub/internal/provider"
	"payhub/internal/services/data"
	paymentsvc "payhub/internal/services/payment"
	webhooksvc "payhub/internal/services/webhook"
	"payhub/internal/store/repositories"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config         config.Cfg
	Registry       *provider.Registry
	PaymentService *paymentsvc.Service
	WebhookService *webhooksvc.Service
	DataService    *data.Service
	Accounts       repositories.AccountRepository
	// Quiet drops chi's per-request access log.
	Quiet bool
}

// NewRouter creates the HTTP router
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	if !deps.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"env":    deps.Config.App.Env,
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Capability discovery (public)
	r.Get("/connectors", handlers.ListConnectors(deps.Registry))
	r.Get("/connectors/{connector}", handlers.GetConnector(deps.Registry))

	// Webhook endpoints (public; the account in the path scopes them)
	r.Post("/webhooks/{connector}/{merchantID}", handlers.ReceiveWebhook(deps.WebhookService))

	// API routes (admin token + merchant scope)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config.Sec.AdminToken))
		r.Use(middlewarex.MerchantScope)

		r.Get("/accounts", handlers.ListAccounts(deps.Accounts, deps.Config.App.BaseURL))
		r.Post("/accounts", handlers.SaveAccount(deps.Registry, deps.Accounts, deps.Config.App.BaseURL))
		r.Delete("/accounts/{connector}", handlers.DeactivateAccount(deps.Registry, deps.Accounts))

		r.Post("/payments", handlers.Authorize(deps.PaymentService))
		r.Get("/payments", handlers.ListAttempts(deps.DataService))
		r.Route("/payments/{attemptID}", func(r chi.Router) {
			r.Get("/", handlers.GetAttempt(deps.DataService))
			r.Post("/capture", handlers.Capture(deps.PaymentService))
			r.Post("/void", handlers.Void(deps.PaymentService))
			r.Post("/sync", handlers.Sync(deps.PaymentService))
			r.Post("/refunds", handlers.Refund(deps.PaymentService))
			r.Post("/refunds/{refundID}/sync", handlers.RefundSync(deps.PaymentService))
		})

		r.Post("/sessions", handlers.Session(deps.PaymentService))
		r.Post("/tokens", handlers.Tokenize(deps.PaymentService))

		r.Get("/connector-events", handlers.ListConnectorEvents(deps.DataService))
		r.Get("/webhook-events", handlers.ListWebhookEvents(deps.DataService))
		r.Post("/webhook-events/replay", handlers.ReplayWebhooks(deps.WebhookService))
	})

	return r
}
