package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/core/reconcile"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/provider"
	"payhub/internal/provider/base"
	"payhub/internal/provider/catalog"
	paymentsvc "payhub/internal/services/payment"
	"payhub/internal/store/memory"
	"payhub/internal/store/repositories"
)

// TestConnectorPipelineIntegration runs an authorize and a background sync
// through the real HTTP executor against a local phonypay.
func TestConnectorPipelineIntegration(t *testing.T) {
	var syncs atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "sk_test_int" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"bad key"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/payments":
			_, _ = w.Write([]byte(`{"id":"txn_int","status":"processing"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/payments/txn_int":
			syncs.Add(1)
			_, _ = w.Write([]byte(`{"id":"txn_int","status":"succeeded"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found"}}`))
		}
	}))
	defer upstream.Close()

	cfg := config.Cfg{
		App:            config.AppCfg{Env: "test", Port: "8080"},
		Sec:            config.SecurityCfg{AESKey: make([]byte, 32)},
		Connectors:     config.Connectors{"phonypay": {BaseURL: upstream.URL + "/"}},
		TestConnectors: []string{"phonypay"},
		Reconcile:      config.ReconcileCfg{Batch: 10, Concurrency: 2, SyncDelay: time.Millisecond, MaxSyncs: 5},
	}

	registry := provider.NewProviderRegistry(cfg)
	if err := catalog.Register(registry); err != nil {
		t.Fatalf("register catalog: %v", err)
	}
	if !registry.Enabled(enums.DummyConnector1) {
		t.Fatal("phonypay should be enabled")
	}
	if registry.Enabled(enums.DummyConnector2) {
		t.Fatal("fauxpay should stay disabled")
	}

	ctx := context.Background()
	store := memory.New()
	acct, err := credential.NewAccount("acc_1", "m1", enums.DummyConnector1, credential.HeaderKey("sk_test_int"))
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := store.Accounts().Save(ctx, acct); err != nil {
		t.Fatalf("save account: %v", err)
	}

	exec := base.NewHTTPClient("integration", 5, 0).WithTransport(upstream.Client())
	svc := paymentsvc.NewService(paymentsvc.Deps{
		Registry:   registry,
		Connectors: cfg.Connectors,
		Executor:   exec,
		Sink:       connector.MultiSink{connector.LogSink{}, repositories.NewEventSink(store.ConnectorEvents())},
		Attempts:   store.Attempts(),
		Accounts:   store.Accounts(),
		Tokens:     store.Tokens(),
		SyncDelay:  time.Millisecond,
	})

	res, err := svc.Authorize(ctx, paymentsvc.AuthorizeRequest{
		MerchantID: "m1",
		PaymentID:  "pay_int",
		Connector:  "phonypay",
		Amount:     2500,
		Currency:   payment.EUR,
		PaymentMethod: payment.PaymentMethodData{
			Type: enums.PaymentMethodCard,
			Card: &payment.Card{Number: "4242424242424242", ExpMonth: "01", ExpYear: "2031", CVC: "999"},
		},
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if res.Attempt.Status != payment.StatusPending || res.Attempt.ConnectorTransactionID != "txn_int" {
		t.Fatalf("unexpected attempt after authorize: %+v", res.Attempt)
	}

	time.Sleep(5 * time.Millisecond)
	worker := reconcile.NewWorker(store.Attempts(), svc, cfg.Reconcile)
	n, err := worker.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if n != 1 || syncs.Load() != 1 {
		t.Fatalf("synced %d attempts with %d upstream calls", n, syncs.Load())
	}

	got, err := store.Attempts().FindByID(ctx, res.Attempt.ID)
	if err != nil {
		t.Fatalf("find attempt: %v", err)
	}
	if got.Status != payment.StatusCharged || got.NextSyncAt != nil {
		t.Fatalf("attempt not settled: %+v", got)
	}

	events, err := store.ConnectorEvents().FindByPayment(ctx, "m1", "pay_int")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 connector events, got %d", len(events))
	}
	raw, err := json.Marshal(events)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	for _, secret := range []string{"4242424242424242", "sk_test_int", `"999"`} {
		if strings.Contains(string(raw), secret) {
			t.Fatalf("connector events leak %q", secret)
		}
	}
}
