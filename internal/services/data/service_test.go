package data

import (
	"context"
	"errors"
	"testing"

	"payhub/internal/connector"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/store/memory"
	"payhub/internal/store/repositories"
)

func TestListRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         ListRequest
		wantLimit  int
		wantOffset int
	}{
		{ListRequest{}, 50, 0},
		{ListRequest{Limit: 10, Offset: 5}, 10, 5},
		{ListRequest{Limit: 500, Offset: -1}, 200, 0},
	}
	for _, tt := range tests {
		req := tt.in
		req.Validate()
		if req.Limit != tt.wantLimit || req.Offset != tt.wantOffset {
			t.Fatalf("Validate(%+v) = %+v", tt.in, req)
		}
	}
}

func TestGetAttemptScopesToMerchant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	a, err := payment.NewAttempt("att_1", "m1", "pay_1", enums.DummyConnector1, enums.PaymentMethodCard, 100, payment.USD, "")
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	if err := store.Attempts().Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, attemptID := range []string{"att_1", "att_other"} {
		e := connector.NewEvent("m1", "phonypay", "Authorize", "pay_1", attemptID)
		if err := store.ConnectorEvents().Save(ctx, e); err != nil {
			t.Fatalf("Save event: %v", err)
		}
	}

	svc := NewService(store.Attempts(), store.ConnectorEvents(), store.WebhookEvents())

	detail, err := svc.GetAttempt(ctx, "m1", "att_1")
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if len(detail.ConnectorEvents) != 1 {
		t.Fatalf("got %d events, want 1", len(detail.ConnectorEvents))
	}

	_, err = svc.GetAttempt(ctx, "m2", "att_1")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("foreign merchant: got %v", err)
	}
}

func TestListsAreNeverNull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	svc := NewService(store.Attempts(), store.ConnectorEvents(), store.WebhookEvents())

	attempts, err := svc.ListAttempts(ctx, "m1", ListRequest{})
	if err != nil || attempts.Attempts == nil || attempts.Limit != 50 {
		t.Fatalf("ListAttempts = %+v, %v", attempts, err)
	}
	events, err := svc.ListConnectorEvents(ctx, "m1", ListRequest{})
	if err != nil || events.Events == nil {
		t.Fatalf("ListConnectorEvents = %+v, %v", events, err)
	}

	ev, err := webhook.NewEvent("w1", "m1", enums.DummyConnector1, []byte(`{}`))
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	ev.Resource = []byte(`{"id":"txn_1"}`)
	if err := store.WebhookEvents().Save(ctx, ev); err != nil {
		t.Fatalf("Save webhook: %v", err)
	}
	hooks, err := svc.ListWebhookEvents(ctx, "m1", ListRequest{Limit: 1})
	if err != nil || len(hooks.Events) != 1 || hooks.Events[0].Connector != "phonypay" {
		t.Fatalf("ListWebhookEvents = %+v, %v", hooks, err)
	}
}
