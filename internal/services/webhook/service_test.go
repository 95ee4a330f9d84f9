package webhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/provider"
	"payhub/internal/provider/catalog"
	"payhub/internal/store/memory"
	"payhub/internal/store/repositories"
)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	reg := provider.NewRegistry([]enums.Connector{enums.DummyConnector1})
	require.NoError(t, catalog.Register(reg))

	store := memory.New()
	ctx := context.Background()
	for _, c := range []enums.Connector{enums.DummyConnector1, enums.Esnekpos} {
		auth := credential.HeaderKey("sk_test_123")
		if c == enums.Esnekpos {
			auth = credential.BodyKey("TEST1234", "key")
		}
		a, err := credential.NewAccount("acc_"+c.String(), "m1", c, auth)
		require.NoError(t, err)
		require.NoError(t, store.Accounts().Save(ctx, a))
	}

	att, err := payment.NewAttempt("att_1", "m1", "pay_1", enums.DummyConnector1, enums.PaymentMethodCard, 1000, payment.USD, "")
	require.NoError(t, err)
	att.Status = payment.StatusPending
	att.ConnectorTransactionID = "txn_1"
	next := time.Now().Add(time.Minute)
	att.NextSyncAt = &next
	require.NoError(t, store.Attempts().Save(ctx, att))

	return NewService(reg, store.Accounts(), store.WebhookEvents(), store.UnitOfWork()), store
}

func body(typ, object, id string) []byte {
	b, _ := json.Marshal(map[string]any{
		"type": typ,
		"data": map[string]any{"object": map[string]any{"id": id, "object": object}},
	})
	return b
}

func TestReceiveAppliesPaymentOutcome(t *testing.T) {
	t.Parallel()

	svc, store := setup(t)
	ctx := context.Background()

	ev, err := svc.Receive(ctx, "phonypay", "m1", &webhook.Request{Method: "POST", Body: body("payment.succeeded", "payment", "txn_1")})
	require.NoError(t, err)
	require.Equal(t, webhook.EventPaymentSucceeded, ev.Type)
	require.Equal(t, webhook.ProcessingCompleted, ev.ProcessingStatus)
	require.NotNil(t, ev.ObjectRef)
	require.Equal(t, "txn_1", ev.ObjectRef.ID)
	require.JSONEq(t, `{"id":"txn_1","object":"payment"}`, string(ev.Resource))
	require.False(t, ev.IsPartial())

	att, err := store.Attempts().FindByID(ctx, "att_1")
	require.NoError(t, err)
	require.Equal(t, payment.StatusCharged, att.Status)
	require.Nil(t, att.NextSyncAt)

	stored, err := store.WebhookEvents().FindByID(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, webhook.ProcessingCompleted, stored.ProcessingStatus)
}

func TestReceiveOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		connector  string
		body       []byte
		wantStatus webhook.ProcessingStatus
		wantType   webhook.EventType
		partial    bool
	}{
		{
			name:       "unknown transaction",
			connector:  "phonypay",
			body:       body("payment.failed", "payment", "txn_missing"),
			wantStatus: webhook.ProcessingFailed,
			wantType:   webhook.EventPaymentFailed,
		},
		{
			name:       "refund event is recorded",
			connector:  "phonypay",
			body:       body("refund.succeeded", "refund", "re_1"),
			wantStatus: webhook.ProcessingCompleted,
			wantType:   webhook.EventRefundSucceeded,
		},
		{
			name:       "undecodable body",
			connector:  "phonypay",
			body:       []byte(`not json`),
			wantStatus: webhook.ProcessingIgnored,
			wantType:   webhook.EventNotSupported,
			partial:    true,
		},
		{
			name:       "connector without webhooks",
			connector:  "esnekpos",
			body:       []byte(`{"anything":1}`),
			wantStatus: webhook.ProcessingIgnored,
			wantType:   webhook.EventNotSupported,
			partial:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _ := setup(t)
			ev, err := svc.Receive(context.Background(), tt.connector, "m1", &webhook.Request{Body: tt.body})
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, ev.ProcessingStatus)
			require.Equal(t, tt.wantType, ev.Type)
			require.Equal(t, tt.partial, ev.IsPartial())
		})
	}
}

func TestReceiveNeedsAccount(t *testing.T) {
	t.Parallel()

	svc, _ := setup(t)
	_, err := svc.Receive(context.Background(), "phonypay", "m2", &webhook.Request{Body: body("payment.succeeded", "payment", "txn_1")})
	require.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = svc.Receive(context.Background(), "fauxpay", "m1", &webhook.Request{})
	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, provider.ErrConnectorDisabled, pe.Code)
}

func TestStaleWebhookLeavesSettledAttempt(t *testing.T) {
	t.Parallel()

	svc, store := setup(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, "phonypay", "m1", &webhook.Request{Body: body("payment.succeeded", "payment", "txn_1")})
	require.NoError(t, err)
	ev, err := svc.Receive(ctx, "phonypay", "m1", &webhook.Request{Body: body("payment.failed", "payment", "txn_1")})
	require.NoError(t, err)
	require.Equal(t, webhook.ProcessingCompleted, ev.ProcessingStatus)

	att, err := store.Attempts().FindByID(ctx, "att_1")
	require.NoError(t, err)
	require.Equal(t, payment.StatusCharged, att.Status)
}

func TestReplay(t *testing.T) {
	t.Parallel()

	svc, store := setup(t)
	ctx := context.Background()

	// Arrives before the attempt knows its transaction id.
	ev, err := svc.Receive(ctx, "phonypay", "m1", &webhook.Request{Body: body("payment.authorized", "payment", "txn_2")})
	require.NoError(t, err)
	require.Equal(t, webhook.ProcessingFailed, ev.ProcessingStatus)

	att, err := store.Attempts().FindByID(ctx, "att_1")
	require.NoError(t, err)
	att.ConnectorTransactionID = "txn_2"
	require.NoError(t, store.Attempts().Save(ctx, att))

	res, err := svc.Replay(ctx, "m1", ReplayRequest{EventIDs: []string{ev.ID, "missing"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Replayed)
	require.Equal(t, 1, res.Skipped)

	att, err = store.Attempts().FindByID(ctx, "att_1")
	require.NoError(t, err)
	require.Equal(t, payment.StatusAuthorized, att.Status)

	res, err = svc.Replay(ctx, "m2", ReplayRequest{EventIDs: []string{ev.ID}})
	require.NoError(t, err)
	require.Zero(t, res.Replayed)

	res, err = svc.Replay(ctx, "m1", ReplayRequest{Max: 5000})
	require.NoError(t, err)
	require.Equal(t, 1, res.Replayed)
}
