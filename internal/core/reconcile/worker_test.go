package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/provider"
	"payhub/internal/provider/catalog"
	paymentsvc "payhub/internal/services/payment"
	"payhub/internal/store/memory"
)

type fakeSyncer struct {
	mu     sync.Mutex
	calls  map[string]int
	status map[string]payment.AttemptStatus
	err    error
}

func (f *fakeSyncer) SyncAttempt(_ context.Context, a *payment.Attempt) (*paymentsvc.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[a.ID]++
	if f.err != nil {
		return nil, f.err
	}
	if st, ok := f.status[a.ID]; ok {
		a.Status = st
	}
	if !a.NeedsSync() {
		a.NextSyncAt = nil
	}
	return &paymentsvc.Result{Attempt: a}, nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.Store, id string, due time.Time) {
	t.Helper()
	a, err := payment.NewAttempt(id, "m1", "pay_"+id, enums.DummyConnector1, enums.PaymentMethodCard, 500, payment.USD, "")
	require.NoError(t, err)
	require.NoError(t, a.Apply(payment.StatusPending, "txn_"+id, "", ""))
	a.NextSyncAt = &due
	require.NoError(t, store.Attempts().Save(context.Background(), a))
}

func newWorker(store *memory.Store, s Syncer) *Worker {
	w := NewWorker(store.Attempts(), s, config.ReconcileCfg{SyncDelay: 10 * time.Second, MaxSyncs: 3, Concurrency: 2})
	w.now = func() time.Time { return now }
	return w
}

func TestTickSyncsOnlyDueAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seed(t, store, "due", now.Add(-time.Minute))
	seed(t, store, "later", now.Add(time.Minute))

	syncer := &fakeSyncer{status: map[string]payment.AttemptStatus{"due": payment.StatusCharged}}
	n, err := newWorker(store, syncer).Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, syncer.calls["due"])
	require.Zero(t, syncer.calls["later"])
}

func TestTickReschedulesPendingWithBackoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seed(t, store, "a1", now.Add(-time.Second))

	w := newWorker(store, &fakeSyncer{})
	_, err := w.Tick(ctx)
	require.NoError(t, err)

	a, err := store.Attempts().FindByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 1, a.SyncCount)
	require.NotNil(t, a.NextSyncAt)
	require.Equal(t, now.Add(10*time.Second), *a.NextSyncAt)
}

func TestTickGivesUpAfterMaxSyncs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seed(t, store, "a1", now.Add(-time.Second))

	a, err := store.Attempts().FindByID(ctx, "a1")
	require.NoError(t, err)
	a.SyncCount = 2
	require.NoError(t, store.Attempts().Save(ctx, a))

	_, err = newWorker(store, &fakeSyncer{}).Tick(ctx)
	require.NoError(t, err)

	a, err = store.Attempts().FindByID(ctx, "a1")
	require.NoError(t, err)
	require.Nil(t, a.NextSyncAt)
	require.Equal(t, payment.StatusPending, a.Status)
}

func TestTickDefersWhenSyncIsNotImplemented(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	seed(t, store, "a1", now.Add(-time.Second))

	w := newWorker(store, &fakeSyncer{err: connector.NotImplemented("PSync")})
	require.Equal(t, ResultDeferred, w.syncOne(ctx, mustFind(t, store, "a1")))

	a := mustFind(t, store, "a1")
	require.Nil(t, a.NextSyncAt)
	require.Zero(t, a.SyncCount)
}

func TestTickDefersConnectorsWithoutPolling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	reg := provider.NewRegistry(nil)
	require.NoError(t, catalog.Register(reg))
	acct, err := credential.NewAccount("acc_stripe", "m1", enums.Stripe, credential.HeaderKey("sk_test_1"))
	require.NoError(t, err)
	require.NoError(t, store.Accounts().Save(ctx, acct))

	a, err := payment.NewAttempt("a1", "m1", "pay_a1", enums.Stripe, enums.PaymentMethodCard, 500, payment.USD, "")
	require.NoError(t, err)
	require.NoError(t, a.Apply(payment.StatusPending, "txn_a1", "", ""))
	due := now.Add(-time.Second)
	a.NextSyncAt = &due
	require.NoError(t, store.Attempts().Save(ctx, a))

	svc := paymentsvc.NewService(paymentsvc.Deps{
		Registry:   reg,
		Connectors: config.Connectors{},
		Executor: connector.ExecutorFunc(func(context.Context, *connector.Request) (connector.Response, error) {
			t.Fatal("stripe has no polling endpoint to call")
			return connector.Response{}, nil
		}),
		Attempts: store.Attempts(),
		Accounts: store.Accounts(),
		Tokens:   store.Tokens(),
	})

	n, err := newWorker(store, svc).Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got := mustFind(t, store, "a1")
	require.Nil(t, got.NextSyncAt)
	require.Zero(t, got.SyncCount)
	require.Equal(t, payment.StatusPending, got.Status)
}

func TestNextDelayDoublesAndCaps(t *testing.T) {
	t.Parallel()

	w := &Worker{syncDelay: 10 * time.Second}
	require.Equal(t, 10*time.Second, w.NextDelay(0))
	require.Equal(t, 20*time.Second, w.NextDelay(1))
	require.Equal(t, 40*time.Second, w.NextDelay(2))
	require.Equal(t, time.Hour, w.NextDelay(20))
}

func mustFind(t *testing.T, store *memory.Store, id string) *payment.Attempt {
	t.Helper()
	a, err := store.Attempts().FindByID(context.Background(), id)
	require.NoError(t, err)
	return a
}
