// Package memory implements the repositories with maps. It backs the
// sandbox mode when no database is configured and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/store/repositories"
)

// Store holds every repository behind one lock so a transaction can span
// them.
type Store struct {
	mu       sync.RWMutex
	attempts map[string]payment.Attempt
	events   []connector.Event
	webhooks map[string]webhook.Event
	accounts map[string]credential.Account
	tokens   map[string]tokenEntry
	now      func() time.Time
}

type tokenEntry struct {
	tok     payment.AccessToken
	expires time.Time
}

func New() *Store {
	return &Store{
		attempts: make(map[string]payment.Attempt),
		webhooks: make(map[string]webhook.Event),
		accounts: make(map[string]credential.Account),
		tokens:   make(map[string]tokenEntry),
		now:      time.Now,
	}
}

func (s *Store) Attempts() repositories.AttemptRepository { return attempts{s} }

func (s *Store) ConnectorEvents() repositories.ConnectorEventRepository { return connectorEvents{s} }

func (s *Store) WebhookEvents() repositories.WebhookEventRepository { return webhookEvents{s} }

func (s *Store) Accounts() repositories.AccountRepository { return accounts{s} }

func (s *Store) Tokens() repositories.TokenCache { return tokens{s} }

func (s *Store) UnitOfWork() repositories.UnitOfWork { return unitOfWork{s} }

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

type attempts struct{ s *Store }

func (r attempts) Save(_ context.Context, a *payment.Attempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	if a.NextSyncAt != nil {
		t := *a.NextSyncAt
		cp.NextSyncAt = &t
	}
	r.s.attempts[a.ID] = cp
	return nil
}

func (r attempts) get(id string) (*payment.Attempt, bool) {
	a, ok := r.s.attempts[id]
	if !ok {
		return nil, false
	}
	if a.NextSyncAt != nil {
		t := *a.NextSyncAt
		a.NextSyncAt = &t
	}
	return &a, true
}

func (r attempts) FindByID(_ context.Context, id string) (*payment.Attempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.get(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a, nil
}

func (r attempts) FindByConnectorTransaction(_ context.Context, c enums.Connector, txnID string) (*payment.Attempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *payment.Attempt
	for id, a := range r.s.attempts {
		if a.Connector != c || a.ConnectorTransactionID != txnID {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			found, _ = r.get(id)
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (r attempts) FindByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*payment.Attempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*payment.Attempt
	for id, a := range r.s.attempts {
		if a.MerchantID == merchantID {
			cp, _ := r.get(id)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r attempts) FindDueForSync(_ context.Context, now time.Time, limit int) ([]*payment.Attempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*payment.Attempt
	for id, a := range r.s.attempts {
		if a.NextSyncAt == nil || a.NextSyncAt.After(now) || a.Status.IsTerminal() {
			continue
		}
		cp, _ := r.get(id)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextSyncAt.Before(*out[j].NextSyncAt) })
	return page(out, limit, 0), nil
}

type connectorEvents struct{ s *Store }

func (r connectorEvents) Save(_ context.Context, e *connector.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, have := range r.s.events {
		if have.ID == e.ID {
			return nil
		}
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r connectorEvents) FindByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*connector.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*connector.Event
	for i := len(r.s.events) - 1; i >= 0; i-- {
		if e := r.s.events[i]; e.MerchantID == merchantID {
			out = append(out, &e)
		}
	}
	return page(out, limit, offset), nil
}

func (r connectorEvents) FindByPayment(_ context.Context, merchantID, paymentID string) ([]*connector.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*connector.Event
	for _, e := range r.s.events {
		if e.MerchantID == merchantID && e.PaymentID == paymentID {
			out = append(out, &e)
		}
	}
	return out, nil
}

type webhookEvents struct{ s *Store }

func (r webhookEvents) Save(_ context.Context, e *webhook.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.webhooks[e.ID] = *e
	return nil
}

func (r webhookEvents) FindByID(_ context.Context, id string) (*webhook.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.webhooks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r webhookEvents) sorted(keep func(webhook.Event) bool, newestFirst bool) []*webhook.Event {
	var out []*webhook.Event
	for _, e := range r.s.webhooks {
		if keep(e) {
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ReceivedAt.After(out[j].ReceivedAt)
		}
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out
}

func (r webhookEvents) FindByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*webhook.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(e webhook.Event) bool { return e.MerchantID == merchantID }, true)
	return page(out, limit, offset), nil
}

func (r webhookEvents) FindReceivedBetween(_ context.Context, merchantID string, since, until *time.Time, limit int) ([]*webhook.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(e webhook.Event) bool {
		if e.MerchantID != merchantID {
			return false
		}
		if since != nil && e.ReceivedAt.Before(*since) {
			return false
		}
		return until == nil || !e.ReceivedAt.After(*until)
	}, false)
	return page(out, limit, 0), nil
}

func (r webhookEvents) MarkProcessed(_ context.Context, id string, status webhook.ProcessingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.webhooks[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := r.s.now()
	e.ProcessingStatus = status
	e.ProcessedAt = &now
	r.s.webhooks[id] = e
	return nil
}

type accounts struct{ s *Store }

func accountKey(merchantID string, c enums.Connector) string { return merchantID + "/" + c.String() }

func (r accounts) Save(_ context.Context, a *credential.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := accountKey(a.MerchantID, a.Connector)
	// the first id sticks, as with the upsert in postgres
	if have, ok := r.s.accounts[key]; ok {
		a.ID = have.ID
	}
	r.s.accounts[key] = *a
	return nil
}

func (r accounts) Find(_ context.Context, merchantID string, c enums.Connector) (*credential.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[accountKey(merchantID, c)]
	if !ok || a.Disabled {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r accounts) FindByMerchant(_ context.Context, merchantID string) ([]*credential.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*credential.Account
	for _, a := range r.s.accounts {
		if a.MerchantID == merchantID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Connector.String() < out[j].Connector.String() })
	return out, nil
}

func (r accounts) Deactivate(_ context.Context, merchantID string, c enums.Connector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := accountKey(merchantID, c)
	a, ok := r.s.accounts[key]
	if !ok {
		return repositories.ErrNotFound
	}
	a.Deactivate()
	r.s.accounts[key] = a
	return nil
}

type tokens struct{ s *Store }

func (r tokens) Get(_ context.Context, merchantID string, c enums.Connector) (*payment.AccessToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.tokens[accountKey(merchantID, c)]
	if !ok || !r.s.now().Before(e.expires) {
		return nil, nil
	}
	tok := e.tok
	return &tok, nil
}

func (r tokens) Set(_ context.Context, merchantID string, c enums.Connector, tok payment.AccessToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[accountKey(merchantID, c)] = tokenEntry{
		tok:     tok,
		expires: r.s.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	return nil
}

func (r tokens) Invalidate(_ context.Context, merchantID string, c enums.Connector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, accountKey(merchantID, c))
	return nil
}

// unitOfWork applies writes immediately; Rollback is a no-op. It is only
// as transactional as the single-process sandbox needs.
type unitOfWork struct{ s *Store }

func (u unitOfWork) Begin(context.Context) (repositories.Transaction, error) {
	return transaction{u.s}, nil
}

type transaction struct{ s *Store }

func (transaction) Commit(context.Context) error   { return nil }
func (transaction) Rollback(context.Context) error { return nil }

func (t transaction) Attempts() repositories.AttemptRepository { return attempts{t.s} }

func (t transaction) WebhookEvents() repositories.WebhookEventRepository { return webhookEvents{t.s} }
