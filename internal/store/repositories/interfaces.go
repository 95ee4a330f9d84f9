package repositories

import (
	"context"
	"errors"
	"time"

	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// AttemptRepository defines the contract for payment attempt data access
type AttemptRepository interface {
	Save(ctx context.Context, a *payment.Attempt) error
	FindByID(ctx context.Context, id string) (*payment.Attempt, error)
	FindByConnectorTransaction(ctx context.Context, c enums.Connector, txnID string) (*payment.Attempt, error)
	FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*payment.Attempt, error)
	// FindDueForSync returns non-terminal attempts whose next sync is at or before now.
	FindDueForSync(ctx context.Context, now time.Time, limit int) ([]*payment.Attempt, error)
}

// ConnectorEventRepository stores the masked snapshot of every connector call.
type ConnectorEventRepository interface {
	Save(ctx context.Context, e *connector.Event) error
	FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*connector.Event, error)
	FindByPayment(ctx context.Context, merchantID, paymentID string) ([]*connector.Event, error)
}

// WebhookEventRepository defines the contract for inbound webhook data access
type WebhookEventRepository interface {
	Save(ctx context.Context, e *webhook.Event) error
	FindByID(ctx context.Context, id string) (*webhook.Event, error)
	FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*webhook.Event, error)
	FindReceivedBetween(ctx context.Context, merchantID string, since, until *time.Time, limit int) ([]*webhook.Event, error)
	MarkProcessed(ctx context.Context, id string, status webhook.ProcessingStatus) error
}

// AccountRepository defines the contract for connector account data access.
// Implementations seal credentials on write and open them on read.
type AccountRepository interface {
	Save(ctx context.Context, a *credential.Account) error
	Find(ctx context.Context, merchantID string, c enums.Connector) (*credential.Account, error)
	FindByMerchant(ctx context.Context, merchantID string) ([]*credential.Account, error)
	Deactivate(ctx context.Context, merchantID string, c enums.Connector) error
}

// TokenCache keeps connector access tokens between calls. Get returns nil
// and no error on a miss.
type TokenCache interface {
	Get(ctx context.Context, merchantID string, c enums.Connector) (*payment.AccessToken, error)
	Set(ctx context.Context, merchantID string, c enums.Connector, tok payment.AccessToken) error
	Invalidate(ctx context.Context, merchantID string, c enums.Connector) error
}

// UnitOfWork defines transactional operations
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction defines a database transaction
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Attempts() AttemptRepository
	WebhookEvents() WebhookEventRepository
}
