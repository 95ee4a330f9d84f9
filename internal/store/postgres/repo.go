package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"payhub/internal/store/repositories"
)

// Repo bundles the Postgres repositories over one pool.
type Repo struct {
	db  *pgxpool.Pool
	key []byte
}

// NewRepo returns the repositories. key is the AES-256 key that seals
// connector credentials at rest.
func NewRepo(db *pgxpool.Pool, key []byte) *Repo { return &Repo{db: db, key: key} }

// Expose the underlying pool for read-only helpers.
func (r *Repo) DB() *pgxpool.Pool { return r.db }

func (r *Repo) Attempts() repositories.AttemptRepository { return &attemptRepository{db: r.db} }

func (r *Repo) ConnectorEvents() repositories.ConnectorEventRepository {
	return &connectorEventRepository{db: r.db}
}

func (r *Repo) WebhookEvents() repositories.WebhookEventRepository {
	return &webhookEventRepository{db: r.db}
}

func (r *Repo) Accounts() repositories.AccountRepository {
	return &accountRepository{db: r.db, key: r.key}
}

func (r *Repo) UnitOfWork() repositories.UnitOfWork { return NewUnitOfWork(r.db) }
