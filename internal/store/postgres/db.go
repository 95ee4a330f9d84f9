package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs unchanged inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func MustOpen(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect fail")
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping fail")
	}
	log.Info().Str("host", redactDSN(dsn)).Msg("postgres ready")
	return pool
}

func redactDSN(dsn string) string {
	if i := strings.LastIndex(dsn, "@"); i > 0 {
		return "***@" + dsn[i+1:]
	}
	return dsn
}

const schema = `
CREATE TABLE IF NOT EXISTS connector_accounts (
	id             TEXT PRIMARY KEY,
	merchant_id    TEXT NOT NULL,
	connector      TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	auth_json      JSONB NOT NULL,
	webhook_secret TEXT NOT NULL DEFAULT '',
	test_mode      BOOLEAN NOT NULL DEFAULT FALSE,
	disabled       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (merchant_id, connector)
);

CREATE TABLE IF NOT EXISTS payment_attempts (
	id                       TEXT PRIMARY KEY,
	merchant_id              TEXT NOT NULL,
	payment_id               TEXT NOT NULL,
	connector                TEXT NOT NULL,
	payment_method           TEXT NOT NULL DEFAULT '',
	amount                   BIGINT NOT NULL,
	currency                 TEXT NOT NULL,
	capture_method           TEXT NOT NULL,
	status                   TEXT NOT NULL,
	connector_transaction_id TEXT NOT NULL DEFAULT '',
	error_code               TEXT NOT NULL DEFAULT '',
	error_message            TEXT NOT NULL DEFAULT '',
	card_fingerprint         TEXT NOT NULL DEFAULT '',
	sync_count               INT NOT NULL DEFAULT 0,
	next_sync_at             TIMESTAMPTZ,
	created_at               TIMESTAMPTZ NOT NULL,
	updated_at               TIMESTAMPTZ NOT NULL,
	amount_refunded          BIGINT NOT NULL DEFAULT 0
);
ALTER TABLE payment_attempts ADD COLUMN IF NOT EXISTS amount_refunded BIGINT NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS payment_attempts_txn_idx ON payment_attempts (connector, connector_transaction_id);
CREATE INDEX IF NOT EXISTS payment_attempts_sync_idx ON payment_attempts (next_sync_at) WHERE next_sync_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS connector_events (
	id              TEXT PRIMARY KEY,
	merchant_id     TEXT NOT NULL,
	connector       TEXT NOT NULL,
	flow            TEXT NOT NULL,
	payment_id      TEXT NOT NULL DEFAULT '',
	attempt_id      TEXT NOT NULL DEFAULT '',
	method          TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL DEFAULT '',
	request_headers JSONB,
	request_body    JSONB,
	status_code     INT NOT NULL DEFAULT 0,
	response_body   JSONB,
	error_json      JSONB,
	latency_ms      BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS connector_events_merchant_idx ON connector_events (merchant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS webhook_events (
	id                TEXT PRIMARY KEY,
	merchant_id       TEXT NOT NULL,
	connector         TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	object_ref        JSONB,
	resource          JSONB,
	raw_body          BYTEA NOT NULL,
	extract_errors    TEXT[] NOT NULL DEFAULT '{}',
	status            TEXT NOT NULL,
	received_at       TIMESTAMPTZ NOT NULL,
	processed_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS webhook_events_merchant_idx ON webhook_events (merchant_id, received_at DESC);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
