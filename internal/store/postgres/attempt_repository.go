package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/store/repositories"
)

// attemptRepository implements AttemptRepository over a pool or a transaction.
type attemptRepository struct {
	db dbtx
}

const attemptColumns = `id, merchant_id, payment_id, connector, payment_method, amount, currency,
	capture_method, status, connector_transaction_id, error_code, error_message,
	card_fingerprint, sync_count, next_sync_at, created_at, updated_at, amount_refunded`

// Save upserts by id.
func (r *attemptRepository) Save(ctx context.Context, a *payment.Attempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_attempts (`+attemptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    connector_transaction_id = EXCLUDED.connector_transaction_id,
		    error_code = EXCLUDED.error_code,
		    error_message = EXCLUDED.error_message,
		    sync_count = EXCLUDED.sync_count,
		    next_sync_at = EXCLUDED.next_sync_at,
		    amount_refunded = EXCLUDED.amount_refunded,
		    updated_at = EXCLUDED.updated_at`,
		a.ID, a.MerchantID, a.PaymentID, a.Connector.String(), string(a.PaymentMethod),
		int64(a.Amount), string(a.Currency), string(a.CaptureMethod), string(a.Status),
		a.ConnectorTransactionID, a.ErrorCode, a.ErrorMessage, a.CardFingerprint,
		a.SyncCount, a.NextSyncAt, a.CreatedAt, a.UpdatedAt, int64(a.AmountRefunded))
	return err
}

func (r *attemptRepository) FindByID(ctx context.Context, id string) (*payment.Attempt, error) {
	row := r.db.QueryRow(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE id = $1`, id)
	return scanAttempt(row)
}

func (r *attemptRepository) FindByConnectorTransaction(ctx context.Context, c enums.Connector, txnID string) (*payment.Attempt, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM payment_attempts
		WHERE connector = $1 AND connector_transaction_id = $2
		ORDER BY created_at DESC LIMIT 1`, c.String(), txnID)
	return scanAttempt(row)
}

func (r *attemptRepository) FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*payment.Attempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+attemptColumns+` FROM payment_attempts
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAttempts(rows)
}

// FindDueForSync locks the due rows so concurrent workers skip them.
func (r *attemptRepository) FindDueForSync(ctx context.Context, now time.Time, limit int) ([]*payment.Attempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+attemptColumns+` FROM payment_attempts
		WHERE next_sync_at IS NOT NULL AND next_sync_at <= $1
		  AND status NOT IN ('charged','failure','voided','authorization_failed','authentication_failed','router_declined')
		ORDER BY next_sync_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanAttempts(rows)
}

func scanAttempts(rows pgx.Rows) ([]*payment.Attempt, error) {
	defer rows.Close()
	var out []*payment.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// scanAttempt accepts pgx.Row; pgx.Rows satisfies it too.
func scanAttempt(row pgx.Row) (*payment.Attempt, error) {
	var a payment.Attempt
	var conn, pm, cur, cm, status string
	var amount, refunded int64
	err := row.Scan(
		&a.ID, &a.MerchantID, &a.PaymentID, &conn, &pm, &amount, &cur,
		&cm, &status, &a.ConnectorTransactionID, &a.ErrorCode, &a.ErrorMessage,
		&a.CardFingerprint, &a.SyncCount, &a.NextSyncAt, &a.CreatedAt, &a.UpdatedAt, &refunded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c, err := enums.ParseConnector(conn)
	if err != nil {
		return nil, err
	}
	a.Connector = c
	a.PaymentMethod = enums.PaymentMethod(pm)
	a.Amount = payment.MinorUnit(amount)
	a.AmountRefunded = payment.MinorUnit(refunded)
	a.Currency = payment.Currency(cur)
	a.CaptureMethod = payment.CaptureMethod(cm)
	a.Status = payment.AttemptStatus(status)
	return &a, nil
}
