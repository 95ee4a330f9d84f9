package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"payhub/internal/domain/enums"
	"payhub/internal/domain/webhook"
	"payhub/internal/store/repositories"
)

// webhookEventRepository implements WebhookEventRepository with pure data access
type webhookEventRepository struct {
	db dbtx
}

const webhookEventColumns = `id, merchant_id, connector, event_type, object_ref, resource, raw_body,
	extract_errors, status, received_at, processed_at`

// Save upserts by id. Only the processing columns change on conflict.
func (r *webhookEventRepository) Save(ctx context.Context, e *webhook.Event) error {
	var ref []byte
	if e.ObjectRef != nil {
		var err error
		if ref, err = json.Marshal(e.ObjectRef); err != nil {
			return err
		}
	}
	var resource []byte
	if len(e.Resource) > 0 {
		resource = e.Resource
	}
	extractErrors := e.ExtractErrors
	if extractErrors == nil {
		extractErrors = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO webhook_events (`+webhookEventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    processed_at = EXCLUDED.processed_at`,
		e.ID, e.MerchantID, e.Connector.String(), string(e.Type), ref, resource, e.RawBody,
		extractErrors, string(e.ProcessingStatus), e.ReceivedAt, e.ProcessedAt)
	return err
}

func (r *webhookEventRepository) FindByID(ctx context.Context, id string) (*webhook.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+webhookEventColumns+` FROM webhook_events WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanWebhookEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repositories.ErrNotFound
	}
	return out[0], nil
}

func (r *webhookEventRepository) FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*webhook.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE merchant_id = $1
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3`, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvents(rows)
}

// FindReceivedBetween returns events in arrival order. Nil bounds are open.
func (r *webhookEventRepository) FindReceivedBetween(ctx context.Context, merchantID string, since, until *time.Time, limit int) ([]*webhook.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+webhookEventColumns+` FROM webhook_events
		WHERE merchant_id = $1
		  AND ($2::timestamptz IS NULL OR received_at >= $2)
		  AND ($3::timestamptz IS NULL OR received_at <= $3)
		ORDER BY received_at ASC
		LIMIT $4`, merchantID, since, until, limit)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvents(rows)
}

// MarkProcessed marks an event as processed with status
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string, status webhook.ProcessingStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE webhook_events
		SET status = $1, processed_at = now()
		WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func scanWebhookEvents(rows pgx.Rows) ([]*webhook.Event, error) {
	defer rows.Close()
	var out []*webhook.Event
	for rows.Next() {
		var e webhook.Event
		var conn, typ, status string
		var ref, resource []byte
		if err := rows.Scan(&e.ID, &e.MerchantID, &conn, &typ, &ref, &resource, &e.RawBody,
			&e.ExtractErrors, &status, &e.ReceivedAt, &e.ProcessedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, repositories.ErrNotFound
			}
			return nil, err
		}
		c, err := enums.ParseConnector(conn)
		if err != nil {
			return nil, err
		}
		e.Connector = c
		e.Type = webhook.EventType(typ)
		e.ProcessingStatus = webhook.ProcessingStatus(status)
		if len(ref) > 0 {
			e.ObjectRef = &webhook.ObjectReferenceID{}
			if err := json.Unmarshal(ref, e.ObjectRef); err != nil {
				return nil, err
			}
		}
		if len(resource) > 0 {
			e.Resource = json.RawMessage(resource)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
