package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"payhub/internal/connector"
)

type connectorEventRepository struct {
	db dbtx
}

const connectorEventColumns = `id, merchant_id, connector, flow, payment_id, attempt_id, method, url,
	request_headers, request_body, status_code, response_body, error_json, latency_ms, created_at`

// Save inserts the masked snapshot. Events are immutable; a repeated id is ignored.
func (r *connectorEventRepository) Save(ctx context.Context, e *connector.Event) error {
	headers, err := jsonOrNil(e.RequestHeaders)
	if err != nil {
		return err
	}
	reqBody, err := jsonOrNil(e.RequestBody)
	if err != nil {
		return err
	}
	resBody, err := jsonOrNil(e.ResponseBody)
	if err != nil {
		return err
	}
	var errJSON []byte
	if e.Error != nil {
		if errJSON, err = json.Marshal(e.Error); err != nil {
			return err
		}
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO connector_events (`+connectorEventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.MerchantID, e.Connector, e.Flow, e.PaymentID, e.AttemptID, string(e.Method), e.URL,
		headers, reqBody, e.StatusCode, resBody, errJSON, e.LatencyMS, e.CreatedAt)
	return err
}

func (r *connectorEventRepository) FindByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*connector.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+connectorEventColumns+` FROM connector_events
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanConnectorEvents(rows)
}

func (r *connectorEventRepository) FindByPayment(ctx context.Context, merchantID, paymentID string) ([]*connector.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+connectorEventColumns+` FROM connector_events
		WHERE merchant_id = $1 AND payment_id = $2
		ORDER BY created_at ASC`, merchantID, paymentID)
	if err != nil {
		return nil, err
	}
	return scanConnectorEvents(rows)
}

func scanConnectorEvents(rows pgx.Rows) ([]*connector.Event, error) {
	defer rows.Close()
	var out []*connector.Event
	for rows.Next() {
		var e connector.Event
		var method string
		var headers, reqBody, resBody, errJSON []byte
		if err := rows.Scan(&e.ID, &e.MerchantID, &e.Connector, &e.Flow, &e.PaymentID, &e.AttemptID,
			&method, &e.URL, &headers, &reqBody, &e.StatusCode, &resBody, &errJSON, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Method = connector.Method(method)
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &e.RequestHeaders); err != nil {
				return nil, err
			}
		}
		if len(reqBody) > 0 {
			e.RequestBody = json.RawMessage(reqBody)
		}
		if len(resBody) > 0 {
			e.ResponseBody = json.RawMessage(resBody)
		}
		if len(errJSON) > 0 {
			e.Error = &connector.ErrorResponse{}
			if err := json.Unmarshal(errJSON, e.Error); err != nil {
				return nil, err
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func jsonOrNil(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
