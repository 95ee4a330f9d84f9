package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/masking"
	"payhub/internal/store/repositories"
)

// accountRepository stores connector accounts with every secret sealed.
type accountRepository struct {
	db  dbtx
	key []byte
}

const accountColumns = `id, merchant_id, connector, label, auth_json, webhook_secret, test_mode, disabled`

// Save upserts on (merchant_id, connector); one account per connector per merchant.
func (r *accountRepository) Save(ctx context.Context, a *credential.Account) error {
	sealed, err := a.Auth.Seal(r.key)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}
	authJSON, err := json.Marshal(sealed)
	if err != nil {
		return err
	}
	secret := ""
	if !a.WebhookSecret.IsEmpty() {
		if secret, err = credential.Encrypt(a.WebhookSecret.Expose(), r.key); err != nil {
			return fmt.Errorf("seal webhook secret: %w", err)
		}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO connector_accounts (`+accountColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (merchant_id, connector) DO UPDATE SET
		    label = EXCLUDED.label,
		    auth_json = EXCLUDED.auth_json,
		    webhook_secret = EXCLUDED.webhook_secret,
		    test_mode = EXCLUDED.test_mode,
		    disabled = EXCLUDED.disabled,
		    updated_at = now()
		RETURNING id`,
		a.ID, a.MerchantID, a.Connector.String(), a.Label, authJSON, secret, a.TestMode, a.Disabled).Scan(&a.ID)
}

// Find returns the enabled account for the connector.
func (r *accountRepository) Find(ctx context.Context, merchantID string, c enums.Connector) (*credential.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM connector_accounts
		WHERE merchant_id = $1 AND connector = $2 AND disabled = false`, merchantID, c.String())
	return r.scan(row)
}

func (r *accountRepository) FindByMerchant(ctx context.Context, merchantID string) ([]*credential.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM connector_accounts
		WHERE merchant_id = $1
		ORDER BY connector`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*credential.Account
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Deactivate marks an account as disabled
func (r *accountRepository) Deactivate(ctx context.Context, merchantID string, c enums.Connector) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE connector_accounts
		SET disabled = true, updated_at = now()
		WHERE merchant_id = $1 AND connector = $2`, merchantID, c.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *accountRepository) scan(row pgx.Row) (*credential.Account, error) {
	var a credential.Account
	var conn, secret string
	var authJSON []byte
	err := row.Scan(&a.ID, &a.MerchantID, &conn, &a.Label, &authJSON, &secret, &a.TestMode, &a.Disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Connector, err = enums.ParseConnector(conn); err != nil {
		return nil, err
	}
	var sealed credential.AuthType
	if err := json.Unmarshal(authJSON, &sealed); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if a.Auth, err = sealed.Open(r.key); err != nil {
		return nil, err
	}
	plain, err := credential.Decrypt(secret, r.key)
	if err != nil {
		return nil, fmt.Errorf("open webhook secret: %w", err)
	}
	a.WebhookSecret = masking.Secret(plain)
	return &a, nil
}
