// Package redis keeps short-lived connector state, currently access tokens,
// in Redis so every API replica shares them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/masking"
)

// ExpirySkew is subtracted from the connector-reported lifetime so a token
// is never handed out in its last seconds.
const ExpirySkew = 30 * time.Second

// MustConnect accepts either a redis:// URL or a bare host:port.
func MustConnect(ctx context.Context, addr string) *goredis.Client {
	opts, err := options(addr)
	if err != nil {
		log.Fatal().Err(err).Msg("redis parse")
	}
	cli := goredis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis ping")
	}
	log.Info().Str("addr", opts.Addr).Msg("redis ready")
	return cli
}

func options(addr string) (*goredis.Options, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return goredis.ParseURL(addr)
	}
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis address is empty")
	}
	return &goredis.Options{Addr: addr}, nil
}

// TokenCache implements repositories.TokenCache. Tokens are sealed with the
// credential key before they are written.
type TokenCache struct {
	rdb goredis.Cmdable
	key []byte
}

func NewTokenCache(rdb goredis.Cmdable, key []byte) *TokenCache {
	return &TokenCache{rdb: rdb, key: key}
}

type storedToken struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (c *TokenCache) Get(ctx context.Context, merchantID string, conn enums.Connector) (*payment.AccessToken, error) {
	raw, err := c.rdb.Get(ctx, TokenKey(merchantID, conn)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	plain, err := credential.Decrypt(st.Token, c.key)
	if err != nil {
		return nil, fmt.Errorf("open cached token: %w", err)
	}
	return &payment.AccessToken{Token: masking.Secret(plain), ExpiresIn: st.ExpiresIn}, nil
}

// Set stores the token until shortly before it expires. Tokens that are
// already inside the skew window are not cached.
func (c *TokenCache) Set(ctx context.Context, merchantID string, conn enums.Connector, tok payment.AccessToken) error {
	ttl := TokenTTL(tok.ExpiresIn)
	if ttl <= 0 {
		return nil
	}
	sealed, err := credential.Encrypt(tok.Token.Expose(), c.key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(storedToken{Token: sealed, ExpiresIn: tok.ExpiresIn})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, TokenKey(merchantID, conn), raw, ttl).Err()
}

func (c *TokenCache) Invalidate(ctx context.Context, merchantID string, conn enums.Connector) error {
	return c.rdb.Del(ctx, TokenKey(merchantID, conn)).Err()
}

func TokenKey(merchantID string, conn enums.Connector) string {
	return "payhub:access_token:" + merchantID + ":" + conn.String()
}

// TokenTTL converts a lifetime in seconds into the cache expiry.
func TokenTTL(expiresIn int64) time.Duration {
	return time.Duration(expiresIn)*time.Second - ExpirySkew
}
