package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"payhub/internal/domain/enums"
	"payhub/internal/masking"
)

// AuthKind selects how a connector account authenticates.
type AuthKind string

const (
	AuthHeaderKey    AuthKind = "header_key"
	AuthBodyKey      AuthKind = "body_key"
	AuthSignatureKey AuthKind = "signature_key"
	AuthMultiAuthKey AuthKind = "multi_auth_key"
	AuthNoKey        AuthKind = "no_key"
)

// AuthType is the credential material for one connector account. Which
// fields are populated depends on Kind.
type AuthType struct {
	Kind      AuthKind       `json:"auth_type" yaml:"auth_type"`
	APIKey    masking.Secret `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Key1      masking.Secret `json:"key1,omitempty" yaml:"key1,omitempty"`
	Key2      masking.Secret `json:"key2,omitempty" yaml:"key2,omitempty"`
	APISecret masking.Secret `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
}

func HeaderKey(apiKey string) AuthType {
	return AuthType{Kind: AuthHeaderKey, APIKey: masking.Secret(apiKey)}
}

func BodyKey(apiKey, key1 string) AuthType {
	return AuthType{Kind: AuthBodyKey, APIKey: masking.Secret(apiKey), Key1: masking.Secret(key1)}
}

func SignatureKey(apiKey, key1, apiSecret string) AuthType {
	return AuthType{Kind: AuthSignatureKey, APIKey: masking.Secret(apiKey), Key1: masking.Secret(key1), APISecret: masking.Secret(apiSecret)}
}

// Validate checks that the fields required by Kind are present.
func (a AuthType) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%s auth requires %s", a.Kind, name)
	}
	switch a.Kind {
	case AuthNoKey:
		return nil
	case AuthHeaderKey:
		if a.APIKey.IsEmpty() {
			return missing("api_key")
		}
	case AuthBodyKey:
		if a.APIKey.IsEmpty() {
			return missing("api_key")
		}
		if a.Key1.IsEmpty() {
			return missing("key1")
		}
	case AuthSignatureKey:
		if a.APIKey.IsEmpty() || a.Key1.IsEmpty() || a.APISecret.IsEmpty() {
			return missing("api_key, key1 and api_secret")
		}
	case AuthMultiAuthKey:
		if a.APIKey.IsEmpty() || a.Key1.IsEmpty() || a.Key2.IsEmpty() || a.APISecret.IsEmpty() {
			return missing("api_key, key1, key2 and api_secret")
		}
	default:
		return fmt.Errorf("unknown auth type %q", a.Kind)
	}
	return nil
}

// Account is a merchant's configured connection to one connector.
type Account struct {
	ID            string
	MerchantID    string
	Connector     enums.Connector
	Label         string
	Auth          AuthType
	WebhookSecret masking.Secret
	TestMode      bool
	Disabled      bool
}

// NewAccount creates a new connector account with validation
func NewAccount(id, merchantID string, c enums.Connector, auth AuthType) (*Account, error) {
	if strings.TrimSpace(merchantID) == "" {
		return nil, fmt.Errorf("merchant id is required")
	}
	if !c.Valid() {
		return nil, fmt.Errorf("invalid connector %d", uint8(c))
	}
	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth for %s: %w", c, err)
	}
	return &Account{ID: id, MerchantID: merchantID, Connector: c, Auth: auth}, nil
}

// Deactivate marks the account as disabled
func (a *Account) Deactivate() { a.Disabled = true }

// encPrefix marks a stored value as AES-GCM ciphertext.
const encPrefix = "enc:"

// Seal encrypts every populated secret of the auth type so it can be stored.
func (a AuthType) Seal(key []byte) (AuthType, error) {
	out := a
	for _, f := range []*masking.Secret{&out.APIKey, &out.Key1, &out.Key2, &out.APISecret} {
		if f.IsEmpty() || strings.HasPrefix(f.Expose(), encPrefix) {
			continue
		}
		ct, err := Encrypt(f.Expose(), key)
		if err != nil {
			return AuthType{}, err
		}
		*f = masking.Secret(ct)
	}
	return out, nil
}

// Open is the inverse of Seal. Values without the prefix pass through.
func (a AuthType) Open(key []byte) (AuthType, error) {
	out := a
	for _, f := range []*masking.Secret{&out.APIKey, &out.Key1, &out.Key2, &out.APISecret} {
		pt, err := Decrypt(f.Expose(), key)
		if err != nil {
			return AuthType{}, fmt.Errorf("failed to decrypt %s credential: %w", a.Kind, err)
		}
		*f = masking.Secret(pt)
	}
	return out, nil
}

// Encrypt encrypts a plaintext string using AES-GCM and tags it with the
// storage prefix.
func Encrypt(plaintext string, key []byte) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. A value without the storage prefix is returned as is.
func Decrypt(value string, key []byte) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}
	if len(key) != 32 {
		return "", fmt.Errorf("decryption key must be 32 bytes")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
