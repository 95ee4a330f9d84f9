package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"payhub/internal/domain/enums"
	"payhub/internal/masking"
)

// AttemptStatus is the normalized state of an attempt as inferred from a
// connector response or error.
type AttemptStatus string

const (
	StatusStarted               AttemptStatus = "started"
	StatusAuthenticationPending AttemptStatus = "authentication_pending"
	StatusAuthenticationFailed  AttemptStatus = "authentication_failed"
	StatusAuthorized            AttemptStatus = "authorized"
	StatusAuthorizationFailed   AttemptStatus = "authorization_failed"
	StatusCharged               AttemptStatus = "charged"
	StatusPending               AttemptStatus = "pending"
	StatusFailure               AttemptStatus = "failure"
	StatusVoided                AttemptStatus = "voided"
	StatusVoidFailed            AttemptStatus = "void_failed"
	StatusCaptureInitiated      AttemptStatus = "capture_initiated"
	StatusCaptureFailed         AttemptStatus = "capture_failed"
	StatusPartialCharged        AttemptStatus = "partial_charged"
	StatusRouterDeclined        AttemptStatus = "router_declined"
	StatusUnresolved            AttemptStatus = "unresolved"
)

// IsTerminal reports whether no further connector call can change the status.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case StatusCharged, StatusFailure, StatusVoided, StatusAuthorizationFailed,
		StatusAuthenticationFailed, StatusRouterDeclined:
		return true
	}
	return false
}

// CaptureMethod controls when authorized funds are captured.
type CaptureMethod string

const (
	CaptureAutomatic      CaptureMethod = "automatic"
	CaptureManual         CaptureMethod = "manual"
	CaptureManualMultiple CaptureMethod = "manual_multiple"
	CaptureScheduled      CaptureMethod = "scheduled"
)

// Card holds raw card data. Every field is a Secret so it cannot leak
// through fmt or snapshots.
type Card struct {
	Number     masking.Secret `json:"number"`
	ExpMonth   masking.Secret `json:"exp_month"`
	ExpYear    masking.Secret `json:"exp_year"`
	CVC        masking.Secret `json:"cvc"`
	HolderName masking.Secret `json:"holder_name,omitempty"`
}

// Last4 returns the last four digits of the card number.
func (c Card) Last4() string {
	n := strings.ReplaceAll(c.Number.Expose(), " ", "")
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}

// Fingerprint returns a privacy-preserving hash of the card number.
func (c Card) Fingerprint() string {
	h := sha256.Sum256([]byte(strings.ReplaceAll(c.Number.Expose(), " ", "")))
	return hex.EncodeToString(h[:])
}

// ExpiryYear4 returns the expiry year as four digits.
func (c Card) ExpiryYear4() string {
	y := c.ExpYear.Expose()
	if len(y) == 2 {
		return "20" + y
	}
	return y
}

// PaymentMethodData is the instrument used for an attempt.
type PaymentMethodData struct {
	Type  enums.PaymentMethod `json:"type"`
	Card  *Card               `json:"card,omitempty"`
	Token masking.Secret      `json:"token,omitempty"`
}

// Customer is what the merchant shares about the payer.
type Customer struct {
	ID    string         `json:"id,omitempty"`
	Name  masking.Secret `json:"name,omitempty"`
	Email masking.Secret `json:"email,omitempty"`
	Phone masking.Secret `json:"phone,omitempty"`
	IP    string         `json:"ip,omitempty"`
}

// AuthorizeData is the request payload of the Authorize flow.
type AuthorizeData struct {
	Amount        MinorUnit         `json:"amount"`
	Currency      Currency          `json:"currency"`
	PaymentMethod PaymentMethodData `json:"payment_method"`
	CaptureMethod CaptureMethod     `json:"capture_method"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Description   string            `json:"description,omitempty"`
	Customer      *Customer         `json:"customer,omitempty"`
}

// SyncData is the request payload of the PSync flow.
type SyncData struct {
	ConnectorTransactionID string    `json:"connector_transaction_id"`
	Amount                 MinorUnit `json:"amount"`
	Currency               Currency  `json:"currency"`
}

// CaptureData is the request payload of the Capture flow.
type CaptureData struct {
	ConnectorTransactionID string    `json:"connector_transaction_id"`
	AmountToCapture        MinorUnit `json:"amount_to_capture"`
	Currency               Currency  `json:"currency"`
}

// CancelData is the request payload of the Void flow.
type CancelData struct {
	ConnectorTransactionID string `json:"connector_transaction_id"`
	CancellationReason     string `json:"cancellation_reason,omitempty"`
}

// SetupMandateData is the request payload of the SetupMandate flow.
type SetupMandateData struct {
	Currency      Currency          `json:"currency"`
	PaymentMethod PaymentMethodData `json:"payment_method"`
	Customer      *Customer         `json:"customer,omitempty"`
}

// SessionData is the request payload of the Session flow.
type SessionData struct {
	Amount   MinorUnit `json:"amount"`
	Currency Currency  `json:"currency"`
	Country  string    `json:"country,omitempty"`
}

// TokenizationData is the request payload of the PaymentMethodToken flow.
type TokenizationData struct {
	PaymentMethod PaymentMethodData `json:"payment_method"`
	Currency      Currency          `json:"currency"`
}

// AccessTokenRequestData is the request payload of the AccessTokenAuth flow.
type AccessTokenRequestData struct {
	AppID  masking.Secret `json:"app_id"`
	Secret masking.Secret `json:"secret,omitempty"`
}

// AccessToken is a bearer token issued by a connector.
type AccessToken struct {
	Token     masking.Secret `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
}

// ResponseData is what a payment flow learns from the connector.
type ResponseData struct {
	ConnectorTransactionID string         `json:"connector_transaction_id,omitempty"`
	RedirectURL            string         `json:"redirect_url,omitempty"`
	NetworkTransactionID   string         `json:"network_transaction_id,omitempty"`
	ConnectorReference     string         `json:"connector_reference,omitempty"`
	SessionToken           masking.Secret `json:"session_token,omitempty"`
	PaymentMethodToken     masking.Secret `json:"payment_method_token,omitempty"`
}
