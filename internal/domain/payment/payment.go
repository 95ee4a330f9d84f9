package payment

import (
	"fmt"
	"strings"
	"time"

	"payhub/internal/domain/enums"
)

// Attempt is one try at moving money through one connector. A payment may
// have several attempts; each is bound to exactly one connector.
type Attempt struct {
	ID                     string              `json:"id"`
	MerchantID             string              `json:"merchant_id"`
	PaymentID              string              `json:"payment_id"`
	Connector              enums.Connector     `json:"connector"`
	PaymentMethod          enums.PaymentMethod `json:"payment_method"`
	Amount                 MinorUnit           `json:"amount"`
	AmountRefunded         MinorUnit           `json:"amount_refunded"`
	Currency               Currency            `json:"currency"`
	CaptureMethod          CaptureMethod       `json:"capture_method"`
	Status                 AttemptStatus       `json:"status"`
	ConnectorTransactionID string              `json:"connector_transaction_id,omitempty"`
	ErrorCode              string              `json:"error_code,omitempty"`
	ErrorMessage           string              `json:"error_message,omitempty"`
	CardFingerprint        string              `json:"-"`
	SyncCount              int                 `json:"sync_count"`
	NextSyncAt             *time.Time          `json:"next_sync_at,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// NewAttempt creates a new attempt in the started state.
func NewAttempt(id, merchantID, paymentID string, c enums.Connector, pm enums.PaymentMethod, amount MinorUnit, cur Currency, cm CaptureMethod) (*Attempt, error) {
	if err := validateAttemptCreation(merchantID, paymentID, c, amount, cur); err != nil {
		return nil, err
	}
	if cm == "" {
		cm = CaptureAutomatic
	}
	now := time.Now()
	return &Attempt{
		ID:            id,
		MerchantID:    merchantID,
		PaymentID:     paymentID,
		Connector:     c,
		PaymentMethod: pm,
		Amount:        amount,
		Currency:      cur,
		CaptureMethod: cm,
		Status:        StatusStarted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Apply records the outcome of a connector call. Empty values leave the
// stored ones untouched.
func (a *Attempt) Apply(status AttemptStatus, connectorTxnID, errCode, errMessage string) error {
	if a.Status.IsTerminal() && status != "" && status != a.Status {
		return DomainError{
			Code:    ErrAttemptReadOnly,
			Message: fmt.Sprintf("attempt %s cannot move from %s to %s", a.ID, a.Status, status),
		}
	}
	if status != "" {
		a.Status = status
	}
	if connectorTxnID != "" {
		a.ConnectorTransactionID = connectorTxnID
	}
	a.ErrorCode = errCode
	a.ErrorMessage = errMessage
	a.UpdatedAt = time.Now()
	return nil
}

// RefundableAmount is the part of Amount not yet refunded.
func (a *Attempt) RefundableAmount() MinorUnit {
	return a.Amount - a.AmountRefunded
}

// RecordRefund adds an accepted refund to the refunded total.
func (a *Attempt) RecordRefund(amount MinorUnit) error {
	if amount <= 0 || amount > a.RefundableAmount() {
		return DomainError{
			Code:    ErrRefundExceedsAmount,
			Message: fmt.Sprintf("cannot refund %d of attempt %s, %d left", amount, a.ID, a.RefundableAmount()),
		}
	}
	a.AmountRefunded += amount
	a.UpdatedAt = time.Now()
	return nil
}

// ScheduleSync books the next status re-query.
func (a *Attempt) ScheduleSync(at time.Time) {
	a.SyncCount++
	a.NextSyncAt = &at
	a.UpdatedAt = time.Now()
}

// NeedsSync reports whether the attempt is still waiting on the connector.
func (a *Attempt) NeedsSync() bool {
	return !a.Status.IsTerminal() && a.ConnectorTransactionID != ""
}

func validateAttemptCreation(merchantID, paymentID string, c enums.Connector, amount MinorUnit, cur Currency) error {
	if strings.TrimSpace(merchantID) == "" {
		return DomainError{Code: ErrInvalidMerchant, Message: "merchant id is required"}
	}
	if strings.TrimSpace(paymentID) == "" {
		return DomainError{Code: ErrInvalidPayment, Message: "payment id is required"}
	}
	if !c.Valid() {
		return DomainError{Code: ErrInvalidConnector, Message: fmt.Sprintf("unknown connector %d", uint8(c))}
	}
	if amount <= 0 {
		return DomainError{Code: ErrInvalidAmount, Message: fmt.Sprintf("amount must be positive: %d", amount)}
	}
	if err := cur.Validate(); err != nil {
		return DomainError{Code: ErrInvalidCurrency, Message: err.Error()}
	}
	return nil
}

// DomainError represents a domain-level error
type DomainError struct {
	Message string
	Code    string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("domain error [%s]: %s", e.Code, e.Message)
}

// Domain error codes
const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrInvalidMerchant  = "INVALID_MERCHANT"
	ErrInvalidPayment   = "INVALID_PAYMENT"
	ErrInvalidConnector = "INVALID_CONNECTOR"
	ErrAttemptReadOnly  = "ATTEMPT_READ_ONLY"

	ErrRefundExceedsAmount = "REFUND_EXCEEDS_AMOUNT"
)
