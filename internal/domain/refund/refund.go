// Package refund holds the request and response payloads of the refund flows.
package refund

import "payhub/internal/domain/payment"

// Status is the normalized state of a refund.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSuccess      Status = "success"
	StatusFailure      Status = "failure"
	StatusManualReview Status = "manual_review"
)

// IsTerminal reports whether the refund can still change state.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Data is the request payload of the Execute and RSync flows.
type Data struct {
	RefundID               string            `json:"refund_id"`
	ConnectorTransactionID string            `json:"connector_transaction_id"`
	ConnectorRefundID      string            `json:"connector_refund_id,omitempty"`
	RefundAmount           payment.MinorUnit `json:"refund_amount"`
	PaymentAmount          payment.MinorUnit `json:"payment_amount"`
	Currency               payment.Currency  `json:"currency"`
	Reason                 string            `json:"reason,omitempty"`
}

// ResponseData is what a refund flow learns from the connector.
type ResponseData struct {
	ConnectorRefundID string `json:"connector_refund_id"`
	Status            Status `json:"refund_status"`
}
