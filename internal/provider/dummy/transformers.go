package dummy

import (
	"encoding/json"
	"strings"

	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/domain/webhook"
	"payhub/internal/masking"
)

type cardRequest struct {
	Number   masking.Secret `json:"number"`
	ExpMonth masking.Secret `json:"expiry_month"`
	ExpYear  masking.Secret `json:"expiry_year"`
	CVC      masking.Secret `json:"cvc"`
	Name     masking.Secret `json:"name,omitempty"`
}

type paymentRequest struct {
	Amount      payment.MinorUnit `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	Card        *cardRequest      `json:"card,omitempty"`
	Token       masking.Secret    `json:"payment_method_token,omitempty"`
	Capture     bool              `json:"capture"`
	ReturnURL   string            `json:"return_url,omitempty"`
	Description string            `json:"description,omitempty"`
	Email       masking.Secret    `json:"email,omitempty"`
}

func newPaymentRequest(ref string, d payment.AuthorizeData) paymentRequest {
	out := paymentRequest{
		Amount:      d.Amount,
		Currency:    string(d.Currency),
		Reference:   ref,
		Token:       d.PaymentMethod.Token,
		Capture:     d.CaptureMethod == "" || d.CaptureMethod == payment.CaptureAutomatic,
		ReturnURL:   d.ReturnURL,
		Description: d.Description,
	}
	if c := d.PaymentMethod.Card; c != nil {
		out.Card = &cardRequest{
			Number:   c.Number,
			ExpMonth: c.ExpMonth,
			ExpYear:  masking.Secret(c.ExpiryYear4()),
			CVC:      c.CVC,
			Name:     c.HolderName,
		}
	}
	if d.Customer != nil {
		out.Email = d.Customer.Email
	}
	return out
}

// captureRequest is sent form-encoded.
type captureRequest struct {
	AmountToCapture payment.MinorUnit `json:"amount_to_capture"`
	Currency        string            `json:"currency"`
}

type voidRequest struct {
	Reason string `json:"cancellation_reason,omitempty"`
}

type refundRequest struct {
	Payment   string            `json:"payment_id"`
	Amount    payment.MinorUnit `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"reference"`
	Reason    string            `json:"reason,omitempty"`
}

// tokenRequest is sent form-encoded.
type tokenRequest struct {
	GrantType    string         `json:"grant_type"`
	ClientID     masking.Secret `json:"client_id"`
	ClientSecret masking.Secret `json:"client_secret,omitempty"`
}

type tokenizeRequest struct {
	Card     *cardRequest `json:"card"`
	Currency string       `json:"currency,omitempty"`
}

type sessionRequest struct {
	Amount   payment.MinorUnit `json:"amount"`
	Currency string            `json:"currency"`
	Country  string            `json:"country,omitempty"`
}

type paymentResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Reference   string `json:"reference,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	NetworkTxID string `json:"network_transaction_id,omitempty"`
}

func (r paymentResponse) attemptStatus() payment.AttemptStatus {
	switch r.Status {
	case "succeeded":
		return payment.StatusCharged
	case "requires_capture":
		return payment.StatusAuthorized
	case "requires_action":
		return payment.StatusAuthenticationPending
	case "cancelled":
		return payment.StatusVoided
	case "failed":
		return payment.StatusFailure
	}
	return payment.StatusPending
}

func (r paymentResponse) responseData() payment.ResponseData {
	return payment.ResponseData{
		ConnectorTransactionID: r.ID,
		RedirectURL:            r.RedirectURL,
		NetworkTransactionID:   r.NetworkTxID,
		ConnectorReference:     r.Reference,
	}
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (r refundResponse) refundStatus() refund.Status {
	switch r.Status {
	case "succeeded":
		return refund.StatusSuccess
	case "failed":
		return refund.StatusFailure
	case "review":
		return refund.StatusManualReview
	}
	return refund.StatusPending
}

type tokenResponse struct {
	AccessToken masking.Secret `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
}

type sessionResponse struct {
	SessionToken masking.Secret `json:"session_token"`
}

type tokenizeResponse struct {
	Token masking.Secret `json:"token"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// webhookBody is the notification format: the object that changed plus the
// event name.
type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type webhookObject struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Reference string `json:"reference,omitempty"`
}

var webhookEvents = map[string]webhook.EventType{
	"payment.succeeded":      webhook.EventPaymentSucceeded,
	"payment.failed":         webhook.EventPaymentFailed,
	"payment.processing":     webhook.EventPaymentProcessing,
	"payment.cancelled":      webhook.EventPaymentCancelled,
	"payment.authorized":     webhook.EventPaymentAuthorized,
	"payment.captured":       webhook.EventPaymentCaptured,
	"payment.capture_failed": webhook.EventPaymentCaptureFailed,
	"refund.succeeded":       webhook.EventRefundSucceeded,
	"refund.failed":          webhook.EventRefundFailed,
	"dispute.opened":         webhook.EventDisputeOpened,
	"dispute.won":            webhook.EventDisputeWon,
	"dispute.lost":           webhook.EventDisputeLost,
	"mandate.active":         webhook.EventMandateActive,
	"mandate.revoked":        webhook.EventMandateRevoked,
}

func eventType(name string) webhook.EventType {
	if t, ok := webhookEvents[strings.ToLower(name)]; ok {
		return t
	}
	return webhook.EventNotSupported
}
