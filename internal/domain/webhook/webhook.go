// Package webhook models inbound connector notifications: the raw request,
// the internal event taxonomy it is classified into, and the stored event
// with its processing lifecycle.
package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"payhub/internal/domain/enums"
)

// Request is an inbound webhook as delivered by the connector.
type Request struct {
	Method      string
	URI         string
	Headers     http.Header
	QueryParams string
	Body        []byte
}

// EventType classifies a webhook into the internal event taxonomy.
type EventType string

const (
	EventPaymentSucceeded     EventType = "payment_intent_success"
	EventPaymentFailed        EventType = "payment_intent_failure"
	EventPaymentProcessing    EventType = "payment_intent_processing"
	EventPaymentCancelled     EventType = "payment_intent_cancelled"
	EventPaymentAuthorized    EventType = "payment_intent_authorization_success"
	EventPaymentAuthFailed    EventType = "payment_intent_authorization_failure"
	EventPaymentCaptured      EventType = "payment_intent_capture_success"
	EventPaymentCaptureFailed EventType = "payment_intent_capture_failure"
	EventRefundSucceeded      EventType = "refund_success"
	EventRefundFailed         EventType = "refund_failure"
	EventDisputeOpened        EventType = "dispute_opened"
	EventDisputeWon           EventType = "dispute_won"
	EventDisputeLost          EventType = "dispute_lost"
	EventMandateActive        EventType = "mandate_active"
	EventMandateRevoked       EventType = "mandate_revoked"
	EventNotSupported         EventType = "event_not_supported"
)

// Class groups event types by the object they concern.
type Class string

const (
	ClassPayment Class = "payments"
	ClassRefund  Class = "refunds"
	ClassDispute Class = "disputes"
	ClassMandate Class = "mandates"
	ClassNone    Class = "none"
)

// Class returns the object class an event type concerns.
func (t EventType) Class() Class {
	switch {
	case strings.HasPrefix(string(t), "payment_intent_"):
		return ClassPayment
	case strings.HasPrefix(string(t), "refund_"):
		return ClassRefund
	case strings.HasPrefix(string(t), "dispute_"):
		return ClassDispute
	case strings.HasPrefix(string(t), "mandate_"):
		return ClassMandate
	}
	return ClassNone
}

// ReferenceKind is the internal object a webhook points at.
type ReferenceKind string

const (
	RefPayment ReferenceKind = "payment"
	RefRefund  ReferenceKind = "refund"
	RefDispute ReferenceKind = "dispute"
	RefMandate ReferenceKind = "mandate"
)

// IDType says which identifier space ID belongs to.
type IDType string

const (
	IDConnectorTransaction IDType = "connector_transaction_id"
	IDPaymentAttempt       IDType = "payment_attempt_id"
	IDConnectorRefund      IDType = "connector_refund_id"
	IDRefund               IDType = "refund_id"
	IDConnectorDispute     IDType = "connector_dispute_id"
	IDConnectorMandate     IDType = "connector_mandate_id"
)

// ObjectReferenceID maps a webhook to the internal object it concerns.
type ObjectReferenceID struct {
	Kind   ReferenceKind `json:"kind"`
	IDType IDType        `json:"id_type"`
	ID     string        `json:"id"`
}

func PaymentRef(t IDType, id string) ObjectReferenceID {
	return ObjectReferenceID{Kind: RefPayment, IDType: t, ID: id}
}

func RefundRef(t IDType, id string) ObjectReferenceID {
	return ObjectReferenceID{Kind: RefRefund, IDType: t, ID: id}
}

func (r ObjectReferenceID) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Kind, r.IDType, r.ID)
}

// Event is a received webhook after extraction. Any of ObjectRef, Type and
// Resource may be missing when the connector only partly supports webhooks.
type Event struct {
	ID               string
	MerchantID       string
	Connector        enums.Connector
	Type             EventType
	ObjectRef        *ObjectReferenceID
	Resource         json.RawMessage
	RawBody          []byte
	ExtractErrors    []string
	ProcessingStatus ProcessingStatus
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
}

// ProcessingStatus represents the event processing status
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingQueued    ProcessingStatus = "queued"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
	ProcessingIgnored   ProcessingStatus = "ignored"
)

// NewEvent creates a new pending event with validation
func NewEvent(id, merchantID string, c enums.Connector, raw []byte) (*Event, error) {
	if strings.TrimSpace(merchantID) == "" {
		return nil, fmt.Errorf("merchant id is required")
	}
	if !c.Valid() {
		return nil, fmt.Errorf("invalid connector %d", uint8(c))
	}
	return &Event{
		ID:               id,
		MerchantID:       merchantID,
		Connector:        c,
		Type:             EventNotSupported,
		RawBody:          raw,
		ReceivedAt:       time.Now(),
		ProcessingStatus: ProcessingPending,
	}, nil
}

// UpdateProcessingStatus updates the event processing status
func (e *Event) UpdateProcessingStatus(status ProcessingStatus) error {
	if !e.CanChangeStatus(status) {
		return fmt.Errorf("cannot change status from %s to %s", e.ProcessingStatus, status)
	}

	e.ProcessingStatus = status

	if status == ProcessingCompleted || status == ProcessingFailed || status == ProcessingIgnored {
		now := time.Now()
		e.ProcessedAt = &now
	}
	return nil
}

// MarkForReprocessing marks the event for reprocessing
func (e *Event) MarkForReprocessing() error {
	if e.ProcessingStatus == ProcessingPending {
		return fmt.Errorf("event is already pending processing")
	}
	e.ProcessingStatus = ProcessingQueued
	e.ProcessedAt = nil
	return nil
}

// IsProcessed checks if the event has been processed
func (e *Event) IsProcessed() bool {
	switch e.ProcessingStatus {
	case ProcessingCompleted, ProcessingFailed, ProcessingIgnored:
		return true
	}
	return false
}

// CanChangeStatus checks if status can be changed
func (e *Event) CanChangeStatus(newStatus ProcessingStatus) bool {
	switch e.ProcessingStatus {
	case ProcessingPending:
		return newStatus != ProcessingPending
	case ProcessingQueued:
		return newStatus == ProcessingCompleted || newStatus == ProcessingFailed || newStatus == ProcessingIgnored
	case ProcessingCompleted, ProcessingFailed, ProcessingIgnored:
		return newStatus == ProcessingQueued
	}
	return false
}

// IsPartial reports whether some extraction step was unavailable.
func (e *Event) IsPartial() bool { return len(e.ExtractErrors) > 0 }
