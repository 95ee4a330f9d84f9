package data

import (
	"context"

	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/store/repositories"
)

// Service handles data retrieval operations
type Service struct {
	attempts        repositories.AttemptRepository
	connectorEvents repositories.ConnectorEventRepository
	webhookEvents   repositories.WebhookEventRepository
}

// NewService creates a new data service
func NewService(attempts repositories.AttemptRepository, connectorEvents repositories.ConnectorEventRepository, webhookEvents repositories.WebhookEventRepository) *Service {
	return &Service{
		attempts:        attempts,
		connectorEvents: connectorEvents,
		webhookEvents:   webhookEvents,
	}
}

// ListAttempts retrieves paginated payment attempts for a merchant
func (s *Service) ListAttempts(ctx context.Context, merchantID string, req ListRequest) (*AttemptListResponse, error) {
	req.Validate()

	attempts, err := s.attempts.FindByMerchant(ctx, merchantID, req.Limit, req.Offset)
	if err != nil {
		return nil, &ServiceError{Op: "list_attempts", Err: err}
	}
	if attempts == nil {
		attempts = []*payment.Attempt{}
	}
	return &AttemptListResponse{Attempts: attempts, Limit: req.Limit, Offset: req.Offset}, nil
}

// GetAttempt returns one attempt and the connector calls made for its payment.
func (s *Service) GetAttempt(ctx context.Context, merchantID, attemptID string) (*AttemptDetail, error) {
	a, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, &ServiceError{Op: "get_attempt", Err: err}
	}
	if a.MerchantID != merchantID {
		return nil, &ServiceError{Op: "get_attempt", Err: repositories.ErrNotFound}
	}
	events, err := s.connectorEvents.FindByPayment(ctx, merchantID, a.PaymentID)
	if err != nil {
		return nil, &ServiceError{Op: "get_attempt", Err: err}
	}
	calls := events[:0]
	for _, e := range events {
		if e.AttemptID == "" || e.AttemptID == a.ID {
			calls = append(calls, e)
		}
	}
	return &AttemptDetail{Attempt: a, ConnectorEvents: calls}, nil
}

// ListConnectorEvents retrieves the masked connector call log for a merchant
func (s *Service) ListConnectorEvents(ctx context.Context, merchantID string, req ListRequest) (*ConnectorEventListResponse, error) {
	req.Validate()

	events, err := s.connectorEvents.FindByMerchant(ctx, merchantID, req.Limit, req.Offset)
	if err != nil {
		return nil, &ServiceError{Op: "list_connector_events", Err: err}
	}
	if events == nil {
		events = []*connector.Event{}
	}
	return &ConnectorEventListResponse{Events: events, Limit: req.Limit, Offset: req.Offset}, nil
}

// ListWebhookEvents retrieves paginated webhook events for a merchant
func (s *Service) ListWebhookEvents(ctx context.Context, merchantID string, req ListRequest) (*WebhookEventListResponse, error) {
	req.Validate()

	events, err := s.webhookEvents.FindByMerchant(ctx, merchantID, req.Limit, req.Offset)
	if err != nil {
		return nil, &ServiceError{Op: "list_webhook_events", Err: err}
	}
	items := make([]WebhookEventItem, 0, len(events))
	for _, e := range events {
		items = append(items, newWebhookEventItem(e))
	}
	return &WebhookEventListResponse{Events: items, Limit: req.Limit, Offset: req.Offset}, nil
}

// ServiceError represents a data service error
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return "data service " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// AttemptListResponse represents paginated attempt data
type AttemptListResponse struct {
	Attempts []*payment.Attempt `json:"attempts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type AttemptDetail struct {
	Attempt         *payment.Attempt   `json:"attempt"`
	ConnectorEvents []*connector.Event `json:"connector_events"`
}

type ConnectorEventListResponse struct {
	Events []*connector.Event `json:"events"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// WebhookEventListResponse represents paginated webhook data
type WebhookEventListResponse struct {
	Events []WebhookEventItem `json:"events"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// WebhookEventItem is the listing view of a stored webhook. The raw body is
// left out; the extracted resource is what downstream consumers read.
type WebhookEventItem struct {
	ID            string                     `json:"id"`
	Connector     string                     `json:"connector"`
	Type          webhook.EventType          `json:"type"`
	ObjectRef     *webhook.ObjectReferenceID `json:"object_ref,omitempty"`
	Resource      any                        `json:"resource,omitempty"`
	Status        webhook.ProcessingStatus   `json:"status"`
	ExtractErrors []string                   `json:"extract_errors,omitempty"`
	ReceivedAt    string                     `json:"received_at"`
	ProcessedAt   string                     `json:"processed_at,omitempty"`
}

func newWebhookEventItem(e *webhook.Event) WebhookEventItem {
	item := WebhookEventItem{
		ID:            e.ID,
		Connector:     e.Connector.String(),
		Type:          e.Type,
		ObjectRef:     e.ObjectRef,
		Status:        e.ProcessingStatus,
		ExtractErrors: e.ExtractErrors,
		ReceivedAt:    e.ReceivedAt.UTC().Format(timeLayout),
	}
	if len(e.Resource) > 0 {
		item.Resource = e.Resource
	}
	if e.ProcessedAt != nil {
		item.ProcessedAt = e.ProcessedAt.UTC().Format(timeLayout)
	}
	return item
}
