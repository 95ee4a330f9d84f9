// Package webhook receives connector notifications, stores them and applies
// payment outcomes to the attempts they reference.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/metrics"
	"payhub/internal/provider"
	"payhub/internal/store/repositories"
)

// Service handles inbound webhooks
type Service struct {
	registry *provider.Registry
	accounts repositories.AccountRepository
	events   repositories.WebhookEventRepository
	uow      repositories.UnitOfWork
}

// NewService creates a new webhook service
func NewService(registry *provider.Registry, accounts repositories.AccountRepository, events repositories.WebhookEventRepository, uow repositories.UnitOfWork) *Service {
	return &Service{registry: registry, accounts: accounts, events: events, uow: uow}
}

// attemptStatuses maps payment event types onto the attempt status they
// imply. Types missing here are recorded without touching the attempt.
var attemptStatuses = map[webhook.EventType]payment.AttemptStatus{
	webhook.EventPaymentSucceeded:     payment.StatusCharged,
	webhook.EventPaymentFailed:        payment.StatusFailure,
	webhook.EventPaymentProcessing:    payment.StatusPending,
	webhook.EventPaymentCancelled:     payment.StatusVoided,
	webhook.EventPaymentAuthorized:    payment.StatusAuthorized,
	webhook.EventPaymentAuthFailed:    payment.StatusAuthorizationFailed,
	webhook.EventPaymentCaptured:      payment.StatusCharged,
	webhook.EventPaymentCaptureFailed: payment.StatusCaptureFailed,
}

// Receive extracts, stores and processes one webhook. The three extraction
// calls run independently, so a connector that supports only some of them
// still yields a stored event. The returned error is reserved for requests
// that cannot be attributed to a merchant account or cannot be stored.
func (s *Service) Receive(ctx context.Context, connectorName, merchantID string, req *webhook.Request) (*webhook.Event, error) {
	a, err := s.registry.GetByName(connectorName)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.Find(ctx, merchantID, a.Connector); err != nil {
		return nil, fmt.Errorf("webhook for %s/%s: %w", merchantID, a.Connector, err)
	}

	ev, err := webhook.NewEvent(uuid.NewString(), merchantID, a.Connector, req.Body)
	if err != nil {
		return nil, err
	}
	unsupported := extract(a.Webhooks, req, ev)

	if unsupported {
		if err := ev.UpdateProcessingStatus(webhook.ProcessingIgnored); err != nil {
			return nil, err
		}
		if err := s.events.Save(ctx, ev); err != nil {
			return nil, err
		}
		s.record(ev)
		return ev, nil
	}

	if err := s.events.Save(ctx, ev); err != nil {
		return nil, err
	}
	if err := s.process(ctx, ev); err != nil {
		return nil, err
	}
	s.record(ev)
	return ev, nil
}

// extract fills ev from the connector's webhook contract. It reports true
// when the connector implements none of it.
func extract(w connector.IncomingWebhook, req *webhook.Request, ev *webhook.Event) bool {
	missing := 0
	note := func(step string, err error) {
		if errors.Is(err, connector.ErrWebhooksNotImplemented) {
			missing++
		}
		ev.ExtractErrors = append(ev.ExtractErrors, step+": "+err.Error())
	}

	if ref, err := w.ObjectReferenceID(req); err != nil {
		note("object_reference_id", err)
	} else {
		ev.ObjectRef = &ref
	}

	if typ, err := w.EventType(req); err != nil {
		note("event_type", err)
	} else {
		ev.Type = typ
	}

	if obj, err := w.ResourceObject(req); err != nil {
		note("resource_object", err)
	} else if raw, err := json.Marshal(obj); err != nil {
		note("resource_object", err)
	} else {
		ev.Resource = raw
	}
	return missing == 3
}

// process applies a stored event inside one transaction and records the
// processing status it ends in.
func (s *Service) process(ctx context.Context, ev *webhook.Event) error {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status := s.apply(ctx, tx.Attempts(), ev)
	if err := ev.UpdateProcessingStatus(status); err != nil {
		return err
	}
	if err := tx.WebhookEvents().Save(ctx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) apply(ctx context.Context, attempts repositories.AttemptRepository, ev *webhook.Event) webhook.ProcessingStatus {
	l := log.With().Str("event_id", ev.ID).Str("connector", ev.Connector.String()).Str("type", string(ev.Type)).Logger()

	if ev.ObjectRef == nil {
		l.Info().Strs("extract_errors", ev.ExtractErrors).Msg("webhook has no object reference")
		return webhook.ProcessingIgnored
	}
	if ev.ObjectRef.Kind != webhook.RefPayment {
		// Refund, dispute and mandate events are kept for downstream consumers.
		return webhook.ProcessingCompleted
	}

	var (
		a   *payment.Attempt
		err error
	)
	switch ev.ObjectRef.IDType {
	case webhook.IDPaymentAttempt:
		a, err = attempts.FindByID(ctx, ev.ObjectRef.ID)
	default:
		a, err = attempts.FindByConnectorTransaction(ctx, ev.Connector, ev.ObjectRef.ID)
	}
	if err != nil {
		l.Warn().Err(err).Str("ref", ev.ObjectRef.String()).Msg("webhook attempt lookup failed")
		return webhook.ProcessingFailed
	}
	if a.MerchantID != ev.MerchantID {
		l.Warn().Str("attempt_id", a.ID).Msg("webhook references another merchant's attempt")
		return webhook.ProcessingFailed
	}

	status, ok := attemptStatuses[ev.Type]
	if !ok || status == a.Status {
		return webhook.ProcessingCompleted
	}
	if err := a.Apply(status, "", "", ""); err != nil {
		var de payment.DomainError
		if errors.As(err, &de) && de.Code == payment.ErrAttemptReadOnly {
			l.Info().Str("attempt_id", a.ID).Str("status", string(a.Status)).Msg("stale webhook for settled attempt")
			return webhook.ProcessingCompleted
		}
		l.Error().Err(err).Msg("webhook apply failed")
		return webhook.ProcessingFailed
	}
	if !a.NeedsSync() {
		a.NextSyncAt = nil
	}
	if err := attempts.Save(ctx, a); err != nil {
		l.Error().Err(err).Str("attempt_id", a.ID).Msg("attempt save failed")
		return webhook.ProcessingFailed
	}
	l.Info().Str("attempt_id", a.ID).Str("status", string(a.Status)).Msg("attempt updated from webhook")
	return webhook.ProcessingCompleted
}

func (s *Service) record(ev *webhook.Event) {
	metrics.WebhooksReceived.WithLabelValues(ev.Connector.String(), string(ev.ProcessingStatus)).Inc()
	log.Info().
		Str("event_id", ev.ID).
		Str("merchant_id", ev.MerchantID).
		Str("connector", ev.Connector.String()).
		Str("type", string(ev.Type)).
		Str("status", string(ev.ProcessingStatus)).
		Bool("partial", ev.IsPartial()).
		Time("received_at", ev.ReceivedAt.UTC().Truncate(time.Millisecond)).
		Msg("webhook received")
}
