package connector

import (
	"payhub/internal/domain/webhook"
)

// IncomingWebhook extracts what the system needs from a connector's
// webhook. The three calls are independent; a connector may support any
// subset and callers must cope with partial support.
type IncomingWebhook interface {
	ObjectReferenceID(req *webhook.Request) (webhook.ObjectReferenceID, error)
	EventType(req *webhook.Request) (webhook.EventType, error)
	// ResourceObject returns a value that serializes to the payload handed
	// downstream.
	ResourceObject(req *webhook.Request) (any, error)
}

// NoWebhooks is embedded by connectors without a webhook contract.
type NoWebhooks struct{}

func (NoWebhooks) ObjectReferenceID(*webhook.Request) (webhook.ObjectReferenceID, error) {
	return webhook.ObjectReferenceID{}, WebhooksNotImplemented()
}

func (NoWebhooks) EventType(*webhook.Request) (webhook.EventType, error) {
	return "", WebhooksNotImplemented()
}

func (NoWebhooks) ResourceObject(*webhook.Request) (any, error) {
	return nil, WebhooksNotImplemented()
}
