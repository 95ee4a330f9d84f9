package connector

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates connector errors for control flow. Callers branch on
// Kind; the notes on an Error are for logs only.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotImplemented
	KindFlowNotSupported
	KindNotSupported
	KindResponseDeserializationFailed
	KindResponseHandlingFailed
	KindWebhooksNotImplemented
	KindWebhookBodyDecodingFailed
	KindWebhookReferenceIDNotFound
	KindWebhookEventTypeNotFound
	KindWebhookResourceObjectNotFound
	KindRequestEncodingFailed
	KindMissingRequiredField
	KindFailedToObtainAuthType
	KindInvalidConnectorName
	KindInvalidDataFormat
	KindProcessingStepFailed
	KindExecutionFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                       "unknown",
	KindNotImplemented:                "not_implemented",
	KindFlowNotSupported:              "flow_not_supported",
	KindNotSupported:                  "not_supported",
	KindResponseDeserializationFailed: "response_deserialization_failed",
	KindResponseHandlingFailed:        "response_handling_failed",
	KindWebhooksNotImplemented:        "webhooks_not_implemented",
	KindWebhookBodyDecodingFailed:     "webhook_body_decoding_failed",
	KindWebhookReferenceIDNotFound:    "webhook_reference_id_not_found",
	KindWebhookEventTypeNotFound:      "webhook_event_type_not_found",
	KindWebhookResourceObjectNotFound: "webhook_resource_object_not_found",
	KindRequestEncodingFailed:         "request_encoding_failed",
	KindMissingRequiredField:          "missing_required_field",
	KindFailedToObtainAuthType:        "failed_to_obtain_auth_type",
	KindInvalidConnectorName:          "invalid_connector_name",
	KindInvalidDataFormat:             "invalid_data_format",
	KindProcessingStepFailed:          "processing_step_failed",
	KindExecutionFailed:               "execution_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the single error type produced by the connector layer.
type Error struct {
	Kind Kind
	// Subject carries the kind-specific detail: the operation for
	// NotImplemented, the field for MissingRequiredField, and so on.
	Subject   string
	Flow      string
	Connector string

	notes []string
	cause error
}

// Sentinels for errors.Is; they match any Error of the same Kind.
var (
	ErrNotImplemented                = &Error{Kind: KindNotImplemented}
	ErrFlowNotSupported              = &Error{Kind: KindFlowNotSupported}
	ErrNotSupported                  = &Error{Kind: KindNotSupported}
	ErrResponseDeserializationFailed = &Error{Kind: KindResponseDeserializationFailed}
	ErrWebhooksNotImplemented        = &Error{Kind: KindWebhooksNotImplemented}
	ErrRequestEncodingFailed         = &Error{Kind: KindRequestEncodingFailed}
	ErrMissingRequiredField          = &Error{Kind: KindMissingRequiredField}
	ErrFailedToObtainAuthType        = &Error{Kind: KindFailedToObtainAuthType}
	ErrInvalidConnectorName          = &Error{Kind: KindInvalidConnectorName}
	ErrExecutionFailed               = &Error{Kind: KindExecutionFailed}

	ErrWebhookBodyDecodingFailed     = &Error{Kind: KindWebhookBodyDecodingFailed}
	ErrWebhookReferenceIDNotFound    = &Error{Kind: KindWebhookReferenceIDNotFound}
	ErrWebhookResourceObjectNotFound = &Error{Kind: KindWebhookResourceObjectNotFound}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotImplemented:
		msg = "not implemented: " + e.Subject
	case KindFlowNotSupported:
		msg = fmt.Sprintf("%s flow not supported by %s connector", e.Flow, e.Connector)
	case KindNotSupported:
		msg = fmt.Sprintf("%s is not supported by %s", e.Subject, e.Connector)
	case KindResponseDeserializationFailed:
		msg = "failed to deserialize connector response"
	case KindWebhooksNotImplemented:
		msg = "webhooks not implemented for this connector"
	case KindRequestEncodingFailed:
		msg = "failed to encode connector request"
	case KindMissingRequiredField:
		msg = "missing required field: " + e.Subject
	case KindFailedToObtainAuthType:
		msg = "failed to obtain authentication type"
	case KindInvalidConnectorName:
		msg = "invalid connector name: " + e.Subject
	default:
		msg = strings.ReplaceAll(e.Kind.String(), "_", " ")
		if e.Subject != "" {
			msg += ": " + e.Subject
		}
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Notes returns the context attached on the way up, oldest first.
func (e *Error) Notes() []string {
	return append([]string(nil), e.notes...)
}

// Attach returns a copy of e with note appended. e is left unchanged.
func (e *Error) Attach(note string) *Error {
	c := *e
	c.notes = append(append([]string(nil), e.notes...), note)
	return &c
}

// Report renders the error with its notes for logging.
func (e *Error) Report() string {
	if len(e.notes) == 0 {
		return e.Error()
	}
	return e.Error() + " [" + strings.Join(e.notes, "; ") + "]"
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Attach adds a note to err. Errors from outside this package are wrapped
// into an Error of KindUnknown first.
func Attach(err error, note string) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Attach(note)
	}
	return (&Error{Kind: KindUnknown, cause: err}).Attach(note)
}

// ChangeContext re-labels err under a new kind, keeping it as the cause.
func ChangeContext(err error, kind Kind) *Error {
	return &Error{Kind: kind, cause: err}
}

func NotImplemented(op string) *Error {
	return &Error{Kind: KindNotImplemented, Subject: op}
}

// NotImplementedFor names both the operation and the flow it was asked for.
func NotImplementedFor(op, flowName string) *Error {
	return &Error{Kind: KindNotImplemented, Subject: fmt.Sprintf("%s for %s flow", op, flowName), Flow: flowName}
}

func FlowNotSupported(flowName, connector string) *Error {
	return &Error{Kind: KindFlowNotSupported, Flow: flowName, Connector: connector}
}

func NotSupported(what, connector string) *Error {
	return &Error{Kind: KindNotSupported, Subject: what, Connector: connector}
}

func DeserializationFailed(cause error) *Error {
	return &Error{Kind: KindResponseDeserializationFailed, cause: cause}
}

func WebhooksNotImplemented() *Error {
	return &Error{Kind: KindWebhooksNotImplemented}
}

func RequestEncodingFailed(cause error) *Error {
	return &Error{Kind: KindRequestEncodingFailed, cause: cause}
}

func MissingRequiredField(field string) *Error {
	return &Error{Kind: KindMissingRequiredField, Subject: field}
}

func FailedToObtainAuthType() *Error {
	return &Error{Kind: KindFailedToObtainAuthType}
}

func InvalidConnectorName(name string) *Error {
	return &Error{Kind: KindInvalidConnectorName, Subject: name}
}

func ExecutionFailed(cause error) *Error {
	return &Error{Kind: KindExecutionFailed, cause: cause}
}

func WebhookBodyDecodingFailed(cause error) *Error {
	return &Error{Kind: KindWebhookBodyDecodingFailed, cause: cause}
}

func WebhookReferenceIDNotFound(what string) *Error {
	return &Error{Kind: KindWebhookReferenceIDNotFound, Subject: what}
}

func WebhookResourceObjectNotFound() *Error {
	return &Error{Kind: KindWebhookResourceObjectNotFound}
}
