package connector

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"payhub/internal/masking"
)

// Event is the observability record of one connector call. Every value in
// it has already been masked. A nil *Event is valid and records nothing.
type Event struct {
	ID             string            `json:"id"`
	MerchantID     string            `json:"merchant_id"`
	Connector      string            `json:"connector"`
	Flow           string            `json:"flow"`
	PaymentID      string            `json:"payment_id,omitempty"`
	AttemptID      string            `json:"attempt_id,omitempty"`
	Method         Method            `json:"method,omitempty"`
	URL            string            `json:"url,omitempty"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestBody    any               `json:"request_body,omitempty"`
	StatusCode     int               `json:"status_code,omitempty"`
	ResponseBody   any               `json:"response_body,omitempty"`
	Error          *ErrorResponse    `json:"error,omitempty"`
	LatencyMS      int64             `json:"latency_ms"`
	CreatedAt      time.Time         `json:"created_at"`

	started time.Time
}

// NewEvent starts an event for one call.
func NewEvent(merchantID, connector, flowName, paymentID, attemptID string) *Event {
	now := time.Now()
	return &Event{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Connector:  connector,
		Flow:       flowName,
		PaymentID:  paymentID,
		AttemptID:  attemptID,
		CreatedAt:  now.UTC(),
		started:    now,
	}
}

// SetRequest snapshots the outbound request.
func (e *Event) SetRequest(req *Request) {
	if e == nil || req == nil {
		return
	}
	e.Method = req.Method
	e.URL = req.URL
	e.RequestHeaders = req.MaskedHeaders()
	e.RequestBody = req.MaskedBody()
}

// SetResponseBody snapshots a parsed connector body.
func (e *Event) SetResponseBody(v any) {
	if e == nil {
		return
	}
	e.ResponseBody = Snapshot(v)
}

func (e *Event) SetStatusCode(code int) {
	if e == nil {
		return
	}
	e.StatusCode = code
}

func (e *Event) SetErrorResponse(er ErrorResponse) {
	if e == nil {
		return
	}
	e.Error = &er
}

// Finish stamps the latency.
func (e *Event) Finish() {
	if e == nil {
		return
	}
	e.LatencyMS = time.Since(e.started).Milliseconds()
}

// Snapshot is v with sensitive values masked, ready for a log line or an
// event. It never fails.
func Snapshot(v any) any {
	return masking.SerializeOr(v, maskFailed)
}

// EventSink receives finished events. Implementations must not fail the
// caller; they log and move on.
type EventSink interface {
	Record(e *Event)
}

// LogSink writes events to the global logger.
type LogSink struct{}

func (LogSink) Record(e *Event) {
	if e == nil {
		return
	}
	l := log.Info()
	if e.Error != nil {
		l = log.Warn().Str("error_code", e.Error.Code).Str("error_message", e.Error.Message)
	}
	l.Str("event_id", e.ID).
		Str("connector", e.Connector).
		Str("flow", e.Flow).
		Str("merchant_id", e.MerchantID).
		Str("method", string(e.Method)).
		Str("url", e.URL).
		Int("status_code", e.StatusCode).
		Int64("latency_ms", e.LatencyMS).
		Interface("request_headers", e.RequestHeaders).
		Interface("request_body", e.RequestBody).
		Interface("response_body", e.ResponseBody).
		Msg("connector event")
}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Record(e *Event) {
	for _, s := range m {
		if s != nil {
			s.Record(e)
		}
	}
}
