package connector

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"payhub/internal/domain/payment"
)

// Response is the raw result of an executed Request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess checks if the response indicates success (2xx status code)
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

const (
	// NoErrorMessage stands in when a connector gives no message.
	NoErrorMessage = "No error message"
	// NoErrorCode stands in when a connector gives no code.
	NoErrorCode = "No error code"
	// ResponseDeserializationFailedCode marks an ErrorResponse produced
	// because the connector's body did not match its schema.
	ResponseDeserializationFailedCode = "RESPONSE_DESERIALIZATION_FAILED"

	reasonSnippetLen = 512
)

// ErrorResponse is the one shape every connector failure is normalized into.
type ErrorResponse struct {
	StatusCode             int                   `json:"status_code"`
	Code                   string                `json:"code"`
	Message                string                `json:"message"`
	Reason                 string                `json:"reason,omitempty"`
	AttemptStatus          payment.AttemptStatus `json:"attempt_status,omitempty"`
	ConnectorTransactionID string                `json:"connector_transaction_id,omitempty"`
}

func (e ErrorResponse) Error() string {
	if e.Reason != "" {
		return e.Code + ": " + e.Message + " (" + e.Reason + ")"
	}
	return e.Code + ": " + e.Message
}

// FallbackErrorResponse is used when a connector's error body cannot be
// parsed. It keeps the status code and a snippet of the body.
func FallbackErrorResponse(res Response) ErrorResponse {
	return ErrorResponse{
		StatusCode: res.StatusCode,
		Code:       NoErrorCode,
		Message:    NoErrorMessage,
		Reason:     snippet(res.Body),
	}
}

// snippet is the start of b as valid UTF-8, cut on a rune boundary.
func snippet(b []byte) string {
	s := strings.ToValidUTF8(string(bytes.TrimSpace(b)), "\uFFFD")
	if len(s) > reasonSnippetLen {
		s = s[:reasonSnippetLen]
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}

// DecodeErrorResponse parses a connector error body of type T and maps it
// with fn. Parse failures degrade to FallbackErrorResponse, so the result is
// always usable. The status code is always taken from res.
func DecodeErrorResponse[T any](res Response, ev *Event, fn func(T) ErrorResponse) ErrorResponse {
	var body T
	if err := json.Unmarshal(res.Body, &body); err != nil {
		log.Warn().Err(err).Int("status_code", res.StatusCode).Msg("unparseable connector error body")
		out := FallbackErrorResponse(res)
		ev.SetErrorResponse(out)
		return out
	}
	ev.SetResponseBody(body)
	log.Info().Interface("connector_response", Snapshot(body)).Msg("connector error response")
	out := fn(body)
	out.StatusCode = res.StatusCode
	if out.Message == "" {
		out.Message = NoErrorMessage
	}
	if out.Code == "" {
		out.Code = NoErrorCode
	}
	return out
}

// ParseJSON decodes a connector success body into T, mapping any failure to
// ResponseDeserializationFailed.
func ParseJSON[T any](res Response, what string) (T, error) {
	var out T
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return out, DeserializationFailed(err).Attach("parsing " + what)
	}
	return out, nil
}
