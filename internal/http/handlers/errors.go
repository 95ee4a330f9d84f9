package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	"payhub/internal/provider"
	paymentsvc "payhub/internal/services/payment"
	"payhub/internal/store/repositories"
)

// ErrorBody is the JSON shape of every error answer.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Kind names the class of err for clients and logs.
func Kind(err error) string {
	var pe *provider.ProviderError
	var de payment.DomainError
	var se paymentsvc.ServiceError
	var er connector.ErrorResponse
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repositories.ErrNotFound):
		return "not_found"
	case errors.As(err, &pe):
		return pe.Code
	case errors.As(err, &de):
		return de.Code
	case connector.KindOf(err) != connector.KindUnknown:
		return connector.KindOf(err).String()
	case errors.As(err, &er):
		return "connector_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &se) && se.Err == nil:
		return "invalid_request"
	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	var pe *provider.ProviderError
	var de payment.DomainError
	var se paymentsvc.ServiceError
	var er connector.ErrorResponse
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &pe):
		switch pe.Code {
		case provider.ErrConnectorNotFound:
			return http.StatusNotFound
		case provider.ErrConnectorDisabled:
			return http.StatusForbidden
		default:
			return http.StatusBadRequest
		}

	case errors.As(err, &de):
		if de.Code == payment.ErrAttemptReadOnly {
			return http.StatusConflict
		}
		return http.StatusBadRequest

	case connector.KindOf(err) != connector.KindUnknown:
		return kindStatus(connector.KindOf(err))

	case errors.As(err, &er):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	case errors.As(err, &se) && se.Err == nil:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

func kindStatus(k connector.Kind) int {
	switch k {
	case connector.KindNotImplemented, connector.KindFlowNotSupported, connector.KindWebhooksNotImplemented:
		return http.StatusNotImplemented
	case connector.KindNotSupported, connector.KindMissingRequiredField, connector.KindInvalidDataFormat,
		connector.KindFailedToObtainAuthType, connector.KindRequestEncodingFailed:
		return http.StatusUnprocessableEntity
	case connector.KindInvalidConnectorName:
		return http.StatusBadRequest
	case connector.KindWebhookBodyDecodingFailed, connector.KindWebhookReferenceIDNotFound,
		connector.KindWebhookEventTypeNotFound, connector.KindWebhookResourceObjectNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, ErrorBody{Code: Kind(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := decode(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
