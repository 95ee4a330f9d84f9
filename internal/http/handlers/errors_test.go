package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	"payhub/internal/provider"
	paymentsvc "payhub/internal/services/payment"
	"payhub/internal/store/repositories"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
		kind string
	}{
		{"nil", nil, http.StatusOK, ""},
		{"not found", fmt.Errorf("load: %w", repositories.ErrNotFound), http.StatusNotFound, "not_found"},
		{"disabled connector", &provider.ProviderError{Code: provider.ErrConnectorDisabled}, http.StatusForbidden, "connector_disabled"},
		{"bad card", &provider.ProviderError{Code: provider.ErrInvalidCard}, http.StatusBadRequest, "invalid_card"},
		{"read only attempt", payment.DomainError{Code: payment.ErrAttemptReadOnly}, http.StatusConflict, payment.ErrAttemptReadOnly},
		{"not implemented", paymentsvc.ServiceError{Op: "sync", Err: connector.NotImplemented("PSync")}, http.StatusNotImplemented, connector.KindNotImplemented.String()},
		{"flow not supported", connector.FlowNotSupported("setup mandate", "esnekpos"), http.StatusNotImplemented, connector.KindFlowNotSupported.String()},
		{"missing field", connector.MissingRequiredField("card"), http.StatusUnprocessableEntity, connector.KindMissingRequiredField.String()},
		{"transport", connector.ExecutionFailed(context.DeadlineExceeded), http.StatusBadGateway, connector.KindExecutionFailed.String()},
		{"refused credentials", paymentsvc.ServiceError{Op: "access_token", Err: connector.ErrorResponse{Code: "unauthorized"}}, http.StatusBadGateway, "connector_error"},
		{"business rule", paymentsvc.ServiceError{Op: "refund", Message: "attempt is pending, not charged"}, http.StatusUnprocessableEntity, "invalid_request"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
			if got := Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind() = %q, want %q", got, tt.kind)
			}
		})
	}
}
