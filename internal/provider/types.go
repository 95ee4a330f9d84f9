package provider

import (
	"payhub/internal/connector"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
)

// Envelopes, one per flow.
type (
	AuthorizeRouterData          = connector.RouterData[flow.Authorize, payment.AuthorizeData, payment.ResponseData]
	PSyncRouterData              = connector.RouterData[flow.PSync, payment.SyncData, payment.ResponseData]
	CaptureRouterData            = connector.RouterData[flow.Capture, payment.CaptureData, payment.ResponseData]
	VoidRouterData               = connector.RouterData[flow.Void, payment.CancelData, payment.ResponseData]
	SetupMandateRouterData       = connector.RouterData[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]
	RefundExecuteRouterData      = connector.RouterData[flow.Execute, refund.Data, refund.ResponseData]
	RefundSyncRouterData         = connector.RouterData[flow.RSync, refund.Data, refund.ResponseData]
	AccessTokenRouterData        = connector.RouterData[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken]
	SessionRouterData            = connector.RouterData[flow.Session, payment.SessionData, payment.ResponseData]
	PaymentMethodTokenRouterData = connector.RouterData[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData]
)

// Integrations, one per flow.
type (
	AuthorizeIntegration          = connector.Integration[flow.Authorize, payment.AuthorizeData, payment.ResponseData]
	PSyncIntegration              = connector.Integration[flow.PSync, payment.SyncData, payment.ResponseData]
	CaptureIntegration            = connector.Integration[flow.Capture, payment.CaptureData, payment.ResponseData]
	VoidIntegration               = connector.Integration[flow.Void, payment.CancelData, payment.ResponseData]
	SetupMandateIntegration       = connector.Integration[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]
	RefundExecuteIntegration      = connector.Integration[flow.Execute, refund.Data, refund.ResponseData]
	RefundSyncIntegration         = connector.Integration[flow.RSync, refund.Data, refund.ResponseData]
	AccessTokenIntegration        = connector.Integration[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken]
	SessionIntegration            = connector.Integration[flow.Session, payment.SessionData, payment.ResponseData]
	PaymentMethodTokenIntegration = connector.Integration[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData]
)

// Capabilities is the public view of a connector's profile.
type Capabilities struct {
	Connector              string   `json:"connector" yaml:"connector"`
	Name                   string   `json:"name" yaml:"name"`
	TestDouble             bool     `json:"test_double" yaml:"test_double"`
	Enabled                bool     `json:"enabled" yaml:"enabled"`
	CurrencyUnit           string   `json:"currency_unit" yaml:"currency_unit"`
	ContentType            string   `json:"content_type" yaml:"content_type"`
	AccessTokenMethods     []string `json:"access_token_methods,omitempty" yaml:"access_token_methods,omitempty"`
	FileStorage            bool     `json:"file_storage" yaml:"file_storage"`
	DefendDispute          bool     `json:"defend_dispute" yaml:"defend_dispute"`
	SeparateAuthentication bool     `json:"separate_authentication" yaml:"separate_authentication"`
	SupportedFlows         []string `json:"supported_flows" yaml:"supported_flows"`
	Webhooks               bool     `json:"webhooks" yaml:"webhooks"`
}

// Common error types
type ProviderError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ProviderErr string `json:"provider_error,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.ProviderErr != "" {
		return e.Message + ": " + e.ProviderErr
	}
	return e.Message
}

// Error codes
const (
	ErrConnectorNotFound = "connector_not_found"
	ErrConnectorDisabled = "connector_disabled"
	ErrInvalidConnector  = "invalid_connector"
	ErrInvalidCard       = "invalid_card"
	ErrInvalidAmount     = "invalid_amount"
	ErrInvalidCurrency   = "invalid_currency"
)

func capabilities(c enums.Connector) Capabilities {
	var methods []string
	for _, pm := range enums.PaymentMethods() {
		if c.SupportsAccessToken(pm) {
			methods = append(methods, string(pm))
		}
	}
	return Capabilities{
		Connector:              c.String(),
		Name:                   c.Name(),
		TestDouble:             c.IsTestDouble(),
		AccessTokenMethods:     methods,
		FileStorage:            c.SupportsFileStorageModule(),
		DefendDispute:          c.RequiresDefendDispute(),
		SeparateAuthentication: c.IsSeparateAuthenticationSupported(),
	}
}
