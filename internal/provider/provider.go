package provider

import (
	"fmt"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
)

// Adapter bundles everything one connector implements. Every integration
// field is set; flows the connector does not support are served by
// connector.Defaults.
type Adapter struct {
	Connector  enums.Connector
	Common     connector.Common
	Validation connector.Validation

	Authorize          AuthorizeIntegration
	PSync              PSyncIntegration
	Capture            CaptureIntegration
	Void               VoidIntegration
	SetupMandate       SetupMandateIntegration
	RefundExecute      RefundExecuteIntegration
	RefundSync         RefundSyncIntegration
	AccessToken        AccessTokenIntegration
	Session            SessionIntegration
	PaymentMethodToken PaymentMethodTokenIntegration

	Webhooks connector.IncomingWebhook

	// Flows names the flows with a real implementation, for listings.
	Flows []string
	// HasWebhooks reports whether Webhooks is more than NoWebhooks.
	HasWebhooks bool
}

// Check reports the first missing piece of an adapter.
func (a *Adapter) Check() error {
	missing := func(what string) error {
		return fmt.Errorf("adapter %s: missing %s", a.Connector, what)
	}
	switch {
	case !a.Connector.Valid():
		return fmt.Errorf("adapter for undeclared connector %d", uint8(a.Connector))
	case a.Common == nil:
		return missing("common")
	case a.Validation == nil:
		return missing("validation")
	case a.Authorize == nil:
		return missing(flow.NameOf[flow.Authorize]())
	case a.PSync == nil:
		return missing(flow.NameOf[flow.PSync]())
	case a.Capture == nil:
		return missing(flow.NameOf[flow.Capture]())
	case a.Void == nil:
		return missing(flow.NameOf[flow.Void]())
	case a.SetupMandate == nil:
		return missing(flow.NameOf[flow.SetupMandate]())
	case a.RefundExecute == nil:
		return missing(flow.NameOf[flow.Execute]())
	case a.RefundSync == nil:
		return missing(flow.NameOf[flow.RSync]())
	case a.AccessToken == nil:
		return missing(flow.NameOf[flow.AccessTokenAuth]())
	case a.Session == nil:
		return missing(flow.NameOf[flow.Session]())
	case a.PaymentMethodToken == nil:
		return missing(flow.NameOf[flow.PaymentMethodToken]())
	case a.Webhooks == nil:
		return missing("webhooks")
	}
	return nil
}

// Supports reports whether flowName has a real implementation.
func (a *Adapter) Supports(flowName string) bool {
	for _, f := range a.Flows {
		if f == flowName {
			return true
		}
	}
	return false
}

// Capabilities describes the adapter for listings.
func (a *Adapter) Capabilities() Capabilities {
	c := capabilities(a.Connector)
	c.CurrencyUnit = a.Common.CurrencyUnit().String()
	c.ContentType = a.Common.ContentType()
	c.SupportedFlows = append([]string{}, a.Flows...)
	c.Webhooks = a.HasWebhooks
	return c
}

// Fill sets every nil integration of a to the fallback for its flow. Sync
// flows fail with NotImplemented and SetupMandate with FlowNotSupported;
// every other flow is absent.
func (a *Adapter) Fill() *Adapter {
	c := a.Common
	if a.Validation == nil {
		a.Validation = connector.AutomaticCaptureOnly{Connector: c.ID()}
	}
	if a.Authorize == nil {
		a.Authorize = connector.Defaults[flow.Authorize, payment.AuthorizeData, payment.ResponseData]{Common: c}
	}
	if a.PSync == nil {
		a.PSync = connector.NoPolling[flow.PSync, payment.SyncData, payment.ResponseData]{
			Defaults: connector.Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: c},
		}
	}
	if a.Capture == nil {
		a.Capture = connector.Defaults[flow.Capture, payment.CaptureData, payment.ResponseData]{Common: c}
	}
	if a.Void == nil {
		a.Void = connector.Defaults[flow.Void, payment.CancelData, payment.ResponseData]{Common: c}
	}
	if a.SetupMandate == nil {
		a.SetupMandate = connector.UnsupportedMandate{
			Defaults: connector.Defaults[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]{Common: c},
		}
	}
	if a.RefundExecute == nil {
		a.RefundExecute = connector.Defaults[flow.Execute, refund.Data, refund.ResponseData]{Common: c}
	}
	if a.RefundSync == nil {
		a.RefundSync = connector.NoPolling[flow.RSync, refund.Data, refund.ResponseData]{
			Defaults: connector.Defaults[flow.RSync, refund.Data, refund.ResponseData]{Common: c},
		}
	}
	if a.AccessToken == nil {
		a.AccessToken = connector.Defaults[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken]{Common: c}
	}
	if a.Session == nil {
		a.Session = connector.Defaults[flow.Session, payment.SessionData, payment.ResponseData]{Common: c}
	}
	if a.PaymentMethodToken == nil {
		a.PaymentMethodToken = connector.Defaults[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData]{Common: c}
	}
	if a.Webhooks == nil {
		a.Webhooks = connector.NoWebhooks{}
	}
	return a
}

// Generic is the adapter for a declared connector with no integration yet.
// Every flow takes the Fill fallback.
func Generic(c enums.Connector) *Adapter {
	return (&Adapter{Connector: c, Common: GenericCommon{Connector: c}}).Fill()
}

// GenericCommon serves connectors without their own metadata: minor units,
// JSON, bearer auth from a header key.
type GenericCommon struct {
	Connector enums.Connector
}

func (g GenericCommon) ID() string { return g.Connector.String() }

func (GenericCommon) CurrencyUnit() payment.CurrencyUnit { return payment.CurrencyUnitMinor }

func (GenericCommon) ContentType() string { return "application/json" }

func (g GenericCommon) BaseURL(cfg config.Connectors) string { return cfg.Get(g.ID()).BaseURL }

func (GenericCommon) AuthHeaders(auth credential.AuthType) ([]connector.Header, error) {
	switch auth.Kind {
	case credential.AuthHeaderKey:
		return []connector.Header{connector.SecretHeader(connector.HeaderAuthorization, "Bearer "+auth.APIKey.Expose())}, nil
	case credential.AuthNoKey, "":
		return nil, nil
	}
	return nil, connector.FailedToObtainAuthType()
}

type genericError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func (GenericCommon) BuildErrorResponse(res connector.Response, ev *connector.Event) connector.ErrorResponse {
	return connector.DecodeErrorResponse(res, ev, func(e genericError) connector.ErrorResponse {
		return connector.ErrorResponse{Code: e.Code, Message: e.Message, Reason: e.Reason}
	})
}
