// Package esnekpos integrates the Esnekpos virtual POS. Only card
// authorization is wired end to end; the sync and refund endpoints are not
// published by Esnekpos yet, so those flows fail with NotImplemented.
package esnekpos

import (
	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/provider"
)

const (
	id          = "esnekpos"
	payEndpoint = "api/pay/EYV3DPay"
)

// Esnekpos is the connector's shared metadata.
type Esnekpos struct{}

func (Esnekpos) ID() string { return id }

func (Esnekpos) CurrencyUnit() payment.CurrencyUnit { return payment.CurrencyUnitMinor }

func (Esnekpos) ContentType() string { return "application/json" }

func (Esnekpos) BaseURL(cfg config.Connectors) string { return cfg.Get(id).BaseURL }

// AuthHeaders returns nothing: merchant credentials travel in the body.
func (Esnekpos) AuthHeaders(auth credential.AuthType) ([]connector.Header, error) {
	if auth.Kind != credential.AuthBodyKey {
		return nil, connector.FailedToObtainAuthType()
	}
	return nil, nil
}

func (Esnekpos) BuildErrorResponse(res connector.Response, ev *connector.Event) connector.ErrorResponse {
	return connector.DecodeErrorResponse(res, ev, func(e ErrorResponse) connector.ErrorResponse {
		return connector.ErrorResponse{
			Code:    e.Code,
			Message: connector.NoErrorMessage,
			Reason:  e.Message,
		}
	})
}

// New returns the adapter for Esnekpos.
func New() *provider.Adapter {
	c := Esnekpos{}
	return (&provider.Adapter{
		Connector:     enums.Esnekpos,
		Common:        c,
		Authorize:     authorize{defaults[flow.Authorize, payment.AuthorizeData, payment.ResponseData](c)},
		PSync:         psync{defaults[flow.PSync, payment.SyncData, payment.ResponseData](c)},
		Capture:       capture{defaults[flow.Capture, payment.CaptureData, payment.ResponseData](c)},
		SetupMandate:  connector.UnsupportedMandate{Defaults: defaults[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData](c)},
		RefundExecute: refundExecute{defaults[flow.Execute, refund.Data, refund.ResponseData](c)},
		RefundSync:    refundSync{defaults[flow.RSync, refund.Data, refund.ResponseData](c)},
		Webhooks:      connector.NoWebhooks{},
		Flows:         []string{flow.NameOf[flow.Authorize]()},
	}).Fill()
}

func defaults[F flow.Flow, Req, Resp any](c connector.Common) connector.Defaults[F, Req, Resp] {
	return connector.Defaults[F, Req, Resp]{Common: c}
}

func payURL(c connector.Common, cfg config.Connectors) string {
	return c.BaseURL(cfg) + payEndpoint
}

// handlePayment parses a payment answer shared by Authorize, PSync and Capture.
func handlePayment[F flow.Flow, Req any](d connector.Defaults[F, Req, payment.ResponseData], rd *connector.RouterData[F, Req, payment.ResponseData], ev *connector.Event, res connector.Response) (*connector.RouterData[F, Req, payment.ResponseData], error) {
	if !res.IsSuccess() {
		return rd.WithError(d.ErrorResponse(res, ev)), nil
	}
	body, err := connector.ParseJSON[PaymentsResponse](res, "esnekpos "+flow.NameOf[F]()+" response")
	if err != nil {
		return nil, err
	}
	ev.SetResponseBody(body)
	log.Info().Interface("connector_response", connector.Snapshot(body)).Msg("esnekpos response")

	if body.failed() {
		return rd.WithError(connector.ErrorResponse{
			StatusCode:             res.StatusCode,
			Code:                   body.ReturnCode,
			Message:                body.ReturnMessage,
			AttemptStatus:          payment.StatusFailure,
			ConnectorTransactionID: body.RefNo,
		}), nil
	}
	return rd.WithResponse(body.attemptStatus(), body.responseData()), nil
}

func handleRefund[F flow.Flow](d connector.Defaults[F, refund.Data, refund.ResponseData], rd *connector.RouterData[F, refund.Data, refund.ResponseData], ev *connector.Event, res connector.Response) (*connector.RouterData[F, refund.Data, refund.ResponseData], error) {
	if !res.IsSuccess() {
		return rd.WithError(d.ErrorResponse(res, ev)), nil
	}
	body, err := connector.ParseJSON[RefundResponse](res, "esnekpos "+flow.NameOf[F]()+" response")
	if err != nil {
		return nil, err
	}
	ev.SetResponseBody(body)
	return rd.WithResponse("", refund.ResponseData{
		ConnectorRefundID: body.RefundRef,
		Status:            body.refundStatus(),
	}), nil
}

type authorize struct {
	connector.Defaults[flow.Authorize, payment.AuthorizeData, payment.ResponseData]
}

func (a authorize) URL(_ *provider.AuthorizeRouterData, cfg config.Connectors) (string, error) {
	return payURL(a.Common, cfg), nil
}

func (a authorize) RequestBody(rd *provider.AuthorizeRouterData, _ config.Connectors) (connector.RequestContent, error) {
	req, err := newPaymentsRequest(a.Common.CurrencyUnit(), rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONBody{V: req}, nil
}

func (a authorize) BuildRequest(rd *provider.AuthorizeRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.Authorize, payment.AuthorizeData, payment.ResponseData](a, connector.MethodPost, rd, cfg, true)
}

func (a authorize) HandleResponse(rd *provider.AuthorizeRouterData, ev *connector.Event, res connector.Response) (*provider.AuthorizeRouterData, error) {
	return handlePayment(a.Defaults, rd, ev, res)
}

// psync has no status endpoint; URL stays NotImplemented.
type psync struct {
	connector.Defaults[flow.PSync, payment.SyncData, payment.ResponseData]
}

func (p psync) BuildRequest(rd *provider.PSyncRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.PSync, payment.SyncData, payment.ResponseData](p, connector.MethodGet, rd, cfg, false)
}

func (p psync) HandleResponse(rd *provider.PSyncRouterData, ev *connector.Event, res connector.Response) (*provider.PSyncRouterData, error) {
	return handlePayment(p.Defaults, rd, ev, res)
}

// capture shares the pay endpoint but has no body format yet.
type capture struct {
	connector.Defaults[flow.Capture, payment.CaptureData, payment.ResponseData]
}

func (c capture) URL(_ *provider.CaptureRouterData, cfg config.Connectors) (string, error) {
	return payURL(c.Common, cfg), nil
}

func (c capture) BuildRequest(rd *provider.CaptureRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.Capture, payment.CaptureData, payment.ResponseData](c, connector.MethodPost, rd, cfg, true)
}

func (c capture) HandleResponse(rd *provider.CaptureRouterData, ev *connector.Event, res connector.Response) (*provider.CaptureRouterData, error) {
	return handlePayment(c.Defaults, rd, ev, res)
}

type refundExecute struct {
	connector.Defaults[flow.Execute, refund.Data, refund.ResponseData]
}

func (r refundExecute) RequestBody(rd *provider.RefundExecuteRouterData, _ config.Connectors) (connector.RequestContent, error) {
	req, err := newRefundRequest(r.Common.CurrencyUnit(), rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONBody{V: req}, nil
}

func (r refundExecute) BuildRequest(rd *provider.RefundExecuteRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.Execute, refund.Data, refund.ResponseData](r, connector.MethodPost, rd, cfg, true)
}

func (r refundExecute) HandleResponse(rd *provider.RefundExecuteRouterData, ev *connector.Event, res connector.Response) (*provider.RefundExecuteRouterData, error) {
	return handleRefund(r.Defaults, rd, ev, res)
}

type refundSync struct {
	connector.Defaults[flow.RSync, refund.Data, refund.ResponseData]
}

func (r refundSync) BuildRequest(rd *provider.RefundSyncRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.RSync, refund.Data, refund.ResponseData](r, connector.MethodGet, rd, cfg, true)
}

func (r refundSync) HandleResponse(rd *provider.RefundSyncRouterData, ev *connector.Event, res connector.Response) (*provider.RefundSyncRouterData, error) {
	return handleRefund(r.Defaults, rd, ev, res)
}
