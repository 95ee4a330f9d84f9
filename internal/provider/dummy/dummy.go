// Package dummy is the test-double connector behind phonypay and the other
// DummyConnector variants. It speaks a small REST dialect covering every
// flow except mandates, so the full pipeline can run against a fake server.
package dummy

import (
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/domain/webhook"
	"payhub/internal/provider"
)

const formContentType = "application/x-www-form-urlencoded"

// Dummy is the shared metadata of one test-double variant.
type Dummy struct {
	Connector enums.Connector
}

func (d Dummy) ID() string { return d.Connector.String() }

func (Dummy) CurrencyUnit() payment.CurrencyUnit { return payment.CurrencyUnitMinor }

func (Dummy) ContentType() string { return "application/json" }

func (d Dummy) BaseURL(cfg config.Connectors) string { return cfg.Get(d.ID()).BaseURL }

// AuthHeaders sends the API key as a sensitive X-API-KEY header.
func (Dummy) AuthHeaders(auth credential.AuthType) ([]connector.Header, error) {
	if auth.Kind != credential.AuthHeaderKey || auth.APIKey.IsEmpty() {
		return nil, connector.FailedToObtainAuthType()
	}
	return []connector.Header{connector.SecretHeader(connector.HeaderXAPIKey, auth.APIKey.Expose())}, nil
}

func (Dummy) BuildErrorResponse(res connector.Response, ev *connector.Event) connector.ErrorResponse {
	return connector.DecodeErrorResponse(res, ev, func(e errorBody) connector.ErrorResponse {
		return connector.ErrorResponse{Code: e.Error.Code, Message: e.Error.Message, Reason: e.Error.Reason}
	})
}

// New returns the adapter for a DummyConnector variant.
func New(c enums.Connector) *provider.Adapter {
	d := Dummy{Connector: c}
	return (&provider.Adapter{
		Connector: c,
		Common:    d,
		Validation: connector.CaptureMethods{
			Connector: d.ID(),
			Allowed:   []payment.CaptureMethod{payment.CaptureAutomatic, payment.CaptureManual},
		},
		Authorize:          authorize{defaults[flow.Authorize, payment.AuthorizeData, payment.ResponseData](d)},
		PSync:              psync{defaults[flow.PSync, payment.SyncData, payment.ResponseData](d)},
		Capture:            capture{defaults[flow.Capture, payment.CaptureData, payment.ResponseData](d)},
		Void:               void{defaults[flow.Void, payment.CancelData, payment.ResponseData](d)},
		SetupMandate:       connector.UnsupportedMandate{Defaults: defaults[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData](d)},
		RefundExecute:      refundExecute{defaults[flow.Execute, refund.Data, refund.ResponseData](d)},
		RefundSync:         refundSync{defaults[flow.RSync, refund.Data, refund.ResponseData](d)},
		AccessToken:        accessToken{defaults[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken](d)},
		Session:            session{defaults[flow.Session, payment.SessionData, payment.ResponseData](d)},
		PaymentMethodToken: tokenize{defaults[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData](d)},
		Webhooks:           Webhooks{Connector: c},
		HasWebhooks:        true,
		Flows: []string{
			flow.NameOf[flow.Authorize](),
			flow.NameOf[flow.PSync](),
			flow.NameOf[flow.Capture](),
			flow.NameOf[flow.Void](),
			flow.NameOf[flow.Execute](),
			flow.NameOf[flow.RSync](),
			flow.NameOf[flow.AccessTokenAuth](),
			flow.NameOf[flow.Session](),
			flow.NameOf[flow.PaymentMethodToken](),
		},
	}).Fill()
}

func defaults[F flow.Flow, Req, Resp any](d Dummy) connector.Defaults[F, Req, Resp] {
	return connector.Defaults[F, Req, Resp]{Common: d}
}

// compose builds the request and adds the bearer token when one was issued.
func compose[F flow.Flow, Req, Resp any](in connector.Integration[F, Req, Resp], m connector.Method, rd *connector.RouterData[F, Req, Resp], cfg config.Connectors, withBody bool) (*connector.Request, error) {
	req, err := connector.Compose(in, m, rd, cfg, withBody)
	if err != nil {
		return nil, err
	}
	if rd.AccessToken != nil && !rd.AccessToken.Token.IsEmpty() {
		req.Headers = append(req.Headers, connector.SecretHeader(connector.HeaderAuthorization, "Bearer "+rd.AccessToken.Token.Expose()))
	}
	return req, nil
}

func formHeaders(c connector.Common, auth credential.AuthType) ([]connector.Header, error) {
	hs, err := c.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	return append([]connector.Header{connector.PlainHeader(connector.HeaderContentType, formContentType)}, hs...), nil
}

// handle maps a success body with conv and any failure with the common
// error builder.
func handle[F flow.Flow, Req, Resp, Body any](d connector.Defaults[F, Req, Resp], rd *connector.RouterData[F, Req, Resp], ev *connector.Event, res connector.Response, conv func(Body) (payment.AttemptStatus, Resp)) (*connector.RouterData[F, Req, Resp], error) {
	if !res.IsSuccess() {
		return rd.WithError(d.ErrorResponse(res, ev)), nil
	}
	body, err := connector.ParseJSON[Body](res, d.Common.ID()+" "+flow.NameOf[F]()+" response")
	if err != nil {
		return nil, err
	}
	ev.SetResponseBody(body)
	status, out := conv(body)
	return rd.WithResponse(status, out), nil
}

func paymentConv(r paymentResponse) (payment.AttemptStatus, payment.ResponseData) {
	return r.attemptStatus(), r.responseData()
}

func refundConv(r refundResponse) (payment.AttemptStatus, refund.ResponseData) {
	return "", refund.ResponseData{ConnectorRefundID: r.ID, Status: r.refundStatus()}
}

func paymentPath(cfg config.Connectors, c connector.Common, id string, suffix string) (string, error) {
	if id == "" {
		return "", connector.MissingRequiredField("connector_transaction_id")
	}
	return c.BaseURL(cfg) + "payments/" + url.PathEscape(id) + suffix, nil
}

type authorize struct {
	connector.Defaults[flow.Authorize, payment.AuthorizeData, payment.ResponseData]
}

func (a authorize) URL(_ *provider.AuthorizeRouterData, cfg config.Connectors) (string, error) {
	return a.Common.BaseURL(cfg) + "payments", nil
}

func (a authorize) RequestBody(rd *provider.AuthorizeRouterData, _ config.Connectors) (connector.RequestContent, error) {
	if rd.Request.PaymentMethod.Card == nil && rd.Request.PaymentMethod.Token.IsEmpty() {
		return nil, connector.MissingRequiredField("payment_method.card")
	}
	return connector.JSONBody{V: newPaymentRequest(rd.ConnectorRequestReferenceID, rd.Request)}, nil
}

func (a authorize) BuildRequest(rd *provider.AuthorizeRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.Authorize, payment.AuthorizeData, payment.ResponseData](a, connector.MethodPost, rd, cfg, true)
}

func (a authorize) HandleResponse(rd *provider.AuthorizeRouterData, ev *connector.Event, res connector.Response) (*provider.AuthorizeRouterData, error) {
	return handle(a.Defaults, rd, ev, res, paymentConv)
}

type psync struct {
	connector.Defaults[flow.PSync, payment.SyncData, payment.ResponseData]
}

func (p psync) URL(rd *provider.PSyncRouterData, cfg config.Connectors) (string, error) {
	return paymentPath(cfg, p.Common, rd.Request.ConnectorTransactionID, "")
}

func (p psync) BuildRequest(rd *provider.PSyncRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.PSync, payment.SyncData, payment.ResponseData](p, connector.MethodGet, rd, cfg, false)
}

func (p psync) HandleResponse(rd *provider.PSyncRouterData, ev *connector.Event, res connector.Response) (*provider.PSyncRouterData, error) {
	return handle(p.Defaults, rd, ev, res, paymentConv)
}

// capture posts a form-encoded body.
type capture struct {
	connector.Defaults[flow.Capture, payment.CaptureData, payment.ResponseData]
}

func (c capture) Headers(rd *provider.CaptureRouterData, _ config.Connectors) ([]connector.Header, error) {
	return formHeaders(c.Common, rd.Auth)
}

func (capture) ContentType() string { return formContentType }

func (c capture) URL(rd *provider.CaptureRouterData, cfg config.Connectors) (string, error) {
	return paymentPath(cfg, c.Common, rd.Request.ConnectorTransactionID, "/capture")
}

func (c capture) RequestBody(rd *provider.CaptureRouterData, _ config.Connectors) (connector.RequestContent, error) {
	return connector.FormURLEncodedBody{V: captureRequest{
		AmountToCapture: rd.Request.AmountToCapture,
		Currency:        string(rd.Request.Currency),
	}}, nil
}

func (c capture) BuildRequest(rd *provider.CaptureRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.Capture, payment.CaptureData, payment.ResponseData](c, connector.MethodPost, rd, cfg, true)
}

func (c capture) HandleResponse(rd *provider.CaptureRouterData, ev *connector.Event, res connector.Response) (*provider.CaptureRouterData, error) {
	return handle(c.Defaults, rd, ev, res, paymentConv)
}

type void struct {
	connector.Defaults[flow.Void, payment.CancelData, payment.ResponseData]
}

func (v void) URL(rd *provider.VoidRouterData, cfg config.Connectors) (string, error) {
	return paymentPath(cfg, v.Common, rd.Request.ConnectorTransactionID, "/cancel")
}

func (v void) RequestBody(rd *provider.VoidRouterData, _ config.Connectors) (connector.RequestContent, error) {
	return connector.JSONBody{V: voidRequest{Reason: rd.Request.CancellationReason}}, nil
}

func (v void) BuildRequest(rd *provider.VoidRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.Void, payment.CancelData, payment.ResponseData](v, connector.MethodPost, rd, cfg, true)
}

func (v void) HandleResponse(rd *provider.VoidRouterData, ev *connector.Event, res connector.Response) (*provider.VoidRouterData, error) {
	return handle(v.Defaults, rd, ev, res, paymentConv)
}

type refundExecute struct {
	connector.Defaults[flow.Execute, refund.Data, refund.ResponseData]
}

func (r refundExecute) URL(_ *provider.RefundExecuteRouterData, cfg config.Connectors) (string, error) {
	return r.Common.BaseURL(cfg) + "refunds", nil
}

func (r refundExecute) RequestBody(rd *provider.RefundExecuteRouterData, _ config.Connectors) (connector.RequestContent, error) {
	d := rd.Request
	if d.ConnectorTransactionID == "" {
		return nil, connector.MissingRequiredField("connector_transaction_id")
	}
	return connector.JSONBody{V: refundRequest{
		Payment:   d.ConnectorTransactionID,
		Amount:    d.RefundAmount,
		Currency:  string(d.Currency),
		Reference: d.RefundID,
		Reason:    d.Reason,
	}}, nil
}

func (r refundExecute) BuildRequest(rd *provider.RefundExecuteRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.Execute, refund.Data, refund.ResponseData](r, connector.MethodPost, rd, cfg, true)
}

func (r refundExecute) HandleResponse(rd *provider.RefundExecuteRouterData, ev *connector.Event, res connector.Response) (*provider.RefundExecuteRouterData, error) {
	return handle(r.Defaults, rd, ev, res, refundConv)
}

type refundSync struct {
	connector.Defaults[flow.RSync, refund.Data, refund.ResponseData]
}

func (r refundSync) URL(rd *provider.RefundSyncRouterData, cfg config.Connectors) (string, error) {
	if rd.Request.ConnectorRefundID == "" {
		return "", connector.MissingRequiredField("connector_refund_id")
	}
	return r.Common.BaseURL(cfg) + "refunds/" + url.PathEscape(rd.Request.ConnectorRefundID), nil
}

func (r refundSync) BuildRequest(rd *provider.RefundSyncRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.RSync, refund.Data, refund.ResponseData](r, connector.MethodGet, rd, cfg, false)
}

func (r refundSync) HandleResponse(rd *provider.RefundSyncRouterData, ev *connector.Event, res connector.Response) (*provider.RefundSyncRouterData, error) {
	return handle(r.Defaults, rd, ev, res, refundConv)
}

// accessToken exchanges client credentials for a bearer token. The form
// body carries the credentials, so no bearer header is attached.
type accessToken struct {
	connector.Defaults[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken]
}

func (a accessToken) Headers(rd *provider.AccessTokenRouterData, _ config.Connectors) ([]connector.Header, error) {
	return formHeaders(a.Common, rd.Auth)
}

func (accessToken) ContentType() string { return formContentType }

func (a accessToken) URL(_ *provider.AccessTokenRouterData, cfg config.Connectors) (string, error) {
	return a.Common.BaseURL(cfg) + "oauth/token", nil
}

func (a accessToken) RequestBody(rd *provider.AccessTokenRouterData, _ config.Connectors) (connector.RequestContent, error) {
	if rd.Request.AppID.IsEmpty() {
		return nil, connector.MissingRequiredField("app_id")
	}
	return connector.FormURLEncodedBody{V: tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     rd.Request.AppID,
		ClientSecret: rd.Request.Secret,
	}}, nil
}

func (a accessToken) BuildRequest(rd *provider.AccessTokenRouterData, cfg config.Connectors) (*connector.Request, error) {
	return connector.Compose[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken](a, connector.MethodPost, rd, cfg, true)
}

func (a accessToken) HandleResponse(rd *provider.AccessTokenRouterData, ev *connector.Event, res connector.Response) (*provider.AccessTokenRouterData, error) {
	return handle(a.Defaults, rd, ev, res, func(t tokenResponse) (payment.AttemptStatus, payment.AccessToken) {
		return "", payment.AccessToken{Token: t.AccessToken, ExpiresIn: t.ExpiresIn}
	})
}

type session struct {
	connector.Defaults[flow.Session, payment.SessionData, payment.ResponseData]
}

func (s session) URL(_ *provider.SessionRouterData, cfg config.Connectors) (string, error) {
	return s.Common.BaseURL(cfg) + "sessions", nil
}

func (s session) RequestBody(rd *provider.SessionRouterData, _ config.Connectors) (connector.RequestContent, error) {
	return connector.JSONBody{V: sessionRequest{
		Amount:   rd.Request.Amount,
		Currency: string(rd.Request.Currency),
		Country:  rd.Request.Country,
	}}, nil
}

func (s session) BuildRequest(rd *provider.SessionRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.Session, payment.SessionData, payment.ResponseData](s, connector.MethodPost, rd, cfg, true)
}

func (s session) HandleResponse(rd *provider.SessionRouterData, ev *connector.Event, res connector.Response) (*provider.SessionRouterData, error) {
	return handle(s.Defaults, rd, ev, res, func(r sessionResponse) (payment.AttemptStatus, payment.ResponseData) {
		return "", payment.ResponseData{SessionToken: r.SessionToken}
	})
}

type tokenize struct {
	connector.Defaults[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData]
}

func (t tokenize) URL(_ *provider.PaymentMethodTokenRouterData, cfg config.Connectors) (string, error) {
	return t.Common.BaseURL(cfg) + "tokens", nil
}

func (t tokenize) RequestBody(rd *provider.PaymentMethodTokenRouterData, _ config.Connectors) (connector.RequestContent, error) {
	c := rd.Request.PaymentMethod.Card
	if c == nil {
		return nil, connector.MissingRequiredField("payment_method.card")
	}
	return connector.JSONBody{V: tokenizeRequest{
		Card: &cardRequest{
			Number:   c.Number,
			ExpMonth: c.ExpMonth,
			ExpYear:  c.ExpYear,
			CVC:      c.CVC,
			Name:     c.HolderName,
		},
		Currency: string(rd.Request.Currency),
	}}, nil
}

func (t tokenize) BuildRequest(rd *provider.PaymentMethodTokenRouterData, cfg config.Connectors) (*connector.Request, error) {
	return compose[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData](t, connector.MethodPost, rd, cfg, true)
}

func (t tokenize) HandleResponse(rd *provider.PaymentMethodTokenRouterData, ev *connector.Event, res connector.Response) (*provider.PaymentMethodTokenRouterData, error) {
	return handle(t.Defaults, rd, ev, res, func(r tokenizeResponse) (payment.AttemptStatus, payment.ResponseData) {
		return "", payment.ResponseData{PaymentMethodToken: r.Token}
	})
}

// Webhooks reads the {"type", "data": {"object"}} notification format.
type Webhooks struct {
	Connector enums.Connector
}

func (w Webhooks) decode(req *webhook.Request) (webhookBody, error) {
	var body webhookBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return body, connector.WebhookBodyDecodingFailed(err)
	}
	return body, nil
}

func (w Webhooks) ObjectReferenceID(req *webhook.Request) (webhook.ObjectReferenceID, error) {
	body, err := w.decode(req)
	if err != nil {
		return webhook.ObjectReferenceID{}, err
	}
	var obj webhookObject
	if err := json.Unmarshal(body.Data.Object, &obj); err != nil {
		return webhook.ObjectReferenceID{}, connector.WebhookBodyDecodingFailed(err)
	}
	if obj.ID == "" {
		return webhook.ObjectReferenceID{}, connector.WebhookReferenceIDNotFound("data.object.id")
	}
	switch obj.Object {
	case "payment":
		return webhook.PaymentRef(webhook.IDConnectorTransaction, obj.ID), nil
	case "refund":
		return webhook.RefundRef(webhook.IDConnectorRefund, obj.ID), nil
	}
	log.Debug().Str("connector", w.Connector.String()).Str("object", obj.Object).Msg("webhook object kind not mapped")
	return webhook.ObjectReferenceID{}, connector.WebhookReferenceIDNotFound("object " + obj.Object)
}

func (w Webhooks) EventType(req *webhook.Request) (webhook.EventType, error) {
	body, err := w.decode(req)
	if err != nil {
		return "", err
	}
	return eventType(body.Type), nil
}

func (w Webhooks) ResourceObject(req *webhook.Request) (any, error) {
	body, err := w.decode(req)
	if err != nil {
		return nil, err
	}
	if len(body.Data.Object) == 0 {
		return nil, connector.WebhookResourceObjectNotFound()
	}
	return body.Data.Object, nil
}
