// Package connector defines the contract every payment connector satisfies
// for every flow, the safe fallbacks a connector inherits for flows it does
// not implement, and the single-pass pipeline that drives one flow.
//
// Nothing here performs I/O. A connector turns an envelope into a Request;
// an Executor sends it; the connector turns the Response back into an
// updated envelope or a normalized ErrorResponse.
package connector

import (
	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
)

// Common is the per-connector metadata shared by all flows.
type Common interface {
	ID() string
	CurrencyUnit() payment.CurrencyUnit
	ContentType() string
	BaseURL(cfg config.Connectors) string
	// AuthHeaders derives auth headers from the account's credentials.
	// Connectors that authenticate in the body return none.
	AuthHeaders(auth credential.AuthType) ([]Header, error)
	// BuildErrorResponse never fails; see DecodeErrorResponse.
	BuildErrorResponse(res Response, ev *Event) ErrorResponse
}

// Integration is what one connector does for one flow.
type Integration[F flow.Flow, Req, Resp any] interface {
	Headers(rd *RouterData[F, Req, Resp], cfg config.Connectors) ([]Header, error)
	ContentType() string
	URL(rd *RouterData[F, Req, Resp], cfg config.Connectors) (string, error)
	RequestBody(rd *RouterData[F, Req, Resp], cfg config.Connectors) (RequestContent, error)
	// BuildRequest returns (nil, nil) when the connector legitimately has
	// nothing to send for this flow.
	BuildRequest(rd *RouterData[F, Req, Resp], cfg config.Connectors) (*Request, error)
	HandleResponse(rd *RouterData[F, Req, Resp], ev *Event, res Response) (*RouterData[F, Req, Resp], error)
	ErrorResponse(res Response, ev *Event) ErrorResponse
}

// Defaults is the fallback behaviour for every step of Integration. Embed
// it and override only the steps the connector supports. Go has no virtual
// dispatch through embedding, so an override of BuildRequest should go
// through Compose to reach the overridden Headers, URL and RequestBody.
type Defaults[F flow.Flow, Req, Resp any] struct {
	Common Common
}

// Headers returns the content type plus the auth material for rd.Auth.
func (d Defaults[F, Req, Resp]) Headers(rd *RouterData[F, Req, Resp], _ config.Connectors) ([]Header, error) {
	return CommonHeaders(d.Common, rd.Auth)
}

func (d Defaults[F, Req, Resp]) ContentType() string { return d.Common.ContentType() }

func (d Defaults[F, Req, Resp]) URL(*RouterData[F, Req, Resp], config.Connectors) (string, error) {
	return "", NotImplementedFor("url method", flow.NameOf[F]())
}

func (d Defaults[F, Req, Resp]) RequestBody(*RouterData[F, Req, Resp], config.Connectors) (RequestContent, error) {
	return nil, NotImplementedFor("request body method", flow.NameOf[F]())
}

func (d Defaults[F, Req, Resp]) BuildRequest(*RouterData[F, Req, Resp], config.Connectors) (*Request, error) {
	return nil, nil
}

// HandleResponse keeps the envelope as is on success and records the
// normalized error otherwise.
func (d Defaults[F, Req, Resp]) HandleResponse(rd *RouterData[F, Req, Resp], ev *Event, res Response) (*RouterData[F, Req, Resp], error) {
	if !res.IsSuccess() {
		return rd.WithError(d.ErrorResponse(res, ev)), nil
	}
	return rd.Clone(), nil
}

func (d Defaults[F, Req, Resp]) ErrorResponse(res Response, ev *Event) ErrorResponse {
	return d.Common.BuildErrorResponse(res, ev)
}

// CommonHeaders is the content type header followed by the auth headers.
func CommonHeaders(c Common, auth credential.AuthType) ([]Header, error) {
	hs := []Header{PlainHeader(HeaderContentType, c.ContentType())}
	authHeaders, err := c.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	return append(hs, authHeaders...), nil
}

// Compose builds a request from in's URL, Headers and RequestBody, in that
// order, stopping at the first failure. RequestBody is skipped when
// withBody is false.
func Compose[F flow.Flow, Req, Resp any](in Integration[F, Req, Resp], m Method, rd *RouterData[F, Req, Resp], cfg config.Connectors, withBody bool) (*Request, error) {
	u, err := in.URL(rd, cfg)
	if err != nil {
		return nil, err
	}
	hs, err := in.Headers(rd, cfg)
	if err != nil {
		return nil, err
	}
	b := NewRequestBuilder().Method(m).URL(u).AttachDefaultHeaders().Headers(hs)
	if withBody {
		body, err := in.RequestBody(rd, cfg)
		if err != nil {
			return nil, err
		}
		if body != nil {
			b.Body(body)
			log.Info().
				Str("connector", rd.Connector.String()).
				Str("flow", rd.FlowName()).
				Interface("raw_connector_request", body.Masked()).
				Msg("connector request built")
		}
	}
	return b.Build(), nil
}

// UnsupportedMandate is embedded by connectors that cannot set up mandates.
// It fails fast instead of sending nothing, since mandate bookkeeping needs
// an explicit answer.
type UnsupportedMandate struct {
	Defaults[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]
}

func (u UnsupportedMandate) BuildRequest(*RouterData[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData], config.Connectors) (*Request, error) {
	return nil, FlowNotSupported("setup mandate", u.Common.ID())
}

// NoPolling is the fallback for the sync flows of a connector without a
// polling endpoint. BuildRequest goes through URL, so the caller gets
// NotImplemented naming the flow and can wait for a webhook instead.
type NoPolling[F flow.Flow, Req, Resp any] struct {
	Defaults[F, Req, Resp]
}

func (n NoPolling[F, Req, Resp]) BuildRequest(rd *RouterData[F, Req, Resp], cfg config.Connectors) (*Request, error) {
	return Compose[F, Req, Resp](n, MethodGet, rd, cfg, false)
}
