package connector

import (
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
)

// RouterData is the request envelope of one flow execution. The type
// parameters bind it to a flow, its request payload and its response
// payload. Integrations never modify an envelope they are handed; they
// return a new one from Clone.
type RouterData[F flow.Flow, Req, Resp any] struct {
	MerchantID                  string
	Connector                   enums.Connector
	PaymentID                   string
	AttemptID                   string
	ConnectorRequestReferenceID string
	PaymentMethod               enums.PaymentMethod
	Status                      payment.AttemptStatus
	Auth                        credential.AuthType
	AccessToken                 *payment.AccessToken
	TestMode                    bool

	Request Req
	// Response is set once the connector answered successfully.
	Response *Resp
	// Error is set once the connector answered with a failure.
	Error *ErrorResponse
}

// FlowName is the name of the bound flow.
func (r *RouterData[F, Req, Resp]) FlowName() string { return flow.NameOf[F]() }

// Clone returns a copy that shares no pointers with r.
func (r *RouterData[F, Req, Resp]) Clone() *RouterData[F, Req, Resp] {
	c := *r
	if r.AccessToken != nil {
		t := *r.AccessToken
		c.AccessToken = &t
	}
	if r.Response != nil {
		v := *r.Response
		c.Response = &v
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// WithResponse returns a clone carrying a successful outcome.
func (r *RouterData[F, Req, Resp]) WithResponse(status payment.AttemptStatus, resp Resp) *RouterData[F, Req, Resp] {
	c := r.Clone()
	if status != "" {
		c.Status = status
	}
	c.Response = &resp
	c.Error = nil
	return c
}

// WithError returns a clone carrying a normalized failure.
func (r *RouterData[F, Req, Resp]) WithError(er ErrorResponse) *RouterData[F, Req, Resp] {
	c := r.Clone()
	if er.AttemptStatus != "" {
		c.Status = er.AttemptStatus
	}
	c.Response = nil
	c.Error = &er
	return c
}
