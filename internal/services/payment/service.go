package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/metrics"
	"payhub/internal/provider"
	"payhub/internal/provider/base"
	"payhub/internal/store/repositories"
)

// DefaultSyncDelay is how long a pending attempt waits before its first
// status re-query.
const DefaultSyncDelay = 30 * time.Second

// Service drives connector flows for stored payment attempts.
type Service struct {
	registry   *provider.Registry
	connectors config.Connectors
	exec       connector.Executor
	sink       connector.EventSink
	attempts   repositories.AttemptRepository
	accounts   repositories.AccountRepository
	tokens     repositories.TokenCache
	validator  *base.RequestValidator
	syncDelay  time.Duration
	now        func() time.Time
}

// Deps are the collaborators of a Service. Tokens may be nil, in which case
// access tokens are fetched on every call.
type Deps struct {
	Registry   *provider.Registry
	Connectors config.Connectors
	Executor   connector.Executor
	Sink       connector.EventSink
	Attempts   repositories.AttemptRepository
	Accounts   repositories.AccountRepository
	Tokens     repositories.TokenCache
	Validator  *base.RequestValidator
	SyncDelay  time.Duration
}

// NewService creates a new payment service
func NewService(d Deps) *Service {
	s := &Service{
		registry:   d.Registry,
		connectors: d.Connectors,
		exec:       d.Executor,
		sink:       d.Sink,
		attempts:   d.Attempts,
		accounts:   d.Accounts,
		tokens:     d.Tokens,
		validator:  d.Validator,
		syncDelay:  d.SyncDelay,
		now:        time.Now,
	}
	if s.sink == nil {
		s.sink = connector.LogSink{}
	}
	if s.validator == nil {
		s.validator = base.NewRequestValidator(0, 0)
	}
	if s.syncDelay <= 0 {
		s.syncDelay = DefaultSyncDelay
	}
	return s
}

// AuthorizeRequest starts a new attempt.
type AuthorizeRequest struct {
	MerchantID    string                    `json:"-"`
	PaymentID     string                    `json:"payment_id"`
	Connector     string                    `json:"connector"`
	Amount        payment.MinorUnit         `json:"amount"`
	Currency      payment.Currency          `json:"currency"`
	PaymentMethod payment.PaymentMethodData `json:"payment_method"`
	CaptureMethod payment.CaptureMethod     `json:"capture_method,omitempty"`
	ReturnURL     string                    `json:"return_url,omitempty"`
	Description   string                    `json:"description,omitempty"`
	Customer      *payment.Customer         `json:"customer,omitempty"`
}

// Result is the outcome of one payment flow. Response and Error are both
// nil when the connector has no implementation of the flow and nothing was
// sent.
type Result struct {
	Attempt  *payment.Attempt         `json:"attempt"`
	Response *payment.ResponseData    `json:"response,omitempty"`
	Error    *connector.ErrorResponse `json:"error,omitempty"`
}

// Authorize creates an attempt and runs the Authorize flow.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*Result, error) {
	const op = "authorize"

	a, err := s.registry.GetByName(req.Connector)
	if err != nil {
		return nil, err
	}
	acct, err := s.account(ctx, op, req.MerchantID, a.Connector)
	if err != nil {
		return nil, err
	}
	if req.CaptureMethod == "" {
		req.CaptureMethod = payment.CaptureAutomatic
	}
	if err := a.Validation.ValidateCaptureMethod(req.CaptureMethod); err != nil {
		return nil, err
	}
	data := payment.AuthorizeData{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CaptureMethod: req.CaptureMethod,
		ReturnURL:     req.ReturnURL,
		Description:   req.Description,
		Customer:      req.Customer,
	}
	if err := s.validator.ValidateAuthorize(&data); err != nil {
		return nil, err
	}

	attempt, err := payment.NewAttempt(uuid.NewString(), req.MerchantID, req.PaymentID, a.Connector,
		req.PaymentMethod.Type, req.Amount, req.Currency, req.CaptureMethod)
	if err != nil {
		return nil, err
	}
	if c := req.PaymentMethod.Card; c != nil {
		attempt.CardFingerprint = c.Fingerprint()
	}

	rd := envelope[flow.Authorize, payment.AuthorizeData, payment.ResponseData](attempt, acct, data)
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.Authorize, rd, s.connectors, s.exec, s.sink)
	if err != nil {
		s.outcome(a.Connector, rd.FlowName(), err)
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	return s.settle(ctx, op, rd.FlowName(), attempt, out.Status, out.Response, out.Error)
}

// CaptureRequest captures an authorized attempt. A zero Amount captures the
// full authorized amount.
type CaptureRequest struct {
	MerchantID string            `json:"-"`
	AttemptID  string            `json:"-"`
	Amount     payment.MinorUnit `json:"amount"`
}

func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*Result, error) {
	const op = "capture"

	attempt, a, acct, err := s.load(ctx, op, req.MerchantID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	data := payment.CaptureData{
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		AmountToCapture:        req.Amount,
		Currency:               attempt.Currency,
	}
	if data.AmountToCapture == 0 {
		data.AmountToCapture = attempt.Amount
	}
	if data.AmountToCapture > attempt.Amount {
		return nil, ServiceError{Op: op, Message: fmt.Sprintf("cannot capture %d of %d", data.AmountToCapture, attempt.Amount)}
	}
	if err := s.validator.ValidateCapture(&data); err != nil {
		return nil, err
	}

	rd := envelope[flow.Capture, payment.CaptureData, payment.ResponseData](attempt, acct, data)
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.Capture, rd, s.connectors, s.exec, s.sink)
	if err != nil {
		s.outcome(a.Connector, rd.FlowName(), err)
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	return s.settle(ctx, op, rd.FlowName(), attempt, out.Status, out.Response, out.Error)
}

// Void cancels an attempt that has not been captured.
func (s *Service) Void(ctx context.Context, merchantID, attemptID, reason string) (*Result, error) {
	const op = "void"

	attempt, a, acct, err := s.load(ctx, op, merchantID, attemptID)
	if err != nil {
		return nil, err
	}
	data := payment.CancelData{ConnectorTransactionID: attempt.ConnectorTransactionID, CancellationReason: reason}

	rd := envelope[flow.Void, payment.CancelData, payment.ResponseData](attempt, acct, data)
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.Void, rd, s.connectors, s.exec, s.sink)
	if err != nil {
		s.outcome(a.Connector, rd.FlowName(), err)
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	return s.settle(ctx, op, rd.FlowName(), attempt, out.Status, out.Response, out.Error)
}

// Sync re-queries the connector for the attempt's current status.
func (s *Service) Sync(ctx context.Context, merchantID, attemptID string) (*Result, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.MerchantID != merchantID {
		return nil, repositories.ErrNotFound
	}
	return s.SyncAttempt(ctx, attempt)
}

// SyncAttempt is Sync for an attempt the caller already loaded. The
// reconcile worker uses it directly.
func (s *Service) SyncAttempt(ctx context.Context, attempt *payment.Attempt) (*Result, error) {
	const op = "sync"

	a, err := s.registry.Get(attempt.Connector)
	if err != nil {
		return nil, err
	}
	if attempt.ConnectorTransactionID == "" {
		return nil, ServiceError{Op: op, Message: "attempt has no connector transaction id"}
	}
	acct, err := s.account(ctx, op, attempt.MerchantID, attempt.Connector)
	if err != nil {
		return nil, err
	}
	data := payment.SyncData{
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		Amount:                 attempt.Amount,
		Currency:               attempt.Currency,
	}

	rd := envelope[flow.PSync, payment.SyncData, payment.ResponseData](attempt, acct, data)
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.PSync, rd, s.connectors, s.exec, s.sink)
	if err != nil {
		s.outcome(a.Connector, rd.FlowName(), err)
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	return s.settle(ctx, op, rd.FlowName(), attempt, out.Status, out.Response, out.Error)
}

// RefundRequest refunds part or all of a charged attempt.
type RefundRequest struct {
	MerchantID string            `json:"-"`
	AttemptID  string            `json:"-"`
	RefundID   string            `json:"refund_id"`
	Amount     payment.MinorUnit `json:"amount"`
	Reason     string            `json:"reason,omitempty"`
}

// RefundResult is the outcome of a refund flow.
type RefundResult struct {
	RefundID string                   `json:"refund_id"`
	Response *refund.ResponseData     `json:"response,omitempty"`
	Error    *connector.ErrorResponse `json:"error,omitempty"`
}

func (s *Service) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	const op = "refund"

	attempt, a, acct, err := s.load(ctx, op, req.MerchantID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != payment.StatusCharged && attempt.Status != payment.StatusPartialCharged {
		return nil, ServiceError{Op: op, Message: fmt.Sprintf("attempt is %s, not charged", attempt.Status)}
	}
	if req.RefundID == "" {
		req.RefundID = uuid.NewString()
	}
	data := refund.Data{
		RefundID:               req.RefundID,
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		RefundAmount:           req.Amount,
		PaymentAmount:          attempt.Amount,
		Currency:               attempt.Currency,
		Reason:                 req.Reason,
	}
	refundable := attempt.RefundableAmount()
	if data.RefundAmount == 0 {
		data.RefundAmount = refundable
	}
	if data.RefundAmount <= 0 || data.RefundAmount > refundable {
		return nil, ServiceError{Op: op, Message: fmt.Sprintf("cannot refund %d, %d of %d left", data.RefundAmount, refundable, attempt.Amount)}
	}

	rd := envelope[flow.Execute, refund.Data, refund.ResponseData](attempt, acct, data)
	rd.ConnectorRequestReferenceID = req.RefundID
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.RefundExecute, rd, s.connectors, s.exec, s.sink)
	s.outcome(a.Connector, rd.FlowName(), errOrFailure(err, out))
	if err != nil {
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	// pending refunds count too, so they cannot be refunded twice
	if out.Error == nil && out.Response != nil && out.Response.Status != refund.StatusFailure {
		if err := attempt.RecordRefund(data.RefundAmount); err != nil {
			return nil, err
		}
		if err := s.attempts.Save(ctx, attempt); err != nil {
			return nil, ServiceError{Op: op, Message: "saving refunded amount", Err: err}
		}
	}
	return &RefundResult{RefundID: req.RefundID, Response: out.Response, Error: out.Error}, nil
}

// RefundSyncRequest re-queries a refund by the connector's refund id.
type RefundSyncRequest struct {
	MerchantID        string `json:"-"`
	AttemptID         string `json:"-"`
	RefundID          string `json:"refund_id"`
	ConnectorRefundID string `json:"connector_refund_id"`
}

func (s *Service) RefundSync(ctx context.Context, req RefundSyncRequest) (*RefundResult, error) {
	const op = "refund_sync"

	attempt, a, acct, err := s.load(ctx, op, req.MerchantID, req.AttemptID)
	if err != nil {
		return nil, err
	}
	data := refund.Data{
		RefundID:               req.RefundID,
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		ConnectorRefundID:      req.ConnectorRefundID,
		PaymentAmount:          attempt.Amount,
		Currency:               attempt.Currency,
	}

	rd := envelope[flow.RSync, refund.Data, refund.ResponseData](attempt, acct, data)
	if err := s.withAccessToken(ctx, a, acct, attempt.PaymentMethod, &rd.AccessToken); err != nil {
		return nil, err
	}
	out, err := connector.Execute(ctx, a.RefundSync, rd, s.connectors, s.exec, s.sink)
	s.outcome(a.Connector, rd.FlowName(), errOrFailure(err, out))
	if err != nil {
		return nil, ServiceError{Op: op, Message: "connector call failed", Err: err}
	}
	return &RefundResult{RefundID: req.RefundID, Response: out.Response, Error: out.Error}, nil
}

// SessionRequest asks the connector for a client-side session token.
type SessionRequest struct {
	MerchantID string            `json:"-"`
	Connector  string            `json:"connector"`
	Amount     payment.MinorUnit `json:"amount"`
	Currency   payment.Currency  `json:"currency"`
	Country    string            `json:"country,omitempty"`
}

// Session runs the Session flow. Connectors that issue access tokens get
// one first even when the payment method would not need it.
func (s *Service) Session(ctx context.Context, req SessionRequest) (*payment.ResponseData, *connector.ErrorResponse, error) {
	a, err := s.registry.GetByName(req.Connector)
	if err != nil {
		return nil, nil, err
	}
	acct, err := s.account(ctx, "session", req.MerchantID, a.Connector)
	if err != nil {
		return nil, nil, err
	}
	rd := &provider.SessionRouterData{
		MerchantID: req.MerchantID,
		Connector:  a.Connector,
		Auth:       acct.Auth,
		TestMode:   acct.TestMode,
		Request:    payment.SessionData{Amount: req.Amount, Currency: req.Currency, Country: req.Country},
	}
	if a.Supports(flow.NameOf[flow.AccessTokenAuth]()) {
		tok, err := s.accessToken(ctx, a, acct)
		if err != nil {
			return nil, nil, err
		}
		rd.AccessToken = tok
	}
	out, err := connector.Execute(ctx, a.Session, rd, s.connectors, s.exec, s.sink)
	s.outcome(a.Connector, rd.FlowName(), errOrFailure(err, out))
	if err != nil {
		return nil, nil, ServiceError{Op: "session", Message: "connector call failed", Err: err}
	}
	return out.Response, out.Error, nil
}

// Tokenize exchanges payment method data for a connector token.
func (s *Service) Tokenize(ctx context.Context, merchantID, connectorName string, data payment.TokenizationData) (*payment.ResponseData, *connector.ErrorResponse, error) {
	a, err := s.registry.GetByName(connectorName)
	if err != nil {
		return nil, nil, err
	}
	acct, err := s.account(ctx, "tokenize", merchantID, a.Connector)
	if err != nil {
		return nil, nil, err
	}
	rd := &provider.PaymentMethodTokenRouterData{
		MerchantID:    merchantID,
		Connector:     a.Connector,
		PaymentMethod: data.PaymentMethod.Type,
		Auth:          acct.Auth,
		TestMode:      acct.TestMode,
		Request:       data,
	}
	if err := s.withAccessToken(ctx, a, acct, data.PaymentMethod.Type, &rd.AccessToken); err != nil {
		return nil, nil, err
	}
	out, err := connector.Execute(ctx, a.PaymentMethodToken, rd, s.connectors, s.exec, s.sink)
	s.outcome(a.Connector, rd.FlowName(), errOrFailure(err, out))
	if err != nil {
		return nil, nil, ServiceError{Op: "tokenize", Message: "connector call failed", Err: err}
	}
	return out.Response, out.Error, nil
}

// load fetches an attempt owned by merchantID together with its adapter and
// account. Attempts of other merchants are reported as not found.
func (s *Service) load(ctx context.Context, op, merchantID, attemptID string) (*payment.Attempt, *provider.Adapter, *credential.Account, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, nil, nil, err
	}
	if attempt.MerchantID != merchantID {
		return nil, nil, nil, repositories.ErrNotFound
	}
	if attempt.ConnectorTransactionID == "" {
		return nil, nil, nil, ServiceError{Op: op, Message: "attempt has no connector transaction id"}
	}
	a, err := s.registry.Get(attempt.Connector)
	if err != nil {
		return nil, nil, nil, err
	}
	acct, err := s.account(ctx, op, merchantID, attempt.Connector)
	if err != nil {
		return nil, nil, nil, err
	}
	return attempt, a, acct, nil
}

func (s *Service) account(ctx context.Context, op, merchantID string, c enums.Connector) (*credential.Account, error) {
	acct, err := s.accounts.Find(ctx, merchantID, c)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ServiceError{Op: op, Message: fmt.Sprintf("merchant %s has no %s account", merchantID, c), Err: err}
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Service) withAccessToken(ctx context.Context, a *provider.Adapter, acct *credential.Account, pm enums.PaymentMethod, dst **payment.AccessToken) error {
	if !a.Connector.SupportsAccessToken(pm) {
		return nil
	}
	tok, err := s.accessToken(ctx, a, acct)
	if err != nil {
		return err
	}
	*dst = tok
	return nil
}

// accessToken returns a cached token or obtains a new one through the
// AccessTokenAuth flow. A connector without that flow yields nil.
func (s *Service) accessToken(ctx context.Context, a *provider.Adapter, acct *credential.Account) (*payment.AccessToken, error) {
	if s.tokens != nil {
		tok, err := s.tokens.Get(ctx, acct.MerchantID, a.Connector)
		if err != nil {
			log.Warn().Err(err).Str("connector", a.Connector.String()).Msg("token cache read failed")
		} else if tok != nil {
			return tok, nil
		}
	}

	rd := &provider.AccessTokenRouterData{
		MerchantID: acct.MerchantID,
		Connector:  a.Connector,
		Auth:       acct.Auth,
		TestMode:   acct.TestMode,
		Request:    payment.AccessTokenRequestData{AppID: acct.Auth.APIKey, Secret: acct.Auth.Key1},
	}
	out, err := connector.Execute(ctx, a.AccessToken, rd, s.connectors, s.exec, s.sink)
	if err != nil {
		return nil, ServiceError{Op: "access_token", Message: "connector call failed", Err: err}
	}
	if out.Error != nil {
		return nil, ServiceError{Op: "access_token", Message: "connector refused credentials", Err: *out.Error}
	}
	if out.Response == nil {
		return nil, nil
	}
	tok := *out.Response
	if s.tokens != nil {
		if err := s.tokens.Set(ctx, acct.MerchantID, a.Connector, tok); err != nil {
			log.Warn().Err(err).Str("connector", a.Connector.String()).Msg("token cache write failed")
		}
	}
	return &tok, nil
}

// settle applies a flow outcome to the attempt and stores it. Pending
// attempts with a connector transaction get their first sync booked.
func (s *Service) settle(ctx context.Context, op, flowName string, attempt *payment.Attempt, status payment.AttemptStatus, resp *payment.ResponseData, er *connector.ErrorResponse) (*Result, error) {
	txnID, code, msg := "", "", ""
	if resp != nil {
		txnID = resp.ConnectorTransactionID
	}
	if er != nil {
		code, msg = er.Code, er.Message
		if txnID == "" {
			txnID = er.ConnectorTransactionID
		}
	}
	if status == attempt.Status {
		status = ""
	}
	if err := attempt.Apply(status, txnID, code, msg); err != nil {
		return nil, err
	}
	switch {
	case !attempt.NeedsSync():
		attempt.NextSyncAt = nil
	case attempt.NextSyncAt == nil:
		next := s.now().Add(s.syncDelay)
		attempt.NextSyncAt = &next
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, ServiceError{Op: op, Message: "failed to save attempt", Err: err}
	}

	outcome := "success"
	switch {
	case er != nil:
		outcome = "failure"
	case resp == nil:
		outcome = "skipped"
	}
	metrics.FlowOutcomes.WithLabelValues(attempt.Connector.String(), flowName, outcome).Inc()

	log.Info().
		Str("op", op).
		Str("attempt_id", attempt.ID).
		Str("connector", attempt.Connector.String()).
		Str("status", string(attempt.Status)).
		Str("outcome", outcome).
		Msg("attempt updated")

	return &Result{Attempt: attempt, Response: resp, Error: er}, nil
}

func (s *Service) outcome(c enums.Connector, flowName string, err error) {
	label := "success"
	switch {
	case err == nil:
	case errors.Is(err, errConnectorFailure):
		label = "failure"
	default:
		label = "error"
	}
	metrics.FlowOutcomes.WithLabelValues(c.String(), flowName, label).Inc()
}

var errConnectorFailure = errors.New("connector answered with an error")

func errOrFailure[F flow.Flow, Req, Resp any](err error, out *connector.RouterData[F, Req, Resp]) error {
	if err != nil {
		return err
	}
	if out != nil && out.Error != nil {
		return errConnectorFailure
	}
	return nil
}

func envelope[F flow.Flow, Req, Resp any](a *payment.Attempt, acct *credential.Account, req Req) *connector.RouterData[F, Req, Resp] {
	return &connector.RouterData[F, Req, Resp]{
		MerchantID:                  a.MerchantID,
		Connector:                   a.Connector,
		PaymentID:                   a.PaymentID,
		AttemptID:                   a.ID,
		ConnectorRequestReferenceID: a.ID,
		PaymentMethod:               a.PaymentMethod,
		Status:                      a.Status,
		Auth:                        acct.Auth,
		TestMode:                    acct.TestMode,
		Request:                     req,
	}
}

// ServiceError represents a payment service error
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment service %s: %s (%v)", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("payment service %s: %s", e.Op, e.Message)
}

func (e ServiceError) Unwrap() error {
	return e.Err
}
