package dummy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/domain/webhook"
	"payhub/internal/provider"
	"payhub/internal/provider/base"
)

const apiKey = "sk_test_123"

type collectSink struct {
	mu     sync.Mutex
	events []*connector.Event
}

func (s *collectSink) Record(e *connector.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// fakePhonypay serves the dummy REST dialect and fails the test on anything
// it does not expect.
func fakePhonypay(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	keyed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-KEY") != apiKey {
				write(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "unauthorized", "message": "bad key"}})
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/payments", keyed(func(w http.ResponseWriter, r *http.Request) {
		var body paymentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			write(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "bad_json", "message": err.Error()}})
			return
		}
		if body.Amount == 13 {
			write(w, http.StatusPaymentRequired, map[string]any{"error": map[string]string{"code": "card_declined", "message": "Your card was declined", "reason": "do_not_honor"}})
			return
		}
		if body.Card == nil || body.Card.Number.Expose() != "4242424242424242" {
			t.Errorf("card number did not reach the connector: %+v", body.Card)
		}
		status := "succeeded"
		if !body.Capture {
			status = "requires_capture"
		}
		write(w, http.StatusOK, map[string]string{"id": "pay_x", "status": status, "reference": body.Reference})
	}))
	mux.HandleFunc("/payments/pay_x", keyed(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		write(w, http.StatusOK, map[string]string{"id": "pay_x", "status": "succeeded"})
	}))
	mux.HandleFunc("/payments/pay_x/capture", keyed(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "500", r.PostForm.Get("amount_to_capture"))
		require.Equal(t, "USD", r.PostForm.Get("currency"))
		write(w, http.StatusOK, map[string]string{"id": "pay_x", "status": "succeeded"})
	}))
	mux.HandleFunc("/payments/pay_x/cancel", keyed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"id": "pay_x", "status": "cancelled"})
	}))
	mux.HandleFunc("/refunds", keyed(func(w http.ResponseWriter, r *http.Request) {
		var body refundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "pay_x", body.Payment)
		write(w, http.StatusOK, map[string]string{"id": "re_1", "status": "pending"})
	}))
	mux.HandleFunc("/refunds/re_1", keyed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"id": "re_1", "status": "succeeded"})
	}))
	mux.HandleFunc("/oauth/token", keyed(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		require.Equal(t, "app_1", r.PostForm.Get("client_id"))
		write(w, http.StatusOK, map[string]any{"access_token": "tok_abc", "expires_in": 3600})
	}))
	mux.HandleFunc("/sessions", keyed(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok_abc", r.Header.Get("Authorization"))
		write(w, http.StatusOK, map[string]string{"session_token": "sess_1"})
	}))
	mux.HandleFunc("/tokens", keyed(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"token": "pm_tok_1"})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T) (*provider.Adapter, config.Connectors, connector.Executor) {
	srv := fakePhonypay(t)
	cfg := config.Connectors{"phonypay": {BaseURL: srv.URL + "/"}}
	exec := base.NewHTTPClient("phonypay", 5, 0).WithTransport(srv.Client())
	return New(enums.DummyConnector1), cfg, exec
}

func card() *payment.Card {
	return &payment.Card{Number: "4242424242424242", ExpMonth: "12", ExpYear: "34", CVC: "123"}
}

func TestPaymentLifecycle(t *testing.T) {
	a, cfg, exec := setup(t)
	ctx := context.Background()
	sink := &collectSink{}
	auth := credential.HeaderKey(apiKey)

	authRD := &provider.AuthorizeRouterData{
		MerchantID:                  "m1",
		Connector:                   enums.DummyConnector1,
		PaymentID:                   "pay_1",
		AttemptID:                   "att_1",
		ConnectorRequestReferenceID: "ref_1",
		Status:                      payment.StatusStarted,
		Auth:                        auth,
		Request: payment.AuthorizeData{
			Amount:        500,
			Currency:      payment.USD,
			PaymentMethod: payment.PaymentMethodData{Type: enums.PaymentMethodCard, Card: card()},
			CaptureMethod: payment.CaptureManual,
		},
	}
	authorized, err := connector.Execute(ctx, a.Authorize, authRD, cfg, exec, sink)
	require.NoError(t, err)
	require.Nil(t, authorized.Error)
	require.Equal(t, payment.StatusAuthorized, authorized.Status)
	require.Equal(t, "pay_x", authorized.Response.ConnectorTransactionID)
	require.Equal(t, "ref_1", authorized.Response.ConnectorReference)
	require.Equal(t, payment.StatusStarted, authRD.Status, "input envelope must not change")

	captured, err := connector.Execute(ctx, a.Capture, &provider.CaptureRouterData{
		Connector: enums.DummyConnector1,
		Status:    authorized.Status,
		Auth:      auth,
		Request:   payment.CaptureData{ConnectorTransactionID: "pay_x", AmountToCapture: 500, Currency: payment.USD},
	}, cfg, exec, sink)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCharged, captured.Status)

	synced, err := connector.Execute(ctx, a.PSync, &provider.PSyncRouterData{
		Connector: enums.DummyConnector1,
		Auth:      auth,
		Request:   payment.SyncData{ConnectorTransactionID: "pay_x"},
	}, cfg, exec, sink)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCharged, synced.Status)

	refunded, err := connector.Execute(ctx, a.RefundExecute, &provider.RefundExecuteRouterData{
		Connector: enums.DummyConnector1,
		Auth:      auth,
		Request:   refund.Data{RefundID: "rf_1", ConnectorTransactionID: "pay_x", RefundAmount: 200, Currency: payment.USD},
	}, cfg, exec, sink)
	require.NoError(t, err)
	require.Equal(t, refund.StatusPending, refunded.Response.Status)

	rsynced, err := connector.Execute(ctx, a.RefundSync, &provider.RefundSyncRouterData{
		Connector: enums.DummyConnector1,
		Auth:      auth,
		Request:   refund.Data{ConnectorRefundID: refunded.Response.ConnectorRefundID},
	}, cfg, exec, sink)
	require.NoError(t, err)
	require.Equal(t, refund.StatusSuccess, rsynced.Response.Status)

	require.Len(t, sink.events, 5)
	first := sink.events[0]
	require.Equal(t, "Authorize", first.Flow)
	require.Equal(t, "phonypay", first.Connector)
	require.Equal(t, http.StatusOK, first.StatusCode)
	snap, err := json.Marshal(first.RequestBody)
	require.NoError(t, err)
	require.NotContains(t, string(snap), "4242424242424242")
	require.NotContains(t, first.RequestHeaders["X-API-KEY"], apiKey)
}

func TestVoid(t *testing.T) {
	a, cfg, exec := setup(t)

	out, err := connector.Execute(context.Background(), a.Void, &provider.VoidRouterData{
		Connector: enums.DummyConnector1,
		Auth:      credential.HeaderKey(apiKey),
		Request:   payment.CancelData{ConnectorTransactionID: "pay_x", CancellationReason: "duplicate"},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.Equal(t, payment.StatusVoided, out.Status)
}

func TestDeclineIsNormalized(t *testing.T) {
	a, cfg, exec := setup(t)

	out, err := connector.Execute(context.Background(), a.Authorize, &provider.AuthorizeRouterData{
		Connector:                   enums.DummyConnector1,
		ConnectorRequestReferenceID: "ref_2",
		Status:                      payment.StatusStarted,
		Auth:                        credential.HeaderKey(apiKey),
		Request: payment.AuthorizeData{
			Amount:        13,
			Currency:      payment.USD,
			PaymentMethod: payment.PaymentMethodData{Type: enums.PaymentMethodCard, Card: card()},
		},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Error)
	require.Equal(t, http.StatusPaymentRequired, out.Error.StatusCode)
	require.Equal(t, "card_declined", out.Error.Code)
	require.Equal(t, "do_not_honor", out.Error.Reason)
	require.Nil(t, out.Response)
}

func TestWrongKeyIsNormalized(t *testing.T) {
	a, cfg, exec := setup(t)

	out, err := connector.Execute(context.Background(), a.PSync, &provider.PSyncRouterData{
		Connector: enums.DummyConnector1,
		Auth:      credential.HeaderKey("wrong"),
		Request:   payment.SyncData{ConnectorTransactionID: "pay_x"},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.Equal(t, "unauthorized", out.Error.Code)
}

func TestAccessTokenThenSession(t *testing.T) {
	a, cfg, exec := setup(t)
	ctx := context.Background()
	auth := credential.HeaderKey(apiKey)

	tok, err := connector.Execute(ctx, a.AccessToken, &provider.AccessTokenRouterData{
		Connector: enums.DummyConnector1,
		Auth:      auth,
		Request:   payment.AccessTokenRequestData{AppID: "app_1", Secret: "shh"},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.Equal(t, "tok_abc", tok.Response.Token.Expose())
	require.EqualValues(t, 3600, tok.Response.ExpiresIn)

	sess, err := connector.Execute(ctx, a.Session, &provider.SessionRouterData{
		Connector:   enums.DummyConnector1,
		Auth:        auth,
		AccessToken: tok.Response,
		Request:     payment.SessionData{Amount: 100, Currency: payment.USD},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.Equal(t, "sess_1", sess.Response.SessionToken.Expose())
}

func TestTokenize(t *testing.T) {
	a, cfg, exec := setup(t)

	out, err := connector.Execute(context.Background(), a.PaymentMethodToken, &provider.PaymentMethodTokenRouterData{
		Connector: enums.DummyConnector1,
		Auth:      credential.HeaderKey(apiKey),
		Request:   payment.TokenizationData{PaymentMethod: payment.PaymentMethodData{Type: enums.PaymentMethodCard, Card: card()}},
	}, cfg, exec, nil)
	require.NoError(t, err)
	require.Equal(t, "pm_tok_1", out.Response.PaymentMethodToken.Expose())

	_, err = a.PaymentMethodToken.BuildRequest(&provider.PaymentMethodTokenRouterData{Auth: credential.HeaderKey(apiKey)}, cfg)
	require.ErrorIs(t, err, connector.ErrMissingRequiredField)
}

func TestRequestShapes(t *testing.T) {
	t.Parallel()

	a := New(enums.DummyConnector4)
	cfg := config.Connectors{"stripe_test": {BaseURL: "https://stripe-test.local/"}}

	_, err := a.PSync.BuildRequest(&provider.PSyncRouterData{Auth: credential.HeaderKey(apiKey)}, cfg)
	require.ErrorIs(t, err, connector.ErrMissingRequiredField)

	req, err := a.Capture.BuildRequest(&provider.CaptureRouterData{
		Auth:    credential.HeaderKey(apiKey),
		Request: payment.CaptureData{ConnectorTransactionID: "pay/1", AmountToCapture: 10, Currency: payment.USD},
	}, cfg)
	require.NoError(t, err)
	require.Equal(t, "https://stripe-test.local/payments/pay%2F1/capture", req.URL)
	raw, _, err := req.Body.Encode()
	require.NoError(t, err)
	require.Equal(t, "amount_to_capture=10&currency=USD", string(raw))

	_, err = a.Authorize.BuildRequest(&provider.AuthorizeRouterData{Auth: credential.BodyKey("a", "b")}, cfg)
	require.ErrorIs(t, err, connector.ErrFailedToObtainAuthType)

	_, err = a.SetupMandate.BuildRequest(&provider.SetupMandateRouterData{}, cfg)
	require.ErrorIs(t, err, connector.ErrFlowNotSupported)
	require.Contains(t, err.Error(), "stripe_test")
}

func TestAdapterMetadata(t *testing.T) {
	t.Parallel()

	for _, c := range enums.Connectors() {
		if !c.IsTestDouble() {
			continue
		}
		a := New(c)
		require.NoError(t, a.Check(), c.Name())
		require.Equal(t, c.String(), a.Common.ID())
		require.True(t, a.HasWebhooks)
		require.Len(t, a.Flows, 9)
		require.False(t, a.Supports("SetupMandate"))
		require.NoError(t, a.Validation.ValidateCaptureMethod(payment.CaptureManual))
	}
}

func TestWebhooks(t *testing.T) {
	t.Parallel()

	w := Webhooks{Connector: enums.DummyConnector1}
	tests := []struct {
		name    string
		body    string
		ref     webhook.ObjectReferenceID
		refErr  error
		event   webhook.EventType
		hasBody bool
	}{
		{
			name:    "payment succeeded",
			body:    `{"type":"payment.succeeded","data":{"object":{"id":"pay_x","object":"payment"}}}`,
			ref:     webhook.PaymentRef(webhook.IDConnectorTransaction, "pay_x"),
			event:   webhook.EventPaymentSucceeded,
			hasBody: true,
		},
		{
			name:    "refund failed",
			body:    `{"type":"refund.failed","data":{"object":{"id":"re_1","object":"refund"}}}`,
			ref:     webhook.RefundRef(webhook.IDConnectorRefund, "re_1"),
			event:   webhook.EventRefundFailed,
			hasBody: true,
		},
		{
			name:    "unknown event on unmapped object",
			body:    `{"type":"customer.updated","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			refErr:  connector.ErrWebhookReferenceIDNotFound,
			event:   webhook.EventNotSupported,
			hasBody: true,
		},
		{
			name:   "no object",
			body:   `{"type":"dispute.opened","data":{}}`,
			refErr: connector.ErrWebhookBodyDecodingFailed,
			event:  webhook.EventDisputeOpened,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := &webhook.Request{Method: http.MethodPost, Body: []byte(tt.body)}

			ref, err := w.ObjectReferenceID(req)
			if tt.refErr != nil {
				require.ErrorIs(t, err, tt.refErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.ref, ref)
			}

			et, err := w.EventType(req)
			require.NoError(t, err)
			require.Equal(t, tt.event, et)

			obj, err := w.ResourceObject(req)
			if tt.hasBody {
				require.NoError(t, err)
				require.NotEmpty(t, obj)
			} else {
				require.ErrorIs(t, err, connector.ErrWebhookResourceObjectNotFound)
			}
		})
	}

	_, err := w.EventType(&webhook.Request{Body: []byte("not json")})
	require.ErrorIs(t, err, connector.ErrWebhookBodyDecodingFailed)
}
