package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"payhub/internal/config"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/webhook"
	"payhub/internal/masking"
)

// fakeCommon authenticates with a sensitive X-API-KEY header and reports
// errors as {"code", "message"}.
type fakeCommon struct{}

func (fakeCommon) ID() string                         { return "phonypay" }
func (fakeCommon) CurrencyUnit() payment.CurrencyUnit { return payment.CurrencyUnitMinor }
func (fakeCommon) ContentType() string                { return "application/json" }
func (fakeCommon) BaseURL(cfg config.Connectors) string {
	return cfg.Get("phonypay").BaseURL
}

func (fakeCommon) AuthHeaders(auth credential.AuthType) ([]Header, error) {
	if auth.Kind != credential.AuthHeaderKey {
		return nil, FailedToObtainAuthType()
	}
	return []Header{SecretHeader(HeaderXAPIKey, auth.APIKey.Expose())}, nil
}

type fakeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (fakeCommon) BuildErrorResponse(res Response, ev *Event) ErrorResponse {
	return DecodeErrorResponse(res, ev, func(e fakeError) ErrorResponse {
		return ErrorResponse{Code: e.Code, Message: e.Message}
	})
}

type syncRD = RouterData[flow.PSync, payment.SyncData, payment.ResponseData]

// fakeSync overrides the PSync flow with a GET to payments/{id}.
type fakeSync struct {
	Defaults[flow.PSync, payment.SyncData, payment.ResponseData]
}

func (f fakeSync) URL(rd *syncRD, cfg config.Connectors) (string, error) {
	return f.Common.BaseURL(cfg) + "payments/" + rd.Request.ConnectorTransactionID, nil
}

func (f fakeSync) BuildRequest(rd *syncRD, cfg config.Connectors) (*Request, error) {
	return Compose[flow.PSync, payment.SyncData, payment.ResponseData](f, MethodGet, rd, cfg, false)
}

type syncBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (f fakeSync) HandleResponse(rd *syncRD, ev *Event, res Response) (*syncRD, error) {
	if !res.IsSuccess() {
		return rd.WithError(f.ErrorResponse(res, ev)), nil
	}
	body, err := ParseJSON[syncBody](res, "sync response")
	if err != nil {
		return nil, err
	}
	ev.SetResponseBody(body)
	status := payment.StatusPending
	if body.Status == "succeeded" {
		status = payment.StatusCharged
	}
	return rd.WithResponse(status, payment.ResponseData{ConnectorTransactionID: body.ID}), nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *recordingSink) Record(e *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

var testCfg = config.Connectors{"phonypay": {BaseURL: "https://phonypay.test/"}}

func newSyncRD() *syncRD {
	return &syncRD{
		MerchantID: "m1",
		Connector:  enums.DummyConnector1,
		PaymentID:  "pay_1",
		AttemptID:  "att_1",
		Status:     payment.StatusPending,
		Auth:       credential.HeaderKey("sk_live_123"),
		Request:    payment.SyncData{ConnectorTransactionID: "tx_9", Amount: 100, Currency: payment.USD},
	}
}

func TestDefaultsURLAndBodyNameTheFlow(t *testing.T) {
	t.Parallel()

	d := Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}
	_, err := d.URL(newSyncRD(), testCfg)
	require.ErrorIs(t, err, ErrNotImplemented)
	require.Equal(t, "not implemented: url method for PSync flow", err.Error())

	_, err = d.RequestBody(newSyncRD(), testCfg)
	require.ErrorIs(t, err, ErrNotImplemented)
	require.Contains(t, err.Error(), "PSync")

	c := Defaults[flow.Capture, payment.CaptureData, payment.ResponseData]{Common: fakeCommon{}}
	_, err = c.URL(&RouterData[flow.Capture, payment.CaptureData, payment.ResponseData]{}, testCfg)
	require.Contains(t, err.Error(), "Capture")
}

func TestDefaultsBuildRequestIsAbsent(t *testing.T) {
	t.Parallel()

	d := Defaults[flow.Void, payment.CancelData, payment.ResponseData]{Common: fakeCommon{}}
	req, err := d.BuildRequest(&RouterData[flow.Void, payment.CancelData, payment.ResponseData]{}, testCfg)
	require.NoError(t, err)
	require.Nil(t, req)
	require.Equal(t, "application/json", d.ContentType())
}

func TestDefaultsHandleResponse(t *testing.T) {
	t.Parallel()

	d := Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}
	rd := newSyncRD()

	out, err := d.HandleResponse(rd, nil, Response{StatusCode: 402, Body: []byte(`{"code":"card_declined","message":"declined"}`)})
	require.NoError(t, err)
	require.NotNil(t, out.Error)
	require.Equal(t, "card_declined", out.Error.Code)
	require.Equal(t, 402, out.Error.StatusCode)
	require.Nil(t, rd.Error, "input envelope must not change")

	out, err = d.HandleResponse(rd, nil, Response{StatusCode: 200, Body: []byte(`{}`)})
	require.NoError(t, err)
	require.Nil(t, out.Error)
	require.NotSame(t, rd, out)
}

func TestDecodeErrorResponseNeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>Bad Gateway</html>"},
		{"empty", ""},
		{"wrong shape", `["not","an","object"]`},
		{"invalid utf-8", "\xffgateway down"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := NewEvent("m1", "phonypay", "PSync", "", "")
			er := fakeCommon{}.BuildErrorResponse(Response{StatusCode: 502, Body: []byte(tt.body)}, ev)
			require.Equal(t, 502, er.StatusCode)
			require.Equal(t, NoErrorCode, er.Code)
			require.Equal(t, NoErrorMessage, er.Message)
			require.NotNil(t, ev.Error)
		})
	}

	er := FallbackErrorResponse(Response{StatusCode: 503, Body: []byte("\xffgateway down")})
	require.Equal(t, 503, er.StatusCode)
	require.Equal(t, NoErrorMessage, er.Message)
	require.Equal(t, "\uFFFDgateway down", er.Reason)

	long := FallbackErrorResponse(Response{StatusCode: 502, Body: []byte(strings.Repeat("é", reasonSnippetLen))})
	require.True(t, utf8.ValidString(long.Reason))
	require.LessOrEqual(t, len(long.Reason), reasonSnippetLen)
	require.NotEmpty(t, long.Reason)

	er = fakeCommon{}.BuildErrorResponse(Response{StatusCode: 400, Body: []byte(`{"code":"bad"}`)}, nil)
	require.Equal(t, "bad", er.Code)
	require.Equal(t, NoErrorMessage, er.Message)
}

func TestComposeMasksSecretsInSnapshotsOnly(t *testing.T) {
	t.Parallel()

	rd := newSyncRD()
	req, err := fakeSync{Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}}.BuildRequest(rd, testCfg)
	require.NoError(t, err)
	require.Equal(t, MethodGet, req.Method)
	require.Equal(t, "https://phonypay.test/payments/tx_9", req.URL)

	key, ok := req.Header(HeaderXAPIKey)
	require.True(t, ok)
	require.Equal(t, "sk_live_123", key.Expose())
	require.True(t, key.IsSensitive())

	snap := req.MaskedHeaders()
	require.Equal(t, masking.Marker, snap[HeaderXAPIKey])
	require.Equal(t, "application/json", snap[HeaderContentType])
	require.Equal(t, "payhub", snap[HeaderVia])
	for _, v := range snap {
		require.NotContains(t, v, "sk_live_123")
	}
}

func TestComposeStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	rd := newSyncRD()
	rd.Auth = credential.BodyKey("k", "k1")
	_, err := fakeSync{Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}}.BuildRequest(rd, testCfg)
	require.ErrorIs(t, err, ErrFailedToObtainAuthType)
}

func TestNoPollingFailsOnURLBeforeAuth(t *testing.T) {
	t.Parallel()

	rd := newSyncRD()
	rd.Auth = credential.BodyKey("k", "k1")
	in := NoPolling[flow.PSync, payment.SyncData, payment.ResponseData]{
		Defaults: Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}},
	}
	req, err := in.BuildRequest(rd, testCfg)
	require.Nil(t, req)
	require.ErrorIs(t, err, ErrNotImplemented)
	require.NotErrorIs(t, err, ErrFailedToObtainAuthType)
	require.Equal(t, "not implemented: url method for PSync flow", err.Error())
}

type cardPayload struct {
	Amount int64          `json:"amount"`
	Number masking.Secret `json:"number"`
	Nested struct {
		Key masking.Secret `json:"key"`
	} `json:"nested"`
}

func TestBodiesEncodeRealValuesAndMaskSnapshots(t *testing.T) {
	t.Parallel()

	p := cardPayload{Amount: 1050, Number: "4242424242424242"}
	p.Nested.Key = "secret"

	raw, _, err := JSONBody{V: p}.Encode()
	require.NoError(t, err)
	require.Contains(t, string(raw), "4242424242424242")

	snap, err := json.Marshal(JSONBody{V: p}.Masked())
	require.NoError(t, err)
	require.NotContains(t, string(snap), "4242424242424242")
	require.NotContains(t, string(snap), "secret")
	require.Contains(t, string(snap), masking.Marker)

	form, _, err := FormURLEncodedBody{V: p}.Encode()
	require.NoError(t, err)
	vals, err := url.ParseQuery(string(form))
	require.NoError(t, err)
	require.Equal(t, "1050", vals.Get("amount"))
	require.Equal(t, "secret", vals.Get("nested[key]"))

	require.Equal(t, map[string]any{"request_type": "FORM_DATA"}, FormDataBody{Fields: []FormField{{Name: "f", Value: "v"}}}.Masked())
	require.Equal(t, map[string]any{"request_type": "RAW_BYTES"}, RawBytesBody("abc").Masked())
	require.Equal(t, map[string]any{"error": "failed to mask serialize"}, JSONBody{V: make(chan int)}.Masked())
}

func TestFormDataEncodeCarriesBoundary(t *testing.T) {
	t.Parallel()

	body, ct, err := FormDataBody{Fields: []FormField{
		{Name: "purpose", Value: "dispute_evidence"},
		{Name: "file", FileName: "receipt.pdf", Content: []byte("%PDF")},
	}}.Encode()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="))
	require.Contains(t, string(body), "dispute_evidence")
	require.Contains(t, string(body), `filename="receipt.pdf"`)
}

func TestExecuteAbsentRequestSkipsExecutor(t *testing.T) {
	t.Parallel()

	called := false
	exec := ExecutorFunc(func(context.Context, *Request) (Response, error) {
		called = true
		return Response{}, nil
	})
	in := Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}
	rd := newSyncRD()

	out, err := Execute[flow.PSync, payment.SyncData, payment.ResponseData](context.Background(), in, rd, testCfg, exec, nil)
	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, rd.Status, out.Status)
	require.NotSame(t, rd, out)
}

func TestExecuteSuccessRecordsEvent(t *testing.T) {
	t.Parallel()

	var seen *Request
	exec := ExecutorFunc(func(_ context.Context, req *Request) (Response, error) {
		seen = req
		return Response{StatusCode: 200, Body: []byte(`{"id":"tx_9","status":"succeeded"}`)}, nil
	})
	sink := &recordingSink{}
	in := fakeSync{Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}}

	out, err := Execute[flow.PSync, payment.SyncData, payment.ResponseData](context.Background(), in, newSyncRD(), testCfg, exec, sink)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, payment.StatusCharged, out.Status)
	require.Equal(t, "tx_9", out.Response.ConnectorTransactionID)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	require.Equal(t, "PSync", ev.Flow)
	require.Equal(t, "phonypay", ev.Connector)
	require.Equal(t, 200, ev.StatusCode)
	require.Equal(t, masking.Marker, ev.RequestHeaders[HeaderXAPIKey])
	require.Nil(t, ev.Error)
}

func TestExecuteConvertsDeserializationFailure(t *testing.T) {
	t.Parallel()

	exec := ExecutorFunc(func(context.Context, *Request) (Response, error) {
		return Response{StatusCode: 200, Body: []byte(`<xml/>`)}, nil
	})
	sink := &recordingSink{}
	in := fakeSync{Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}}

	out, err := Execute[flow.PSync, payment.SyncData, payment.ResponseData](context.Background(), in, newSyncRD(), testCfg, exec, sink)
	require.NoError(t, err)
	require.NotNil(t, out.Error)
	require.Equal(t, ResponseDeserializationFailedCode, out.Error.Code)
	require.Equal(t, 200, out.Error.StatusCode)
	require.Nil(t, out.Response)
	require.Len(t, sink.events, 1)
	require.NotNil(t, sink.events[0].Error)
}

func TestExecuteExecutorFailure(t *testing.T) {
	t.Parallel()

	exec := ExecutorFunc(func(context.Context, *Request) (Response, error) {
		return Response{}, errors.New("connection refused")
	})
	in := fakeSync{Defaults[flow.PSync, payment.SyncData, payment.ResponseData]{Common: fakeCommon{}}}

	_, err := Execute[flow.PSync, payment.SyncData, payment.ResponseData](context.Background(), in, newSyncRD(), testCfg, exec, nil)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.Contains(t, err.Error(), "connection refused")
}

func TestExecuteBuildFailureAborts(t *testing.T) {
	t.Parallel()

	exec := ExecutorFunc(func(context.Context, *Request) (Response, error) {
		t.Fatal("executor must not run")
		return Response{}, nil
	})
	mandate := UnsupportedMandate{Defaults[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]{Common: fakeCommon{}}}
	rd := &RouterData[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData]{Connector: enums.DummyConnector1}

	_, err := Execute[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData](context.Background(), mandate, rd, testCfg, exec, nil)
	require.ErrorIs(t, err, ErrFlowNotSupported)
	require.Contains(t, err.Error(), "setup mandate flow not supported by phonypay connector")
}

func TestErrorKindsAndNotes(t *testing.T) {
	t.Parallel()

	base := NotImplemented("get_request_body method")
	withNote := base.Attach("building Capture request")
	require.Empty(t, base.Notes())
	require.Equal(t, []string{"building Capture request"}, withNote.Notes())
	require.ErrorIs(t, withNote, ErrNotImplemented)
	require.NotErrorIs(t, withNote, ErrFlowNotSupported)
	require.Equal(t, KindNotImplemented, KindOf(withNote))
	require.Contains(t, withNote.Report(), "building Capture request")

	wrapped := Attach(errors.New("boom"), "context")
	require.Equal(t, KindUnknown, KindOf(wrapped))
	require.Nil(t, Attach(nil, "ignored"))

	changed := ChangeContext(errors.New("eof"), KindResponseDeserializationFailed)
	require.ErrorIs(t, changed, ErrResponseDeserializationFailed)
}

func TestNoWebhooksFailsEveryCall(t *testing.T) {
	t.Parallel()

	var w IncomingWebhook = NoWebhooks{}
	req := &webhook.Request{Body: []byte(`{}`)}

	_, err := w.ObjectReferenceID(req)
	require.ErrorIs(t, err, ErrWebhooksNotImplemented)
	_, err = w.EventType(req)
	require.ErrorIs(t, err, ErrWebhooksNotImplemented)
	_, err = w.ResourceObject(req)
	require.ErrorIs(t, err, ErrWebhooksNotImplemented)
}

func TestCaptureMethodValidation(t *testing.T) {
	t.Parallel()

	auto := AutomaticCaptureOnly{Connector: "esnekpos"}
	require.NoError(t, auto.ValidateCaptureMethod(""))
	require.NoError(t, auto.ValidateCaptureMethod(payment.CaptureAutomatic))
	require.ErrorIs(t, auto.ValidateCaptureMethod(payment.CaptureManual), ErrNotSupported)

	some := CaptureMethods{Connector: "phonypay", Allowed: []payment.CaptureMethod{payment.CaptureAutomatic, payment.CaptureManual}}
	require.NoError(t, some.ValidateCaptureMethod(payment.CaptureManual))
	require.Error(t, some.ValidateCaptureMethod(payment.CaptureScheduled))
}

func TestRouterDataCloneSharesNothing(t *testing.T) {
	t.Parallel()

	rd := newSyncRD()
	rd.AccessToken = &payment.AccessToken{Token: "tok", ExpiresIn: 60}
	out := rd.WithResponse(payment.StatusCharged, payment.ResponseData{ConnectorTransactionID: "tx"})
	out.AccessToken.ExpiresIn = 1

	require.Equal(t, int64(60), rd.AccessToken.ExpiresIn)
	require.Nil(t, rd.Response)
	require.Equal(t, payment.StatusPending, rd.Status)
	require.Equal(t, "PSync", out.FlowName())

	failed := out.WithError(ErrorResponse{Code: "x", AttemptStatus: payment.StatusFailure})
	require.Nil(t, failed.Response)
	require.Equal(t, payment.StatusFailure, failed.Status)
	require.NotNil(t, out.Response)
}
