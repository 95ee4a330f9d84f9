package base

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"payhub/internal/connector"
)

func TestDoSendsExposedHeadersAndBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk_live", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "payhub/phonypay", r.Header.Get("User-Agent"))
		b, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"amount":100}`, string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	req := connector.NewRequestBuilder().
		Method(connector.MethodPost).
		URL(srv.URL).
		Headers([]connector.Header{
			connector.PlainHeader(connector.HeaderContentType, "application/json"),
			connector.SecretHeader(connector.HeaderAuthorization, "Bearer sk_live"),
		}).
		Body(connector.JSONBody{V: map[string]int{"amount": 100}}).
		Build()

	res, err := NewHTTPClient("phonypay", 5, 0).WithTransport(srv.Client()).Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Equal(t, `{"id":"x"}`, string(res.Body))
}

func TestDoRetriesIdempotentCalls(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"succeeded"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("phonypay", 5, 2).WithTransport(srv.Client())
	req := connector.NewRequestBuilder().Method(connector.MethodGet).URL(srv.URL).Build()
	res, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDoNeverRetriesPosts(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient("phonypay", 5, 3).WithTransport(srv.Client())
	req := connector.NewRequestBuilder().Method(connector.MethodPost).URL(srv.URL).Build()
	res, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoReportsTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req := connector.NewRequestBuilder().Method(connector.MethodPost).URL(url).Build()
	_, err := NewHTTPClient("phonypay", 1, 0).Do(context.Background(), req)
	require.Error(t, err)
}

func TestDoMultipartCarriesBoundary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "evidence", r.FormValue("purpose"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := connector.NewRequestBuilder().
		Method(connector.MethodPost).
		URL(srv.URL).
		Headers([]connector.Header{connector.PlainHeader(connector.HeaderContentType, "multipart/form-data")}).
		Body(connector.FormDataBody{Fields: []connector.FormField{{Name: "purpose", Value: "evidence"}}}).
		Build()
	res, err := NewHTTPClient("fauxpay", 5, 0).WithTransport(srv.Client()).Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
}
