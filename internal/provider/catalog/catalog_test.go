package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/payment"
	"payhub/internal/provider"
)

func TestRegisterCoversEveryConnector(t *testing.T) {
	t.Parallel()

	r := provider.NewRegistry([]enums.Connector{enums.DummyConnector1})
	require.NoError(t, Register(r))
	require.Len(t, r.List(), len(enums.Connectors()))

	a, err := r.Get(enums.Esnekpos)
	require.NoError(t, err)
	require.Equal(t, []string{"Authorize"}, a.Flows)

	a, err = r.Get(enums.DummyConnector1)
	require.NoError(t, err)
	require.True(t, a.HasWebhooks)

	_, err = r.Get(enums.DummyConnector3)
	require.Error(t, err)

	a, err = r.GetByName("adyen")
	require.NoError(t, err)
	require.Empty(t, a.Flows)
}

func TestAdapterPicksIntegration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		c      enums.Connector
		flows  int
		hooked bool
	}{
		{enums.Esnekpos, 1, false},
		{enums.DummyConnector5, 9, true},
		{enums.Stripe, 0, false},
		{enums.Paypal, 0, false},
	}
	for _, tt := range tests {
		a := Adapter(tt.c)
		if a.Connector != tt.c {
			t.Fatalf("%s: adapter bound to %s", tt.c.Name(), a.Connector.Name())
		}
		if len(a.Flows) != tt.flows || a.HasWebhooks != tt.hooked {
			t.Fatalf("%s: flows=%d webhooks=%v", tt.c.Name(), len(a.Flows), a.HasWebhooks)
		}
	}
}

func TestUnsupportedFlowsFailLoudly(t *testing.T) {
	t.Parallel()

	cfg := config.Connectors{}
	exec := connector.ExecutorFunc(func(context.Context, *connector.Request) (connector.Response, error) {
		t.Fatal("an unsupported flow reached the executor")
		return connector.Response{}, nil
	})
	auth := credential.HeaderKey("sk_1")

	for _, c := range enums.Connectors() {
		a := Adapter(c)

		mandate := &provider.SetupMandateRouterData{Connector: c, Status: payment.StatusStarted, Auth: auth}
		req, err := a.SetupMandate.BuildRequest(mandate, cfg)
		require.Nil(t, req, c.Name())
		require.ErrorIs(t, err, connector.ErrFlowNotSupported, c.Name())
		_, err = connector.Execute(context.Background(), a.SetupMandate, mandate, cfg, exec, nil)
		require.ErrorIs(t, err, connector.ErrFlowNotSupported, c.Name())

		if a.Supports("PSync") {
			continue
		}
		psync := &provider.PSyncRouterData{Connector: c, Status: payment.StatusPending, Auth: auth}
		_, err = connector.Execute(context.Background(), a.PSync, psync, cfg, exec, nil)
		require.ErrorIs(t, err, connector.ErrNotImplemented, c.Name())
		require.Contains(t, err.Error(), "PSync", c.Name())
	}
}
