package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/provider"
)

// Preview is the masked description of the request a flow would send.
type Preview struct {
	Connector string            `json:"connector" yaml:"connector"`
	Flow      string            `json:"flow" yaml:"flow"`
	Sent      bool              `json:"sent" yaml:"sent"`
	Method    string            `json:"method,omitempty" yaml:"method,omitempty"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyKind  string            `json:"body_kind,omitempty" yaml:"body_kind,omitempty"`
	Body      any               `json:"body,omitempty" yaml:"body,omitempty"`
}

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [connector] [flow]",
		Short: "Build a sample request for a connector flow and print it masked",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("connectors-file")
			cfg, err := config.LoadConnectors(path)
			if err != nil {
				return err
			}
			reg, err := registry(allTestDoubles())
			if err != nil {
				return err
			}
			a, err := reg.GetByName(args[0])
			if err != nil {
				return err
			}
			p, err := preview(a, args[1], withPlaceholderURL(cfg, a.Connector))
			if err != nil {
				return err
			}
			return render(cmd, p)
		},
	}
	cmd.Flags().String("connectors-file", envOr("CONNECTORS_FILE", "connectors.yaml"), "Connector settings file")
	return cmd
}

// preview runs BuildRequest for one flow on sample data.
func preview(a *provider.Adapter, flowName string, cfg config.Connectors) (*Preview, error) {
	var (
		req *connector.Request
		err error
	)
	c := a.Connector
	auth := sampleAuth(c)
	card := payment.PaymentMethodData{
		Type: enums.PaymentMethodCard,
		Card: &payment.Card{Number: "4111111111111111", ExpMonth: "12", ExpYear: "2030", CVC: "123", HolderName: "Jane Doe"},
	}
	refundData := refund.Data{
		RefundID:               "ref_preview",
		ConnectorTransactionID: "txn_preview",
		ConnectorRefundID:      "re_preview",
		RefundAmount:           500,
		PaymentAmount:          1000,
		Currency:               payment.USD,
	}

	switch strings.ToLower(flowName) {
	case "authorize":
		req, err = build(a.Authorize, sample[flow.Authorize, payment.AuthorizeData, payment.ResponseData](c, auth, payment.AuthorizeData{
			Amount: 1000, Currency: payment.USD, PaymentMethod: card, CaptureMethod: payment.CaptureAutomatic,
			ReturnURL: "https://merchant.example/return",
			Customer:  &payment.Customer{Name: "Jane Doe", Email: "jane@example.com"},
		}), cfg)
	case "psync", "sync":
		req, err = build(a.PSync, sample[flow.PSync, payment.SyncData, payment.ResponseData](c, auth, payment.SyncData{
			ConnectorTransactionID: "txn_preview", Amount: 1000, Currency: payment.USD,
		}), cfg)
	case "capture":
		req, err = build(a.Capture, sample[flow.Capture, payment.CaptureData, payment.ResponseData](c, auth, payment.CaptureData{
			ConnectorTransactionID: "txn_preview", AmountToCapture: 1000, Currency: payment.USD,
		}), cfg)
	case "void":
		req, err = build(a.Void, sample[flow.Void, payment.CancelData, payment.ResponseData](c, auth, payment.CancelData{
			ConnectorTransactionID: "txn_preview", CancellationReason: "requested_by_customer",
		}), cfg)
	case "setupmandate":
		req, err = build(a.SetupMandate, sample[flow.SetupMandate, payment.SetupMandateData, payment.ResponseData](c, auth, payment.SetupMandateData{
			Currency: payment.USD, PaymentMethod: card,
		}), cfg)
	case "execute", "refund":
		req, err = build(a.RefundExecute, sample[flow.Execute, refund.Data, refund.ResponseData](c, auth, refundData), cfg)
	case "rsync", "refundsync":
		req, err = build(a.RefundSync, sample[flow.RSync, refund.Data, refund.ResponseData](c, auth, refundData), cfg)
	case "accesstokenauth", "accesstoken":
		req, err = build(a.AccessToken, sample[flow.AccessTokenAuth, payment.AccessTokenRequestData, payment.AccessToken](c, auth, payment.AccessTokenRequestData{
			AppID: auth.APIKey, Secret: auth.Key1,
		}), cfg)
	case "session":
		req, err = build(a.Session, sample[flow.Session, payment.SessionData, payment.ResponseData](c, auth, payment.SessionData{
			Amount: 1000, Currency: payment.USD, Country: "US",
		}), cfg)
	case "paymentmethodtoken", "tokenize":
		req, err = build(a.PaymentMethodToken, sample[flow.PaymentMethodToken, payment.TokenizationData, payment.ResponseData](c, auth, payment.TokenizationData{
			PaymentMethod: card, Currency: payment.USD,
		}), cfg)
	default:
		return nil, fmt.Errorf("unknown flow %q", flowName)
	}
	if err != nil {
		return nil, err
	}

	p := &Preview{Connector: c.String(), Flow: flowName}
	if req == nil {
		return p, nil
	}
	p.Sent = true
	p.Method = string(req.Method)
	p.URL = req.URL
	p.Headers = req.MaskedHeaders()
	if req.Body != nil {
		p.BodyKind = req.Body.Kind().String()
		p.Body = req.MaskedBody()
	}
	return p, nil
}

func build[F flow.Flow, Req, Resp any](integ connector.Integration[F, Req, Resp], rd *connector.RouterData[F, Req, Resp], cfg config.Connectors) (*connector.Request, error) {
	return integ.BuildRequest(rd, cfg)
}

func sample[F flow.Flow, Req, Resp any](c enums.Connector, auth credential.AuthType, req Req) *connector.RouterData[F, Req, Resp] {
	return &connector.RouterData[F, Req, Resp]{
		MerchantID:                  "merchant_preview",
		Connector:                   c,
		PaymentID:                   "pay_preview",
		AttemptID:                   "att_preview",
		ConnectorRequestReferenceID: "att_preview",
		PaymentMethod:               enums.PaymentMethodCard,
		Status:                      payment.StatusStarted,
		Auth:                        auth,
		AccessToken:                 &payment.AccessToken{Token: "tok_preview", ExpiresIn: 3600},
		TestMode:                    true,
		Request:                     req,
	}
}

// sampleAuth picks credentials of the shape the connector reads.
func sampleAuth(c enums.Connector) credential.AuthType {
	if c == enums.Esnekpos {
		return credential.BodyKey("MERCHANT_PREVIEW", "merchant-key-preview")
	}
	return credential.HeaderKey("sk_preview_0123456789")
}

func withPlaceholderURL(cfg config.Connectors, c enums.Connector) config.Connectors {
	out := config.Connectors{}
	for k, v := range cfg {
		out[k] = v
	}
	if out.Get(c.String()).BaseURL == "" {
		out[c.String()] = config.ConnectorParams{BaseURL: "https://" + c.String() + ".example/"}
	}
	return out
}

// allTestDoubles enables every test double; previews send nothing.
func allTestDoubles() []string {
	var out []string
	for _, c := range enums.Connectors() {
		if c.IsTestDouble() {
			out = append(out, c.String())
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
