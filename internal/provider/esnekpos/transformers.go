package esnekpos

import (
	"fmt"
	"strings"

	"payhub/internal/connector"
	"payhub/internal/domain/credential"
	"payhub/internal/domain/enums"
	"payhub/internal/domain/flow"
	"payhub/internal/domain/payment"
	"payhub/internal/domain/refund"
	"payhub/internal/masking"
)

// auth is the merchant pair Esnekpos expects inside every body.
type auth struct {
	Merchant    masking.Secret
	MerchantKey masking.Secret
}

func authFrom(a credential.AuthType) (auth, error) {
	if a.Kind != credential.AuthBodyKey || a.APIKey.IsEmpty() || a.Key1.IsEmpty() {
		return auth{}, connector.FailedToObtainAuthType()
	}
	return auth{Merchant: a.APIKey, MerchantKey: a.Key1}, nil
}

type paymentConfig struct {
	Merchant       masking.Secret `json:"MERCHANT"`
	MerchantKey    masking.Secret `json:"MERCHANT_KEY"`
	BackURL        string         `json:"BACK_URL,omitempty"`
	PricesCurrency string         `json:"PRICES_CURRENCY"`
	OrderRefNumber string         `json:"ORDER_REF_NUMBER"`
	OrderAmount    string         `json:"ORDER_AMOUNT"`
}

type creditCard struct {
	Number   masking.Secret `json:"CC_NUMBER"`
	ExpMonth masking.Secret `json:"EXP_MONTH"`
	ExpYear  masking.Secret `json:"EXP_YEAR"`
	CVV      masking.Secret `json:"CC_CVV"`
	Owner    masking.Secret `json:"CC_OWNER,omitempty"`
}

type customer struct {
	FirstName masking.Secret `json:"FIRST_NAME,omitempty"`
	LastName  masking.Secret `json:"LAST_NAME,omitempty"`
	Mail      masking.Secret `json:"MAIL,omitempty"`
	Phone     masking.Secret `json:"PHONE,omitempty"`
	IP        string         `json:"CLIENT_IP,omitempty"`
}

type product struct {
	ID          string `json:"PRODUCT_ID"`
	Name        string `json:"PRODUCT_NAME"`
	Description string `json:"PRODUCT_DESCRIPTION,omitempty"`
	Amount      string `json:"PRODUCT_AMOUNT"`
}

// PaymentsRequest is the EYV3DPay body.
type PaymentsRequest struct {
	Config     paymentConfig `json:"Config"`
	CreditCard creditCard    `json:"CreditCard"`
	Customer   customer      `json:"Customer"`
	Product    []product     `json:"Product"`
}

func newPaymentsRequest(unit payment.CurrencyUnit, rd *connector.RouterData[flow.Authorize, payment.AuthorizeData, payment.ResponseData]) (*PaymentsRequest, error) {
	a, err := authFrom(rd.Auth)
	if err != nil {
		return nil, err
	}
	req := rd.Request
	card := req.PaymentMethod.Card
	if req.PaymentMethod.Type != enums.PaymentMethodCard || card == nil {
		return nil, connector.NotSupported(fmt.Sprintf("payment method %s", req.PaymentMethod.Type), id)
	}
	amount, err := payment.ConvertAmount(unit, req.Currency, req.Amount)
	if err != nil {
		return nil, connector.RequestEncodingFailed(err)
	}
	ref := rd.ConnectorRequestReferenceID
	if ref == "" {
		return nil, connector.MissingRequiredField("connector_request_reference_id")
	}

	out := &PaymentsRequest{
		Config: paymentConfig{
			Merchant:       a.Merchant,
			MerchantKey:    a.MerchantKey,
			BackURL:        req.ReturnURL,
			PricesCurrency: string(req.Currency),
			OrderRefNumber: ref,
			OrderAmount:    amount,
		},
		CreditCard: creditCard{
			Number:   card.Number,
			ExpMonth: card.ExpMonth,
			ExpYear:  masking.Secret(card.ExpiryYear4()),
			CVV:      card.CVC,
			Owner:    card.HolderName,
		},
		Product: []product{{
			ID:          ref,
			Name:        productName(req.Description),
			Description: req.Description,
			Amount:      amount,
		}},
	}
	if c := req.Customer; c != nil {
		first, last := splitName(c.Name.Expose())
		out.Customer = customer{
			FirstName: masking.Secret(first),
			LastName:  masking.Secret(last),
			Mail:      c.Email,
			Phone:     c.Phone,
			IP:        c.IP,
		}
	}
	return out, nil
}

func productName(desc string) string {
	if desc == "" {
		return "payment"
	}
	return desc
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, ""
	}
	return full[:i], full[i+1:]
}

// PaymentsResponse is the answer to EYV3DPay and the sync endpoints.
type PaymentsResponse struct {
	OrderRefNumber string `json:"ORDER_REF_NUMBER"`
	Status         string `json:"STATUS"`
	ReturnCode     string `json:"RETURN_CODE"`
	ReturnMessage  string `json:"RETURN_MESSAGE"`
	URL3DS         string `json:"URL_3DS,omitempty" mask:"true"`
	RefNo          string `json:"REFNO,omitempty"`
}

// attemptStatus maps an Esnekpos answer onto the normalized status.
func (r PaymentsResponse) attemptStatus() payment.AttemptStatus {
	switch strings.ToUpper(r.Status) {
	case "SUCCESS":
		if r.URL3DS != "" {
			return payment.StatusAuthenticationPending
		}
		return payment.StatusCharged
	case "FAILED", "ERROR":
		return payment.StatusFailure
	}
	return payment.StatusPending
}

func (r PaymentsResponse) responseData() payment.ResponseData {
	return payment.ResponseData{
		ConnectorTransactionID: r.RefNo,
		RedirectURL:            r.URL3DS,
		ConnectorReference:     r.OrderRefNumber,
	}
}

// failed reports whether a 2xx answer still carries a decline.
func (r PaymentsResponse) failed() bool {
	return r.attemptStatus() == payment.StatusFailure
}

// RefundRequest is the refund body.
type RefundRequest struct {
	Merchant       masking.Secret `json:"MERCHANT"`
	MerchantKey    masking.Secret `json:"MERCHANT_KEY"`
	OrderRefNumber string         `json:"ORDER_REF_NUMBER"`
	Amount         string         `json:"AMOUNT"`
}

func newRefundRequest(unit payment.CurrencyUnit, rd *connector.RouterData[flow.Execute, refund.Data, refund.ResponseData]) (*RefundRequest, error) {
	a, err := authFrom(rd.Auth)
	if err != nil {
		return nil, err
	}
	amount, err := payment.ConvertAmount(unit, rd.Request.Currency, rd.Request.RefundAmount)
	if err != nil {
		return nil, connector.RequestEncodingFailed(err)
	}
	return &RefundRequest{
		Merchant:       a.Merchant,
		MerchantKey:    a.MerchantKey,
		OrderRefNumber: rd.Request.ConnectorTransactionID,
		Amount:         amount,
	}, nil
}

// RefundResponse is the answer to the refund endpoints.
type RefundResponse struct {
	Status        string `json:"STATUS"`
	ReturnCode    string `json:"RETURN_CODE"`
	ReturnMessage string `json:"RETURN_MESSAGE"`
	RefundRef     string `json:"REFUND_REF"`
}

func (r RefundResponse) refundStatus() refund.Status {
	switch strings.ToUpper(r.Status) {
	case "SUCCESS":
		return refund.StatusSuccess
	case "FAILED", "ERROR":
		return refund.StatusFailure
	}
	return refund.StatusPending
}

// ErrorResponse is the body Esnekpos sends with a failed call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
