package enums

import (
	"encoding/json"
	"fmt"
)

// PaymentMethod is the broad category of a payment instrument.
type PaymentMethod string

const (
	PaymentMethodCard            PaymentMethod = "card"
	PaymentMethodCardRedirect    PaymentMethod = "card_redirect"
	PaymentMethodPayLater        PaymentMethod = "pay_later"
	PaymentMethodWallet          PaymentMethod = "wallet"
	PaymentMethodBankRedirect    PaymentMethod = "bank_redirect"
	PaymentMethodBankTransfer    PaymentMethod = "bank_transfer"
	PaymentMethodCrypto          PaymentMethod = "crypto"
	PaymentMethodBankDebit       PaymentMethod = "bank_debit"
	PaymentMethodReward          PaymentMethod = "reward"
	PaymentMethodRealTimePayment PaymentMethod = "real_time_payment"
	PaymentMethodUpi             PaymentMethod = "upi"
	PaymentMethodVoucher         PaymentMethod = "voucher"
	PaymentMethodGiftCard        PaymentMethod = "gift_card"
)

// PaymentMethods lists every category.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCard, PaymentMethodCardRedirect, PaymentMethodPayLater,
		PaymentMethodWallet, PaymentMethodBankRedirect, PaymentMethodBankTransfer,
		PaymentMethodCrypto, PaymentMethodBankDebit, PaymentMethodReward,
		PaymentMethodRealTimePayment, PaymentMethodUpi, PaymentMethodVoucher,
		PaymentMethodGiftCard,
	}
}

// RoutingAlgorithm picks the connector for a payment. Only the vocabulary
// lives here; the decision logic belongs to the router.
type RoutingAlgorithm string

const (
	RoutingRoundRobin    RoutingAlgorithm = "round_robin"
	RoutingMaxConversion RoutingAlgorithm = "max_conversion"
	RoutingMinCost       RoutingAlgorithm = "min_cost"
	RoutingCustom        RoutingAlgorithm = "custom"
)

func (r *RoutingAlgorithm) UnmarshalText(b []byte) error {
	return parseInto(r, string(b), "routing algorithm",
		RoutingRoundRobin, RoutingMaxConversion, RoutingMinCost, RoutingCustom)
}

// RetryAction tells the caller what to do with a payment that did not reach
// a terminal state.
type RetryAction string

const (
	// RetryManual lets the client retry until success, expiry or the
	// merchant's attempt limit.
	RetryManual RetryAction = "manual_retry"
	// RetryRequeue puts the payment back on the sync queue.
	RetryRequeue RetryAction = "requeue"
)

func (r *RetryAction) UnmarshalText(b []byte) error {
	return parseInto(r, string(b), "retry action", RetryManual, RetryRequeue)
}

// FrmAction is what the risk engine asks for when a transaction is flagged.
type FrmAction string

const (
	FrmCancelTxn    FrmAction = "cancel_txn"
	FrmAutoRefund   FrmAction = "auto_refund"
	FrmManualReview FrmAction = "manual_review"
)

func (f *FrmAction) UnmarshalText(b []byte) error {
	return parseInto(f, string(b), "frm action", FrmCancelTxn, FrmAutoRefund, FrmManualReview)
}

// FrmPreferredFlowType says whether fraud checks run before or after authorization.
type FrmPreferredFlowType string

const (
	FrmFlowPre  FrmPreferredFlowType = "pre"
	FrmFlowPost FrmPreferredFlowType = "post"
)

func (f *FrmPreferredFlowType) UnmarshalText(b []byte) error {
	return parseInto(f, string(b), "frm flow type", FrmFlowPre, FrmFlowPost)
}

// UnresolvedResponseReason explains to the merchant why a payment ended up
// unresolved and what to do next.
type UnresolvedResponseReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseInto[T ~string](dst *T, raw, what string, allowed ...T) error {
	for _, a := range allowed {
		if string(a) == raw {
			*dst = a
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, raw)
}

// FieldKind names a required field in payment method data.
type FieldKind string

const (
	FieldUserCardNumber      FieldKind = "user_card_number"
	FieldUserCardExpiryMonth FieldKind = "user_card_expiry_month"
	FieldUserCardExpiryYear  FieldKind = "user_card_expiry_year"
	FieldUserCardCvc         FieldKind = "user_card_cvc"
	FieldUserFullName        FieldKind = "user_full_name"
	FieldUserEmailAddress    FieldKind = "user_email_address"
	FieldUserPhoneNumber     FieldKind = "user_phone_number"
	FieldUserCountryCode     FieldKind = "user_country_code"
	FieldUserCountry         FieldKind = "user_country"
	FieldUserCurrency        FieldKind = "user_currency"
	FieldUserBillingName     FieldKind = "user_billing_name"
	FieldUserAddressLine1    FieldKind = "user_address_line1"
	FieldUserAddressLine2    FieldKind = "user_address_line2"
	FieldUserAddressCity     FieldKind = "user_address_city"
	FieldUserAddressPincode  FieldKind = "user_address_pincode"
	FieldUserAddressState    FieldKind = "user_address_state"
	FieldUserAddressCountry  FieldKind = "user_address_country"
	FieldUserBlikCode        FieldKind = "user_blik_code"
	FieldUserBank            FieldKind = "user_bank"
	FieldText                FieldKind = "text"
	FieldDropDown            FieldKind = "drop_down"
)

var fieldKinds = []FieldKind{
	FieldUserCardNumber, FieldUserCardExpiryMonth, FieldUserCardExpiryYear, FieldUserCardCvc,
	FieldUserFullName, FieldUserEmailAddress, FieldUserPhoneNumber, FieldUserCountryCode,
	FieldUserCountry, FieldUserCurrency, FieldUserBillingName, FieldUserAddressLine1,
	FieldUserAddressLine2, FieldUserAddressCity, FieldUserAddressPincode, FieldUserAddressState,
	FieldUserAddressCountry, FieldUserBlikCode, FieldUserBank, FieldText, FieldDropDown,
}

var optionFields = map[FieldKind]bool{
	FieldUserCountry:        true,
	FieldUserCurrency:       true,
	FieldUserAddressCountry: true,
	FieldDropDown:           true,
}

// FieldType describes one required field. Kinds that select from a list
// carry Options and serialize as {"<kind>": {"options": [...]}}; the rest
// serialize as a bare string.
type FieldType struct {
	Kind    FieldKind
	Options []string
}

type fieldOptions struct {
	Options []string `json:"options"`
}

func (f FieldType) MarshalJSON() ([]byte, error) {
	if optionFields[f.Kind] {
		opts := f.Options
		if opts == nil {
			opts = []string{}
		}
		return json.Marshal(map[FieldKind]fieldOptions{f.Kind: {Options: opts}})
	}
	return json.Marshal(string(f.Kind))
}

func (f *FieldType) UnmarshalJSON(b []byte) error {
	var bare string
	if err := json.Unmarshal(b, &bare); err == nil {
		var kind FieldKind
		if err := parseInto(&kind, bare, "field type", fieldKinds...); err != nil {
			return err
		}
		if optionFields[kind] {
			return fmt.Errorf("field type %q requires options", bare)
		}
		*f = FieldType{Kind: kind}
		return nil
	}
	var tagged map[FieldKind]fieldOptions
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("decode field type: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("field type must have exactly one variant, got %d", len(tagged))
	}
	for k, v := range tagged {
		if !optionFields[k] {
			return fmt.Errorf("field type %q does not take options", k)
		}
		*f = FieldType{Kind: k, Options: v.Options}
	}
	return nil
}
