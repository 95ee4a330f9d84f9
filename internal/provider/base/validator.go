package base

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"payhub/internal/domain/payment"
	"payhub/internal/provider"
)

var (
	cardNumberRe = regexp.MustCompile(`^\d{12,19}$`)
	cvcRe        = regexp.MustCompile(`^\d{3,4}$`)
)

// CardValidator checks raw card data before it is sent to a connector.
type CardValidator struct {
	now func() time.Time
}

// NewCardValidator creates a validator that checks expiry against the wall clock.
func NewCardValidator() *CardValidator {
	return &CardValidator{now: time.Now}
}

// ValidateCard checks number format and checksum, expiry and CVC.
func (v *CardValidator) ValidateCard(c *payment.Card) error {
	if c == nil {
		return &provider.ProviderError{Code: provider.ErrInvalidCard, Message: "card details are required"}
	}
	number := normalizeNumber(c.Number.Expose())
	if !cardNumberRe.MatchString(number) || !luhn(number) {
		return &provider.ProviderError{Code: provider.ErrInvalidCard, Message: "invalid card number"}
	}
	if !cvcRe.MatchString(c.CVC.Expose()) {
		return &provider.ProviderError{Code: provider.ErrInvalidCard, Message: "invalid card cvc"}
	}

	month, err := strconv.Atoi(c.ExpMonth.Expose())
	if err != nil || month < 1 || month > 12 {
		return &provider.ProviderError{Code: provider.ErrInvalidCard, Message: "invalid expiry month"}
	}
	year, err := strconv.Atoi(c.ExpiryYear4())
	if err != nil || year < 2000 {
		return &provider.ProviderError{Code: provider.ErrInvalidCard, Message: "invalid expiry year"}
	}
	// a card is valid through the last day of its expiry month
	expires := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !v.now().UTC().Before(expires) {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidCard,
			Message: fmt.Sprintf("card expired %02d/%d", month, year),
		}
	}
	return nil
}

func normalizeNumber(n string) string {
	n = strings.ReplaceAll(n, " ", "")
	return strings.ReplaceAll(n, "-", "")
}

func luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// AmountValidator validates payment amounts
type AmountValidator struct {
	minAmount payment.MinorUnit
	maxAmount payment.MinorUnit
}

// NewAmountValidator creates an amount validator with limits in minor units.
// A zero max means no upper limit.
func NewAmountValidator(minAmount, maxAmount payment.MinorUnit) *AmountValidator {
	return &AmountValidator{
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// ValidateAmount validates an amount and its currency.
func (v *AmountValidator) ValidateAmount(amount payment.MinorUnit, cur payment.Currency) error {
	if err := cur.Validate(); err != nil {
		return &provider.ProviderError{
			Code:        provider.ErrInvalidCurrency,
			Message:     "invalid currency",
			ProviderErr: err.Error(),
		}
	}
	if amount <= 0 {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: "amount must be greater than zero",
		}
	}

	if amount < v.minAmount {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: fmt.Sprintf("amount must be at least %s %s", payment.ToMajor(cur, v.minAmount), cur),
		}
	}

	if v.maxAmount > 0 && amount > v.maxAmount {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: fmt.Sprintf("amount must not exceed %s %s", payment.ToMajor(cur, v.maxAmount), cur),
		}
	}

	return nil
}

// RequestValidator provides common request validation
type RequestValidator struct {
	cards   *CardValidator
	amounts *AmountValidator
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(minAmount, maxAmount payment.MinorUnit) *RequestValidator {
	return &RequestValidator{
		cards:   NewCardValidator(),
		amounts: NewAmountValidator(minAmount, maxAmount),
	}
}

// ValidateAuthorize validates an authorize payload. Card data is only
// checked for card payments.
func (v *RequestValidator) ValidateAuthorize(req *payment.AuthorizeData) error {
	if err := v.amounts.ValidateAmount(req.Amount, req.Currency); err != nil {
		return err
	}
	if req.PaymentMethod.Card != nil {
		return v.cards.ValidateCard(req.PaymentMethod.Card)
	}
	return nil
}

// ValidateCapture checks the amount to capture.
func (v *RequestValidator) ValidateCapture(req *payment.CaptureData) error {
	return v.amounts.ValidateAmount(req.AmountToCapture, req.Currency)
}
