package payment

import (
	"fmt"
	"strconv"
	"strings"
)

// MinorUnit is an amount in the smallest unit of its currency (cents, öre, yen).
type MinorUnit int64

// Currency is an ISO 4217 alphabetic code.
type Currency string

const (
	KES Currency = "KES"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	TRY Currency = "TRY"
	JPY Currency = "JPY"
	KWD Currency = "KWD"
)

var zeroDecimal = map[Currency]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

var threeDecimal = map[Currency]bool{
	"BHD": true, "IQD": true, "JOD": true, "KWD": true, "LYD": true, "OMR": true, "TND": true,
}

// Validate checks the code is three upper-case letters.
func (c Currency) Validate() error {
	if len(c) != 3 {
		return fmt.Errorf("invalid currency %q", string(c))
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("invalid currency %q", string(c))
		}
	}
	return nil
}

// Exponent is the number of digits after the decimal point.
func (c Currency) Exponent() int {
	switch {
	case zeroDecimal[c]:
		return 0
	case threeDecimal[c]:
		return 3
	default:
		return 2
	}
}

// CurrencyUnit says whether a connector expects amounts in minor or major units.
type CurrencyUnit uint8

const (
	CurrencyUnitMinor CurrencyUnit = iota
	CurrencyUnitMajor
)

func (u CurrencyUnit) String() string {
	if u == CurrencyUnitMajor {
		return "major"
	}
	return "minor"
}

// ConvertAmount renders amount the way a connector with the given unit
// expects it: "1050" for minor units, "10.50" for major units of USD,
// "1050" for major units of JPY.
func ConvertAmount(unit CurrencyUnit, cur Currency, amount MinorUnit) (string, error) {
	if err := cur.Validate(); err != nil {
		return "", err
	}
	if unit == CurrencyUnitMinor {
		return strconv.FormatInt(int64(amount), 10), nil
	}
	return ToMajor(cur, amount), nil
}

// ToMajor formats amount as a decimal string in major units without going
// through floating point.
func ToMajor(cur Currency, amount MinorUnit) string {
	exp := cur.Exponent()
	v := int64(amount)
	if exp == 0 {
		return strconv.FormatInt(v, 10)
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	if len(digits) <= exp {
		digits = strings.Repeat("0", exp-len(digits)+1) + digits
	}
	cut := len(digits) - exp
	return sign + digits[:cut] + "." + digits[cut:]
}

// ParseMajor is the inverse of ToMajor. It rejects more fractional digits
// than the currency allows.
func ParseMajor(cur Currency, s string) (MinorUnit, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	exp := cur.Exponent()
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(frac) > exp {
		return 0, fmt.Errorf("amount %q has more than %d decimal places for %s", s, exp, cur)
	}
	frac += strings.Repeat("0", exp-len(frac))
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %s", s)
	}
	return MinorUnit(n), nil
}
