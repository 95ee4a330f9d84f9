package enums

import "fmt"

// InvalidConnectorError is returned when narrowing a Connector into a subset
// it does not belong to.
type InvalidConnectorError struct {
	Context   string
	Connector Connector
}

func (e *InvalidConnectorError) Error() string {
	return fmt.Sprintf("invalid %s connector %s", e.Context, e.Connector.Name())
}

// subset is the shared machinery behind the narrower connector sets. Each
// member maps to exactly one Connector.
type subset[T ~string] struct {
	context string
	members map[T]Connector
}

func (s subset[T]) widen(v T) (Connector, bool) {
	c, ok := s.members[v]
	return c, ok
}

func (s subset[T]) narrow(c Connector) (T, error) {
	for k, v := range s.members {
		if v == c {
			return k, nil
		}
	}
	var zero T
	return zero, &InvalidConnectorError{Context: s.context, Connector: c}
}

func (s subset[T]) parse(raw string) (T, error) {
	v := T(raw)
	if _, ok := s.members[v]; !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s connector %q", s.context, raw)
	}
	return v, nil
}

// AuthenticationConnector is a connector that performs external 3DS authentication.
type AuthenticationConnector string

const (
	AuthenticationThreedsecureio AuthenticationConnector = "threedsecureio"
	AuthenticationNetcetera      AuthenticationConnector = "netcetera"
)

var authenticationConnectors = subset[AuthenticationConnector]{
	context: "authentication",
	members: map[AuthenticationConnector]Connector{
		AuthenticationThreedsecureio: Threedsecureio,
		AuthenticationNetcetera:      Netcetera,
	},
}

func (a AuthenticationConnector) Connector() Connector {
	c, _ := authenticationConnectors.widen(a)
	return c
}

// AuthenticationConnectorFrom narrows c; it fails for connectors outside the set.
func AuthenticationConnectorFrom(c Connector) (AuthenticationConnector, error) {
	return authenticationConnectors.narrow(c)
}

// ConvertAuthenticationConnector looks up a wire name, reporting false when
// it is not an authentication connector.
func ConvertAuthenticationConnector(name string) (AuthenticationConnector, bool) {
	a, err := authenticationConnectors.parse(name)
	return a, err == nil
}

func (a *AuthenticationConnector) UnmarshalText(b []byte) error {
	v, err := authenticationConnectors.parse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// PayoutConnector is a connector that can execute payouts.
type PayoutConnector string

const (
	PayoutAdyen PayoutConnector = "adyen"
	PayoutWise  PayoutConnector = "wise"
)

var payoutConnectors = subset[PayoutConnector]{
	context: "payout",
	members: map[PayoutConnector]Connector{
		PayoutAdyen: Adyen,
		PayoutWise:  Wise,
	},
}

func (p PayoutConnector) Connector() Connector {
	c, _ := payoutConnectors.widen(p)
	return c
}

// PayoutConnectorFrom narrows c; it fails for connectors outside the set.
func PayoutConnectorFrom(c Connector) (PayoutConnector, error) {
	return payoutConnectors.narrow(c)
}

func (p *PayoutConnector) UnmarshalText(b []byte) error {
	v, err := payoutConnectors.parse(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// FrmConnector is a fraud and risk management connector.
type FrmConnector string

const (
	FrmSignifyd  FrmConnector = "signifyd"
	FrmRiskified FrmConnector = "riskified"
)

var frmConnectors = subset[FrmConnector]{
	context: "frm",
	members: map[FrmConnector]Connector{
		FrmSignifyd:  Signifyd,
		FrmRiskified: Riskified,
	},
}

func (f FrmConnector) Connector() Connector {
	c, _ := frmConnectors.widen(f)
	return c
}

// FrmConnectorFrom narrows c; it fails for connectors outside the set.
func FrmConnectorFrom(c Connector) (FrmConnector, error) {
	return frmConnectors.narrow(c)
}

func (f *FrmConnector) UnmarshalText(b []byte) error {
	v, err := frmConnectors.parse(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// PmAuthConnector verifies bank accounts for payment methods.
type PmAuthConnector string

const PmAuthPlaid PmAuthConnector = "plaid"

var pmAuthConnectors = subset[PmAuthConnector]{
	context: "payment method authentication",
	members: map[PmAuthConnector]Connector{
		PmAuthPlaid: Plaid,
	},
}

func (p PmAuthConnector) Connector() Connector {
	c, _ := pmAuthConnectors.widen(p)
	return c
}

// ConvertPmAuthConnector looks up a wire name, reporting false when it is not
// a payment method authentication connector.
func ConvertPmAuthConnector(name string) (PmAuthConnector, bool) {
	p, err := pmAuthConnectors.parse(name)
	return p, err == nil
}

func (p *PmAuthConnector) UnmarshalText(b []byte) error {
	v, err := pmAuthConnectors.parse(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
