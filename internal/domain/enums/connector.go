// Package enums holds the closed enumerations shared by the connector layer
// and its callers: the connector set and its narrower subsets, payment method
// categories, and the routing/retry/fraud vocabularies.
//
// Every enumeration serializes to a fixed lower-snake-case string.
package enums

import (
	"fmt"
	"strings"
)

// Connector identifies an external payment, risk or authentication processor.
type Connector uint8

const (
	DummyConnector1 Connector = iota + 1
	DummyConnector2
	DummyConnector3
	DummyConnector4
	DummyConnector5
	DummyConnector6
	DummyConnector7
	Aci
	Adyen
	Airwallex
	Authorizedotnet
	Bambora
	Bankofamerica
	Billwerk
	Bitpay
	Bluesnap
	Boku
	Braintree
	Cashtocode
	Checkout
	Coinbase
	Cryptopay
	Cybersource
	Dlocal
	Esnekpos
	Fiserv
	Forte
	Globalpay
	Globepay
	Gocardless
	Helcim
	Iatapay
	Klarna
	Mollie
	Multisafepay
	Netcetera
	Nexinets
	Nmi
	Noon
	Nuvei
	Opennode
	Payme
	Paypal
	Payu
	Placetopay
	Powertranz
	Prophetpay
	Rapyd
	Shift4
	Square
	Stax
	Stripe
	Threedsecureio
	Trustpay
	Tsys
	Volt
	Wise
	Worldline
	Worldpay
	Signifyd
	Plaid
	Riskified
	Zen
	Zsl

	connectorEnd
)

// tokenScope describes when a connector needs an access token before calling
// its payment endpoints.
type tokenScope struct {
	always  bool
	methods []PaymentMethod
}

// profile is the fixed description of one connector variant. Every variant
// has an entry in profiles; predicates read from it and nothing else.
type profile struct {
	name string
	wire string

	testDouble    bool
	accessToken   tokenScope
	fileStorage   bool
	defendDispute bool
	separateAuth  bool
}

var profiles = [connectorEnd]profile{
	DummyConnector1: {name: "DummyConnector1", wire: "phonypay", testDouble: true},
	DummyConnector2: {name: "DummyConnector2", wire: "fauxpay", testDouble: true},
	DummyConnector3: {name: "DummyConnector3", wire: "pretendpay", testDouble: true},
	DummyConnector4: {name: "DummyConnector4", wire: "stripe_test", testDouble: true},
	DummyConnector5: {name: "DummyConnector5", wire: "adyen_test", testDouble: true},
	DummyConnector6: {name: "DummyConnector6", wire: "checkout_test", testDouble: true},
	DummyConnector7: {name: "DummyConnector7", wire: "paypal_test", testDouble: true},

	Aci:             {name: "Aci", wire: "aci"},
	Adyen:           {name: "Adyen", wire: "adyen"},
	Airwallex:       {name: "Airwallex", wire: "airwallex", accessToken: tokenScope{always: true}},
	Authorizedotnet: {name: "Authorizedotnet", wire: "authorizedotnet"},
	Bambora:         {name: "Bambora", wire: "bambora"},
	Bankofamerica:   {name: "Bankofamerica", wire: "bankofamerica"},
	Billwerk:        {name: "Billwerk", wire: "billwerk"},
	Bitpay:          {name: "Bitpay", wire: "bitpay"},
	Bluesnap:        {name: "Bluesnap", wire: "bluesnap"},
	Boku:            {name: "Boku", wire: "boku"},
	Braintree:       {name: "Braintree", wire: "braintree"},
	Cashtocode:      {name: "Cashtocode", wire: "cashtocode"},
	Checkout:        {name: "Checkout", wire: "checkout", fileStorage: true, defendDispute: true, separateAuth: true},
	Coinbase:        {name: "Coinbase", wire: "coinbase"},
	Cryptopay:       {name: "Cryptopay", wire: "cryptopay"},
	Cybersource:     {name: "Cybersource", wire: "cybersource"},
	Dlocal:          {name: "Dlocal", wire: "dlocal"},
	Esnekpos:        {name: "Esnekpos", wire: "esnekpos"},
	Fiserv:          {name: "Fiserv", wire: "fiserv"},
	Forte:           {name: "Forte", wire: "forte"},
	Globalpay:       {name: "Globalpay", wire: "globalpay", accessToken: tokenScope{always: true}},
	Globepay:        {name: "Globepay", wire: "globepay"},
	Gocardless:      {name: "Gocardless", wire: "gocardless"},
	Helcim:          {name: "Helcim", wire: "helcim"},
	Iatapay:         {name: "Iatapay", wire: "iatapay", accessToken: tokenScope{always: true}},
	Klarna:          {name: "Klarna", wire: "klarna"},
	Mollie:          {name: "Mollie", wire: "mollie"},
	Multisafepay:    {name: "Multisafepay", wire: "multisafepay"},
	Netcetera:       {name: "Netcetera", wire: "netcetera"},
	Nexinets:        {name: "Nexinets", wire: "nexinets"},
	Nmi:             {name: "Nmi", wire: "nmi", separateAuth: true},
	Noon:            {name: "Noon", wire: "noon"},
	Nuvei:           {name: "Nuvei", wire: "nuvei"},
	Opennode:        {name: "Opennode", wire: "opennode"},
	Payme:           {name: "Payme", wire: "payme"},
	Paypal:          {name: "Paypal", wire: "paypal", accessToken: tokenScope{always: true}},
	Payu:            {name: "Payu", wire: "payu", accessToken: tokenScope{always: true}},
	Placetopay:      {name: "Placetopay", wire: "placetopay"},
	Powertranz:      {name: "Powertranz", wire: "powertranz"},
	Prophetpay:      {name: "Prophetpay", wire: "prophetpay"},
	Rapyd:           {name: "Rapyd", wire: "rapyd"},
	Shift4:          {name: "Shift4", wire: "shift4"},
	Square:          {name: "Square", wire: "square"},
	Stax:            {name: "Stax", wire: "stax"},
	Stripe:          {name: "Stripe", wire: "stripe", fileStorage: true},
	Threedsecureio:  {name: "Threedsecureio", wire: "threedsecureio"},
	Trustpay:        {name: "Trustpay", wire: "trustpay", accessToken: tokenScope{methods: []PaymentMethod{PaymentMethodBankRedirect}}},
	Tsys:            {name: "Tsys", wire: "tsys"},
	Volt:            {name: "Volt", wire: "volt", accessToken: tokenScope{always: true}},
	Wise:            {name: "Wise", wire: "wise"},
	Worldline:       {name: "Worldline", wire: "worldline"},
	Worldpay:        {name: "Worldpay", wire: "worldpay"},
	Signifyd:        {name: "Signifyd", wire: "signifyd"},
	Plaid:           {name: "Plaid", wire: "plaid"},
	Riskified:       {name: "Riskified", wire: "riskified"},
	Zen:             {name: "Zen", wire: "zen"},
	Zsl:             {name: "Zsl", wire: "zsl"},
}

var byWire = func() map[string]Connector {
	m := make(map[string]Connector, len(profiles))
	for c := Connector(1); c < connectorEnd; c++ {
		m[profiles[c].wire] = c
	}
	return m
}()

// Connectors returns every variant in declaration order.
func Connectors() []Connector {
	out := make([]Connector, 0, int(connectorEnd)-1)
	for c := Connector(1); c < connectorEnd; c++ {
		out = append(out, c)
	}
	return out
}

func (c Connector) profile() profile {
	if c == 0 || c >= connectorEnd {
		return profile{}
	}
	return profiles[c]
}

// Valid reports whether c is a declared variant.
func (c Connector) Valid() bool { return c > 0 && c < connectorEnd }

// Name is the internal variant name, e.g. "DummyConnector1".
func (c Connector) Name() string {
	if p := c.profile(); p.name != "" {
		return p.name
	}
	return fmt.Sprintf("Connector(%d)", uint8(c))
}

// String is the wire name, e.g. "phonypay".
func (c Connector) String() string {
	if p := c.profile(); p.wire != "" {
		return p.wire
	}
	return fmt.Sprintf("connector(%d)", uint8(c))
}

// IsTestDouble reports whether c is one of the dummy connectors that only
// run when listed in the test-connector allow-list.
func (c Connector) IsTestDouble() bool { return c.profile().testDouble }

// SupportsAccessToken reports whether payments through c need an access token
// obtained by the AccessTokenAuth flow first.
func (c Connector) SupportsAccessToken(pm PaymentMethod) bool {
	scope := c.profile().accessToken
	if scope.always {
		return true
	}
	for _, m := range scope.methods {
		if m == pm {
			return true
		}
	}
	return false
}

// SupportsFileStorageModule reports whether c can store files such as
// dispute evidence.
func (c Connector) SupportsFileStorageModule() bool { return c.profile().fileStorage }

// RequiresDefendDispute reports whether disputes on c must be actively defended.
func (c Connector) RequiresDefendDispute() bool { return c.profile().defendDispute }

// IsSeparateAuthenticationSupported reports whether c runs 3DS as its own
// step before authorization.
func (c Connector) IsSeparateAuthenticationSupported() bool { return c.profile().separateAuth }

// ParseConnector resolves a wire name.
func ParseConnector(s string) (Connector, error) {
	if c, ok := byWire[strings.TrimSpace(s)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown connector %q", s)
}

func (c Connector) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal undeclared connector %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Connector) UnmarshalText(b []byte) error {
	parsed, err := ParseConnector(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
