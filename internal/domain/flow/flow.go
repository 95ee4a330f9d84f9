// Package flow names the payment lifecycle operations a connector can take
// part in. The markers carry no state; they only select which integration a
// request envelope is bound to.
package flow

// Flow is implemented by every marker type.
type Flow interface {
	Name() string
}

type (
	Authorize          struct{}
	PSync              struct{}
	Capture            struct{}
	Void               struct{}
	SetupMandate       struct{}
	Execute            struct{}
	RSync              struct{}
	AccessTokenAuth    struct{}
	Session            struct{}
	PaymentMethodToken struct{}
	IncomingWebhook    struct{}
)

func (Authorize) Name() string          { return "Authorize" }
func (PSync) Name() string              { return "PSync" }
func (Capture) Name() string            { return "Capture" }
func (Void) Name() string               { return "Void" }
func (SetupMandate) Name() string       { return "SetupMandate" }
func (Execute) Name() string            { return "Execute" }
func (RSync) Name() string              { return "RSync" }
func (AccessTokenAuth) Name() string    { return "AccessTokenAuth" }
func (Session) Name() string            { return "Session" }
func (PaymentMethodToken) Name() string { return "PaymentMethodToken" }
func (IncomingWebhook) Name() string    { return "IncomingWebhook" }

// NameOf returns the name of the marker F without needing a value.
func NameOf[F Flow]() string {
	var f F
	return f.Name()
}

// All lists every marker in lifecycle order.
func All() []Flow {
	return []Flow{
		Authorize{}, PSync{}, Capture{}, Void{}, SetupMandate{},
		Execute{}, RSync{}, AccessTokenAuth{}, Session{},
		PaymentMethodToken{}, IncomingWebhook{},
	}
}
