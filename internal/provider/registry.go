package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"payhub/internal/domain/enums"
)

// Registry holds one adapter per connector. Test doubles are only served
// when allow-listed.
type Registry struct {
	adapters    map[enums.Connector]*Adapter
	testDoubles map[enums.Connector]bool
	mu          sync.RWMutex
}

// NewRegistry creates a registry that serves the named test doubles.
func NewRegistry(allowedTestDoubles []enums.Connector) *Registry {
	r := &Registry{
		adapters:    make(map[enums.Connector]*Adapter),
		testDoubles: make(map[enums.Connector]bool),
	}
	for _, c := range allowedTestDoubles {
		if c.IsTestDouble() {
			r.testDoubles[c] = true
		}
	}
	return r
}

// Register adds an adapter, replacing any previous one for its connector.
func (r *Registry) Register(a *Adapter) error {
	if err := a.Check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Connector] = a
	log.Debug().
		Str("connector", a.Connector.String()).
		Str("name", a.Connector.Name()).
		Strs("flows", a.Flows).
		Bool("webhooks", a.HasWebhooks).
		Msg("registered connector")
	return nil
}

// Get returns the adapter for c.
func (r *Registry) Get(c enums.Connector) (*Adapter, error) {
	if !c.Valid() {
		return nil, &ProviderError{
			Code:    ErrInvalidConnector,
			Message: fmt.Sprintf("undeclared connector %d", uint8(c)),
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c.IsTestDouble() && !r.testDoubles[c] {
		return nil, &ProviderError{
			Code:    ErrConnectorDisabled,
			Message: fmt.Sprintf("test connector %s is not enabled", c),
		}
	}
	a, ok := r.adapters[c]
	if !ok {
		return nil, &ProviderError{
			Code:    ErrConnectorNotFound,
			Message: fmt.Sprintf("connector %s not registered", c),
		}
	}
	return a, nil
}

// GetByName resolves a wire name and returns its adapter.
func (r *Registry) GetByName(name string) (*Adapter, error) {
	c, err := enums.ParseConnector(name)
	if err != nil {
		return nil, &ProviderError{
			Code:        ErrInvalidConnector,
			Message:     fmt.Sprintf("unknown connector %q", name),
			ProviderErr: err.Error(),
		}
	}
	return r.Get(c)
}

// Enabled reports whether c can be served.
func (r *Registry) Enabled(c enums.Connector) bool {
	_, err := r.Get(c)
	return err == nil
}

// List returns every registered connector in declaration order.
func (r *Registry) List() []enums.Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]enums.Connector, 0, len(r.adapters))
	for c := range r.adapters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Capabilities describes every registered connector.
func (r *Registry) Capabilities() []Capabilities {
	var out []Capabilities
	for _, c := range r.List() {
		r.mu.RLock()
		a := r.adapters[c]
		r.mu.RUnlock()
		caps := a.Capabilities()
		caps.Enabled = r.Enabled(c)
		out = append(out, caps)
	}
	return out
}
