// Package catalog wires an adapter for every declared connector.
package catalog

import (
	"payhub/internal/domain/enums"
	"payhub/internal/provider"
	"payhub/internal/provider/dummy"
	"payhub/internal/provider/esnekpos"
)

// Adapter returns the adapter for c. Connectors without an integration get
// the generic fallback.
func Adapter(c enums.Connector) *provider.Adapter {
	switch {
	case c == enums.Esnekpos:
		return esnekpos.New()
	case c.IsTestDouble():
		return dummy.New(c)
	}
	return provider.Generic(c)
}

// Register adds an adapter for every connector to r.
func Register(r *provider.Registry) error {
	for _, c := range enums.Connectors() {
		if err := r.Register(Adapter(c)); err != nil {
			return err
		}
	}
	return nil
}
