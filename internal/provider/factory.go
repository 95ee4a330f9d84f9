package provider

import (
	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/domain/enums"
)

// NewProviderRegistry creates a registry with the test doubles allowed by
// cfg. Adapters are registered by the catalog.
func NewProviderRegistry(cfg config.Cfg) *Registry {
	var allowed []enums.Connector
	for _, name := range cfg.TestConnectors {
		c, err := enums.ParseConnector(name)
		if err != nil || !c.IsTestDouble() {
			log.Warn().Str("connector", name).Msg("ignoring TEST_CONNECTORS entry")
			continue
		}
		allowed = append(allowed, c)
	}
	return NewRegistry(allowed)
}
