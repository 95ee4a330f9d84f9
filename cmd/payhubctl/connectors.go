package main

import (
	"os"

	"github.com/spf13/cobra"

	"payhub/internal/config"
	"payhub/internal/provider"
	"payhub/internal/provider/catalog"
)

func connectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connectors",
		Short: "List connector capability profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			allow, _ := cmd.Flags().GetStringSlice("allow-test")
			enabledOnly, _ := cmd.Flags().GetBool("enabled")

			reg, err := registry(allow)
			if err != nil {
				return err
			}
			caps := reg.Capabilities()
			if enabledOnly {
				kept := caps[:0]
				for _, c := range caps {
					if c.Enabled {
						kept = append(kept, c)
					}
				}
				caps = kept
			}
			return render(cmd, caps)
		},
	}
	cmd.Flags().StringSlice("allow-test", config.SplitList(os.Getenv("TEST_CONNECTORS")), "Test-double connectors to enable")
	cmd.Flags().Bool("enabled", false, "Only list enabled connectors")
	return cmd
}

func registry(allowTest []string) (*provider.Registry, error) {
	reg := provider.NewProviderRegistry(config.Cfg{TestConnectors: allowTest})
	if err := catalog.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
