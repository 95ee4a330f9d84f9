package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"payhub/internal/logging"
)

var Version = "dev"

func main() {
	logging.Setup("sandbox", "warn", os.Stderr)

	rootCmd := &cobra.Command{
		Use:     "payhubctl",
		Short:   "Inspect payhub connectors and manage credential ciphertext",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format (json, yaml)")

	rootCmd.AddCommand(connectorsCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(encryptCmd())
	rootCmd.AddCommand(decryptCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return write(cmd.OutOrStdout(), format, v)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
