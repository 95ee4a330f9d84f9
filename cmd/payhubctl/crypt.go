package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"payhub/internal/config"
	"payhub/internal/domain/credential"
)

func encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [plaintext]",
		Short: "Encrypt a credential value with AES_256_KEY_BASE64",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.LoadKey()
			if err != nil {
				return err
			}
			enc, err := credential.Encrypt(args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), enc)
			return nil
		},
	}
}

func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ciphertext]",
		Short: "Decrypt an enc: credential value with AES_256_KEY_BASE64",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := config.LoadKey()
			if err != nil {
				return err
			}
			plain, err := credential.Decrypt(args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
}
