package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/module"
)

func newSignModuleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signmodule <module-path> <key-path>",
		Short: "Sign a bundle in place with the given private key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundlePath, keyPath := args[0], args[1]

			raw, err := os.ReadFile(bundlePath)
			if err != nil {
				return fmt.Errorf("read bundle %s: %w", bundlePath, err)
			}
			keyData, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("read key %s: %w", keyPath, err)
			}
			signer, err := rsakey.Parse(keyData)
			if err != nil {
				return fmt.Errorf("parse key %s: %w", keyPath, err)
			}

			signed, err := module.Sign(raw, signer)
			if err != nil {
				return fmt.Errorf("sign %s: %w", bundlePath, err)
			}
			if err := os.WriteFile(bundlePath, signed, 0o644); err != nil {
				return fmt.Errorf("write signed bundle %s: %w", bundlePath, err)
			}
			fmt.Printf("signed %s\n", bundlePath)
			return nil
		},
	}
}
