package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script-file> [argv...]",
		Short: "Load, verify, and run a module bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, logFile := setupLogging()
			defer func() { _ = logFile.Close() }()

			loader, err := newLoader(logger)
			if err != nil {
				return err
			}

			ctx := context.Background()
			name := args[0]
			bundle, err := loader.Load(ctx, name)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}

			entry, err := loader.ResolveRequired("main.js")
			if err != nil {
				return fmt.Errorf("resolve entry point for %s: %w", bundle.Manifest.Name, err)
			}
			return loader.Host().RunMain(ctx, entry, args[1:])
		},
	}
}
