package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a single expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			if expr == "" {
				return fmt.Errorf("eval requires -e/--expr")
			}
			logger, logFile := setupLogging()
			defer func() { _ = logFile.Close() }()

			loader, err := newLoader(logger)
			if err != nil {
				return err
			}
			result, err := loader.Host().Evaluate(context.Background(), expr)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "expression to evaluate")
	return cmd
}
