package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newCompileCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the inputs and write the Go source of the plans",
		Long:  `Compiles the inputs and renders the models, storage interfaces with their default implementations and override decorators, and the validated domain types into the output directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "" {
				a.cfg.Output = output
			}
			return a.run(cmd.Context(), func(ctx context.Context) error {
				res, err := a.compile()
				if err != nil {
					return err
				}
				return res.WriteGo(ctx, a.cfg.Output, a.cfg.Workers)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (overrides config)")
	return cmd
}
