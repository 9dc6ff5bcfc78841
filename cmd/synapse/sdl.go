package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/synapse/contrib/graphql"
)

func newSDLCmd(a *app) *cobra.Command {
	var stdout bool
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Compile the inputs and write the GraphQL schema",
		Long:  `Compiles the inputs and writes the GraphQL SDL of the query plan. When graphql.gqlgen is configured, the Cursor, Time and JSON scalars are bound in that gqlgen config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), func(context.Context) error {
				res, err := a.compile()
				if err != nil {
					return err
				}
				sdl, err := res.SDL()
				if err != nil {
					return err
				}
				if stdout {
					_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
					return err
				}
				return a.writeSDL(sdl)
			})
		},
	}
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the schema instead of writing it")
	return cmd
}

func (a *app) writeSDL(sdl string) error {
	gc := a.cfg.GraphQL
	if err := os.MkdirAll(filepath.Dir(gc.Schema), 0o755); err != nil {
		return fmt.Errorf("creating schema directory: %w", err)
	}
	if err := os.WriteFile(gc.Schema, []byte(sdl), 0o644); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	a.log.Info("schema written", "path", gc.Schema, "bytes", len(sdl))
	if gc.GQLGen == "" {
		return nil
	}
	cfg, err := graphql.LoadGQLGenConfig(gc.GQLGen)
	if err != nil {
		return err
	}
	schema, err := filepath.Rel(filepath.Dir(gc.GQLGen), gc.Schema)
	if err != nil {
		schema = gc.Schema
	}
	cfg.Bind(filepath.ToSlash(schema), gc.ModelPackage)
	if err := cfg.Save(gc.GQLGen); err != nil {
		return err
	}
	a.log.Info("gqlgen config updated", "path", gc.GQLGen)
	return nil
}
