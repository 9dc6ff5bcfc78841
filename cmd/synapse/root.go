package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/syssam/synapse/compiler"
	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/internal/config"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfgPath string
	inputs  []string
	watch   bool

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "synapse",
		Short: "Compile annotated schema sets into storage, RPC and GraphQL plans",
		Long: `synapse reads already-parsed schema sets (json, yaml or msgpack), builds
the entity and relation graph, and derives the validation, storage, RPC and
GraphQL plans from it. Compilation is all-or-nothing: on failure every
diagnostic is printed and nothing is written.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if len(a.inputs) > 0 {
				cfg.Inputs = a.inputs
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			a.cfg = cfg
			a.log = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to YAML config file (default "+config.DefaultPath+")")
	root.PersistentFlags().StringSliceVarP(&a.inputs, "input", "i", nil, "schema set files, replacing the inputs of the config")
	root.PersistentFlags().BoolVarP(&a.watch, "watch", "w", false, "run again whenever an input changes")
	root.AddCommand(newCompileCmd(a), newPlanCmd(a), newSDLCmd(a))
	return root
}

// compile loads the inputs and compiles them. Diagnostics are logged one by
// one before the aggregate is returned.
func (a *app) compile() (*compiler.Result, error) {
	fs, err := load.ReadFiles(a.cfg.Inputs...)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Compile(fs, a.cfg.Options(a.log)...)
	if ds, ok := err.(gen.Diagnostics); ok {
		for _, d := range ds {
			a.log.Error("diagnostic", "kind", d.Kind, "file", d.File, "element", d.Element, "message", d.Message)
		}
		return nil, fmt.Errorf("compilation failed with %d diagnostics", len(ds))
	}
	return res, err
}

// run executes fn once, or on every input change in watch mode.
func (a *app) run(ctx context.Context, fn func(context.Context) error) error {
	if !a.watch {
		return fn(ctx)
	}
	return watch(ctx, a.log, a.cfg.Inputs, fn)
}
