// Package compiler runs the whole compilation of a schema set: the graph is
// built and resolved, and the validation, storage, RPC and query plans are
// derived from it.
//
// Compilation is all-or-nothing. Either every plan is returned, or only the
// diagnostics of every stage that could run:
//
//	res, err := compiler.Compile(fs, gen.WithLogger(logger))
//	var ds gen.Diagnostics
//	if errors.As(err, &ds) {
//	    for _, d := range ds {
//	        fmt.Println(d)
//	    }
//	}
package compiler

import (
	"context"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/golang"
	"github.com/syssam/synapse/compiler/gen/rpc"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/validate"
	"github.com/syssam/synapse/contrib/graphql"
)

// Result holds every plan of one successful compilation. It is read-only.
type Result struct {
	Graph      *gen.Graph
	Validation []*validate.Plan
	Storage    *storage.Plan
	RPC        *rpc.Plan
	GraphQL    *graphql.Plan
}

// Compile compiles a schema set. A structural load error or an invalid
// option is returned as is; compile failures are returned as gen.Diagnostics
// sorted by file and element.
func Compile(fs *load.FileSet, opts ...gen.Option) (*Result, error) {
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if err := fs.Check(); err != nil {
		return nil, err
	}
	log := cfg.Logger

	g, ds := gen.Build(fs, cfg)
	ds = append(ds, gen.Resolve(g)...)
	plans, vds := validate.Compile(g)
	ds = append(ds, vds...)
	if len(ds) > 0 {
		return nil, failed(cfg, ds)
	}

	res := &Result{Graph: g, Validation: plans, Storage: storage.New(g)}
	res.RPC = rpc.New(g, res.Storage, plans)
	res.GraphQL, ds = graphql.New(g, res.Storage)
	if len(ds) > 0 {
		return nil, failed(cfg, ds)
	}
	log.Info("schema compiled",
		"files", len(g.Files),
		"entities", len(g.Nodes()),
		"relations", g.Relations.Len(),
		"services", len(g.Services),
		"domains", len(plans),
		"operations", len(res.GraphQL.Operations),
	)
	return res, nil
}

func failed(cfg *gen.Config, ds gen.Diagnostics) gen.Diagnostics {
	ds.Sort()
	cfg.Logger.Info("schema rejected", "diagnostics", len(ds))
	return ds
}

// Files renders the Go source of the result.
func (r *Result) Files() []*golang.File {
	return golang.New(r.Graph, r.Storage, r.Validation).Files()
}

// WriteGo renders the Go source into dir.
func (r *Result) WriteGo(ctx context.Context, dir string, workers int) error {
	w := golang.NewWriter(dir, r.Graph.Config.Logger).WithWorkers(workers)
	if err := w.Write(ctx, r.Files()); err != nil {
		return gen.NewGenerationError("go", dir, "", err)
	}
	m := w.Metrics()
	r.Graph.Config.Logger.Info("go source written", "dir", dir, "files", m.Files, "bytes", m.Bytes)
	return nil
}

// SDL renders the GraphQL schema of the result.
func (r *Result) SDL() (string, error) {
	sdl, err := r.GraphQL.SDL()
	if err != nil {
		return "", gen.NewGenerationError("sdl", "", "", err)
	}
	return sdl, nil
}
