package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

// Schema construction helpers shared by the package tests.

func fileSet(files ...*load.File) *load.FileSet { return &load.FileSet{Files: files} }

func schemaFile(name, pkg string, msgs ...*load.Message) *load.File {
	return &load.File{Name: name, Package: pkg, Messages: msgs}
}

func message(name string, ext load.Extensions, fields ...*load.Field) *load.Message {
	return &load.Message{Name: name, Extensions: ext, Fields: fields}
}

// entity returns the extensions of an entity message with optional
// entity-level relation declarations.
func entity(rels ...map[string]any) load.Extensions {
	e := map[string]any{}
	if len(rels) > 0 {
		list := make([]any, len(rels))
		for i, r := range rels {
			list[i] = r
		}
		e["relations"] = list
	}
	return load.Extensions{options.Entity: e}
}

func scalar(name, typ string) *load.Field {
	return &load.Field{Name: name, Type: typ}
}

func pk(name, typ string) *load.Field {
	return with(scalar(name, typ), options.Column, map[string]any{"primary_key": true})
}

func ref(name, typeName string, rel map[string]any) *load.Field {
	f := &load.Field{Name: name, Type: "message", TypeName: typeName}
	if rel != nil {
		with(f, options.Relation, rel)
	}
	return f
}

func repeated(f *load.Field) *load.Field {
	f.Label = load.LabelRepeated
	return f
}

func optional(f *load.Field) *load.Field {
	f.Label = load.LabelOptional
	return f
}

func with(f *load.Field, ns string, v map[string]any) *load.Field {
	if f.Extensions == nil {
		f.Extensions = load.Extensions{}
	}
	f.Extensions[ns] = v
	return f
}

// blogSet is a two-package schema: posts in acme.blog refer to users in
// acme.iam by a relative name.
func blogSet() *load.FileSet {
	return fileSet(
		schemaFile("acme/iam/user.json", "acme.iam",
			message("User", entity(),
				pk("id", "int64"),
				with(scalar("email", "string"), options.Column, map[string]any{"unique": true}),
				scalar("name", "string"),
			),
		),
		schemaFile("acme/blog/post.json", "acme.blog",
			message("Post", entity(),
				pk("id", "int64"),
				scalar("title", "string"),
				scalar("author_id", "int64"),
				ref("author", "iam.User", map[string]any{"type": "BELONGS_TO", "foreign_key": "author_id"}),
			),
		),
	)
}

// compile builds and resolves fs and returns the joined diagnostics.
func compile(t *testing.T, fs *load.FileSet) (*Graph, Diagnostics) {
	t.Helper()
	require.NoError(t, fs.Check())
	g, ds := Build(fs, nil)
	require.NotNil(t, g)
	ds = append(ds, Resolve(g)...)
	ds.Sort()
	return g, ds
}

// mustCompile compiles fs and fails on any diagnostic.
func mustCompile(t *testing.T, fs *load.FileSet) *Graph {
	t.Helper()
	g, ds := compile(t, fs)
	require.NoError(t, ds.Err())
	return g
}
