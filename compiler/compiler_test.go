package compiler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler"
	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

const blog = `
files:
  - name: blog.yaml
    package: blog
    messages:
      - name: User
        extensions:
          storage.entity: {}
        fields:
          - name: id
            type: int64
            extensions:
              storage.column: {primary_key: true}
          - name: email
            type: string
            extensions:
              storage.column: {unique: true}
      - name: Post
        extensions:
          storage.entity: {}
        fields:
          - name: id
            type: int64
            extensions:
              storage.column: {primary_key: true}
          - name: user_id
            type: int64
          - name: title
            type: string
          - name: author
            type: message
            type_name: User
            extensions:
              storage.relation: {type: BELONGS_TO}
      - name: GetPostRequest
        fields:
          - name: id
            type: int64
      - name: CreatePostRequest
        extensions:
          validate.message: {generate_conversion: true}
        fields:
          - name: title
            type: string
            extensions:
              validate.field:
                rules: {required: true, length: {max: 120}}
          - name: user_id
            type: int64
    services:
      - name: PostService
        extensions:
          storage.service: {}
          grpc.service: {}
          graphql.service: {}
        methods:
          - name: GetPost
            input_type: GetPostRequest
            output_type: Post
          - name: CreatePost
            input_type: CreatePostRequest
            output_type: Post
`

func decode(t *testing.T, src string) *load.FileSet {
	t.Helper()
	fs, err := load.Decode(strings.NewReader(src), load.FormatYAML)
	require.NoError(t, err)
	return fs
}

func TestCompile(t *testing.T) {
	res, err := compiler.Compile(decode(t, blog))
	require.NoError(t, err)

	require.Len(t, res.Graph.Nodes(), 2)
	require.Len(t, res.Validation, 1)
	assert.Equal(t, "CreatePost", res.Validation[0].DomainType)

	sp := res.Storage.Service("blog.PostService")
	require.NotNil(t, sp)
	assert.Len(t, sp.Operations, 2)

	rp := res.RPC.Service("blog.PostService")
	require.NotNil(t, rp)
	create := rp.Method("CreatePost")
	require.NotNil(t, create)
	assert.NotNil(t, create.Conversion, "the request has a validation plan")

	assert.NotNil(t, res.GraphQL.Operation(gen.QueryOperation, "getPost"))
	assert.NotNil(t, res.GraphQL.Operation(gen.MutationOperation, "createPost"))

	sdl, err := res.SDL()
	require.NoError(t, err)
	assert.Contains(t, sdl, "type Post implements Node")
}

func TestCompileDiagnostics(t *testing.T) {
	fs := decode(t, blog)
	post := fs.Files[0].Messages[1]
	post.Fields = append(post.Fields, &load.Field{
		Name:     "ghost",
		Type:     "message",
		TypeName: "Ghost",
		Extensions: load.Extensions{
			options.Relation: map[string]any{"type": "HAS_ONE"},
		},
	})
	fs.Files[0].Messages[3].Fields[0].Extensions[options.ValidateField] = map[string]any{
		"rules": map[string]any{"email": true, "range": map[string]any{"min": 1}},
	}

	res, err := compiler.Compile(fs)
	assert.Nil(t, res, "no plan is returned with diagnostics")
	var ds gen.Diagnostics
	require.ErrorAs(t, err, &ds)
	assert.ErrorIs(t, err, gen.ErrUnknownRelationTarget)
	assert.ErrorIs(t, err, gen.ErrMalformedOption, "diagnostics of later stages are reported too")
	assert.Len(t, ds.Of(gen.UnknownRelationTarget), 1)
	assert.Len(t, ds.Of(gen.MalformedOption), 1)
	for i := 1; i < len(ds); i++ {
		assert.LessOrEqual(t, ds[i-1].File+ds[i-1].Element, ds[i].File+ds[i].Element)
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := compiler.Compile(decode(t, blog), gen.WithMaxPageSize(0))
	var ce *gen.ConfigError
	assert.ErrorAs(t, err, &ce)

	_, err = compiler.Compile(&load.FileSet{Files: []*load.File{{Name: "a.json"}}})
	require.Error(t, err)
	assert.False(t, errors.As(err, new(gen.Diagnostics)), "load errors are not diagnostics")
}

func TestWriteGo(t *testing.T) {
	res, err := compiler.Compile(decode(t, blog), gen.WithPackage("blogstore"))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, res.WriteGo(context.Background(), dir, 2))
	src, err := os.ReadFile(filepath.Join(dir, "post_service_storage.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package blogstore")
	assert.Contains(t, string(src), "type PostServiceStorage interface")
	_, err = os.Stat(filepath.Join(dir, "domain.go"))
	assert.NoError(t, err)
}
