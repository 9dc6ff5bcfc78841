package storage_test

import (
	"testing"

	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

func column(name, typ string, opts map[string]any) *load.Field {
	f := &load.Field{Name: name, Type: typ}
	if opts != nil {
		f.Extensions = load.Extensions{options.Column: opts}
	}
	return f
}

func graph(t *testing.T) *gen.Graph {
	t.Helper()
	entity := load.Extensions{options.Entity: map[string]any{}}
	fs := &load.FileSet{Files: []*load.File{{
		Name:    "blog.json",
		Package: "blog",
		Messages: []*load.Message{
			{Name: "User", Extensions: entity, Fields: []*load.Field{
				column("id", "int64", map[string]any{"primary_key": true}),
				column("email", "string", map[string]any{"unique": true, "column_type": "varchar(255)"}),
				{Name: "nickname", Type: "string", Label: load.LabelOptional},
			}},
			{Name: "Post", Extensions: entity, Fields: []*load.Field{
				column("id", "int64", map[string]any{"primary_key": true}),
				column("user_id", "int64", nil),
				column("state", "string", map[string]any{"default_value": "draft"}),
				{Name: "labels", Type: "string", Label: load.LabelRepeated},
				{Name: "author", Type: "message", TypeName: "User", Extensions: load.Extensions{
					options.Relation: map[string]any{"type": "BELONGS_TO"},
				}},
			}},
			{Name: "Audit", Extensions: load.Extensions{options.Entity: map[string]any{"skip": true}}, Fields: []*load.Field{
				column("id", "string", map[string]any{"primary_key": true}),
			}},
			{Name: "GetPostRequest", Fields: []*load.Field{{Name: "id", Type: "int64"}}},
			{Name: "Empty"},
		},
		Services: []*load.Service{{
			Name:       "PostService",
			Extensions: load.Extensions{options.StorageService: map[string]any{}},
			Methods: []*load.Method{
				{Name: "GetPost", InputType: "GetPostRequest", OutputType: "Post"},
				{Name: "ListPosts", InputType: "Empty", OutputType: "Empty"},
				{Name: "CreatePost", InputType: "Post", OutputType: "Post"},
				{Name: "UpdatePost", InputType: "Post", OutputType: "Post"},
				{Name: "DeletePost", InputType: "GetPostRequest", OutputType: "Empty"},
				{Name: "Publish", InputType: "GetPostRequest", OutputType: "Post"},
				{Name: "Archive", InputType: "GetPostRequest", OutputType: "Empty", Extensions: load.Extensions{
					options.StorageMethod: map[string]any{"skip": true},
				}},
				{Name: "GetAudit", InputType: "Empty", OutputType: "Empty"},
			},
		}},
	}}}
	require.NoError(t, fs.Check())
	g, ds := gen.Build(fs, nil)
	require.Empty(t, ds)
	require.Empty(t, gen.Resolve(g))
	return g
}

func TestEntities(t *testing.T) {
	p := storage.New(graph(t))

	require.Len(t, p.Entities, 2, "skipped entities have no table")
	post := p.Entity("blog.Post")
	require.NotNil(t, post)
	assert.Equal(t, "post", post.Table)
	assert.Equal(t, "id", post.PrimaryKey.Name)
	require.Len(t, post.ForeignKeys, 1)
	fk := post.ForeignKeys[0]
	assert.Equal(t, "post_user_id_fkey", fk.Symbol)
	assert.Equal(t, "user_id", fk.Column.StorageName)
	assert.Equal(t, "blog.User", fk.RefEntity.Ident())
	assert.Equal(t, "id", fk.RefColumn.StorageName)
	require.Len(t, post.Relations, 1)
	assert.Equal(t, "author", post.Relations[0].Name)

	user := p.Entity("blog.User")
	assert.Empty(t, user.ForeignKeys)
	require.Len(t, user.Relations, 1)
	assert.Equal(t, "posts", user.Relations[0].Name)
	assert.Nil(t, p.Entity("blog.Audit"))
}

func TestServices(t *testing.T) {
	p := storage.New(graph(t))

	require.Len(t, p.Services, 1)
	s := p.Service("blog.PostService")
	require.NotNil(t, s)
	assert.Equal(t, "PostServiceStorage", s.Interface)
	assert.Equal(t, "DefaultPostServiceStorage", s.Default)
	assert.Equal(t, "PostServiceStorageOverrides", s.Overrides)
	require.Len(t, s.Operations, 7)
	assert.Nil(t, s.Operation("Archive"))

	tests := []struct {
		op   string
		kind storage.StrategyKind
	}{
		{"GetPost", storage.FindByKey},
		{"ListPosts", storage.FilterPaginate},
		{"CreatePost", storage.Insert},
		{"UpdatePost", storage.UpdateByKey},
		{"DeletePost", storage.DeleteByKey},
		{"Publish", storage.Unimplemented},
		{"GetAudit", storage.Unimplemented},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			op := s.Operation(tt.op)
			require.NotNil(t, op)
			assert.Equal(t, tt.kind, op.Strategy.Kind, op.Strategy.Kind.String())
		})
	}

	list := s.Operation("ListPosts").Strategy
	require.Len(t, list.Order, 1)
	assert.Equal(t, "id", list.Order[0].Column.Name)
	assert.False(t, list.Order[0].Desc)
	assert.Equal(t, 20, list.PageSize)
	assert.Equal(t, 100, list.MaxPageSize)
	require.Len(t, list.Relations, 1)

	create := s.Operation("CreatePost").Strategy
	assert.True(t, create.ReturnsKey)
	assert.Equal(t, "id", create.Key.Name)
}

func TestRealm(t *testing.T) {
	realm, err := storage.New(graph(t)).Realm()
	require.NoError(t, err)
	require.Len(t, realm.Schemas, 1)

	s := realm.Schemas[0]
	assert.Equal(t, "blog", s.Name)
	require.Len(t, s.Tables, 2)

	users, ok := s.Table("user")
	require.True(t, ok)
	require.NotNil(t, users.PrimaryKey)
	assert.Equal(t, "id", users.PrimaryKey.Parts[0].C.Name)
	email, ok := users.Column("email")
	require.True(t, ok)
	assert.Equal(t, &schema.StringType{T: "varchar(255)"}, email.Type.Type)
	require.Len(t, users.Indexes, 1)
	assert.True(t, users.Indexes[0].Unique)
	nickname, ok := users.Column("nickname")
	require.True(t, ok)
	assert.True(t, nickname.Type.Null)

	posts, ok := s.Table("post")
	require.True(t, ok)
	labels, ok := posts.Column("labels")
	require.True(t, ok)
	assert.IsType(t, &schema.JSONType{}, labels.Type.Type)
	state, ok := posts.Column("state")
	require.True(t, ok)
	assert.Equal(t, &schema.Literal{V: "draft"}, state.Default)

	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Same(t, users, fk.RefTable)
	assert.Equal(t, "user_id", fk.Columns[0].Name)
	assert.Equal(t, schema.Cascade, fk.OnDelete)
}
