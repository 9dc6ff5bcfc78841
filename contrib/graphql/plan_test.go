package graphql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
	"github.com/syssam/synapse/contrib/graphql"
)

func entity(ext map[string]any) load.Extensions {
	if ext == nil {
		ext = map[string]any{}
	}
	return load.Extensions{options.Entity: ext}
}

func pk() *load.Field {
	return &load.Field{Name: "id", Type: "int64", Extensions: load.Extensions{options.Column: map[string]any{"primary_key": true}}}
}

func blog() *load.FileSet {
	return &load.FileSet{Files: []*load.File{{
		Name:    "blog.json",
		Package: "blog",
		Enums: []*load.Enum{{Name: "Role", Values: []*load.EnumValue{
			{Name: "ADMIN", Number: 0},
			{Name: "MEMBER", Number: 1},
			{Name: "LEGACY", Number: 2, Extensions: load.Extensions{options.StorageValue: map[string]any{"skip": true}}},
		}}},
		Messages: []*load.Message{
			{Name: "User", Extensions: entity(nil), Fields: []*load.Field{
				pk(),
				{Name: "email", Type: "string", Extensions: load.Extensions{options.GraphQLField: map[string]any{"operators": []any{"eq", "in"}}}},
				{Name: "name", Type: "string"},
				{Name: "created_at", Type: "message", TypeName: ".google.protobuf.Timestamp"},
				{Name: "role", Type: "enum", TypeName: "Role"},
				{Name: "nickname", Type: "string", Label: load.LabelOptional},
				{Name: "password", Type: "string", Extensions: load.Extensions{options.GraphQLField: map[string]any{"skip": true}}},
			}},
			{Name: "Post", Extensions: entity(map[string]any{"relations": []any{
				map[string]any{"name": "tags", "type": "MANY_TO_MANY", "related": "Tag", "through": "PostTag"},
			}}), Fields: []*load.Field{
				pk(),
				{Name: "title", Type: "string"},
				{Name: "user_id", Type: "int64"},
				{Name: "editor_id", Type: "int64"},
				{Name: "published", Type: "bool"},
				{Name: "author", Type: "message", TypeName: "User", Extensions: load.Extensions{
					options.Relation: map[string]any{"type": "BELONGS_TO"},
				}},
				{Name: "editor", Type: "message", TypeName: "User", Extensions: load.Extensions{
					options.Relation: map[string]any{"type": "BELONGS_TO", "foreign_key": "editor_id"},
				}},
			}},
			{Name: "Tag", Extensions: entity(nil), Fields: []*load.Field{pk(), {Name: "name", Type: "string"}}},
			{Name: "PostTag", Extensions: load.Extensions{
				options.Entity:      map[string]any{},
				options.GraphQLType: map[string]any{"node": false},
			}, Fields: []*load.Field{pk(), {Name: "post_id", Type: "int64"}, {Name: "tag_id", Type: "int64"}}},
			{Name: "GetPostRequest", Fields: []*load.Field{{Name: "id", Type: "int64"}}},
			{Name: "ListPostsRequest"},
			{Name: "CreatePostRequest", Fields: []*load.Field{
				{Name: "title", Type: "string", Extensions: load.Extensions{options.ValidateField: map[string]any{"rules": map[string]any{"required": true}}}},
				{Name: "user_id", Type: "int64"},
			}},
			{Name: "PublishResponse", Fields: []*load.Field{
				{Name: "post", Type: "message", TypeName: "Post"},
				{Name: "published_at", Type: "message", TypeName: "google.protobuf.Timestamp"},
			}},
			{Name: "Empty"},
		},
		Services: []*load.Service{{
			Name: "BlogService",
			Extensions: load.Extensions{
				options.StorageService: map[string]any{},
				options.GraphQLService: map[string]any{},
			},
			Methods: []*load.Method{
				{Name: "GetPost", InputType: "GetPostRequest", OutputType: "Post"},
				{Name: "ListPosts", InputType: "ListPostsRequest", OutputType: "Empty"},
				{Name: "CreatePost", InputType: "CreatePostRequest", OutputType: "Post"},
				{Name: "DeletePost", InputType: "GetPostRequest", OutputType: "Empty"},
				{Name: "Publish", InputType: "GetPostRequest", OutputType: "PublishResponse", Extensions: load.Extensions{
					options.Mutation: map[string]any{},
				}},
				{Name: "Reindex", InputType: "Empty", OutputType: "Empty"},
			},
		}},
	}}}
}

func plan(t *testing.T, fs *load.FileSet) (*graphql.Plan, gen.Diagnostics) {
	t.Helper()
	require.NoError(t, fs.Check())
	g, ds := gen.Build(fs, nil)
	require.Empty(t, ds)
	require.Empty(t, gen.Resolve(g))
	return graphql.New(g, storage.New(g))
}

func TestObjects(t *testing.T) {
	p, ds := plan(t, blog())
	require.Empty(t, ds)

	var names []string
	for _, o := range p.Objects {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"User", "Post", "Tag"}, names, "join entities that are not nodes are not exposed")

	user := p.Object("blog.User")
	require.NotNil(t, user)
	assert.True(t, user.Node)
	assert.Nil(t, user.Field("password"))
	assert.Equal(t, "ID!", user.Field("id").Type.String())
	assert.Equal(t, "Time!", user.Field("createdAt").Type.String())
	assert.Equal(t, "Role!", user.Field("role").Type.String())
	assert.Equal(t, "String", user.Field("nickname").Type.String())
	assert.Equal(t, "UserConnection", user.Connection.Name)
	assert.Equal(t, "UserEdge", user.Connection.Edge)

	require.Len(t, p.Enums, 1)
	assert.Equal(t, []string{"ADMIN", "MEMBER"}, p.Enums[0].Values)

	require.NotNil(t, user.Order)
	assert.Equal(t, "UserOrderField", user.Order.Field)
	assert.Equal(t, []string{"ID", "EMAIL", "NAME", "CREATED_AT", "NICKNAME"}, user.Order.Values)
}

func TestFilters(t *testing.T) {
	p, ds := plan(t, blog())
	require.Empty(t, ds)

	user := p.Object("blog.User").Filter
	require.NotNil(t, user)
	assert.True(t, user.Combinator())
	assert.Equal(t, "UserFilter", user.Name)

	name := user.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "StringFilter", name.Filter.Name)
	assert.Same(t, name.Filter, user.Field("nickname").Filter, "scalar filters are shared")
	assert.Same(t, name.Filter, p.Object("blog.Post").Filter.Field("title").Filter)
	assert.Equal(t, []string{"eq", "neq", "gt", "gte", "lt", "lte", "in", "contains"}, name.Filter.Ops.Names())

	email := user.Field("email")
	require.NotNil(t, email)
	assert.Equal(t, "UserEmailFilter", email.Filter.Name)
	assert.Equal(t, []string{"eq", "in"}, email.Filter.Ops.Names())

	role := user.Field("role")
	require.NotNil(t, role)
	assert.Equal(t, "RoleFilter", role.Filter.Name)
	assert.False(t, role.Filter.Ops.Has(options.OpContains))
	assert.False(t, p.Filter("IntFilter").Ops.Has(options.OpContains))

	published := p.Object("blog.Post").Filter.Field("published")
	require.NotNil(t, published)
	assert.Equal(t, "BooleanFilter", published.Filter.Name)
	assert.Same(t, published.Filter, p.Filter("BooleanFilter"))
	assert.Equal(t, []string{"eq", "neq", "in"}, published.Filter.Ops.Names())
	assert.Equal(t, options.OpsEquality, published.Filter.Ops)
}

func TestAccessors(t *testing.T) {
	p, ds := plan(t, blog())
	require.Empty(t, ds)

	post := p.Object("blog.Post")
	author := post.Accessor("author")
	require.NotNil(t, author)
	assert.Equal(t, "User", author.Type.String())
	assert.Equal(t, "authorConnection", author.ConnectionName)
	assert.Same(t, p.Object("blog.User").Connection, author.Connection)
	assert.Equal(t, "user_id", author.Source.StorageName)
	assert.Equal(t, "UserByID", author.Loader.Name)
	assert.Same(t, author.Loader, post.Accessor("editor").Loader, "loaders are shared by target and key")

	tags := post.Accessor("tags")
	require.NotNil(t, tags)
	assert.Equal(t, "[Tag!]!", tags.Type.String())
	assert.Equal(t, "TagsByPostIDViaPostTag", tags.Loader.Name)
	assert.Equal(t, "post_id", tags.Loader.Key.StorageName)

	user := p.Object("blog.User")
	posts := user.Accessor("posts")
	require.NotNil(t, posts)
	assert.Equal(t, "PostsByUserID", posts.Loader.Name)
	assert.Equal(t, "id", posts.Source.StorageName)
	require.NotNil(t, user.Accessor("posts_editor"))
	assert.Equal(t, "postsEditor", user.Accessor("posts_editor").Name)

	var args []string
	for _, a := range posts.Args {
		args = append(args, a.Name+": "+a.Type.String())
	}
	assert.Equal(t, []string{"first: Int", "after: Cursor", "filter: PostFilter", "orderBy: PostOrder"}, args)

	var loaders []string
	for _, l := range p.Loaders {
		loaders = append(loaders, l.Name)
	}
	assert.ElementsMatch(t, []string{
		"UserByID",
		"TagsByPostIDViaPostTag",
		"PostsByUserID",
		"PostsByEditorID",
		"PostsByTagIDViaPostTag",
	}, loaders)
}

func TestOperations(t *testing.T) {
	p, ds := plan(t, blog())
	require.Empty(t, ds)

	tests := []struct {
		kind gen.OperationKind
		name string
		typ  string
		args []string
	}{
		{gen.QueryOperation, "getPost", "Post", []string{"input: GetPostInput!"}},
		{gen.QueryOperation, "listPosts", "PostConnection!", []string{"first: Int", "after: Cursor", "filter: PostFilter", "orderBy: PostOrder"}},
		{gen.MutationOperation, "createPost", "Post!", []string{"input: CreatePostInput!"}},
		{gen.MutationOperation, "deletePost", "Boolean!", []string{"input: GetPostInput!"}},
		{gen.MutationOperation, "publish", "PublishResponse!", []string{"input: GetPostInput!"}},
	}
	require.Len(t, p.Operations, len(tests), "custom methods without a directive are not exposed")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := p.Operation(tt.kind, tt.name)
			require.NotNil(t, op)
			assert.Equal(t, tt.typ, op.Type.String())
			var args []string
			for _, a := range op.Args {
				args = append(args, a.Name+": "+a.Type.String())
			}
			assert.Equal(t, tt.args, args)
		})
	}

	list := p.Operation(gen.QueryOperation, "listPosts")
	require.NotNil(t, list.Storage)
	assert.Equal(t, storage.FilterPaginate, list.Storage.Strategy.Kind)
	assert.Nil(t, p.Operation(gen.MutationOperation, "publish").Storage.Entity)

	require.Len(t, p.Inputs, 2)
	create := p.Inputs[1]
	assert.Equal(t, "CreatePostInput", create.Name)
	assert.Equal(t, "String!", create.Fields[0].Type.String())
	assert.Equal(t, "userID", create.Fields[1].Name)
	assert.Equal(t, "Int", create.Fields[1].Type.String())

	require.Len(t, p.Payloads, 1)
	payload := p.Payloads[0]
	assert.Equal(t, "Post!", payload.Field("post").Type.String())
	assert.Equal(t, "Time!", payload.Field("publishedAt").Type.String())
}

func TestTypeNameCollisions(t *testing.T) {
	fs := &load.FileSet{Files: []*load.File{{
		Name:    "shop.json",
		Package: "shop",
		Messages: []*load.Message{
			{Name: "PageInfo", Extensions: entity(nil), Fields: []*load.Field{pk()}},
			{Name: "Order", Extensions: entity(nil), Fields: []*load.Field{pk()}},
			{Name: "Cart", Extensions: load.Extensions{
				options.Entity:      map[string]any{},
				options.GraphQLType: map[string]any{"name": "Order"},
			}, Fields: []*load.Field{pk()}},
		},
	}}}
	_, ds := plan(t, fs)
	require.NotEmpty(t, ds)
	for _, d := range ds {
		assert.Equal(t, gen.DuplicateName, d.Kind)
	}

	var messages []string
	for _, d := range ds {
		messages = append(messages, d.Element+": "+d.Message)
	}
	assert.Contains(t, messages, `shop.PageInfo: type name "PageInfo" is reserved`)
	assert.Contains(t, messages, `shop.Cart: type name "Order" already generated for shop.Order`)
}
