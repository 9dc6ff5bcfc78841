package golang_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/golang"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
	"github.com/syssam/synapse/compiler/validate"
)

func pk(name string) *load.Field {
	return &load.Field{Name: name, Type: "int64", Extensions: load.Extensions{
		options.Column: map[string]any{"primary_key": true},
	}}
}

func rules(name, typ string, label load.Label, r map[string]any) *load.Field {
	return &load.Field{Name: name, Type: typ, Label: label, Extensions: load.Extensions{
		options.ValidateField: map[string]any{"rules": r},
	}}
}

func blog() *load.File {
	entity := load.Extensions{options.Entity: map[string]any{}}
	return &load.File{
		Name:    "blog.json",
		Package: "blog",
		Enums: []*load.Enum{{Name: "Role", Values: []*load.EnumValue{
			{Name: "ROLE_ADMIN", Number: 0},
			{Name: "ROLE_MEMBER", Number: 1},
			{Name: "LEGACY", Number: 2, Extensions: load.Extensions{options.StorageValue: map[string]any{"skip": true}}},
		}}},
		Messages: []*load.Message{
			{Name: "User", Extensions: entity, Fields: []*load.Field{
				pk("id"),
				{Name: "email", Type: "string"},
				{Name: "role", Type: "enum", TypeName: "Role"},
				{Name: "nickname", Type: "string", Label: load.LabelOptional},
			}},
			{Name: "Post", Extensions: entity, Fields: []*load.Field{
				pk("id"),
				{Name: "user_id", Type: "int64"},
				{Name: "title", Type: "string"},
			}},
			{Name: "GetPostRequest", Fields: []*load.Field{{Name: "id", Type: "int64"}}},
			{Name: "ListPostsRequest"},
			{Name: "ListPostsResponse", Fields: []*load.Field{
				{Name: "posts", Type: "message", TypeName: "Post", Label: load.LabelRepeated},
			}},
			{Name: "CreatePostRequest", Fields: []*load.Field{{Name: "post", Type: "message", TypeName: "Post"}}},
			{Name: "Empty"},
			{
				Name:       "CreateUserRequest",
				Extensions: load.Extensions{options.ValidateMsg: map[string]any{"generate_conversion": true}},
				Fields: []*load.Field{
					rules("email", "string", "", map[string]any{"required": true, "email": true}),
					rules("handle", "string", "", map[string]any{"pattern": "^[a-z]+$"}),
					rules("nickname", "string", load.LabelOptional, map[string]any{"length": map[string]any{"max": 20}}),
					rules("age", "int32", "", map[string]any{"range": map[string]any{"min": 13, "max": 130}}),
					{Name: "bio", Type: "string"},
				},
			},
		},
		Services: []*load.Service{{
			Name:       "PostService",
			Extensions: load.Extensions{options.StorageService: map[string]any{}},
			Methods: []*load.Method{
				{Name: "GetPost", InputType: "GetPostRequest", OutputType: "Post"},
				{Name: "ListPosts", InputType: "ListPostsRequest", OutputType: "ListPostsResponse"},
				{Name: "CreatePost", InputType: "CreatePostRequest", OutputType: "Post"},
				{Name: "UpdatePost", InputType: "Post", OutputType: "Post"},
				{Name: "DeletePost", InputType: "GetPostRequest", OutputType: "Empty"},
				{Name: "Publish", InputType: "GetPostRequest", OutputType: "Post"},
			},
		}},
	}
}

func generator(t *testing.T, files ...*load.File) *golang.Generator {
	t.Helper()
	fs := &load.FileSet{Files: files}
	require.NoError(t, fs.Check())
	g, ds := gen.Build(fs, nil)
	require.Empty(t, ds)
	require.Empty(t, gen.Resolve(g))
	plans, ds := validate.Compile(g)
	require.Empty(t, ds)
	return golang.New(g, storage.New(g), plans)
}

// source returns the rendered file with every run of white space collapsed
// to a single blank.
func source(t *testing.T, gr *golang.Generator, name string) string {
	t.Helper()
	for _, f := range gr.Files() {
		if f.Name == name {
			src, err := f.Source()
			require.NoError(t, err)
			return strings.Join(strings.Fields(string(src)), " ")
		}
	}
	t.Fatalf("file %s not rendered", name)
	return ""
}

func TestFiles(t *testing.T) {
	var names []string
	for _, f := range generator(t, blog()).Files() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"models.go", "enums.go", "post_service_storage.go", "domain.go"}, names)
}

func TestModels(t *testing.T) {
	src := source(t, generator(t, blog()), "models.go")
	assert.Contains(t, src, "// Code generated by synapse. DO NOT EDIT.")
	assert.Contains(t, src, "package store")
	assert.Contains(t, src, `// Post is the blog.Post entity, stored in table "post".`)
	for _, want := range []string{
		"type Post struct { ID int64 `json:\"id,omitempty\"`",
		"UserID int64 `json:\"user_id,omitempty\"`",
		"Nickname *string `json:\"nickname,omitempty\"`",
		"Role Role `json:\"role,omitempty\"`",
		"Posts []*Post `json:\"posts,omitempty\"`",
		"Post *Post `json:\"post,omitempty\"`",
		"type Empty struct{}",
	} {
		assert.Contains(t, src, want)
	}
}

func TestEnums(t *testing.T) {
	src := source(t, generator(t, blog()), "enums.go")
	assert.Contains(t, src, "type Role string")
	assert.Contains(t, src, `RoleAdmin Role = "ROLE_ADMIN"`)
	assert.Contains(t, src, `RoleMember Role = "ROLE_MEMBER"`)
	assert.NotContains(t, src, "Legacy", "skipped values are not rendered")
}

func TestStorage(t *testing.T) {
	src := source(t, generator(t, blog()), "post_service_storage.go")
	for _, want := range []string{
		"type PostServiceStorage interface { GetPost(ctx context.Context, req *GetPostRequest) (*Post, error)",
		"type PostServiceBackend interface { FindPost(ctx context.Context, key int64) (*Post, error)",
		"ListPosts(ctx context.Context, after *int64, limit int) ([]*Post, error)",
		"InsertPost(ctx context.Context, record *Post) (*Post, error)",
		"DeletePost(ctx context.Context, key int64) error",
		"type DefaultPostServiceStorage struct { Backend PostServiceBackend }",
		"return s.Backend.FindPost(ctx, req.ID)",
		"rows, err := s.Backend.ListPosts(ctx, nil, 20)",
		"return &ListPostsResponse{Posts: rows}, nil",
		"return s.Backend.InsertPost(ctx, req.Post)",
		"return s.Backend.UpdatePost(ctx, req)",
		"if err := s.Backend.DeletePost(ctx, req.ID); err != nil { return nil, err } return &Empty{}, nil",
		`return nil, synapse.NewNotImplementedError("blog.PostService.Publish")`,
		"GetPostFunc func(context.Context, *GetPostRequest) (*Post, error)",
		"if o.GetPostFunc != nil { return o.GetPostFunc(ctx, req) } return o.PostServiceStorage.GetPost(ctx, req)",
		"_ PostServiceStorage = (*DefaultPostServiceStorage)(nil)",
		"_ PostServiceStorage = (*PostServiceStorageOverrides)(nil)",
	} {
		assert.Contains(t, src, want)
	}
	assert.Contains(t, src, "// Publish uses the unimplemented strategy.")
}

func TestDomain(t *testing.T) {
	src := source(t, generator(t, blog()), "domain.go")
	for _, want := range []string{
		"// CreateUser is the validated form of blog.CreateUserRequest.",
		"type CreateUser struct { Email string Handle string Nickname *string Age int32 Bio string }",
		`var createUserHandlePattern = regexp.MustCompile("^[a-z]+$")`,
		"func (r *CreateUserRequest) ToCreateUser() (*CreateUser, error) { var errs []*synapse.FieldError",
		`if r.Email == "" {`,
		`Message: "is required"`,
		"if !synapse.IsEmail(r.Email) {",
		`if r.Handle != "" { if !createUserHandlePattern.MatchString(r.Handle) {`,
		`if r.Nickname != nil && *r.Nickname != "" { if utf8.RuneCountInString(*r.Nickname) > 20 {`,
		"if float64(r.Age) < 13",
		`if err := synapse.NewValidationError("CreateUser", errs...); err != nil { return nil, err }`,
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, "r.Bio ==", "fields without rules are copied only")
}

func TestQualifiedNames(t *testing.T) {
	iam := &load.File{Name: "iam.json", Package: "iam", Messages: []*load.Message{
		{Name: "User", Fields: []*load.Field{{Name: "id", Type: "string"}}},
	}}
	src := source(t, generator(t, blog(), iam), "models.go")
	assert.Contains(t, src, "type BlogUser struct")
	assert.Contains(t, src, "type IamUser struct")
	assert.Contains(t, src, "type Post struct", "unique names stay unqualified")
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	w := golang.NewWriter(dir, nil).WithWorkers(2)
	files := generator(t, blog()).Files()
	require.NoError(t, w.Write(context.Background(), files))

	m := w.Metrics()
	assert.Equal(t, len(files), m.Files)
	assert.Positive(t, m.Bytes)
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(dir, f.Name))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "// Code generated by synapse. DO NOT EDIT."))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, golang.NewWriter(t.TempDir(), nil).Write(ctx, files), context.Canceled)
}
