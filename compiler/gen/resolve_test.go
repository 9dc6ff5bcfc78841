package gen

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

func TestResolveCrossPackage(t *testing.T) {
	g := mustCompile(t, blogSet())

	assert.Equal(t, []string{
		"acme.blog.Post.author BELONGS_TO acme.iam.User fk=author_id ref=id inverse=posts",
		"acme.iam.User.posts HAS_MANY acme.blog.Post fk=author_id ref=id inverse=author synthesized",
	}, g.Relations.Edges())

	author := g.Entity("acme.blog.Post").Relation("author")
	require.NotNil(t, author)
	assert.Same(t, g.Entity("acme.iam.User"), author.Target)
	assert.Same(t, author.Target, author.Referenced())
	assert.Same(t, author.Owner, author.Holder())
	require.NotNil(t, author.Inverse)
	assert.Same(t, author, author.Inverse.Inverse)
	assert.Len(t, g.Relations.In("acme.iam.User"), 1)
	assert.Len(t, g.Relations.Out("acme.iam.User"), 1)
}

func TestResolveOrderIndependent(t *testing.T) {
	fs := blogSet()
	want := mustCompile(t, fs).Relations.Edges()

	reversed := blogSet()
	slices.Reverse(reversed.Files)
	assert.Equal(t, want, mustCompile(t, reversed).Relations.Edges())
}

func TestResolveIdempotent(t *testing.T) {
	g := mustCompile(t, blogSet())
	first := g.Relations.Edges()

	require.Empty(t, Resolve(g))
	assert.Equal(t, first, g.Relations.Edges())
	assert.Len(t, g.Entity("acme.iam.User").Relations, 1)
}

func TestResolveSynthesizesBelongsTo(t *testing.T) {
	g := mustCompile(t, fileSet(schemaFile("blog.json", "blog",
		message("Author", entity(),
			pk("id", "int64"),
			repeated(ref("posts", "Post", map[string]any{"type": "HAS_MANY"})),
		),
		message("Post", entity(),
			pk("id", "int64"),
			scalar("author_id", "int64"),
		),
	)))

	inv := g.Entity("blog.Post").Relation("author")
	require.NotNil(t, inv)
	assert.True(t, inv.Synthesized)
	assert.Equal(t, BelongsTo, inv.Kind)
	assert.Equal(t, "author_id", inv.ForeignKey)
	assert.Equal(t, "id", inv.References)
	assert.Same(t, g.Entity("blog.Author").Relation("posts"), inv.Inverse)
}

func TestResolveSynthesizedNameCollision(t *testing.T) {
	g := mustCompile(t, fileSet(schemaFile("blog.json", "blog",
		message("Author", entity(),
			pk("id", "int64"),
			repeated(ref("posts", "Post", map[string]any{"type": "HAS_MANY"})),
		),
		message("Post", entity(),
			pk("id", "int64"),
			scalar("author", "string"),
			scalar("author_id", "int64"),
		),
	)))

	post := g.Entity("blog.Post")
	assert.Nil(t, post.Relation("author"))
	require.NotNil(t, post.Relation("author_posts"))
	assert.True(t, post.Relation("author_posts").Synthesized)
}

func TestResolveSynthesizesHasOneForUniqueKey(t *testing.T) {
	g := mustCompile(t, fileSet(schemaFile("iam.json", "iam",
		message("User", entity(), pk("id", "int64")),
		message("Profile", entity(),
			pk("id", "int64"),
			with(scalar("user_id", "int64"), options.Column, map[string]any{"unique": true}),
			ref("user", "User", map[string]any{"type": "BELONGS_TO"}),
		),
	)))

	inv := g.Entity("iam.User").Relation("profile")
	require.NotNil(t, inv)
	assert.Equal(t, HasOne, inv.Kind)
	assert.Equal(t, "user_id", inv.ForeignKey)
}

func TestResolveUnknownTarget(t *testing.T) {
	fs := blogSet()
	post := fs.Files[1].Messages[0]
	post.Fields = append(post.Fields, ref("ghost", "Ghost", map[string]any{"type": "BELONGS_TO"}))

	_, ds := compile(t, fs)
	require.Len(t, ds, 1)
	assert.Equal(t, UnknownRelationTarget, ds[0].Kind)
	assert.Equal(t, "acme.blog.Post.ghost", ds[0].Element)
	assert.Equal(t, "acme/blog/post.json", ds[0].File)
	assert.Contains(t, ds[0].Error(), "Ghost")
}

func TestResolveKeyMismatch(t *testing.T) {
	t.Run("incompatible types", func(t *testing.T) {
		fs := blogSet()
		fs.Files[1].Messages[0].Fields[2].Type = "string"

		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, RelationKeyMismatch, ds[0].Kind)
		assert.Contains(t, ds[0].Message, "string != int64")
	})

	t.Run("missing column", func(t *testing.T) {
		fs := blogSet()
		post := fs.Files[1].Messages[0]
		post.Fields = slices.Delete(post.Fields, 2, 3)

		g, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, RelationKeyMismatch, ds[0].Kind)
		assert.Contains(t, ds[0].Message, `"author_id" not found`)
		// Unverified relations are never completed.
		assert.Empty(t, g.Entity("acme.iam.User").Relations)
	})

	t.Run("repeated foreign key", func(t *testing.T) {
		fs := blogSet()
		repeated(fs.Files[1].Messages[0].Fields[2])

		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, RelationKeyMismatch, ds[0].Kind)
	})
}

func TestResolveSkipsEntitiesWithoutKey(t *testing.T) {
	fs := blogSet()
	user := fs.Files[0].Messages[0]
	user.Fields[0] = scalar("id", "int64")

	g, ds := compile(t, fs)
	require.Len(t, ds, 1)
	assert.Equal(t, DuplicatePrimaryKey, ds[0].Kind)
	assert.Equal(t, "acme.iam.User", ds[0].Element)

	author := g.Entity("acme.blog.Post").Relation("author")
	require.NotNil(t, author)
	assert.False(t, author.Keyed())
	assert.Nil(t, author.Inverse)
}

func TestResolveManyToMany(t *testing.T) {
	schema := func(tag *load.Message, join *load.Message) *load.FileSet {
		return fileSet(schemaFile("blog.json", "blog",
			message("Post", entity(),
				pk("id", "int64"),
				repeated(ref("tags", "Tag", map[string]any{"type": "MANY_TO_MANY", "through": "PostTag"})),
			),
			tag,
			join,
		))
	}
	tag := func(fields ...*load.Field) *load.Message {
		return message("Tag", entity(), append([]*load.Field{pk("id", "int64")}, fields...)...)
	}
	postTag := func(fields ...*load.Field) *load.Message {
		return message("PostTag", entity(), append([]*load.Field{pk("id", "int64")}, fields...)...)
	}

	t.Run("synthesized inverse swaps the keys", func(t *testing.T) {
		g := mustCompile(t, schema(tag(), postTag(scalar("post_id", "int64"), scalar("tag_id", "int64"))))

		assert.Equal(t, []string{
			"blog.Post.tags MANY_TO_MANY blog.Tag through=blog.PostTag fk=post_id ref=id tk=tag_id tref=id inverse=posts",
			"blog.Tag.posts MANY_TO_MANY blog.Post through=blog.PostTag fk=tag_id ref=id tk=post_id tref=id inverse=tags synthesized",
		}, g.Relations.Edges())
		assert.Len(t, g.Relations.Via("blog.PostTag"), 2)
	})

	t.Run("declared inverse is paired", func(t *testing.T) {
		g := mustCompile(t, schema(
			tag(repeated(ref("articles", "Post", map[string]any{"type": "MANY_TO_MANY", "through": "PostTag"}))),
			postTag(scalar("post_id", "int64"), scalar("tag_id", "int64")),
		))

		articles := g.Entity("blog.Tag").Relation("articles")
		require.NotNil(t, articles)
		assert.Same(t, g.Entity("blog.Post").Relation("tags"), articles.Inverse)
		assert.Nil(t, g.Entity("blog.Tag").Relation("posts"))
	})

	t.Run("join keys from declarations", func(t *testing.T) {
		g := mustCompile(t, schema(tag(), postTag(
			scalar("article", "int64"),
			scalar("label", "int64"),
			ref("post", "Post", map[string]any{"type": "BELONGS_TO", "foreign_key": "article"}),
			ref("tag", "Tag", map[string]any{"type": "BELONGS_TO", "foreign_key": "label"}),
		)))

		tags := g.Entity("blog.Post").Relation("tags")
		assert.Equal(t, "article", tags.ForeignKey)
		assert.Equal(t, "label", tags.TargetKey)
	})

	t.Run("missing through", func(t *testing.T) {
		fs := fileSet(schemaFile("blog.json", "blog",
			message("Post", entity(),
				pk("id", "int64"),
				repeated(ref("tags", "Tag", map[string]any{"type": "MANY_TO_MANY"})),
			),
			tag(),
		))
		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, AmbiguousJoinEntity, ds[0].Kind)
	})

	t.Run("unknown through", func(t *testing.T) {
		fs := schema(tag(), message("Other", entity(), pk("id", "int64")))
		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, UnknownRelationTarget, ds[0].Kind)
		assert.Contains(t, ds[0].Message, "PostTag")
	})

	t.Run("join with one side only", func(t *testing.T) {
		_, ds := compile(t, schema(tag(), postTag(scalar("post_id", "int64"))))
		require.Len(t, ds, 1)
		assert.Equal(t, AmbiguousJoinEntity, ds[0].Kind)
		assert.Contains(t, ds[0].Message, "found 1")
	})

	t.Run("join with two keys to one side", func(t *testing.T) {
		_, ds := compile(t, schema(tag(), postTag(
			scalar("post_id", "int64"),
			scalar("origin_id", "int64"),
			ref("post", "Post", map[string]any{"type": "BELONGS_TO"}),
			ref("origin", "Post", map[string]any{"type": "BELONGS_TO", "foreign_key": "origin_id"}),
		)))
		assert.Len(t, ds.Of(AmbiguousJoinEntity), 1)
	})
}

func TestResolveInverse(t *testing.T) {
	usersWith := func(rel *load.Field) *load.FileSet {
		fs := blogSet()
		user := fs.Files[0].Messages[0]
		user.Fields = append(user.Fields, rel)
		return fs
	}

	t.Run("explicit inverse wins over synthesis", func(t *testing.T) {
		fs := usersWith(repeated(ref("writings", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id", "inverse": "author"})))
		g := mustCompile(t, fs)

		user := g.Entity("acme.iam.User")
		assert.Nil(t, user.Relation("posts"))
		require.NotNil(t, user.Relation("writings"))
		assert.Same(t, g.Entity("acme.blog.Post").Relation("author"), user.Relation("writings").Inverse)
		assert.Equal(t, 2, g.Relations.Len())
	})

	t.Run("complementary relation pairs without a name", func(t *testing.T) {
		fs := usersWith(repeated(ref("articles", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id"})))
		g := mustCompile(t, fs)

		assert.Equal(t, 2, g.Relations.Len())
		for _, r := range g.Relations.Relations() {
			assert.False(t, r.Synthesized, r.String())
		}
	})

	t.Run("inverse over a different key", func(t *testing.T) {
		fs := usersWith(repeated(ref("edited", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "editor_id", "inverse": "author"})))
		post := fs.Files[1].Messages[0]
		post.Fields = append(post.Fields, scalar("editor_id", "int64"))

		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, ConflictingInverseRelation, ds[0].Kind)
		assert.Equal(t, "acme.iam.User.edited", ds[0].Element)
	})

	t.Run("inverse not declared", func(t *testing.T) {
		fs := blogSet()
		fs.Files[1].Messages[0].Fields[3] = ref("author", "iam.User", map[string]any{"type": "BELONGS_TO", "foreign_key": "author_id", "inverse": "missing"})

		g, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, ConflictingInverseRelation, ds[0].Kind)
		assert.Empty(t, g.Entity("acme.iam.User").Relations)
	})

	t.Run("inverse of the wrong kind", func(t *testing.T) {
		fs := usersWith(ref("pinned", ".acme.blog.Post", map[string]any{"type": "BELONGS_TO", "foreign_key": "pinned_id", "inverse": "author"}))
		user := fs.Files[0].Messages[0]
		user.Fields = append(user.Fields, scalar("pinned_id", "int64"))

		_, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, ConflictingInverseRelation, ds[0].Kind)
		assert.Contains(t, ds[0].Message, "cannot invert")
	})

	t.Run("two relations claim one inverse", func(t *testing.T) {
		fs := usersWith(repeated(ref("articles", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id"})))
		user := fs.Files[0].Messages[0]
		user.Fields = append(user.Fields, repeated(ref("stories", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id"})))

		g, ds := compile(t, fs)
		require.Len(t, ds, 1)
		assert.Equal(t, ConflictingInverseRelation, ds[0].Kind)
		assert.Equal(t, "acme.iam.User.stories", ds[0].Element)
		assert.Nil(t, g.Entity("acme.blog.Post").Relation("user"))
		assert.Same(t, g.Entity("acme.iam.User").Relation("articles"), g.Entity("acme.blog.Post").Relation("author").Inverse)
	})

	t.Run("claim conflict ignores file order", func(t *testing.T) {
		for _, reversed := range []bool{false, true} {
			fs := usersWith(repeated(ref("articles", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id"})))
			user := fs.Files[0].Messages[0]
			user.Fields = append(user.Fields, repeated(ref("stories", ".acme.blog.Post", map[string]any{"type": "HAS_MANY", "foreign_key": "author_id"})))
			if reversed {
				fs.Files[0], fs.Files[1] = fs.Files[1], fs.Files[0]
			}

			g, ds := compile(t, fs)
			require.Len(t, ds, 1, "reversed=%v", reversed)
			assert.Equal(t, ConflictingInverseRelation, ds[0].Kind)
			assert.Equal(t, "acme.iam.User.stories", ds[0].Element, "reversed=%v", reversed)
			assert.Contains(t, ds[0].Message, "acme.blog.Post.author")
			assert.Same(t, g.Entity("acme.iam.User").Relation("articles"), g.Entity("acme.blog.Post").Relation("author").Inverse)
		}
	})
}

func TestRelationGraph(t *testing.T) {
	g := mustCompile(t, blogSet())

	assert.Equal(t, 2, g.Relations.Len())
	assert.Empty(t, g.Relations.Via("acme.blog.Post"))
	assert.Empty(t, g.Relations.Out("acme.blog.Comment"))
	for _, r := range g.Relations.Relations() {
		assert.True(t, r.Keyed())
		assert.Contains(t, g.Relations.In(r.Target.Ident()), r)
	}
}
