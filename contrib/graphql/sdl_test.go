package graphql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestSDL(t *testing.T) {
	p, ds := plan(t, blog())
	require.Empty(t, ds)

	sdl, err := p.SDL()
	require.NoError(t, err)
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	require.NoError(t, err)

	post := s.Types["Post"]
	require.NotNil(t, post)
	assert.Equal(t, []string{"Node"}, post.Interfaces)
	require.NotNil(t, post.Fields.ForName("tags"))
	conn := post.Fields.ForName("tagsConnection")
	require.NotNil(t, conn)
	assert.Equal(t, "TagConnection!", conn.Type.String())
	assert.Equal(t, "TagFilter", conn.Arguments.ForName("filter").Type.String())

	list := s.Query.Fields.ForName("listPosts")
	require.NotNil(t, list)
	assert.Equal(t, "Cursor", list.Arguments.ForName("after").Type.String())
	require.NotNil(t, s.Mutation.Fields.ForName("publish"))
	assert.Nil(t, s.Subscription)

	filter := s.Types["UserFilter"]
	require.NotNil(t, filter)
	assert.Equal(t, ast.InputObject, filter.Kind)
	assert.Equal(t, "[UserFilter!]", filter.Fields.ForName("and").Type.String())
	assert.Equal(t, "UserFilter", filter.Fields.ForName("not").Type.String())
	assert.Equal(t, "UserEmailFilter", filter.Fields.ForName("email").Type.String())

	email := s.Types["UserEmailFilter"]
	require.NotNil(t, email)
	require.Len(t, email.Fields, 2)
	assert.Equal(t, "[String!]", email.Fields.ForName("in").Type.String())

	order := s.Types["UserOrder"]
	require.NotNil(t, order)
	direction := order.Fields.ForName("direction")
	require.NotNil(t, direction.DefaultValue)
	assert.Equal(t, "ASC", direction.DefaultValue.Raw)
	assert.Len(t, s.Types["UserOrderField"].EnumValues, 5)

	info := s.Types["PageInfo"]
	require.NotNil(t, info)
	assert.Equal(t, "Boolean!", info.Fields.ForName("hasNextPage").Type.String())
	assert.Equal(t, "Cursor", info.Fields.ForName("endCursor").Type.String())
}
