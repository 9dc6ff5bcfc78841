// Package graphql builds the query layer of a compiled schema and holds the
// runtime pieces its generated resolvers rely on.
//
// # Plan
//
// New turns a resolved graph into a Plan. For every node entity the plan
// holds:
//   - an object with the exposed columns of the entity
//   - a connection and an edge type over the entity list operation
//   - a filter input with one comparison group per filterable column,
//     combined with and, or and not
//   - an ordering input when the entity has orderable columns
//   - per relation, a dual accessor: a loader-backed field and a paginated
//     connection field scoped by the owner's key
//
// Filter groups are shared by scalar type:
//
//	input StringFilter {
//	    eq: String
//	    neq: String
//	    gt: String
//	    gte: String
//	    lt: String
//	    lte: String
//	    in: [String!]
//	    contains: String
//	}
//
// A column restricting its operators gets a dedicated group named after the
// entity and the field, e.g. UserEmailFilter.
//
// Root operations come from the method bindings of the services. List
// operations return the connection of their entity:
//
//	type Query {
//	    listPosts(first: Int, after: Cursor, filter: PostFilter, orderBy: PostOrder): PostConnection!
//	    getPost(input: GetPostInput!): Post
//	}
//
// # SDL
//
// Plan.SDL renders the schema with the gqlparser formatter and loads the
// result before returning it, so a rendered schema is always valid.
//
// # Pagination
//
// Cursors are base64url encoded MessagePack payloads carrying the node type,
// the ordering tag and the ordering key of one node. Paginate implements
// forward pagination over any fetch function:
//
//	conn, err := graphql.Paginate(ctx, pager, args,
//	    func(p *Post) int64 { return p.ID },
//	    func(ctx context.Context, after *int64, limit int) ([]*Post, error) {
//	        return store.ListPosts(ctx, after, limit)
//	    },
//	)
//
// A cursor issued for another type or ordering fails with
// synapse.ErrInvalidCursor.
package graphql
