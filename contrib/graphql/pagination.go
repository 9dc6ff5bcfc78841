package graphql

import (
	"context"
	"fmt"
)

// PageArgs are the forward pagination arguments of a connection field.
type PageArgs struct {
	First *int
	After *Cursor
}

// Edge is one node of a connection with its cursor.
type Edge[T any] struct {
	Node   T
	Cursor Cursor
}

// PageInfo describes the position of a page.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *Cursor
	EndCursor       *Cursor
}

// Page is one page of nodes of a connection.
type Page[T any] struct {
	Edges    []*Edge[T]
	Nodes    []T
	PageInfo PageInfo
}

// Pager paginates the connection of one node type under one ordering.
type Pager struct {
	// Type is the node type name embedded in cursors.
	Type string
	// Order is the ordering tag embedded in cursors, see OrderTag.
	Order string
	// PageSize applies when First is omitted. MaxPageSize caps First.
	PageSize, MaxPageSize int
}

// Fetch returns up to limit rows ordered by key, strictly after the given
// key. A nil after starts at the first row.
type Fetch[T, K any] func(ctx context.Context, after *K, limit int) ([]T, error)

// Paginate fetches one page. It asks fetch for one row more than the page
// size to learn whether a next page exists; only the page itself is
// returned. A cursor of another type or ordering fails with a
// *synapse.InvalidCursorError instead of restarting at the first page.
func Paginate[T, K any](ctx context.Context, p Pager, args PageArgs, key func(T) K, fetch Fetch[T, K]) (*Page[T], error) {
	first := p.PageSize
	if args.First != nil {
		first = *args.First
	}
	if first < 0 {
		return nil, fmt.Errorf("graphql: first must be non-negative, got %d", first)
	}
	if p.MaxPageSize > 0 && first > p.MaxPageSize {
		first = p.MaxPageSize
	}
	var after *K
	if args.After != nil {
		k, err := DecodeCursor[K](*args.After, p.Type, p.Order)
		if err != nil {
			return nil, err
		}
		after = &k
	}
	rows, err := fetch(ctx, after, first+1)
	if err != nil {
		return nil, fmt.Errorf("graphql: fetch %s page: %w", p.Type, err)
	}
	conn := &Page[T]{
		PageInfo: PageInfo{HasNextPage: len(rows) > first, HasPreviousPage: after != nil},
	}
	if len(rows) > first {
		rows = rows[:first]
	}
	conn.Nodes = rows
	conn.Edges = make([]*Edge[T], len(rows))
	for i, n := range rows {
		c, err := EncodeCursor(p.Type, p.Order, key(n))
		if err != nil {
			return nil, err
		}
		conn.Edges[i] = &Edge[T]{Node: n, Cursor: c}
	}
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = &conn.Edges[0].Cursor
		conn.PageInfo.EndCursor = &conn.Edges[len(conn.Edges)-1].Cursor
	}
	return conn, nil
}
