package graphql

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/synapse"
)

// Cursor is an opaque position in a connection. It encodes the ordering key
// of one node together with the node type and the ordering it was issued
// for, so a cursor of another connection or ordering is rejected.
type Cursor string

var (
	_ graphql.Marshaler   = Cursor("")
	_ graphql.Unmarshaler = (*Cursor)(nil)
)

// envelope is the encoded form of a cursor.
type envelope struct {
	Type  string             `msgpack:"t"`
	Order string             `msgpack:"o"`
	Key   msgpack.RawMessage `msgpack:"k"`
}

// OrderTag returns the ordering identity embedded in cursors.
//
//	OrderTag("id", false)        => id:asc
//	OrderTag("created_at", true) => created_at:desc
func OrderTag(column string, desc bool) string {
	if desc {
		return column + ":desc"
	}
	return column + ":asc"
}

// EncodeCursor returns the cursor of key in the connection of typ ordered by
// order.
func EncodeCursor[K any](typ, order string, key K) (Cursor, error) {
	k, err := msgpack.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("graphql: encode cursor key: %w", err)
	}
	b, err := msgpack.Marshal(&envelope{Type: typ, Order: order, Key: k})
	if err != nil {
		return "", fmt.Errorf("graphql: encode cursor: %w", err)
	}
	return Cursor(base64.RawURLEncoding.EncodeToString(b)), nil
}

// DecodeCursor returns the key of a cursor issued by EncodeCursor for the
// same type and order. Any other input fails with a
// *synapse.InvalidCursorError.
func DecodeCursor[K any](c Cursor, typ, order string) (K, error) {
	var key K
	env, err := c.envelope()
	if err != nil {
		return key, err
	}
	if env.Type != typ {
		return key, synapse.NewInvalidCursorError(string(c), fmt.Sprintf("issued for %s, not %s", env.Type, typ), nil)
	}
	if env.Order != order {
		return key, synapse.NewInvalidCursorError(string(c), fmt.Sprintf("issued for order %s, not %s", env.Order, order), nil)
	}
	if err := msgpack.Unmarshal(env.Key, &key); err != nil {
		return key, synapse.NewInvalidCursorError(string(c), "malformed key", err)
	}
	return key, nil
}

func (c Cursor) envelope() (*envelope, error) {
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, synapse.NewInvalidCursorError(string(c), "not base64url", err)
	}
	env := &envelope{}
	if err := msgpack.Unmarshal(b, env); err != nil {
		return nil, synapse.NewInvalidCursorError(string(c), "malformed payload", err)
	}
	if env.Type == "" || env.Order == "" || len(env.Key) == 0 {
		return nil, synapse.NewInvalidCursorError(string(c), "incomplete payload", nil)
	}
	return env, nil
}

// MarshalGQL implements graphql.Marshaler.
func (c Cursor) MarshalGQL(w io.Writer) {
	graphql.MarshalString(string(c)).MarshalGQL(w)
}

// UnmarshalGQL implements graphql.Unmarshaler. Only the encoding is checked;
// type and order are checked when the cursor is decoded.
func (c *Cursor) UnmarshalGQL(v any) error {
	s, ok := v.(string)
	if !ok {
		return synapse.NewInvalidCursorError("", fmt.Sprintf("%T is not a string", v), nil)
	}
	if _, err := Cursor(s).envelope(); err != nil {
		return err
	}
	*c = Cursor(s)
	return nil
}
