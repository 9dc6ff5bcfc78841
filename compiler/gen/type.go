package gen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

// Graph is the intermediate representation of one compilation: every
// message, entity, enum and service of the input, with cross references
// resolved. It is read-only once Build and Resolve returned.
type Graph struct {
	Config    *Config
	Files     []string
	Messages  []*Message
	Entities  []*Entity
	Enums     []*Enum
	Services  []*Service
	Relations *RelationGraph

	messages map[string]*Message
	entities map[string]*Entity
	enums    map[string]*Enum
}

// Message returns the message with the given qualified name.
func (g *Graph) Message(ident string) *Message { return g.messages[ident] }

// Entity returns the entity with the given qualified name.
func (g *Graph) Entity(ident string) *Entity { return g.entities[ident] }

// Enum returns the enum with the given qualified name.
func (g *Graph) Enum(ident string) *Enum { return g.enums[ident] }

// Nodes returns the entities that take part in generation.
func (g *Graph) Nodes() []*Entity {
	var nodes []*Entity
	for _, e := range g.Entities {
		if !e.Skip {
			nodes = append(nodes, e)
		}
	}
	return nodes
}

// Type is the scalar kind of a field.
type Type uint8

// Field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt32
	TypeInt64
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeTime
	TypeEnum
	TypeMessage
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeUint32:  "uint32",
	TypeUint64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeTime:    "time",
	TypeEnum:    "enum",
	TypeMessage: "message",
}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Integral reports whether t is an integer type.
func (t Type) Integral() bool {
	return t >= TypeInt32 && t <= TypeUint64
}

// Numeric reports whether t is an integer or floating point type.
func (t Type) Numeric() bool {
	return t >= TypeInt32 && t <= TypeFloat64
}

// timestamp is the well-known message mapped to TypeTime.
const timestamp = "google.protobuf.Timestamp"

// parseType maps a wire scalar name to a Type.
func parseType(scalar, typeName string) Type {
	switch scalar {
	case "bool":
		return TypeBool
	case "int32", "sint32", "sfixed32":
		return TypeInt32
	case "int64", "sint64", "sfixed64":
		return TypeInt64
	case "uint32", "fixed32":
		return TypeUint32
	case "uint64", "fixed64":
		return TypeUint64
	case "float":
		return TypeFloat32
	case "double":
		return TypeFloat64
	case "string":
		return TypeString
	case "bytes":
		return TypeBytes
	case "enum":
		return TypeEnum
	case "message":
		if trimDot(typeName) == timestamp {
			return TypeTime
		}
		return TypeMessage
	}
	return TypeInvalid
}

// Cardinality is the presence kind of a field.
type Cardinality uint8

// Cardinalities.
const (
	Scalar Cardinality = iota
	Optional
	Repeated
)

func cardinalityOf(l load.Label) Cardinality {
	switch l {
	case load.LabelOptional:
		return Optional
	case load.LabelRepeated:
		return Repeated
	}
	return Scalar
}

// Message is the shape of a schema message, entity or not.
type Message struct {
	File    string
	Package string
	Name    string
	Fields  []*MessageField
	Options *options.MessageOptions
	// Entity is set when the message is materialized as an entity.
	Entity *Entity
}

// Ident returns the fully-qualified name.
func (m *Message) Ident() string { return load.Qualify(m.Package, m.Name) }

// Field returns the field with the given name.
func (m *Message) Field(name string) *MessageField {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// MessageField is a field of a message.
type MessageField struct {
	Message     *Message
	Name        string
	Number      int32
	Type        Type
	Cardinality Cardinality
	// TypeName is the qualified name of the referenced enum or message.
	TypeName string
	Enum     *Enum
	Ref      *Message
	Options  *options.FieldOptions
}

// Element returns the qualified element name used in diagnostics.
func (f *MessageField) Element() string { return f.Message.Ident() + "." + f.Name }

// Entity is a persistent record type.
type Entity struct {
	Message *Message
	File    string
	Package string
	Name    string
	Table   string
	Skip    bool
	Columns []*Column
	// ID is the primary key column. It is nil when the entity does not have
	// exactly one primary key.
	ID *Column
	// Declarations are the relations as declared, before resolution.
	Declarations []*Declaration
	// Relations are the outgoing relations, declared and synthesized. They
	// are set by Resolve.
	Relations []*Relation
	// API is the query/API object name.
	API string
	// Node reports whether the entity is exposed on the query layer.
	Node bool
}

// Ident returns the fully-qualified name.
func (e *Entity) Ident() string { return load.Qualify(e.Package, e.Name) }

// Column returns the column with the given storage or field name.
func (e *Entity) Column(name string) *Column {
	for _, c := range e.Columns {
		if c.StorageName == name {
			return c
		}
	}
	for _, c := range e.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Relation returns the outgoing relation with the given name.
func (e *Entity) Relation(name string) *Relation {
	for _, r := range e.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasKey reports whether the entity has exactly one primary key.
func (e *Entity) HasKey() bool { return e.ID != nil }

// APIColumns returns the columns exposed on the query layer.
func (e *Entity) APIColumns() []*Column {
	return slices.DeleteFunc(slices.Clone(e.Columns), func(c *Column) bool { return c.APISkip })
}

// Column is a persisted field of an entity.
type Column struct {
	Entity *Entity
	Field  *MessageField
	// Name is the schema field name.
	Name string
	// StorageName is the column name in storage.
	StorageName string
	// APIName is the query/API field name.
	APIName       string
	Type          Type
	TypeName      string
	Enum          *Enum
	Cardinality   Cardinality
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Embed         bool
	Default       string
	DefaultExpr   string
	ColumnType    string
	Hints         map[string]string
	APISkip       bool
	// Ops are the filter operators exposed on the query layer.
	Ops options.WhereOp
	// Orderable reports whether the column can be an explicit ordering key.
	Orderable bool
}

// Nullable reports whether the column may be absent.
func (c *Column) Nullable() bool { return c.Cardinality == Optional }

// Repeated reports whether the column holds a list.
func (c *Column) Repeated() bool { return c.Cardinality == Repeated }

// Element returns the qualified element name used in diagnostics.
func (c *Column) Element() string { return c.Entity.Ident() + "." + c.Name }

// DefaultOps returns the filter operators a column of type t exposes when
// no explicit restriction is declared.
func DefaultOps(t Type, card Cardinality) options.WhereOp {
	if card == Repeated {
		return options.OpsNone
	}
	switch {
	case t == TypeString:
		return options.OpsString
	case t == TypeBool, t == TypeEnum:
		return options.OpsEquality
	case t.Numeric(), t == TypeTime:
		return options.OpsComparison
	}
	return options.OpsNone
}

// Enum is an enumeration.
type Enum struct {
	File    string
	Package string
	Name    string
	Values  []*EnumValue
	Storage options.EnumStorage
	Skip    bool
}

// Ident returns the fully-qualified name.
func (e *Enum) Ident() string { return load.Qualify(e.Package, e.Name) }

// EnumValue is a member of an enumeration.
type EnumValue struct {
	Name        string
	Number      int32
	StringValue string
	IntValue    int32
	Default     bool
	Skip        bool
}

func trimDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

// scope returns the candidate qualified names of ref seen from package pkg,
// innermost first. A leading dot marks ref as fully qualified.
//
//	scope("acme.blog", "iam.User") => acme.blog.iam.User, acme.iam.User, iam.User
func scope(pkg, ref string) []string {
	if len(ref) > 0 && ref[0] == '.' {
		return []string{ref[1:]}
	}
	var names []string
	for p := pkg; ; {
		names = append(names, load.Qualify(p, ref))
		if p == "" {
			return names
		}
		if i := strings.LastIndexByte(p, '.'); i >= 0 {
			p = p[:i]
		} else {
			p = ""
		}
	}
}

// lookup resolves ref from package pkg against a symbol table.
func lookup[T any](table map[string]T, pkg, ref string) (T, string, bool) {
	for _, name := range scope(pkg, ref) {
		if v, ok := table[name]; ok {
			return v, name, true
		}
	}
	var zero T
	return zero, "", false
}
