// Package options decodes the extension values attached to schema elements
// into typed option records, one record type per namespace.
package options

// Namespaces recognized by the decoder.
const (
	Entity         = "storage.entity"
	Relation       = "storage.relation"
	Column         = "storage.column"
	StorageEnum    = "storage.enum"
	StorageValue   = "storage.enum_value"
	StorageService = "storage.service"
	StorageMethod  = "storage.method"
	GRPCService    = "grpc.service"
	GRPCMethod     = "grpc.method"
	ValidateMsg    = "validate.message"
	ValidateField  = "validate.field"
	GraphQLType    = "graphql.type"
	GraphQLField   = "graphql.field"
	GraphQLService = "graphql.service"
	Query          = "graphql.query"
	Mutation       = "graphql.mutation"
	Subscription   = "graphql.subscription"
)

// prefixes owned by the compiler. Extension keys outside them are foreign
// and ignored.
var prefixes = []string{"storage.", "grpc.", "validate.", "graphql."}

// RelationType is the declared kind of a relation.
type RelationType string

// Relation kinds.
const (
	BelongsTo  RelationType = "BELONGS_TO"
	HasOne     RelationType = "HAS_ONE"
	HasMany    RelationType = "HAS_MANY"
	ManyToMany RelationType = "MANY_TO_MANY"
)

// Valid reports whether t is a known relation kind.
func (t RelationType) Valid() bool {
	switch t {
	case BelongsTo, HasOne, HasMany, ManyToMany:
		return true
	}
	return false
}

// Operation is the storage operation a method maps to.
type Operation string

// Storage operations.
const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpCustom Operation = "custom"
)

// Valid reports whether o is a known operation. The empty operation is valid
// and means "infer from the method name".
func (o Operation) Valid() bool {
	switch o {
	case "", OpGet, OpList, OpCreate, OpUpdate, OpDelete, OpCustom:
		return true
	}
	return false
}

// EnumStorage selects how enum values are persisted.
type EnumStorage string

// Enum storage kinds.
const (
	EnumAsString  EnumStorage = "STRING"
	EnumAsInteger EnumStorage = "INTEGER"
)

type (
	// EntityOptions marks a message as a persistent entity.
	EntityOptions struct {
		TableName string             `json:"table_name,omitempty"`
		Skip      bool               `json:"skip,omitempty"`
		Relations []*RelationOptions `json:"relations,omitempty"`
	}

	// RelationOptions declares a relation, either in an entity's relation
	// list or on a message-typed field.
	RelationOptions struct {
		Name       string       `json:"name,omitempty"`
		Type       RelationType `json:"type"`
		Related    string       `json:"related,omitempty"`
		ForeignKey string       `json:"foreign_key,omitempty"`
		References string       `json:"references,omitempty"`
		Through    string       `json:"through,omitempty"`
		Inverse    string       `json:"inverse,omitempty"`
	}

	// ColumnOptions configures the persisted column of a field.
	ColumnOptions struct {
		PrimaryKey    bool              `json:"primary_key,omitempty"`
		AutoIncrement *bool             `json:"auto_increment,omitempty"`
		Unique        bool              `json:"unique,omitempty"`
		ColumnName    string            `json:"column_name,omitempty"`
		DefaultValue  string            `json:"default_value,omitempty"`
		DefaultExpr   string            `json:"default_expr,omitempty"`
		ColumnType    string            `json:"column_type,omitempty"`
		TypeHints     map[string]string `json:"type_hints,omitempty"`
		Embed         bool              `json:"embed,omitempty"`
	}

	// EnumOptions configures enum persistence.
	EnumOptions struct {
		StorageType EnumStorage `json:"storage_type,omitempty"`
		Skip        bool        `json:"skip,omitempty"`
	}

	// EnumValueOptions configures the persisted form of one enum value.
	EnumValueOptions struct {
		StringValue string `json:"string_value,omitempty"`
		IntValue    *int32 `json:"int_value,omitempty"`
		Default     bool   `json:"default,omitempty"`
		Skip        bool   `json:"skip,omitempty"`
	}

	// StorageServiceOptions requests a storage interface for a service.
	StorageServiceOptions struct {
		GenerateStorage *bool  `json:"generate_storage,omitempty"`
		TraitName       string `json:"trait_name,omitempty"`
		Skip            bool   `json:"skip,omitempty"`
	}

	// StorageMethodOptions binds a method to a storage operation.
	StorageMethodOptions struct {
		Skip       bool      `json:"skip,omitempty"`
		MethodName string    `json:"method_name,omitempty"`
		EntityName string    `json:"entity_name,omitempty"`
		Operation  Operation `json:"operation,omitempty"`
	}

	// GRPCServiceOptions configures the RPC server binding of a service.
	GRPCServiceOptions struct {
		Skip       bool   `json:"skip,omitempty"`
		StructName string `json:"struct_name,omitempty"`
	}

	// GRPCMethodOptions configures the RPC binding of a method.
	GRPCMethodOptions struct {
		Skip       bool   `json:"skip,omitempty"`
		MethodName string `json:"method_name,omitempty"`
	}

	// ValidateMessageOptions requests a validated domain type.
	ValidateMessageOptions struct {
		Skip               bool   `json:"skip,omitempty"`
		Name               string `json:"name,omitempty"`
		GenerateConversion bool   `json:"generate_conversion,omitempty"`
	}

	// ValidateFieldOptions declares the rules and domain mapping of a field.
	ValidateFieldOptions struct {
		Skip   bool   `json:"skip,omitempty"`
		Rename string `json:"rename,omitempty"`
		Type   string `json:"type,omitempty"`
		Rules  *Rules `json:"rules,omitempty"`
	}

	// Rules is the rule declaration of a field.
	Rules struct {
		Required bool    `json:"required,omitempty"`
		Email    bool    `json:"email,omitempty"`
		URL      bool    `json:"url,omitempty"`
		UUID     bool    `json:"uuid,omitempty"`
		Pattern  string  `json:"pattern,omitempty"`
		Length   *Length `json:"length,omitempty"`
		Range    *Range  `json:"range,omitempty"`
		Message  string  `json:"message,omitempty"`
	}

	// Length bounds the length of a string, byte or list value.
	Length struct {
		Min   *uint64 `json:"min,omitempty"`
		Max   *uint64 `json:"max,omitempty"`
		Equal *uint64 `json:"equal,omitempty"`
	}

	// Range bounds a numeric value, inclusive.
	Range struct {
		Min *float64 `json:"min,omitempty"`
		Max *float64 `json:"max,omitempty"`
	}

	// GraphQLTypeOptions configures the query-layer object of a message.
	GraphQLTypeOptions struct {
		Skip bool   `json:"skip,omitempty"`
		Name string `json:"name,omitempty"`
		Node *bool  `json:"node,omitempty"`
	}

	// GraphQLFieldOptions configures the query-layer field of a column.
	GraphQLFieldOptions struct {
		Skip      bool     `json:"skip,omitempty"`
		Name      string   `json:"name,omitempty"`
		Operators []string `json:"operators,omitempty"`
		OrderBy   *bool    `json:"order_by,omitempty"`
	}

	// GraphQLServiceOptions exposes a service on the query layer.
	GraphQLServiceOptions struct {
		Skip bool `json:"skip,omitempty"`
	}

	// GraphQLOperationOptions exposes a method as a root operation.
	GraphQLOperationOptions struct {
		Skip bool   `json:"skip,omitempty"`
		Name string `json:"name,omitempty"`
	}
)

// MessageOptions are the decoded options of a message.
type MessageOptions struct {
	Entity   *EntityOptions
	Type     *GraphQLTypeOptions
	Validate *ValidateMessageOptions
}

// FieldOptions are the decoded options of a field.
type FieldOptions struct {
	Column   *ColumnOptions
	Relation *RelationOptions
	GraphQL  *GraphQLFieldOptions
	Validate *ValidateFieldOptions
}

// EnumDecl are the decoded options of an enum.
type EnumDecl struct {
	Storage *EnumOptions
}

// EnumValueDecl are the decoded options of an enum value.
type EnumValueDecl struct {
	Storage *EnumValueOptions
}

// ServiceOptions are the decoded options of a service.
type ServiceOptions struct {
	Storage *StorageServiceOptions
	GRPC    *GRPCServiceOptions
	GraphQL *GraphQLServiceOptions
}

// MethodOptions are the decoded options of a method.
type MethodOptions struct {
	Storage      *StorageMethodOptions
	GRPC         *GRPCMethodOptions
	Query        *GraphQLOperationOptions
	Mutation     *GraphQLOperationOptions
	Subscription *GraphQLOperationOptions
}

// ResolveAutoIncrement resolves the auto-increment flag. When unset it is
// derived: true iff the column is a primary key of an integral type.
func (c *ColumnOptions) ResolveAutoIncrement(integral bool) bool {
	if c == nil {
		return false
	}
	if c.AutoIncrement != nil {
		return *c.AutoIncrement
	}
	return c.PrimaryKey && integral
}

// IsPrimaryKey reports whether the column is marked as primary key.
func (c *ColumnOptions) IsPrimaryKey() bool {
	return c != nil && c.PrimaryKey
}

// Skipped reports whether the entity is excluded from generation.
func (e *EntityOptions) Skipped() bool {
	return e != nil && e.Skip
}

// IsNode reports whether an entity is exposed as a node on the query layer.
func (t *GraphQLTypeOptions) IsNode() bool {
	if t == nil || t.Node == nil {
		return t == nil || !t.Skip
	}
	return *t.Node && !t.Skip
}

// Generates reports whether a storage interface is requested.
func (s *StorageServiceOptions) Generates() bool {
	if s == nil || s.Skip {
		return false
	}
	return s.GenerateStorage == nil || *s.GenerateStorage
}
