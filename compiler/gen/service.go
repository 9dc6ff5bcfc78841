package gen

import (
	"strings"

	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

// Service is a named RPC surface with ordered methods.
type Service struct {
	File    string
	Package string
	Name    string
	Methods []*Method
	Options *options.ServiceOptions
	// Storage reports whether a storage interface is generated.
	Storage bool
	// StorageName is the name of the storage interface.
	StorageName string
	// RPC reports whether an RPC server binding is generated.
	RPC bool
	// ServerName is the name of the RPC server type.
	ServerName string
	// API reports whether the service is exposed on the query layer.
	API bool
}

// Ident returns the fully-qualified name.
func (s *Service) Ident() string { return load.Qualify(s.Package, s.Name) }

// OperationKind is the kind of a query/API root operation.
type OperationKind uint8

// Root operation kinds.
const (
	NoOperation OperationKind = iota
	QueryOperation
	MutationOperation
	SubscriptionOperation
)

// String returns the root type name of the kind.
func (k OperationKind) String() string {
	switch k {
	case QueryOperation:
		return "Query"
	case MutationOperation:
		return "Mutation"
	case SubscriptionOperation:
		return "Subscription"
	}
	return "None"
}

// APIBinding exposes a method as a root operation of the query layer.
type APIBinding struct {
	Kind OperationKind
	Name string
	// Inferred is set when the kind was derived from the storage operation.
	Inferred bool
}

// Method is a remote call of a service.
type Method struct {
	Service *Service
	Name    string
	Input   *Message
	Output  *Message
	// Operation is the storage operation of the method.
	Operation options.Operation
	// Entity is the entity the storage operation acts on. It is nil for
	// custom operations without an entity.
	Entity *Entity
	// StorageName is the name of the storage interface operation.
	StorageName string
	// StorageSkip excludes the method from the storage interface.
	StorageSkip bool
	// RPCName is the name of the RPC handler.
	RPCName string
	// RPCSkip excludes the method from the RPC binding.
	RPCSkip bool
	// API is nil when the method is not exposed on the query layer.
	API             *APIBinding
	ClientStreaming bool
	ServerStreaming bool
	Options         *options.MethodOptions
}

// Element returns the qualified element name used in diagnostics.
func (m *Method) Element() string { return m.Service.Ident() + "." + m.Name }

// operationPrefixes map method name prefixes to storage operations.
var operationPrefixes = []struct {
	prefix string
	op     options.Operation
}{
	{"Get", options.OpGet},
	{"Find", options.OpGet},
	{"List", options.OpList},
	{"Create", options.OpCreate},
	{"Update", options.OpUpdate},
	{"Delete", options.OpDelete},
}

// inferOperation derives the storage operation and entity name from a
// method name.
//
//	GetUser        => get, User
//	GetUserByEmail => get, User
//	ListUsers      => list, User
//	Publish        => custom, ""
func inferOperation(method string) (options.Operation, string) {
	for _, p := range operationPrefixes {
		rest, ok := strings.CutPrefix(method, p.prefix)
		if !ok || rest == "" || !isUpper(rest[0]) {
			continue
		}
		for i := 1; i+2 < len(rest); i++ {
			if rest[i:i+2] == "By" && isUpper(rest[i+2]) {
				rest = rest[:i]
				break
			}
		}
		if p.op == options.OpList {
			rest = Singular(rest)
		}
		return p.op, rest
	}
	return options.OpCustom, ""
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// inferAPIKind returns the root operation kind of a storage operation.
func inferAPIKind(op options.Operation) OperationKind {
	switch op {
	case options.OpGet, options.OpList:
		return QueryOperation
	case options.OpCreate, options.OpUpdate, options.OpDelete:
		return MutationOperation
	}
	return NoOperation
}
