// Package gen builds and resolves the intermediate representation of a
// schema set.
//
// # Pipeline
//
// A compilation runs in two phases over an already-checked load.FileSet:
//
//	load.FileSet
//	     ↓
//	Build (messages, enums, entities, columns, services, declarations)
//	     ↓
//	Resolve (inverse pairing, relation synthesis, RelationGraph)
//	     ↓
//	Graph
//
// Neither phase stops at the first problem. Every rejected element is
// recorded as a Diagnostic and the phase returns them all, sorted, as a
// Diagnostics value that also implements error.
//
// # Key Types
//
//   - Graph: messages, enums, entities and services of one schema set
//   - Entity: a message stored as a table, with its Columns and Relations
//   - Relation: a resolved BELONGS_TO, HAS_ONE, HAS_MANY or MANY_TO_MANY link
//   - RelationGraph: relations indexed by owner, target and join entity
//   - Service: an annotated service with its Methods and API bindings
//   - Config: page sizes, name suffixes and the logger
//
// # Configuration
//
// Configuration uses functional options. Invalid values are reported as a
// ConfigError:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithDefaultPageSize(25),
//	    gen.WithMaxPageSize(200),
//	    gen.WithPackage("blogstore"),
//	)
//
// # Naming
//
// Snake, Pascal, Camel, Plural and Singular derive storage, Go and GraphQL
// names from schema identifiers. The same functions are used by every
// downstream plan so that names agree across outputs.
//
// # Subpackages
//
//   - storage: tables, foreign keys and storage service strategies
//   - rpc: server handler plans
//   - golang: Go source rendering of the plans
package gen
