// Package storage builds the storage generation plan: table mappings of the
// entities, and per service an interface with one overridable operation per
// method together with the default behavior of each operation.
package storage

import (
	"fmt"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/options"
)

// Plan is the storage plan of one compilation.
type Plan struct {
	Entities []*EntityPlan
	Services []*ServicePlan
}

// Entity returns the plan of the entity with the given qualified name.
func (p *Plan) Entity(ident string) *EntityPlan {
	for _, e := range p.Entities {
		if e.Entity.Ident() == ident {
			return e
		}
	}
	return nil
}

// Service returns the plan of the service with the given qualified name.
func (p *Plan) Service(ident string) *ServicePlan {
	for _, s := range p.Services {
		if s.Service.Ident() == ident {
			return s
		}
	}
	return nil
}

// EntityPlan maps one entity to its table.
type EntityPlan struct {
	Entity     *gen.Entity
	Table      string
	Columns    []*gen.Column
	PrimaryKey *gen.Column
	// ForeignKeys are the key columns held by the table.
	ForeignKeys []*ForeignKey
	// Relations are the outgoing relations available for eager loading.
	Relations []*gen.Relation
}

// ForeignKey is a key column of a table referencing another table.
type ForeignKey struct {
	Symbol    string
	Column    *gen.Column
	RefEntity *gen.Entity
	RefColumn *gen.Column
}

// ServicePlan is the storage interface of one service.
type ServicePlan struct {
	Service *gen.Service
	// Interface is the name of the storage interface.
	Interface string
	// Default is the name of the generated implementation.
	Default string
	// Overrides is the name of the decorator that replaces single
	// operations and forwards the others to Default.
	Overrides  string
	Operations []*Operation
}

// Operation returns the operation with the given name.
func (s *ServicePlan) Operation(name string) *Operation {
	for _, op := range s.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// Operation is one method of a storage interface. Every operation can be
// overridden independently of the others.
type Operation struct {
	Name     string
	Method   *gen.Method
	Kind     options.Operation
	Entity   *gen.Entity
	Request  *gen.Message
	Response *gen.Message
	Strategy Strategy
}

// StrategyKind is the default behavior of an operation.
type StrategyKind uint8

// Default strategies.
const (
	Unimplemented StrategyKind = iota
	FindByKey
	FilterPaginate
	Insert
	UpdateByKey
	DeleteByKey
)

var strategyNames = [...]string{
	Unimplemented:  "unimplemented",
	FindByKey:      "find_by_key",
	FilterPaginate: "filter_paginate",
	Insert:         "insert",
	UpdateByKey:    "update_by_key",
	DeleteByKey:    "delete_by_key",
}

// String returns the strategy name.
func (k StrategyKind) String() string {
	if int(k) < len(strategyNames) {
		return strategyNames[k]
	}
	return fmt.Sprintf("StrategyKind(%d)", uint8(k))
}

// Strategy describes the default implementation of an operation in terms of
// the entity it acts on.
type Strategy struct {
	Kind StrategyKind
	// Key is the lookup column of by-key strategies.
	Key *gen.Column
	// Order is the ordering of FilterPaginate.
	Order []Order
	// Relations can be eagerly loaded by FilterPaginate.
	Relations []*gen.Relation
	// ReturnsKey is set on Insert when storage generates the key.
	ReturnsKey bool
	// PageSize and MaxPageSize bound FilterPaginate.
	PageSize, MaxPageSize int
}

// Order is one ordering term.
type Order struct {
	Column *gen.Column
	Desc   bool
}

// New builds the storage plan of a resolved graph.
func New(g *gen.Graph) *Plan {
	p := &Plan{}
	for _, e := range g.Nodes() {
		p.Entities = append(p.Entities, entityPlan(g, e))
	}
	for _, s := range g.Services {
		if !s.Storage {
			continue
		}
		sp := &ServicePlan{
			Service:   s,
			Interface: s.StorageName,
			Default:   "Default" + s.StorageName,
			Overrides: s.StorageName + "Overrides",
		}
		for _, m := range s.Methods {
			if m.StorageSkip {
				continue
			}
			op := &Operation{
				Name:     m.StorageName,
				Method:   m,
				Kind:     m.Operation,
				Entity:   m.Entity,
				Request:  m.Input,
				Response: m.Output,
			}
			op.Strategy = strategy(g, m)
			sp.Operations = append(sp.Operations, op)
		}
		p.Services = append(p.Services, sp)
	}
	return p
}

func entityPlan(g *gen.Graph, e *gen.Entity) *EntityPlan {
	ep := &EntityPlan{Entity: e, Table: e.Table, Columns: e.Columns, PrimaryKey: e.ID}
	seen := make(map[string]bool)
	for _, r := range g.Relations.Relations() {
		for _, k := range keysOf(r) {
			if k.holder != e || k.col == nil || k.ref == nil || k.ref.Entity.Skip || seen[k.col.StorageName] {
				continue
			}
			seen[k.col.StorageName] = true
			ep.ForeignKeys = append(ep.ForeignKeys, &ForeignKey{
				Symbol:    fmt.Sprintf("%s_%s_fkey", e.Table, k.col.StorageName),
				Column:    k.col,
				RefEntity: k.ref.Entity,
				RefColumn: k.ref,
			})
		}
	}
	ep.Relations = eager(e)
	return ep
}

type fkey struct {
	holder   *gen.Entity
	col, ref *gen.Column
}

// keysOf returns the foreign keys a relation travels over.
func keysOf(r *gen.Relation) []fkey {
	if !r.Keyed() {
		return nil
	}
	if r.Kind == gen.ManyToMany {
		return []fkey{
			{r.Through, r.Through.Column(r.ForeignKey), r.Owner.Column(r.References)},
			{r.Through, r.Through.Column(r.TargetKey), r.Target.Column(r.TargetReferences)},
		}
	}
	h := r.Holder()
	return []fkey{{h, h.Column(r.ForeignKey), r.Referenced().Column(r.References)}}
}

// eager returns the outgoing relations of e whose target is generated.
func eager(e *gen.Entity) []*gen.Relation {
	var rels []*gen.Relation
	for _, r := range e.Relations {
		if r.Keyed() && !r.Target.Skip {
			rels = append(rels, r)
		}
	}
	return rels
}

func strategy(g *gen.Graph, m *gen.Method) Strategy {
	e := m.Entity
	if e == nil || e.Skip || !e.HasKey() {
		return Strategy{Kind: Unimplemented}
	}
	switch m.Operation {
	case options.OpGet:
		return Strategy{Kind: FindByKey, Key: e.ID}
	case options.OpList:
		return Strategy{
			Kind:        FilterPaginate,
			Order:       []Order{{Column: e.ID}},
			Relations:   eager(e),
			PageSize:    g.Config.DefaultPageSize,
			MaxPageSize: g.Config.MaxPageSize,
		}
	case options.OpCreate:
		return Strategy{Kind: Insert, Key: e.ID, ReturnsKey: e.ID.AutoIncrement}
	case options.OpUpdate:
		return Strategy{Kind: UpdateByKey, Key: e.ID}
	case options.OpDelete:
		return Strategy{Kind: DeleteByKey, Key: e.ID}
	}
	return Strategy{Kind: Unimplemented}
}
