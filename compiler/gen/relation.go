package gen

import (
	"fmt"
	"strings"

	"github.com/syssam/synapse/compiler/options"
)

// RelationKind is the semantic kind of a directed relation.
type RelationKind uint8

// Relation kinds.
const (
	BelongsTo RelationKind = iota + 1
	HasOne
	HasMany
	ManyToMany
)

func kindOf(t options.RelationType) RelationKind {
	switch t {
	case options.BelongsTo:
		return BelongsTo
	case options.HasOne:
		return HasOne
	case options.HasMany:
		return HasMany
	case options.ManyToMany:
		return ManyToMany
	}
	return 0
}

// String returns the declared name of the kind.
func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return string(options.BelongsTo)
	case HasOne:
		return string(options.HasOne)
	case HasMany:
		return string(options.HasMany)
	case ManyToMany:
		return string(options.ManyToMany)
	}
	return fmt.Sprintf("RelationKind(%d)", uint8(k))
}

// Unique reports whether the relation yields at most one record.
func (k RelationKind) Unique() bool { return k == BelongsTo || k == HasOne }

// complements reports whether a relation of kind o can be the inverse of a
// relation of kind k.
func (k RelationKind) complements(o RelationKind) bool {
	switch k {
	case BelongsTo:
		return o == HasOne || o == HasMany
	case HasOne, HasMany:
		return o == BelongsTo
	case ManyToMany:
		return o == ManyToMany
	}
	return false
}

// Declaration is a relation as declared in the schema, before its target and
// keys are resolved. Declarations are produced by Build and never modified.
type Declaration struct {
	Owner      *Entity
	Name       string
	Kind       RelationKind
	Target     string
	ForeignKey string
	References string
	Through    string
	Inverse    string
	// Field is the message-typed field carrying the declaration, if any.
	Field *MessageField
}

// Element returns the qualified element name used in diagnostics.
func (d *Declaration) Element() string { return d.Owner.Ident() + "." + d.Name }

// Relation is a resolved, directed relation between two entities.
//
// The foreign key lives on the Holder: the owner for BELONGS_TO, the target
// for HAS_ONE and HAS_MANY, the join entity for MANY_TO_MANY. For
// MANY_TO_MANY, ForeignKey and References pair the join with the owner, and
// TargetKey and TargetReferences pair it with the target.
type Relation struct {
	Name   string
	Kind   RelationKind
	Owner  *Entity
	Target *Entity
	// ForeignKey is the storage name of the key column on the holder.
	ForeignKey string
	// References is the storage name of the referenced column.
	References       string
	Through          *Entity
	TargetKey        string
	TargetReferences string
	Inverse          *Relation
	// Synthesized is set on inverses created by the resolver.
	Synthesized bool
	Decl        *Declaration
	// keyed is set when the key columns were verified.
	keyed bool
}

// Holder returns the entity carrying the foreign key column.
func (r *Relation) Holder() *Entity {
	switch r.Kind {
	case BelongsTo:
		return r.Owner
	case ManyToMany:
		return r.Through
	}
	return r.Target
}

// Referenced returns the entity the foreign key points to. For
// MANY_TO_MANY it is the owner side.
func (r *Relation) Referenced() *Entity {
	if r.Kind == BelongsTo {
		return r.Target
	}
	return r.Owner
}

// Unique reports whether the relation yields at most one record.
func (r *Relation) Unique() bool { return r.Kind.Unique() }

// Keyed reports whether the key columns of the relation were verified.
func (r *Relation) Keyed() bool { return r.keyed }

// Element returns the qualified element name used in diagnostics.
func (r *Relation) Element() string { return r.Owner.Ident() + "." + r.Name }

// String returns a canonical one-line description of the relation.
func (r *Relation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Element(), r.Kind, r.Target.Ident())
	if r.Through != nil {
		fmt.Fprintf(&b, " through=%s", r.Through.Ident())
	}
	fmt.Fprintf(&b, " fk=%s ref=%s", r.ForeignKey, r.References)
	if r.Kind == ManyToMany {
		fmt.Fprintf(&b, " tk=%s tref=%s", r.TargetKey, r.TargetReferences)
	}
	if r.Inverse != nil {
		fmt.Fprintf(&b, " inverse=%s", r.Inverse.Name)
	}
	if r.Synthesized {
		b.WriteString(" synthesized")
	}
	return b.String()
}

// key is the identity of the foreign key a relation travels over. Two
// relations are inverses of each other only when their keys are equal, with
// the many-to-many sides swapped.
type key struct {
	holder, fk, referenced, ref string
	join, tk                    string
}

func (r *Relation) key() key {
	if r.Kind == ManyToMany {
		return key{join: r.Through.Ident(), fk: r.ForeignKey, tk: r.TargetKey, holder: r.Owner.Ident(), referenced: r.Target.Ident()}
	}
	return key{holder: r.Holder().Ident(), fk: r.ForeignKey, referenced: r.Referenced().Ident(), ref: r.References}
}

// inverseKey is the key the inverse of r must have.
func (r *Relation) inverseKey() key {
	k := r.key()
	if r.Kind == ManyToMany {
		k.fk, k.tk = k.tk, k.fk
		k.holder, k.referenced = k.referenced, k.holder
	}
	return k
}
