package gen

import (
	"fmt"
	"log/slog"
	"sort"
)

// Resolve completes the declared relations of g: it resolves targets across
// packages, verifies foreign keys and join entities, pairs explicit inverses,
// synthesizes the missing ones and builds g.Relations.
//
// Resolve works from the immutable declarations only, so calling it again on
// the same graph rebuilds an identical relation graph. Every declaration is
// processed before returning; the diagnostics list all defects.
func Resolve(g *Graph) Diagnostics {
	r := &resolver{g: g, log: g.Config.Logger, conflicted: make(map[*Relation]bool)}
	for _, e := range g.Entities {
		e.Relations = nil
	}
	for _, e := range g.Entities {
		for _, d := range e.Declarations {
			if rel := r.resolve(d); rel != nil {
				r.declared = append(r.declared, rel)
				e.Relations = append(e.Relations, rel)
			}
		}
	}
	r.pairExplicit()
	r.pairImplicit()
	r.synthesize()
	g.Relations = newRelationGraph(g.Entities)
	r.c.list.Sort()
	return r.c.list
}

type resolver struct {
	g        *Graph
	log      *slog.Logger
	c        collector
	declared []*Relation

	// conflicted relations are neither paired nor completed by synthesis.
	conflicted map[*Relation]bool
}

func (r *resolver) resolve(d *Declaration) *Relation {
	e := d.Owner
	target, _, ok := lookup(r.g.entities, e.Package, d.Target)
	if !ok {
		r.c.add(UnknownRelationTarget, e.File, d.Element(), "target %q not found from package %q", d.Target, e.Package)
		return nil
	}
	rel := &Relation{Name: d.Name, Kind: d.Kind, Owner: e, Target: target, Decl: d}
	// Entities without a single primary key were reported by Build; their
	// keys cannot be checked.
	if !e.HasKey() || !target.HasKey() {
		return rel
	}
	switch d.Kind {
	case BelongsTo:
		rel.keyed = r.keys(rel, e, target, d.ForeignKey, d.References, Snake(target.Name)+"_id")
	case HasOne, HasMany:
		rel.keyed = r.keys(rel, target, e, d.ForeignKey, d.References, Snake(e.Name)+"_id")
	case ManyToMany:
		rel.keyed = r.join(rel, d)
	}
	return rel
}

// keys verifies the foreign key column on the holder against the referenced
// column, the primary key of the referenced side unless declared otherwise.
func (r *resolver) keys(rel *Relation, holder, referenced *Entity, fk, ref, defaultFK string) bool {
	d := rel.Decl
	if fk == "" {
		fk = defaultFK
	}
	fkc := holder.Column(fk)
	if fkc == nil {
		r.c.add(RelationKeyMismatch, d.Owner.File, d.Element(), "foreign key column %q not found on %s", fk, holder.Ident())
		return false
	}
	refc := referenced.ID
	if ref != "" {
		if refc = referenced.Column(ref); refc == nil {
			r.c.add(RelationKeyMismatch, d.Owner.File, d.Element(), "referenced column %q not found on %s", ref, referenced.Ident())
			return false
		}
	}
	if !r.compatible(d, fkc, refc) {
		return false
	}
	rel.ForeignKey, rel.References = fkc.StorageName, refc.StorageName
	return true
}

func (r *resolver) compatible(d *Declaration, fk, ref *Column) bool {
	switch {
	case fk.Repeated():
		r.c.add(RelationKeyMismatch, d.Owner.File, d.Element(), "foreign key column %s cannot be repeated", fk.Element())
	case fk.Type != ref.Type || fk.TypeName != ref.TypeName:
		r.c.add(RelationKeyMismatch, d.Owner.File, d.Element(), "mismatch column type between foreign key %s and referenced column %s (%s != %s)",
			fk.Element(), ref.Element(), typeString(fk), typeString(ref))
	default:
		return true
	}
	return false
}

func typeString(c *Column) string {
	if c.TypeName != "" && c.Type != TypeTime {
		return c.Type.String() + " " + c.TypeName
	}
	return c.Type.String()
}

// joinKey is a foreign key of a join entity.
type joinKey struct {
	col  *Column
	side *Entity
}

// join verifies the join entity of a many-to-many relation: it must carry
// exactly two foreign keys, one to each side.
func (r *resolver) join(rel *Relation, d *Declaration) bool {
	e := d.Owner
	if d.Through == "" {
		r.c.add(AmbiguousJoinEntity, e.File, d.Element(), "%s relation requires a join entity", ManyToMany)
		return false
	}
	join, _, ok := lookup(r.g.entities, e.Package, d.Through)
	if !ok {
		r.c.add(UnknownRelationTarget, e.File, d.Element(), "join entity %q not found from package %q", d.Through, e.Package)
		return false
	}
	rel.Through = join
	fks := r.joinKeys(join, e, rel.Target)
	if len(fks) != 2 {
		r.c.add(AmbiguousJoinEntity, e.File, d.Element(), "join entity %s must carry exactly two foreign keys, one to each side; found %d", join.Ident(), len(fks))
		return false
	}
	own, other := -1, -1
	switch {
	case d.ForeignKey != "":
		for i, k := range fks {
			if (k.col.StorageName == d.ForeignKey || k.col.Name == d.ForeignKey) && k.side == e {
				own, other = i, 1-i
			}
		}
	case fks[0].side == e && fks[1].side == rel.Target:
		own, other = 0, 1
	case fks[1].side == e && fks[0].side == rel.Target:
		own, other = 1, 0
	}
	if own < 0 || fks[other].side != rel.Target {
		r.c.add(AmbiguousJoinEntity, e.File, d.Element(), "join entity %s does not reference both %s and %s", join.Ident(), e.Ident(), rel.Target.Ident())
		return false
	}
	if !r.compatible(d, fks[own].col, e.ID) || !r.compatible(d, fks[other].col, rel.Target.ID) {
		return false
	}
	rel.ForeignKey, rel.References = fks[own].col.StorageName, e.ID.StorageName
	rel.TargetKey, rel.TargetReferences = fks[other].col.StorageName, rel.Target.ID.StorageName
	return true
}

// joinKeys returns the foreign keys of a join entity: its BELONGS_TO
// declarations when it has any, otherwise the conventional <side>_id
// columns.
func (r *resolver) joinKeys(join, owner, target *Entity) []joinKey {
	var (
		keys     []joinKey
		declared bool
	)
	for _, d := range join.Declarations {
		if d.Kind != BelongsTo {
			continue
		}
		declared = true
		side, _, ok := lookup(r.g.entities, join.Package, d.Target)
		if !ok {
			continue
		}
		fk := d.ForeignKey
		if fk == "" {
			fk = Snake(side.Name) + "_id"
		}
		if c := join.Column(fk); c != nil {
			keys = append(keys, joinKey{col: c, side: side})
		}
	}
	if declared {
		return keys
	}
	sides := []*Entity{owner}
	if target != owner {
		sides = append(sides, target)
	}
	for _, side := range sides {
		if c := join.Column(Snake(side.Name) + "_id"); c != nil {
			keys = append(keys, joinKey{col: c, side: side})
		}
	}
	return keys
}

// declaredOn returns the resolved declared relation of e with the given name.
func (r *resolver) declaredOn(e *Entity, name string) *Relation {
	for _, rel := range r.declared {
		if rel.Owner == e && rel.Name == name {
			return rel
		}
	}
	return nil
}

// pairExplicit links relations that name their inverse. Any disagreement in
// kind or key between the two sides is a conflict.
func (r *resolver) pairExplicit() {
	for _, rel := range r.declared {
		d := rel.Decl
		if d.Inverse == "" || !rel.keyed {
			continue
		}
		s := r.declaredOn(rel.Target, d.Inverse)
		switch {
		case s == nil:
			r.conflict(rel, "inverse %q is not declared on %s", d.Inverse, rel.Target.Ident())
		case !s.keyed:
		case s.Target != rel.Owner:
			r.conflict(rel, "inverse %s targets %s, not %s", s.Element(), s.Target.Ident(), rel.Owner.Ident())
		case !rel.Kind.complements(s.Kind):
			r.conflict(rel, "inverse %s is %s, which cannot invert %s", s.Element(), s.Kind, rel.Kind)
		case s.key() != rel.inverseKey():
			r.conflict(rel, "inverse %s uses foreign key %q, relation uses %q", s.Element(), s.ForeignKey, rel.ForeignKey)
		case s.Decl.Inverse != "" && s.Decl.Inverse != rel.Name:
			r.conflict(rel, "inverse %s names %q as its own inverse", s.Element(), s.Decl.Inverse)
		default:
			r.link(rel, s)
		}
	}
}

// pairImplicit links declared relations with complementary kinds over the
// same foreign key. The explicit side wins over synthesis, whatever its
// field name. Relations are visited by element name, so when several
// relations claim one inverse the first claimant is paired and the later
// ones conflict, whatever the file order.
func (r *resolver) pairImplicit() {
	sorted := make([]*Relation, len(r.declared))
	copy(sorted, r.declared)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Element() < sorted[j].Element() })
	for _, rel := range sorted {
		if !rel.keyed || rel.Inverse != nil || rel.Decl.Inverse != "" || r.conflicted[rel] {
			continue
		}
		var matches []*Relation
		for _, s := range sorted {
			if s == rel || !s.keyed || r.conflicted[s] || s.Owner != rel.Target || s.Target != rel.Owner {
				continue
			}
			if s.Decl.Inverse != "" && s.Decl.Inverse != rel.Name {
				continue
			}
			if rel.Kind.complements(s.Kind) && s.key() == rel.inverseKey() {
				matches = append(matches, s)
			}
		}
		if len(matches) == 0 {
			continue
		}
		first := matches[0]
		if first.Inverse != nil {
			r.conflict(rel, "%s is already the inverse of %s", first.Element(), first.Inverse.Element())
			continue
		}
		r.link(rel, first)
		for _, s := range matches[1:] {
			if s.Inverse == nil && s.Decl.Inverse == "" {
				r.conflict(s, "relations %s and %s both invert %s", first.Element(), s.Element(), rel.Element())
			}
		}
	}
}

func (r *resolver) link(a, b *Relation) {
	for _, pair := range [][2]*Relation{{a, b}, {b, a}} {
		if x, y := pair[0], pair[1]; x.Inverse != nil && x.Inverse != y {
			r.conflict(a, "%s is already the inverse of %s", x.Element(), x.Inverse.Element())
			return
		}
	}
	a.Inverse, b.Inverse = b, a
	r.log.Debug("inverse paired", "relation", a.Element(), "inverse", b.Element())
}

func (r *resolver) conflict(rel *Relation, format string, args ...any) {
	r.conflicted[rel] = true
	r.c.add(ConflictingInverseRelation, rel.Owner.File, rel.Element(), format, args...)
}

// synthesize creates the inverse of every verified relation that has none.
func (r *resolver) synthesize() {
	for _, rel := range r.declared {
		if !rel.keyed || rel.Inverse != nil || rel.Decl.Inverse != "" || r.conflicted[rel] {
			continue
		}
		inv := &Relation{
			Owner:       rel.Target,
			Target:      rel.Owner,
			ForeignKey:  rel.ForeignKey,
			References:  rel.References,
			Inverse:     rel,
			Synthesized: true,
			keyed:       true,
		}
		base := Snake(rel.Owner.Name)
		switch rel.Kind {
		case HasOne, HasMany:
			inv.Kind = BelongsTo
		case BelongsTo:
			if fk := rel.Owner.Column(rel.ForeignKey); fk != nil && fk.Unique {
				inv.Kind = HasOne
			} else {
				inv.Kind, base = HasMany, Plural(base)
			}
		case ManyToMany:
			inv.Kind, base = ManyToMany, Plural(base)
			inv.Through = rel.Through
			inv.ForeignKey, inv.References = rel.TargetKey, rel.TargetReferences
			inv.TargetKey, inv.TargetReferences = rel.ForeignKey, rel.References
		}
		inv.Name = freeName(rel.Target, base, rel.Name)
		rel.Inverse = inv
		rel.Target.Relations = append(rel.Target.Relations, inv)
		r.log.Debug("inverse synthesized", "relation", rel.Element(), "inverse", inv.Element(), "kind", inv.Kind)
	}
}

// freeName returns base, or base suffixed with the relation name, that no
// column, declaration or relation of e uses yet.
func freeName(e *Entity, base, suffix string) string {
	taken := func(n string) bool {
		if e.Column(n) != nil || e.Relation(n) != nil {
			return true
		}
		for _, d := range e.Declarations {
			if d.Name == n {
				return true
			}
		}
		return false
	}
	if !taken(base) {
		return base
	}
	name := base + "_" + suffix
	for i := 2; taken(name); i++ {
		name = fmt.Sprintf("%s_%s_%d", base, suffix, i)
	}
	return name
}
