package graphql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/options"
)

// Types declared by every schema.
const (
	NodeInterface  = "Node"
	PageInfoType   = "PageInfo"
	CursorScalar   = "Cursor"
	TimeScalar     = "Time"
	JSONScalar     = "JSON"
	OrderDirection = "OrderDirection"
)

// Plan is the query layer of one compilation.
type Plan struct {
	Objects     []*Object
	Payloads    []*Object
	Inputs      []*Input
	Enums       []*Enum
	Filters     []*Filter
	Orders      []*Order
	Connections []*Connection
	Loaders     []*Loader
	Operations  []*Operation
	// PageSize and MaxPageSize bound every connection.
	PageSize, MaxPageSize int
}

// Object returns the node object of the entity with the given qualified name.
func (p *Plan) Object(ident string) *Object {
	for _, o := range p.Objects {
		if o.Entity.Ident() == ident {
			return o
		}
	}
	return nil
}

// Filter returns the filter input with the given name.
func (p *Plan) Filter(name string) *Filter {
	for _, f := range p.Filters {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Operation returns the root operation of the kind with the given name.
func (p *Plan) Operation(kind gen.OperationKind, name string) *Operation {
	for _, op := range p.Operations {
		if op.Kind == kind && op.Name == name {
			return op
		}
	}
	return nil
}

// Object is an output object. Node objects carry an entity; payload
// objects shape non-entity response messages.
type Object struct {
	Name    string
	Entity  *gen.Entity
	Message *gen.Message
	// Node is set when the object implements the Node interface.
	Node       bool
	Fields     []*Field
	Accessors  []*Accessor
	Connection *Connection
	Filter     *Filter
	Order      *Order
}

// Field returns the field with the given name.
func (o *Object) Field(name string) *Field {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Accessor returns the accessor of the relation with the given name.
func (o *Object) Accessor(relation string) *Accessor {
	for _, a := range o.Accessors {
		if a.Relation.Name == relation {
			return a
		}
	}
	return nil
}

// Field is a field of an object or an input.
type Field struct {
	Name string
	Type *ast.Type
	// Column is set on node object fields.
	Column *gen.Column
	// MessageField is set on payload and input fields.
	MessageField *gen.MessageField
}

// Input is an input object shaped by a request message.
type Input struct {
	Name    string
	Message *gen.Message
	Fields  []*Field
}

// Enum is an enumeration type.
type Enum struct {
	Name   string
	Enum   *gen.Enum
	Values []string
}

// Filter is a filter input. Scalar filters hold one comparison group of a
// column type; entity filters hold one scalar filter per filterable column
// and combine with and, or and not.
type Filter struct {
	Name string
	// Type is the compared type of scalar filters.
	Type string
	Ops  options.WhereOp
	// Object is set on entity filters.
	Object *Object
	Fields []*FilterField
}

// Combinator reports whether the filter is an entity filter.
func (f *Filter) Combinator() bool { return f.Object != nil }

// Field returns the column filter with the given name.
func (f *Filter) Field(name string) *FilterField {
	for _, ff := range f.Fields {
		if ff.Name == name {
			return ff
		}
	}
	return nil
}

// FilterField is one column of an entity filter.
type FilterField struct {
	Name   string
	Column *gen.Column
	Filter *Filter
}

// Order is the ordering input of a connection.
type Order struct {
	// Name of the input with direction and field.
	Name string
	// Field is the name of the enum of orderable columns.
	Field   string
	Object  *Object
	Columns []*gen.Column
	Values  []string
}

// Connection is a cursor-paginated list of nodes.
type Connection struct {
	Name string
	Edge string
	Node *Object
}

// Loader batches same-kind lookups of one request.
type Loader struct {
	Name   string
	Target *gen.Entity
	Object *Object
	// Key is the column the batch is keyed by. It lives on the target, or on
	// the join entity when Through is set.
	Key     *gen.Column
	Through *gen.Entity
	// Unique is set when a key yields at most one record.
	Unique bool
}

// Accessor is the dual accessor of a relation: a batched field backed by a
// loader and a paginated connection field scoped by the owner's key.
type Accessor struct {
	Relation *gen.Relation
	Name     string
	Type     *ast.Type
	// Source is the owner column whose value keys the lookup.
	Source         *gen.Column
	Loader         *Loader
	ConnectionName string
	Connection     *Connection
	Args           []*Argument
}

// Argument is an argument of a field.
type Argument struct {
	Name string
	Type *ast.Type
}

// Operation is a root operation bound to a service method.
type Operation struct {
	Kind   gen.OperationKind
	Name   string
	Method *gen.Method
	Args   []*Argument
	Type   *ast.Type
	// Connection is set on list operations.
	Connection *Connection
	// Storage is the storage operation the resolver delegates to, if any.
	Storage *storage.Operation
}

// New builds the query plan of a resolved graph. Every type name is
// checked for uniqueness; collisions are reported and the plan is still
// returned complete.
func New(g *gen.Graph, sp *storage.Plan) (*Plan, gen.Diagnostics) {
	b := &builder{
		g:        g,
		sp:       sp,
		log:      g.Config.Logger,
		p:        &Plan{PageSize: g.Config.DefaultPageSize, MaxPageSize: g.Config.MaxPageSize},
		names:    make(map[string]string),
		objects:  make(map[*gen.Entity]*Object),
		payloads: make(map[*gen.Message]*Object),
		inputs:   make(map[*gen.Message]*Input),
		enums:    make(map[*gen.Enum]*Enum),
		filters:  make(map[string]*Filter),
		loaders:  make(map[loaderKey]*Loader),
	}
	for _, name := range []string{"Query", "Mutation", "Subscription", NodeInterface, PageInfoType, CursorScalar, TimeScalar, JSONScalar, OrderDirection} {
		b.names[name] = ""
	}
	for _, e := range g.Entities {
		if e.Node {
			b.object(e)
		}
	}
	for _, e := range g.Entities {
		if o := b.objects[e]; o != nil {
			b.members(o)
		}
	}
	for _, o := range b.p.Objects {
		b.accessors(o)
	}
	for _, s := range g.Services {
		for _, m := range s.Methods {
			if m.API != nil {
				b.operation(m)
			}
		}
	}
	b.ds.Sort()
	return b.p, b.ds
}

type loaderKey struct {
	target  *gen.Entity
	key     *gen.Column
	through *gen.Entity
}

type builder struct {
	g        *gen.Graph
	sp       *storage.Plan
	log      *slog.Logger
	p        *Plan
	ds       gen.Diagnostics
	names    map[string]string
	objects  map[*gen.Entity]*Object
	payloads map[*gen.Message]*Object
	inputs   map[*gen.Message]*Input
	enums    map[*gen.Enum]*Enum
	filters  map[string]*Filter
	loaders  map[loaderKey]*Loader
}

func (b *builder) report(file, element, format string, args ...any) {
	b.ds = append(b.ds, &gen.Diagnostic{
		Kind:    gen.DuplicateName,
		File:    file,
		Element: element,
		Message: fmt.Sprintf(format, args...),
	})
}

// declare registers a schema type name.
func (b *builder) declare(name, file, element string) {
	prev, ok := b.names[name]
	switch {
	case !ok:
		b.names[name] = element
	case prev == "":
		b.report(file, element, "type name %q is reserved", name)
	default:
		b.report(file, element, "type name %q already generated for %s", name, prev)
	}
}

func (b *builder) object(e *gen.Entity) {
	o := &Object{Name: e.API, Entity: e, Message: e.Message}
	b.declare(o.Name, e.File, e.Ident())
	o.Connection = &Connection{Name: o.Name + "Connection", Edge: o.Name + "Edge", Node: o}
	b.declare(o.Connection.Name, e.File, e.Ident())
	b.declare(o.Connection.Edge, e.File, e.Ident())
	b.objects[e] = o
	b.p.Objects = append(b.p.Objects, o)
	b.p.Connections = append(b.p.Connections, o.Connection)
}

// members adds the columns of a node object with their filters and
// ordering.
func (b *builder) members(o *Object) {
	e := o.Entity
	o.Filter = &Filter{Name: o.Name + "Filter", Object: o}
	seen := make(map[string]bool)
	for _, c := range e.APIColumns() {
		if seen[c.APIName] {
			b.report(e.File, c.Element(), "field name %q already used on %s", c.APIName, o.Name)
			continue
		}
		seen[c.APIName] = true
		o.Fields = append(o.Fields, &Field{Name: c.APIName, Type: b.columnType(c), Column: c})
		if c.Ops != options.OpsNone {
			o.Filter.Fields = append(o.Filter.Fields, &FilterField{Name: c.APIName, Column: c, Filter: b.columnFilter(o, c)})
		}
	}
	o.Node = e.HasKey() && !e.ID.APISkip && e.ID.APIName == "id"
	if len(o.Filter.Fields) > 0 {
		b.declare(o.Filter.Name, e.File, e.Ident())
		b.p.Filters = append(b.p.Filters, o.Filter)
	} else {
		o.Filter = nil
	}
	var order *Order
	for _, f := range o.Fields {
		if !f.Column.Orderable {
			continue
		}
		if order == nil {
			order = &Order{Name: o.Name + "Order", Field: o.Name + "OrderField", Object: o}
		}
		order.Columns = append(order.Columns, f.Column)
		order.Values = append(order.Values, strings.ToUpper(gen.Snake(f.Name)))
	}
	if order != nil {
		b.declare(order.Name, e.File, e.Ident())
		b.declare(order.Field, e.File, e.Ident())
		o.Order = order
		b.p.Orders = append(b.p.Orders, order)
	}
}

// columnFilter returns the shared filter of the column type, or a dedicated
// one when the column restricts its operators.
func (b *builder) columnFilter(o *Object, c *gen.Column) *Filter {
	typ := b.columnType(c).Name()
	if c.Ops == gen.DefaultOps(c.Type, c.Cardinality) {
		name := typ + "Filter"
		if f, ok := b.filters[name]; ok {
			return f
		}
		f := &Filter{Name: name, Type: typ, Ops: c.Ops}
		b.declare(name, c.Entity.File, c.Element())
		b.filters[name] = f
		b.p.Filters = append(b.p.Filters, f)
		return f
	}
	f := &Filter{Name: o.Name + gen.Pascal(c.APIName) + "Filter", Type: typ, Ops: c.Ops}
	b.declare(f.Name, c.Entity.File, c.Element())
	b.p.Filters = append(b.p.Filters, f)
	return f
}

func (b *builder) accessors(o *Object) {
	for _, r := range o.Entity.Relations {
		target := b.objects[r.Target]
		if !r.Keyed() || target == nil {
			b.log.Debug("relation accessor omitted", "relation", r.Element(), "target", r.Target.Ident())
			continue
		}
		a := &Accessor{
			Relation:       r,
			Name:           gen.Camel(r.Name),
			Loader:         b.loader(r, target),
			ConnectionName: gen.Camel(r.Name) + "Connection",
			Connection:     target.Connection,
			Args:           b.connectionArgs(target),
		}
		if r.Kind == gen.BelongsTo {
			a.Source = r.Owner.Column(r.ForeignKey)
		} else {
			a.Source = r.Owner.Column(r.References)
		}
		if r.Unique() {
			a.Type = ast.NamedType(target.Name, nil)
		} else {
			a.Type = ast.NonNullListType(ast.NonNullNamedType(target.Name, nil), nil)
		}
		for _, name := range []string{a.Name, a.ConnectionName} {
			if o.Field(name) != nil || o.accessor(name) {
				b.report(o.Entity.File, r.Element(), "field name %q already used on %s", name, o.Name)
			}
		}
		o.Accessors = append(o.Accessors, a)
	}
}

func (o *Object) accessor(name string) bool {
	for _, a := range o.Accessors {
		if a.Name == name || a.ConnectionName == name {
			return true
		}
	}
	return false
}

// loader returns the loader a relation reads through, shared by every
// relation with the same target, key column and join.
func (b *builder) loader(r *gen.Relation, target *Object) *Loader {
	k := loaderKey{target: r.Target}
	switch r.Kind {
	case gen.BelongsTo:
		k.key = r.Target.Column(r.References)
	case gen.ManyToMany:
		k.key, k.through = r.Through.Column(r.ForeignKey), r.Through
	default:
		k.key = r.Target.Column(r.ForeignKey)
	}
	if l, ok := b.loaders[k]; ok {
		return l
	}
	l := &Loader{Target: r.Target, Object: target, Key: k.key, Through: k.through, Unique: r.Unique()}
	name := target.Name
	if !l.Unique {
		name = gen.Pascal(gen.Plural(gen.Snake(target.Name)))
	}
	l.Name = name + "By" + gen.Pascal(k.key.StorageName)
	if k.through != nil {
		l.Name += "Via" + b.objectName(k.through)
	}
	b.loaders[k] = l
	b.p.Loaders = append(b.p.Loaders, l)
	return l
}

func (b *builder) objectName(e *gen.Entity) string {
	if o := b.objects[e]; o != nil {
		return o.Name
	}
	return e.API
}

func (b *builder) connectionArgs(o *Object) []*Argument {
	args := []*Argument{
		{Name: "first", Type: ast.NamedType("Int", nil)},
		{Name: "after", Type: ast.NamedType(CursorScalar, nil)},
	}
	if o.Filter != nil {
		args = append(args, &Argument{Name: "filter", Type: ast.NamedType(o.Filter.Name, nil)})
	}
	if o.Order != nil {
		args = append(args, &Argument{Name: "orderBy", Type: ast.NamedType(o.Order.Name, nil)})
	}
	return args
}

func (b *builder) operation(m *gen.Method) {
	if m.Input == nil || m.Output == nil {
		return
	}
	op := &Operation{Kind: m.API.Kind, Name: m.API.Name, Method: m}
	if s := b.sp.Service(m.Service.Ident()); s != nil && !m.StorageSkip {
		op.Storage = s.Operation(m.StorageName)
	}
	if o := b.objects[m.Entity]; o != nil && m.Operation == options.OpList {
		op.Connection = o.Connection
		op.Args = b.connectionArgs(o)
		op.Type = ast.NonNullNamedType(o.Connection.Name, nil)
		b.p.Operations = append(b.p.Operations, op)
		return
	}
	if len(m.Input.Fields) > 0 {
		op.Args = []*Argument{{Name: "input", Type: ast.NonNullNamedType(b.input(m.Input).Name, nil)}}
	}
	switch o := b.objects[m.Output.Entity]; {
	case o != nil:
		op.Type = ast.NamedType(o.Name, nil)
		op.Type.NonNull = m.Operation != options.OpGet
	case len(m.Output.Fields) == 0:
		op.Type = ast.NonNullNamedType("Boolean", nil)
	default:
		op.Type = ast.NonNullNamedType(b.payload(m.Output).Name, nil)
	}
	b.p.Operations = append(b.p.Operations, op)
}

// payload returns the output object of a message that is not a node.
func (b *builder) payload(m *gen.Message) *Object {
	if o, ok := b.payloads[m]; ok {
		return o
	}
	o := &Object{Name: m.Name, Message: m}
	if t := m.Options.Type; t != nil && t.Name != "" {
		o.Name = t.Name
	}
	b.declare(o.Name, m.File, m.Ident())
	b.payloads[m] = o
	b.p.Payloads = append(b.p.Payloads, o)
	for _, f := range apiFields(m) {
		typ := b.fieldType(f, func(ref *gen.Message) string {
			if n := b.objects[ref.Entity]; n != nil {
				return n.Name
			}
			return b.payload(ref).Name
		})
		if f.Cardinality == gen.Scalar {
			typ.NonNull = true
		}
		o.Fields = append(o.Fields, &Field{Name: apiName(f), Type: typ, MessageField: f})
	}
	return o
}

// input returns the input object of a request message. Fields are nullable
// unless a required rule is declared on them.
func (b *builder) input(m *gen.Message) *Input {
	if in, ok := b.inputs[m]; ok {
		return in
	}
	name, ok := strings.CutSuffix(m.Name, "Request")
	if !ok || name == "" {
		name = m.Name
	}
	in := &Input{Name: name + "Input", Message: m}
	b.declare(in.Name, m.File, m.Ident())
	b.inputs[m] = in
	b.p.Inputs = append(b.p.Inputs, in)
	for _, f := range apiFields(m) {
		typ := b.fieldType(f, func(ref *gen.Message) string { return b.input(ref).Name })
		if v := f.Options.Validate; v != nil && v.Rules != nil && v.Rules.Required && f.Cardinality != gen.Repeated {
			typ.NonNull = true
		}
		in.Fields = append(in.Fields, &Field{Name: apiName(f), Type: typ, MessageField: f})
	}
	return in
}

func apiFields(m *gen.Message) []*gen.MessageField {
	var fields []*gen.MessageField
	for _, f := range m.Fields {
		if g := f.Options.GraphQL; g != nil && g.Skip {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func apiName(f *gen.MessageField) string {
	if g := f.Options.GraphQL; g != nil && g.Name != "" {
		return g.Name
	}
	return gen.Camel(f.Name)
}

// fieldType maps a message field. Scalar fields are nullable; callers
// decide on presence.
func (b *builder) fieldType(f *gen.MessageField, message func(*gen.Message) string) *ast.Type {
	var name string
	switch {
	case f.Type == gen.TypeEnum && f.Enum != nil:
		name = b.enum(f.Enum).Name
	case f.Type == gen.TypeMessage && f.Ref != nil && len(apiFields(f.Ref)) > 0:
		name = message(f.Ref)
	default:
		name = scalar(f.Type)
	}
	if f.Cardinality == gen.Repeated {
		return ast.NonNullListType(ast.NonNullNamedType(name, nil), nil)
	}
	return ast.NamedType(name, nil)
}

// columnType maps a column of a node object.
func (b *builder) columnType(c *gen.Column) *ast.Type {
	var name string
	switch {
	case c.PrimaryKey:
		name = "ID"
	case c.Embed:
		name = JSONScalar
	case c.Type == gen.TypeEnum && c.Enum != nil:
		name = b.enum(c.Enum).Name
	default:
		name = scalar(c.Type)
	}
	switch c.Cardinality {
	case gen.Repeated:
		return ast.NonNullListType(ast.NonNullNamedType(name, nil), nil)
	case gen.Optional:
		return ast.NamedType(name, nil)
	}
	return ast.NonNullNamedType(name, nil)
}

func scalar(t gen.Type) string {
	switch t {
	case gen.TypeBool:
		return "Boolean"
	case gen.TypeInt32, gen.TypeInt64, gen.TypeUint32, gen.TypeUint64:
		return "Int"
	case gen.TypeFloat32, gen.TypeFloat64:
		return "Float"
	case gen.TypeTime:
		return TimeScalar
	case gen.TypeString, gen.TypeBytes:
		return "String"
	}
	return JSONScalar
}

func (b *builder) enum(e *gen.Enum) *Enum {
	if en, ok := b.enums[e]; ok {
		return en
	}
	en := &Enum{Name: e.Name, Enum: e}
	for _, v := range e.Values {
		if !v.Skip {
			en.Values = append(en.Values, v.Name)
		}
	}
	b.declare(en.Name, e.File, e.Ident())
	b.enums[e] = en
	b.p.Enums = append(b.p.Enums, en)
	return en
}
