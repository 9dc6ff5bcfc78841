package gen

import (
	"log/slog"

	"github.com/syssam/synapse/compiler/load"
	"github.com/syssam/synapse/compiler/options"
)

// Build converts a schema set into the intermediate representation. It never
// stops at the first defect: the returned graph is best effort and the
// diagnostics list every problem found. Relations are recorded as declared;
// Resolve completes them.
func Build(fs *load.FileSet, cfg *Config) (*Graph, Diagnostics) {
	if cfg == nil {
		cfg, _ = NewConfig()
	}
	b := &builder{
		cfg: cfg,
		log: cfg.Logger,
		g: &Graph{
			Config:   cfg,
			messages: make(map[string]*Message),
			entities: make(map[string]*Entity),
			enums:    make(map[string]*Enum),
		},
		raw: make(map[*Message]*load.Message),
	}
	// Identities of every file are collected before any reference is
	// resolved, so the file order never matters.
	for _, f := range fs.Files {
		b.g.Files = append(b.g.Files, f.Name)
		b.collect(f)
	}
	for _, m := range b.g.Messages {
		b.fields(m)
	}
	for _, m := range b.g.Messages {
		if m.Options.Entity != nil {
			b.entity(m)
		}
	}
	b.tables()
	for _, f := range fs.Files {
		for _, s := range f.Services {
			b.service(f, s)
		}
	}
	b.operations()
	b.c.list.Sort()
	return b.g, b.c.list
}

type builder struct {
	cfg *Config
	log *slog.Logger
	g   *Graph
	c   collector
	raw map[*Message]*load.Message
}

func (b *builder) collect(f *load.File) {
	for _, lm := range f.Messages {
		ident := load.Qualify(f.Package, lm.Name)
		opts, errs := options.DecodeMessage(ident, lm.Extensions)
		b.c.malformed(f.Name, errs)
		m := &Message{File: f.Name, Package: f.Package, Name: lm.Name, Options: opts}
		if prev, ok := b.g.messages[ident]; ok {
			b.c.add(DuplicateName, f.Name, ident, "message already declared in %s", prev.File)
			continue
		}
		b.g.messages[ident] = m
		b.g.Messages = append(b.g.Messages, m)
		b.raw[m] = lm
	}
	for _, le := range f.Enums {
		ident := load.Qualify(f.Package, le.Name)
		opts, errs := options.DecodeEnum(ident, le.Extensions)
		b.c.malformed(f.Name, errs)
		e := &Enum{File: f.Name, Package: f.Package, Name: le.Name, Storage: options.EnumAsString}
		if s := opts.Storage; s != nil {
			e.Skip = s.Skip
			if s.StorageType != "" {
				e.Storage = s.StorageType
			}
		}
		for _, lv := range le.Values {
			vopts, errs := options.DecodeEnumValue(ident+"."+lv.Name, lv.Extensions)
			b.c.malformed(f.Name, errs)
			v := &EnumValue{Name: lv.Name, Number: lv.Number, StringValue: lv.Name, IntValue: lv.Number}
			if s := vopts.Storage; s != nil {
				if s.StringValue != "" {
					v.StringValue = s.StringValue
				}
				if s.IntValue != nil {
					v.IntValue = *s.IntValue
				}
				v.Default, v.Skip = s.Default, s.Skip
			}
			e.Values = append(e.Values, v)
		}
		if _, ok := b.g.enums[ident]; ok {
			b.c.add(DuplicateName, f.Name, ident, "enum already declared")
			continue
		}
		if _, ok := b.g.messages[ident]; ok {
			b.c.add(DuplicateName, f.Name, ident, "enum name collides with a message")
			continue
		}
		b.g.enums[ident] = e
		b.g.Enums = append(b.g.Enums, e)
	}
}

func (b *builder) fields(m *Message) {
	for _, lf := range b.raw[m].Fields {
		f := &MessageField{
			Message:     m,
			Name:        lf.Name,
			Number:      lf.Number,
			Type:        parseType(lf.Type, lf.TypeName),
			Cardinality: cardinalityOf(lf.Label),
		}
		opts, errs := options.DecodeField(f.Element(), lf.Extensions)
		b.c.malformed(m.File, errs)
		f.Options = opts
		m.Fields = append(m.Fields, f)
		switch f.Type {
		case TypeInvalid:
			b.c.add(UnknownType, m.File, f.Element(), "unknown scalar type %q", lf.Type)
		case TypeEnum:
			if e, name, ok := lookup(b.g.enums, m.Package, lf.TypeName); ok {
				f.Enum, f.TypeName = e, name
			} else {
				b.c.add(UnknownType, m.File, f.Element(), "enum %q not found from package %q", lf.TypeName, m.Package)
			}
		case TypeMessage:
			ref, name, ok := lookup(b.g.messages, m.Package, lf.TypeName)
			if ok {
				f.Ref, f.TypeName = ref, name
				break
			}
			f.TypeName = lf.TypeName
			// Unresolved relation targets are reported by the resolver.
			if opts.Relation == nil {
				b.c.add(UnknownType, m.File, f.Element(), "message %q not found from package %q", lf.TypeName, m.Package)
			}
		case TypeTime:
			f.TypeName = timestamp
		}
	}
}

func (b *builder) entity(m *Message) {
	opts := m.Options.Entity
	e := &Entity{
		Message: m,
		File:    m.File,
		Package: m.Package,
		Name:    m.Name,
		Table:   opts.TableName,
		Skip:    opts.Skip,
		API:     m.Name,
	}
	if e.Table == "" {
		e.Table = Snake(m.Name)
	}
	if t := m.Options.Type; t != nil && t.Name != "" {
		e.API = t.Name
	}
	e.Node = !e.Skip && m.Options.Type.IsNode()
	m.Entity = e
	b.g.entities[e.Ident()] = e
	b.g.Entities = append(b.g.Entities, e)

	for _, r := range opts.Relations {
		b.declare(e, r, nil)
	}
	var pks []*Column
	for _, f := range m.Fields {
		if r := f.Options.Relation; r != nil {
			b.declare(e, r, f)
			continue
		}
		c := b.column(e, f)
		e.Columns = append(e.Columns, c)
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	if len(pks) == 1 {
		e.ID = pks[0]
	} else {
		names := make([]string, len(pks))
		for i, c := range pks {
			names[i] = c.Name
		}
		b.c.add(DuplicatePrimaryKey, e.File, e.Ident(), "entity has %d primary key columns %v, exactly one is required", len(pks), names)
	}
	b.uniqueNames(e)
	b.log.Debug("entity materialized", "entity", e.Ident(), "table", e.Table, "skip", e.Skip, "columns", len(e.Columns))
}

func (b *builder) column(e *Entity, f *MessageField) *Column {
	copts, gopts := f.Options.Column, f.Options.GraphQL
	c := &Column{
		Entity:      e,
		Field:       f,
		Name:        f.Name,
		StorageName: Snake(f.Name),
		APIName:     Camel(f.Name),
		Type:        f.Type,
		TypeName:    f.TypeName,
		Enum:        f.Enum,
		Cardinality: f.Cardinality,
	}
	if copts != nil {
		c.PrimaryKey = copts.PrimaryKey
		c.AutoIncrement = copts.ResolveAutoIncrement(f.Type.Integral())
		c.Unique = copts.Unique || copts.PrimaryKey
		c.Embed = copts.Embed
		c.Default, c.DefaultExpr = copts.DefaultValue, copts.DefaultExpr
		c.ColumnType, c.Hints = copts.ColumnType, copts.TypeHints
		if copts.ColumnName != "" {
			c.StorageName = copts.ColumnName
		}
		if copts.AutoIncrement != nil && *copts.AutoIncrement && !(c.PrimaryKey && f.Type.Integral()) {
			b.c.add(InvalidColumn, e.File, c.Element(), "auto_increment requires an integral primary key, got %s (primary_key=%t)", f.Type, c.PrimaryKey)
		}
		if c.PrimaryKey && c.Cardinality != Scalar {
			b.c.add(InvalidColumn, e.File, c.Element(), "primary key cannot be optional or repeated")
		}
		if c.Default != "" && c.DefaultExpr != "" {
			b.c.add(InvalidColumn, e.File, c.Element(), "default_value and default_expr are mutually exclusive")
		}
	}
	if f.Type == TypeMessage && !c.Embed {
		b.c.add(InvalidColumn, e.File, c.Element(), "message-typed field needs embed or a relation declaration")
	}
	c.Ops = DefaultOps(c.Type, c.Cardinality)
	c.Orderable = c.Cardinality != Repeated && (c.Type.Numeric() || c.Type == TypeString || c.Type == TypeTime)
	if gopts != nil {
		c.APISkip = gopts.Skip
		if gopts.Name != "" {
			c.APIName = gopts.Name
		}
		if len(gopts.Operators) > 0 {
			ops := options.ParseOperators(gopts.Operators)
			if extra := ops &^ c.Ops; extra != 0 {
				b.c.add(MalformedOption, e.File, c.Element(), "%s: operators %s are not applicable to a %s column", options.GraphQLField, extra, c.Type)
			}
			c.Ops = ops & c.Ops
		}
		if o := gopts.OrderBy; o != nil {
			if *o && !c.Orderable {
				b.c.add(MalformedOption, e.File, c.Element(), "%s: a %s column cannot be an ordering key", options.GraphQLField, c.Type)
			}
			c.Orderable = *o && c.Orderable
		}
	}
	return c
}

func (b *builder) declare(e *Entity, r *options.RelationOptions, f *MessageField) {
	d := &Declaration{
		Owner:      e,
		Name:       r.Name,
		Kind:       kindOf(r.Type),
		Target:     r.Related,
		ForeignKey: r.ForeignKey,
		References: r.References,
		Through:    r.Through,
		Inverse:    r.Inverse,
		Field:      f,
	}
	if f != nil {
		if d.Name == "" {
			d.Name = f.Name
		}
		if d.Target == "" {
			if f.Type != TypeMessage {
				b.c.add(MalformedOption, e.File, f.Element(), "%s: a relation on a %s field must name its related entity", options.Relation, f.Type)
				return
			}
			d.Target = f.TypeName
			if f.Ref != nil {
				d.Target = "." + f.TypeName
			}
		}
	}
	e.Declarations = append(e.Declarations, d)
}

// uniqueNames reports columns and relations of one entity competing for the
// same storage or field name.
func (b *builder) uniqueNames(e *Entity) {
	storage := make(map[string]*Column, len(e.Columns))
	names := make(map[string]bool, len(e.Columns)+len(e.Declarations))
	for _, c := range e.Columns {
		if prev, ok := storage[c.StorageName]; ok {
			b.c.add(DuplicateName, e.File, c.Element(), "column name %q already used by field %q", c.StorageName, prev.Name)
		}
		storage[c.StorageName] = c
		names[c.Name] = true
	}
	for _, d := range e.Declarations {
		if names[d.Name] {
			b.c.add(DuplicateName, e.File, d.Element(), "relation name %q already used by a column or relation", d.Name)
		}
		names[d.Name] = true
	}
}

// tables reports table names declared twice within a package.
func (b *builder) tables() {
	seen := make(map[[2]string]*Entity)
	for _, e := range b.g.Entities {
		k := [2]string{e.Package, e.Table}
		if prev, ok := seen[k]; ok {
			b.c.add(DuplicateName, e.File, e.Ident(), "table %q already used by %s", e.Table, prev.Ident())
			continue
		}
		seen[k] = e
	}
}

func (b *builder) service(f *load.File, ls *load.Service) {
	ident := load.Qualify(f.Package, ls.Name)
	opts, errs := options.DecodeService(ident, ls.Extensions)
	b.c.malformed(f.Name, errs)
	if opts.Storage == nil && opts.GRPC == nil && opts.GraphQL == nil {
		return
	}
	s := &Service{
		File:        f.Name,
		Package:     f.Package,
		Name:        ls.Name,
		Options:     opts,
		Storage:     opts.Storage.Generates(),
		StorageName: ls.Name + b.cfg.StorageSuffix,
		RPC:         opts.GRPC != nil && !opts.GRPC.Skip,
		ServerName:  ls.Name + b.cfg.ServerSuffix,
		API:         opts.GraphQL != nil && !opts.GraphQL.Skip,
	}
	if opts.Storage != nil && opts.Storage.TraitName != "" {
		s.StorageName = opts.Storage.TraitName
	}
	if opts.GRPC != nil && opts.GRPC.StructName != "" {
		s.ServerName = opts.GRPC.StructName
	}
	for _, lm := range ls.Methods {
		s.Methods = append(s.Methods, b.method(s, lm))
	}
	b.methodNames(s)
	b.g.Services = append(b.g.Services, s)
}

// methodNames reports methods of one service sharing a storage operation
// or an RPC handler name. Skipped methods take no name.
func (b *builder) methodNames(s *Service) {
	storage := make(map[string]*Method)
	handlers := make(map[string]*Method)
	for _, m := range s.Methods {
		if s.Storage && !m.StorageSkip {
			if prev, ok := storage[m.StorageName]; ok {
				b.c.add(DuplicateName, s.File, m.Element(), "storage operation %q already used by %s", m.StorageName, prev.Element())
			} else {
				storage[m.StorageName] = m
			}
		}
		if s.RPC && !m.RPCSkip {
			if prev, ok := handlers[m.RPCName]; ok {
				b.c.add(DuplicateName, s.File, m.Element(), "rpc handler %q already used by %s", m.RPCName, prev.Element())
			} else {
				handlers[m.RPCName] = m
			}
		}
	}
}

func (b *builder) method(s *Service, lm *load.Method) *Method {
	m := &Method{
		Service:         s,
		Name:            lm.Name,
		StorageName:     lm.Name,
		RPCName:         lm.Name,
		ClientStreaming: lm.ClientStreaming,
		ServerStreaming: lm.ServerStreaming,
	}
	opts, errs := options.DecodeMethod(m.Element(), lm.Extensions)
	b.c.malformed(s.File, errs)
	m.Options = opts

	for _, ref := range []struct {
		name string
		dst  **Message
		what string
	}{{lm.InputType, &m.Input, "request"}, {lm.OutputType, &m.Output, "response"}} {
		msg, _, ok := lookup(b.g.messages, s.Package, ref.name)
		if !ok {
			b.c.add(UnknownType, s.File, m.Element(), "%s message %q not found from package %q", ref.what, ref.name, s.Package)
			continue
		}
		*ref.dst = msg
	}

	op, entity := inferOperation(lm.Name)
	explicitOp, explicitEntity := false, false
	if so := opts.Storage; so != nil {
		m.StorageSkip = so.Skip
		if so.MethodName != "" {
			m.StorageName = so.MethodName
		}
		if so.Operation != "" {
			op, explicitOp = so.Operation, true
		}
		if so.EntityName != "" {
			entity, explicitEntity = so.EntityName, true
		}
	}
	m.Operation = op
	switch {
	case entity != "":
		if e, _, ok := lookup(b.g.entities, s.Package, entity); ok {
			m.Entity = e
		} else if explicitEntity || (explicitOp && op != options.OpCustom) {
			b.c.add(UnknownType, s.File, m.Element(), "entity %q not found from package %q", entity, s.Package)
		} else {
			b.log.Debug("operation inference fell back to custom", "method", m.Element(), "entity", entity, "inferred", op)
			m.Operation = options.OpCustom
		}
	case op != options.OpCustom:
		b.c.add(UnknownType, s.File, m.Element(), "operation %s requires an entity; set entity_name", op)
	}

	if g := opts.GRPC; g != nil {
		m.RPCSkip = g.Skip
		if g.MethodName != "" {
			m.RPCName = g.MethodName
		}
	}
	m.API = b.binding(s, m)
	return m
}

func (b *builder) binding(s *Service, m *Method) *APIBinding {
	if s.Options.GraphQL != nil && s.Options.GraphQL.Skip {
		return nil
	}
	declared := []struct {
		kind OperationKind
		opts *options.GraphQLOperationOptions
	}{
		{QueryOperation, m.Options.Query},
		{MutationOperation, m.Options.Mutation},
		{SubscriptionOperation, m.Options.Subscription},
	}
	for _, d := range declared {
		if d.opts == nil {
			continue
		}
		if d.opts.Skip {
			return nil
		}
		name := d.opts.Name
		if name == "" {
			name = Camel(m.Name)
		}
		return &APIBinding{Kind: d.kind, Name: name}
	}
	if !s.API {
		return nil
	}
	if kind := inferAPIKind(m.Operation); kind != NoOperation {
		b.log.Debug("root operation inferred", "method", m.Element(), "kind", kind)
		return &APIBinding{Kind: kind, Name: Camel(m.Name), Inferred: true}
	}
	return nil
}

// operations reports root operations of the same kind sharing a name.
func (b *builder) operations() {
	seen := make(map[[2]string]*Method)
	for _, s := range b.g.Services {
		for _, m := range s.Methods {
			if m.API == nil {
				continue
			}
			k := [2]string{m.API.Kind.String(), m.API.Name}
			if prev, ok := seen[k]; ok {
				b.c.add(DuplicateName, s.File, m.Element(), "%s field %q already bound to %s", m.API.Kind, m.API.Name, prev.Element())
				continue
			}
			seen[k] = m
		}
	}
}
