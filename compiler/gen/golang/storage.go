package golang

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
)

// primitive is a backend method the default implementation calls.
type primitive struct {
	name    string
	params  []jen.Code
	results []jen.Code
}

// storageFile renders the storage interface of a service, its backend, the
// default implementation and the override decorator.
func (gr *Generator) storageFile(sp *storage.ServicePlan) *jen.File {
	f := gr.newFile()
	backend := sp.Service.Name + "Backend"
	bodies := make(map[*storage.Operation][]jen.Code, len(sp.Operations))
	var (
		prims []*primitive
		seen  = make(map[string]bool)
	)
	for _, op := range sp.Operations {
		p, body := gr.defaultBody(op)
		if p == nil {
			body = []jen.Code{jen.Return(jen.Nil(), jen.Qual(runtimePkg, "NewNotImplementedError").Call(jen.Lit(op.Method.Service.Ident()+"."+op.Method.Name)))}
		} else if !seen[p.name] {
			seen[p.name] = true
			prims = append(prims, p)
		}
		bodies[op] = body
	}

	f.Commentf("%s is the storage of %s. Single operations are replaced through %s.", sp.Interface, sp.Service.Ident(), sp.Overrides)
	f.Type().Id(sp.Interface).InterfaceFunc(func(group *jen.Group) {
		for _, op := range sp.Operations {
			group.Id(op.Name).Params(gr.params(op)...).Params(gr.results(op)...)
		}
	})

	if len(prims) > 0 {
		f.Commentf("%s holds the record primitives of the default %s operations.", backend, sp.Interface)
		f.Type().Id(backend).InterfaceFunc(func(group *jen.Group) {
			for _, p := range prims {
				group.Id(p.name).Params(p.params...).Params(p.results...)
			}
		})
	}

	f.Commentf("%s implements every %s operation with its default behavior.", sp.Default, sp.Interface)
	f.Type().Id(sp.Default).StructFunc(func(group *jen.Group) {
		if len(prims) > 0 {
			group.Id("Backend").Id(backend)
		}
	})
	for _, op := range sp.Operations {
		f.Commentf("%s uses the %s strategy.", op.Name, op.Strategy.Kind)
		f.Func().Params(jen.Id("s").Op("*").Id(sp.Default)).Id(op.Name).Params(gr.params(op)...).Params(gr.results(op)...).Block(bodies[op]...)
	}

	f.Commentf("%s replaces the operations whose function is set and forwards the others to the embedded %s.", sp.Overrides, sp.Interface)
	f.Type().Id(sp.Overrides).StructFunc(func(group *jen.Group) {
		group.Id(sp.Interface)
		for _, op := range sp.Operations {
			group.Id(op.Name + "Func").Func().Params(gr.paramTypes(op)...).Params(gr.results(op)...)
		}
	})
	for _, op := range sp.Operations {
		fn := jen.Id("o").Dot(op.Name + "Func")
		f.Func().Params(jen.Id("o").Op("*").Id(sp.Overrides)).Id(op.Name).Params(gr.params(op)...).Params(gr.results(op)...).Block(
			jen.If(jen.Id("o").Dot(op.Name+"Func").Op("!=").Nil()).Block(
				jen.Return(fn.Call(jen.Id("ctx"), jen.Id("req"))),
			),
			jen.Return(jen.Id("o").Dot(sp.Interface).Dot(op.Name).Call(jen.Id("ctx"), jen.Id("req"))),
		)
	}

	f.Var().Defs(
		jen.Id("_").Id(sp.Interface).Op("=").Parens(jen.Op("*").Id(sp.Default)).Call(jen.Nil()),
		jen.Id("_").Id(sp.Interface).Op("=").Parens(jen.Op("*").Id(sp.Overrides)).Call(jen.Nil()),
	)
	return f
}

func (gr *Generator) params(op *storage.Operation) []jen.Code {
	return []jen.Code{
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("req").Op("*").Id(gr.messages[op.Request]),
	}
}

func (gr *Generator) paramTypes(op *storage.Operation) []jen.Code {
	return []jen.Code{jen.Qual("context", "Context"), jen.Op("*").Id(gr.messages[op.Request])}
}

func (gr *Generator) results(op *storage.Operation) []jen.Code {
	return []jen.Code{jen.Op("*").Id(gr.messages[op.Response]), jen.Error()}
}

// defaultBody returns the backend primitive and the body of the default
// implementation of op, or a nil primitive when the request or response
// cannot be mapped to the entity of the strategy.
func (gr *Generator) defaultBody(op *storage.Operation) (*primitive, []jen.Code) {
	st := op.Strategy
	if st.Kind == storage.Unimplemented || op.Entity == nil || st.Key == nil && st.Kind != storage.FilterPaginate {
		return nil, nil
	}
	em := op.Entity.Message
	ent := gr.messages[em]
	ctx := jen.Id("ctx").Qual("context", "Context")
	backend := func(name string) *jen.Statement { return jen.Id("s").Dot("Backend").Dot(name) }

	switch st.Kind {
	case storage.FindByKey:
		key, kt := gr.requestKey(op, st.Key)
		if key == nil {
			return nil, nil
		}
		p := &primitive{name: "Find" + ent, params: []jen.Code{ctx, jen.Id("key").Add(kt)}, results: entityResults(ent)}
		body := gr.respond(op, em, backend(p.name).Call(jen.Id("ctx"), key))
		return p, body
	case storage.FilterPaginate:
		pk := op.Entity.ID
		field := repeatedOf(op.Response, em)
		if field == nil || pk == nil {
			return nil, nil
		}
		p := &primitive{
			name: "List" + gen.Pascal(gen.Plural(gen.Snake(ent))),
			params: []jen.Code{
				ctx,
				jen.Id("after").Op("*").Add(gr.baseType(pk.Field)),
				jen.Id("limit").Int(),
			},
			results: []jen.Code{jen.Index().Op("*").Id(ent), jen.Error()},
		}
		return p, []jen.Code{
			jen.List(jen.Id("rows"), jen.Err()).Op(":=").Add(backend(p.name).Call(jen.Id("ctx"), jen.Nil(), jen.Lit(st.PageSize))),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Op("&").Id(gr.messages[op.Response]).Values(jen.Dict{jen.Id(gen.Pascal(field.Name)): jen.Id("rows")}), jen.Nil()),
		}
	case storage.Insert, storage.UpdateByKey:
		rec := gr.requestEntity(op, em)
		if rec == nil {
			return nil, nil
		}
		name := "Insert" + ent
		if st.Kind == storage.UpdateByKey {
			name = "Update" + ent
		}
		p := &primitive{name: name, params: []jen.Code{ctx, jen.Id("record").Op("*").Id(ent)}, results: entityResults(ent)}
		return p, gr.respond(op, em, backend(p.name).Call(jen.Id("ctx"), rec))
	case storage.DeleteByKey:
		key, kt := gr.requestKey(op, st.Key)
		if key == nil {
			return nil, nil
		}
		p := &primitive{name: "Delete" + ent, params: []jen.Code{ctx, jen.Id("key").Add(kt)}, results: []jen.Code{jen.Error()}}
		return p, []jen.Code{
			jen.If(jen.Err().Op(":=").Add(backend(p.name).Call(jen.Id("ctx"), key)), jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Op("&").Id(gr.messages[op.Response]).Values(), jen.Nil()),
		}
	}
	return nil, nil
}

func entityResults(ent string) []jen.Code {
	return []jen.Code{jen.Op("*").Id(ent), jen.Error()}
}

// requestKey returns the expression reading the key column from the request,
// and the key type. The request carries the key in a field of the same name
// and type, or is the entity itself.
func (gr *Generator) requestKey(op *storage.Operation, key *gen.Column) (jen.Code, jen.Code) {
	name := key.Field.Name
	f := op.Request.Field(name)
	if f == nil || f.Type != key.Field.Type || f.Cardinality != gen.Scalar || f.TypeName != key.Field.TypeName {
		return nil, nil
	}
	return jen.Id("req").Dot(gen.Pascal(name)), gr.baseType(key.Field)
}

// requestEntity returns the expression of the record carried by the request:
// the request itself, or its single field of the entity type.
func (gr *Generator) requestEntity(op *storage.Operation, em *gen.Message) jen.Code {
	if op.Request == em {
		return jen.Id("req")
	}
	if f := singleOf(op.Request, em); f != nil {
		return jen.Id("req").Dot(gen.Pascal(f.Name))
	}
	return nil
}

// respond returns the statements answering with the record call returns.
func (gr *Generator) respond(op *storage.Operation, em *gen.Message, call jen.Code) []jen.Code {
	if op.Response == em {
		return []jen.Code{jen.Return(call)}
	}
	f := singleOf(op.Response, em)
	if f == nil {
		return []jen.Code{
			jen.If(jen.List(jen.Id("_"), jen.Err()).Op(":=").Add(call), jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Return(jen.Op("&").Id(gr.messages[op.Response]).Values(), jen.Nil()),
		}
	}
	return []jen.Code{
		jen.List(jen.Id("record"), jen.Err()).Op(":=").Add(call),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Op("&").Id(gr.messages[op.Response]).Values(jen.Dict{jen.Id(gen.Pascal(f.Name)): jen.Id("record")}), jen.Nil()),
	}
}

// singleOf returns the first non-repeated field of m referencing ref.
func singleOf(m, ref *gen.Message) *gen.MessageField {
	for _, f := range m.Fields {
		if f.Ref == ref && f.Cardinality != gen.Repeated {
			return f
		}
	}
	return nil
}

// repeatedOf returns the first repeated field of m referencing ref.
func repeatedOf(m, ref *gen.Message) *gen.MessageField {
	for _, f := range m.Fields {
		if f.Ref == ref && f.Cardinality == gen.Repeated {
			return f
		}
	}
	return nil
}
