package golang

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/validate"
)

// domainFile renders one domain type per validation plan, with the method
// converting the request message into it.
func (gr *Generator) domainFile() *jen.File {
	f := gr.newFile()
	for _, p := range gr.domains {
		gr.domain(f, p)
	}
	return f
}

func (gr *Generator) domain(f *jen.File, p *validate.Plan) {
	msg := gr.messages[p.Message]
	f.Commentf("%s is the validated form of %s.", p.DomainType, p.Message.Ident())
	f.Type().Id(p.DomainType).StructFunc(func(group *jen.Group) {
		for _, fp := range p.Fields {
			group.Id(fp.Name).Add(gr.domainType(fp))
		}
	})

	var checks []jen.Code
	for _, fp := range p.Fields {
		for i := range fp.Rules {
			if r := &fp.Rules[i]; r.Kind == validate.Pattern {
				f.Var().Id(patternVar(p, fp)).Op("=").Qual("regexp", "MustCompile").Call(jen.Lit(r.Pattern.String()))
			}
		}
		checks = append(checks, gr.checks(p, fp)...)
	}

	values := jen.Dict{}
	for _, fp := range p.Fields {
		v := jen.Id("r").Dot(gen.Pascal(fp.Field.Name))
		if override(fp) {
			conv := jen.Id(fp.Type)
			if pointer(fp.Field) {
				conv = jen.Parens(jen.Op("*").Id(fp.Type))
			}
			v = conv.Call(v)
		}
		values[jen.Id(fp.Name)] = v
	}

	f.Commentf("To%s checks every rule of %s and returns the domain value.", p.DomainType, p.Message.Ident())
	f.Comment("All failures are returned together as a *synapse.ValidationError.")
	f.Func().Params(jen.Id("r").Op("*").Id(msg)).Id("To"+p.DomainType).Params().Params(jen.Op("*").Id(p.DomainType), jen.Error()).BlockFunc(func(group *jen.Group) {
		group.Var().Id("errs").Index().Op("*").Qual(runtimePkg, "FieldError")
		for _, c := range checks {
			group.Add(c)
		}
		group.If(
			jen.Err().Op(":=").Qual(runtimePkg, "NewValidationError").Call(jen.Lit(p.DomainType), jen.Id("errs").Op("...")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Nil(), jen.Err()))
		group.Return(jen.Op("&").Id(p.DomainType).Values(values), jen.Nil())
	})
}

// override reports whether the domain field declares its own type. Only
// single values convert to it.
func override(fp *validate.FieldPlan) bool {
	return fp.Type != "" && fp.Field.Cardinality != gen.Repeated
}

func (gr *Generator) domainType(fp *validate.FieldPlan) jen.Code {
	if !override(fp) {
		return gr.fieldType(fp.Field)
	}
	if pointer(fp.Field) {
		return jen.Op("*").Id(fp.Type)
	}
	return jen.Id(fp.Type)
}

func patternVar(p *validate.Plan, fp *validate.FieldPlan) string {
	return gen.Camel(p.DomainType) + gen.Pascal(fp.Field.Name) + "Pattern"
}

// checks renders the rules of one field in plan order. Absent or empty
// optional values skip every rule; absent required values run the required
// rule only.
func (gr *Generator) checks(p *validate.Plan, fp *validate.FieldPlan) []jen.Code {
	f := fp.Field
	val := func() *jen.Statement { return jen.Id("r").Dot(gen.Pascal(f.Name)) }
	elem := val
	if pointer(f) && f.Type != gen.TypeMessage {
		elem = func() *jen.Statement { return jen.Op("*").Add(val()) }
	}
	fail := func(r *validate.Rule) jen.Code {
		return jen.Id("errs").Op("=").Append(jen.Id("errs"), jen.Op("&").Qual(runtimePkg, "FieldError").Values(jen.Dict{
			jen.Id("Code"):    jen.Lit(r.Kind.String()),
			jen.Id("Field"):   jen.Lit(f.Name),
			jen.Id("Message"): jen.Lit(r.Text()),
		}))
	}

	var (
		out   []jen.Code
		rules []jen.Code
	)
	for i := range fp.Rules {
		r := &fp.Rules[i]
		if r.Kind == validate.Required {
			if cond := emptyCond(f, val); cond != nil {
				out = append(out, jen.If(cond).Block(fail(r)))
			}
			continue
		}
		if cond := failCond(p, fp, r, elem); cond != nil {
			rules = append(rules, jen.If(cond).Block(fail(r)))
		}
	}
	if len(rules) == 0 {
		return out
	}
	var guard jen.Code
	switch {
	case fp.Optional:
		guard = presentCond(f, val)
	case pointer(f):
		guard = val().Op("!=").Nil()
	}
	if guard == nil {
		return append(out, rules...)
	}
	return append(out, jen.If(guard).Block(rules...))
}

// emptyCond returns the condition of an absent or empty value, or nil when
// the value is never empty.
func emptyCond(f *gen.MessageField, val func() *jen.Statement) jen.Code {
	switch {
	case pointer(f) && f.Type == gen.TypeString:
		return val().Op("==").Nil().Op("||").Op("*").Add(val()).Op("==").Lit("")
	case pointer(f):
		return val().Op("==").Nil()
	case f.Cardinality == gen.Repeated || f.Type == gen.TypeBytes:
		return jen.Len(val()).Op("==").Lit(0)
	case f.Type == gen.TypeString:
		return val().Op("==").Lit("")
	}
	return nil
}

// presentCond negates emptyCond.
func presentCond(f *gen.MessageField, val func() *jen.Statement) jen.Code {
	switch {
	case pointer(f) && f.Type == gen.TypeString:
		return val().Op("!=").Nil().Op("&&").Op("*").Add(val()).Op("!=").Lit("")
	case pointer(f):
		return val().Op("!=").Nil()
	case f.Cardinality == gen.Repeated || f.Type == gen.TypeBytes:
		return jen.Len(val()).Op(">").Lit(0)
	case f.Type == gen.TypeString:
		return val().Op("!=").Lit("")
	}
	return nil
}

// failCond returns the condition under which a non-required rule fails.
func failCond(p *validate.Plan, fp *validate.FieldPlan, r *validate.Rule, elem func() *jen.Statement) jen.Code {
	switch r.Kind {
	case validate.Email:
		return jen.Op("!").Qual(runtimePkg, "IsEmail").Call(elem())
	case validate.URL:
		return jen.Op("!").Qual(runtimePkg, "IsURL").Call(elem())
	case validate.UUID:
		return jen.Op("!").Qual(runtimePkg, "IsUUID").Call(elem())
	case validate.Pattern:
		return jen.Op("!").Id(patternVar(p, fp)).Dot("MatchString").Call(elem())
	case validate.Length:
		n := func() *jen.Statement { return jen.Len(elem()) }
		if fp.Field.Type == gen.TypeString && fp.Field.Cardinality != gen.Repeated {
			n = func() *jen.Statement { return jen.Qual("unicode/utf8", "RuneCountInString").Call(elem()) }
		}
		if r.Equal != nil {
			return n().Op("!=").Lit(int(*r.Equal))
		}
		var conds []*jen.Statement
		if r.Min != nil {
			conds = append(conds, n().Op("<").Lit(int(*r.Min)))
		}
		if r.Max != nil {
			conds = append(conds, n().Op(">").Lit(int(*r.Max)))
		}
		return or(conds)
	case validate.Range:
		x := func() *jen.Statement { return jen.Float64().Call(elem()) }
		var conds []*jen.Statement
		if r.Lower != nil {
			conds = append(conds, x().Op("<").Lit(*r.Lower))
		}
		if r.Upper != nil {
			conds = append(conds, x().Op(">").Lit(*r.Upper))
		}
		return or(conds)
	}
	return nil
}

func or(conds []*jen.Statement) jen.Code {
	if len(conds) == 0 {
		return nil
	}
	c := conds[0]
	for _, next := range conds[1:] {
		c = c.Op("||").Add(next)
	}
	return c
}
