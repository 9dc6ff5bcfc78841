package graphql

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/synapse/compiler/gen"
)

// SDL renders the plan as a schema document and checks that it loads.
func (p *Plan) SDL() (string, error) {
	var b strings.Builder
	formatter.NewFormatter(&b).FormatSchemaDocument(p.Document())
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: b.String()}); err != nil {
		return "", fmt.Errorf("graphql: rendered schema does not load: %w", err)
	}
	return b.String(), nil
}

// Document returns the schema document of the plan.
func (p *Plan) Document() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	def := func(d *ast.Definition) { doc.Definitions = append(doc.Definitions, d) }
	for _, name := range []string{CursorScalar, TimeScalar, JSONScalar} {
		def(&ast.Definition{Kind: ast.Scalar, Name: name})
	}
	def(&ast.Definition{
		Kind:        ast.Interface,
		Name:        NodeInterface,
		Description: "An object with a globally unique ID.",
		Fields:      ast.FieldList{{Name: "id", Type: ast.NonNullNamedType("ID", nil)}},
	})
	def(&ast.Definition{
		Kind: ast.Object,
		Name: PageInfoType,
		Fields: ast.FieldList{
			{Name: "hasNextPage", Type: ast.NonNullNamedType("Boolean", nil)},
			{Name: "hasPreviousPage", Type: ast.NonNullNamedType("Boolean", nil)},
			{Name: "startCursor", Type: ast.NamedType(CursorScalar, nil)},
			{Name: "endCursor", Type: ast.NamedType(CursorScalar, nil)},
		},
	})
	def(enumDefinition(OrderDirection, []string{"ASC", "DESC"}))
	for _, e := range p.Enums {
		def(enumDefinition(e.Name, e.Values))
	}
	for _, o := range p.Objects {
		def(objectDefinition(o))
	}
	for _, o := range p.Payloads {
		def(objectDefinition(o))
	}
	for _, c := range p.Connections {
		def(&ast.Definition{
			Kind: ast.Object,
			Name: c.Name,
			Fields: ast.FieldList{
				{Name: "edges", Type: ast.NonNullListType(ast.NonNullNamedType(c.Edge, nil), nil)},
				{Name: "nodes", Type: ast.NonNullListType(ast.NonNullNamedType(c.Node.Name, nil), nil)},
				{Name: "pageInfo", Type: ast.NonNullNamedType(PageInfoType, nil)},
			},
		})
		def(&ast.Definition{
			Kind: ast.Object,
			Name: c.Edge,
			Fields: ast.FieldList{
				{Name: "node", Type: ast.NonNullNamedType(c.Node.Name, nil)},
				{Name: "cursor", Type: ast.NonNullNamedType(CursorScalar, nil)},
			},
		})
	}
	for _, f := range p.Filters {
		def(filterDefinition(f))
	}
	for _, o := range p.Orders {
		def(enumDefinition(o.Field, o.Values))
		def(&ast.Definition{
			Kind: ast.InputObject,
			Name: o.Name,
			Fields: ast.FieldList{
				{Name: "direction", Type: ast.NonNullNamedType(OrderDirection, nil), DefaultValue: &ast.Value{Kind: ast.EnumValue, Raw: "ASC"}},
				{Name: "field", Type: ast.NonNullNamedType(o.Field, nil)},
			},
		})
	}
	for _, in := range p.Inputs {
		d := &ast.Definition{Kind: ast.InputObject, Name: in.Name}
		for _, f := range in.Fields {
			d.Fields = append(d.Fields, &ast.FieldDefinition{Name: f.Name, Type: f.Type})
		}
		def(d)
	}
	for _, kind := range []gen.OperationKind{gen.QueryOperation, gen.MutationOperation, gen.SubscriptionOperation} {
		d := &ast.Definition{Kind: ast.Object, Name: kind.String()}
		for _, op := range p.Operations {
			if op.Kind == kind {
				d.Fields = append(d.Fields, &ast.FieldDefinition{Name: op.Name, Arguments: arguments(op.Args), Type: op.Type})
			}
		}
		if len(d.Fields) > 0 {
			def(d)
		}
	}
	return doc
}

func enumDefinition(name string, values []string) *ast.Definition {
	d := &ast.Definition{Kind: ast.Enum, Name: name}
	for _, v := range values {
		d.EnumValues = append(d.EnumValues, &ast.EnumValueDefinition{Name: v})
	}
	return d
}

func objectDefinition(o *Object) *ast.Definition {
	d := &ast.Definition{Kind: ast.Object, Name: o.Name}
	if o.Node {
		d.Interfaces = []string{NodeInterface}
	}
	for _, f := range o.Fields {
		d.Fields = append(d.Fields, &ast.FieldDefinition{Name: f.Name, Type: f.Type})
	}
	for _, a := range o.Accessors {
		d.Fields = append(d.Fields,
			&ast.FieldDefinition{Name: a.Name, Type: a.Type},
			&ast.FieldDefinition{Name: a.ConnectionName, Arguments: arguments(a.Args), Type: ast.NonNullNamedType(a.Connection.Name, nil)},
		)
	}
	return d
}

func filterDefinition(f *Filter) *ast.Definition {
	d := &ast.Definition{Kind: ast.InputObject, Name: f.Name}
	if f.Combinator() {
		d.Fields = ast.FieldList{
			{Name: "and", Type: ast.ListType(ast.NonNullNamedType(f.Name, nil), nil)},
			{Name: "or", Type: ast.ListType(ast.NonNullNamedType(f.Name, nil), nil)},
			{Name: "not", Type: ast.NamedType(f.Name, nil)},
		}
		for _, ff := range f.Fields {
			d.Fields = append(d.Fields, &ast.FieldDefinition{Name: ff.Name, Type: ast.NamedType(ff.Filter.Name, nil)})
		}
		return d
	}
	for _, op := range f.Ops.Names() {
		typ := ast.NamedType(f.Type, nil)
		switch op {
		case "in":
			typ = ast.ListType(ast.NonNullNamedType(f.Type, nil), nil)
		case "contains":
			typ = ast.NamedType("String", nil)
		}
		d.Fields = append(d.Fields, &ast.FieldDefinition{Name: op, Type: typ})
	}
	return d
}

func arguments(args []*Argument) ast.ArgumentDefinitionList {
	var list ast.ArgumentDefinitionList
	for _, a := range args {
		list = append(list, &ast.ArgumentDefinition{Name: a.Name, Type: a.Type})
	}
	return list
}
