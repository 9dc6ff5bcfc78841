// Package golang renders Go source from the plans of one compilation: the
// models of the schema messages and enums, the storage interface of every
// service with its default implementation and override decorator, and the
// validated domain types with their conversions.
//
// Every file belongs to one package. Type names that collide across schema
// packages are qualified with their package name.
package golang

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/gen/storage"
	"github.com/syssam/synapse/compiler/options"
	"github.com/syssam/synapse/compiler/validate"
)

// runtimePkg holds the error contracts of rendered code.
const runtimePkg = "github.com/syssam/synapse"

// header marks rendered files.
const header = "Code generated by synapse. DO NOT EDIT."

// File is one rendered source file.
type File struct {
	Name string
	code *jen.File
}

// Source returns the gofmt-ed source of the file.
func (f *File) Source() ([]byte, error) {
	var b bytes.Buffer
	if err := f.code.Render(&b); err != nil {
		return nil, fmt.Errorf("golang: render %s: %w", f.Name, err)
	}
	return b.Bytes(), nil
}

// Generator renders the files of one compilation.
type Generator struct {
	pkg     string
	graph   *gen.Graph
	storage *storage.Plan
	domains []*validate.Plan

	messages map[*gen.Message]string
	enums    map[*gen.Enum]string
}

// New returns a generator rendering into the package configured on g.
func New(g *gen.Graph, sp *storage.Plan, domains []*validate.Plan) *Generator {
	gr := &Generator{
		pkg:      g.Config.Package,
		graph:    g,
		storage:  sp,
		domains:  domains,
		messages: make(map[*gen.Message]string),
		enums:    make(map[*gen.Enum]string),
	}
	gr.declare()
	return gr
}

// declare names every message and enum, qualifying the names declared by
// more than one schema package.
func (gr *Generator) declare() {
	count := make(map[string]int)
	for _, m := range gr.graph.Messages {
		count[gen.TypeName(m.Name)]++
	}
	for _, e := range gr.graph.Enums {
		count[gen.TypeName(e.Name)]++
	}
	name := func(pkg, n string) string {
		n = gen.TypeName(n)
		if count[n] > 1 && pkg != "" {
			return gen.Pascal(strings.ReplaceAll(pkg, ".", "_")) + n
		}
		return n
	}
	for _, m := range gr.graph.Messages {
		gr.messages[m] = name(m.Package, m.Name)
	}
	for _, e := range gr.graph.Enums {
		gr.enums[e] = name(e.Package, e.Name)
	}
}

// TypeName returns the Go type name of a message.
func (gr *Generator) TypeName(m *gen.Message) string { return gr.messages[m] }

// Files renders every file in a stable order: models, enums, one storage
// file per service and the domain types.
func (gr *Generator) Files() []*File {
	files := []*File{{Name: "models.go", code: gr.models()}}
	if code := gr.enumFile(); code != nil {
		files = append(files, &File{Name: "enums.go", code: code})
	}
	for _, sp := range gr.storage.Services {
		files = append(files, &File{Name: gen.Snake(sp.Interface) + ".go", code: gr.storageFile(sp)})
	}
	if len(gr.domains) > 0 {
		files = append(files, &File{Name: "domain.go", code: gr.domainFile()})
	}
	return files
}

func (gr *Generator) newFile() *jen.File {
	f := jen.NewFile(gr.pkg)
	f.HeaderComment(header)
	return f
}

// models renders one struct per message.
func (gr *Generator) models() *jen.File {
	f := gr.newFile()
	for _, m := range gr.graph.Messages {
		name := gr.messages[m]
		if e := m.Entity; e != nil && !e.Skip {
			f.Commentf("%s is the %s entity, stored in table %q.", name, m.Ident(), e.Table)
		} else {
			f.Commentf("%s is the %s message.", name, m.Ident())
		}
		f.Type().Id(name).StructFunc(func(group *jen.Group) {
			for _, fd := range m.Fields {
				group.Id(gen.Pascal(fd.Name)).Add(gr.fieldType(fd)).Tag(map[string]string{"json": fd.Name + ",omitempty"})
			}
		})
	}
	return f
}

// enumFile renders the generated enums, or nil without any.
func (gr *Generator) enumFile() *jen.File {
	f := gr.newFile()
	var n int
	for _, e := range gr.graph.Enums {
		if e.Skip {
			continue
		}
		n++
		name := gr.enums[e]
		f.Commentf("%s is the %s enumeration.", name, e.Ident())
		if e.Storage == options.EnumAsInteger {
			f.Type().Id(name).Int32()
		} else {
			f.Type().Id(name).String()
		}
		f.Const().DefsFunc(func(group *jen.Group) {
			for _, v := range e.Values {
				if v.Skip {
					continue
				}
				var val jen.Code = jen.Lit(v.StringValue)
				if e.Storage == options.EnumAsInteger {
					val = jen.Lit(int(v.IntValue))
				}
				group.Id(enumConst(name, e.Name, v.Name)).Id(name).Op("=").Add(val)
			}
		})
	}
	if n == 0 {
		return nil
	}
	return f
}

// enumConst returns the constant name of an enum value, without the enum
// prefix the value name may repeat.
//
//	Role, ROLE_ADMIN => RoleAdmin
//	Role, ADMIN      => RoleAdmin
func enumConst(typeName, enum, value string) string {
	v := strings.ToLower(value)
	if s, ok := strings.CutPrefix(v, gen.Snake(enum)+"_"); ok && s != "" {
		v = s
	}
	return typeName + gen.Pascal(v)
}

// fieldType returns the Go type of a message field.
func (gr *Generator) fieldType(f *gen.MessageField) *jen.Statement {
	t := gr.baseType(f)
	switch {
	case f.Cardinality == gen.Repeated:
		return jen.Index().Add(t)
	case f.Cardinality == gen.Optional && f.Type != gen.TypeMessage && f.Type != gen.TypeBytes:
		return jen.Op("*").Add(t)
	}
	return t
}

// baseType returns the element type of a message field.
func (gr *Generator) baseType(f *gen.MessageField) *jen.Statement {
	switch f.Type {
	case gen.TypeBool:
		return jen.Bool()
	case gen.TypeInt32:
		return jen.Int32()
	case gen.TypeInt64:
		return jen.Int64()
	case gen.TypeUint32:
		return jen.Uint32()
	case gen.TypeUint64:
		return jen.Uint64()
	case gen.TypeFloat32:
		return jen.Float32()
	case gen.TypeFloat64:
		return jen.Float64()
	case gen.TypeString:
		return jen.String()
	case gen.TypeBytes:
		return jen.Index().Byte()
	case gen.TypeTime:
		return jen.Qual("time", "Time")
	case gen.TypeEnum:
		if f.Enum != nil && !f.Enum.Skip {
			return jen.Id(gr.enums[f.Enum])
		}
		return jen.Int32()
	case gen.TypeMessage:
		if f.Ref != nil {
			return jen.Op("*").Id(gr.messages[f.Ref])
		}
	}
	return jen.Qual("encoding/json", "RawMessage")
}

// pointer reports whether the Go value of f is nil when absent.
func pointer(f *gen.MessageField) bool {
	if f.Cardinality == gen.Repeated {
		return false
	}
	return f.Type == gen.TypeMessage || f.Cardinality == gen.Optional && f.Type != gen.TypeBytes
}
