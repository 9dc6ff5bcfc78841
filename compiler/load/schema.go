// Package load defines the structural input of the compiler: schema files
// that were already parsed by an external front end, together with the
// extension values attached to each element.
package load

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSet is the full, transitively closed set of schema files handed to
// one compilation.
type FileSet struct {
	Files []*File `json:"files" yaml:"files" msgpack:"files"`
}

// File is a single parsed schema file.
type File struct {
	Name         string     `json:"name" yaml:"name" msgpack:"name"`
	Package      string     `json:"package" yaml:"package" msgpack:"package"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty" msgpack:"dependencies,omitempty"`
	Messages     []*Message `json:"messages,omitempty" yaml:"messages,omitempty" msgpack:"messages,omitempty"`
	Enums        []*Enum    `json:"enums,omitempty" yaml:"enums,omitempty" msgpack:"enums,omitempty"`
	Services     []*Service `json:"services,omitempty" yaml:"services,omitempty" msgpack:"services,omitempty"`
}

// Message is a record definition.
type Message struct {
	Name       string     `json:"name" yaml:"name" msgpack:"name"`
	Fields     []*Field   `json:"fields,omitempty" yaml:"fields,omitempty" msgpack:"fields,omitempty"`
	Extensions Extensions `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// Field is a member of a message.
type Field struct {
	Name       string     `json:"name" yaml:"name" msgpack:"name"`
	Number     int32      `json:"number,omitempty" yaml:"number,omitempty" msgpack:"number,omitempty"`
	Type       string     `json:"type" yaml:"type" msgpack:"type"`
	TypeName   string     `json:"type_name,omitempty" yaml:"type_name,omitempty" msgpack:"type_name,omitempty"`
	Label      Label      `json:"label,omitempty" yaml:"label,omitempty" msgpack:"label,omitempty"`
	Extensions Extensions `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// Enum is an enumeration definition.
type Enum struct {
	Name       string       `json:"name" yaml:"name" msgpack:"name"`
	Values     []*EnumValue `json:"values,omitempty" yaml:"values,omitempty" msgpack:"values,omitempty"`
	Extensions Extensions   `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// EnumValue is one member of an enumeration.
type EnumValue struct {
	Name       string     `json:"name" yaml:"name" msgpack:"name"`
	Number     int32      `json:"number" yaml:"number" msgpack:"number"`
	Extensions Extensions `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// Service is a named group of remote methods.
type Service struct {
	Name       string     `json:"name" yaml:"name" msgpack:"name"`
	Methods    []*Method  `json:"methods,omitempty" yaml:"methods,omitempty" msgpack:"methods,omitempty"`
	Extensions Extensions `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// Method is a single remote call of a service.
type Method struct {
	Name            string     `json:"name" yaml:"name" msgpack:"name"`
	InputType       string     `json:"input_type" yaml:"input_type" msgpack:"input_type"`
	OutputType      string     `json:"output_type" yaml:"output_type" msgpack:"output_type"`
	ClientStreaming bool       `json:"client_streaming,omitempty" yaml:"client_streaming,omitempty" msgpack:"client_streaming,omitempty"`
	ServerStreaming bool       `json:"server_streaming,omitempty" yaml:"server_streaming,omitempty" msgpack:"server_streaming,omitempty"`
	Extensions      Extensions `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
}

// Label is the cardinality of a field at the wire level.
type Label string

// Field labels.
const (
	LabelSingular Label = ""
	LabelOptional Label = "optional"
	LabelRepeated Label = "repeated"
)

// Extensions holds the structured extension values of an element keyed by
// namespace, e.g. "storage.entity".
type Extensions map[string]any

// UnmarshalYAML decodes the values through a plain map. yaml.v3 otherwise
// decodes nested mappings into Extensions instead of map[string]any.
func (e *Extensions) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return err
	}
	*e = m
	return nil
}

// Has reports whether the namespace is attached.
func (e Extensions) Has(ns string) bool {
	_, ok := e[ns]
	return ok
}

// Namespaces returns the attached namespaces that start with the prefix.
func (e Extensions) Namespaces(prefix string) []string {
	var ns []string
	for k := range e {
		if strings.HasPrefix(k, prefix) {
			ns = append(ns, k)
		}
	}
	return ns
}

// Qualify joins a package and a local name into a fully-qualified name.
func Qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// Check verifies the structural well-formedness of the set: every file has a
// package and element names are non-empty and unique within their scope.
func (s *FileSet) Check() error {
	seen := make(map[string]bool)
	for _, f := range s.Files {
		if f.Name == "" {
			return fmt.Errorf("load: file without name")
		}
		if seen[f.Name] {
			return fmt.Errorf("load: duplicate file %q", f.Name)
		}
		seen[f.Name] = true
		if f.Package == "" {
			return fmt.Errorf("load: file %q has no package", f.Name)
		}
		if err := f.check(); err != nil {
			return fmt.Errorf("load: file %q: %w", f.Name, err)
		}
	}
	return nil
}

func (f *File) check() error {
	names := make(map[string]string)
	declare := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without name", kind)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s %q already declared as %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}
	for _, m := range f.Messages {
		if err := declare("message", m.Name); err != nil {
			return err
		}
		fields := make(map[string]bool, len(m.Fields))
		for _, fd := range m.Fields {
			if fd.Name == "" || fields[fd.Name] {
				return fmt.Errorf("message %q: missing or duplicate field name %q", m.Name, fd.Name)
			}
			fields[fd.Name] = true
			switch fd.Label {
			case LabelSingular, LabelOptional, LabelRepeated:
			default:
				return fmt.Errorf("message %q field %q: unknown label %q", m.Name, fd.Name, fd.Label)
			}
		}
	}
	for _, e := range f.Enums {
		if err := declare("enum", e.Name); err != nil {
			return err
		}
	}
	for _, s := range f.Services {
		if err := declare("service", s.Name); err != nil {
			return err
		}
		methods := make(map[string]bool, len(s.Methods))
		for _, m := range s.Methods {
			if m.Name == "" || methods[m.Name] {
				return fmt.Errorf("service %q: missing or duplicate method name %q", s.Name, m.Name)
			}
			methods[m.Name] = true
		}
	}
	return nil
}
