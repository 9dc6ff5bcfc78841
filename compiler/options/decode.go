package options

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/syssam/synapse/compiler/load"
)

// ErrMalformed is the sentinel matched by every *Error.
var ErrMalformed = errors.New("synapse: malformed option")

// Error reports an extension value whose shape does not match the record
// expected for its namespace.
type Error struct {
	Element   string // qualified element name, e.g. "blog.User.email"
	Namespace string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("synapse: malformed option")
	if e.Namespace != "" {
		b.WriteString(" ")
		b.WriteString(e.Namespace)
	}
	if e.Element != "" {
		b.WriteString(" on ")
		b.WriteString(e.Element)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMalformed.
func (e *Error) Is(target error) bool {
	return target == ErrMalformed
}

// Errors is the list of decoding failures of one element.
type Errors []*Error

// decoder collects the failures of one element.
type decoder struct {
	element string
	ext     load.Extensions
	allowed []string
	errs    Errors
}

func newDecoder(element string, ext load.Extensions, allowed ...string) *decoder {
	d := &decoder{element: element, ext: ext, allowed: allowed}
	for _, ns := range d.owned() {
		if !slices.Contains(allowed, ns) {
			d.fail(ns, fmt.Errorf("namespace is not applicable to this element"))
		}
	}
	return d
}

// owned returns the attached namespaces owned by the compiler, sorted.
func (d *decoder) owned() []string {
	var ns []string
	for _, p := range prefixes {
		ns = append(ns, d.ext.Namespaces(p)...)
	}
	slices.Sort(ns)
	return ns
}

func (d *decoder) fail(ns string, err error) {
	d.errs = append(d.errs, &Error{Element: d.element, Namespace: ns, Cause: err})
}

// decode strictly decodes the value of ns into a new T. It returns nil when
// the namespace is absent or malformed.
func decode[T any](d *decoder, ns string) *T {
	v, ok := d.ext[ns]
	if !ok || !slices.Contains(d.allowed, ns) {
		return nil
	}
	rec := new(T)
	if v == nil {
		return rec
	}
	raw, ok := v.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			d.fail(ns, err)
			return nil
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		d.fail(ns, err)
		return nil
	}
	return rec
}

// DecodeMessage decodes the options attached to a message.
func DecodeMessage(element string, ext load.Extensions) (*MessageOptions, Errors) {
	d := newDecoder(element, ext, Entity, GraphQLType, ValidateMsg)
	opts := &MessageOptions{
		Entity:   decode[EntityOptions](d, Entity),
		Type:     decode[GraphQLTypeOptions](d, GraphQLType),
		Validate: decode[ValidateMessageOptions](d, ValidateMsg),
	}
	if e := opts.Entity; e != nil {
		for i, r := range e.Relations {
			if r == nil {
				d.fail(Entity, fmt.Errorf("relations[%d]: empty declaration", i))
				continue
			}
			if r.Name == "" {
				d.fail(Entity, fmt.Errorf("relations[%d]: missing name", i))
			}
			if r.Related == "" {
				d.fail(Entity, fmt.Errorf("relations[%d]: missing related entity", i))
			}
			if err := checkRelation(r); err != nil {
				d.fail(Entity, fmt.Errorf("relations[%d]: %w", i, err))
			}
		}
	}
	return opts, d.errs
}

// DecodeField decodes the options attached to a field.
func DecodeField(element string, ext load.Extensions) (*FieldOptions, Errors) {
	d := newDecoder(element, ext, Column, Relation, GraphQLField, ValidateField)
	opts := &FieldOptions{
		Column:   decode[ColumnOptions](d, Column),
		Relation: decode[RelationOptions](d, Relation),
		GraphQL:  decode[GraphQLFieldOptions](d, GraphQLField),
		Validate: decode[ValidateFieldOptions](d, ValidateField),
	}
	if opts.Relation != nil {
		if err := checkRelation(opts.Relation); err != nil {
			d.fail(Relation, err)
		}
		if opts.Column != nil {
			d.fail(Column, fmt.Errorf("a relation field cannot carry column options"))
		}
	}
	if g := opts.GraphQL; g != nil {
		for _, op := range g.Operators {
			if _, ok := ParseOperator(op); !ok {
				d.fail(GraphQLField, fmt.Errorf("unknown filter operator %q", op))
			}
		}
	}
	if v := opts.Validate; v != nil && v.Rules != nil {
		if err := checkRules(v.Rules); err != nil {
			d.fail(ValidateField, err)
		}
	}
	return opts, d.errs
}

// DecodeEnum decodes the options attached to an enum.
func DecodeEnum(element string, ext load.Extensions) (*EnumDecl, Errors) {
	d := newDecoder(element, ext, StorageEnum)
	opts := &EnumDecl{Storage: decode[EnumOptions](d, StorageEnum)}
	if s := opts.Storage; s != nil {
		switch s.StorageType {
		case "", EnumAsString, EnumAsInteger:
		default:
			d.fail(StorageEnum, fmt.Errorf("unknown storage_type %q", s.StorageType))
		}
	}
	return opts, d.errs
}

// DecodeEnumValue decodes the options attached to an enum value.
func DecodeEnumValue(element string, ext load.Extensions) (*EnumValueDecl, Errors) {
	d := newDecoder(element, ext, StorageValue)
	return &EnumValueDecl{Storage: decode[EnumValueOptions](d, StorageValue)}, d.errs
}

// DecodeService decodes the options attached to a service.
func DecodeService(element string, ext load.Extensions) (*ServiceOptions, Errors) {
	d := newDecoder(element, ext, StorageService, GRPCService, GraphQLService)
	return &ServiceOptions{
		Storage: decode[StorageServiceOptions](d, StorageService),
		GRPC:    decode[GRPCServiceOptions](d, GRPCService),
		GraphQL: decode[GraphQLServiceOptions](d, GraphQLService),
	}, d.errs
}

// DecodeMethod decodes the options attached to a method.
func DecodeMethod(element string, ext load.Extensions) (*MethodOptions, Errors) {
	d := newDecoder(element, ext, StorageMethod, GRPCMethod, Query, Mutation, Subscription)
	opts := &MethodOptions{
		Storage:      decode[StorageMethodOptions](d, StorageMethod),
		GRPC:         decode[GRPCMethodOptions](d, GRPCMethod),
		Query:        decode[GraphQLOperationOptions](d, Query),
		Mutation:     decode[GraphQLOperationOptions](d, Mutation),
		Subscription: decode[GraphQLOperationOptions](d, Subscription),
	}
	if s := opts.Storage; s != nil && !s.Operation.Valid() {
		d.fail(StorageMethod, fmt.Errorf("unknown operation %q", s.Operation))
	}
	var kinds []string
	for ns, o := range map[string]*GraphQLOperationOptions{Query: opts.Query, Mutation: opts.Mutation, Subscription: opts.Subscription} {
		if o != nil {
			kinds = append(kinds, ns)
		}
	}
	if len(kinds) > 1 {
		slices.Sort(kinds)
		d.fail(kinds[1], fmt.Errorf("method declares more than one operation kind: %s", strings.Join(kinds, ", ")))
	}
	return opts, d.errs
}

func checkRelation(r *RelationOptions) error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown relation type %q", r.Type)
	}
	if r.Through != "" && r.Type != ManyToMany {
		return fmt.Errorf("through is only valid for %s", ManyToMany)
	}
	return nil
}

func checkRules(r *Rules) error {
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	if l := r.Length; l != nil {
		if l.Equal != nil && (l.Min != nil || l.Max != nil) {
			return fmt.Errorf("length: equal excludes min and max")
		}
		if l.Min != nil && l.Max != nil && *l.Min > *l.Max {
			return fmt.Errorf("length: min %d exceeds max %d", *l.Min, *l.Max)
		}
	}
	if g := r.Range; g != nil && g.Min != nil && g.Max != nil && *g.Min > *g.Max {
		return fmt.Errorf("range: min %v exceeds max %v", *g.Min, *g.Max)
	}
	return nil
}
