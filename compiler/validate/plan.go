// Package validate compiles the field rules of conversion messages into
// ordered check plans, one per generated domain type.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/synapse/compiler/gen"
	"github.com/syssam/synapse/compiler/options"
)

// RuleKind identifies a validation rule. Rules of a field always run in
// kind order.
type RuleKind uint8

// Rule kinds, in evaluation order.
const (
	Required RuleKind = iota + 1
	Email
	URL
	UUID
	Pattern
	Length
	Range
)

var ruleCodes = [...]string{
	Required: "required",
	Email:    "email",
	URL:      "url",
	UUID:     "uuid",
	Pattern:  "pattern",
	Length:   "length",
	Range:    "range",
}

// String returns the error code of the rule.
func (k RuleKind) String() string {
	if k > 0 && int(k) < len(ruleCodes) {
		return ruleCodes[k]
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// Rule is one compiled check.
type Rule struct {
	Kind RuleKind
	// Pattern is set for Pattern rules.
	Pattern *regexp.Regexp
	// Min, Max and Equal bound Length rules.
	Min, Max, Equal *uint64
	// Lower and Upper bound Range rules.
	Lower, Upper *float64
	// Message replaces the default failure message.
	Message string
}

// FieldPlan is the ordered rule list of one field.
type FieldPlan struct {
	Field *gen.MessageField
	// Name is the domain type field name.
	Name string
	// Type overrides the domain type of the field when set.
	Type string
	// Optional is set when the field carries no required rule. Absent or
	// empty values of optional fields skip every other rule.
	Optional bool
	Rules    []Rule
}

// Plan is the validation plan of one conversion.
type Plan struct {
	Message *gen.Message
	// DomainType is the name of the generated domain type.
	DomainType string
	Fields     []*FieldPlan
}

// Ident returns the qualified name of the domain type.
func (p *Plan) Ident() string {
	if p.Message.Package == "" {
		return p.DomainType
	}
	return p.Message.Package + "." + p.DomainType
}

// Field returns the plan of the field with the given schema name.
func (p *Plan) Field(name string) *FieldPlan {
	for _, f := range p.Fields {
		if f.Field.Name == name {
			return f
		}
	}
	return nil
}

// Compile returns one plan per message requesting a conversion, in message
// order. Rules that cannot apply to their field are reported, and every
// message is processed before returning.
func Compile(g *gen.Graph) ([]*Plan, gen.Diagnostics) {
	var (
		plans []*Plan
		ds    gen.Diagnostics
		seen  = make(map[string]*Plan)
	)
	for _, m := range g.Messages {
		vo := m.Options.Validate
		if vo == nil || vo.Skip || !vo.GenerateConversion {
			continue
		}
		p := &Plan{Message: m, DomainType: DomainName(m.Name, vo.Name)}
		for _, f := range m.Fields {
			fp, errs := compileField(f)
			ds = append(ds, errs...)
			if fp != nil {
				p.Fields = append(p.Fields, fp)
			}
		}
		if prev, ok := seen[p.Ident()]; ok {
			ds = append(ds, &gen.Diagnostic{
				Kind:    gen.DuplicateName,
				File:    m.File,
				Element: m.Ident(),
				Message: fmt.Sprintf("domain type %q already generated for %s", p.DomainType, prev.Message.Ident()),
			})
			continue
		}
		seen[p.Ident()] = p
		plans = append(plans, p)
		g.Config.Logger.Debug("validation plan compiled", "message", m.Ident(), "domain", p.DomainType, "fields", len(p.Fields))
	}
	ds.Sort()
	return plans, ds
}

// DomainName returns the domain type name of a conversion message: the
// declared name, or the message name without a trailing "Request".
func DomainName(message, declared string) string {
	if declared != "" {
		return declared
	}
	if name, ok := strings.CutSuffix(message, "Request"); ok && name != "" {
		return name
	}
	return message
}

func compileField(f *gen.MessageField) (*FieldPlan, gen.Diagnostics) {
	fp := &FieldPlan{Field: f, Name: gen.Pascal(f.Name), Optional: true}
	vo := f.Options.Validate
	if vo == nil {
		return fp, nil
	}
	if vo.Skip {
		return nil, nil
	}
	if vo.Rename != "" {
		fp.Name = vo.Rename
	}
	fp.Type = vo.Type
	r := vo.Rules
	if r == nil {
		return fp, nil
	}
	var ds gen.Diagnostics
	bad := func(rule RuleKind, want string) {
		ds = append(ds, &gen.Diagnostic{
			Kind:    gen.MalformedOption,
			File:    f.Message.File,
			Element: f.Element(),
			Message: fmt.Sprintf("%s: rule %s requires %s, got %s", options.ValidateField, rule, want, describe(f)),
		})
	}
	add := func(kind RuleKind, ok bool, want string) *Rule {
		if !ok {
			bad(kind, want)
			return nil
		}
		fp.Rules = append(fp.Rules, Rule{Kind: kind, Message: r.Message})
		return &fp.Rules[len(fp.Rules)-1]
	}
	text := f.Type == gen.TypeString && f.Cardinality != gen.Repeated
	if r.Required {
		fp.Optional = false
		add(Required, true, "")
	}
	if r.Email {
		add(Email, text, "a string field")
	}
	if r.URL {
		add(URL, text, "a string field")
	}
	if r.UUID {
		add(UUID, text, "a string field")
	}
	// Invalid expressions were reported by the option decoder.
	if r.Pattern != "" {
		if re, err := regexp.Compile(r.Pattern); err == nil {
			if rule := add(Pattern, text, "a string field"); rule != nil {
				rule.Pattern = re
			}
		}
	}
	if l := r.Length; l != nil {
		sized := f.Cardinality == gen.Repeated || f.Type == gen.TypeString || f.Type == gen.TypeBytes
		if rule := add(Length, sized, "a string, bytes or repeated field"); rule != nil {
			rule.Min, rule.Max, rule.Equal = l.Min, l.Max, l.Equal
		}
	}
	if rg := r.Range; rg != nil {
		if rule := add(Range, f.Type.Numeric() && f.Cardinality != gen.Repeated, "a numeric field"); rule != nil {
			rule.Lower, rule.Upper = rg.Min, rg.Max
		}
	}
	return fp, ds
}

func describe(f *gen.MessageField) string {
	if f.Cardinality == gen.Repeated {
		return "repeated " + f.Type.String()
	}
	return f.Type.String()
}
