package validate

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/syssam/synapse"
)

// Check evaluates the plan against the field values of one request, keyed
// by schema field name. Every rule of every field runs; all failures are
// returned together as a *synapse.ValidationError. A nil error means the
// conversion to the domain type succeeds.
func (p *Plan) Check(values map[string]any) error {
	var errs []*synapse.FieldError
	for _, f := range p.Fields {
		errs = append(errs, f.Check(values[f.Field.Name])...)
	}
	return synapse.NewValidationError(p.DomainType, errs...)
}

// Check evaluates the rules of the field against one value. A nil value is
// absent.
func (f *FieldPlan) Check(v any) []*synapse.FieldError {
	if f.Optional && empty(v) {
		return nil
	}
	var errs []*synapse.FieldError
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Kind != Required && v == nil {
			continue
		}
		if !r.check(v) {
			errs = append(errs, &synapse.FieldError{Code: r.Kind.String(), Field: f.Field.Name, Message: r.Text()})
		}
	}
	return errs
}

// Text returns the failure message of the rule.
func (r *Rule) Text() string {
	if r.Message != "" {
		return r.Message
	}
	switch r.Kind {
	case Required:
		return "is required"
	case Email:
		return "must be a valid email address"
	case URL:
		return "must be a valid URL"
	case UUID:
		return "must be a valid UUID"
	case Pattern:
		return fmt.Sprintf("must match %q", r.Pattern.String())
	case Length:
		return r.lengthMessage()
	case Range:
		return r.rangeMessage()
	}
	return "unknown rule"
}

// check reports whether v satisfies the rule.
func (r *Rule) check(v any) bool {
	switch r.Kind {
	case Required:
		return !empty(v)
	case Email:
		s, ok := v.(string)
		return ok && synapse.IsEmail(s)
	case URL:
		s, ok := v.(string)
		return ok && synapse.IsURL(s)
	case UUID:
		s, ok := v.(string)
		return ok && synapse.IsUUID(s)
	case Pattern:
		s, ok := v.(string)
		return ok && r.Pattern.MatchString(s)
	case Length:
		n, ok := length(v)
		return ok && r.InLength(uint64(n))
	case Range:
		x, ok := number(v)
		return ok && r.InRange(x)
	}
	return false
}

// InRange reports whether x is within the bounds of a Range rule.
func (r *Rule) InRange(x float64) bool {
	return (r.Lower == nil || x >= *r.Lower) && (r.Upper == nil || x <= *r.Upper)
}

// InLength reports whether n is within the bounds of a Length rule.
func (r *Rule) InLength(n uint64) bool {
	if r.Equal != nil {
		return n == *r.Equal
	}
	return (r.Min == nil || n >= *r.Min) && (r.Max == nil || n <= *r.Max)
}

func (r *Rule) lengthMessage() string {
	switch {
	case r.Equal != nil:
		return fmt.Sprintf("length must be exactly %d", *r.Equal)
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("length must be between %d and %d", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf("length must be at least %d", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("length must be at most %d", *r.Max)
	}
	return "length is invalid"
}

func (r *Rule) rangeMessage() string {
	switch {
	case r.Lower != nil && r.Upper != nil:
		return fmt.Sprintf("must be between %g and %g", *r.Lower, *r.Upper)
	case r.Lower != nil:
		return fmt.Sprintf("must be at least %g", *r.Lower)
	case r.Upper != nil:
		return fmt.Sprintf("must be at most %g", *r.Upper)
	}
	return "must be a number"
}

// empty reports whether v is absent, an empty string or an empty list.
// Strings are not trimmed.
func empty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	n, ok := length(v)
	return ok && n == 0
}

// length returns the rune count of a string, or the size of bytes and lists.
func length(v any) (int, bool) {
	switch v := v.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []byte:
		return len(v), true
	case nil:
		return 0, false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

// number converts the numeric kinds decoders produce to float64.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
