package gen

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/synapse/compiler/options"
)

// Sentinel errors, one per diagnostic kind.
var (
	// ErrMalformedOption indicates an extension value of the wrong shape.
	ErrMalformedOption = options.ErrMalformed
	// ErrUnknownRelationTarget indicates a relation target that no package declares.
	ErrUnknownRelationTarget = errors.New("synapse: unknown relation target")
	// ErrRelationKeyMismatch indicates a missing or incompatible foreign key.
	ErrRelationKeyMismatch = errors.New("synapse: relation key mismatch")
	// ErrAmbiguousJoinEntity indicates a missing or ambiguous many-to-many join.
	ErrAmbiguousJoinEntity = errors.New("synapse: ambiguous join entity")
	// ErrConflictingInverseRelation indicates an explicit inverse that disagrees with its relation.
	ErrConflictingInverseRelation = errors.New("synapse: conflicting inverse relation")
	// ErrDuplicatePrimaryKey indicates an entity without exactly one primary key.
	ErrDuplicatePrimaryKey = errors.New("synapse: duplicate primary key")
	// ErrDuplicateName indicates two elements competing for one generated name.
	ErrDuplicateName = errors.New("synapse: duplicate name")
	// ErrUnknownType indicates a type reference that no package declares.
	ErrUnknownType = errors.New("synapse: unknown type")
	// ErrInvalidColumn indicates inconsistent column options.
	ErrInvalidColumn = errors.New("synapse: invalid column")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("synapse: missing configuration")
	// ErrGenerationFailed indicates a rendering failure.
	ErrGenerationFailed = errors.New("synapse: code generation failed")
)

// Kind classifies a compile-time diagnostic.
type Kind uint8

// Diagnostic kinds.
const (
	MalformedOption Kind = iota + 1
	UnknownRelationTarget
	RelationKeyMismatch
	AmbiguousJoinEntity
	ConflictingInverseRelation
	DuplicatePrimaryKey
	DuplicateName
	UnknownType
	InvalidColumn
)

var kinds = map[Kind]struct {
	name     string
	sentinel error
}{
	MalformedOption:            {"MalformedOption", ErrMalformedOption},
	UnknownRelationTarget:      {"UnknownRelationTarget", ErrUnknownRelationTarget},
	RelationKeyMismatch:        {"RelationKeyMismatch", ErrRelationKeyMismatch},
	AmbiguousJoinEntity:        {"AmbiguousJoinEntity", ErrAmbiguousJoinEntity},
	ConflictingInverseRelation: {"ConflictingInverseRelation", ErrConflictingInverseRelation},
	DuplicatePrimaryKey:        {"DuplicatePrimaryKey", ErrDuplicatePrimaryKey},
	DuplicateName:              {"DuplicateName", ErrDuplicateName},
	UnknownType:                {"UnknownType", ErrUnknownType},
	InvalidColumn:              {"InvalidColumn", ErrInvalidColumn},
}

// String returns the kind name.
func (k Kind) String() string {
	if d, ok := kinds[k]; ok {
		return d.name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Diagnostic is a structured compile-time error attached to one element.
type Diagnostic struct {
	Kind    Kind
	File    string // Schema file of the offending element
	Element string // Qualified element, e.g. "blog.Post.author"
	Message string
	Cause   error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString("synapse: ")
	b.WriteString(d.Kind.String())
	if d.Element != "" {
		b.WriteString(" on ")
		b.WriteString(d.Element)
	}
	if d.File != "" {
		b.WriteString(" (")
		b.WriteString(d.File)
		b.WriteString(")")
	}
	if d.Message != "" {
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	if d.Cause != nil {
		b.WriteString(": ")
		b.WriteString(d.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (d *Diagnostic) Unwrap() error {
	return d.Cause
}

// Is reports whether the target is the sentinel of the diagnostic kind.
func (d *Diagnostic) Is(target error) bool {
	k, ok := kinds[d.Kind]
	return ok && target == k.sentinel
}

// Diagnostics is an ordered list of diagnostics. A non-empty list is an
// error; it is never returned as a nil-valued error interface.
type Diagnostics []*Diagnostic

// Error implements the error interface.
func (ds Diagnostics) Error() string {
	switch len(ds) {
	case 0:
		return "synapse: no diagnostics"
	case 1:
		return ds[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "synapse: %d diagnostics:", len(ds))
	for i, d := range ds {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, d)
	}
	return sb.String()
}

// Unwrap exposes every diagnostic to errors.Is and errors.As.
func (ds Diagnostics) Unwrap() []error {
	errs := make([]error, len(ds))
	for i, d := range ds {
		errs[i] = d
	}
	return errs
}

// Of returns the diagnostics of the given kind.
func (ds Diagnostics) Of(kind Kind) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders the list by (file, element), keeping insertion order for ties.
func (ds Diagnostics) Sort() {
	slices.SortStableFunc(ds, func(a, b *Diagnostic) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Element, b.Element))
	})
}

// Err returns the list as an error, or nil when it is empty.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	return ds
}

// IsDiagnostic reports whether err carries a diagnostic of the given kind.
func IsDiagnostic(err error, kind Kind) bool {
	k, ok := kinds[kind]
	return ok && errors.Is(err, k.sentinel)
}

// collector accumulates diagnostics of one phase.
type collector struct {
	list Diagnostics
}

func (c *collector) add(kind Kind, file, element, format string, args ...any) *Diagnostic {
	d := &Diagnostic{Kind: kind, File: file, Element: element, Message: fmt.Sprintf(format, args...)}
	c.list = append(c.list, d)
	return d
}

func (c *collector) malformed(file string, errs options.Errors) {
	for _, err := range errs {
		c.list = append(c.list, &Diagnostic{
			Kind:    MalformedOption,
			File:    file,
			Element: err.Element,
			Message: err.Namespace,
			Cause:   err.Cause,
		})
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("synapse: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("synapse: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a rendering error.
type GenerationError struct {
	Phase   string // "storage", "domain", "sdl", etc.
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("synapse: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}
