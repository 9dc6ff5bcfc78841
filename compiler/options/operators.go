package options

import "strings"

// WhereOp is a set of filter operators.
type WhereOp uint16

// Filter operators.
const (
	OpEQ WhereOp = 1 << iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIn
	OpContains
)

// Operator sets.
const (
	// OpsNone disables filtering.
	OpsNone WhereOp = 0
	// OpsEquality includes EQ, NEQ and In.
	OpsEquality = OpEQ | OpNEQ | OpIn
	// OpsComparison includes equality plus ordering.
	OpsComparison = OpsEquality | OpGT | OpGTE | OpLT | OpLTE
	// OpsString includes comparison plus substring search.
	OpsString = OpsComparison | OpContains
)

// operatorNames is in declaration order, which is also the output order.
var operatorNames = []struct {
	op   WhereOp
	name string
}{
	{OpEQ, "eq"},
	{OpNEQ, "neq"},
	{OpGT, "gt"},
	{OpGTE, "gte"},
	{OpLT, "lt"},
	{OpLTE, "lte"},
	{OpIn, "in"},
	{OpContains, "contains"},
}

// ParseOperator returns the operator with the given name.
func ParseOperator(name string) (WhereOp, bool) {
	for _, o := range operatorNames {
		if o.name == strings.ToLower(name) {
			return o.op, true
		}
	}
	return 0, false
}

// ParseOperators returns the set of the named operators. Unknown names are
// ignored; they are rejected at decode time.
func ParseOperators(names []string) WhereOp {
	var ops WhereOp
	for _, n := range names {
		if op, ok := ParseOperator(n); ok {
			ops |= op
		}
	}
	return ops
}

// Has reports whether all operators of flag are in the set.
func (op WhereOp) Has(flag WhereOp) bool { return op&flag == flag }

// Names returns the operator names of the set in canonical order.
func (op WhereOp) Names() []string {
	var names []string
	for _, o := range operatorNames {
		if op&o.op != 0 {
			names = append(names, o.name)
		}
	}
	return names
}

// String implements fmt.Stringer.
func (op WhereOp) String() string {
	if op == OpsNone {
		return "none"
	}
	return strings.Join(op.Names(), "|")
}
