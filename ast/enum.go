package ast

// Enum is an `enum Name { ... }` declaration.
type Enum struct {
	base

	Name string

	Values         []*EnumValue
	Options        []*Option
	ReservedRanges []*ReservedRange
	ReservedNames  []string
}

// EnumValue is a single `NAME = N [options];` entry inside an enum. Per
// protobuf's scoping rules, enum values are registered in the name map of
// the enum's *enclosing* scope, not inside the enum itself; ast.EnumValue
// does not encode that — it is purely a syntax node, and the name map
// builder is responsible for placing it correctly.
type EnumValue struct {
	base

	Name       string
	NameSpan   Span
	Number     int32
	NumberSpan Span
	Options    []*Option
}
