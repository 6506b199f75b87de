package ast

// File is the root of a parsed .proto source file.
type File struct {
	base

	Name string // the import path this file was loaded under

	Syntax     string // "proto2", "proto3", or "" (defaults to proto2)
	SyntaxSpan Span

	Edition     string // non-empty only for "edition" files
	EditionSpan Span

	Package     string
	PackageSpan Span

	Imports    []*Import
	Options    []*Option
	Messages   []*Message
	Enums      []*Enum
	Extends    []*Extend
	Services   []*Service

	// FinalComments holds any comments that trail the last declaration in
	// the file, with nothing left to attach them to.
	FinalComments []Comment

	// Invalid is set by the parser when a syntax error was recovered from.
	// An invalid file still has as complete an AST as the parser could
	// build, for diagnostics purposes, but the driver will not attempt to
	// link it.
	Invalid bool
}

// NewEmptyFile synthesizes a File with no content, used when a file fails
// to parse at all but the driver still needs a non-nil AST to hang errors
// off of.
func NewEmptyFile(name string) *File {
	return &File{Name: name}
}

// Import is a single `import "path";` declaration.
type Import struct {
	base

	Path       string
	PathSpan   Span
	Public     bool
	Weak       bool
}

// OptionNamePart is one dotted component of an option name, such as `foo` or
// the parenthesized extension name in `(pkg.foo)`.
type OptionNamePart struct {
	Text        string
	Span        Span
	IsExtension bool
}

// Option is a single `option name = value;` statement, or one of the
// bracketed option entries on a field, enum value, or extension range.
type Option struct {
	base

	Name []OptionNamePart
	Val  *OptionValue
}

// OptionValueKind discriminates the shape of a free-form option value as it
// appears in source, before it has been type-checked against a field.
type OptionValueKind int

const (
	ValIdentifier OptionValueKind = iota
	ValString
	ValPositiveInt
	ValNegativeInt
	ValFloat
	ValAggregate
	ValArray
)

// OptionValue is the parsed form of a free-form option value: exactly one of
// an identifier, positive/negative integer, double, raw string bytes, an
// aggregate (text-format-like message literal), or an array of values.
//
// This mirrors descriptorpb.UninterpretedOption's oneof, but keeps the
// original span and, for aggregates, the nested structure needed to resolve
// and type-check it later.
type OptionValue struct {
	base

	Kind OptionValueKind

	Identifier string
	Str        []byte
	PosInt     uint64
	NegInt     int64
	Float      float64

	Aggregate []*AggregateField
	Array     []*OptionValue
}

// AggregateField is one `name: value` (or `name { ... }`) entry inside an
// aggregate option literal. Name may be a parenthesized extension name or a
// capitalized group-style name.
type AggregateField struct {
	base

	Name []OptionNamePart
	Val  *OptionValue
}
