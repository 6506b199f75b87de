package ast

// Range is an inclusive numeric range, used for both reserved ranges and
// extension ranges. End == Start for a single-number range; protobuf's
// "max" sentinel is represented as the type's maximum legal value by the
// parser, not specially here.
type Range struct {
	Span       Span
	Start, End int32
}

// Message is a `message Name { ... }` declaration, or the nested message
// synthesized by map-field or group desugaring (see IsMapEntry/IsGroup).
type Message struct {
	base

	Name string

	Fields          []*Field
	Oneofs          []*OneOf
	Messages        []*Message // nested messages, including synthesized map-entry/group messages
	Enums           []*Enum
	Extends         []*Extend
	ExtensionRanges []*ExtensionRange
	ReservedRanges  []*ReservedRange
	ReservedNames   []string
	Options         []*Option

	// IsMapEntry is set on a message synthesized from a `map<K, V>` field.
	// Such messages are never written out as ordinary nested messages in
	// diagnostics, even though they appear in the descriptor.
	IsMapEntry bool

	// IsGroup is set on a message synthesized from `group` field syntax.
	// The message's Span covers the original group body so that source
	// info still points at the group declaration.
	IsGroup bool
}

// Field is a single field declaration, a map field (before desugaring), or
// the owning field produced by group desugaring.
type Field struct {
	base

	Label     FieldLabel
	LabelSpan Span

	// Type is the source text of the field's type: either a primitive
	// keyword (e.g. "int32") or a possibly-relative type-name reference
	// that the linker must resolve.
	Type     string
	TypeSpan Span

	Name     string
	NameSpan Span

	Number     int32
	NumberSpan Span

	Options []*Option

	// DefaultValue and JSONName are not filled in by the parser: the
	// `default` and `json_name` pseudo-options stay in Options, where
	// linker.ToProto picks them up.
	DefaultValue *OptionValue

	JSONName     string
	JSONNameSpan Span

	IsExtension  bool
	ExtendeeSpan Span // not set by the parser; the extendee's span is Extend.ExtendeeSpan

	// Map-field-only: set before desugaring replaces this field's Type
	// with the synthesized entry message name.
	MapKeyType, MapValueType string
	MapKeyTypeSpan, MapValueTypeSpan Span

	// Group and map fields: the synthesized nested message (a map field's
	// entry message). For a field in a message body or oneof it is already
	// appended to the parent's Messages, so the linker and validator can
	// find the group's own field list without re-deriving it.
	Group *Message
}

// OneOf is a `oneof name { ... }` declaration.
type OneOf struct {
	base

	Name    string
	Fields  []*Field
	Options []*Option
}

// Extend is an `extend Extendee { ... }` block declaring one or more
// extension fields.
type Extend struct {
	base

	Extendee     string
	ExtendeeSpan Span
	Fields       []*Field
}

// ExtensionRange is an `extensions N to M [options];` declaration.
type ExtensionRange struct {
	base

	Ranges  []Range
	Options []*Option
}

// ReservedRange is a `reserved N to M, ...;` or `reserved "name", ...;`
// declaration. Exactly one of Ranges or Names is populated, per field;
// mixing the two forms in one statement is a parse error.
type ReservedRange struct {
	base

	Ranges []Range
	Names  []string
}
