package ast

// Comment is a single line (//) or block (/* */) comment, with its own span
// so that diagnostics can point at it directly.
type Comment struct {
	Span Span
	Text string
}

// Node is implemented by every element of the descriptor IR. Synthetic nodes
// (produced by map or group desugaring) report an invalid Span.
type Node interface {
	NodeSpan() Span
}

// Commented is implemented by nodes that can carry attached comments.
type Commented interface {
	Node
	Leading() []Comment
	Trailing() *Comment
	LeadingDetached() [][]Comment
}

// base is embedded in every concrete node to supply span and comment
// storage. It is not itself exported; nodes expose it through Commented.
type base struct {
	span Span

	leading         []Comment
	trailing        *Comment
	leadingDetached [][]Comment
}

func (b *base) NodeSpan() Span { return b.span }

func (b *base) Leading() []Comment { return b.leading }

func (b *base) Trailing() *Comment { return b.trailing }

func (b *base) LeadingDetached() [][]Comment { return b.leadingDetached }

// SetSpan is used by the parser to finalize a node's span once all of its
// children have been parsed.
func (b *base) SetSpan(s Span) { b.span = s }

// SetComments attaches the comments the lexer collected immediately before
// this node was recognized, per the leading/detached/trailing rules in
// the parser's attach and splitComments.
func (b *base) SetComments(leading []Comment, detached [][]Comment, trailing *Comment) {
	b.leading = leading
	b.leadingDetached = detached
	b.trailing = trailing
}

// SetTrailing records a same-line comment discovered after this node was
// already parsed, once the parser has moved on to the next token.
func (b *base) SetTrailing(c *Comment) { b.trailing = c }

// FieldLabel is the cardinality of a field: optional, required, repeated, or
// unspecified (proto3 singular field with no explicit label keyword).
type FieldLabel int

const (
	LabelNone FieldLabel = iota
	LabelOptional
	LabelRequired
	LabelRepeated
)

func (l FieldLabel) String() string {
	switch l {
	case LabelOptional:
		return "optional"
	case LabelRequired:
		return "required"
	case LabelRepeated:
		return "repeated"
	default:
		return ""
	}
}
