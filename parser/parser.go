package parser

import (
	"io"
	"strconv"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/reporter"
)

// keywords that are contextual: the lexer never produces these as a
// distinct token kind, only as a tokIdent whose text happens to match one of
// these strings. Grammar productions check for them explicitly.
const (
	kwSyntax, kwEdition           = "syntax", "edition"
	kwImport, kwWeak, kwPublic    = "import", "weak", "public"
	kwPackage, kwOption           = "package", "option"
	kwTrue, kwFalse               = "true", "false"
	kwInf, kwNan                  = "inf", "nan"
	kwRepeated, kwOptional        = "repeated", "optional"
	kwRequired                    = "required"
	kwOneof, kwMap                = "oneof", "map"
	kwExtensions, kwTo, kwMax     = "extensions", "to", "max"
	kwReserved                    = "reserved"
	kwEnum, kwMessage, kwExtend   = "enum", "message", "extend"
	kwService, kwRPC, kwStream   = "service", "rpc", "stream"
	kwReturns, kwGroup            = "returns", "group"
)

var scalarTypes = map[string]bool{
	"double": true, "float": true, "int32": true, "int64": true,
	"uint32": true, "uint64": true, "sint32": true, "sint64": true,
	"fixed32": true, "fixed64": true, "sfixed32": true, "sfixed64": true,
	"bool": true, "string": true, "bytes": true,
}

// Parse lexes and parses a single source file into an ast.File. Syntax
// errors are reported through h; when recoverable, parsing continues so
// that a single call can surface more than one diagnostic. The returned
// file is never nil, even on error: a failed parse yields as much of the
// tree as could be recovered, with Invalid set to true.
func Parse(filename string, r io.Reader, h *reporter.Handler) (*ast.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ast.NewEmptyFile(filename), err
	}
	p := &parser{
		lx:         newLexer(filename, data, h),
		h:          h,
		filename:   filename,
		commentsAt: map[int][]ast.Comment{},
	}
	p.advance()
	f := p.parseFile()
	return f, h.Error()
}

// commented is the subset of ast.Commented the parser needs in order to
// attach comments to a freshly parsed node, without depending on ast's
// unexported base type.
type commented interface {
	ast.Node
	SetComments(leading []ast.Comment, detached [][]ast.Comment, trailing *ast.Comment)
	SetTrailing(c *ast.Comment)
}

type parser struct {
	lx       *lexer
	h        *reporter.Handler
	filename string

	cur         token
	curComments []ast.Comment
	prevEndLine int
	lastNode    commented
	// commentsAt maps a token's start offset to the comments collected
	// before it, so attach can find a node's comments after its whole body
	// has been parsed.
	commentsAt map[int][]ast.Comment

	invalid bool
}

func (p *parser) pos(off int) ast.SourcePos { return p.lx.fi.PosAt(off) }

func (p *parser) errorf(span ast.Span, format string, args ...interface{}) {
	p.invalid = true
	_ = p.h.HandleErrorf(p.pos(span.Start), format, args...)
}

// errorfKind is errorf for the handful of syntax errors a caller needs to
// recognize by ErrorKind rather than by matching the message text.
func (p *parser) errorfKind(kind ErrorKind, span ast.Span, format string, args ...interface{}) {
	p.invalid = true
	_ = p.h.HandleError(reporter.Error(p.pos(span.Start), errf(kind, format, args...)))
}

// advance fetches the next token, hands any same-line comment after the
// previous token to the last attached node as its trailing comment, and
// records the remaining comments under the new token's start offset for
// attach to group into leading and detached comments.
func (p *parser) advance() {
	if p.cur.kind != tokEOF && p.cur.span.IsValid() {
		p.prevEndLine = p.lx.fi.EndPos(p.cur.span).Line
	}
	p.cur = p.lx.next()
	comments := p.lx.takeComments()
	if len(comments) == 0 {
		p.curComments = nil
		return
	}

	first := comments[0]
	firstLine := p.lx.fi.StartPos(first.Span).Line
	if p.lastNode != nil && firstLine == p.prevEndLine {
		// A comment on the same line as the end of the previous token is
		// that node's trailing comment, not this node's leading comment.
		tc := first
		p.lastNode.SetTrailing(&tc)
		comments = comments[1:]
	}
	p.curComments = comments
	p.commentsAt[p.cur.span.Start] = comments
}

// splitComments groups a run of comments (assumed already stripped of any
// same-line trailing comment) into leading-for-the-upcoming-node plus zero
// or more detached groups that precede it, based on blank-line gaps.
func (p *parser) splitComments(comments []ast.Comment, nodeStartLine int) (leading []ast.Comment, detached [][]ast.Comment) {
	if len(comments) == 0 {
		return nil, nil
	}
	var groups [][]ast.Comment
	cur := []ast.Comment{comments[0]}
	for i := 1; i < len(comments); i++ {
		prevEnd := p.lx.fi.EndPos(comments[i-1].Span).Line
		thisStart := p.lx.fi.StartPos(comments[i].Span).Line
		if thisStart > prevEnd+1 {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, comments[i])
	}
	groups = append(groups, cur)

	last := groups[len(groups)-1]
	lastEnd := p.lx.fi.EndPos(last[len(last)-1].Span).Line
	if lastEnd >= nodeStartLine-1 {
		leading = last
		detached = groups[:len(groups)-1]
	} else {
		detached = groups
	}
	return leading, detached
}

// attach pulls in whatever comments were collected before the node's first
// token and records them on it, then registers the node as the "last node"
// for same-line trailing-comment purposes.
func (p *parser) attach(n commented, startLine int) {
	leading, detached := p.splitComments(p.commentsAt[n.NodeSpan().Start], startLine)
	n.SetComments(leading, detached, nil)
	p.curComments = nil
	p.lastNode = n
}

func (p *parser) isIdent(text string) bool {
	return p.cur.kind == tokIdent && p.cur.text == text
}

func (p *parser) isPunct(r byte) bool {
	return p.cur.kind == tokPunct && p.cur.text == string(r)
}

// expectPunct consumes the current token if it is the expected punctuation,
// reporting an error and leaving the cursor in place otherwise.
func (p *parser) expectPunct(r byte) bool {
	if p.isPunct(r) {
		p.advance()
		return true
	}
	p.errorf(p.cur.span, "found %s, expected %q", p.cur.describe(), string(r))
	return false
}

func (p *parser) expectIdent() (string, ast.Span, bool) {
	if p.cur.kind == tokIdent {
		text, span := p.cur.text, p.cur.span
		p.advance()
		return text, span, true
	}
	p.errorf(p.cur.span, "found %s, expected identifier", p.cur.describe())
	return "", p.cur.span, false
}

// skipStatement recovers from a syntax error by discarding tokens until a
// statement or declaration boundary (';' or matched '}') so the parser can
// keep looking for more problems in the rest of the file.
func (p *parser) skipStatement() {
	depth := 0
	for {
		switch {
		case p.cur.kind == tokEOF:
			return
		case p.isPunct('{'):
			depth++
			p.advance()
		case p.isPunct('}'):
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 {
				return
			}
		case p.isPunct(';') && depth == 0:
			p.advance()
			return
		default:
			p.advance()
		}
	}
}

func qualifiedName(parts []string) string {
	s := parts[0]
	for _, p := range parts[1:] {
		s += "." + p
	}
	return s
}

// parseTypeName reads a (possibly dotted, possibly leading-dot) type
// reference as it appears in source, without attempting to resolve it.
func (p *parser) parseTypeName() (string, ast.Span) {
	start := p.cur.span
	text := ""
	if p.isPunct('.') {
		text = "."
		p.advance()
	}
	name, span, ok := p.expectIdent()
	if !ok {
		return text, start
	}
	text += name
	end := span
	for p.isPunct('.') {
		p.advance()
		name, span, ok := p.expectIdent()
		if !ok {
			break
		}
		text += "." + name
		end = span
	}
	return text, ast.Span{Start: start.Start, End: end.End}
}

func (p *parser) parseFile() *ast.File {
	f := &ast.File{Name: p.filename}
	f.SetSpan(ast.Span{Start: 0, End: len(p.lx.data)})

	if p.isIdent(kwSyntax) || p.isIdent(kwEdition) {
		p.parseSyntax(f)
	}

	for p.cur.kind != tokEOF {
		switch {
		case p.isPunct(';'):
			p.advance()
		case p.isIdent(kwImport):
			f.Imports = append(f.Imports, p.parseImport())
		case p.isIdent(kwPackage):
			p.parsePackage(f)
		case p.isIdent(kwOption):
			f.Options = append(f.Options, p.parseOptionStatement())
		case p.isIdent(kwMessage):
			f.Messages = append(f.Messages, p.parseMessage())
		case p.isIdent(kwEnum):
			f.Enums = append(f.Enums, p.parseEnum())
		case p.isIdent(kwExtend):
			f.Extends = append(f.Extends, p.parseExtend())
		case p.isIdent(kwService):
			f.Services = append(f.Services, p.parseService())
		default:
			p.errorf(p.cur.span, "found %s, expected top-level declaration", p.cur.describe())
			p.skipStatement()
		}
	}
	f.FinalComments = p.curComments
	f.Invalid = p.invalid
	return f
}

func (p *parser) parseSyntax(f *ast.File) {
	start := p.cur.span
	isEdition := p.isIdent(kwEdition)
	p.advance() // "syntax" or "edition"
	p.expectPunct('=')
	if p.cur.kind == tokString {
		switch {
		case isEdition:
			f.Edition = p.cur.text
			f.EditionSpan = ast.Span{Start: start.Start, End: p.cur.span.End}
		case p.cur.text == "proto2", p.cur.text == "proto3":
			f.Syntax = p.cur.text
		default:
			p.errorf(p.cur.span, "unrecognized syntax %q, expected \"proto2\" or \"proto3\"", p.cur.text)
		}
		f.SyntaxSpan = ast.Span{Start: start.Start, End: p.cur.span.End}
		p.advance()
	} else {
		p.errorf(p.cur.span, "found %s, expected string literal for syntax", p.cur.describe())
	}
	p.expectPunct(';')
}

func (p *parser) parseImport() *ast.Import {
	imp := &ast.Import{}
	startLine := p.lx.fi.StartPos(p.cur.span).Line
	start := p.cur.span
	p.advance() // "import"

	if p.isIdent(kwPublic) {
		imp.Public = true
		p.advance()
	} else if p.isIdent(kwWeak) {
		imp.Weak = true
		p.advance()
	}

	if p.cur.kind == tokString {
		imp.Path = p.cur.text
		imp.PathSpan = p.cur.span
		p.advance()
	} else {
		p.errorf(p.cur.span, "found %s, expected import path string", p.cur.describe())
	}
	p.expectPunct(';')
	imp.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(imp, startLine)
	return imp
}

func (p *parser) prevSpanEnd() int {
	return p.cur.span.Start
}

func (p *parser) parsePackage(f *ast.File) {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "package"
	name, span := p.parseDottedIdent()
	f.Package = name
	f.PackageSpan = span
	p.expectPunct(';')
	_ = startLine // package has no dedicated comment-bearing node; comments fall through to the next declaration
}

func (p *parser) parseDottedIdent() (string, ast.Span) {
	name, span, ok := p.expectIdent()
	if !ok {
		return name, span
	}
	for p.isPunct('.') {
		p.advance()
		part, s, ok := p.expectIdent()
		if !ok {
			break
		}
		name += "." + part
		span.End = s.End
	}
	return name, span
}

// parseOptionStatement parses `option name = value;`, used at file, message,
// enum, service, method, and oneof scope.
func (p *parser) parseOptionStatement() *ast.Option {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "option"
	opt := p.parseOptionNameAndValue()
	p.expectPunct(';')
	opt.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(opt, startLine)
	return opt
}

// parseOptionNameAndValue parses `name = value` without the surrounding
// keyword/semicolon, shared by option statements and bracketed
// [name=value, ...] option lists.
func (p *parser) parseOptionNameAndValue() *ast.Option {
	opt := &ast.Option{}
	opt.Name = p.parseOptionName()
	p.expectPunct('=')
	opt.Val = p.parseOptionValue()
	return opt
}

func (p *parser) parseOptionName() []ast.OptionNamePart {
	var parts []ast.OptionNamePart
	parts = append(parts, p.parseOptionNamePart())
	for p.isPunct('.') {
		p.advance()
		parts = append(parts, p.parseOptionNamePart())
	}
	return parts
}

func (p *parser) parseOptionNamePart() ast.OptionNamePart {
	if p.isPunct('(') {
		start := p.cur.span
		p.advance()
		name, _ := p.parseDottedIdent()
		end := p.cur.span
		p.expectPunct(')')
		return ast.OptionNamePart{Text: name, IsExtension: true, Span: ast.Span{Start: start.Start, End: end.End}}
	}
	name, span, _ := p.expectIdent()
	return ast.OptionNamePart{Text: name, Span: span}
}

// parseOptionValue parses a free-form option value: scalar, identifier, or
// an aggregate/array literal. Types are not checked here — that happens
// later, against whatever extension or builtin field the name resolves to.
func (p *parser) parseOptionValue() *ast.OptionValue {
	start := p.cur.span
	v := &ast.OptionValue{}
	switch {
	case p.isPunct('-'):
		p.advance()
		v = p.parseNumericOptionValue(true)
	case p.isPunct('+'):
		p.advance()
		v = p.parseNumericOptionValue(false)
	case p.cur.kind == tokInt:
		v.Kind = ast.ValPositiveInt
		v.PosInt = p.cur.i
		p.advance()
	case p.cur.kind == tokFloat:
		v.Kind = ast.ValFloat
		v.Float = p.cur.f
		p.advance()
	case p.cur.kind == tokString:
		v.Kind = ast.ValString
		v.Str = []byte(p.cur.text)
		for p.cur.kind == tokString {
			// Adjacent string literals concatenate, as in C.
			p.advance()
			if p.cur.kind == tokString {
				v.Str = append(v.Str, []byte(p.cur.text)...)
			}
		}
	case p.isPunct('{'):
		v.Kind = ast.ValAggregate
		v.Aggregate = p.parseAggregate()
	case p.isPunct('['):
		v.Kind = ast.ValArray
		v.Array = p.parseArrayValue()
	case p.cur.kind == tokIdent:
		v.Kind = ast.ValIdentifier
		v.Identifier = p.cur.text
		p.advance()
	default:
		p.errorf(p.cur.span, "found %s, expected option value", p.cur.describe())
		p.advance()
	}
	v.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	return v
}

func (p *parser) parseNumericOptionValue(negative bool) *ast.OptionValue {
	v := &ast.OptionValue{}
	switch {
	case p.cur.kind == tokInt:
		if negative {
			v.Kind = ast.ValNegativeInt
			v.NegInt = -int64(p.cur.i)
		} else {
			v.Kind = ast.ValPositiveInt
			v.PosInt = p.cur.i
		}
		p.advance()
	case p.cur.kind == tokFloat:
		v.Kind = ast.ValFloat
		v.Float = p.cur.f
		if negative {
			v.Float = -v.Float
		}
		p.advance()
	case p.isIdent(kwInf):
		v.Kind = ast.ValFloat
		v.Float = inf(negative)
		p.advance()
	case p.isIdent(kwNan):
		v.Kind = ast.ValFloat
		v.Float = nan()
		p.advance()
	default:
		p.errorf(p.cur.span, "found %s, expected number after sign", p.cur.describe())
	}
	return v
}

func (p *parser) parseArrayValue() []*ast.OptionValue {
	p.advance() // "["
	var vals []*ast.OptionValue
	for !p.isPunct(']') && p.cur.kind != tokEOF {
		vals = append(vals, p.parseOptionValue())
		if p.isPunct(',') {
			p.advance()
			continue
		}
		break
	}
	p.expectPunct(']')
	return vals
}

// parseAggregate parses a `{ name: value, ... }` text-format-like literal,
// used both as a top-level option value and recursively for message-typed
// fields inside one.
func (p *parser) parseAggregate() []*ast.AggregateField {
	p.advance() // "{"
	var fields []*ast.AggregateField
	for !p.isPunct('}') && p.cur.kind != tokEOF {
		fields = append(fields, p.parseAggregateField())
	}
	p.expectPunct('}')
	return fields
}

func (p *parser) parseAggregateField() *ast.AggregateField {
	start := p.cur.span
	af := &ast.AggregateField{}
	af.Name = p.parseOptionName()
	if p.isPunct(':') {
		p.advance()
		af.Val = p.parseOptionValue()
	} else if p.isPunct('{') {
		v := &ast.OptionValue{Kind: ast.ValAggregate}
		aggStart := p.cur.span
		v.Aggregate = p.parseAggregate()
		v.SetSpan(ast.Span{Start: aggStart.Start, End: p.prevSpanEnd()})
		af.Val = v
	} else {
		p.errorf(p.cur.span, "found %s, expected ':' or '{' in aggregate field", p.cur.describe())
	}
	if p.isPunct(',') || p.isPunct(';') {
		p.advance()
	}
	af.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	return af
}

// parseOptionBrackets parses the `[name=value, ...]` suffix allowed on
// fields, enum values, and extension ranges. Returns nil if there is no
// bracketed list.
func (p *parser) parseOptionBrackets() []*ast.Option {
	if !p.isPunct('[') {
		return nil
	}
	p.advance()
	var opts []*ast.Option
	for {
		start := p.cur.span
		opt := p.parseOptionNameAndValue()
		opt.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
		opts = append(opts, opt)
		if p.isPunct(',') {
			p.advance()
			continue
		}
		break
	}
	p.expectPunct(']')
	return opts
}

func inf(negative bool) float64 {
	if negative {
		return negInf
	}
	return posInf
}

var (
	posInf = mustFloat("+Inf")
	negInf = mustFloat("-Inf")
)

func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return f
}

func nan() float64 {
	return mustFloat("NaN")
}
