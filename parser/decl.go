package parser

import (
	"strings"

	"github.com/protoglot/protoglot/ast"
)

// parseMessage parses a `message Name { ... }` declaration, including the
// map and group field desugaring protoc itself performs: a `map<K,V> foo`
// field becomes a field of type FooEntry plus a synthesized nested message
// named FooEntry with key/value fields, and a `group Foo = N { ... }` field
// becomes a field of type Foo plus a synthesized nested message named Foo.
func (p *parser) parseMessage() *ast.Message {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "message"
	m := &ast.Message{}
	m.Name, _, _ = p.expectIdent()
	p.parseMessageBody(m)
	m.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(m, startLine)
	return m
}

func (p *parser) parseMessageBody(m *ast.Message) {
	if !p.expectPunct('{') {
		return
	}
	for !p.isPunct('}') && p.cur.kind != tokEOF {
		switch {
		case p.isPunct(';'):
			p.advance()
		case p.isIdent(kwMessage):
			m.Messages = append(m.Messages, p.parseMessage())
		case p.isIdent(kwEnum):
			m.Enums = append(m.Enums, p.parseEnum())
		case p.isIdent(kwExtend):
			m.Extends = append(m.Extends, p.parseExtend())
		case p.isIdent(kwExtensions):
			m.ExtensionRanges = append(m.ExtensionRanges, p.parseExtensionRange())
		case p.isIdent(kwReserved):
			p.parseReserved(&m.ReservedRanges, &m.ReservedNames)
		case p.isIdent(kwOption):
			m.Options = append(m.Options, p.parseOptionStatement())
		case p.isIdent(kwOneof):
			m.Oneofs = append(m.Oneofs, p.parseOneof(m))
		case p.isIdent(kwMap):
			m.Fields = append(m.Fields, p.parseMapField(m))
		case p.isIdent(kwGroup) || p.isFieldStart():
			f, nested := p.parseField(m)
			m.Fields = append(m.Fields, f)
			if nested != nil {
				m.Messages = append(m.Messages, nested)
			}
		default:
			p.errorf(p.cur.span, "found %s, expected message element", p.cur.describe())
			p.skipStatement()
		}
	}
	p.expectPunct('}')
}

// isFieldStart reports whether the current token could begin a field
// declaration: a label keyword, a scalar type, or (in proto3/editions) a
// bare type name.
func (p *parser) isFieldStart() bool {
	if p.isPunct('.') {
		return true // fully-qualified type name
	}
	if p.cur.kind != tokIdent {
		return false
	}
	switch p.cur.text {
	case kwOptional, kwRequired, kwRepeated:
		return true
	}
	return true // bare type name, or message/enum type reference
}

func (p *parser) parseLabel() ast.FieldLabel {
	switch {
	case p.isIdent(kwOptional):
		p.advance()
		return ast.LabelOptional
	case p.isIdent(kwRequired):
		p.advance()
		return ast.LabelRequired
	case p.isIdent(kwRepeated):
		p.advance()
		return ast.LabelRepeated
	default:
		return ast.LabelNone
	}
}

// parseField parses a single field declaration. If it is a group field, it
// additionally returns the synthesized nested message the group desugars
// to; the caller is responsible for adding it to the enclosing scope.
func (p *parser) parseField(enclosing *ast.Message) (*ast.Field, *ast.Message) {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line

	label := p.parseLabel()
	labelSpan := start
	if label == ast.LabelNone {
		labelSpan = ast.Span{}
	}

	if p.isIdent(kwGroup) {
		return p.parseGroupField(label, labelSpan, start, startLine)
	}

	f := &ast.Field{Label: label, LabelSpan: labelSpan}
	f.Type, f.TypeSpan = p.parseTypeName()
	f.Name, f.NameSpan, _ = p.expectIdent()
	p.expectPunct('=')
	p.parseFieldNumber(f)
	f.Options = p.parseOptionBrackets()
	p.expectPunct(';')
	f.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(f, startLine)
	return f, nil
}

func (p *parser) parseFieldNumber(f *ast.Field) {
	span := p.cur.span
	f.NumberSpan = span
	if p.cur.kind != tokInt {
		p.errorf(span, "found %s, expected field number", p.cur.describe())
		return
	}
	if p.cur.i == 0 || p.cur.i > 0x1fffffff {
		p.errorf(span, "field number %d is out of range", p.cur.i)
	} else if p.cur.i >= 19000 && p.cur.i <= 19999 {
		p.errorf(span, "field number %d is in reserved range 19000-19999", p.cur.i)
	}
	f.Number = int32(p.cur.i)
	p.advance()
}

func (p *parser) parseGroupField(label ast.FieldLabel, labelSpan, start ast.Span, startLine int) (*ast.Field, *ast.Message) {
	p.advance() // "group"
	name, nameSpan, _ := p.expectIdent()
	p.expectPunct('=')
	f := &ast.Field{Label: label, LabelSpan: labelSpan, Type: name, TypeSpan: nameSpan, Name: strings.ToLower(name), NameSpan: nameSpan}
	p.parseFieldNumber(f)

	group := &ast.Message{Name: name, IsGroup: true}
	p.parseMessageBody(group)
	f.Group = group
	f.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	group.SetSpan(f.NodeSpan())
	p.attach(f, startLine)
	return f, group
}

// legalMapKeyTypes is the set of scalar type keywords allowed as a map key:
// any integral type, bool, or string. Floating-point, bytes, message, and
// enum types are not ordered/hashable in the way the wire format and every
// generated-code backend needs, so they're rejected here rather than left
// for a downstream backend to reject less clearly.
var legalMapKeyTypes = map[string]bool{
	"int32": true, "int64": true, "uint32": true, "uint64": true,
	"sint32": true, "sint64": true, "fixed32": true, "fixed64": true,
	"sfixed32": true, "sfixed64": true, "bool": true, "string": true,
}

// parseMapField parses `map<KeyType, ValType> name = N;`, synthesizing the
// NameEntry nested message the reference compiler generates for it.
func (p *parser) parseMapField(enclosing *ast.Message) *ast.Field {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "map"
	p.expectPunct('<')
	keyType, keySpan := p.parseTypeName()
	if !legalMapKeyTypes[keyType] {
		p.errorfKind(ErrInvalidMapKey, keySpan, "invalid map key type %q: must be an integral, bool, or string type", keyType)
	}
	p.expectPunct(',')
	valType, valSpan := p.parseTypeName()
	p.expectPunct('>')
	name, nameSpan, _ := p.expectIdent()
	p.expectPunct('=')

	f := &ast.Field{
		Label: ast.LabelRepeated, Name: name, NameSpan: nameSpan,
		MapKeyType: keyType, MapKeyTypeSpan: keySpan,
		MapValueType: valType, MapValueTypeSpan: valSpan,
	}
	entryName := mapEntryName(name)
	f.Type = entryName
	f.TypeSpan = nameSpan
	p.parseFieldNumber(f)
	f.Options = p.parseOptionBrackets()
	p.expectPunct(';')
	f.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})

	entry := &ast.Message{
		Name:       entryName,
		IsMapEntry: true,
		Fields: []*ast.Field{
			{Name: "key", Type: keyType, Number: 1},
			{Name: "value", Type: valType, Number: 2},
		},
	}
	f.Group = entry // reuse Group as the synthesized-message slot for map entries too
	enclosing.Messages = append(enclosing.Messages, entry)

	p.attach(f, startLine)
	return f
}

func mapEntryName(fieldName string) string {
	name := ""
	upperNext := true
	for _, r := range fieldName {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upperNext = false
		name += string(r)
	}
	return name + "Entry"
}

func (p *parser) parseOneof(enclosing *ast.Message) *ast.OneOf {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "oneof"
	o := &ast.OneOf{}
	o.Name, _, _ = p.expectIdent()
	if p.expectPunct('{') {
		for !p.isPunct('}') && p.cur.kind != tokEOF {
			switch {
			case p.isPunct(';'):
				p.advance()
			case p.isIdent(kwOption):
				o.Options = append(o.Options, p.parseOptionStatement())
			default:
				f, nested := p.parseField(enclosing)
				o.Fields = append(o.Fields, f)
				if nested != nil {
					enclosing.Messages = append(enclosing.Messages, nested)
				}
			}
		}
		p.expectPunct('}')
	}
	o.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(o, startLine)
	return o
}

func (p *parser) parseExtensionRange() *ast.ExtensionRange {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "extensions"
	er := &ast.ExtensionRange{}
	er.Ranges = p.parseRanges()
	er.Options = p.parseOptionBrackets()
	p.expectPunct(';')
	er.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(er, startLine)
	return er
}

// parseRanges parses a comma-separated list of `N`, `N to M`, or `N to max`
// entries, shared by extensions and reserved-range declarations.
func (p *parser) parseRanges() []ast.Range {
	var ranges []ast.Range
	for {
		start := p.cur.span
		lo := p.parseRangeNumber()
		hi := lo
		if p.isIdent(kwTo) {
			p.advance()
			if p.isIdent(kwMax) {
				hi = 0x1fffffff
				p.advance()
			} else {
				hi = p.parseRangeNumber()
			}
		}
		ranges = append(ranges, ast.Range{Span: ast.Span{Start: start.Start, End: p.prevSpanEnd()}, Start: lo, End: hi})
		if p.isPunct(',') {
			p.advance()
			continue
		}
		break
	}
	return ranges
}

func (p *parser) parseRangeNumber() int32 {
	if p.cur.kind != tokInt {
		p.errorf(p.cur.span, "found %s, expected integer", p.cur.describe())
		return 0
	}
	v := int32(p.cur.i)
	p.advance()
	return v
}

func (p *parser) parseReserved(ranges *[]*ast.ReservedRange, names *[]string) {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "reserved"

	if p.cur.kind == tokString {
		rr := &ast.ReservedRange{}
		for p.cur.kind == tokString {
			rr.Names = append(rr.Names, p.cur.text)
			*names = append(*names, p.cur.text)
			p.advance()
			if p.isPunct(',') {
				p.advance()
				continue
			}
			break
		}
		p.expectPunct(';')
		rr.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
		p.attach(rr, startLine)
		*ranges = append(*ranges, rr)
		return
	}

	rr := &ast.ReservedRange{Ranges: p.parseRanges()}
	p.expectPunct(';')
	rr.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(rr, startLine)
	*ranges = append(*ranges, rr)
}

func (p *parser) parseEnum() *ast.Enum {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "enum"
	e := &ast.Enum{}
	e.Name, _, _ = p.expectIdent()
	if p.expectPunct('{') {
		for !p.isPunct('}') && p.cur.kind != tokEOF {
			switch {
			case p.isPunct(';'):
				p.advance()
			case p.isIdent(kwOption):
				e.Options = append(e.Options, p.parseOptionStatement())
			case p.isIdent(kwReserved):
				p.parseReserved(&e.ReservedRanges, &e.ReservedNames)
			default:
				e.Values = append(e.Values, p.parseEnumValue())
			}
		}
		p.expectPunct('}')
	}
	e.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(e, startLine)
	return e
}

func (p *parser) parseEnumValue() *ast.EnumValue {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	ev := &ast.EnumValue{}
	ev.Name, ev.NameSpan, _ = p.expectIdent()
	p.expectPunct('=')

	neg := false
	if p.isPunct('-') {
		neg = true
		p.advance()
	}
	if p.cur.kind == tokInt {
		ev.NumberSpan = p.cur.span
		ev.Number = int32(p.cur.i)
		if neg {
			ev.Number = -ev.Number
		}
		p.advance()
	} else {
		p.errorf(p.cur.span, "found %s, expected enum value number", p.cur.describe())
	}
	ev.Options = p.parseOptionBrackets()
	p.expectPunct(';')
	ev.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(ev, startLine)
	return ev
}

func (p *parser) parseExtend() *ast.Extend {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "extend"
	ex := &ast.Extend{}
	ex.Extendee, ex.ExtendeeSpan = p.parseTypeName()
	if p.expectPunct('{') {
		for !p.isPunct('}') && p.cur.kind != tokEOF {
			switch {
			case p.isPunct(';'):
				p.advance()
			case p.isIdent(kwGroup):
				f, _ := p.parseField(nil)
				f.IsExtension = true
				ex.Fields = append(ex.Fields, f)
			default:
				f, _ := p.parseField(nil)
				f.IsExtension = true
				ex.Fields = append(ex.Fields, f)
			}
		}
		p.expectPunct('}')
	}
	ex.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(ex, startLine)
	return ex
}

func (p *parser) parseService() *ast.Service {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "service"
	s := &ast.Service{}
	s.Name, _, _ = p.expectIdent()
	if p.expectPunct('{') {
		for !p.isPunct('}') && p.cur.kind != tokEOF {
			switch {
			case p.isPunct(';'):
				p.advance()
			case p.isIdent(kwOption):
				s.Options = append(s.Options, p.parseOptionStatement())
			case p.isIdent(kwRPC):
				s.Methods = append(s.Methods, p.parseRPC())
			default:
				p.errorf(p.cur.span, "found %s, expected service element", p.cur.describe())
				p.skipStatement()
			}
		}
		p.expectPunct('}')
	}
	s.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(s, startLine)
	return s
}

func (p *parser) parseRPC() *ast.RPC {
	start := p.cur.span
	startLine := p.lx.fi.StartPos(start).Line
	p.advance() // "rpc"
	r := &ast.RPC{}
	r.Name, _, _ = p.expectIdent()
	p.expectPunct('(')
	if p.isIdent(kwStream) {
		r.InputStream = true
		p.advance()
	}
	r.InputType, r.InputSpan = p.parseTypeName()
	p.expectPunct(')')
	if !p.isIdent(kwReturns) {
		p.errorf(p.cur.span, "found %s, expected %q", p.cur.describe(), kwReturns)
	} else {
		p.advance()
	}
	p.expectPunct('(')
	if p.isIdent(kwStream) {
		r.OutputStream = true
		p.advance()
	}
	r.OutputType, r.OutputSpan = p.parseTypeName()
	p.expectPunct(')')

	if p.isPunct('{') {
		p.advance()
		for !p.isPunct('}') && p.cur.kind != tokEOF {
			if p.isIdent(kwOption) {
				r.Options = append(r.Options, p.parseOptionStatement())
			} else if p.isPunct(';') {
				p.advance()
			} else {
				p.errorf(p.cur.span, "found %s, expected method option or %q", p.cur.describe(), "}")
				p.skipStatement()
			}
		}
		p.expectPunct('}')
	} else {
		p.expectPunct(';')
	}
	r.SetSpan(ast.Span{Start: start.Start, End: p.prevSpanEnd()})
	p.attach(r, startLine)
	return r
}
