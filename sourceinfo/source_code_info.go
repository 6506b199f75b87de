// Package sourceinfo builds the descriptorpb.SourceCodeInfo for a parsed
// file: for every declaration in the descriptor, the byte span it came
// from and whatever comments the lexer attached to it.
//
// Unlike a token-stream-based implementation, comment attribution here is
// trivial: the parser already decided, per node, which comments are
// leading, trailing, or detached (see ast.Commented), so this package only
// has to walk the same declaration tree descriptorpb construction walks
// and ask each node for the comments it already carries.
package sourceinfo

import (
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/internal"
)

// Generate builds SourceCodeInfo for f. fi must be the FileInfo f was
// parsed with, so that spans can be converted to line/column positions.
func Generate(f *ast.File, fi *ast.FileInfo) *descriptorpb.SourceCodeInfo {
	b := &builder{fi: fi}

	path := make([]int32, 0, 10)
	if f.Syntax != "" {
		b.span(f.SyntaxSpan, append(path, internal.File_syntaxTag))
	}

	var pubIdx, weakIdx int32
	for i, imp := range f.Imports {
		p := append(path, internal.File_dependencyTag, int32(i))
		b.loc(imp, p)
		if imp.Public {
			b.span(imp.PathSpan, append(path, internal.File_publicDependencyTag, pubIdx))
			pubIdx++
		} else if imp.Weak {
			b.span(imp.PathSpan, append(path, internal.File_weakDependencyTag, weakIdx))
			weakIdx++
		}
	}

	if f.Package != "" {
		b.span(f.PackageSpan, append(path, internal.File_packageTag))
	}

	b.options(f.Options, append(path, internal.File_optionsTag))

	for i, m := range f.Messages {
		b.message(m, append(path, internal.File_messagesTag, int32(i)))
	}
	for i, e := range f.Enums {
		b.enum(e, append(path, internal.File_enumsTag, int32(i)))
	}
	for i, s := range f.Services {
		b.service(s, append(path, internal.File_servicesTag, int32(i)))
	}
	extIdx := int32(0)
	for _, ex := range f.Extends {
		for _, field := range ex.Fields {
			b.field(field, append(path, internal.File_extensionsTag, extIdx))
			extIdx++
		}
	}

	return &descriptorpb.SourceCodeInfo{Location: b.locs}
}

type builder struct {
	fi   *ast.FileInfo
	locs []*descriptorpb.SourceCodeInfo_Location
}

func dup(p []int32) []int32 {
	return append([]int32(nil), p...)
}

func (b *builder) span(s ast.Span, path []int32) {
	if !s.IsValid() {
		return
	}
	b.locs = append(b.locs, &descriptorpb.SourceCodeInfo_Location{
		Path: dup(path),
		Span: makeSpan(b.fi.StartPos(s), b.fi.EndPos(s)),
	})
}

// loc records a location for n's own span, with whatever comments n
// carries.
func (b *builder) loc(n ast.Commented, path []int32) {
	start, end := b.fi.StartPos(n.NodeSpan()), b.fi.EndPos(n.NodeSpan())
	loc := &descriptorpb.SourceCodeInfo_Location{
		Path: dup(path),
		Span: makeSpan(start, end),
	}
	if t := n.Trailing(); t != nil {
		s := commentText(*t)
		loc.TrailingComments = &s
	}
	if leading := n.Leading(); len(leading) > 0 {
		s := joinComments(leading)
		loc.LeadingComments = &s
	}
	for _, group := range n.LeadingDetached() {
		loc.LeadingDetachedComments = append(loc.LeadingDetachedComments, joinComments(group))
	}
	b.locs = append(b.locs, loc)
}

func joinComments(group []ast.Comment) string {
	var s string
	for _, c := range group {
		s += commentText(c)
	}
	return s
}

// commentText strips comment markers the way protoc does: "//" is dropped
// and the line comment's (otherwise absent from the lexed text) trailing
// newline is restored; "/*"..."*/" is dropped from a block comment and each
// inner line has a leading run of whitespace-then-'*' collapsed to a single
// space, mirroring how protoc formats javadoc-style block comments.
func commentText(c ast.Comment) string {
	txt := c.Text
	switch {
	case strings.HasPrefix(txt, "//"):
		return txt[2:] + "\n"
	case strings.HasPrefix(txt, "/*") && strings.HasSuffix(txt, "*/") && len(txt) >= 4:
		body := txt[2 : len(txt)-2]
		lines := strings.Split(body, "\n")
		var buf strings.Builder
		for i, l := range lines {
			if i > 0 {
				buf.WriteByte('\n')
			}
			j := 0
			for j < len(l) && (l[j] == ' ' || l[j] == '\t') {
				j++
			}
			switch {
			case j == len(l):
				l = ""
			case l[j] == '*':
				l = l[j+1:]
			case j > 0:
				l = " " + l[j:]
			}
			buf.WriteString(l)
		}
		return buf.String()
	default:
		return txt
	}
}

func makeSpan(start, end ast.SourcePos) []int32 {
	if start.Line == end.Line {
		return []int32{int32(start.Line) - 1, int32(start.Col) - 1, int32(end.Col) - 1}
	}
	return []int32{int32(start.Line) - 1, int32(start.Col) - 1, int32(end.Line) - 1, int32(end.Col) - 1}
}

func (b *builder) options(opts []*ast.Option, path []int32) {
	for i, o := range opts {
		b.loc(o, append(path, internal.UninterpretedOptionTag, int32(i)))
	}
}

func (b *builder) message(m *ast.Message, path []int32) {
	b.loc(m, path)

	var fieldIdx, nestedIdx int32
	for oi, oo := range m.Oneofs {
		ooPath := append(path, internal.Message_oneOfsTag, int32(oi))
		b.loc(oo, ooPath)
		b.options(oo.Options, append(ooPath, internal.Oneof_optionsTag))
		for _, f := range oo.Fields {
			b.field(f, append(path, internal.Message_fieldsTag, fieldIdx))
			fieldIdx++
		}
	}
	for _, f := range m.Fields {
		fPath := append(path, internal.Message_fieldsTag, fieldIdx)
		b.field(f, fPath)
		fieldIdx++
	}
	for _, nested := range m.Messages {
		b.message(nested, append(path, internal.Message_nestedMessagesTag, nestedIdx))
		nestedIdx++
	}
	for i, e := range m.Enums {
		b.enum(e, append(path, internal.Message_enumsTag, int32(i)))
	}
	extIdx := int32(0)
	for _, ex := range m.Extends {
		for _, f := range ex.Fields {
			b.field(f, append(path, internal.Message_extensionsTag, extIdx))
			extIdx++
		}
	}
	erIdx := int32(0)
	for _, er := range m.ExtensionRanges {
		for _, r := range er.Ranges {
			rPath := append(path, internal.Message_extensionRangeTag, erIdx)
			erIdx++
			b.span(r.Span, rPath)
			b.options(er.Options, append(rPath, internal.ExtensionRange_optionsTag))
		}
	}
	rrIdx := int32(0)
	for _, rr := range m.ReservedRanges {
		for _, r := range rr.Ranges {
			b.span(r.Span, append(path, internal.Message_reservedRangeTag, rrIdx))
			rrIdx++
		}
	}
	b.options(m.Options, append(path, internal.Message_optionsTag))
}

func (b *builder) field(f *ast.Field, path []int32) {
	b.loc(f, path)
	if f.NameSpan.IsValid() {
		b.span(f.NameSpan, append(path, internal.Field_nameTag))
	}
	if f.NumberSpan.IsValid() {
		b.span(f.NumberSpan, append(path, internal.Field_numberTag))
	}
	if f.LabelSpan.IsValid() {
		b.span(f.LabelSpan, append(path, internal.Field_labelTag))
	}
	if f.TypeSpan.IsValid() {
		tag := int32(internal.Field_typeTag)
		if _, isScalar := internal.FieldTypes[f.Type]; !isScalar {
			tag = int32(internal.Field_typeNameTag)
		}
		b.span(f.TypeSpan, append(path, tag))
	}
	b.options(f.Options, append(path, internal.Field_optionsTag))
}

func (b *builder) enum(e *ast.Enum, path []int32) {
	b.loc(e, path)
	for i, v := range e.Values {
		vPath := append(path, internal.Enum_valuesTag, int32(i))
		b.loc(v, vPath)
		if v.NameSpan.IsValid() {
			b.span(v.NameSpan, append(vPath, internal.EnumVal_nameTag))
		}
		if v.NumberSpan.IsValid() {
			b.span(v.NumberSpan, append(vPath, internal.EnumVal_numberTag))
		}
		b.options(v.Options, append(vPath, internal.EnumVal_optionsTag))
	}
	rrIdx := int32(0)
	for _, rr := range e.ReservedRanges {
		for _, r := range rr.Ranges {
			b.span(r.Span, append(path, internal.Enum_reservedRangeTag, rrIdx))
			rrIdx++
		}
	}
	b.options(e.Options, append(path, internal.Enum_optionsTag))
}

func (b *builder) service(s *ast.Service, path []int32) {
	b.loc(s, path)
	for i, m := range s.Methods {
		mPath := append(path, internal.Service_methodsTag, int32(i))
		b.loc(m, mPath)
		if m.InputSpan.IsValid() {
			b.span(m.InputSpan, append(mPath, internal.Method_inputTypeTag))
		}
		if m.OutputSpan.IsValid() {
			b.span(m.OutputSpan, append(mPath, internal.Method_outputTypeTag))
		}
		b.options(m.Options, append(mPath, internal.Method_optionsTag))
	}
	b.options(s.Options, append(path, internal.Service_optionsTag))
}
