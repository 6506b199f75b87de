package linker

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/internal"
	"github.com/protoglot/protoglot/internal/editions"
	"github.com/protoglot/protoglot/reporter"
)

// Positions records, for every descriptor proto message produced by
// ToProto, the source position of the declaration it came from. It is
// built alongside the descriptor so that later passes (symbol indexing,
// name resolution, validation) can report precise diagnostics without
// re-deriving spans from the AST.
type Positions map[proto.Message]ast.SourcePos

func (p Positions) set(fi *ast.FileInfo, m proto.Message, span ast.Span) {
	p[m] = fi.StartPos(span)
}

// ToProto converts a parsed file into the unlinked descriptor shape: every
// structural element is present, but type-name references still hold their
// original source text rather than a resolved fully-qualified name, and
// options are represented solely as UninterpretedOption entries. The only
// error ToProto itself can report is a field that tries to set its own
// json_name, which is rejected outright rather than honored.
func ToProto(f *ast.File, fi *ast.FileInfo, h *reporter.Handler) (*descriptorpb.FileDescriptorProto, Positions, error) {
	c := &converter{fi: fi, pos: Positions{}, h: h}
	fd := &descriptorpb.FileDescriptorProto{Name: proto.String(f.Name)}

	if f.Package != "" {
		fd.Package = proto.String(f.Package)
	}
	if f.Syntax != "" {
		fd.Syntax = proto.String(f.Syntax)
	}
	if f.Edition != "" {
		fd.Syntax = proto.String("editions")
		if e, ok := editions.SupportedEditions[f.Edition]; ok {
			fd.Edition = e.Enum()
		}
	}

	for i, imp := range f.Imports {
		fd.Dependency = append(fd.Dependency, imp.Path)
		switch {
		case imp.Public:
			fd.PublicDependency = append(fd.PublicDependency, int32(i))
		case imp.Weak:
			fd.WeakDependency = append(fd.WeakDependency, int32(i))
		}
	}

	if len(f.Options) > 0 {
		fo := &descriptorpb.FileOptions{}
		fo.UninterpretedOption = c.convertOptions(f.Options)
		fd.Options = fo
	}

	pkgPrefix := ""
	if f.Package != "" {
		pkgPrefix = "." + f.Package
	}

	for _, m := range f.Messages {
		fd.MessageType = append(fd.MessageType, c.convertMessage(m, pkgPrefix))
	}
	for _, e := range f.Enums {
		fd.EnumType = append(fd.EnumType, c.convertEnum(e, pkgPrefix))
	}
	for _, s := range f.Services {
		fd.Service = append(fd.Service, c.convertService(s, pkgPrefix))
	}
	for _, ext := range f.Extends {
		fd.Extension = append(fd.Extension, c.convertExtendFields(ext, pkgPrefix)...)
	}

	return fd, c.pos, c.err
}

type converter struct {
	fi  *ast.FileInfo
	pos Positions
	h   *reporter.Handler
	err error
}

func (c *converter) convertMessage(m *ast.Message, scope string) *descriptorpb.DescriptorProto {
	dp := &descriptorpb.DescriptorProto{Name: proto.String(m.Name)}
	c.pos.set(c.fi, dp, m.NodeSpan())
	inner := scope + "." + m.Name

	for i, oo := range m.Oneofs {
		odp := &descriptorpb.OneofDescriptorProto{Name: proto.String(oo.Name)}
		if len(oo.Options) > 0 {
			odp.Options = &descriptorpb.OneofOptions{UninterpretedOption: c.convertOptions(oo.Options)}
		}
		c.pos.set(c.fi, odp, oo.NodeSpan())
		dp.OneofDecl = append(dp.OneofDecl, odp)
		for _, f := range oo.Fields {
			fdp := c.convertField(f, inner)
			fdp.OneofIndex = proto.Int32(int32(i))
			dp.Field = append(dp.Field, fdp)
		}
	}

	for _, f := range m.Fields {
		dp.Field = append(dp.Field, c.convertField(f, inner))
	}
	for _, nested := range m.Messages {
		dp.NestedType = append(dp.NestedType, c.convertMessage(nested, inner))
	}
	for _, e := range m.Enums {
		dp.EnumType = append(dp.EnumType, c.convertEnum(e, inner))
	}
	for _, ext := range m.Extends {
		dp.Extension = append(dp.Extension, c.convertExtendFields(ext, inner)...)
	}
	for _, er := range m.ExtensionRanges {
		for _, r := range er.Ranges {
			erp := &descriptorpb.DescriptorProto_ExtensionRange{
				Start: proto.Int32(r.Start),
				End:   proto.Int32(r.End + 1), // descriptor ranges are half-open
			}
			if len(er.Options) > 0 {
				erp.Options = &descriptorpb.ExtensionRangeOptions{UninterpretedOption: c.convertOptions(er.Options)}
			}
			c.pos.set(c.fi, erp, er.NodeSpan())
			dp.ExtensionRange = append(dp.ExtensionRange, erp)
		}
	}
	for _, rr := range m.ReservedRanges {
		for _, r := range rr.Ranges {
			rrp := &descriptorpb.DescriptorProto_ReservedRange{Start: proto.Int32(r.Start), End: proto.Int32(r.End + 1)}
			c.pos.set(c.fi, rrp, rr.NodeSpan())
			dp.ReservedRange = append(dp.ReservedRange, rrp)
		}
		dp.ReservedName = append(dp.ReservedName, rr.Names...)
	}

	if m.IsMapEntry {
		dp.Options = &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)}
	}

	return dp
}

func (c *converter) convertField(f *ast.Field, scope string) *descriptorpb.FieldDescriptorProto {
	fdp := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(f.Name),
		Number: proto.Int32(f.Number),
		Label:  protoLabel(f.Label),
	}
	c.pos.set(c.fi, fdp, f.NodeSpan())

	switch {
	case f.Group != nil && f.Group.IsMapEntry:
		fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
		fdp.TypeName = proto.String(f.Type)
	case f.Group != nil:
		fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_GROUP.Enum()
		fdp.TypeName = proto.String(f.Type)
	default:
		if t, ok := internal.FieldTypes[f.Type]; ok {
			fdp.Type = t.Enum()
		} else {
			// Message or enum reference; name resolution fills in the
			// correct Type (TYPE_MESSAGE vs TYPE_ENUM) once it knows what
			// this name actually refers to.
			fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			fdp.TypeName = proto.String(f.Type)
		}
	}

	opts, defaultVal, jsonName := extractPseudoOptions(f.Options)
	if defaultVal != nil {
		fdp.DefaultValue = proto.String(renderScalarText(defaultVal))
	}
	if jsonName != "" && c.err == nil {
		c.err = c.h.HandleErrorf(c.pos[fdp], "field %s: json_name may not be set explicitly; it is always computed from the field name", f.Name)
	}
	fdp.JsonName = proto.String(defaultJSONName(f.Name))
	if len(opts) > 0 {
		fdp.Options = &descriptorpb.FieldOptions{UninterpretedOption: c.convertOptions(opts)}
	}

	return fdp
}

func protoLabel(l ast.FieldLabel) *descriptorpb.FieldDescriptorProto_Label {
	switch l {
	case ast.LabelRequired:
		return descriptorpb.FieldDescriptorProto_LABEL_REQUIRED.Enum()
	case ast.LabelRepeated:
		return descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	default:
		return descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	}
}

// defaultJSONName implements protoc's lowerCamelCase conversion of a
// snake_case field name, used whenever json_name isn't explicitly set.
func defaultJSONName(name string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range name {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upperNext = false
		b.WriteRune(r)
	}
	return b.String()
}

// extractPseudoOptions pulls the "default" and "json_name" pseudo-options
// out of a field's bracketed option list: protoc parses them as ordinary
// options syntactically but stores them in dedicated descriptor fields
// rather than as UninterpretedOption entries.
func extractPseudoOptions(opts []*ast.Option) (remaining []*ast.Option, defaultVal *ast.OptionValue, jsonName string) {
	for _, o := range opts {
		if len(o.Name) == 1 && !o.Name[0].IsExtension {
			switch o.Name[0].Text {
			case "default":
				defaultVal = o.Val
				continue
			case "json_name":
				jsonName = o.Val.Identifier
				if o.Val.Kind == ast.ValString {
					jsonName = string(o.Val.Str)
				}
				continue
			}
		}
		remaining = append(remaining, o)
	}
	return remaining, defaultVal, jsonName
}

func (c *converter) convertEnum(e *ast.Enum, scope string) *descriptorpb.EnumDescriptorProto {
	ep := &descriptorpb.EnumDescriptorProto{Name: proto.String(e.Name)}
	c.pos.set(c.fi, ep, e.NodeSpan())
	for _, v := range e.Values {
		vp := &descriptorpb.EnumValueDescriptorProto{Name: proto.String(v.Name), Number: proto.Int32(v.Number)}
		c.pos.set(c.fi, vp, v.NodeSpan())
		if len(v.Options) > 0 {
			vp.Options = &descriptorpb.EnumValueOptions{UninterpretedOption: c.convertOptions(v.Options)}
		}
		ep.Value = append(ep.Value, vp)
	}
	if len(e.Options) > 0 {
		ep.Options = &descriptorpb.EnumOptions{UninterpretedOption: c.convertOptions(e.Options)}
	}
	for _, rr := range e.ReservedRanges {
		for _, r := range rr.Ranges {
			ep.ReservedRange = append(ep.ReservedRange, &descriptorpb.EnumDescriptorProto_EnumReservedRange{
				Start: proto.Int32(r.Start), End: proto.Int32(r.End),
			})
		}
		ep.ReservedName = append(ep.ReservedName, rr.Names...)
	}
	return ep
}

func (c *converter) convertService(s *ast.Service, scope string) *descriptorpb.ServiceDescriptorProto {
	sp := &descriptorpb.ServiceDescriptorProto{Name: proto.String(s.Name)}
	c.pos.set(c.fi, sp, s.NodeSpan())
	for _, m := range s.Methods {
		mp := &descriptorpb.MethodDescriptorProto{
			Name:            proto.String(m.Name),
			InputType:       proto.String(m.InputType),
			OutputType:      proto.String(m.OutputType),
			ClientStreaming: proto.Bool(m.InputStream),
			ServerStreaming: proto.Bool(m.OutputStream),
		}
		c.pos.set(c.fi, mp, m.NodeSpan())
		if len(m.Options) > 0 {
			mp.Options = &descriptorpb.MethodOptions{UninterpretedOption: c.convertOptions(m.Options)}
		}
		sp.Method = append(sp.Method, mp)
	}
	if len(s.Options) > 0 {
		sp.Options = &descriptorpb.ServiceOptions{UninterpretedOption: c.convertOptions(s.Options)}
	}
	return sp
}

func (c *converter) convertExtendFields(ex *ast.Extend, scope string) []*descriptorpb.FieldDescriptorProto {
	var fields []*descriptorpb.FieldDescriptorProto
	for _, f := range ex.Fields {
		fdp := c.convertField(f, scope)
		fdp.Extendee = proto.String(ex.Extendee)
		fields = append(fields, fdp)
	}
	return fields
}

func (c *converter) convertOptions(opts []*ast.Option) []*descriptorpb.UninterpretedOption {
	var out []*descriptorpb.UninterpretedOption
	for _, o := range opts {
		uo := &descriptorpb.UninterpretedOption{}
		for _, part := range o.Name {
			uo.Name = append(uo.Name, &descriptorpb.UninterpretedOption_NamePart{
				NamePart:    proto.String(part.Text),
				IsExtension: proto.Bool(part.IsExtension),
			})
		}
		c.fillOptionValue(uo, o.Val)
		c.pos.set(c.fi, uo, o.NodeSpan())
		out = append(out, uo)
	}
	return out
}

func (c *converter) fillOptionValue(uo *descriptorpb.UninterpretedOption, v *ast.OptionValue) {
	switch v.Kind {
	case ast.ValIdentifier:
		uo.IdentifierValue = proto.String(v.Identifier)
	case ast.ValPositiveInt:
		uo.PositiveIntValue = proto.Uint64(v.PosInt)
	case ast.ValNegativeInt:
		uo.NegativeIntValue = proto.Int64(v.NegInt)
	case ast.ValFloat:
		uo.DoubleValue = proto.Float64(v.Float)
	case ast.ValString:
		uo.StringValue = v.Str
	case ast.ValAggregate:
		uo.AggregateValue = proto.String(renderAggregateText(v.Aggregate))
	case ast.ValArray:
		// Only meaningful nested inside an aggregate field; a bare
		// top-level option can't be an array in the grammar, but render
		// defensively rather than panic if one slips through.
		uo.AggregateValue = proto.String(renderArrayText(v.Array))
	}
}

// renderScalarText renders a non-aggregate option value the way it would
// appear in text format, used for default_value strings.
func renderScalarText(v *ast.OptionValue) string {
	switch v.Kind {
	case ast.ValIdentifier:
		return v.Identifier
	case ast.ValPositiveInt:
		return fmt.Sprintf("%d", v.PosInt)
	case ast.ValNegativeInt:
		return fmt.Sprintf("%d", v.NegInt)
	case ast.ValFloat:
		return fmt.Sprintf("%g", v.Float)
	case ast.ValString:
		return string(v.Str)
	default:
		return ""
	}
}

// renderAggregateText reconstructs the text-format rendering of an
// aggregate option literal, which is how protoc itself stores
// UninterpretedOption.aggregate_value: as raw text to be parsed against the
// target message type once it is known, not as a structured value.
func renderAggregateText(fields []*ast.AggregateField) string {
	var b strings.Builder
	b.WriteString("{ ")
	for _, f := range fields {
		for i, part := range f.Name {
			if i > 0 {
				b.WriteByte('.')
			}
			if part.IsExtension {
				b.WriteByte('[')
				b.WriteString(part.Text)
				b.WriteByte(']')
			} else {
				b.WriteString(part.Text)
			}
		}
		b.WriteString(": ")
		b.WriteString(renderValueText(f.Val))
		b.WriteString(" ")
	}
	b.WriteString("}")
	return b.String()
}

func renderArrayText(vals []*ast.OptionValue) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(renderValueText(v))
	}
	b.WriteByte(']')
	return b.String()
}

func renderValueText(v *ast.OptionValue) string {
	switch v.Kind {
	case ast.ValString:
		return fmt.Sprintf("%q", string(v.Str))
	case ast.ValAggregate:
		return renderAggregateText(v.Aggregate)
	case ast.ValArray:
		return renderArrayText(v.Array)
	default:
		return renderScalarText(v)
	}
}
