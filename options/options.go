// Package options interprets the UninterpretedOption entries a parsed file
// is left with after linking: it resolves each option name (including
// custom extensions declared anywhere in the file's transitive imports)
// and rewrites the typed option fields those names refer to, clearing
// uninterpreted_option once every entry on a given options message has
// been consumed.
//
// protoc itself already stores UninterpretedOption's aggregate (message
// literal) values as reconstructed text-format source rather than as a
// structured value; this package leans on that and treats every option
// assignment — scalar or aggregate — as a fragment of text-format source
// for the enclosing options message, merged in with
// [google.golang.org/protobuf/encoding/prototext]. Custom extensions are
// resolved against a [Registry] built incrementally as files are linked,
// using [google.golang.org/protobuf/types/dynamicpb] extension types,
// since this package doesn't require (and can't assume) that extensions
// declared by another file in the same compilation are registered with
// the global protobuf registry. A parenthesized extension name is looked
// up as a fully-qualified name exactly as written (a leading dot is
// dropped); it is not resolved relative to the file's package or the
// enclosing scopes.
package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/protoglot/protoglot/linker"
	"github.com/protoglot/protoglot/reporter"
)

// Registry accumulates the protoreflect view of every file linked so far
// (needed to resolve message/enum type names that custom options
// reference) and the extension types those files declare (needed to
// resolve the [custom.option] names that appear in option syntax).
//
// A single Registry is shared across every file in a compilation and
// grows as each file finishes linking, in dependency order, so that a
// file's own options can reference extensions declared by its imports —
// and, since Interpret registers a file's own extensions before
// interpreting that same file's options, extensions a file declares for
// its own use as well.
type Registry struct {
	Files *protoregistry.Files
	Types *protoregistry.Types
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{Files: &protoregistry.Files{}, Types: &protoregistry.Types{}}
}

// Add registers file's messages, enums, and extensions for use by
// subsequent calls to Interpret. The caller is responsible for calling
// this only after file's options have already been interpreted and it
// has passed validation, since protodesc.NewFile (used to build file in
// the first place) and everything downstream assume a well-formed,
// fully-resolved descriptor.
func (r *Registry) Add(file protoreflect.FileDescriptor) error {
	if err := r.Files.RegisterFile(file); err != nil {
		return err
	}
	r.registerExtensions(file)
	return nil
}

// Build constructs the protoreflect view of fd, resolving its
// dependencies against whatever has already been added to r. fd must
// already be fully name-resolved (see linker.Resolve) but need not have
// its options interpreted yet.
func (r *Registry) Build(fd *descriptorpb.FileDescriptorProto) (protoreflect.FileDescriptor, error) {
	return protodesc.NewFile(fd, r.Files)
}

func (r *Registry) registerExtensions(file protoreflect.FileDescriptor) {
	var walkMessage func(protoreflect.MessageDescriptor)
	register := func(ext protoreflect.ExtensionDescriptor) {
		// Ignore "already registered": the same extension can be visible
		// (and re-registered) through more than one import path.
		_ = r.Types.RegisterExtension(dynamicpb.NewExtensionType(ext))
	}
	walkMessage = func(md protoreflect.MessageDescriptor) {
		exts := md.Extensions()
		for i, n := 0, exts.Len(); i < n; i++ {
			register(exts.Get(i))
		}
		nested := md.Messages()
		for i, n := 0, nested.Len(); i < n; i++ {
			walkMessage(nested.Get(i))
		}
	}
	exts := file.Extensions()
	for i, n := 0, exts.Len(); i < n; i++ {
		register(exts.Get(i))
	}
	msgs := file.Messages()
	for i, n := 0, msgs.Len(); i < n; i++ {
		walkMessage(msgs.Get(i))
	}
}

// Interpret rewrites every UninterpretedOption in fd into its typed
// field or extension, reporting errors for names that don't resolve or
// values of the wrong type. It registers fd's own extension declarations
// with reg before interpreting, so a file may use its own custom
// options.
func Interpret(fd *descriptorpb.FileDescriptorProto, pos linker.Positions, reg *Registry, h *reporter.Handler) error {
	file, err := reg.Build(fd)
	if err != nil {
		return h.HandleErrorf(pos[fd], "file %s: building descriptor for option interpretation: %v", fd.GetName(), err)
	}
	reg.registerExtensions(file)

	if err := interpretOpts(fd.GetOptions(), pos, reg, h); err != nil {
		return err
	}
	for _, m := range fd.GetMessageType() {
		if err := interpretMessage(m, pos, reg, h); err != nil {
			return err
		}
	}
	for _, e := range fd.GetEnumType() {
		if err := interpretEnum(e, pos, reg, h); err != nil {
			return err
		}
	}
	for _, ext := range fd.GetExtension() {
		if err := interpretOpts(ext.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	for _, s := range fd.GetService() {
		if err := interpretOpts(s.GetOptions(), pos, reg, h); err != nil {
			return err
		}
		for _, mtd := range s.GetMethod() {
			if err := interpretOpts(mtd.GetOptions(), pos, reg, h); err != nil {
				return err
			}
		}
	}

	if fd.GetSyntax() == "editions" {
		applyEditionFeatures(fd)
	}
	return nil
}

func interpretMessage(m *descriptorpb.DescriptorProto, pos linker.Positions, reg *Registry, h *reporter.Handler) error {
	if err := interpretOpts(m.GetOptions(), pos, reg, h); err != nil {
		return err
	}
	for _, f := range m.GetField() {
		if err := interpretOpts(f.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	for _, oo := range m.GetOneofDecl() {
		if err := interpretOpts(oo.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	for _, er := range m.GetExtensionRange() {
		if err := interpretOpts(er.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	for _, ext := range m.GetExtension() {
		if err := interpretOpts(ext.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	for _, nested := range m.GetNestedType() {
		if err := interpretMessage(nested, pos, reg, h); err != nil {
			return err
		}
	}
	for _, e := range m.GetEnumType() {
		if err := interpretEnum(e, pos, reg, h); err != nil {
			return err
		}
	}
	return nil
}

func interpretEnum(e *descriptorpb.EnumDescriptorProto, pos linker.Positions, reg *Registry, h *reporter.Handler) error {
	if err := interpretOpts(e.GetOptions(), pos, reg, h); err != nil {
		return err
	}
	for _, v := range e.GetValue() {
		if err := interpretOpts(v.GetOptions(), pos, reg, h); err != nil {
			return err
		}
	}
	return nil
}

// interpretOpts applies and clears every UninterpretedOption on opts (a
// *descriptorpb.FooOptions, or nil if the element had no option block at
// all).
func interpretOpts(opts proto.Message, pos linker.Positions, reg *Registry, h *reporter.Handler) error {
	m := opts.ProtoReflect()
	fld := m.Descriptor().Fields().ByName("uninterpreted_option")
	if fld == nil || !m.Has(fld) {
		return nil
	}
	list := m.Get(fld).List()
	uos := make([]*descriptorpb.UninterpretedOption, list.Len())
	for i := range uos {
		uos[i] = list.Get(i).Message().Interface().(*descriptorpb.UninterpretedOption)
	}
	for _, uo := range uos {
		if err := applyOption(opts, uo, pos, reg, h); err != nil {
			return err
		}
	}
	m.Clear(fld)
	return nil
}

func applyOption(opts proto.Message, uo *descriptorpb.UninterpretedOption, pos linker.Positions, reg *Registry, h *reporter.Handler) error {
	value, err := optionValueText(uo)
	if err != nil {
		return h.HandleErrorf(pos[uo], "option %s: %v", optionNameText(uo.GetName()), err)
	}
	snippet := nestOptionName(uo.GetName(), value)

	// prototext.Unmarshal resets its target, so each option is decoded into
	// a fresh message and then merged into opts.
	unmarshal := prototext.UnmarshalOptions{Resolver: reg.Types, AllowPartial: true}
	tmp := opts.ProtoReflect().New().Interface()
	if err := unmarshal.Unmarshal([]byte(snippet), tmp); err != nil {
		return h.HandleErrorf(pos[uo], "option %s: %v", optionNameText(uo.GetName()), err)
	}
	proto.Merge(opts, tmp)
	return nil
}

// nestOptionName turns a (possibly dotted, possibly extension-qualified)
// option name plus its already-rendered value into a single text-format
// field assignment, e.g. name parts [a, (ext.b), c] and value "1" become
// "a { [ext.b] { c: 1 } }".
func nestOptionName(parts []*descriptorpb.UninterpretedOption_NamePart, value string) string {
	cur := fmt.Sprintf("%s: %s", namePartText(parts[len(parts)-1]), value)
	for i := len(parts) - 2; i >= 0; i-- {
		cur = fmt.Sprintf("%s { %s }", namePartText(parts[i]), cur)
	}
	return cur
}

func namePartText(p *descriptorpb.UninterpretedOption_NamePart) string {
	if p.GetIsExtension() {
		return "[" + strings.TrimPrefix(p.GetNamePart(), ".") + "]"
	}
	return p.GetNamePart()
}

func optionNameText(parts []*descriptorpb.UninterpretedOption_NamePart) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(namePartText(p))
	}
	return b.String()
}

// optionValueText renders the scalar or aggregate value already stored
// on uo as text-format source. Aggregate values are already stored this
// way (see linker.ToProto); everything else is a single literal.
func optionValueText(uo *descriptorpb.UninterpretedOption) (string, error) {
	switch {
	case uo.IdentifierValue != nil:
		return uo.GetIdentifierValue(), nil
	case uo.PositiveIntValue != nil:
		return strconv.FormatUint(uo.GetPositiveIntValue(), 10), nil
	case uo.NegativeIntValue != nil:
		return strconv.FormatInt(uo.GetNegativeIntValue(), 10), nil
	case uo.DoubleValue != nil:
		return floatText(uo.GetDoubleValue()), nil
	case uo.StringValue != nil:
		return quoteBytes(uo.GetStringValue()), nil
	case uo.AggregateValue != nil:
		return uo.GetAggregateValue(), nil
	default:
		return "", fmt.Errorf("has no value")
	}
}

func floatText(d float64) string {
	switch {
	case d != d: // NaN
		return "nan"
	case math.IsInf(d, 1):
		return "inf"
	case math.IsInf(d, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(d, 'g', -1, 64)
	}
}

// quoteBytes renders b as a text-format byte string literal: printable
// ASCII passes through, everything else becomes an octal escape, which
// text format always accepts regardless of whether the bytes are valid
// UTF-8.
func quoteBytes(b []byte) string {
	var out strings.Builder
	out.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if c >= 0x20 && c < 0x7f {
				out.WriteByte(c)
			} else {
				fmt.Fprintf(&out, `\%03o`, c)
			}
		}
	}
	out.WriteByte('"')
	return out.String()
}
