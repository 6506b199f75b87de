package linker

import (
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/internal/interval"
	"github.com/protoglot/protoglot/reporter"
)

// Validate runs the semantic checks that don't depend on interpreting
// options (field/enum-value number conflicts, reserved-name and
// reserved/extension-range overlap, and proto2-vs-proto3 field rules) and
// the checks that do (enum alias handling), so it must run after the
// options package has interpreted fd's UninterpretedOption entries into
// their typed fields.
func Validate(fd *descriptorpb.FileDescriptorProto, pos Positions, h *reporter.Handler) error {
	syntax := fd.GetSyntax()
	if syntax == "" {
		syntax = "proto2"
	}

	for _, m := range fd.GetMessageType() {
		if err := validateMessage(syntax, m, pos, h); err != nil {
			return err
		}
	}
	for _, e := range fd.GetEnumType() {
		if err := validateEnum(syntax, e, pos, h); err != nil {
			return err
		}
	}
	for _, ext := range fd.GetExtension() {
		if err := validateFieldSyntax(syntax, ext, pos, h); err != nil {
			return err
		}
	}
	return nil
}

func validateMessage(syntax string, m *descriptorpb.DescriptorProto, pos Positions, h *reporter.Handler) error {
	var occupied interval.Occupancy[int32]

	for _, rr := range m.GetReservedRange() {
		if !occupied.Insert(rr.GetStart(), rr.GetEnd()-1) {
			return h.HandleErrorf(pos[rr], "message %s: reserved range %d to %d overlaps another range",
				m.GetName(), rr.GetStart(), rr.GetEnd()-1)
		}
	}
	for _, er := range m.GetExtensionRange() {
		if !occupied.Insert(er.GetStart(), er.GetEnd()-1) {
			return h.HandleErrorf(pos[er], "message %s: extension range %d to %d overlaps another range",
				m.GetName(), er.GetStart(), er.GetEnd()-1)
		}
	}

	reservedNames := make(map[string]bool, len(m.GetReservedName()))
	for _, n := range m.GetReservedName() {
		reservedNames[n] = true
	}

	mapEntries := make(map[string]bool, len(m.GetNestedType()))
	for _, nested := range m.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			mapEntries[nested.GetName()] = true
		}
	}
	isMapField := func(f *descriptorpb.FieldDescriptorProto) bool {
		if f.GetType() != descriptorpb.FieldDescriptorProto_TYPE_MESSAGE {
			return false
		}
		name := f.GetTypeName()
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		return mapEntries[name]
	}

	for _, f := range m.GetField() {
		if reservedNames[f.GetName()] {
			return h.HandleErrorf(pos[f], "message %s: field %s uses a reserved name", m.GetName(), f.GetName())
		}
		if !occupied.Insert(f.GetNumber(), f.GetNumber()) {
			return h.HandleErrorf(pos[f], "message %s: field %s has number %d, which is reserved or already used",
				m.GetName(), f.GetName(), f.GetNumber())
		}
		if err := validateFieldSyntax(syntax, f, pos, h); err != nil {
			return err
		}
		if f.OneofIndex != nil {
			if err := validateOneofMember(m, f, isMapField(f), pos, h); err != nil {
				return err
			}
		}
	}

	for _, nested := range m.GetNestedType() {
		if err := validateMessage(syntax, nested, pos, h); err != nil {
			return err
		}
	}
	for _, en := range m.GetEnumType() {
		if err := validateEnum(syntax, en, pos, h); err != nil {
			return err
		}
	}
	for _, ext := range m.GetExtension() {
		if err := validateFieldSyntax(syntax, ext, pos, h); err != nil {
			return err
		}
	}
	return nil
}

// validateOneofMember enforces the rule that a oneof's members are plain
// singular fields: none of them may be repeated, required, or a map (which
// desugars to a repeated message field), since only one can be set at a time.
func validateOneofMember(m *descriptorpb.DescriptorProto, f *descriptorpb.FieldDescriptorProto, isMap bool, pos Positions, h *reporter.Handler) error {
	switch {
	case isMap:
		return h.HandleErrorf(pos[f], "message %s: oneof field %s may not be a map", m.GetName(), f.GetName())
	case f.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		return h.HandleErrorf(pos[f], "message %s: oneof field %s may not be repeated", m.GetName(), f.GetName())
	case f.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		return h.HandleErrorf(pos[f], "message %s: oneof field %s may not be required", m.GetName(), f.GetName())
	default:
		return nil
	}
}

// validateFieldSyntax enforces the proto3 rules that don't exist in
// proto2: no required fields, no explicit default values. Only proto3
// files are checked; proto2 and editions files pass through unchanged.
func validateFieldSyntax(syntax string, f *descriptorpb.FieldDescriptorProto, pos Positions, h *reporter.Handler) error {
	if syntax != "proto3" {
		return nil
	}
	if f.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED {
		return h.HandleErrorf(pos[f], "field %s: required fields are not allowed in proto3", f.GetName())
	}
	if f.DefaultValue != nil {
		return h.HandleErrorf(pos[f], "field %s: default values are not allowed in proto3", f.GetName())
	}
	return nil
}

func validateEnum(syntax string, e *descriptorpb.EnumDescriptorProto, pos Positions, h *reporter.Handler) error {
	values := e.GetValue()
	if syntax == "proto3" && len(values) > 0 && values[0].GetNumber() != 0 {
		return h.HandleErrorf(pos[values[0]], "enum %s: first value must be zero in proto3", e.GetName())
	}

	var occupied interval.Occupancy[int32]
	for _, rr := range e.GetReservedRange() {
		if !occupied.Insert(rr.GetStart(), rr.GetEnd()) {
			return h.HandleErrorf(pos[rr], "enum %s: reserved range %d to %d overlaps another range",
				e.GetName(), rr.GetStart(), rr.GetEnd())
		}
	}

	reservedNames := make(map[string]bool, len(e.GetReservedName()))
	for _, n := range e.GetReservedName() {
		reservedNames[n] = true
	}

	allowAlias := e.GetOptions().GetAllowAlias()
	seen := make(map[int32]string, len(values))
	for _, v := range values {
		if reservedNames[v.GetName()] {
			return h.HandleErrorf(pos[v], "enum %s: value %s uses a reserved name", e.GetName(), v.GetName())
		}
		if occupied.Contains(v.GetNumber()) {
			return h.HandleErrorf(pos[v], "enum %s: value %s has number %d, which is reserved",
				e.GetName(), v.GetName(), v.GetNumber())
		}
		if prev, ok := seen[v.GetNumber()]; ok && !allowAlias {
			return h.HandleErrorf(pos[v], "enum %s: value %s reuses number %d already used by %s; set allow_alias if intentional",
				e.GetName(), v.GetName(), v.GetNumber(), prev)
		}
		seen[v.GetNumber()] = v.GetName()
	}
	return nil
}
