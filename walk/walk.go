// Package walk visits every named element of an unlinked descriptor proto
// in declaration order, pairing each with its fully-qualified name. The
// linker uses this both to index a file's own declarations into the symbol
// table (symbols.go) and to walk a newly-linked file's field/extend/method
// types while rewriting them from source-text names to fully-qualified ones
// (resolve.go).
package walk

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// DescriptorProtos walks every message, field, oneof, enum, enum value,
// extension, service, and method declared in file, calling fn with each
// one's fully-qualified name. fn's proto.Message argument is always one of
// the concrete descriptorpb types (*DescriptorProto, *FieldDescriptorProto,
// and so on); callers type-switch on it to act only on the kinds they care
// about.
func DescriptorProtos(file *descriptorpb.FileDescriptorProto, fn func(protoreflect.FullName, proto.Message) error) error {
	return DescriptorProtosEnterAndExit(file, fn, nil)
}

// DescriptorProtosEnterAndExit is DescriptorProtos with a second callback
// invoked as each element is left: for a container (message, enum,
// service) after its children have all been visited, for a leaf right
// after enter. exit may be nil.
func DescriptorProtosEnterAndExit(file *descriptorpb.FileDescriptorProto, enter, exit func(protoreflect.FullName, proto.Message) error) error {
	w := &protoWalker{enter: enter, exit: exit}
	return w.walkFile(file)
}

type protoWalker struct {
	enter, exit func(protoreflect.FullName, proto.Message) error
}

func (w *protoWalker) walkFile(file *descriptorpb.FileDescriptorProto) error {
	prefix := file.GetPackage()
	if prefix != "" {
		prefix += "."
	}
	for _, msg := range file.GetMessageType() {
		if err := w.walkMessage(prefix, msg); err != nil {
			return err
		}
	}
	for _, en := range file.GetEnumType() {
		if err := w.walkEnum(prefix, en); err != nil {
			return err
		}
	}
	for _, ext := range file.GetExtension() {
		if err := w.leaf(prefix+ext.GetName(), ext); err != nil {
			return err
		}
	}
	for _, svc := range file.GetService() {
		fqn := protoreflect.FullName(prefix + svc.GetName())
		if err := w.enter(fqn, svc); err != nil {
			return err
		}
		for _, mtd := range svc.GetMethod() {
			if err := w.leaf(string(fqn)+"."+mtd.GetName(), mtd); err != nil {
				return err
			}
		}
		if err := w.exitContainer(fqn, svc); err != nil {
			return err
		}
	}
	return nil
}

func (w *protoWalker) walkMessage(prefix string, msg *descriptorpb.DescriptorProto) error {
	fqn := protoreflect.FullName(prefix + msg.GetName())
	if err := w.enter(fqn, msg); err != nil {
		return err
	}
	nestedPrefix := string(fqn) + "."
	for _, fld := range msg.GetField() {
		if err := w.leaf(nestedPrefix+fld.GetName(), fld); err != nil {
			return err
		}
	}
	for _, oo := range msg.GetOneofDecl() {
		if err := w.leaf(nestedPrefix+oo.GetName(), oo); err != nil {
			return err
		}
	}
	for _, nested := range msg.GetNestedType() {
		if err := w.walkMessage(nestedPrefix, nested); err != nil {
			return err
		}
	}
	for _, en := range msg.GetEnumType() {
		if err := w.walkEnum(nestedPrefix, en); err != nil {
			return err
		}
	}
	for _, ext := range msg.GetExtension() {
		if err := w.leaf(nestedPrefix+ext.GetName(), ext); err != nil {
			return err
		}
	}
	return w.exitContainer(fqn, msg)
}

func (w *protoWalker) walkEnum(prefix string, en *descriptorpb.EnumDescriptorProto) error {
	fqn := protoreflect.FullName(prefix + en.GetName())
	if err := w.enter(fqn, en); err != nil {
		return err
	}
	for _, val := range en.GetValue() {
		if err := w.leaf(string(fqn)+"."+val.GetName(), val); err != nil {
			return err
		}
	}
	return w.exitContainer(fqn, en)
}

// leaf visits a descriptor that has no children of its own (a field, oneof,
// extension, or method): enter and exit fire back-to-back.
func (w *protoWalker) leaf(fqn string, m proto.Message) error {
	n := protoreflect.FullName(fqn)
	if err := w.enter(n, m); err != nil {
		return err
	}
	return w.exitContainer(n, m)
}

func (w *protoWalker) exitContainer(fqn protoreflect.FullName, m proto.Message) error {
	if w.exit == nil {
		return nil
	}
	return w.exit(fqn, m)
}
