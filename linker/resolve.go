package linker

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/reporter"
	"github.com/protoglot/protoglot/walk"
)

// Resolve rewrites every type reference in fd — field types, extension
// extendees, method input/output types — from the raw source text the
// parser saw into a fully-qualified, leading-dot name, using sym as the
// set of symbols visible to fd (its own plus its imports'). It also fixes
// up FieldDescriptorProto.Type, which ToProto leaves as a TYPE_MESSAGE
// guess for any field whose type isn't a recognized scalar, to TYPE_ENUM
// where the resolved name turns out to be an enum.
//
// Resolution follows protoc's own scoping rule for relative (no leading
// dot) names: starting from the scope the reference appears in and
// climbing outward through each enclosing message, then the package, then
// the file root, the first scope whose concatenation with the reference's
// first path component names anything at all is used — even if the full
// dotted name doesn't resolve to a member of it. That scope is never
// reconsidered; a mistyped trailing component inside a leading package
// that does exist is reported as a definite error, not a reason to keep
// climbing.
//
// A name that does resolve to something in sym must also be visible to fd:
// defined in fd itself, in one of fd's direct imports, or in a file reached
// from those through a chain of public imports. sym accumulates the
// symbols of every file compiled so far regardless of who imports whom, so
// without this check a file could reference a symbol from a file it never
// imported, merely because some unrelated file happened to pull it into
// the shared table first.
func Resolve(fd *descriptorpb.FileDescriptorProto, pos Positions, sym *Symbols, h *reporter.Handler) error {
	visible := sym.VisibleFiles(fd.GetName())
	return walk.DescriptorProtos(fd, func(fqn protoreflect.FullName, m proto.Message) error {
		switch d := m.(type) {
		case *descriptorpb.FieldDescriptorProto:
			return resolveField(fqn, d, pos, sym, visible, h)
		case *descriptorpb.MethodDescriptorProto:
			return resolveMethod(fqn, d, pos, sym, visible, h)
		}
		return nil
	})
}

func resolveField(fqn protoreflect.FullName, d *descriptorpb.FieldDescriptorProto, pos Positions, sym *Symbols, visible map[string]bool, h *reporter.Handler) error {
	scope := fqn.Parent()

	if d.GetExtendee() != "" {
		full, kind, err := resolveName(sym, visible, scope, d.GetExtendee())
		if err != nil {
			return h.HandleErrorf(pos[d], "field %s extends unknown type %s: %w", fqn, d.GetExtendee(), err)
		}
		if kind != KindMessage {
			return h.HandleErrorf(pos[d], "field %s extends %s, which is not a message", fqn, full)
		}
		d.Extendee = proto.String("." + string(full))
	}

	if d.TypeName == nil {
		return nil
	}

	full, kind, err := resolveName(sym, visible, scope, d.GetTypeName())
	if err != nil {
		return h.HandleErrorf(pos[d], "field %s references unknown type %s: %w", fqn, d.GetTypeName(), err)
	}
	switch kind {
	case KindEnum:
		d.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
	case KindMessage:
		d.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
	default:
		return h.HandleErrorf(pos[d], "field %s references %s, which is not a message or enum", fqn, full)
	}
	d.TypeName = proto.String("." + string(full))
	return nil
}

func resolveMethod(fqn protoreflect.FullName, d *descriptorpb.MethodDescriptorProto, pos Positions, sym *Symbols, visible map[string]bool, h *reporter.Handler) error {
	scope := fqn.Parent()

	in, kind, err := resolveName(sym, visible, scope, d.GetInputType())
	if err != nil {
		return h.HandleErrorf(pos[d], "method %s has unknown input type %s: %w", fqn, d.GetInputType(), err)
	}
	if kind != KindMessage {
		return h.HandleErrorf(pos[d], "method %s input type %s is not a message", fqn, in)
	}
	d.InputType = proto.String("." + string(in))

	out, kind, err := resolveName(sym, visible, scope, d.GetOutputType())
	if err != nil {
		return h.HandleErrorf(pos[d], "method %s has unknown output type %s: %w", fqn, d.GetOutputType(), err)
	}
	if kind != KindMessage {
		return h.HandleErrorf(pos[d], "method %s output type %s is not a message", fqn, out)
	}
	d.OutputType = proto.String("." + string(out))
	return nil
}

// NotDefinedInImportsError reports that a name resolved to a real symbol,
// but one defined in a file the referencing file cannot see: not itself,
// not a direct import, and not reachable through a chain of public
// imports from one.
type NotDefinedInImportsError struct {
	Name string
	File string
}

func (e *NotDefinedInImportsError) Error() string {
	return fmt.Sprintf("%s is defined in %q, which is not imported (add a direct import, or have an intermediate import re-export it with \"import public\")", e.Name, e.File)
}

// resolveName implements the relative- and absolute-name lookup rule
// described on Resolve, then checks the result against visible.
func resolveName(sym *Symbols, visible map[string]bool, scope protoreflect.FullName, name string) (protoreflect.FullName, Kind, error) {
	if strings.HasPrefix(name, ".") {
		fqn := protoreflect.FullName(name[1:])
		kind, file, ok := sym.LookupEntry(fqn)
		if !ok {
			return "", 0, fmt.Errorf("%s is not defined", name)
		}
		if !visible[file] {
			return "", 0, &NotDefinedInImportsError{Name: string(fqn), File: file}
		}
		return fqn, kind, nil
	}

	first := name
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		first = name[:idx]
	}

	for _, s := range scopeChain(scope) {
		var firstInScope protoreflect.FullName
		if s == "" {
			firstInScope = protoreflect.FullName(first)
		} else {
			firstInScope = protoreflect.FullName(s + "." + first)
		}
		_, isSymbol := sym.Lookup(firstInScope)
		if !isSymbol && !sym.IsPackage(firstInScope) {
			continue
		}

		var full protoreflect.FullName
		if s == "" {
			full = protoreflect.FullName(name)
		} else {
			full = protoreflect.FullName(s + "." + name)
		}
		kind, file, ok := sym.LookupEntry(full)
		if !ok {
			return "", 0, fmt.Errorf("%s is not defined", name)
		}
		if !visible[file] {
			return "", 0, &NotDefinedInImportsError{Name: string(full), File: file}
		}
		return full, kind, nil
	}

	return "", 0, fmt.Errorf("%s is not defined", name)
}

// scopeChain returns scope and each of its ancestors, innermost first,
// ending with the file root ("").
func scopeChain(scope protoreflect.FullName) []string {
	s := string(scope)
	if s == "" {
		return []string{""}
	}
	chain := make([]string, 0, strings.Count(s, ".")+2)
	for {
		chain = append(chain, s)
		idx := strings.LastIndex(s, ".")
		if idx < 0 {
			break
		}
		s = s[:idx]
	}
	return append(chain, "")
}
