package linker

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/reporter"
	"github.com/protoglot/protoglot/walk"
)

// Kind classifies a defined symbol, used to give collision errors and
// kind-mismatch errors (e.g. referencing a service where a message is
// expected) a useful description.
type Kind int

const (
	KindMessage Kind = iota
	KindEnum
	KindEnumValue
	KindExtension
	KindService
	KindMethod
	KindOneof
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEnum:
		return "enum"
	case KindEnumValue:
		return "enum value"
	case KindExtension:
		return "extension"
	case KindService:
		return "service"
	case KindMethod:
		return "method"
	case KindOneof:
		return "oneof"
	default:
		return "symbol"
	}
}

// symbolEntry is what Symbols stores for every fully-qualified name it
// knows about: enough to report where a symbol came from and what kind of
// thing it is, without holding on to the descriptor proto itself.
type symbolEntry struct {
	kind Kind
	file string
	pos  ast.SourcePos
}

// fileImports is the import list recorded for a single file, in the shape
// Symbols needs to compute another file's public-transitive visibility into
// it: every path it depends on, and which of those are public.
type fileImports struct {
	deps   []string
	public map[string]bool
}

// Symbols is the name table a set of linked files resolves against: every
// message, field, oneof, enum, enum value, extension, service, and method defined by
// those files, keyed by fully-qualified name, plus the set of package
// namespaces those names live under. A single Symbols is built up file by
// file, in import order, so that a file's own symbols always include
// everything its (transitive, public) imports define. It also remembers
// every file's own import list, so that resolution can tell a name defined
// in a file the requester actually imports from one that merely landed in
// the shared table because some unrelated file happened to be compiled
// first.
type Symbols struct {
	byName   map[protoreflect.FullName]*symbolEntry
	packages map[protoreflect.FullName]struct{}
	imports  map[string]fileImports
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		byName:   map[protoreflect.FullName]*symbolEntry{},
		packages: map[protoreflect.FullName]struct{}{},
		imports:  map[string]fileImports{},
	}
}

// Lookup returns the kind of the symbol with the given fully-qualified
// name and whether one is defined. Package namespaces are not symbols;
// IsPackage reports those.
func (s *Symbols) Lookup(fqn protoreflect.FullName) (kind Kind, found bool) {
	e, ok := s.byName[fqn]
	if !ok {
		return 0, false
	}
	return e.kind, true
}

// LookupEntry is Lookup plus the path of the file that defined the symbol,
// used to check the defining file against a requester's import closure.
func (s *Symbols) LookupEntry(fqn protoreflect.FullName) (kind Kind, file string, found bool) {
	e, ok := s.byName[fqn]
	if !ok {
		return 0, "", false
	}
	return e.kind, e.file, true
}

// VisibleFiles returns the set of file paths whose top-level declarations
// file can reference by name: file itself, every file it directly imports,
// and every file reachable from those through a chain of public imports.
// A plain (non-public) import's own imports are not included, matching
// protoc's own scoping: importing B doesn't re-export whatever B imports
// unless B marked that import public.
func (s *Symbols) VisibleFiles(file string) map[string]bool {
	visible := map[string]bool{file: true}
	queue := append([]string(nil), s.imports[file].deps...)
	for _, d := range queue {
		visible[d] = true
	}
	for i := 0; i < len(queue); i++ {
		f := queue[i]
		imp := s.imports[f]
		for _, d := range imp.deps {
			if imp.public[d] && !visible[d] {
				visible[d] = true
				queue = append(queue, d)
			}
		}
	}
	return visible
}

// IsPackage reports whether fqn is a package, or a dotted prefix of one,
// whether or not a symbol is also defined at that name. Name resolution uses this
// to decide whether a partial match through a qualified name should keep
// descending rather than being treated as a dead end.
func (s *Symbols) IsPackage(fqn protoreflect.FullName) bool {
	_, ok := s.packages[fqn]
	return ok
}

// Index adds every message, field, oneof, enum, enum value (under the
// enum's enclosing scope), extension, service, and method defined by fd to
// the table, reporting an error through h for any
// name that's already taken by something else already indexed (including
// something from an earlier file in the same table). It also registers
// fd's package, and every dotted prefix of it, as a namespace.
func (s *Symbols) Index(fd *descriptorpb.FileDescriptorProto, pos Positions, h *reporter.Handler) error {
	if pkg := fd.GetPackage(); pkg != "" {
		s.registerPackageNamespace(protoreflect.FullName(pkg))
	}
	s.recordImports(fd)

	return walk.DescriptorProtos(fd, func(fqn protoreflect.FullName, m proto.Message) error {
		if _, ok := m.(*descriptorpb.EnumValueDescriptorProto); ok {
			// Enum values live in the enum's enclosing scope, not the enum's own.
			fqn = fqn.Parent().Parent().Append(fqn.Name())
		}
		entry := &symbolEntry{kind: kindOf(m), file: fd.GetName(), pos: pos[m]}
		return s.add(fqn, entry, h)
	})
}

func (s *Symbols) recordImports(fd *descriptorpb.FileDescriptorProto) {
	deps := fd.GetDependency()
	public := make(map[string]bool, len(fd.GetPublicDependency()))
	for _, idx := range fd.GetPublicDependency() {
		if idx >= 0 && int(idx) < len(deps) {
			public[deps[idx]] = true
		}
	}
	s.imports[fd.GetName()] = fileImports{deps: deps, public: public}
}

func (s *Symbols) registerPackageNamespace(pkg protoreflect.FullName) {
	parts := strings.Split(string(pkg), ".")
	prefix := parts[0]
	s.packages[protoreflect.FullName(prefix)] = struct{}{}
	for _, p := range parts[1:] {
		prefix = prefix + "." + p
		s.packages[protoreflect.FullName(prefix)] = struct{}{}
	}
}

func (s *Symbols) add(fqn protoreflect.FullName, entry *symbolEntry, h *reporter.Handler) error {
	if existing, ok := s.byName[fqn]; ok {
		return s.reportCollision(fqn, entry, existing, h)
	}
	s.byName[fqn] = entry
	return nil
}

func (s *Symbols) reportCollision(fqn protoreflect.FullName, entry, existing *symbolEntry, h *reporter.Handler) error {
	kind := entry.kind.String()
	if existing.kind == KindEnumValue || entry.kind == KindEnumValue {
		// Enum values share their enclosing scope rather than the enum's
		// own, so the collision is worth calling out by name even when the
		// two values belong to sibling enums.
		kind = "enum value"
	}
	var where string
	switch {
	case existing.file == entry.file:
		where = "previously defined at " + existing.pos.String()
	case existing.file != "":
		where = fmt.Sprintf("previously defined in %q", existing.file)
	default:
		where = "previously defined"
	}
	return h.HandleErrorf(entry.pos, "%s %s already defined, %s", kind, fqn, where)
}

func kindOf(m proto.Message) Kind {
	switch m.(type) {
	case *descriptorpb.DescriptorProto:
		return KindMessage
	case *descriptorpb.EnumDescriptorProto:
		return KindEnum
	case *descriptorpb.EnumValueDescriptorProto:
		return KindEnumValue
	case *descriptorpb.FieldDescriptorProto:
		return KindExtension
	case *descriptorpb.ServiceDescriptorProto:
		return KindService
	case *descriptorpb.MethodDescriptorProto:
		return KindMethod
	case *descriptorpb.OneofDescriptorProto:
		return KindOneof
	default:
		return KindMessage
	}
}
