package linker

import (
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/reporter"
)

// LinkFile converts f into its unlinked descriptor form, adds its symbols
// to sym, and resolves its type references against everything sym already
// knows (f's own symbols plus whatever was indexed into sym before this
// call, which the caller is responsible for making f's transitive,
// public imports). The returned descriptor still holds only
// UninterpretedOption entries; interpreting those and running Validate
// are later, separate stages so that extension declarations in a file's
// own imports are resolvable by the time options are interpreted.
func LinkFile(f *ast.File, fi *ast.FileInfo, sym *Symbols, h *reporter.Handler) (*descriptorpb.FileDescriptorProto, Positions, error) {
	fd, pos, err := ToProto(f, fi, h)
	if err != nil {
		return nil, nil, err
	}

	if err := sym.Index(fd, pos, h); err != nil {
		return nil, nil, err
	}
	if err := Resolve(fd, pos, sym, h); err != nil {
		return nil, nil, err
	}
	return fd, pos, nil
}

// LinkProto indexes and resolves an already-built descriptor proto, for a
// file whose source a Resolver skipped straight past by supplying the
// unlinked descriptor directly. There is no source to attribute errors to,
// so every diagnostic reported against fd carries a blank position.
func LinkProto(fd *descriptorpb.FileDescriptorProto, sym *Symbols, h *reporter.Handler) (Positions, error) {
	pos := Positions{}
	if err := sym.Index(fd, pos, h); err != nil {
		return nil, err
	}
	if err := Resolve(fd, pos, sym, h); err != nil {
		return nil, err
	}
	return pos, nil
}
