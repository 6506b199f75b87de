package protocompile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
)

// Resolver supplies the contents of an imported or top-level .proto file by
// path, as it would be named in an `import` statement.
type Resolver interface {
	FindFileByPath(string) (SearchResult, error)
}

// SearchResult is what a Resolver found for a requested path. Exactly one
// field needs to be set, based on what the resolver is able to find or
// produce; if more than one is set, the driver uses Desc first, then
// Proto, then AST, and finally Source, which it must lex and parse itself.
type SearchResult struct {
	Source io.Reader
	AST    *ast.File
	Proto  *descriptorpb.FileDescriptorProto
	Desc   protoreflect.FileDescriptor
}

type ResolverFunc func(string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

func (f ResolverFunc) FindFileByPath(path string) (SearchResult, error) {
	return f(path)
}

type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

func (f CompositeResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(f) == 0 {
		return SearchResult{}, protoregistry.NotFound
	}
	var firstErr error
	for _, res := range f {
		r, err := res.FindFileByPath(path)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver finds raw .proto source on top of an Accessor (typically
// backed by the filesystem), searching ImportPaths in order. If
// IncludePatterns is non-empty, a path is only served when it matches at
// least one of them (doublestar globs, e.g. "**/*.proto"); this lets a
// caller point ImportPaths at a directory tree while excluding files the
// tree happens to contain but that aren't meant to be compiled directly.
type SourceResolver struct {
	ImportPaths     []string
	IncludePatterns []string
	Accessor        func(string) (io.ReadCloser, error)
}

var _ Resolver = (*SourceResolver)(nil)

func (r *SourceResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(r.IncludePatterns) > 0 && !r.matchesIncludes(path) {
		return SearchResult{}, os.ErrNotExist
	}

	accessor := r.Accessor
	if accessor == nil {
		accessor = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}

	if len(r.ImportPaths) == 0 {
		reader, err := accessor(path)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}

	var e error
	for _, importPath := range r.ImportPaths {
		reader, err := accessor(filepath.Join(importPath, path))
		if err != nil {
			if os.IsNotExist(err) {
				e = err
				continue
			}
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}
	return SearchResult{}, e
}

func (r *SourceResolver) matchesIncludes(path string) bool {
	for _, pattern := range r.IncludePatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}