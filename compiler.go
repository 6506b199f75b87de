// Package protocompile provides the entry point for a native Go protobuf
// compiler front end. "Compile" here means parsing, linking, and
// validating source and producing fully linked descriptors — this
// package does not itself drive code generation.
package protocompile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/internal/editions"
	"github.com/protoglot/protoglot/linker"
	"github.com/protoglot/protoglot/options"
	"github.com/protoglot/protoglot/parser"
	"github.com/protoglot/protoglot/reporter"
	"github.com/protoglot/protoglot/sourceinfo"
)

// Result is a single file's output from a Compile call: its fully linked,
// fully interpreted descriptor proto, and a protoreflect view of the same
// descriptor for callers that want to walk it with the reflect API.
type Result struct {
	Proto      *descriptorpb.FileDescriptorProto
	Descriptor protoreflect.FileDescriptor
}

// Compiler turns protobuf source files, or intermediate representations a
// Resolver already has on hand, into fully linked descriptors.
//
// Each file passes through six stages: parsing source into an AST,
// converting the AST into an unlinked descriptor proto, linking (symbol
// indexing and name resolution), interpreting options, semantic
// validation, and finally, optionally, computing source code info.
type Compiler struct {
	// Resolver locates the source, AST, or descriptor for a file path (as
	// it would appear in an import statement). The only required field.
	Resolver Resolver

	// MaxParallelism caps how many files are parsed and loaded
	// concurrently. Unspecified or non-positive means
	// min(runtime.NumCPU(), runtime.GOMAXPROCS(-1)).
	MaxParallelism int

	// Reporter receives errors and warnings as they're found. A nil
	// Reporter fails the compilation on the first error and ignores
	// warnings.
	Reporter reporter.Reporter

	// IncludeSourceInfo, if true, populates SourceCodeInfo on every
	// descriptor produced from source (not from a Resolver-supplied
	// descriptor or descriptor proto, which are never modified).
	IncludeSourceInfo bool

	// AllowEditions permits `edition = "...";` files, which are otherwise
	// rejected as an incomplete surface.
	AllowEditions bool
}

// Compile compiles files and everything they transitively import, using
// c.Resolver to load each one.
func (c *Compiler) Compile(ctx context.Context, files ...string) ([]Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	par := c.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
		if cpus := runtime.NumCPU(); par > cpus {
			par = cpus
		}
	}

	h := reporter.NewHandler(c.Reporter)
	e := &executor{
		c:       c,
		h:       h,
		s:       semaphore.NewWeighted(int64(par)),
		sym:     linker.NewSymbols(),
		reg:     options.NewRegistry(),
		results: map[string]*result{},
	}

	results := make([]*result, len(files))
	for i, f := range files {
		results[i] = e.compile(ctx, f, nil)
	}

	out := make([]Result, len(files))
	for i, r := range results {
		select {
		case <-r.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if r.err != nil {
			return nil, r.err
		}
		out[i] = r.res
	}
	return out, nil
}

type result struct {
	ready chan struct{}
	res   Result
	err   error
}

func (r *result) fail(err error) {
	r.err = err
	close(r.ready)
}

func (r *result) complete(res Result) {
	r.res = res
	close(r.ready)
}

// executor coordinates every in-flight compile within a single Compile
// call: a shared symbol table and option registry (both built up in
// dependency order, since a file only finishes linking after everything
// it imports has), and a semaphore bounding how many files are parsed and
// loaded at once.
type executor struct {
	c   *Compiler
	h   *reporter.Handler
	s   *semaphore.Weighted
	sym *linker.Symbols
	reg *options.Registry

	// mu serializes access to sym and reg, and to results: linking one
	// file at a time keeps symbol indexing and extension registration
	// race-free even though parsing and loading run concurrently.
	mu      sync.Mutex
	results map[string]*result
}

// compile returns the in-flight or already-complete result for file,
// starting a new goroutine for it if this is the first request. path is
// the chain of files currently being loaded to reach file, innermost
// last, used to detect import cycles.
func (e *executor) compile(ctx context.Context, file string, path []string) *result {
	for _, p := range path {
		if p == file {
			r := &result{ready: make(chan struct{})}
			r.fail(fmt.Errorf("import cycle detected: %s imports %s", path[len(path)-1], file))
			return r
		}
	}
	e.mu.Lock()
	r := e.results[file]
	if r != nil {
		e.mu.Unlock()
		return r
	}
	r = &result{ready: make(chan struct{})}
	e.results[file] = r
	e.mu.Unlock()

	go e.doCompile(ctx, file, path, r)
	return r
}

func (e *executor) doCompile(ctx context.Context, file string, path []string, r *result) {
	path = append(append([]string(nil), path...), file)

	if err := e.s.Acquire(ctx, 1); err != nil {
		r.fail(err)
		return
	}
	released := false
	release := func() {
		if !released {
			e.s.Release(1)
			released = true
		}
	}
	defer release()

	sr, err := e.c.Resolver.FindFileByPath(file)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", file, err))
		return
	}
	if closer, ok := sr.Source.(io.Closer); ok {
		defer closer.Close()
	}

	if sr.Desc != nil {
		if sr.Desc.Path() != file {
			r.fail(fmt.Errorf("resolver returned descriptor for %q when asked for %q", sr.Desc.Path(), file))
			return
		}
		fd := protodesc.ToFileDescriptorProto(sr.Desc)
		e.mu.Lock()
		// A pre-linked descriptor's type names are already fully qualified,
		// so indexing and resolving it is a formality, but its symbols
		// still have to land in sym for dependent files to resolve against.
		_, err := linker.LinkProto(fd, e.sym, e.h)
		if err == nil {
			err = e.reg.Add(sr.Desc)
		}
		e.mu.Unlock()
		if err != nil {
			r.fail(err)
			return
		}
		r.complete(Result{Proto: fd, Descriptor: sr.Desc})
		return
	}

	loaded, err := e.load(file, sr)
	if err != nil {
		r.fail(err)
		return
	}

	type pendingDep struct {
		path string
		weak bool
		res  *result
	}
	deps := loaded.dependencies()
	pending := make([]pendingDep, len(deps))
	for i, dep := range deps {
		pending[i] = pendingDep{path: dep.path, weak: dep.weak, res: e.compile(ctx, dep.path, path)}
	}
	depPos := func(path string) ast.SourcePos {
		if loaded.ast != nil && loaded.fi != nil {
			for _, imp := range loaded.ast.Imports {
				if imp.Path == path {
					return loaded.fi.StartPos(imp.PathSpan)
				}
			}
		}
		return ast.SourcePos{Filename: file}
	}

	// Release the permit while waiting on dependencies so a deep import
	// graph can't deadlock the semaphore against itself.
	release()

	for _, p := range pending {
		select {
		case <-p.res.ready:
			if p.res.err != nil {
				if p.weak {
					e.h.HandleWarning(depPos(p.path), fmt.Errorf("weak import %q could not be resolved: %w", p.path, p.res.err))
					continue
				}
				r.fail(p.res.err)
				return
			}
		case <-ctx.Done():
			r.fail(ctx.Err())
			return
		}
	}

	if err := e.s.Acquire(ctx, 1); err != nil {
		r.fail(err)
		return
	}
	released = false

	desc, err := e.link(loaded)
	if err != nil {
		r.fail(err)
		return
	}
	r.complete(desc)
}

// loadedFile is whichever form of a file the resolver (or the parser, for
// raw source) produced, before linking.
type loadedFile struct {
	fi   *ast.FileInfo
	ast  *ast.File
	proto *descriptorpb.FileDescriptorProto
}

type dependency struct {
	path string
	weak bool
}

func (l loadedFile) dependencies() []dependency {
	if l.ast != nil {
		deps := make([]dependency, len(l.ast.Imports))
		for i, imp := range l.ast.Imports {
			deps[i] = dependency{path: imp.Path, weak: imp.Weak}
		}
		return deps
	}
	deps := make([]dependency, len(l.proto.GetDependency()))
	for i, d := range l.proto.GetDependency() {
		deps[i] = dependency{path: d}
	}
	return deps
}

// load parses source into an AST, or accepts an already-parsed one or an
// unlinked descriptor proto, whichever the resolver supplied.
func (e *executor) load(file string, sr SearchResult) (loadedFile, error) {
	if sr.Proto != nil {
		if sr.Proto.GetName() != file {
			return loadedFile{}, fmt.Errorf("resolver returned descriptor proto for %q when asked for %q", sr.Proto.GetName(), file)
		}
		return loadedFile{proto: sr.Proto}, nil
	}

	f := sr.AST
	var fi *ast.FileInfo
	if f == nil {
		if sr.Source == nil {
			return loadedFile{}, fmt.Errorf("resolver returned nothing for %q", file)
		}
		data, err := io.ReadAll(sr.Source)
		if err != nil {
			return loadedFile{}, err
		}
		fi = ast.NewFileInfo(file, data)
		f, err = parser.Parse(file, bytes.NewReader(data), e.h)
		if err != nil {
			return loadedFile{}, err
		}
	}
	if f.Invalid {
		return loadedFile{}, fmt.Errorf("%s: contains unrecoverable syntax errors", file)
	}
	if f.Edition != "" {
		if !e.c.AllowEditions && !editions.AllowEditions {
			return loadedFile{}, fmt.Errorf("%s: edition files are not supported unless Compiler.AllowEditions is set", file)
		}
		if _, ok := editions.SupportedEditions[f.Edition]; !ok {
			return loadedFile{}, fmt.Errorf("%s: unsupported edition %q", file, f.Edition)
		}
	}
	return loadedFile{fi: fi, ast: f}, nil
}

// link runs the four post-parse stages (symbol indexing, name resolution,
// option interpretation, validation) and, if requested, source info.
func (e *executor) link(l loadedFile) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fd *descriptorpb.FileDescriptorProto
	var pos linker.Positions
	var err error
	if l.ast != nil {
		fd, pos, err = linker.LinkFile(l.ast, l.fi, e.sym, e.h)
	} else {
		fd = l.proto
		pos, err = linker.LinkProto(fd, e.sym, e.h)
	}
	if err != nil {
		return Result{}, err
	}
	if err := options.Interpret(fd, pos, e.reg, e.h); err != nil {
		return Result{}, err
	}
	if err := linker.Validate(fd, pos, e.h); err != nil {
		return Result{}, err
	}
	if e.c.IncludeSourceInfo && l.ast != nil {
		fd.SourceCodeInfo = sourceinfo.Generate(l.ast, l.fi)
	}

	desc, err := e.reg.Build(fd)
	if err != nil {
		return Result{}, err
	}
	if err := e.reg.Add(desc); err != nil {
		return Result{}, err
	}
	return Result{Proto: fd, Descriptor: desc}, nil
}
