// Command protoglotc compiles .proto files into a FileDescriptorSet,
// the same artifact protoc emits with --descriptor_set_out.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot"
	"github.com/protoglot/protoglot/editionstesting"
	"github.com/protoglot/protoglot/reporter"
)

// Exit codes, per protoc convention: success, a compilation error with
// diagnostics already printed, and a usage error.
const (
	exitOK = iota
	exitCompileError
	exitUsageError
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// usageError marks an error as a malformed invocation rather than a
// compilation failure, so run can choose the matching exit code.
type usageError struct{ error }

func run(args []string) int {
	opts := options{}

	cmd := &cobra.Command{
		Use:           "protoglotc PROTO_FILES...",
		Short:         "Compile .proto files into a FileDescriptorSet",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			if opts.allowEditions {
				editionstesting.AllowEditions()
			}
			return compileFiles(cmd.Context(), files, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.importPaths, "proto_path", "I", []string{"."}, "directory to search for imports; may be repeated")
	flags.StringVarP(&opts.output, "descriptor_set_out", "o", "", "path to write the compiled FileDescriptorSet to")
	flags.BoolVar(&opts.includeSourceInfo, "include_source_info", false, "include SourceCodeInfo in the output")
	flags.BoolVar(&opts.includeImports, "include_imports", false, "include imported files in the output, not just those named on the command line")
	flags.BoolVar(&opts.textFormat, "text_format", false, "write the output in protobuf text format instead of binary")
	flags.BoolVar(&opts.allowEditions, "experimental_editions", false, "allow edition-syntax source files")
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		if uerr, ok := err.(usageError); ok {
			fmt.Fprintln(os.Stderr, uerr)
			return exitUsageError
		}
		fmt.Fprintln(os.Stderr, err)
		return exitCompileError
	}
	return exitOK
}

type options struct {
	importPaths       []string
	output            string
	includeSourceInfo bool
	includeImports    bool
	textFormat        bool
	allowEditions     bool
}

func compileFiles(ctx context.Context, files []string, opts options) error {
	if opts.output == "" {
		return usageError{fmt.Errorf("--descriptor_set_out is required")}
	}

	var errCount int
	rep := reporter.NewReporter(
		func(e reporter.ErrorWithPos) error {
			errCount++
			fmt.Fprintln(os.Stderr, e.Error())
			return nil
		},
		func(e reporter.ErrorWithPos) {
			fmt.Fprintln(os.Stderr, "warning:", e.Error())
		},
	)

	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: opts.importPaths,
			Accessor: func(path string) (io.ReadCloser, error) {
				return os.Open(path)
			},
		}),
		Reporter:          rep,
		IncludeSourceInfo: opts.includeSourceInfo,
		AllowEditions:     opts.allowEditions,
	}

	results, err := compiler.Compile(ctx, files...)
	if err != nil {
		if errCount > 0 {
			return fmt.Errorf("%d error(s)", errCount)
		}
		return err
	}

	fds := &descriptorpb.FileDescriptorSet{
		File: collectDescriptorProtos(results, opts.includeImports),
	}

	var data []byte
	if opts.textFormat {
		data, err = prototext.MarshalOptions{Multiline: true}.Marshal(fds)
	} else {
		data, err = proto.Marshal(fds)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(opts.output, data, 0o644)
}

// collectDescriptorProtos flattens results into a dependency-first list
// of descriptor protos, the order protoc itself emits into a
// FileDescriptorSet so a streaming reader can link each file against
// only what it has already seen.
func collectDescriptorProtos(results []protocompile.Result, includeImports bool) []*descriptorpb.FileDescriptorProto {
	seen := make(map[string]bool, len(results))
	var out []*descriptorpb.FileDescriptorProto
	var visit func(fd protoreflect.FileDescriptor)
	visit = func(fd protoreflect.FileDescriptor) {
		if fd == nil || seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		if includeImports {
			imps := fd.Imports()
			for i, n := 0, imps.Len(); i < n; i++ {
				visit(imps.Get(i).FileDescriptor)
			}
		}
		out = append(out, protodesc.ToFileDescriptorProto(fd))
	}
	for _, r := range results {
		visit(r.Descriptor)
	}
	return out
}
