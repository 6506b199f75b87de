package options_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/linker"
	"github.com/protoglot/protoglot/options"
	"github.com/protoglot/protoglot/parser"
	"github.com/protoglot/protoglot/reporter"
)

// newSymbolsWithDescriptorProto returns a Symbols table that already knows
// about google/protobuf/descriptor.proto, for tests whose source imports it
// to declare custom options.
func newSymbolsWithDescriptorProto(t *testing.T) *linker.Symbols {
	t.Helper()
	d, err := protoregistry.GlobalFiles.FindFileByPath("google/protobuf/descriptor.proto")
	require.NoError(t, err)
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	require.NoError(t, sym.Index(protodesc.ToFileDescriptorProto(d), linker.Positions{}, h))
	return sym
}

// newRegistryWithDescriptorProto mirrors what the driver does for every
// file it loads from a resolver-supplied descriptor: register it with the
// options Registry so later Builds can resolve it as a dependency.
func newRegistryWithDescriptorProto(t *testing.T) *options.Registry {
	t.Helper()
	d, err := protoregistry.GlobalFiles.FindFileByPath("google/protobuf/descriptor.proto")
	require.NoError(t, err)
	reg := options.NewRegistry()
	require.NoError(t, reg.Add(d))
	return reg
}

func TestInterpretFileOptions(t *testing.T) {
	src := `
		syntax = "proto3";
		option java_package = "com.example.foo";
		option deprecated = true;
	`
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, linker.NewSymbols(), h)
	require.NoError(t, err)

	reg := options.NewRegistry()
	require.NoError(t, options.Interpret(fd, pos, reg, h))

	assert.Equal(t, "com.example.foo", fd.GetOptions().GetJavaPackage())
	assert.True(t, fd.GetOptions().GetDeprecated())
	assert.Empty(t, fd.GetOptions().GetUninterpretedOption())
}

func TestInterpretMessageOptions(t *testing.T) {
	src := `
		syntax = "proto3";
		message Foo {
			option deprecated = true;
			string bar = 1 [deprecated = true];
		}
	`
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, linker.NewSymbols(), h)
	require.NoError(t, err)

	reg := options.NewRegistry()
	require.NoError(t, options.Interpret(fd, pos, reg, h))

	msg := fd.GetMessageType()[0]
	assert.True(t, msg.GetOptions().GetDeprecated())
	assert.True(t, msg.GetField()[0].GetOptions().GetDeprecated())
}

func TestInterpretCustomScalarOption(t *testing.T) {
	src := `
		syntax = "proto3";
		import "google/protobuf/descriptor.proto";
		extend google.protobuf.MessageOptions {
			string my_option = 50001;
		}
		message Foo {
			option (my_option) = "hello";
		}
	`
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, newSymbolsWithDescriptorProto(t), h)
	require.NoError(t, err)

	reg := newRegistryWithDescriptorProto(t)
	require.NoError(t, options.Interpret(fd, pos, reg, h))

	msg := fd.GetMessageType()[0]
	assert.Empty(t, msg.GetOptions().GetUninterpretedOption())
	assert.NotEmpty(t, msg.GetOptions().ProtoReflect().GetUnknown())
}

func TestInterpretAggregateOption(t *testing.T) {
	src := `
		syntax = "proto3";
		import "google/protobuf/descriptor.proto";
		message Info {
			string name = 1;
			int32 count = 2;
		}
		extend google.protobuf.MessageOptions {
			Info my_option = 50002;
		}
		message Foo {
			option (my_option) = { name: "foo" count: 3 };
		}
	`
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, newSymbolsWithDescriptorProto(t), h)
	require.NoError(t, err)

	reg := newRegistryWithDescriptorProto(t)
	err = options.Interpret(fd, pos, reg, h)
	require.NoError(t, err)

	foo := fd.GetMessageType()[1]
	assert.Equal(t, "Foo", foo.GetName())
	assert.Empty(t, foo.GetOptions().GetUninterpretedOption())
	assert.NotEmpty(t, foo.GetOptions().ProtoReflect().GetUnknown())
}

func TestInterpretUnknownOptionFails(t *testing.T) {
	src := `
		syntax = "proto3";
		message Foo {
			option (nonexistent.option) = "foo";
		}
	`
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, linker.NewSymbols(), h)
	require.NoError(t, err)

	reg := options.NewRegistry()
	err = options.Interpret(fd, pos, reg, h)
	assert.Error(t, err)
}
