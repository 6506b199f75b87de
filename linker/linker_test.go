package linker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/linker"
	"github.com/protoglot/protoglot/parser"
	"github.com/protoglot/protoglot/reporter"
)

func TestLinkFileResolvesFieldType(t *testing.T) {
	src := `
syntax = "proto3";
package foo;

message Address {
  string city = 1;
}

message Person {
  Address home = 1;
}
`
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, _, err := linker.LinkFile(f, fi, sym, h)
	require.NoError(t, err)

	person := fd.GetMessageType()[1]
	require.Len(t, person.GetField(), 1)
	assert.Equal(t, ".foo.Address", person.GetField()[0].GetTypeName())
}

func TestLinkFileUnresolvedTypeFails(t *testing.T) {
	src := `
syntax = "proto3";
message Foo {
  Bar bar = 1;
}
`
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	_, _, err = linker.LinkFile(f, fi, sym, h)
	assert.Error(t, err)
}

func TestSymbolsRejectsDuplicateName(t *testing.T) {
	src1 := `
syntax = "proto3";
package foo;
message Thing {}
`
	src2 := `
syntax = "proto3";
package foo;
message Thing {}
`
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)

	fi1 := ast.NewFileInfo("a.proto", []byte(src1))
	f1, err := parser.Parse("a.proto", strings.NewReader(src1), h)
	require.NoError(t, err)
	_, _, err = linker.LinkFile(f1, fi1, sym, h)
	require.NoError(t, err)

	fi2 := ast.NewFileInfo("b.proto", []byte(src2))
	f2, err := parser.Parse("b.proto", strings.NewReader(src2), h)
	require.NoError(t, err)
	_, _, err = linker.LinkFile(f2, fi2, sym, h)
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateFieldNumber(t *testing.T) {
	src := `
syntax = "proto3";
message Foo {
  string a = 1;
  string b = 1;
}
`
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	fd, pos, err := linker.LinkFile(f, fi, sym, h)
	require.NoError(t, err)

	err = linker.Validate(fd, pos, h)
	assert.Error(t, err)
}

// linkAll parses and links each source in order against a shared symbol
// table, the way executor.doCompile links a dependency before the files
// that import it.
func linkAll(t *testing.T, sym *linker.Symbols, h *reporter.Handler, files map[string]string, order []string) (*descriptorpb.FileDescriptorProto, error) {
	t.Helper()
	var last *descriptorpb.FileDescriptorProto
	for _, name := range order {
		src := files[name]
		fi := ast.NewFileInfo(name, []byte(src))
		f, err := parser.Parse(name, strings.NewReader(src), h)
		require.NoError(t, err)
		fd, _, err := linker.LinkFile(f, fi, sym, h)
		if err != nil {
			return nil, err
		}
		last = fd
	}
	return last, nil
}

func TestResolveFailsOnMissingTransitiveImport(t *testing.T) {
	files := map[string]string{
		"b.proto": `syntax = "proto3"; package pkg; message Y {}`,
		"a.proto": `syntax = "proto3"; package pkg; import "b.proto";`,
		"c.proto": `
syntax = "proto3";
package pkg;
import "a.proto";
message UsesY {
  Y y = 1;
}
`,
	}
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	_, err := linkAll(t, sym, h, files, []string{"b.proto", "a.proto", "c.proto"})
	require.Error(t, err)

	var notDefined *linker.NotDefinedInImportsError
	assert.ErrorAs(t, err, &notDefined)
}

func TestResolveSucceedsThroughPublicImport(t *testing.T) {
	files := map[string]string{
		"b.proto": `syntax = "proto3"; package pkg; message Y {}`,
		"a.proto": `syntax = "proto3"; package pkg; import public "b.proto";`,
		"c.proto": `
syntax = "proto3";
package pkg;
import "a.proto";
message UsesY {
  Y y = 1;
}
`,
	}
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	fd, err := linkAll(t, sym, h, files, []string{"b.proto", "a.proto", "c.proto"})
	require.NoError(t, err)

	require.Len(t, fd.GetMessageType()[0].GetField(), 1)
	assert.Equal(t, ".pkg.Y", fd.GetMessageType()[0].GetField()[0].GetTypeName())
}

func TestValidateRejectsRequiredFieldInProto3(t *testing.T) {
	src := `
syntax = "proto3";
message Foo {
  required string a = 1;
}
`
	sym := linker.NewSymbols()
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	// The parser itself may or may not reject "required" in proto3 syntax;
	// either a parse error or a later validation error is acceptable here.
	if err != nil {
		return
	}

	fd, pos, err := linker.LinkFile(f, fi, sym, h)
	if err != nil {
		return
	}
	err = linker.Validate(fd, pos, h)
	assert.Error(t, err)
}
