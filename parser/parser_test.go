package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/parser"
	"github.com/protoglot/protoglot/reporter"
)

func TestParseMessageWithFieldsAndOptions(t *testing.T) {
	src := `
syntax = "proto3";
package foo.bar;

message Person {
  string name = 1;
  int32 age = 2 [deprecated = true];
  repeated string tags = 3;
}
`
	h := reporter.NewHandler(nil)
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)
	require.False(t, f.Invalid)

	assert.Equal(t, "proto3", f.Syntax)
	assert.Equal(t, "foo.bar", f.Package)
	require.Len(t, f.Messages, 1)

	msg := f.Messages[0]
	assert.Equal(t, "Person", msg.Name)
	require.Len(t, msg.Fields, 3)
	assert.Equal(t, "name", msg.Fields[0].Name)
	assert.Equal(t, int32(1), msg.Fields[0].Number)
	assert.Equal(t, "age", msg.Fields[1].Name)
	require.Len(t, msg.Fields[1].Options, 1)
	assert.Equal(t, ast.LabelRepeated, msg.Fields[2].Label)
}

func TestParseEnumAndService(t *testing.T) {
	src := `
syntax = "proto3";

enum Status {
  UNKNOWN = 0;
  ACTIVE = 1;
}

service Greeter {
  rpc Greet(Status) returns (Status);
}
`
	h := reporter.NewHandler(nil)
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	require.Len(t, f.Enums, 1)
	assert.Equal(t, "Status", f.Enums[0].Name)
	require.Len(t, f.Enums[0].Values, 2)
	assert.Equal(t, "ACTIVE", f.Enums[0].Values[1].Name)

	require.Len(t, f.Services, 1)
	require.Len(t, f.Services[0].Methods, 1)
	assert.Equal(t, "Greet", f.Services[0].Methods[0].Name)
}

func TestParseOneofAndMap(t *testing.T) {
	src := `
syntax = "proto3";

message Foo {
  oneof kind {
    string a = 1;
    int32 b = 2;
  }
  map<string, int32> counts = 3;
}
`
	h := reporter.NewHandler(nil)
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	msg := f.Messages[0]
	require.Len(t, msg.Oneofs, 1)
	assert.Equal(t, "kind", msg.Oneofs[0].Name)
	require.Len(t, msg.Oneofs[0].Fields, 2)

	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "counts", msg.Fields[0].Name)
}

func TestParseImportWeakAndPublic(t *testing.T) {
	src := `
syntax = "proto3";
import "a.proto";
import weak "b.proto";
import public "c.proto";
`
	h := reporter.NewHandler(nil)
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)

	require.Len(t, f.Imports, 3)
	assert.False(t, f.Imports[0].Weak)
	assert.False(t, f.Imports[0].Public)
	assert.True(t, f.Imports[1].Weak)
	assert.True(t, f.Imports[2].Public)
}

func TestParseSyntaxErrorRecovers(t *testing.T) {
	src := `
syntax = "proto3";
message Foo {
  string name = ;
}
message Bar {
  string ok = 1;
}
`
	var errs []reporter.ErrorWithPos
	h := reporter.NewHandler(reporter.NewReporter(func(e reporter.ErrorWithPos) error {
		errs = append(errs, e)
		return nil
	}, nil))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.Error(t, err)
	require.NotEmpty(t, errs)
	// The parser should have recovered enough to still see the second message.
	var names []string
	for _, m := range f.Messages {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "Bar")
}
