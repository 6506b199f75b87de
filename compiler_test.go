package protocompile

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/protoglot/protoglot/reporter"
)

func TestParseFilesMessageComments(t *testing.T) {
	accessor := SourceAccessorFromMap(map[string]string{
		"test.proto": `
syntax = "proto3";

// Comment for TestMessage
message TestMessage {
  string name = 1;
}
`,
	})
	comp := Compiler{
		Resolver:          &SourceResolver{Accessor: accessor},
		IncludeSourceInfo: true,
	}
	ctx := context.Background()
	results, err := comp.Compile(ctx, "test.proto")
	if !assert.Nil(t, err, "%v", err) {
		t.FailNow()
	}
	fd := results[0].Descriptor
	msg := fd.Messages().ByName("TestMessage")
	if !assert.NotNil(t, msg) {
		t.FailNow()
	}
	comment := fd.SourceLocations().ByDescriptor(msg).LeadingComments
	assert.Equal(t, " Comment for TestMessage\n", comment)
}

func TestParseFilesWithDependencies(t *testing.T) {
	contents := map[string]string{
		"test.proto": `
			syntax = "proto3";
			import "imported.proto";

			message TestImportedType {
				Bar imported_field = 1;
			}
		`,
	}
	baseResolver := ResolverFunc(func(f string) (SearchResult, error) {
		s, ok := contents[f]
		if !ok {
			return SearchResult{}, os.ErrNotExist
		}
		return SearchResult{Source: strings.NewReader(s)}, nil
	})

	wktDesc, err := protoregistry.GlobalFiles.FindFileByPath(descriptorProtoPath)
	assert.Nil(t, err)

	ctx := context.Background()

	t.Run("DependencyIncluded", func(t *testing.T) {
		compiler := Compiler{
			Resolver: ResolverFunc(func(f string) (SearchResult, error) {
				if f == "imported.proto" {
					return SearchResult{Source: strings.NewReader(`syntax = "proto3"; message Bar { string name = 1; }`)}, nil
				}
				return baseResolver.FindFileByPath(f)
			}),
		}
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Nil(t, err, "%v", err)
	})

	t.Run("DependencyIncludedAsDescriptor", func(t *testing.T) {
		compiler := Compiler{
			Resolver: ResolverFunc(func(f string) (SearchResult, error) {
				if f == "google/protobuf/descriptor.proto" {
					return SearchResult{Desc: wktDesc}, nil
				}
				if f == "imported.proto" {
					return SearchResult{Source: strings.NewReader(`
						syntax = "proto3";
						import "google/protobuf/descriptor.proto";
						message Bar { string name = 1; }
					`)}, nil
				}
				return baseResolver.FindFileByPath(f)
			}),
		}
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Nil(t, err, "%v", err)
	})

	t.Run("DependencyExcluded", func(t *testing.T) {
		compiler := Compiler{Resolver: baseResolver}
		_, err := compiler.Compile(ctx, "test.proto")
		assert.NotNil(t, err, "expected compile to fail")
	})

	t.Run("AccessorWins", func(t *testing.T) {
		compiler := Compiler{
			Resolver: ResolverFunc(func(f string) (SearchResult, error) {
				if f == "test.proto" {
					return SearchResult{Source: strings.NewReader(`syntax = "proto3";`)}, nil
				}
				t.Errorf("resolver was called for unexpected filename %q", f)
				return SearchResult{}, os.ErrNotExist
			}),
		}
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Nil(t, err)
	})
}

func TestParseCommentsBeforeDot(t *testing.T) {
	accessor := SourceAccessorFromMap(map[string]string{
		"test.proto": `
syntax = "proto3";
message Foo {
  // leading comments
  .Foo foo = 1;
}
`,
	})

	compiler := Compiler{
		Resolver:          &SourceResolver{Accessor: accessor},
		IncludeSourceInfo: true,
	}
	ctx := context.Background()
	results, err := compiler.Compile(ctx, "test.proto")
	assert.Nil(t, err)

	fd := results[0].Descriptor
	field := fd.Messages().Get(0).Fields().Get(0)
	comment := fd.SourceLocations().ByDescriptor(field).LeadingComments
	assert.Equal(t, " leading comments\n", comment)
}

func TestParseCustomOptions(t *testing.T) {
	accessor := SourceAccessorFromMap(map[string]string{
		"test.proto": `
syntax = "proto3";
import "google/protobuf/descriptor.proto";
extend google.protobuf.MessageOptions {
    string foo = 30303;
    int64 bar = 30304;
}
message Foo {
  option (.foo) = "foo";
  option (bar) = 123;
}
`,
	})

	compiler := Compiler{
		Resolver:          WithStandardImports(&SourceResolver{Accessor: accessor}),
		IncludeSourceInfo: true,
	}
	ctx := context.Background()
	results, err := compiler.Compile(ctx, "test.proto")
	if !assert.Nil(t, err, "%v", err) {
		t.FailNow()
	}

	md := results[0].Descriptor.Messages().Get(0)
	data := md.Options().ProtoReflect().GetUnknown()

	tag, wt, n := protowire.ConsumeTag(data)
	assert.True(t, n > 0)
	assert.Equal(t, protowire.Number(30303), tag)
	assert.Equal(t, protowire.BytesType, wt)

	data = data[n:]
	fieldData, n := protowire.ConsumeBytes(data)
	assert.True(t, n > 0)
	assert.Equal(t, "foo", string(fieldData))

	data = data[n:]
	tag, wt, n = protowire.ConsumeTag(data)
	assert.True(t, n > 0)
	assert.Equal(t, protowire.Number(30304), tag)
	assert.Equal(t, protowire.VarintType, wt)

	data = data[n:]
	fieldVal, n := protowire.ConsumeVarint(data)
	assert.True(t, n > 0)
	assert.Equal(t, uint64(123), fieldVal)
}

func TestImportCycle(t *testing.T) {
	contents := map[string]string{
		"a.proto": `syntax = "proto3"; import "b.proto";`,
		"b.proto": `syntax = "proto3"; import "a.proto";`,
	}
	compiler := Compiler{Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(contents)}}
	ctx := context.Background()
	_, err := compiler.Compile(ctx, "a.proto")
	assert.NotNil(t, err, "expected import cycle to be rejected")
}

func TestWeakImportFailureIsWarningNotError(t *testing.T) {
	contents := map[string]string{
		"test.proto": `syntax = "proto3"; import weak "missing.proto"; message Foo {}`,
	}
	var warnings int
	compiler := Compiler{
		Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(contents)},
		Reporter: reporter.NewReporter(nil, func(reporter.ErrorWithPos) { warnings++ }),
	}
	_, err := compiler.Compile(context.Background(), "test.proto")
	assert.Nil(t, err, "missing weak import should not fail compilation")
	assert.Equal(t, 1, warnings)
}
