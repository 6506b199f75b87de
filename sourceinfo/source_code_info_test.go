package sourceinfo_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/parser"
	"github.com/protoglot/protoglot/reporter"
	"github.com/protoglot/protoglot/sourceinfo"
)

func parse(t *testing.T, src string) (*ast.File, *ast.FileInfo) {
	t.Helper()
	h := reporter.NewHandler(nil)
	fi := ast.NewFileInfo("test.proto", []byte(src))
	f, err := parser.Parse("test.proto", strings.NewReader(src), h)
	require.NoError(t, err)
	return f, fi
}

func TestGenerateMessageLeadingComment(t *testing.T) {
	src := `
syntax = "proto3";

// A Foo holds some stuff.
message Foo {
  string bar = 1;
}
`
	f, fi := parse(t, src)
	info := sourceinfo.Generate(f, fi)
	require.NotEmpty(t, info.GetLocation())

	var found bool
	for _, loc := range info.GetLocation() {
		if len(loc.Path) == 2 && loc.Path[0] == 4 && loc.Path[1] == 0 {
			found = true
			require.NotNil(t, loc.LeadingComments)
			assert.Equal(t, " A Foo holds some stuff.\n", loc.GetLeadingComments())
		}
	}
	assert.True(t, found, "expected a location for the message declaration itself")
}

func TestGenerateFieldTrailingComment(t *testing.T) {
	src := `
syntax = "proto3";
message Foo {
  string bar = 1; // the bar field
}
`
	f, fi := parse(t, src)
	info := sourceinfo.Generate(f, fi)

	var found bool
	for _, loc := range info.GetLocation() {
		// message(4), index 0, field(2), index 0
		if len(loc.Path) == 4 && loc.Path[0] == 4 && loc.Path[2] == 2 && loc.Path[3] == 0 {
			found = true
			assert.Equal(t, " the bar field\n", loc.GetTrailingComments())
		}
	}
	assert.True(t, found, "expected a location for the field declaration itself")
}

func TestGenerateDetachedComments(t *testing.T) {
	src := `
syntax = "proto3";

// detached group one

// detached group two

// leading comment
message Foo {}
`
	f, fi := parse(t, src)
	info := sourceinfo.Generate(f, fi)

	var found bool
	for _, loc := range info.GetLocation() {
		if len(loc.Path) == 2 && loc.Path[0] == 4 && loc.Path[1] == 0 {
			found = true
			require.Equal(t, 2, len(loc.LeadingDetachedComments))
			assert.Equal(t, " detached group one\n", loc.LeadingDetachedComments[0])
			assert.Equal(t, " detached group two\n", loc.LeadingDetachedComments[1])
			assert.Equal(t, " leading comment\n", loc.GetLeadingComments())
		}
	}
	assert.True(t, found)
}
