package protocompile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/protoglot/protoglot/reporter"
)

// TestErrorReporting checks that a Reporter's ErrorReporter controls whether
// compilation keeps collecting diagnostics within a single stage or aborts
// immediately, and that Compile surfaces exactly what the reporter decided.
func TestErrorReporting(t *testing.T) {
	files := map[string]string{
		"test.proto": `
			syntax = "proto";
			package foo

			enum State { A = 0; B = 1; C; D }
			message Foo {
				foo = 1;
			}
			`,
	}

	ctx := context.Background()
	newCompiler := func(rep reporter.Reporter) Compiler {
		return Compiler{
			Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(files)},
			Reporter: rep,
		}
	}

	t.Run("CollectsMultipleErrors", func(t *testing.T) {
		var reported []reporter.ErrorWithPos
		rep := reporter.NewReporter(func(err reporter.ErrorWithPos) error {
			reported = append(reported, err)
			return nil
		}, nil)
		compiler := newCompiler(rep)
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Equal(t, reporter.ErrInvalidSource, err)
		assert.True(t, len(reported) > 1, "expected more than one syntax error to be collected")
		for _, e := range reported {
			assert.True(t, strings.HasPrefix(e.Error(), "test.proto:"))
		}
	})

	t.Run("FailsFastOnFirstError", func(t *testing.T) {
		fail := errors.New("stop now")
		count := 0
		rep := reporter.NewReporter(func(reporter.ErrorWithPos) error {
			count++
			return fail
		}, nil)
		compiler := newCompiler(rep)
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Equal(t, fail, err)
		assert.Equal(t, 1, count)
	})

	t.Run("StopsAfterLimit", func(t *testing.T) {
		tooMany := errors.New("too many errors")
		count := 0
		rep := reporter.NewReporter(func(reporter.ErrorWithPos) error {
			count++
			if count > 2 {
				return tooMany
			}
			return nil
		}, nil)
		compiler := newCompiler(rep)
		_, err := compiler.Compile(ctx, "test.proto")
		assert.Equal(t, tooMany, err)
		assert.Equal(t, 3, count)
	})
}

func TestErrorReportingAcrossFiles(t *testing.T) {
	files := map[string]string{
		"test1.proto": `
			syntax = "proto3";
			import "test2.proto";
			message Foo {
				string foo = -1;
			}
			`,
		"test2.proto": `
			syntax = "proto3";
			message Baz {
				required string foo = 1;
			}
			`,
	}
	compiler := Compiler{Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(files)}}
	_, err := compiler.Compile(context.Background(), "test1.proto", "test2.proto")
	assert.NotNil(t, err)
}

// TestWeakImportWarning checks that a missing weak import is reported as a
// warning, carrying the file and position of the import statement, rather
// than failing the compile.
func TestWeakImportWarning(t *testing.T) {
	files := map[string]string{
		"test.proto": `syntax = "proto3"; import weak "missing.proto"; message Foo {}`,
	}
	var warnings []reporter.ErrorWithPos
	compiler := Compiler{
		Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(files)},
		Reporter: reporter.NewReporter(nil, func(w reporter.ErrorWithPos) {
			warnings = append(warnings, w)
		}),
	}
	_, err := compiler.Compile(context.Background(), "test.proto")
	assert.Nil(t, err)
	if assert.Equal(t, 1, len(warnings)) {
		assert.True(t, strings.HasPrefix(warnings[0].GetPosition().String(), "test.proto"))
	}
}
