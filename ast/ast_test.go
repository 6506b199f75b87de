package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/protoglot/protoglot/ast"
)

func TestSpanJoin(t *testing.T) {
	a := ast.Span{Start: 5, End: 10}
	b := ast.Span{Start: 8, End: 20}
	assert.Equal(t, ast.Span{Start: 5, End: 20}, a.Join(b))

	var zero ast.Span
	assert.Equal(t, a, zero.Join(a))
	assert.Equal(t, a, a.Join(zero))
}

func TestSpanIsValid(t *testing.T) {
	assert.True(t, ast.Span{Start: 0, End: 1}.IsValid())
	assert.False(t, ast.Span{Start: 5, End: 5}.IsValid())
	assert.False(t, ast.Span{Start: 5, End: 3}.IsValid())
}

func TestFileInfoPosAt(t *testing.T) {
	src := "line one\nline two\nline three"
	fi := ast.NewFileInfo("test.proto", []byte(src))

	pos := fi.PosAt(0)
	assert.Equal(t, 1, pos.Line)
	assert.Equal(t, 1, pos.Col)

	// "line two" starts at offset 9.
	pos = fi.PosAt(9)
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 1, pos.Col)

	pos = fi.PosAt(-1)
	assert.Equal(t, 0, pos.Line)
}

func TestFileInfoText(t *testing.T) {
	src := "hello world"
	fi := ast.NewFileInfo("test.proto", []byte(src))
	assert.Equal(t, "hello", fi.Text(ast.Span{Start: 0, End: 5}))
	assert.Equal(t, "world", fi.Text(ast.Span{Start: 6, End: 11}))
	assert.Equal(t, "", fi.Text(ast.Span{}))
}

func TestImportCommentsAttached(t *testing.T) {
	imp := &ast.Import{Path: "foo.proto"}
	imp.SetSpan(ast.Span{Start: 0, End: 20})
	leading := []ast.Comment{{Text: "// a leading comment"}}
	trailing := &ast.Comment{Text: "// trailing"}
	imp.SetComments(leading, nil, trailing)

	var c ast.Commented = imp
	require := assert.New(t)
	require.Len(c.Leading(), 1)
	require.Equal("// a leading comment", c.Leading()[0].Text)
	require.NotNil(c.Trailing())
	require.Equal("// trailing", c.Trailing().Text)
	require.Empty(c.LeadingDetached())
}

func TestFieldLabelString(t *testing.T) {
	assert.NotEmpty(t, ast.LabelRepeated.String())
	assert.NotEqual(t, ast.LabelOptional.String(), ast.LabelRequired.String())
}
