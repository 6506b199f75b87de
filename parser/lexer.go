package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/protoglot/protoglot/ast"
	"github.com/protoglot/protoglot/reporter"
)

// tokenKind classifies a single lexical token. Keywords are not a distinct
// kind: they are lexed as tokIdent, and the parser consults the token's
// text wherever a keyword is grammatically expected.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string // identifier text, raw punctuation rune, or decoded string contents
	i    uint64
	f    float64
	span ast.Span
}

// lexer turns a file's bytes into a stream of tokens, tracking comments so
// the parser can attach them to the nearest declaration.
type lexer struct {
	filename string
	data     []byte
	pos      int

	h  *reporter.Handler
	fi *ast.FileInfo

	// pending holds comments collected since the last token was returned;
	// the parser drains this via takeComments once it knows which node the
	// comments should be attached to.
	pending []ast.Comment
}

func newLexer(filename string, data []byte, h *reporter.Handler) *lexer {
	return &lexer{
		filename: filename,
		data:     data,
		h:        h,
		fi:       ast.NewFileInfo(filename, data),
	}
}

func (l *lexer) errPos(offset int) ast.SourcePos {
	return l.fi.PosAt(offset)
}

func (l *lexer) fail(offset int, kind ErrorKind, format string, args ...interface{}) {
	_ = l.h.HandleError(reporter.Error(l.errPos(offset), errf(kind, format, args...)))
}

func (l *lexer) takeComments() []ast.Comment {
	c := l.pending
	l.pending = nil
	return c
}

func (l *lexer) peekByte() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

// next returns the next token, skipping whitespace and comments (recording
// the latter in l.pending). At end of input it returns a zero-width tokEOF
// token positioned just past the last byte.
func (l *lexer) next() token {
	for {
		c, ok := l.peekByte()
		if !ok {
			return token{kind: tokEOF, span: ast.Span{Start: len(l.data), End: len(l.data)}}
		}

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			l.pos++
			continue
		case c == '/' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '/':
			l.lexLineComment()
			continue
		case c == '/' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '*':
			l.lexBlockComment()
			continue
		}
		break
	}

	start := l.pos
	r, size := l.decodeRune(start)

	switch {
	case r == utf8.RuneError && size == 1:
		l.fail(start, ErrInvalidUTF8, "invalid UTF-8 at offset %d", start)
		l.pos++
		return token{kind: tokPunct, text: string(r), span: ast.Span{Start: start, End: l.pos}}
	case isIdentStart(r):
		return l.lexIdent(start)
	case r >= '0' && r <= '9':
		return l.lexNumber(start)
	case r == '.' && l.peekIsDigit(start+size):
		return l.lexNumber(start)
	case r == '"' || r == '\'':
		return l.lexString(start, r)
	default:
		l.pos += size
		return token{kind: tokPunct, text: string(r), span: ast.Span{Start: start, End: l.pos}}
	}
}

func (l *lexer) decodeRune(at int) (rune, int) {
	if at >= len(l.data) {
		return 0, 0
	}
	return utf8.DecodeRune(l.data[at:])
}

func (l *lexer) peekIsDigit(at int) bool {
	return at < len(l.data) && l.data[at] >= '0' && l.data[at] <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *lexer) lexLineComment() {
	start := l.pos
	l.pos += 2
	for l.pos < len(l.data) && l.data[l.pos] != '\n' {
		l.pos++
	}
	l.pending = append(l.pending, ast.Comment{Span: ast.Span{Start: start, End: l.pos}, Text: string(l.data[start:l.pos])})
}

func (l *lexer) lexBlockComment() {
	start := l.pos
	l.pos += 2
	for {
		if l.pos+1 >= len(l.data) {
			if l.pos >= len(l.data) {
				l.fail(start, ErrUnterminatedComment, "block comment never terminates, unexpected EOF")
				l.pos = len(l.data)
				break
			}
			l.pos++
			continue
		}
		if l.data[l.pos] == '*' && l.data[l.pos+1] == '/' {
			l.pos += 2
			break
		}
		l.pos++
	}
	l.pending = append(l.pending, ast.Comment{Span: ast.Span{Start: start, End: l.pos}, Text: string(l.data[start:l.pos])})
}

func (l *lexer) lexIdent(start int) token {
	l.pos = start
	for l.pos < len(l.data) {
		r, size := l.decodeRune(l.pos)
		if !isIdentCont(r) {
			break
		}
		l.pos += size
	}
	text := string(l.data[start:l.pos])
	return token{kind: tokIdent, text: text, span: ast.Span{Start: start, End: l.pos}}
}

// lexNumber consumes an integer or floating point literal. It mirrors
// protoc's own lenient scanning: it grabs every character that could
// plausibly belong to a number (digits, one dot, an exponent and its sign,
// hex/octal digits) and lets strconv reject anything that doesn't parse.
func (l *lexer) lexNumber(start int) token {
	l.pos = start
	isHex := false
	if l.data[l.pos] == '0' && l.pos+1 < len(l.data) && (l.data[l.pos+1] == 'x' || l.data[l.pos+1] == 'X') {
		isHex = true
		l.pos += 2
	}
	allowExpSign := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if (c == '-' || c == '+') && !allowExpSign {
			break
		}
		allowExpSign = false
		isNumChar := (c >= '0' && c <= '9') || c == '.' ||
			(isHex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'))) ||
			(!isHex && (c == 'e' || c == 'E'))
		if !isNumChar {
			break
		}
		if !isHex && (c == 'e' || c == 'E') {
			allowExpSign = true
		}
		l.pos++
	}
	text := string(l.data[start:l.pos])
	span := ast.Span{Start: start, End: l.pos}

	if isHex {
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			l.fail(start, ErrNumericOverflow, "invalid hexadecimal integer: %s", text)
			return token{kind: tokInt, span: span}
		}
		return token{kind: tokInt, i: v, span: span}
	}
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			l.fail(start, ErrNumericOverflow, "invalid float literal: %s", text)
			return token{kind: tokFloat, span: span}
		}
		return token{kind: tokFloat, f: f, span: span}
	}
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			// Too big for an integer literal; reference compiler falls back
			// to treating such (decimal) literals as floats.
			if f, ferr := strconv.ParseFloat(text, 64); ferr == nil {
				return token{kind: tokFloat, f: f, span: span}
			}
		}
		l.fail(start, ErrNumericOverflow, "invalid integer literal: %s", text)
		return token{kind: tokInt, span: span}
	}
	return token{kind: tokInt, i: v, span: span}
}

func (l *lexer) lexString(start int, quote rune) token {
	l.pos = start + 1
	var buf strings.Builder
	for {
		if l.pos >= len(l.data) {
			l.fail(start, ErrUnterminatedString, "unterminated string literal")
			break
		}
		c := l.data[l.pos]
		if c == '\n' {
			l.fail(start, ErrUnterminatedString, "encountered end-of-line before end of string literal")
			break
		}
		if rune(c) == quote {
			l.pos++
			break
		}
		if c == 0 {
			l.fail(l.pos, ErrInvalidEscape, "null character not allowed in string literal")
			l.pos++
			continue
		}
		if c != '\\' {
			r, size := l.decodeRune(l.pos)
			buf.WriteRune(r)
			l.pos += size
			continue
		}
		l.pos++
		if !l.lexEscape(&buf, start) {
			break
		}
	}
	return token{kind: tokString, text: buf.String(), span: ast.Span{Start: start, End: l.pos}}
}

// lexEscape decodes one backslash escape sequence into buf, assuming the
// backslash itself has already been consumed. It supports the same set the
// reference compiler does: single-letter escapes, octal, \x, \u, and \U.
func (l *lexer) lexEscape(buf *strings.Builder, strStart int) bool {
	if l.pos >= len(l.data) {
		l.fail(strStart, ErrUnterminatedString, "unterminated escape sequence")
		return false
	}
	c := l.data[l.pos]
	l.pos++
	switch c {
	case 'a':
		buf.WriteByte('\a')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'v':
		buf.WriteByte('\v')
	case '\\', '\'', '"', '?':
		buf.WriteByte(c)
	case 'x', 'X':
		hex := l.takeHexDigits(2)
		if hex == "" {
			l.fail(l.pos, ErrInvalidEscape, "invalid hex escape")
			return true
		}
		v, _ := strconv.ParseUint(hex, 16, 32)
		buf.WriteByte(byte(v))
	case 'u':
		if !l.lexUnicodeEscape(buf, 4) {
			return true
		}
	case 'U':
		if !l.lexUnicodeEscape(buf, 8) {
			return true
		}
	default:
		if c >= '0' && c <= '7' {
			oct := string(c) + l.takeOctalDigits(2)
			v, err := strconv.ParseUint(oct, 8, 32)
			if err != nil || v > 0xff {
				l.fail(l.pos, ErrInvalidEscape, "octal escape out of range: \\%s", oct)
				return true
			}
			buf.WriteByte(byte(v))
			return true
		}
		l.fail(l.pos, ErrInvalidEscape, "invalid escape sequence: \\%c", c)
	}
	return true
}

func (l *lexer) takeHexDigits(max int) string {
	start := l.pos
	for l.pos < len(l.data) && l.pos-start < max && isHexDigit(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) takeOctalDigits(max int) string {
	start := l.pos
	for l.pos < len(l.data) && l.pos-start < max && l.data[l.pos] >= '0' && l.data[l.pos] <= '7' {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) lexUnicodeEscape(buf *strings.Builder, digits int) bool {
	hex := l.takeHexDigits(digits)
	if len(hex) != digits {
		l.fail(l.pos, ErrInvalidEscape, "invalid unicode escape, expected %d hex digits", digits)
		return false
	}
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil || v > 0x10ffff {
		l.fail(l.pos, ErrInvalidEscape, "unicode escape out of range: \\u%s", hex)
		return false
	}
	buf.WriteRune(rune(v))
	return true
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokInt:
		return "integer literal"
	case tokFloat:
		return "float literal"
	case tokString:
		return "string literal"
	default:
		return fmt.Sprintf("%q", t.text)
	}
}
