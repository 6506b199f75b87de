// Package parser turns Protobuf source text into the descriptor IR defined
// by the ast package.
//
// Parsing happens in two layers. The lexer (lexer.go) turns raw bytes into a
// stream of tokens, collecting the comments that precede each token; the
// parser decides which declaration each comment belongs to. The parser (parser.go) is a hand-written recursive-descent grammar
// over that token stream: every declaration has its own parse function,
// each of which consumes tokens, builds the corresponding ast node, and
// recovers from a syntax error by skipping to the next statement or
// declaration boundary so a single call to Parse can surface more than one
// diagnostic.
//
// Keywords are not reserved words: the lexer always returns an identifier
// token, and it is the parser's job to recognize keyword text only in
// grammar positions where a keyword is legal, so that field and message
// names like "message" or "group" still parse correctly.
package parser
