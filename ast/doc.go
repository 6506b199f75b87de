// Package ast defines the in-memory representation of a parsed Protobuf
// source file.
//
// The parser package turns a token stream into a *File using the node types
// defined here. Every node carries the byte span it was parsed from plus any
// comments adjacent to it, so later stages (source-info generation,
// diagnostics) never have to re-scan source text.
//
// Nodes are built once by the parser and not modified afterwards: name
// resolution and option interpretation work on the descriptor protos the
// linker converts the tree into, not on the tree itself.
package ast
