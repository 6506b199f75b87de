// Package linker turns a parsed *ast.File into a linked
// *descriptorpb.FileDescriptorProto: it converts the syntax tree into the
// canonical descriptor shape, builds the symbol table every file's type
// references are resolved against, rewrites those references to
// fully-qualified names, and runs the semantic checks that don't require
// option values to already be interpreted.
//
// Linking happens in dependency order: a file's own symbols plus its
// public-transitive imports' symbols are visible to its name resolution
// pass, so every import must be converted and indexed before the files that
// depend on it are resolved. LinkFile and LinkProto link one file each; the
// caller drives this ordering, passing every file the same Symbols, the
// symbol table that is built up incrementally.
//
// Uninterpreted options are converted along with everything else but are
// deliberately left uninterpreted here — that is the options package's job,
// run after linking so that extension declarations in imported files are
// already resolvable.
package linker
