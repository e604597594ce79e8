// Package literal formats and parses the scalar tokens of an archive.
//
// Integers are decimal and must parse back without truncation. Strings are
// YAML double-quoted literals; the escape set covers every character a YAML
// reader rejects or folds, so the reader reproduces the string exactly.
// Byte buffers are base64 (tag !!binary) or hex (tag !hex).
//
// This package is internal to the archive.
package literal
