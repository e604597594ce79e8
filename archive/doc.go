// Package archive saves Go object graphs as YAML documents and loads them
// back.
//
// A Writer walks each saved value depth-first and writes it as soon as it is
// reached; a Reader parses the document and hands values back in the same
// order. The order of save and load calls must match: the archive only
// notices a mismatch when a token, tag or field name does not fit.
//
// # Document layout
//
//	archive: yaml-archive
//	version: 1
//	items:
//	  - 42
//	  - "he said \"hi\"\n"
//	  - &o1 !point
//	    _version: 2
//	    x: 1
//	    y: -4
//	  - *o1
//	  - !!binary aGVsbG8=
//
// Integers, floats and bools are plain scalars. Strings are double-quoted
// with every control character escaped. Byte buffers are base64 (!!binary)
// or hex (!hex). Types registered in a Registry carry their name as a tag
// and their version as the first "_version" entry. Pointers are anchored on
// first visit and aliased afterwards, so sharing and cycles survive.
//
// With Config.NoHeader the document is the bare item sequence. A Reader
// accepts both forms.
//
// # Types
//
// The encoding of a Go type is chosen once per session:
//
//   - types implementing Saver/Loader write their own fields
//   - Version and WideString have dedicated encodings
//   - types the shape.Classifier recognizes are sequences
//   - bool, integers, floats and strings are scalars
//   - []byte and [N]byte are binary buffers
//   - structs are records of their exported fields
//   - pointers are references; interfaces hold registered types
//
// Maps, channels, functions and complex numbers are not supported.
//
// # Struct tags
//
//	type Point struct {
//		X     int    `archive:"x"`
//		Y     int    `archive:"y"`
//		Label string `archive:"label,since=2"`
//		cache []byte // unexported fields are skipped
//		Tmp   int    `archive:"-"`
//	}
//
// A since option marks a field added in a later version. Archives of older
// versions do not contain it and loading leaves the field untouched.
//
// # Errors
//
// Load failures are *errors.Error values of kind parsing_error,
// tag_mismatch or tag_name_error. Errors are sticky: after the first failure
// every call on the session returns it. I/O errors of the underlying stream
// are returned unchanged.
package archive
