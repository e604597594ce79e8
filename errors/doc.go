// Package errors provides structured error types for yaml-archive.
//
// Errors are categorized by Phase (save, load, register) and Kind. The load
// path raises exactly three kinds for text that does not conform to the
// archive structure:
//
//	parsing_error   text at the cursor does not match the expected token shape
//	tag_mismatch    a registered tag was read where another type was expected
//	tag_name_error  a tag was read that no type descriptor registers
//
// The Error type carries the value path, what was expected and what was
// found, the source line and an optional cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindParsing).
//		Path("shapes", "[2]", "radius").
//		Expected("integer").
//		Found(`"twelve"`).
//		Line(14).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TagMismatch(path, line, "!circle", "!square")
//	err := errors.TagName(path, line, "hexagon")
//
// All errors implement the standard error interface and support errors.Is/As.
// The sentinels ErrParsing, ErrTagMismatch and ErrTagName match by kind in
// any phase:
//
//	if errors.Is(err, yerrors.ErrTagMismatch) { ... }
package errors
