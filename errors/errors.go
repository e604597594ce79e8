package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSave     Phase = "save"     // Go value to text
	PhaseLoad     Phase = "load"     // text to Go value
	PhaseRegister Phase = "register" // type descriptor registration
)

// Kind categorizes the error
type Kind string

// Failures detected while loading. These three are the only kinds raised for
// text that does not conform to the archive structure.
const (
	KindParsing     Kind = "parsing_error"
	KindTagMismatch Kind = "tag_mismatch"
	KindTagName     Kind = "tag_name_error"
)

// Supporting kinds raised outside the load path.
const (
	KindEncoding     Kind = "encoding_error"
	KindUnsupported  Kind = "unsupported"
	KindRegistration Kind = "registration"
	KindInvalidInput Kind = "invalid_input"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrParsing     = &Error{Kind: KindParsing}
	ErrTagMismatch = &Error{Kind: KindTagMismatch}
	ErrTagName     = &Error{Kind: KindTagName}
	ErrEncoding    = &Error{Kind: KindEncoding}
	ErrUnsupported = &Error{Kind: KindUnsupported}
)

// Error is the structured error type used throughout the archive
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Found    string
	Detail   string
	Path     []string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(FormatPath(e.Path))
	}

	if e.Expected != "" || e.Found != "" {
		b.WriteString(": ")
		if e.Expected != "" && e.Found != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", found ")
			b.WriteString(e.Found)
		} else if e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		} else {
			b.WriteString("found ")
			b.WriteString(e.Found)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Found != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Line > 0 {
		b.WriteString(" (line ")
		b.WriteString(strconv.Itoa(e.Line))
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. An empty phase on the
// target matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// FormatPath joins path segments, attaching index segments ("[3]") to the
// preceding segment without a dot.
func FormatPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets what the archive expected at this point
func (b *Builder) Expected(s string) *Builder {
	b.err.Expected = s
	return b
}

// Found sets what the archive found instead
func (b *Builder) Found(s string) *Builder {
	b.err.Found = s
	return b
}

// Line sets the source line of the offending token
func (b *Builder) Line(line int) *Builder {
	b.err.Line = line
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Parsing creates a parsing error for text that does not match the expected token shape
func Parsing(path []string, line int, expected, found string) *Error {
	return &Error{
		Phase:    PhaseLoad,
		Kind:     KindParsing,
		Path:     path,
		Line:     line,
		Expected: expected,
		Found:    found,
	}
}

// TagMismatch creates an error for a registered tag that is not the expected one
func TagMismatch(path []string, line int, expected, found string) *Error {
	return &Error{
		Phase:    PhaseLoad,
		Kind:     KindTagMismatch,
		Path:     path,
		Line:     line,
		Expected: expected,
		Found:    found,
	}
}

// TagName creates an error for a tag name no descriptor registers
func TagName(path []string, line int, name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindTagName,
		Path:   path,
		Line:   line,
		Found:  "!" + name,
		Detail: "tag is not registered",
	}
}

// Encoding creates an error for a value the text format cannot represent
func Encoding(path []string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSave,
		Kind:   KindEncoding,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an error for a Go type the archive cannot handle
func Unsupported(phase Phase, path []string, goType, reason string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		Found:  goType,
		Detail: reason,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(name, detail string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Found:  name,
		Detail: detail,
	}
}
