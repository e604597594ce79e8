package emitter

import (
	"errors"
	"io"
	"strings"
)

var (
	ErrNoContainer   = errors.New("emitter: value outside of any container")
	ErrMissingKey    = errors.New("emitter: mapping value without a key")
	ErrUnexpectedKey = errors.New("emitter: key outside of a mapping")
	ErrUnbalanced    = errors.New("emitter: end without matching begin")
	ErrKindMismatch  = errors.New("emitter: end does not match the open container")
)

// Props are the node properties written before a value.
type Props struct {
	Anchor string
	Tag    string
}

type containerKind uint8

const (
	kindSequence containerKind = iota
	kindMapping
)

type frame struct {
	head   string // text before the children, written when the first child arrives
	indent int    // column of the children
	count  int
	kind   containerKind
	open   bool
}

// Emitter writes a block-style YAML document one line at a time. Container
// headers are held back until the first child so empty containers can be
// written as [] or {} on the header line.
type Emitter struct {
	w      io.Writer
	err    error
	key    string
	line   []byte
	stack  []frame
	width  int
	hasKey bool
}

// New returns an emitter writing to w with the given indentation width.
func New(w io.Writer, width int) *Emitter {
	if width <= 0 {
		width = 2
	}
	return &Emitter{w: w, width: width}
}

// Err returns the first error the emitter hit. Every later call returns it.
func (e *Emitter) Err() error {
	return e.err
}

// Depth returns the number of open containers.
func (e *Emitter) Depth() int {
	return len(e.stack)
}

// InMapping reports whether the innermost container is a mapping.
func (e *Emitter) InMapping() bool {
	return len(e.stack) > 0 && e.stack[len(e.stack)-1].kind == kindMapping
}

// Key sets the key of the next mapping value.
func (e *Emitter) Key(name string) error {
	if e.err != nil {
		return e.err
	}
	if !e.InMapping() {
		return e.fail(ErrUnexpectedKey)
	}
	e.key = name
	e.hasKey = true
	return nil
}

// Scalar writes a scalar token with its properties.
func (e *Emitter) Scalar(text string, props Props) error {
	prefix, err := e.child()
	if err != nil {
		return err
	}
	return e.writeLine(joinProps(prefix, props, text))
}

// Alias writes an alias to a previously anchored node.
func (e *Emitter) Alias(anchor string) error {
	return e.Scalar("*"+anchor, Props{})
}

// BeginSequence opens a block sequence. The first container opened becomes
// the document root.
func (e *Emitter) BeginSequence(props Props) error {
	return e.begin(kindSequence, props)
}

// EndSequence closes the innermost sequence.
func (e *Emitter) EndSequence() error {
	return e.end(kindSequence)
}

// BeginMapping opens a block mapping.
func (e *Emitter) BeginMapping(props Props) error {
	return e.begin(kindMapping, props)
}

// EndMapping closes the innermost mapping.
func (e *Emitter) EndMapping() error {
	return e.end(kindMapping)
}

func (e *Emitter) begin(kind containerKind, props Props) error {
	if e.err != nil {
		return e.err
	}

	if len(e.stack) == 0 {
		e.stack = append(e.stack, frame{kind: kind, open: true})
		return nil
	}

	prefix, err := e.child()
	if err != nil {
		return err
	}
	parent := e.stack[len(e.stack)-1]
	e.stack = append(e.stack, frame{
		kind:   kind,
		head:   joinProps(prefix, props, ""),
		indent: parent.indent + e.width,
	})
	return nil
}

func (e *Emitter) end(kind containerKind) error {
	if e.err != nil {
		return e.err
	}
	if len(e.stack) == 0 {
		return e.fail(ErrUnbalanced)
	}
	f := e.stack[len(e.stack)-1]
	if f.kind != kind {
		return e.fail(ErrKindMismatch)
	}
	e.stack = e.stack[:len(e.stack)-1]

	if f.count > 0 {
		return nil
	}

	empty := "[]"
	if kind == kindMapping {
		empty = "{}"
	}
	if f.head == "" {
		return e.writeLine(empty)
	}
	return e.writeLine(f.head + " " + empty)
}

// child flushes the pending header of the innermost container and returns
// the line prefix for its next value.
func (e *Emitter) child() (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if len(e.stack) == 0 {
		return "", e.fail(ErrNoContainer)
	}

	f := &e.stack[len(e.stack)-1]
	if !f.open {
		f.open = true
		if err := e.writeLine(f.head); err != nil {
			return "", err
		}
	}

	var prefix string
	switch f.kind {
	case kindSequence:
		prefix = strings.Repeat(" ", f.indent) + "-"
	case kindMapping:
		if !e.hasKey {
			return "", e.fail(ErrMissingKey)
		}
		prefix = strings.Repeat(" ", f.indent) + e.key + ":"
		e.key, e.hasKey = "", false
	}
	f.count++
	return prefix, nil
}

func joinProps(prefix string, props Props, text string) string {
	parts := make([]string, 0, 4)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if props.Anchor != "" {
		parts = append(parts, "&"+props.Anchor)
	}
	if props.Tag != "" {
		parts = append(parts, props.Tag)
	}
	if text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func (e *Emitter) writeLine(s string) error {
	e.line = append(e.line[:0], s...)
	e.line = append(e.line, '\n')
	if _, err := e.w.Write(e.line); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *Emitter) fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	return e.err
}
