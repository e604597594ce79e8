package archive

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/yaml-archive/archive/internal/cursor"
	"github.com/wippyai/yaml-archive/archive/internal/literal"
	"github.com/wippyai/yaml-archive/archive/internal/objects"
	"github.com/wippyai/yaml-archive/errors"
)

// VersionMismatch records a record whose archived version differs from the
// registered one.
type VersionMismatch struct {
	Type     string
	Path     string
	Archived uint32
	Current  uint32
}

// Reader is an input archive session. The whole document is parsed when the
// reader is created; values are then handed out in the order they were saved.
// A Reader is not safe for concurrent use.
type Reader struct {
	cur        *cursor.Cursor
	comp       *compiler
	log        *zap.Logger
	err        error
	anchors    *objects.Table[*yaml.Node, reflect.Value]
	frames     []frame
	prefix     []string
	mismatches []VersionMismatch
	field      string
	cfg        Config
	hasField   bool
	closed     bool
}

// errReader remembers the first error of the underlying stream so it can be
// returned unchanged instead of as a YAML error.
type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF && e.err == nil {
		e.err = err
	}
	return n, err
}

// NewReader parses one archive document from r. Archives with and without
// the header are both accepted.
func NewReader(r io.Reader, cfg Config) (*Reader, error) {
	if r == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "reader cannot be nil")
	}
	cfg = cfg.withDefaults()

	items, _, header, err := parseDocument(r)
	if err != nil {
		return nil, err
	}
	cur, err := cursor.New(items)
	if err != nil {
		return nil, errors.Parsing(nil, items.Line, "sequence", describe(items))
	}

	rd := &Reader{
		cur:     cur,
		comp:    newCompiler(cfg, errors.PhaseLoad),
		log:     cfg.Logger,
		cfg:     cfg,
		anchors: objects.New[*yaml.Node, reflect.Value](),
		frames:  []frame{{depth: cur.Depth()}},
	}
	if header {
		rd.prefix = []string{"items"}
	}

	rd.log.Debug("archive reader opened",
		zap.Bool("header", header),
		zap.Int("items", cur.Remaining()))
	return rd, nil
}

// parseDocument reads one YAML document and returns its item sequence and,
// when the document has a header, the format version.
func parseDocument(r io.Reader) (items *yaml.Node, version uint32, header bool, err error) {
	src := &errReader{r: r}
	var doc yaml.Node
	err = yaml.NewDecoder(src).Decode(&doc)
	if src.err != nil {
		return nil, 0, false, src.err
	}
	if err == io.EOF {
		return nil, 0, false, errors.Parsing(nil, 0, "archive document", "empty input")
	}
	if err != nil {
		return nil, 0, false, errors.New(errors.PhaseLoad, errors.KindParsing).
			Expected("archive document").
			Detail("malformed YAML").
			Cause(err).
			Build()
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, 0, false, errors.Parsing(nil, doc.Line, "archive document", describe(&doc))
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		return root, 0, false, nil
	case yaml.MappingNode:
		items, version, err = parseHeader(root)
		return items, version, true, err
	}
	return nil, 0, false, errors.Parsing(nil, root.Line, "archive header or item sequence", describe(root))
}

func parseHeader(root *yaml.Node) (*yaml.Node, uint32, error) {
	c, err := cursor.New(root)
	if err != nil {
		return nil, 0, err
	}

	entry := func(name string) (*yaml.Node, error) {
		key, val, ok := c.Next()
		if !ok {
			return nil, errors.Parsing([]string{name}, root.Line, "header key "+name, "end of header")
		}
		if key.Value != name {
			return nil, errors.Parsing([]string{key.Value}, key.Line, "header key "+name, "key "+key.Value)
		}
		return val, nil
	}

	sig, err := entry("archive")
	if err != nil {
		return nil, 0, err
	}
	if sig.Kind != yaml.ScalarNode || sig.Value != signature {
		return nil, 0, errors.Parsing([]string{"archive"}, sig.Line, signature, describe(sig))
	}

	ver, err := entry("version")
	if err != nil {
		return nil, 0, err
	}
	v, perr := literal.ParseUint(ver.Value, 32)
	if perr != nil || ver.Kind != yaml.ScalarNode {
		return nil, 0, errors.Parsing([]string{"version"}, ver.Line, "format version", describe(ver))
	}
	if v > formatVersion {
		return nil, 0, errors.New(errors.PhaseLoad, errors.KindParsing).
			Path("version").
			Line(ver.Line).
			Expected(fmt.Sprintf("format version <= %d", formatVersion)).
			Found(ver.Value).
			Detail("archive written by a newer library").
			Build()
	}

	items, err := entry("items")
	if err != nil {
		return nil, 0, err
	}
	if items.Kind != yaml.SequenceNode {
		return nil, 0, errors.Parsing([]string{"items"}, items.Line, "sequence", describe(items))
	}
	if key, _, ok := c.Next(); ok {
		return nil, 0, errors.Parsing([]string{key.Value}, key.Line, "end of header", "key "+key.Value)
	}
	return items, uint32(v), nil
}

// Field names the next value loaded inside a custom record. The archived key
// must match. Outside of a record the name is ignored.
func (r *Reader) Field(name string) *Reader {
	if r.err != nil {
		return r
	}
	r.field = name
	r.hasField = true
	return r
}

// LoadBool reads a true or false scalar.
func (r *Reader) LoadBool() (bool, error) {
	n, err := r.next("bool")
	if err != nil {
		return false, err
	}
	v, err := r.parseBool(n)
	return v, r.fail(err)
}

// LoadInt reads a signed integer. Values that do not fit in the result type
// are a parsing error, never truncated. The same holds for LoadInt8 through
// LoadInt64.
func (r *Reader) LoadInt() (int, error) {
	v, err := r.loadInt(strconv.IntSize)
	return int(v), err
}

func (r *Reader) LoadInt8() (int8, error) {
	v, err := r.loadInt(8)
	return int8(v), err
}

func (r *Reader) LoadInt16() (int16, error) {
	v, err := r.loadInt(16)
	return int16(v), err
}

func (r *Reader) LoadInt32() (int32, error) {
	v, err := r.loadInt(32)
	return int32(v), err
}

// LoadInt64 reads a signed 64-bit integer.
func (r *Reader) LoadInt64() (int64, error) {
	return r.loadInt(64)
}

// LoadUint reads an unsigned integer. Negative values and values that do not
// fit in the result type are a parsing error, never truncated. The same holds
// for LoadUint8 through LoadUint64.
func (r *Reader) LoadUint() (uint, error) {
	v, err := r.loadUint(strconv.IntSize)
	return uint(v), err
}

func (r *Reader) LoadUint8() (uint8, error) {
	v, err := r.loadUint(8)
	return uint8(v), err
}

func (r *Reader) LoadUint16() (uint16, error) {
	v, err := r.loadUint(16)
	return uint16(v), err
}

func (r *Reader) LoadUint32() (uint32, error) {
	v, err := r.loadUint(32)
	return uint32(v), err
}

func (r *Reader) LoadUint64() (uint64, error) {
	return r.loadUint(64)
}

// LoadFloat32 reads a float. Finite values outside the float32 range are a
// parsing error.
func (r *Reader) LoadFloat32() (float32, error) {
	v, err := r.loadFloat(32)
	return float32(v), err
}

// LoadFloat64 reads a float, accepting .inf, -.inf and .nan.
func (r *Reader) LoadFloat64() (float64, error) {
	return r.loadFloat(64)
}

// LoadString reads a double-quoted string.
func (r *Reader) LoadString() (string, error) {
	n, err := r.next("string")
	if err != nil {
		return "", err
	}
	s, err := r.parseString(n)
	return s, r.fail(err)
}

// LoadWString reads a string saved with SaveWString.
func (r *Reader) LoadWString() ([]rune, error) {
	s, err := r.LoadString()
	if err != nil {
		return nil, err
	}
	return []rune(s), nil
}

// LoadBinary fills buf from the next binary token. The token must hold
// exactly len(buf) bytes.
func (r *Reader) LoadBinary(buf []byte) error {
	n, err := r.next("binary")
	if err != nil {
		return err
	}
	b, err := r.parseBinary(n)
	if err != nil {
		return r.fail(err)
	}
	if len(b) != len(buf) {
		return r.fail(r.parseError(n, fmt.Sprintf("%d bytes", len(buf)), fmt.Sprintf("%d bytes", len(b)), ""))
	}
	copy(buf, b)
	return nil
}

// LoadBytes returns the next binary token whatever its length.
func (r *Reader) LoadBytes() ([]byte, error) {
	n, err := r.next("binary")
	if err != nil {
		return nil, err
	}
	b, err := r.parseBinary(n)
	return b, r.fail(err)
}

// LoadVersion reads a version number saved with SaveVersion.
func (r *Reader) LoadVersion() (uint32, error) {
	v, err := r.loadUint(32)
	return uint32(v), err
}

// Load reads the next value into the value ptr points to.
func (r *Reader) Load(ptr any) error {
	if err := r.check(); err != nil {
		return err
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return r.fail(errors.InvalidInput(errors.PhaseLoad, "Load target must be a non-nil pointer"))
	}

	p, err := r.comp.compile(rv.Type().Elem(), r.where())
	if err != nil {
		return r.fail(err)
	}
	n, err := r.next(p.kind.String())
	if err != nil {
		return err
	}
	return r.fail(r.load(p, rv.Elem(), n))
}

// BeginSequence enters the next value, which must be a sequence, and
// returns its length.
func (r *Reader) BeginSequence() (int, error) {
	n, err := r.next("sequence")
	if err != nil {
		return 0, err
	}
	n = cursor.Deref(n)
	if n.Kind != yaml.SequenceNode {
		return 0, r.fail(r.parseError(n, "sequence", describe(n), ""))
	}
	if err := r.checkTag(n, nil, "!!seq"); err != nil {
		return 0, r.fail(err)
	}
	if err := r.cur.Push(n); err != nil {
		return 0, r.fail(err)
	}
	r.frames = append(r.frames, frame{depth: r.cur.Depth(), user: true})
	return len(n.Content), nil
}

// More reports whether the current sequence or record has unread values.
func (r *Reader) More() bool {
	return r.err == nil && r.cur.Remaining() > 0
}

// Remaining returns the number of unread values at the current level.
func (r *Reader) Remaining() int {
	return r.cur.Remaining()
}

// EndSequence leaves the sequence entered by BeginSequence. Every element
// must have been read.
func (r *Reader) EndSequence() error {
	if err := r.check(); err != nil {
		return err
	}
	top := r.frames[len(r.frames)-1]
	if !top.user || top.depth != r.cur.Depth() {
		return r.fail(errors.InvalidInput(errors.PhaseLoad, "EndSequence without matching BeginSequence"))
	}
	if left := r.cur.Remaining(); left > 0 {
		return r.fail(errors.New(errors.PhaseLoad, errors.KindParsing).
			Path(r.where()...).
			Line(r.cur.Line()).
			Expected("end of sequence").
			Found(fmt.Sprintf("%d more elements", left)).
			Build())
	}
	if _, err := r.cur.Pop(); err != nil {
		return r.fail(err)
	}
	r.frames = r.frames[:len(r.frames)-1]
	return nil
}

// VersionMismatches returns every record read so far whose archived version
// differs from the registered one.
func (r *Reader) VersionMismatches() []VersionMismatch {
	return append([]VersionMismatch(nil), r.mismatches...)
}

// ObjectCount returns the number of anchored objects loaded so far.
func (r *Reader) ObjectCount() uint64 {
	return uint64(r.anchors.Len())
}

// Close ends the session. Unread items are not an error.
func (r *Reader) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	if r.err != nil {
		return r.err
	}
	if len(r.frames) != 1 {
		return r.fail(errors.InvalidInput(errors.PhaseLoad, "archive closed inside an open sequence"))
	}
	r.log.Debug("archive reader closed",
		zap.Int("objects", r.anchors.Len()),
		zap.Int("version_mismatches", len(r.mismatches)))
	return nil
}

func (r *Reader) check() error {
	if r.err != nil {
		return r.err
	}
	if r.closed {
		return errors.InvalidInput(errors.PhaseLoad, "reader is closed")
	}
	return nil
}

func (r *Reader) fail(err error) error {
	if err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

func (r *Reader) where() []string {
	path := append([]string(nil), r.prefix...)
	return append(path, r.cur.Path()...)
}

func (r *Reader) parseError(n *yaml.Node, expected, found, detail string) error {
	b := errors.New(errors.PhaseLoad, errors.KindParsing).
		Path(r.where()...).
		Expected(expected).
		Found(found)
	if n != nil {
		b.Line(n.Line)
	}
	if detail != "" {
		b.Detail("%s", detail)
	}
	return b.Build()
}

// next consumes the node of the next API-level value, checking the field
// name inside custom records.
func (r *Reader) next(expected string) (*yaml.Node, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	f := &r.frames[len(r.frames)-1]
	name, named := r.field, r.hasField
	r.field, r.hasField = "", false

	if f.mapping && named {
		expected = "field " + name
	}
	key, n, ok := r.cur.Next()
	if !ok {
		end := "end of sequence"
		if f.mapping {
			end = "end of record"
		}
		return nil, r.fail(errors.New(errors.PhaseLoad, errors.KindParsing).
			Path(r.where()...).
			Line(r.cur.Line()).
			Expected(expected).
			Found(end).
			Build())
	}
	if f.mapping && named && key.Value != name {
		return nil, r.fail(errors.Parsing(r.where(), key.Line, expected, "field "+key.Value))
	}
	f.index++
	return n, nil
}

func (r *Reader) loadInt(bits int) (int64, error) {
	n, err := r.next(fmt.Sprintf("int%d", bits))
	if err != nil {
		return 0, err
	}
	v, err := r.parseInt(n, bits)
	return v, r.fail(err)
}

func (r *Reader) loadUint(bits int) (uint64, error) {
	n, err := r.next(fmt.Sprintf("uint%d", bits))
	if err != nil {
		return 0, err
	}
	v, err := r.parseUint(n, bits)
	return v, r.fail(err)
}

func (r *Reader) loadFloat(bits int) (float64, error) {
	n, err := r.next(fmt.Sprintf("float%d", bits))
	if err != nil {
		return 0, err
	}
	v, err := r.parseFloat(n, bits)
	return v, r.fail(err)
}

const quotedStyles = yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle | yaml.LiteralStyle | yaml.FoldedStyle

// plainScalar returns n when it is an unquoted scalar with an acceptable tag.
func (r *Reader) plainScalar(n *yaml.Node, expected, core string) (*yaml.Node, error) {
	n = cursor.Deref(n)
	if n.Kind != yaml.ScalarNode || n.Style&quotedStyles != 0 {
		return nil, r.parseError(n, expected, describe(n), "")
	}
	if err := r.checkTag(n, nil, core); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *Reader) parseBool(n *yaml.Node) (bool, error) {
	n, err := r.plainScalar(n, "bool", "!!bool")
	if err != nil {
		return false, err
	}
	v, perr := literal.ParseBool(n.Value)
	if perr != nil {
		return false, r.parseError(n, "bool", describe(n), perr.Error())
	}
	return v, nil
}

func (r *Reader) parseInt(n *yaml.Node, bits int) (int64, error) {
	expected := fmt.Sprintf("int%d", bits)
	n, err := r.plainScalar(n, expected, "!!int")
	if err != nil {
		return 0, err
	}
	v, perr := literal.ParseInt(n.Value, bits)
	if perr != nil {
		return 0, r.parseError(n, expected, describe(n), perr.Error())
	}
	return v, nil
}

func (r *Reader) parseUint(n *yaml.Node, bits int) (uint64, error) {
	expected := fmt.Sprintf("uint%d", bits)
	n, err := r.plainScalar(n, expected, "!!int")
	if err != nil {
		return 0, err
	}
	v, perr := literal.ParseUint(n.Value, bits)
	if perr != nil {
		return 0, r.parseError(n, expected, describe(n), perr.Error())
	}
	return v, nil
}

func (r *Reader) parseFloat(n *yaml.Node, bits int) (float64, error) {
	expected := fmt.Sprintf("float%d", bits)
	n, err := r.plainScalar(n, expected, "!!float")
	if err != nil {
		return 0, err
	}
	v, perr := literal.ParseFloat(n.Value, bits)
	if perr != nil {
		return 0, r.parseError(n, expected, describe(n), perr.Error())
	}
	return v, nil
}

// parseString accepts quoted and block scalars, and plain scalars tagged !!str.
func (r *Reader) parseString(n *yaml.Node) (string, error) {
	n = cursor.Deref(n)
	if n.Kind != yaml.ScalarNode {
		return "", r.parseError(n, "string", describe(n), "")
	}
	explicit := n.Style&yaml.TaggedStyle != 0 && n.Tag == "!!str"
	if n.Style&quotedStyles == 0 && !explicit {
		return "", r.parseError(n, "quoted string", describe(n), "")
	}
	if err := r.checkTag(n, nil, "!!str"); err != nil {
		return "", err
	}
	return n.Value, nil
}

func (r *Reader) parseBinary(n *yaml.Node) ([]byte, error) {
	n = cursor.Deref(n)
	if n.Kind != yaml.ScalarNode {
		return nil, r.parseError(n, "binary", describe(n), "")
	}

	tag := n.Tag
	if !literal.IsBinaryTag(tag) {
		if n.Style&yaml.TaggedStyle != 0 {
			if err := r.checkTag(n, nil, literal.TagBase64); err != nil {
				return nil, err
			}
		}
		// Untagged, or tag checking is off: use the session's transform.
		tag = literal.TagBase64
		if r.cfg.Binary == BinaryHex {
			tag = literal.TagHex
		}
	}

	b, err := literal.DecodeBinary(tag, n.Value)
	if err != nil {
		return nil, r.parseError(n, "binary", describe(n), err.Error())
	}
	return b, nil
}

// checkTag validates an explicit tag against the expected descriptor, or
// against the core tag when the value has no descriptor.
func (r *Reader) checkTag(n *yaml.Node, desc *Descriptor, core string) error {
	if r.cfg.NoTagChecking || n.Style&yaml.TaggedStyle == 0 {
		return nil
	}

	expected := core
	if desc != nil {
		expected = desc.Tag()
	}
	tag := n.Tag
	if desc != nil && tag == desc.Tag() {
		return nil
	}
	if strings.HasPrefix(tag, "!!") {
		if tag == core {
			return nil
		}
		return errors.Parsing(r.where(), n.Line, expected, "tag "+tag)
	}

	name := strings.TrimPrefix(tag, "!")
	if _, ok := r.cfg.Registry.Lookup(name); ok {
		return errors.TagMismatch(r.where(), n.Line, expected, tag)
	}
	return errors.TagName(r.where(), n.Line, name)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null" && n.Style&quotedStyles == 0
}

// describe names a node for error messages.
func describe(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return "null"
		}
		v := n.Value
		if len(v) > 40 {
			v = v[:40] + "..."
		}
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			return "string " + strconv.Quote(v)
		}
		return "scalar " + v
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		if n.Style&yaml.TaggedStyle != 0 {
			return "record " + n.Tag
		}
		return "mapping"
	case yaml.AliasNode:
		return "alias *" + n.Value
	case yaml.DocumentNode:
		return "document"
	}
	return "unknown node"
}
