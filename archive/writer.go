package archive

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/yaml-archive/archive/internal/emitter"
	"github.com/wippyai/yaml-archive/archive/internal/literal"
	"github.com/wippyai/yaml-archive/archive/internal/objects"
	"github.com/wippyai/yaml-archive/errors"
)

const (
	signature     = "yaml-archive"
	formatVersion = 1

	versionKey = "_version"
	valueKey   = "_value"
)

// frame is a container opened through the session API: the root item
// sequence, a sequence from BeginSequence, or the mapping of a custom record.
type frame struct {
	depth   int
	index   int
	mapping bool
	user    bool
}

type ptrKey struct {
	typ reflect.Type
	ptr uintptr
}

// Writer is an output archive session. It borrows the stream and writes every
// value as soon as it is saved. A Writer is not safe for concurrent use.
type Writer struct {
	em       *emitter.Emitter
	comp     *compiler
	log      *zap.Logger
	err      error
	anchors  *objects.Table[ptrKey, struct{}]
	active   map[ptrKey]bool
	frames   []frame
	path     []string
	field    string
	cfg      Config
	hasField bool
	closed   bool
}

// NewWriter starts an archive on w. The header is written immediately unless
// cfg.NoHeader is set.
func NewWriter(w io.Writer, cfg Config) (*Writer, error) {
	if w == nil {
		return nil, errors.InvalidInput(errors.PhaseSave, "writer cannot be nil")
	}
	cfg = cfg.withDefaults()

	aw := &Writer{
		em:      emitter.New(w, cfg.Indent),
		comp:    newCompiler(cfg, errors.PhaseSave),
		log:     cfg.Logger,
		cfg:     cfg,
		anchors: objects.New[ptrKey, struct{}](),
		active:  make(map[ptrKey]bool),
	}
	if err := aw.writeHeader(); err != nil {
		return nil, err
	}

	aw.log.Debug("archive writer opened",
		zap.Bool("header", !cfg.NoHeader),
		zap.Bool("tracking", !cfg.NoTracking),
		zap.Stringer("binary", cfg.Binary))
	return aw, nil
}

func (w *Writer) writeHeader() error {
	em := w.em
	if !w.cfg.NoHeader {
		_ = em.BeginMapping(emitter.Props{})
		_ = em.Key("archive")
		_ = em.Scalar(signature, emitter.Props{})
		_ = em.Key("version")
		_ = em.Scalar(literal.FormatUint(formatVersion), emitter.Props{})
		_ = em.Key("items")
	}
	_ = em.BeginSequence(emitter.Props{})
	w.frames = append(w.frames, frame{depth: em.Depth()})
	return em.Err()
}

// Field names the next value saved inside a custom record. Outside of a
// record the name is ignored. Unnamed record values get positional keys.
func (w *Writer) Field(name string) *Writer {
	if w.err != nil {
		return w
	}
	if !literal.ValidName(name, false) || strings.HasPrefix(name, "_") {
		w.fail(errors.New(errors.PhaseSave, errors.KindInvalidInput).
			Found(strconv.Quote(name)).
			Detail("invalid field name").
			Build())
		return w
	}
	w.field = name
	w.hasField = true
	return w
}

// SaveBool writes v as true or false.
func (w *Writer) SaveBool(v bool) error { return w.saveToken(literal.FormatBool(v), emitter.Props{}) }

// SaveInt, SaveInt8, SaveInt16 and SaveInt32 widen v and write it like SaveInt64.
func (w *Writer) SaveInt(v int) error     { return w.SaveInt64(int64(v)) }
func (w *Writer) SaveInt8(v int8) error   { return w.SaveInt64(int64(v)) }
func (w *Writer) SaveInt16(v int16) error { return w.SaveInt64(int64(v)) }
func (w *Writer) SaveInt32(v int32) error { return w.SaveInt64(int64(v)) }

// SaveInt64 writes v as a plain decimal scalar.
func (w *Writer) SaveInt64(v int64) error {
	return w.saveToken(literal.FormatInt(v), emitter.Props{})
}

// SaveUint, SaveUint8, SaveUint16 and SaveUint32 widen v and write it like SaveUint64.
func (w *Writer) SaveUint(v uint) error     { return w.SaveUint64(uint64(v)) }
func (w *Writer) SaveUint8(v uint8) error   { return w.SaveUint64(uint64(v)) }
func (w *Writer) SaveUint16(v uint16) error { return w.SaveUint64(uint64(v)) }
func (w *Writer) SaveUint32(v uint32) error { return w.SaveUint64(uint64(v)) }

// SaveUint64 writes v as a plain decimal scalar.
func (w *Writer) SaveUint64(v uint64) error {
	return w.saveToken(literal.FormatUint(v), emitter.Props{})
}

// SaveFloat32 writes the shortest text that reads back as the same float32.
func (w *Writer) SaveFloat32(v float32) error {
	return w.saveToken(literal.FormatFloat(float64(v), 32), emitter.Props{})
}

// SaveFloat64 writes the shortest text that reads back as v. Infinities and
// NaN are written as .inf, -.inf and .nan.
func (w *Writer) SaveFloat64(v float64) error {
	return w.saveToken(literal.FormatFloat(v, 64), emitter.Props{})
}

// SaveString writes s as a quoted literal. Strings that are not valid UTF-8
// fail with an encoding error.
func (w *Writer) SaveString(s string) error {
	text, err := literal.Quote(s)
	if err != nil {
		return w.encodingError(err)
	}
	return w.saveToken(text, emitter.Props{})
}

// SaveWString writes a string of code points.
func (w *Writer) SaveWString(rs []rune) error {
	text, err := literal.QuoteRunes(rs)
	if err != nil {
		return w.encodingError(err)
	}
	return w.saveToken(text, emitter.Props{})
}

// SaveBinary writes b through the session's binary transform. The length is
// not recorded; the reader must ask for the same count or use LoadBytes.
func (w *Writer) SaveBinary(b []byte) error {
	tag, text := w.binaryToken(b)
	return w.saveToken(text, emitter.Props{Tag: tag})
}

// SaveVersion writes a version counter.
func (w *Writer) SaveVersion(v uint32) error {
	return w.saveToken(literal.FormatUint(uint64(v)), emitter.Props{})
}

// Save writes any supported value: scalars, registered sequences, records,
// custom records, pointers and interfaces holding registered types.
func (w *Writer) Save(v any) error {
	if err := w.check(); err != nil {
		return err
	}
	label, err := w.slot()
	if err != nil {
		return w.fail(err)
	}
	if v == nil {
		return w.fail(w.em.Scalar(literal.Null, emitter.Props{}))
	}

	base := len(w.path)
	w.path = append(w.path, label)
	defer func() { w.path = w.path[:base] }()

	rv := reflect.ValueOf(v)
	p, err := w.comp.compile(rv.Type(), w.where())
	if err != nil {
		return w.fail(err)
	}
	return w.fail(w.write(p, rv, emitter.Props{}, false))
}

// BeginSequence opens a sequence; elements are saved with the usual calls
// and the sequence is closed with EndSequence.
func (w *Writer) BeginSequence() error {
	if err := w.check(); err != nil {
		return err
	}
	if _, err := w.slot(); err != nil {
		return w.fail(err)
	}
	if err := w.em.BeginSequence(emitter.Props{}); err != nil {
		return w.fail(err)
	}
	w.frames = append(w.frames, frame{depth: w.em.Depth(), user: true})
	return nil
}

// EndSequence closes the sequence opened by the matching BeginSequence.
func (w *Writer) EndSequence() error {
	if err := w.check(); err != nil {
		return err
	}
	top := w.frames[len(w.frames)-1]
	if !top.user || top.depth != w.em.Depth() {
		return w.fail(errors.InvalidInput(errors.PhaseSave, "EndSequence without matching BeginSequence"))
	}
	w.frames = w.frames[:len(w.frames)-1]
	return w.fail(w.em.EndSequence())
}

// ObjectCount returns the number of distinct objects anchored so far.
func (w *Writer) ObjectCount() uint64 {
	return uint64(w.anchors.Len())
}

// Close finishes the document. It does not close the underlying stream.
// Closing twice returns the result of the first close.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if len(w.frames) != 1 {
		return w.fail(errors.InvalidInput(errors.PhaseSave, "archive closed inside an open sequence"))
	}

	_ = w.em.EndSequence()
	if !w.cfg.NoHeader {
		_ = w.em.EndMapping()
	}
	w.log.Debug("archive writer closed", zap.Int("objects", w.anchors.Len()))
	return w.fail(w.em.Err())
}

func (w *Writer) check() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.InvalidInput(errors.PhaseSave, "writer is closed")
	}
	return nil
}

func (w *Writer) fail(err error) error {
	if err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// slot prepares the position of the next API-level value and returns its
// label for error paths.
func (w *Writer) slot() (string, error) {
	f := &w.frames[len(w.frames)-1]
	label := "[" + strconv.Itoa(f.index) + "]"
	if f.mapping {
		label = "_" + strconv.Itoa(f.index)
		if w.hasField {
			label = w.field
		}
		if err := w.em.Key(label); err != nil {
			return "", err
		}
	}
	f.index++
	w.field, w.hasField = "", false
	return label, nil
}

func (w *Writer) saveToken(text string, props emitter.Props) error {
	if err := w.check(); err != nil {
		return err
	}
	if _, err := w.slot(); err != nil {
		return w.fail(err)
	}
	return w.fail(w.em.Scalar(text, props))
}

func (w *Writer) encodingError(cause error) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.fail(errors.Encoding(w.where(), "string cannot be represented", cause))
}

// where returns a copy of the current value path.
func (w *Writer) where() []string {
	return append([]string(nil), w.path...)
}

func (w *Writer) binaryToken(b []byte) (tag, text string) {
	format := literal.Base64
	if w.cfg.Binary == BinaryHex {
		format = literal.Hex
	}
	tag, text = literal.EncodeBinary(format, b)
	if text == "" {
		text = `""`
	}
	return tag, text
}

// write emits v according to p. The key, if any, is already written.
// force puts the type tag on even when tags are disabled.
func (w *Writer) write(p *plan, v reflect.Value, props emitter.Props, force bool) error {
	switch p.kind {
	case KindPointer:
		return w.writePointer(p, v, props, force)
	case KindInterface:
		return w.writeInterface(v, props)
	case KindSequence:
		if p.tagged(&w.cfg, force) {
			props.Tag = p.desc.Tag()
		}
		return w.writeSequence(p, v, props)
	case KindRecord, KindCustom:
		tagged := p.tagged(&w.cfg, force)
		if tagged {
			props.Tag = p.desc.Tag()
		}
		if err := w.em.BeginMapping(props); err != nil {
			return err
		}
		if tagged {
			if err := w.writeVersion(p.desc.Version); err != nil {
				return err
			}
		}
		var err error
		if p.kind == KindRecord {
			err = w.writeFields(p, v)
		} else {
			err = w.writeCustom(p, v)
		}
		if err != nil {
			return err
		}
		return w.em.EndMapping()
	}

	if !p.tagged(&w.cfg, force) {
		return w.writeScalar(p, v, props)
	}

	// Registered scalar types become a tagged block holding the value.
	props.Tag = p.desc.Tag()
	if err := w.em.BeginMapping(props); err != nil {
		return err
	}
	if err := w.writeVersion(p.desc.Version); err != nil {
		return err
	}
	if err := w.em.Key(valueKey); err != nil {
		return err
	}
	if err := w.writeScalar(p, v, emitter.Props{}); err != nil {
		return err
	}
	return w.em.EndMapping()
}

func (w *Writer) writeVersion(version uint32) error {
	if err := w.em.Key(versionKey); err != nil {
		return err
	}
	return w.em.Scalar(literal.FormatUint(uint64(version)), emitter.Props{})
}

func (w *Writer) writeScalar(p *plan, v reflect.Value, props emitter.Props) error {
	var text string
	switch p.kind {
	case KindBool:
		text = literal.FormatBool(v.Bool())
	case KindInt:
		text = literal.FormatInt(v.Int())
	case KindUint, KindVersion:
		text = literal.FormatUint(v.Uint())
	case KindFloat:
		text = literal.FormatFloat(v.Float(), p.bits)
	case KindString:
		quoted, err := literal.Quote(v.String())
		if err != nil {
			return errors.Encoding(w.where(), "string cannot be represented", err)
		}
		text = quoted
	case KindWString:
		rs := make([]rune, v.Len())
		for i := range rs {
			rs[i] = rune(v.Index(i).Int())
		}
		quoted, err := literal.QuoteRunes(rs)
		if err != nil {
			return errors.Encoding(w.where(), "wide string cannot be represented", err)
		}
		text = quoted
	case KindBinary, KindFixedBinary:
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		props.Tag, text = w.binaryToken(b)
	default:
		return errors.Unsupported(errors.PhaseSave, w.where(), p.typ.String(), "not a scalar")
	}
	return w.em.Scalar(text, props)
}

func (w *Writer) writeSequence(p *plan, v reflect.Value, props emitter.Props) error {
	if err := w.em.BeginSequence(props); err != nil {
		return err
	}

	base := len(w.path)
	i := 0
	err := p.seq.Each(v, func(elem reflect.Value) error {
		w.path = append(w.path[:base], "["+strconv.Itoa(i)+"]")
		i++
		return w.write(p.elem, elem, emitter.Props{}, false)
	})
	if err != nil {
		return err
	}
	w.path = w.path[:base]
	if n := p.seq.Len(v); i != n {
		return errors.Unsupported(errors.PhaseSave, w.where(), p.typ.String(),
			fmt.Sprintf("sequence adapter visited %d of %d elements", i, n))
	}
	return w.em.EndSequence()
}

func (w *Writer) writeFields(p *plan, v reflect.Value) error {
	base := len(w.path)
	for _, f := range p.fields {
		w.path = append(w.path[:base], f.name)
		if err := w.em.Key(f.name); err != nil {
			return err
		}
		if err := w.write(f.plan, v.Field(f.index), emitter.Props{}, false); err != nil {
			return err
		}
	}
	w.path = w.path[:base]
	return nil
}

func (w *Writer) writeCustom(p *plan, v reflect.Value) error {
	saver, ok := asSaver(v)
	if !ok {
		return errors.Unsupported(errors.PhaseSave, w.where(), p.typ.String(), "type does not implement Saver")
	}

	w.frames = append(w.frames, frame{depth: w.em.Depth(), mapping: true})
	err := saver.SaveArchive(w, p.version())
	if w.err != nil {
		return w.err
	}
	if err != nil {
		return err
	}

	top := w.frames[len(w.frames)-1]
	if !top.mapping || top.depth != w.em.Depth() {
		return errors.New(errors.PhaseSave, errors.KindInvalidInput).
			Path(w.where()...).
			Found(p.typ.String()).
			Detail("SaveArchive left a sequence open").
			Build()
	}
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

// asSaver finds the Saver of v, preferring the pointer receiver.
func asSaver(v reflect.Value) (Saver, bool) {
	if v.CanAddr() {
		if s, ok := v.Addr().Interface().(Saver); ok {
			return s, true
		}
	}
	if s, ok := v.Interface().(Saver); ok {
		return s, true
	}
	cp := reflect.New(v.Type())
	cp.Elem().Set(v)
	s, ok := cp.Interface().(Saver)
	return s, ok
}

func (w *Writer) writePointer(p *plan, v reflect.Value, props emitter.Props, force bool) error {
	if v.IsNil() {
		return w.em.Scalar(literal.Null, props)
	}

	key := ptrKey{typ: v.Type(), ptr: v.Pointer()}
	if w.cfg.NoTracking {
		if w.active[key] {
			return errors.Unsupported(errors.PhaseSave, w.where(), v.Type().String(),
				"cyclic pointer requires tracking")
		}
		w.active[key] = true
		defer delete(w.active, key)
		return w.write(p.elem, v.Elem(), props, force)
	}

	h, fresh := w.anchors.Insert(key, struct{}{})
	if !fresh {
		return w.em.Alias(literal.Anchor(uint64(h)))
	}
	props.Anchor = literal.Anchor(uint64(h))
	w.log.Debug("object anchored",
		zap.Uint64("id", uint64(h)),
		zap.Stringer("type", v.Type()))
	return w.write(p.elem, v.Elem(), props, force)
}

func (w *Writer) writeInterface(v reflect.Value, props emitter.Props) error {
	if v.IsNil() {
		return w.em.Scalar(literal.Null, props)
	}

	dyn := v.Elem()
	if _, ok := w.comp.reg.LookupType(dyn.Type()); !ok {
		return errors.Unsupported(errors.PhaseSave, w.where(), dyn.Type().String(),
			"interface value of unregistered type")
	}
	p, err := w.comp.compile(dyn.Type(), w.where())
	if err != nil {
		return err
	}
	return w.write(p, dyn, props, true)
}
