package archive

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/yaml-archive/archive/internal/cursor"
	"github.com/wippyai/yaml-archive/errors"
)

// load decodes n into v according to p. v must be settable.
func (r *Reader) load(p *plan, v reflect.Value, n *yaml.Node) error {
	switch p.kind {
	case KindPointer:
		return r.loadPointer(p, v, n)
	case KindInterface:
		return r.loadInterface(v, n)
	}

	n = cursor.Deref(n)
	switch p.kind {
	case KindSequence:
		return r.loadSequence(p, v, n)
	case KindRecord, KindCustom:
		return r.loadRecord(p, v, n)
	}

	if p.desc != nil && p.kind.IsScalar() && n.Kind == yaml.MappingNode {
		return r.loadTaggedScalar(p, v, n)
	}
	return r.loadScalar(p, v, n)
}

func (r *Reader) loadScalar(p *plan, v reflect.Value, n *yaml.Node) error {
	switch p.kind {
	case KindBool:
		b, err := r.parseBool(n)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case KindInt:
		i, err := r.parseInt(n, p.bits)
		if err != nil {
			return err
		}
		v.SetInt(i)
	case KindUint, KindVersion:
		u, err := r.parseUint(n, p.bits)
		if err != nil {
			return err
		}
		v.SetUint(u)
	case KindFloat:
		f, err := r.parseFloat(n, p.bits)
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case KindString:
		s, err := r.parseString(n)
		if err != nil {
			return err
		}
		v.SetString(s)
	case KindWString:
		s, err := r.parseString(n)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(WideString(s)))
	case KindBinary:
		b, err := r.parseBinary(n)
		if err != nil {
			return err
		}
		dst := reflect.MakeSlice(v.Type(), len(b), len(b))
		reflect.Copy(dst, reflect.ValueOf(b))
		v.Set(dst)
	case KindFixedBinary:
		b, err := r.parseBinary(n)
		if err != nil {
			return err
		}
		if len(b) != p.size {
			return r.parseError(n, fmt.Sprintf("%d bytes", p.size), fmt.Sprintf("%d bytes", len(b)), "")
		}
		reflect.Copy(v, reflect.ValueOf(b))
	default:
		return errors.Unsupported(errors.PhaseLoad, r.where(), p.typ.String(), "not a scalar")
	}
	return nil
}

// loadTaggedScalar reads the block a registered scalar type is written as.
func (r *Reader) loadTaggedScalar(p *plan, v reflect.Value, n *yaml.Node) error {
	archived, err := r.openRecord(p, n)
	if err != nil {
		return err
	}
	key, val, ok := r.cur.Next()
	if !ok {
		return r.parseError(n, "field "+valueKey, "end of record", "")
	}
	if key.Value != valueKey {
		return r.parseError(key, "field "+valueKey, "field "+key.Value, "")
	}
	if err := r.loadScalar(p, v, val); err != nil {
		return err
	}
	return r.closeRecord(p, archived)
}

func (r *Reader) loadSequence(p *plan, v reflect.Value, n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return r.parseError(n, "sequence", describe(n), "")
	}
	if err := r.checkTag(n, p.desc, "!!seq"); err != nil {
		return err
	}

	p.seq.Reset(v)
	if err := r.cur.Push(n); err != nil {
		return err
	}
	for {
		_, en, ok := r.cur.Next()
		if !ok {
			break
		}
		ev := reflect.New(p.seq.Elem).Elem()
		if err := r.load(p.elem, ev, en); err != nil {
			return err
		}
		p.seq.Append(v, ev)
	}
	_, err := r.cur.Pop()
	return err
}

func (r *Reader) loadRecord(p *plan, v reflect.Value, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return r.parseError(n, "record "+typeName(p), describe(n), "")
	}
	archived, err := r.openRecord(p, n)
	if err != nil {
		return err
	}

	if p.kind == KindCustom {
		err = r.loadCustom(p, v, archived)
	} else {
		err = r.loadFields(p, v, n, archived)
	}
	if err != nil {
		return err
	}
	return r.closeRecord(p, archived)
}

// openRecord checks the tag of a record mapping, enters it and consumes the
// version entry. It returns the archived version, which is the registered
// version when the record carries none.
func (r *Reader) openRecord(p *plan, n *yaml.Node) (uint32, error) {
	if err := r.checkTag(n, p.desc, "!!map"); err != nil {
		return 0, err
	}
	if err := r.cur.Push(n); err != nil {
		return 0, err
	}

	path := r.where()
	current := p.version()
	archived := current
	if key, val, ok := r.cur.Peek(); ok && key.Value == versionKey {
		r.cur.Next()
		v, err := r.parseUint(val, 32)
		if err != nil {
			return 0, err
		}
		archived = uint32(v)
	}

	if archived != current {
		if err := r.versionMismatch(p, path, n, archived, current); err != nil {
			return 0, err
		}
	}
	return archived, nil
}

// closeRecord leaves a record. Unread entries are an error unless the record
// was written by a newer version of its type.
func (r *Reader) closeRecord(p *plan, archived uint32) error {
	if key, _, ok := r.cur.Peek(); ok {
		if archived <= p.version() {
			return r.parseError(key, "end of record", "field "+key.Value, "")
		}
		r.log.Debug("skipping fields of newer record",
			zap.String("type", typeName(p)),
			zap.Int("fields", r.cur.Remaining()))
	}
	_, err := r.cur.Pop()
	return err
}

// versionMismatch records a version difference of the record at path.
func (r *Reader) versionMismatch(p *plan, path []string, n *yaml.Node, archived, current uint32) error {
	m := VersionMismatch{
		Type:     typeName(p),
		Path:     errors.FormatPath(path),
		Archived: archived,
		Current:  current,
	}
	r.mismatches = append(r.mismatches, m)

	fields := []zap.Field{
		zap.String("type", m.Type),
		zap.String("path", m.Path),
		zap.Uint32("archived", archived),
		zap.Uint32("current", current),
	}
	if archived > current {
		r.log.Warn("archived version is newer than registered", fields...)
	} else {
		r.log.Debug("archived version is older than registered", fields...)
	}

	if r.cfg.StrictVersion {
		return errors.TagMismatch(path, n.Line,
			fmt.Sprintf("%s version %d", m.Type, current),
			fmt.Sprintf("version %d", archived))
	}
	return nil
}

func (r *Reader) loadFields(p *plan, v reflect.Value, n *yaml.Node, archived uint32) error {
	for _, f := range p.fields {
		if f.since > archived {
			continue
		}
		key, val, ok := r.cur.Next()
		if !ok {
			return r.parseError(n, "field "+f.name, "end of record", "")
		}
		if key.Value != f.name {
			return r.parseError(key, "field "+f.name, "field "+key.Value, "")
		}
		if err := r.load(f.plan, v.Field(f.index), val); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) loadCustom(p *plan, v reflect.Value, archived uint32) error {
	if !v.CanAddr() {
		return errors.Unsupported(errors.PhaseLoad, r.where(), p.typ.String(), "value is not addressable")
	}
	loader, ok := v.Addr().Interface().(Loader)
	if !ok {
		return errors.Unsupported(errors.PhaseLoad, r.where(), p.typ.String(), "type does not implement Loader")
	}

	r.frames = append(r.frames, frame{depth: r.cur.Depth(), mapping: true})
	err := loader.LoadArchive(r, archived)
	if r.err != nil {
		return r.err
	}
	if err != nil {
		return err
	}

	top := r.frames[len(r.frames)-1]
	if !top.mapping || top.depth != r.cur.Depth() {
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(r.where()...).
			Found(p.typ.String()).
			Detail("LoadArchive left a sequence open").
			Build()
	}
	r.frames = r.frames[:len(r.frames)-1]
	return nil
}

func (r *Reader) loadPointer(p *plan, v reflect.Value, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		target := n.Alias
		pv, ok := r.anchors.Value(target)
		if !ok {
			// The anchored node was read as a plain value; load it once
			// more as the shared object.
			pv = reflect.New(p.elem.typ)
			r.anchors.Insert(target, pv)
			if err := r.load(p.elem, pv.Elem(), target); err != nil {
				return err
			}
		}
		if !pv.Type().AssignableTo(v.Type()) {
			return errors.TagMismatch(r.where(), n.Line, v.Type().String(), pv.Type().String())
		}
		v.Set(pv)
		return nil
	}

	if isNull(n) {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}

	pv := reflect.New(p.elem.typ)
	v.Set(pv)
	if n.Anchor != "" {
		r.anchors.Insert(n, pv)
	}
	return r.load(p.elem, pv.Elem(), n)
}

// loadInterface picks the concrete type from the node tag. The value is
// stored as T when T implements the interface and the node is not shared,
// otherwise as *T. An alias of an object already loaded through a pointer
// reuses that object and needs no tag.
func (r *Reader) loadInterface(v reflect.Value, n *yaml.Node) error {
	if isNull(n) {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}

	it := v.Type()
	if n.Kind == yaml.AliasNode {
		if pv, ok := r.anchors.Value(n.Alias); ok && pv.Type().Implements(it) {
			v.Set(pv)
			return nil
		}
	}

	target := cursor.Deref(n)
	if target.Style&yaml.TaggedStyle == 0 || strings.HasPrefix(target.Tag, "!!") {
		return r.parseError(target, "tagged value", describe(target), "interface values need a type tag")
	}
	name := strings.TrimPrefix(target.Tag, "!")
	desc, ok := r.cfg.Registry.Lookup(name)
	if !ok {
		return errors.TagName(r.where(), target.Line, name)
	}

	shared := n.Kind == yaml.AliasNode || target.Anchor != ""
	if !shared && desc.Type.Implements(it) {
		p, err := r.comp.compile(desc.Type, r.where())
		if err != nil {
			return err
		}
		tv := reflect.New(desc.Type).Elem()
		if err := r.load(p, tv, target); err != nil {
			return err
		}
		v.Set(tv)
		return nil
	}

	pt := reflect.PointerTo(desc.Type)
	if !pt.Implements(it) {
		return errors.New(errors.PhaseLoad, errors.KindTagMismatch).
			Path(r.where()...).
			Line(target.Line).
			Expected(it.String()).
			Found(target.Tag).
			Detail("%s does not implement %s", pt, it).
			Build()
	}
	p, err := r.comp.compile(pt, r.where())
	if err != nil {
		return err
	}
	pv := reflect.New(pt).Elem()
	if err := r.loadPointer(p, pv, n); err != nil {
		return err
	}
	v.Set(pv)
	return nil
}

func typeName(p *plan) string {
	if p.desc != nil {
		return p.desc.Name
	}
	return p.typ.String()
}
