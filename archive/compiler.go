package archive

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/yaml-archive/archive/internal/literal"
	"github.com/wippyai/yaml-archive/errors"
	"github.com/wippyai/yaml-archive/shape"
)

// plan is the compiled encoding of one Go type.
type plan struct {
	typ    reflect.Type
	desc   *Descriptor
	elem   *plan
	seq    *shape.Sequence
	fields []field
	bits   int
	size   int
	kind   Kind
}

type field struct {
	plan  *plan
	name  string
	index int
	since uint32
}

// tagged reports whether values carry a tag header. Sequences are only
// tagged when the tag is forced by an interface.
func (p *plan) tagged(cfg *Config, force bool) bool {
	if p.desc == nil {
		return false
	}
	if force {
		return true
	}
	return !cfg.NoTags && p.kind != KindSequence
}

func (p *plan) version() uint32 {
	if p.desc == nil {
		return 0
	}
	return p.desc.Version
}

// compiler builds plans for one session. Plans are cached by type; a plan
// enters the cache before its children are compiled so recursive types
// terminate.
type compiler struct {
	reg     *Registry
	shapes  *shape.Classifier
	cache   map[reflect.Type]*plan
	pending []reflect.Type
	phase   errors.Phase
}

func newCompiler(cfg Config, phase errors.Phase) *compiler {
	return &compiler{
		reg:    cfg.Registry,
		shapes: cfg.Shapes,
		cache:  make(map[reflect.Type]*plan),
		phase:  phase,
	}
}

func (c *compiler) compile(t reflect.Type, path []string) (*plan, error) {
	if t == nil {
		return nil, errors.InvalidInput(c.phase, "type cannot be nil")
	}
	if p, ok := c.cache[t]; ok {
		return p, nil
	}

	c.pending = c.pending[:0]
	p, err := c.build(t, path)
	if err != nil {
		// Drop every plan of this pass; some may point at the failed one.
		for _, pt := range c.pending {
			delete(c.cache, pt)
		}
		c.pending = c.pending[:0]
		return nil, err
	}
	c.pending = c.pending[:0]
	return p, nil
}

func (c *compiler) build(t reflect.Type, path []string) (*plan, error) {
	if p, ok := c.cache[t]; ok {
		return p, nil
	}

	p := &plan{typ: t}
	if t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface {
		if d, ok := c.reg.LookupType(t); ok {
			p.desc = d
		}
	}
	c.cache[t] = p
	c.pending = append(c.pending, t)

	if err := c.fill(p, t, path); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *compiler) fill(p *plan, t reflect.Type, path []string) error {
	if isCustom(t) {
		p.kind = KindCustom
		return nil
	}

	switch t {
	case versionType:
		p.kind = KindVersion
		p.bits = 32
		return nil
	case wideStringType:
		p.kind = KindWString
		return nil
	}

	if seq, ok := c.shapes.Classify(t); ok {
		if seq.Elem == nil || seq.Each == nil || seq.Append == nil || seq.Reset == nil {
			return errors.Unsupported(c.phase, path, t.String(), "incomplete sequence adapter")
		}
		p.kind = KindSequence
		p.seq = seq
		elem, err := c.build(seq.Elem, extend(path, "[]"))
		if err != nil {
			return err
		}
		p.elem = elem
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		p.kind = KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		p.kind = KindInt
		p.bits = t.Bits()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		p.kind = KindUint
		p.bits = t.Bits()
	case reflect.Float32, reflect.Float64:
		p.kind = KindFloat
		p.bits = t.Bits()
	case reflect.String:
		p.kind = KindString
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return errors.Unsupported(c.phase, path, t.String(), "slice type is not a registered sequence")
		}
		p.kind = KindBinary
	case reflect.Array:
		if t.Elem().Kind() != reflect.Uint8 {
			return errors.Unsupported(c.phase, path, t.String(), "only byte arrays are supported")
		}
		p.kind = KindFixedBinary
		p.size = t.Len()
	case reflect.Struct:
		p.kind = KindRecord
		return c.fillRecord(p, t, path)
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Ptr {
			return errors.Unsupported(c.phase, path, t.String(), "pointer to pointer")
		}
		p.kind = KindPointer
		elem, err := c.build(t.Elem(), path)
		if err != nil {
			return err
		}
		p.elem = elem
	case reflect.Interface:
		p.kind = KindInterface
	default:
		return errors.Unsupported(c.phase, path, t.String(), t.Kind().String()+" values cannot be archived")
	}
	return nil
}

func (c *compiler) fillRecord(p *plan, t reflect.Type, path []string) error {
	seen := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, since, skip, err := parseFieldTag(sf)
		if err != nil {
			return errors.Unsupported(c.phase, extend(path, sf.Name), t.String(), err.Error())
		}
		if skip {
			continue
		}
		if seen[name] {
			return errors.Unsupported(c.phase, extend(path, name), t.String(), "duplicate field name")
		}
		seen[name] = true

		fp, err := c.build(sf.Type, extend(path, name))
		if err != nil {
			return err
		}
		p.fields = append(p.fields, field{
			plan:  fp,
			name:  name,
			index: i,
			since: since,
		})
	}
	return nil
}

// parseFieldTag reads `archive:"name,since=N"`. "-" skips the field.
func parseFieldTag(sf reflect.StructField) (name string, since uint32, skip bool, err error) {
	tag, ok := sf.Tag.Lookup("archive")
	if ok && tag == "-" {
		return "", 0, true, nil
	}

	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = sf.Name
	}
	if !literal.ValidName(name, false) || strings.HasPrefix(name, "_") {
		return "", 0, false, fieldTagError("invalid field name " + strconv.Quote(name))
	}

	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "since":
			n, perr := strconv.ParseUint(val, 10, 32)
			if perr != nil {
				return "", 0, false, fieldTagError("invalid since option " + strconv.Quote(val))
			}
			since = uint32(n)
		default:
			return "", 0, false, fieldTagError("unknown tag option " + strconv.Quote(key))
		}
	}
	return name, since, false, nil
}

// extend returns a copy of path with seg appended.
func extend(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

type fieldTagError string

func (e fieldTagError) Error() string { return string(e) }

// isCustom reports whether t or *t implements Saver or Loader.
func isCustom(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr || t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return t.Implements(saverType) || pt.Implements(saverType) ||
		t.Implements(loaderType) || pt.Implements(loaderType)
}
