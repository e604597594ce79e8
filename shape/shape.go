package shape

import (
	"container/list"
	"reflect"
	"sync"
)

// Sequence adapts a Go container type to ordered append-iteration.
// Every function receives the container value itself; Reset and Append
// require it to be settable.
type Sequence struct {
	// Elem is the static element type.
	Elem reflect.Type

	Len    func(v reflect.Value) int
	Each   func(v reflect.Value, fn func(elem reflect.Value) error) error
	Reset  func(v reflect.Value)
	Append func(v reflect.Value, elem reflect.Value)
}

// Family recognizes a whole family of container types (all slices, for
// instance) and builds the adapter for a member.
type Family func(t reflect.Type) (*Sequence, bool)

// Classifier answers whether a type is sequence-like.
// Unknown types are never sequences. It is safe for concurrent use.
type Classifier struct {
	overrides map[reflect.Type]*Sequence // nil value pins "not a sequence"
	families  []Family
	mu        sync.RWMutex
}

// Default is the classifier used when a session is not given one.
var Default = NewDefault()

// New returns a classifier that knows no sequence types.
func New() *Classifier {
	return &Classifier{
		overrides: make(map[reflect.Type]*Sequence),
	}
}

// NewDefault returns a classifier that recognizes slices (other than byte
// slices, which archive as binary buffers) and container/list.List.
// List elements are held as any, so every element stored in a list must be
// of a registered type.
func NewDefault() *Classifier {
	c := New()
	c.RegisterFamily(SliceFamily)
	c.Register(reflect.TypeOf(list.List{}), listSequence())
	return c
}

// Register marks t as sequence-like with the given adapter.
func (c *Classifier) Register(t reflect.Type, s Sequence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := s
	c.overrides[t] = &seq
}

// Exclude pins t to "not a sequence" even when a family would claim it.
func (c *Classifier) Exclude(t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[t] = nil
}

// RegisterFamily adds a rule consulted for types without an explicit entry.
// Families are tried in registration order.
func (c *Classifier) RegisterFamily(f Family) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.families = append(c.families, f)
}

// Classify returns the adapter for t when t is sequence-like.
func (c *Classifier) Classify(t reflect.Type) (*Sequence, bool) {
	if t == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.overrides[t]; ok {
		return s, s != nil
	}
	for _, f := range c.families {
		if s, ok := f(t); ok {
			return s, true
		}
	}
	return nil, false
}

// SliceFamily claims every slice type except byte slices.
func SliceFamily(t reflect.Type) (*Sequence, bool) {
	if t.Kind() != reflect.Slice || t.Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	return &Sequence{
		Elem: t.Elem(),
		Len: func(v reflect.Value) int {
			return v.Len()
		},
		Each: func(v reflect.Value, fn func(reflect.Value) error) error {
			for i := 0; i < v.Len(); i++ {
				if err := fn(v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		},
		Reset: func(v reflect.Value) {
			v.Set(reflect.MakeSlice(v.Type(), 0, 0))
		},
		Append: func(v reflect.Value, elem reflect.Value) {
			v.Set(reflect.Append(v, elem))
		},
	}, true
}

// listSequence adapts container/list.List. Elements are stored as any.
func listSequence() Sequence {
	asList := func(v reflect.Value) *list.List {
		if v.CanAddr() {
			return v.Addr().Interface().(*list.List)
		}
		l := v.Interface().(list.List)
		return &l
	}
	return Sequence{
		Elem: reflect.TypeOf((*any)(nil)).Elem(),
		Len: func(v reflect.Value) int {
			return asList(v).Len()
		},
		Each: func(v reflect.Value, fn func(reflect.Value) error) error {
			for e := asList(v).Front(); e != nil; e = e.Next() {
				elem := reflect.New(reflect.TypeOf((*any)(nil)).Elem()).Elem()
				if e.Value != nil {
					elem.Set(reflect.ValueOf(e.Value))
				}
				if err := fn(elem); err != nil {
					return err
				}
			}
			return nil
		},
		Reset: func(v reflect.Value) {
			asList(v).Init()
		},
		Append: func(v reflect.Value, elem reflect.Value) {
			asList(v).PushBack(elem.Interface())
		},
	}
}
