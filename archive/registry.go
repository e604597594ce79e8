package archive

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/yaml-archive/archive/internal/literal"
	"github.com/wippyai/yaml-archive/errors"
)

// Descriptor is the static metadata of a registered type.
type Descriptor struct {
	Type    reflect.Type
	Name    string
	Version uint32
}

// Tag returns the node tag written for the type.
func (d *Descriptor) Tag() string {
	return "!" + d.Name
}

// Registry maps Go types to descriptors and back. Types are registered once
// at program start; lookups are safe for concurrent use.
type Registry struct {
	byType map[reflect.Type]*Descriptor
	byName map[string]*Descriptor
	mu     sync.RWMutex
}

// DefaultRegistry is used by sessions whose Config has no registry.
var DefaultRegistry = NewRegistry()

var reservedNames = map[string]bool{
	"hex": true,
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Descriptor),
		byName: make(map[string]*Descriptor),
	}
}

// Register records the type of sample under name. A pointer sample registers
// its element type.
func (r *Registry) Register(sample any, name string, version uint32) error {
	t := reflect.TypeOf(sample)
	if t == nil {
		return errors.Registration(name, "sample must not be nil")
	}
	return r.register(t, name, version)
}

func (r *Registry) register(t reflect.Type, name string, version uint32) error {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Ptr || t.Kind() == reflect.Interface {
		return errors.Registration(name, "cannot register "+t.String())
	}
	if !literal.ValidName(name, true) {
		return errors.Registration(name, "invalid type name")
	}
	if reservedNames[name] || strings.HasPrefix(name, "_") {
		return errors.Registration(name, "name is reserved")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byName[name]; ok {
		return errors.Registration(name, "name already registered for "+d.Type.String())
	}
	if d, ok := r.byType[t]; ok {
		return errors.Registration(name, t.String()+" already registered as "+d.Name)
	}

	d := &Descriptor{Type: t, Name: name, Version: version}
	r.byType[t] = d
	r.byName[name] = d
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(sample any, name string, version uint32) {
	if err := r.Register(sample, name, version); err != nil {
		panic(err)
	}
}

// RegisterType registers T in r.
func RegisterType[T any](r *Registry, name string, version uint32) error {
	return r.register(reflect.TypeOf((*T)(nil)).Elem(), name, version)
}

// Register records sample in DefaultRegistry.
func Register(sample any, name string, version uint32) error {
	return DefaultRegistry.Register(sample, name, version)
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// LookupType returns the descriptor of t, looking through one pointer.
func (r *Registry) LookupType(t reflect.Type) (*Descriptor, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

// Names returns every registered name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
