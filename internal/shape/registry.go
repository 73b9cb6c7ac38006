package shape

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned for field types that have no Kind.
var ErrUnsupported = errors.New("unsupported field type")

var (
	referenceType       = reflect.TypeOf((*Referencer)(nil)).Elem()
	referenceSetterType = reflect.TypeOf((*ReferenceSetter)(nil)).Elem()
)

// Registry builds and caches shapes. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Shape
	byName map[string]*Shape
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Shape),
		byName: make(map[string]*Shape),
	}
}

// Register builds the shape of v's type and makes it available under name.
// v may be a struct value or a pointer to one.
func (r *Registry) Register(name string, v any) (*Shape, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("register %q: nil value", name)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	s, err := r.Of(t)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok && existing != s {
		return nil, fmt.Errorf("register %q: name already bound to %s", name, existing.Go)
	}
	r.byName[name] = s
	return s, nil
}

// Lookup returns a shape registered under name.
func (r *Registry) Lookup(name string) (*Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Of returns the shape of the struct type t, building it on first use.
func (r *Registry) Of(t reflect.Type) (*Shape, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupported, t)
	}

	r.mu.RLock()
	s, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b := builder{done: r.byType, building: map[reflect.Type]*Shape{}}
	s, err := b.shape(t)
	if err != nil {
		return nil, err
	}
	// Only publish once the whole graph of nested shapes built cleanly.
	for bt, bs := range b.building {
		r.byType[bt] = bs
	}
	return s, nil
}

// OfValue is Of(reflect.TypeOf(v)).
func (r *Registry) OfValue(v any) (*Shape, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}
	return r.Of(t)
}

type builder struct {
	done     map[reflect.Type]*Shape
	building map[reflect.Type]*Shape
}

func (b *builder) shape(t reflect.Type) (*Shape, error) {
	if s, ok := b.done[t]; ok {
		return s, nil
	}
	if s, ok := b.building[t]; ok {
		// Recursive type reached through a pointer, list or map.
		return s, nil
	}

	s := &Shape{Name: t.Name(), Go: t, byName: map[string]int{}}
	if s.Name == "" {
		s.Name = t.String()
	}
	b.building[t] = s

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("prefab"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("%s: duplicate field name %q", t, name)
		}

		ft, err := b.typeOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		s.byName[name] = len(s.Fields)
		s.Fields = append(s.Fields, Field{Name: name, Index: i, Type: ft})
	}
	return s, nil
}

func (b *builder) typeOf(t reflect.Type) (*Type, error) {
	if t.Implements(referenceType) {
		if !reflect.PointerTo(t).Implements(referenceSetterType) {
			return nil, fmt.Errorf("%w: reference %s has no SetTargetID", ErrUnsupported, t)
		}
		return &Type{Kind: Reference, Go: t}, nil
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return &Type{Kind: Primitive, Go: t}, nil

	case reflect.Struct:
		s, err := b.shape(t)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Object, Go: t, Shape: s}, nil

	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: pointer to %s", ErrUnsupported, t.Elem())
		}
		s, err := b.shape(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Object, Go: t, Nullable: true, Shape: s}, nil

	case reflect.Array:
		elem, err := b.typeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Array, Go: t, Elem: elem, Len: t.Len()}, nil

	case reflect.Slice:
		elem, err := b.typeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: List, Go: t, Elem: elem}, nil

	case reflect.Map:
		key, err := b.typeOf(t.Key())
		if err != nil {
			return nil, err
		}
		if key.Kind != Primitive {
			return nil, fmt.Errorf("%w: map key %s is not primitive", ErrUnsupported, t.Key())
		}
		elem, err := b.typeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: Dictionary, Go: t, Key: key, Elem: elem}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}
