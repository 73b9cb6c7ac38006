package diff

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"

	"mirgo/internal/shape"
)

// RefMapper turns a raw reference id found in a value into its canonical
// target. Mappers let two graphs that live in different id spaces (a prefab
// and one of its instances) compare their references.
type RefMapper func(id uint64) Ref

// Option configures Generate.
type Option func(*generator)

// WithRefMapping sets the mappers applied to references of the old and new
// value. Either may be nil to keep raw ids.
func WithRefMapping(old, new RefMapper) Option {
	return func(g *generator) {
		if old != nil {
			g.oldRef = old
		}
		if new != nil {
			g.newRef = new
		}
	}
}

func rawRef(id uint64) Ref {
	return Ref{ID: id}
}

type generator struct {
	oldRef RefMapper
	newRef RefMapper
}

// Generate returns the record that turns old into new. Both values must be
// of shape s, either as structs or as non-nil pointers to structs. Neither
// value is modified. Equal values produce an empty record.
func Generate(s *shape.Shape, old, new any, opts ...Option) (*Record, error) {
	ov, err := structValue(s, old)
	if err != nil {
		return nil, err
	}
	nv, err := structValue(s, new)
	if err != nil {
		return nil, err
	}

	g := &generator{oldRef: rawRef, newRef: rawRef}
	for _, opt := range opts {
		opt(g)
	}
	return g.object(s, ov, nv)
}

func structValue(s *shape.Shape, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: nil value for %s", ErrShapeMismatch, s)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s", ErrShapeMismatch, rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Type() != s.Go {
		return reflect.Value{}, fmt.Errorf("%w: %s is not %s", ErrShapeMismatch, rv.Type(), s)
	}
	return rv, nil
}

func (g *generator) object(s *shape.Shape, o, n reflect.Value) (*Record, error) {
	rec := &Record{Shape: s.Name}
	for _, f := range s.Fields {
		c, changed, err := g.value(f.Type, o.Field(f.Index), n.Field(f.Index))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s, f.Name, err)
		}
		if changed {
			rec.Entries = append(rec.Entries, Entry{Field: f.Name, Change: c})
		}
	}
	return rec, nil
}

func (g *generator) value(t *shape.Type, o, n reflect.Value) (Change, bool, error) {
	switch t.Kind {
	case shape.Primitive:
		if primitiveEqual(o, n) {
			return Change{}, false, nil
		}
		raw, err := encode(n)
		if err != nil {
			return Change{}, false, err
		}
		return Change{Op: OpSet, Value: raw}, true, nil

	case shape.Reference:
		or, nr := g.oldRef(targetOf(o)), g.newRef(targetOf(n))
		if or.sameTarget(nr) {
			return Change{}, false, nil
		}
		return Change{Op: OpRef, Ref: &nr}, true, nil

	case shape.Object:
		if t.Nullable {
			if o.IsNil() && n.IsNil() {
				return Change{}, false, nil
			}
			if o.IsNil() || n.IsNil() {
				return g.replace(t, n)
			}
			o, n = o.Elem(), n.Elem()
		}
		sub, err := g.object(t.Shape, o, n)
		if err != nil {
			return Change{}, false, err
		}
		if sub.IsEmpty() {
			return Change{}, false, nil
		}
		return Change{Op: OpNested, Nested: sub}, true, nil

	case shape.Array:
		return g.elements(t, o, n)

	case shape.List:
		// Without an alignment pass a length change cannot be expressed as
		// per-index edits, so the whole list is recorded.
		if o.Len() != n.Len() {
			return g.replace(t, n)
		}
		return g.elements(t, o, n)

	case shape.Dictionary:
		return g.entries(t, o, n)
	}
	return Change{}, false, fmt.Errorf("%w: kind %s", ErrShapeMismatch, t.Kind)
}

func (g *generator) replace(t *shape.Type, n reflect.Value) (Change, bool, error) {
	raw, err := encode(n)
	if err != nil {
		return Change{}, false, err
	}
	return Change{Op: OpReplace, Value: raw, Refs: g.collect(t, n, nil)}, true, nil
}

func (g *generator) elements(t *shape.Type, o, n reflect.Value) (Change, bool, error) {
	var els []Element
	for i := 0; i < n.Len(); i++ {
		c, changed, err := g.value(t.Elem, o.Index(i), n.Index(i))
		if err != nil {
			return Change{}, false, fmt.Errorf("[%d]: %w", i, err)
		}
		if changed {
			els = append(els, Element{Index: i, Change: c})
		}
	}
	if len(els) == 0 {
		return Change{}, false, nil
	}
	return Change{Op: OpElements, Elements: els}, true, nil
}

func (g *generator) entries(t *shape.Type, o, n reflect.Value) (Change, bool, error) {
	var keys []KeyEntry

	iter := n.MapRange()
	for iter.Next() {
		k, nv := iter.Key(), iter.Value()
		kraw, err := encode(k)
		if err != nil {
			return Change{}, false, err
		}

		op := KeyAdded
		if ov := o.MapIndex(k); ov.IsValid() {
			_, changed, err := g.value(t.Elem, ov, nv)
			if err != nil {
				return Change{}, false, err
			}
			if !changed {
				continue
			}
			op = KeyChanged
		}

		raw, err := encode(nv)
		if err != nil {
			return Change{}, false, err
		}
		keys = append(keys, KeyEntry{
			Key:    kraw,
			KeyOp:  op,
			Change: Change{Op: OpSet, Value: raw, Refs: g.collect(t.Elem, nv, nil)},
		})
	}

	iter = o.MapRange()
	for iter.Next() {
		k := iter.Key()
		if n.MapIndex(k).IsValid() {
			continue
		}
		kraw, err := encode(k)
		if err != nil {
			return Change{}, false, err
		}
		keys = append(keys, KeyEntry{Key: kraw, KeyOp: KeyRemoved})
	}

	if len(keys) == 0 {
		return Change{}, false, nil
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Key, keys[j].Key) < 0
	})
	return Change{Op: OpEntries, Keys: keys}, true, nil
}

// collect lists the non-empty references inside a wholesale value.
func (g *generator) collect(t *shape.Type, v reflect.Value, path []Step) []EmbeddedRef {
	if !containsRefs(t, nil) {
		return nil
	}

	var refs []EmbeddedRef
	switch t.Kind {
	case shape.Reference:
		if id := targetOf(v); id != 0 {
			refs = append(refs, EmbeddedRef{Path: path, Ref: g.newRef(id)})
		}

	case shape.Object:
		if t.Nullable {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		for _, f := range t.Shape.Fields {
			refs = append(refs, g.collect(f.Type, v.Field(f.Index), appendStep(path, fieldStep(f.Name)))...)
		}

	case shape.Array, shape.List:
		for i := 0; i < v.Len(); i++ {
			refs = append(refs, g.collect(t.Elem, v.Index(i), appendStep(path, indexStep(i)))...)
		}

	case shape.Dictionary:
		type kv struct {
			raw []byte
			val reflect.Value
		}
		var items []kv
		iter := v.MapRange()
		for iter.Next() {
			raw, err := encode(iter.Key())
			if err != nil {
				continue
			}
			items = append(items, kv{raw: raw, val: iter.Value()})
		}
		sort.Slice(items, func(i, j int) bool { return bytes.Compare(items[i].raw, items[j].raw) < 0 })
		for _, it := range items {
			refs = append(refs, g.collect(t.Elem, it.val, appendStep(path, keyStep(it.raw)))...)
		}
	}
	return refs
}

// containsRefs reports whether values of t can hold a reference.
func containsRefs(t *shape.Type, seen map[*shape.Shape]bool) bool {
	switch t.Kind {
	case shape.Reference:
		return true
	case shape.Array, shape.List, shape.Dictionary:
		return containsRefs(t.Elem, seen)
	case shape.Object:
		if seen == nil {
			seen = map[*shape.Shape]bool{}
		}
		if seen[t.Shape] {
			return false
		}
		seen[t.Shape] = true
		for _, f := range t.Shape.Fields {
			if containsRefs(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

func targetOf(v reflect.Value) uint64 {
	return v.Interface().(shape.Referencer).TargetID()
}

func primitiveEqual(o, n reflect.Value) bool {
	switch o.Kind() {
	case reflect.Float32, reflect.Float64:
		a, b := o.Float(), n.Float()
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	}
	return o.Equal(n)
}
