package diff

import (
	"fmt"
	"reflect"

	"mirgo/internal/shape"
)

// RemapRefs rewrites every non-empty reference inside target, a non-nil
// pointer to a value of shape s, to fn of its current id. It is used to
// move a value between id spaces, e.g. from prefab document ids to scene
// ids.
func RemapRefs(s *shape.Shape, target any, fn func(id uint64) uint64) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != s.Go {
		return fmt.Errorf("%w: remap target must be *%s", ErrShapeMismatch, s)
	}
	t := &shape.Type{Kind: shape.Object, Go: s.Go, Shape: s}
	remap(t, rv.Elem(), fn)
	return nil
}

func remap(t *shape.Type, v reflect.Value, fn func(uint64) uint64) {
	if !containsRefs(t, nil) {
		return
	}
	switch t.Kind {
	case shape.Reference:
		if id := targetOf(v); id != 0 {
			v.Addr().Interface().(shape.ReferenceSetter).SetTargetID(fn(id))
		}

	case shape.Object:
		if t.Nullable {
			if v.IsNil() {
				return
			}
			v = v.Elem()
		}
		for _, f := range t.Shape.Fields {
			remap(f.Type, v.Field(f.Index), fn)
		}

	case shape.Array, shape.List:
		for i := 0; i < v.Len(); i++ {
			remap(t.Elem, v.Index(i), fn)
		}

	case shape.Dictionary:
		iter := v.MapRange()
		type kv struct{ k, v reflect.Value }
		var patched []kv
		for iter.Next() {
			cp := reflect.New(t.Elem.Go).Elem()
			cp.Set(iter.Value())
			remap(t.Elem, cp, fn)
			patched = append(patched, kv{iter.Key(), cp})
		}
		for _, p := range patched {
			v.SetMapIndex(p.k, p.v)
		}
	}
}
