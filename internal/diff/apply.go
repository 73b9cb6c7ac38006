package diff

import (
	"errors"
	"fmt"
	"reflect"

	"mirgo/internal/shape"
)

// Apply writes the changes of rec into target, a non-nil pointer to a value
// of shape s. Fields are visited in shape order regardless of the order the
// record stores them in.
//
// When pending is nil, references are written immediately with their
// recorded ids and any skipped entry is returned as an error. Otherwise
// reference writes are queued on pending and skipped entries are recorded as
// warnings there, so a reconciliation pass can resolve every reference once
// the whole forest exists.
func Apply(s *shape.Shape, rec *Record, target any, pending *Pending) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target for %s must be a non-nil pointer", ErrShapeMismatch, s)
	}
	if rv.Elem().Type() != s.Go {
		return fmt.Errorf("%w: %s is not %s", ErrShapeMismatch, rv.Elem().Type(), s)
	}
	if rec.IsEmpty() {
		return nil
	}
	if rec.Shape != "" && rec.Shape != s.Name {
		return fmt.Errorf("%w: record for %s applied to %s", ErrShapeMismatch, rec.Shape, s)
	}

	p := pending
	if p == nil {
		p = &Pending{}
	}
	a := &applier{pending: p, root: rv, shape: s}
	if err := a.object(s, rv.Elem(), rec, nil); err != nil {
		return err
	}

	if pending == nil {
		if warnings := p.Resolve(Identity); len(warnings) > 0 {
			return errors.Join(warnings...)
		}
	}
	return nil
}

type applier struct {
	pending *Pending
	root    reflect.Value
	shape   *shape.Shape
}

func (a *applier) object(s *shape.Shape, v reflect.Value, rec *Record, path []Step) error {
	byField := make(map[string]*Change, len(rec.Entries))
	for i := range rec.Entries {
		e := &rec.Entries[i]
		if _, ok := s.Field(e.Field); !ok {
			return fmt.Errorf("%w: %s has no field %q", ErrShapeMismatch, s, e.Field)
		}
		byField[e.Field] = &e.Change
	}

	for _, f := range s.Fields {
		c, ok := byField[f.Name]
		if !ok {
			continue
		}
		if err := a.change(f.Type, v.Field(f.Index), c, appendStep(path, fieldStep(f.Name))); err != nil {
			return fmt.Errorf("%s.%s: %w", s, f.Name, err)
		}
	}
	return nil
}

func (a *applier) change(t *shape.Type, dst reflect.Value, c *Change, path []Step) error {
	switch c.Op {
	case OpSet, OpReplace:
		val, err := decode(c.Value, t.Go)
		if err != nil {
			return err
		}
		dst.Set(val)
		a.embedded(path, c.Refs)
		return nil

	case OpRef:
		if t.Kind != shape.Reference || c.Ref == nil {
			return fmt.Errorf("%w: reference change on %s field", ErrShapeMismatch, t.Kind)
		}
		a.pending.add(a.root, a.shape, path, *c.Ref)
		return nil

	case OpNested:
		if t.Kind != shape.Object {
			return fmt.Errorf("%w: nested change on %s field", ErrShapeMismatch, t.Kind)
		}
		if t.Nullable {
			if dst.IsNil() {
				dst.Set(reflect.New(t.Go.Elem()))
			}
			dst = dst.Elem()
		}
		if c.Nested.Shape != "" && c.Nested.Shape != t.Shape.Name {
			return fmt.Errorf("%w: record for %s applied to %s", ErrShapeMismatch, c.Nested.Shape, t.Shape)
		}
		return a.object(t.Shape, dst, c.Nested, path)

	case OpElements:
		if t.Kind != shape.Array && t.Kind != shape.List {
			return fmt.Errorf("%w: element change on %s field", ErrShapeMismatch, t.Kind)
		}
		for i := range c.Elements {
			el := &c.Elements[i]
			if el.Index < 0 || el.Index >= dst.Len() {
				a.pending.warn(fmt.Errorf("%w: %s[%d]", ErrMissingPathNode, FormatPath(path), el.Index))
				continue
			}
			if err := a.change(t.Elem, dst.Index(el.Index), &el.Change, appendStep(path, indexStep(el.Index))); err != nil {
				return fmt.Errorf("[%d]: %w", el.Index, err)
			}
		}
		return nil

	case OpEntries:
		if t.Kind != shape.Dictionary {
			return fmt.Errorf("%w: entry change on %s field", ErrShapeMismatch, t.Kind)
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(t.Go))
		}
		for i := range c.Keys {
			ke := &c.Keys[i]
			k, err := decode(ke.Key, t.Key.Go)
			if err != nil {
				return err
			}
			if ke.KeyOp == KeyRemoved {
				dst.SetMapIndex(k, reflect.Value{})
				continue
			}
			val, err := decode(ke.Value, t.Elem.Go)
			if err != nil {
				return err
			}
			dst.SetMapIndex(k, val)
			a.embedded(appendStep(path, keyStep(ke.Key)), ke.Refs)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown op %s", ErrShapeMismatch, c.Op)
}

func (a *applier) embedded(base []Step, refs []EmbeddedRef) {
	for _, r := range refs {
		a.pending.add(a.root, a.shape, joinPath(base, r.Path), r.Ref)
	}
}
