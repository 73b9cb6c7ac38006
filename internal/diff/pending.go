package diff

import (
	"fmt"
	"reflect"

	"mirgo/internal/shape"
)

// Resolver maps a recorded reference target to a live instance id.
type Resolver interface {
	Resolve(ref Ref) (uint64, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref Ref) (uint64, bool)

func (f ResolverFunc) Resolve(ref Ref) (uint64, bool) { return f(ref) }

// Identity resolves every reference to its recorded id.
var Identity Resolver = ResolverFunc(func(ref Ref) (uint64, bool) { return ref.ID, true })

// Pending collects reference writes deferred by Apply, and the soft
// failures met while applying.
type Pending struct {
	// Owner prefixes the paths of references queued from now on, so
	// warnings can name the object they came from.
	Owner string

	items    []pendingRef
	warnings []error
}

type pendingRef struct {
	owner string
	root  reflect.Value
	shape *shape.Shape
	path  []Step
	ref   Ref
}

// Len is the number of queued reference writes.
func (p *Pending) Len() int { return len(p.items) }

func (p *Pending) add(root reflect.Value, s *shape.Shape, path []Step, ref Ref) {
	p.items = append(p.items, pendingRef{owner: p.Owner, root: root, shape: s, path: path, ref: ref})
}

func (p *Pending) warn(err error) {
	if p.Owner != "" {
		err = fmt.Errorf("%s: %w", p.Owner, err)
	}
	p.warnings = append(p.warnings, err)
}

// Resolve writes every queued reference. Targets r cannot resolve are set to
// 0 and reported as ErrDanglingReference. The returned slice also carries
// the warnings recorded while applying. The queue is empty afterwards.
func (p *Pending) Resolve(r Resolver) []error {
	warnings := p.warnings
	for _, it := range p.items {
		var id uint64
		if it.ref.ID != 0 {
			resolved, ok := r.Resolve(it.ref)
			if ok {
				id = resolved
			} else {
				warnings = append(warnings, fmt.Errorf("%w: %s%s -> %d", ErrDanglingReference, ownerPrefix(it.owner), FormatPath(it.path), it.ref.ID))
			}
		}
		root := &shape.Type{Kind: shape.Object, Go: it.shape.Go, Shape: it.shape}
		if err := setTarget(root, it.root.Elem(), it.path, id); err != nil {
			warnings = append(warnings, fmt.Errorf("%s%s: %w", ownerPrefix(it.owner), FormatPath(it.path), err))
		}
	}
	p.items = nil
	p.warnings = nil
	return warnings
}

func ownerPrefix(owner string) string {
	if owner == "" {
		return ""
	}
	return owner + "."
}

func setTarget(t *shape.Type, v reflect.Value, path []Step, id uint64) error {
	if len(path) == 0 {
		if t.Kind != shape.Reference {
			return fmt.Errorf("%w: %s is not a reference", ErrShapeMismatch, t.Go)
		}
		v.Addr().Interface().(shape.ReferenceSetter).SetTargetID(id)
		return nil
	}

	step, rest := path[0], path[1:]
	switch t.Kind {
	case shape.Object:
		if step.Kind != StepField {
			break
		}
		if t.Nullable {
			if v.IsNil() {
				return ErrMissingPathNode
			}
			v = v.Elem()
		}
		f, ok := t.Shape.Field(step.Field)
		if !ok {
			return fmt.Errorf("%w: field %q", ErrMissingPathNode, step.Field)
		}
		return setTarget(f.Type, v.Field(f.Index), rest, id)

	case shape.Array, shape.List:
		if step.Kind != StepIndex {
			break
		}
		if step.Index < 0 || step.Index >= v.Len() {
			return fmt.Errorf("%w: index %d", ErrMissingPathNode, step.Index)
		}
		return setTarget(t.Elem, v.Index(step.Index), rest, id)

	case shape.Dictionary:
		if step.Kind != StepKey {
			break
		}
		k, err := decode(step.Key, t.Key.Go)
		if err != nil {
			return err
		}
		cur := v.MapIndex(k)
		if !cur.IsValid() {
			return fmt.Errorf("%w: key %s", ErrMissingPathNode, formatKey(step.Key))
		}
		// Map values are not addressable: patch a copy and store it back.
		cp := reflect.New(t.Elem.Go).Elem()
		cp.Set(cur)
		if err := setTarget(t.Elem, cp, rest, id); err != nil {
			return err
		}
		v.SetMapIndex(k, cp)
		return nil
	}
	return fmt.Errorf("%w: step %d into %s", ErrShapeMismatch, step.Kind, t.Kind)
}
