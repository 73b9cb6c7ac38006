package prefab

import (
	"fmt"

	"mirgo/internal/diff"
	"mirgo/internal/engine"
	"mirgo/internal/shape"
)

type replayer struct {
	m      *Manager
	t      *tree
	report *Report

	// idFor returns the id an added object or component gets in the tree.
	idFor func(uid uint64) uint64

	// added maps the recorded ids of added objects and components to the
	// ids they were given.
	added map[uint64]uint64

	// carry keeps a slot for each nested instance; otherwise they are
	// dropped from the build.
	carry bool
	slots []*engine.GameObject
}

// replay applies mods to a freshly built tree. Modifications whose target
// node no longer exists are skipped and reported. Reference writes are
// left on t.pending.
func (m *Manager) replay(t *tree, mods *Modifications, idFor func(uint64) uint64, carry bool, report *Report) *replayer {
	r := &replayer{m: m, t: t, report: report, idFor: idFor, added: make(map[uint64]uint64), carry: carry}
	if mods.IsEmpty() {
		return r
	}

	for _, o := range mods.Objects {
		obj := r.node(o.Node, "property override")
		if obj == nil {
			continue
		}
		props := propsOf(obj)
		r.apply(m.props, o.Record, &props, obj.Name)
		if obj == t.root {
			props.Position = obj.Transform.Position
			props.Rotation = obj.Transform.Rotation
			props.Scale = obj.Transform.Scale
		}
		props.applyTo(obj)
	}

	for _, o := range mods.Components {
		obj := r.node(o.Node, "component override")
		if obj == nil {
			continue
		}
		c := obj.ComponentBySource(o.Component)
		if c == nil {
			report.warn(fmt.Errorf("%w: component %s #%d on %s", diff.ErrMissingPathNode, o.Type, o.Component, o.Node))
			continue
		}
		s, err := m.shapeOf(c)
		if err != nil {
			report.warn(err)
			continue
		}
		r.apply(s, o.Record, c, obj.Name+"."+o.Type)
	}

	for _, k := range mods.RemovedComponents {
		obj := r.node(k.Node, "component removal")
		if obj == nil {
			continue
		}
		c := obj.ComponentBySource(k.Component)
		if c == nil {
			report.warn(fmt.Errorf("%w: removed component #%d on %s", diff.ErrMissingPathNode, k.Component, k.Node))
			continue
		}
		obj.RemoveComponent(c)
	}

	for _, k := range mods.RemovedChildren {
		obj := r.node(k, "child removal")
		if obj == nil {
			continue
		}
		if obj == t.root {
			report.warn(fmt.Errorf("%w: cannot remove the prefab root", diff.ErrMissingPathNode))
			continue
		}
		t.remove(obj)
	}

	for i := range mods.AddedComponents {
		a := &mods.AddedComponents[i]
		obj := r.node(a.Node, "added component")
		if obj == nil {
			continue
		}
		if c := r.component(a, obj.Name); c != nil {
			obj.AddComponent(c)
		}
	}

	for _, a := range mods.AddedChildren {
		parent := r.node(a.Parent, "added child")
		if parent == nil {
			continue
		}
		if obj := r.object(a.Object); obj != nil {
			parent.InsertChild(a.Index, obj)
		}
	}
	return r
}

func (r *replayer) node(key NodeKey, what string) *engine.GameObject {
	obj := r.t.find(key)
	if obj == nil {
		r.report.warn(fmt.Errorf("%w: %s on %s", diff.ErrMissingPathNode, what, key))
	}
	return obj
}

func (r *replayer) apply(s *shape.Shape, rec *diff.Record, target any, owner string) {
	r.t.pending.Owner = owner
	if err := diff.Apply(s, rec, target, r.t.pending); err != nil {
		r.report.warn(fmt.Errorf("%s: %w", owner, err))
	}
}

func (r *replayer) assign(uid uint64) uint64 {
	id := r.idFor(uid)
	if uid != 0 {
		r.added[uid] = id
	}
	return id
}

func (r *replayer) component(a *AddedComponent, owner string) engine.Component {
	c := r.m.comps.Create(a.Type)
	if c == nil {
		r.report.warn(fmt.Errorf("%w: added component %q on %s", ErrUnknownType, a.Type, owner))
		return nil
	}
	s, err := r.m.shapeOf(c)
	if err != nil {
		r.report.warn(err)
		return nil
	}
	r.apply(s, a.Record, c, owner+"."+a.Type)
	c.SetID(r.assign(a.UID))
	return c
}

func (r *replayer) object(a *AddedObject) *engine.GameObject {
	if a.Nested {
		if !r.carry {
			return nil
		}
		// Stands in for the nested instance until the swap.
		slot := engine.NewGameObject("")
		slot.UID = a.UID
		r.added[a.UID] = a.UID
		r.slots = append(r.slots, slot)
		return slot
	}

	obj := engine.NewGameObject("")
	obj.UID = r.assign(a.UID)

	var props ObjectProps
	r.apply(r.m.props, a.Props, &props, "added object")
	props.applyTo(obj)

	for i := range a.Components {
		if c := r.component(&a.Components[i], obj.Name); c != nil {
			obj.AddComponent(c)
		}
	}
	for _, child := range a.Children {
		if c := r.object(child); c != nil {
			obj.AddChild(c)
		}
	}
	return obj
}

// resolver resolves the references queued while building and replaying
// t. treeIDs are the ids left in the tree after replay; external reports
// whether an id outside the tree is a live target.
func (r *replayer) resolver(treeIDs map[uint64]bool, external func(uint64) bool) diff.Resolver {
	return diff.ResolverFunc(func(ref diff.Ref) (uint64, bool) {
		if ref.Local {
			if id, ok := r.t.local[ref.ID]; ok && treeIDs[id] {
				return id, true
			}
			if ref.Path != "" {
				if obj := r.t.root.FindPath(ref.Path); obj != nil {
					return obj.UID, true
				}
			}
			return 0, false
		}
		if id, ok := r.added[ref.ID]; ok {
			return id, true
		}
		if external(ref.ID) {
			return ref.ID, true
		}
		return 0, false
	})
}
