package prefab

import (
	"fmt"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
)

// modifications diffs the instance subtree at root against doc, the
// revision it was built from.
func (m *Manager) modifications(doc *asset.Document, root *engine.GameObject) (*Modifications, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("modifications: %w: no root", asset.ErrInvalidDocument)
	}

	inDoc := doc.IDs()
	paths := make(map[uint64]string)
	var index func(n *asset.Node, path string)
	index = func(n *asset.Node, path string) {
		paths[n.ID] = path
		for _, c := range n.Children {
			p := c.Name
			if path != "" {
				p = path + "/" + c.Name
			}
			index(c, p)
		}
	}
	index(doc.Root, "")

	// Instance ids that stand for a prefab node or component compare as
	// the document id they came from.
	local := make(map[uint64]diff.Ref)
	m.walkOwn(root, func(obj *engine.GameObject) {
		if src := obj.PrefabSourceID; src != 0 && inDoc[src] {
			local[obj.UID] = diff.Ref{ID: src, Local: true, Path: paths[src]}
		}
		for _, c := range obj.Components() {
			if src := c.SourceID(); src != 0 && inDoc[src] {
				local[c.ID()] = diff.Ref{ID: src, Local: true}
			}
		}
	})
	// The root always stands for the document root.
	local[root.UID] = diff.Ref{ID: doc.Root.ID, Local: true}

	d := &differ{
		m:     m,
		root:  root,
		paths: paths,
		mods:  &Modifications{},
		opts: []diff.Option{diff.WithRefMapping(
			func(id uint64) diff.Ref {
				if inDoc[id] {
					return diff.Ref{ID: id, Local: true, Path: paths[id]}
				}
				return diff.Ref{ID: id}
			},
			func(id uint64) diff.Ref {
				if r, ok := local[id]; ok {
					return r
				}
				return diff.Ref{ID: id}
			},
		)},
	}
	if err := d.node(doc.Root, root, true); err != nil {
		return nil, err
	}
	return d.mods, nil
}

type differ struct {
	m     *Manager
	root  *engine.GameObject
	paths map[uint64]string
	mods  *Modifications
	opts  []diff.Option
}

func (d *differ) key(n *asset.Node) NodeKey {
	return NodeKey{Source: n.ID, Path: d.paths[n.ID]}
}

func (d *differ) node(n *asset.Node, obj *engine.GameObject, isRoot bool) error {
	key := d.key(n)

	src, cur := nodeProps(n), propsOf(obj)
	if isRoot {
		// The root transform belongs to the instance.
		src.Position, src.Rotation, src.Scale = cur.Position, cur.Rotation, cur.Scale
	}
	rec, err := diff.Generate(d.m.props, src, cur)
	if err != nil {
		return fmt.Errorf("diff %s: %w", key, err)
	}
	if !rec.IsEmpty() {
		d.mods.Objects = append(d.mods.Objects, ObjectOverride{Node: key, Record: rec})
	}

	matched := make(map[engine.Component]bool)
	for _, data := range n.Components {
		c := obj.ComponentBySource(data.ID)
		if c != nil {
			if name, _ := d.m.comps.NameOf(c); name != data.Type {
				c = nil
			}
		}
		if c == nil {
			d.mods.RemovedComponents = append(d.mods.RemovedComponents, ComponentKey{Node: key, Component: data.ID})
			continue
		}
		matched[c] = true

		base, err := d.m.decodeComponent(data)
		if err != nil {
			return fmt.Errorf("diff %s: %w", key, err)
		}
		s, err := d.m.shapeOf(c)
		if err != nil {
			return err
		}
		rec, err := diff.Generate(s, base, c, d.opts...)
		if err != nil {
			return fmt.Errorf("diff %s %s: %w", key, data.Type, err)
		}
		if !rec.IsEmpty() {
			d.mods.Components = append(d.mods.Components, ComponentOverride{
				Node: key, Component: data.ID, Type: data.Type, Record: rec,
			})
		}
	}
	for _, c := range obj.Components() {
		if matched[c] {
			continue
		}
		added, err := d.component(key, c)
		if err != nil {
			return err
		}
		d.mods.AddedComponents = append(d.mods.AddedComponents, added)
	}

	children := make(map[*engine.GameObject]bool)
	for _, cn := range n.Children {
		var child *engine.GameObject
		for _, oc := range obj.Children {
			if oc.PrefabSourceID == cn.ID && !d.m.nestedRoot(oc, d.root) {
				child = oc
				break
			}
		}
		if child == nil {
			d.mods.RemovedChildren = append(d.mods.RemovedChildren, d.key(cn))
			continue
		}
		children[child] = true
		if err := d.node(cn, child, false); err != nil {
			return err
		}
	}
	for i, oc := range obj.Children {
		if children[oc] {
			continue
		}
		added, err := d.object(oc)
		if err != nil {
			return err
		}
		d.mods.AddedChildren = append(d.mods.AddedChildren, AddedChild{Parent: key, Index: i, Object: added})
	}
	return nil
}

// component records c as a diff against a freshly created component of
// the same type.
func (d *differ) component(key NodeKey, c engine.Component) (AddedComponent, error) {
	name, err := d.m.typeName(c)
	if err != nil {
		return AddedComponent{}, err
	}
	s, err := d.m.shapeOf(c)
	if err != nil {
		return AddedComponent{}, err
	}
	rec, err := diff.Generate(s, d.m.comps.Create(name), c, d.opts...)
	if err != nil {
		return AddedComponent{}, fmt.Errorf("diff added %s: %w", name, err)
	}
	return AddedComponent{Node: key, UID: c.ID(), Type: name, Record: rec}, nil
}

func (d *differ) object(obj *engine.GameObject) (*AddedObject, error) {
	if d.m.nestedRoot(obj, d.root) {
		return &AddedObject{UID: obj.UID, Nested: true}, nil
	}
	rec, err := diff.Generate(d.m.props, ObjectProps{}, propsOf(obj))
	if err != nil {
		return nil, err
	}
	added := &AddedObject{UID: obj.UID, Props: rec}
	for _, c := range obj.Components() {
		ac, err := d.component(NodeKey{}, c)
		if err != nil {
			return nil, err
		}
		added.Components = append(added.Components, ac)
	}
	for _, child := range obj.Children {
		ac, err := d.object(child)
		if err != nil {
			return nil, err
		}
		added.Children = append(added.Children, ac)
	}
	return added, nil
}
