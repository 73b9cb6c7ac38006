package prefab

import (
	"fmt"
	"reflect"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
	"mirgo/internal/shape"
)

// tree is a prefab document built into GameObjects outside any scene.
type tree struct {
	root *engine.GameObject

	// local maps document ids of nodes and components to the ids they got
	// in the built tree.
	local map[uint64]uint64

	// bySource maps document node ids to built objects.
	bySource map[uint64]*engine.GameObject

	// paths maps document node ids to their name path in the document.
	paths map[uint64]string

	pending *diff.Pending
}

// ids returns every object and component id in the built tree, including
// objects added by modifications.
func (t *tree) ids() map[uint64]bool {
	ids := make(map[uint64]bool)
	t.root.Walk(func(obj *engine.GameObject) {
		ids[obj.UID] = true
		for _, c := range obj.Components() {
			ids[c.ID()] = true
		}
	})
	return ids
}

// find locates the built object for a document node.
func (t *tree) find(key NodeKey) *engine.GameObject {
	if obj, ok := t.bySource[key.Source]; ok {
		return obj
	}
	return t.root.FindPath(key.Path)
}

// remove detaches obj from the tree and forgets its subtree.
func (t *tree) remove(obj *engine.GameObject) {
	if obj.Parent != nil {
		obj.Parent.RemoveChild(obj)
	}
	obj.Walk(func(o *engine.GameObject) {
		if o.PrefabSourceID != 0 && t.bySource[o.PrefabSourceID] == o {
			delete(t.bySource, o.PrefabSourceID)
		}
	})
}

// idSpace decides which ids a build hands out.
type idSpace interface {
	object(n *asset.Node, path string) uint64
	component(n *asset.Node, c asset.ComponentData) uint64
}

// assetIDs builds with document ids, for merging into a document.
type assetIDs struct{}

func (assetIDs) object(n *asset.Node, _ string) uint64                 { return n.ID }
func (assetIDs) component(_ *asset.Node, c asset.ComponentData) uint64 { return c.ID }

// sceneIDs hands out fresh UIDs, reusing the UIDs of a previous build of
// the same prefab where a node can be matched by source id or name path.
type sceneIDs struct {
	bySource map[uint64]*engine.GameObject
	byPath   map[string]*engine.GameObject
	matched  map[uint64]*engine.GameObject
}

func (m *Manager) newSceneIDs(old *engine.GameObject, doc *asset.Document) *sceneIDs {
	ids := &sceneIDs{
		bySource: make(map[uint64]*engine.GameObject),
		byPath:   make(map[string]*engine.GameObject),
		matched:  make(map[uint64]*engine.GameObject),
	}
	if old == nil {
		return ids
	}
	inDoc := doc.IDs()
	m.walkOwn(old, func(obj *engine.GameObject) {
		if obj.PrefabSourceID == 0 {
			// Added on the instance; rebuilt from its modifications.
			return
		}
		if inDoc[obj.PrefabSourceID] {
			ids.bySource[obj.PrefabSourceID] = obj
			return
		}
		if path, ok := obj.PathFrom(old); ok {
			if _, dup := ids.byPath[path]; !dup {
				ids.byPath[path] = obj
			}
		}
	})
	return ids
}

func (s *sceneIDs) object(n *asset.Node, path string) uint64 {
	obj, ok := s.bySource[n.ID]
	if !ok {
		obj, ok = s.byPath[path]
		if ok {
			delete(s.byPath, path)
		}
	}
	if !ok {
		return engine.NextUID()
	}
	s.matched[n.ID] = obj
	return obj.UID
}

func (s *sceneIDs) component(n *asset.Node, c asset.ComponentData) uint64 {
	if obj, ok := s.matched[n.ID]; ok {
		if old := obj.ComponentBySource(c.ID); old != nil {
			return old.ID()
		}
	}
	return engine.NextUID()
}

// build turns doc into GameObjects. References inside component data are
// moved from document ids to built ids; a reference to an id the document
// does not contain is cleared and reported.
func (m *Manager) build(doc *asset.Document, space idSpace, report *Report) (*tree, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("build: %w: no root", asset.ErrInvalidDocument)
	}
	t := &tree{
		local:    make(map[uint64]uint64),
		bySource: make(map[uint64]*engine.GameObject),
		paths:    make(map[uint64]string),
		pending:  &diff.Pending{},
	}

	type built struct {
		node *asset.Node
		obj  *engine.GameObject
	}
	var nodes []built

	var walk func(n *asset.Node, parent *engine.GameObject, path string)
	walk = func(n *asset.Node, parent *engine.GameObject, path string) {
		obj := engine.NewGameObject(n.Name)
		obj.UID = space.object(n, path)
		obj.PrefabSourceID = n.ID
		nodeProps(n).applyTo(obj)
		if parent != nil {
			parent.AddChild(obj)
		} else {
			t.root = obj
		}

		t.local[n.ID] = obj.UID
		t.bySource[n.ID] = obj
		t.paths[n.ID] = path
		for _, c := range n.Components {
			t.local[c.ID] = space.component(n, c)
		}
		nodes = append(nodes, built{node: n, obj: obj})

		for _, child := range n.Children {
			childPath := child.Name
			if path != "" {
				childPath = path + "/" + child.Name
			}
			walk(child, obj, childPath)
		}
	}
	walk(doc.Root, nil, "")

	for _, b := range nodes {
		for _, data := range b.node.Components {
			c, err := m.decodeComponent(data)
			if err != nil {
				return nil, fmt.Errorf("build %q: %w", b.node.Name, err)
			}
			s, err := m.shapeOf(c)
			if err != nil {
				return nil, err
			}
			owner := fmt.Sprintf("%s.%s", t.paths[b.node.ID], data.Type)
			err = diff.RemapRefs(s, c, func(id uint64) uint64 {
				if to, ok := t.local[id]; ok {
					return to
				}
				report.warn(fmt.Errorf("%w: %s -> %d not in prefab", diff.ErrDanglingReference, owner, id))
				return 0
			})
			if err != nil {
				return nil, err
			}
			c.SetID(t.local[data.ID])
			c.SetSourceID(data.ID)
			b.obj.AddComponent(c)
		}
	}
	return t, nil
}

func (m *Manager) decodeComponent(data asset.ComponentData) (engine.Component, error) {
	c := m.comps.Create(data.Type)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, data.Type)
	}
	if err := diff.Unmarshal(data.Data, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", data.Type, err)
	}
	return c, nil
}

func (m *Manager) shapeOf(c engine.Component) (*shape.Shape, error) {
	s, err := m.shapes.Of(reflect.TypeOf(c))
	if err != nil {
		return nil, fmt.Errorf("component %T: %w", c, err)
	}
	return s, nil
}

func (m *Manager) typeName(c engine.Component) (string, error) {
	name, ok := m.comps.NameOf(c)
	if !ok {
		return "", fmt.Errorf("%w: %T is not registered", ErrUnknownType, c)
	}
	return name, nil
}

// copyComponent returns a detached copy of c's serialized state. Fields
// outside its shape take the defaults of a new component.
func (m *Manager) copyComponent(c engine.Component) (engine.Component, string, error) {
	name, err := m.typeName(c)
	if err != nil {
		return nil, "", err
	}
	s, err := m.shapeOf(c)
	if err != nil {
		return nil, "", err
	}
	base := m.comps.Create(name)
	if base == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if err := s.CopyFields(base, c); err != nil {
		return nil, "", err
	}
	data, err := diff.Marshal(base)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", name, err)
	}
	cp, err := m.decodeComponent(asset.ComponentData{Type: name, Data: data})
	if err != nil {
		return nil, "", err
	}
	return cp, name, nil
}
