package engine

type Scene struct {
	Name         string
	GameObjects  []*GameObject
	uidMap       map[uint64]*GameObject
	componentMap map[uint64]Component
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:         name,
		GameObjects:  make([]*GameObject, 0),
		uidMap:       make(map[uint64]*GameObject),
		componentMap: make(map[uint64]Component),
	}
}

// AddGameObject registers g and its components. Children are not added;
// use AddTree for a whole subtree.
func (s *Scene) AddGameObject(g *GameObject) {
	if s.uidMap == nil {
		s.uidMap = make(map[uint64]*GameObject)
	}
	g.Scene = s
	s.GameObjects = append(s.GameObjects, g)
	s.uidMap[g.UID] = g
	for _, c := range g.components {
		s.registerComponent(c)
	}
}

// AddTree adds root and every descendant.
func (s *Scene) AddTree(root *GameObject) {
	root.Walk(s.AddGameObject)
}

// RemoveGameObject removes g and its descendants from the scene and
// detaches g from its parent.
func (s *Scene) RemoveGameObject(g *GameObject) {
	if g.Parent != nil {
		g.Parent.RemoveChild(g)
	}
	removed := make(map[*GameObject]bool)
	g.Walk(func(obj *GameObject) {
		removed[obj] = true
		delete(s.uidMap, obj.UID)
		for _, c := range obj.components {
			s.unregisterComponent(c)
		}
		obj.Scene = nil
	})

	kept := s.GameObjects[:0]
	for _, obj := range s.GameObjects {
		if !removed[obj] {
			kept = append(kept, obj)
		}
	}
	for i := len(kept); i < len(s.GameObjects); i++ {
		s.GameObjects[i] = nil
	}
	s.GameObjects = kept
}

func (s *Scene) registerComponent(c Component) {
	if s.componentMap == nil {
		s.componentMap = make(map[uint64]Component)
	}
	s.componentMap[c.ID()] = c
}

func (s *Scene) unregisterComponent(c Component) {
	if s.componentMap[c.ID()] == c {
		delete(s.componentMap, c.ID())
	}
}

func (s *Scene) FindByUID(uid uint64) *GameObject {
	return s.uidMap[uid]
}

// FindComponent looks up a component by its UID.
func (s *Scene) FindComponent(id uint64) Component {
	return s.componentMap[id]
}

// Contains reports whether id names an object or a component in the scene.
func (s *Scene) Contains(id uint64) bool {
	if _, ok := s.uidMap[id]; ok {
		return true
	}
	_, ok := s.componentMap[id]
	return ok
}

func (s *Scene) FindByName(name string) *GameObject {
	for _, g := range s.GameObjects {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Roots returns the objects without a parent, in scene order.
func (s *Scene) Roots() []*GameObject {
	var roots []*GameObject
	for _, g := range s.GameObjects {
		if g.Parent == nil {
			roots = append(roots, g)
		}
	}
	return roots
}
