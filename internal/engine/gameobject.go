package engine

import (
	"math"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type Transform struct {
	Position rl.Vector3
	Rotation rl.Vector3 // Euler angles in degrees
	Scale    rl.Vector3
}

type GameObject struct {
	UID        uint64
	Name       string
	Tags       []string
	Transform  Transform
	Active     bool
	Scene      *Scene
	Parent     *GameObject
	Children   []*GameObject
	components []Component

	// PrefabSourceID is the id of the prefab node this object was built
	// from. 0 for objects that are not part of a prefab instance, and for
	// objects added to an instance after it was created.
	PrefabSourceID uint64
}

func NewGameObject(name string) *GameObject {
	return &GameObject{
		UID:    NextUID(),
		Name:   name,
		Active: true,
		Transform: Transform{
			Position: rl.Vector3{},
			Rotation: rl.Vector3{},
			Scale:    rl.Vector3{X: 1, Y: 1, Z: 1},
		},
		components: make([]Component, 0),
		Children:   make([]*GameObject, 0),
	}
}

// AddComponent attaches c, assigning it a UID if it has none.
func (g *GameObject) AddComponent(c Component) {
	if c.ID() == 0 {
		c.SetID(NextUID())
	}
	c.SetGameObject(g)
	g.components = append(g.components, c)
	if g.Scene != nil {
		g.Scene.registerComponent(c)
	}
}

func (g *GameObject) RemoveComponent(c Component) bool {
	for i, existing := range g.components {
		if existing == c {
			g.components = append(g.components[:i], g.components[i+1:]...)
			c.SetGameObject(nil)
			if g.Scene != nil {
				g.Scene.unregisterComponent(c)
			}
			return true
		}
	}
	return false
}

// GetComponentOfType returns a component using a type assertion helper
func GetComponent[T Component](g *GameObject) T {
	var zero T
	for _, c := range g.components {
		if typed, ok := c.(T); ok {
			return typed
		}
	}
	return zero
}

func (g *GameObject) ComponentByID(id uint64) Component {
	for _, c := range g.components {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (g *GameObject) ComponentBySource(sourceID uint64) Component {
	if sourceID == 0 {
		return nil
	}
	for _, c := range g.components {
		if c.SourceID() == sourceID {
			return c
		}
	}
	return nil
}

func (g *GameObject) Components() []Component {
	return g.components
}

func (g *GameObject) AddChild(child *GameObject) {
	child.Parent = g
	g.Children = append(g.Children, child)
}

// InsertChild adds child at index, clamped to the valid range.
func (g *GameObject) InsertChild(index int, child *GameObject) {
	if index < 0 || index > len(g.Children) {
		index = len(g.Children)
	}
	child.Parent = g
	g.Children = append(g.Children, nil)
	copy(g.Children[index+1:], g.Children[index:])
	g.Children[index] = child
}

func (g *GameObject) RemoveChild(child *GameObject) {
	for i, c := range g.Children {
		if c == child {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// ChildIndex returns the position of child among g's children, or -1.
func (g *GameObject) ChildIndex(child *GameObject) int {
	for i, c := range g.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// FindChild returns the first child named name. With recursive set the
// whole subtree is searched depth first.
func (g *GameObject) FindChild(name string, recursive bool) *GameObject {
	for _, c := range g.Children {
		if c.Name == name {
			return c
		}
	}
	if !recursive {
		return nil
	}
	for _, c := range g.Children {
		if found := c.FindChild(name, true); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits g and its descendants depth first, parents before children.
func (g *GameObject) Walk(fn func(obj *GameObject)) {
	fn(g)
	for _, c := range g.Children {
		c.Walk(fn)
	}
}

// PathFrom returns the slash separated name path from root down to g. The
// path of root itself is empty. ok is false when g is not under root.
func (g *GameObject) PathFrom(root *GameObject) (string, bool) {
	var names []string
	for cur := g; cur != root; cur = cur.Parent {
		if cur == nil {
			return "", false
		}
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/"), true
}

// FindPath resolves a path produced by PathFrom.
func (g *GameObject) FindPath(path string) *GameObject {
	if path == "" {
		return g
	}
	cur := g
	for _, name := range strings.Split(path, "/") {
		cur = cur.FindChild(name, false)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (g *GameObject) WorldPosition() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Position
	}
	parentPos := g.Parent.WorldPosition()
	parentRot := g.Parent.WorldRotation()
	parentScale := g.Parent.WorldScale()

	scaled := rl.Vector3{
		X: g.Transform.Position.X * parentScale.X,
		Y: g.Transform.Position.Y * parentScale.Y,
		Z: g.Transform.Position.Z * parentScale.Z,
	}

	// X then Y then Z
	rx := float64(parentRot.X) * math.Pi / 180
	ry := float64(parentRot.Y) * math.Pi / 180
	rz := float64(parentRot.Z) * math.Pi / 180
	rotX := rl.MatrixRotateX(float32(rx))
	rotY := rl.MatrixRotateY(float32(ry))
	rotZ := rl.MatrixRotateZ(float32(rz))
	rotMatrix := rl.MatrixMultiply(rl.MatrixMultiply(rotX, rotY), rotZ)

	rotated := rl.Vector3Transform(scaled, rotMatrix)
	return rl.Vector3Add(parentPos, rotated)
}

func (g *GameObject) WorldRotation() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Rotation
	}
	return rl.Vector3Add(g.Parent.WorldRotation(), g.Transform.Rotation)
}

func (g *GameObject) WorldScale() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Scale
	}
	ps := g.Parent.WorldScale()
	return rl.Vector3{
		X: ps.X * g.Transform.Scale.X,
		Y: ps.Y * g.Transform.Scale.Y,
		Z: ps.Z * g.Transform.Scale.Z,
	}
}
