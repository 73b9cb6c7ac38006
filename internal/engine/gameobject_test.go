package engine

import "testing"

func TestNewGameObject(t *testing.T) {
	obj := NewGameObject("TestObject")

	if obj.Name != "TestObject" {
		t.Errorf("Expected name 'TestObject', got '%s'", obj.Name)
	}

	if obj.UID == 0 {
		t.Error("UID should not be 0")
	}

	if obj.components == nil {
		t.Error("components slice should be initialized")
	}
}

func TestGameObjectUniqueUIDs(t *testing.T) {
	obj1 := NewGameObject("First")
	obj2 := NewGameObject("Second")
	obj3 := NewGameObject("Third")

	if obj1.UID == obj2.UID {
		t.Error("GameObjects should have unique UIDs")
	}
	if obj2.UID == obj3.UID {
		t.Error("GameObjects should have unique UIDs")
	}
	if obj1.UID == obj3.UID {
		t.Error("GameObjects should have unique UIDs")
	}
}

func TestGameObjectParentChild(t *testing.T) {
	parent := NewGameObject("Parent")
	child := NewGameObject("Child")

	parent.AddChild(child)

	if child.Parent != parent {
		t.Error("Child.Parent should be set")
	}

	if len(parent.Children) != 1 {
		t.Errorf("Expected 1 child, got %d", len(parent.Children))
	}

	if parent.Children[0] != child {
		t.Error("Child not added to parent's Children slice")
	}
}

func TestGameObjectRemoveChild(t *testing.T) {
	parent := NewGameObject("Parent")
	child1 := NewGameObject("Child1")
	child2 := NewGameObject("Child2")

	parent.AddChild(child1)
	parent.AddChild(child2)

	parent.RemoveChild(child1)

	if len(parent.Children) != 1 {
		t.Errorf("Expected 1 child after removal, got %d", len(parent.Children))
	}

	if parent.Children[0] != child2 {
		t.Error("Wrong child removed")
	}

	if child1.Parent != nil {
		t.Error("Removed child should have nil parent")
	}
}

func TestGameObjectAddComponent(t *testing.T) {
	obj := NewGameObject("Test")
	comp := &BaseComponent{}

	obj.AddComponent(comp)

	if len(obj.components) != 1 {
		t.Errorf("Expected 1 component, got %d", len(obj.components))
	}

	if comp.gameObject != obj {
		t.Error("Component.gameObject should be set")
	}
}

func TestGameObjectGetComponent(t *testing.T) {
	obj := NewGameObject("Test")
	comp := &BaseComponent{}

	obj.AddComponent(comp)

	found := GetComponent[*BaseComponent](obj)
	if found != comp {
		t.Error("GetComponent failed to find component")
	}
}

func TestGameObjectAddComponentAssignsID(t *testing.T) {
	obj := NewGameObject("Test")
	first := &BaseComponent{}
	second := &BaseComponent{}
	second.SetID(424242)

	obj.AddComponent(first)
	obj.AddComponent(second)

	if first.ID() == 0 {
		t.Error("AddComponent should assign an ID")
	}
	if second.ID() != 424242 {
		t.Errorf("AddComponent should keep an existing ID, got %d", second.ID())
	}
	if obj.ComponentByID(first.ID()) != first {
		t.Error("ComponentByID failed")
	}
}

func TestGameObjectRemoveComponent(t *testing.T) {
	scene := NewScene("Test")
	obj := NewGameObject("Test")
	comp := &BaseComponent{}
	obj.AddComponent(comp)
	scene.AddGameObject(obj)

	if !obj.RemoveComponent(comp) {
		t.Fatal("RemoveComponent should report success")
	}
	if len(obj.Components()) != 0 {
		t.Errorf("Expected 0 components, got %d", len(obj.Components()))
	}
	if comp.GetGameObject() != nil {
		t.Error("Removed component should be detached")
	}
	if scene.FindComponent(comp.ID()) != nil {
		t.Error("Removed component still in scene component map")
	}
	if obj.RemoveComponent(comp) {
		t.Error("Second RemoveComponent should report false")
	}
}

func TestGameObjectComponentBySource(t *testing.T) {
	obj := NewGameObject("Test")
	comp := &BaseComponent{}
	comp.SetSourceID(7)
	obj.AddComponent(comp)

	if obj.ComponentBySource(7) != comp {
		t.Error("ComponentBySource failed")
	}
	if obj.ComponentBySource(0) != nil {
		t.Error("Source id 0 should never match")
	}
}

func TestGameObjectFindChild(t *testing.T) {
	root := NewGameObject("Root")
	a := NewGameObject("A")
	b := NewGameObject("B")
	deep := NewGameObject("Deep")
	root.AddChild(a)
	root.AddChild(b)
	b.AddChild(deep)

	if root.FindChild("B", false) != b {
		t.Error("FindChild should find a direct child")
	}
	if root.FindChild("Deep", false) != nil {
		t.Error("Non-recursive FindChild should not descend")
	}
	if root.FindChild("Deep", true) != deep {
		t.Error("Recursive FindChild should find a grandchild")
	}
	if root.FindChild("Missing", true) != nil {
		t.Error("FindChild should return nil for unknown names")
	}
}

func TestGameObjectInsertChild(t *testing.T) {
	parent := NewGameObject("Parent")
	a := NewGameObject("A")
	b := NewGameObject("B")
	c := NewGameObject("C")
	parent.AddChild(a)
	parent.AddChild(c)

	parent.InsertChild(1, b)
	if parent.ChildIndex(b) != 1 || parent.ChildIndex(c) != 2 {
		t.Errorf("Unexpected order after insert: %d %d", parent.ChildIndex(b), parent.ChildIndex(c))
	}
	if b.Parent != parent {
		t.Error("InsertChild should set Parent")
	}

	d := NewGameObject("D")
	parent.InsertChild(99, d)
	if parent.ChildIndex(d) != 3 {
		t.Errorf("Out of range insert should append, got index %d", parent.ChildIndex(d))
	}
}

func TestGameObjectPaths(t *testing.T) {
	root := NewGameObject("Root")
	mid := NewGameObject("Mid")
	leaf := NewGameObject("Leaf")
	root.AddChild(mid)
	mid.AddChild(leaf)

	path, ok := leaf.PathFrom(root)
	if !ok || path != "Mid/Leaf" {
		t.Errorf("Expected 'Mid/Leaf', got %q (ok=%v)", path, ok)
	}
	if root.FindPath(path) != leaf {
		t.Error("FindPath should resolve PathFrom output")
	}
	if p, _ := root.PathFrom(root); p != "" {
		t.Errorf("Path of root should be empty, got %q", p)
	}
	if _, ok := root.PathFrom(leaf); ok {
		t.Error("PathFrom should fail for a non-ancestor")
	}
}

func TestReserveUID(t *testing.T) {
	base := NextUID()
	ReserveUID(base + 100)

	if next := NextUID(); next <= base+100 {
		t.Errorf("NextUID returned %d after reserving %d", next, base+100)
	}

	// Reserving below the counter is a no-op.
	ReserveUID(1)
	if next := NextUID(); next <= base+100 {
		t.Errorf("NextUID went backwards: %d", next)
	}
}
