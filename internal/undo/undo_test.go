package undo

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
	"mirgo/internal/prefab"
)

type Label struct {
	engine.BaseComponent
	Text string
}

func newManager(t *testing.T) *prefab.Manager {
	t.Helper()
	store, err := asset.NewFileStore(t.TempDir())
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	reg := engine.NewComponentRegistry()
	reg.Register("Label", func() engine.Component { return &Label{} })
	return prefab.NewManager(engine.NewScene("undo"), prefab.NewLibrary(store, log),
		prefab.WithComponents(reg), prefab.WithLogger(log))
}

func add(m *prefab.Manager, parent *engine.GameObject, name string) *engine.GameObject {
	g := engine.NewGameObject(name)
	if parent != nil {
		parent.AddChild(g)
	}
	m.Scene().AddGameObject(g)
	return g
}

// instance creates a prefab sign > post and returns a fresh instance of it.
func instance(t *testing.T, m *prefab.Manager) *engine.GameObject {
	t.Helper()
	src := add(m, nil, "sign")
	src.AddComponent(&Label{Text: "hello"})
	add(m, src, "post")
	_, _, err := m.CreatePrefab(src, "sign")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("sign", nil)
	require.NoError(t, err)
	return inst
}

func TestUndoTransform(t *testing.T) {
	s := New(newManager(t))
	obj := engine.NewGameObject("cube")
	obj.Transform.Position = rl.Vector3{X: 1}

	s.PushTransform(obj)
	obj.Transform.Position = rl.Vector3{X: 5}
	obj.Transform.Scale = rl.Vector3{X: 3, Y: 3, Z: 3}

	got, ok := s.Undo()
	require.True(t, ok)
	assert.Same(t, obj, got)
	assert.Equal(t, rl.Vector3{X: 1}, obj.Transform.Position)
	assert.Equal(t, rl.Vector3{X: 1, Y: 1, Z: 1}, obj.Transform.Scale)

	_, ok = s.Undo()
	assert.False(t, ok)
}

func TestStackIsCapped(t *testing.T) {
	s := New(newManager(t))
	obj := engine.NewGameObject("cube")
	for i := 0; i < maxUndoStack+10; i++ {
		obj.Transform.Position.X = float32(i)
		s.PushTransform(obj)
	}
	assert.Equal(t, maxUndoStack, s.Len())

	for s.Len() > 0 {
		s.Undo()
	}
	assert.Equal(t, float32(10), obj.Transform.Position.X)
}

func TestUndoDeleteRestoresPlaceAndLinks(t *testing.T) {
	m := newManager(t)
	s := New(m)
	parent := add(m, nil, "parent")
	add(m, parent, "first")
	inst := instance(t, m)
	m.Scene().RemoveGameObject(inst)
	parent.AddChild(inst)
	m.Scene().AddTree(inst)
	add(m, parent, "last")

	s.Delete(inst)
	assert.Nil(t, m.Scene().FindByUID(inst.UID))
	assert.False(t, m.HasPrefabLink(inst))
	assert.NoError(t, m.RecordModifications())

	_, ok := s.Undo()
	require.True(t, ok)
	assert.Same(t, inst, m.Scene().FindByUID(inst.UID))
	assert.Equal(t, 1, parent.ChildIndex(inst))
	assert.True(t, m.HasPrefabLink(inst))
	assert.Same(t, inst.FindChild("post", false), m.Scene().FindByUID(inst.FindChild("post", false).UID))
}

func TestUndoRevert(t *testing.T) {
	m := newManager(t)
	s := New(m)
	inst := instance(t, m)
	engine.GetComponent[*Label](inst).Text = "edited"
	require.NoError(t, m.RecordModifications())

	reverted, _, err := s.Revert(inst)
	require.NoError(t, err)
	assert.Equal(t, "hello", engine.GetComponent[*Label](reverted).Text)
	kind, _ := s.Peek()
	assert.Equal(t, ActionRevert, kind)

	got, ok := s.Undo()
	require.True(t, ok)
	assert.Same(t, inst, got)
	assert.Same(t, inst, m.Scene().FindByUID(inst.UID))
	assert.Equal(t, "edited", engine.GetComponent[*Label](inst).Text)

	link, ok := m.Link(inst)
	require.True(t, ok)
	assert.Equal(t, 1, link.Mods.Count())
}

func TestUndoReconcileReturnsNestedInstance(t *testing.T) {
	m := newManager(t)
	s := New(m)
	outer := instance(t, m)
	_, _, err := m.CreatePrefab(add(m, nil, "board"), "board")
	require.NoError(t, err)
	inner, _, err := m.Instantiate("board", outer)
	require.NoError(t, err)

	rebuilt, _, err := s.Reconcile(outer)
	require.NoError(t, err)
	assert.Same(t, rebuilt, inner.Parent)

	got, ok := s.Undo()
	require.True(t, ok)
	assert.Same(t, outer, got)
	assert.Same(t, outer, inner.Parent)
	assert.Same(t, inner, m.Scene().FindByUID(inner.UID))
	assert.True(t, m.HasPrefabLink(inner))
	assert.True(t, m.HasPrefabLink(outer))
}

func TestUndoBreak(t *testing.T) {
	m := newManager(t)
	s := New(m)
	inst := instance(t, m)
	post := inst.FindChild("post", false)
	source := post.PrefabSourceID

	require.NoError(t, s.Break(inst))
	assert.False(t, m.HasPrefabLink(inst))
	assert.Zero(t, post.PrefabSourceID)

	s.Undo()
	assert.True(t, m.HasPrefabLink(inst))
	assert.Equal(t, source, post.PrefabSourceID)
	assert.NotZero(t, engine.GetComponent[*Label](inst).SourceID())

	mods, err := m.Modifications(inst)
	require.NoError(t, err)
	assert.True(t, mods.IsEmpty())
}

func TestUndoApplyKeepsAsset(t *testing.T) {
	m := newManager(t)
	s := New(m)
	inst := instance(t, m)
	before, _ := m.Link(inst)
	oldRev := before.Revision
	extra := add(m, inst, "extra")

	_, err := s.Apply(inst)
	require.NoError(t, err)
	assert.NotZero(t, extra.PrefabSourceID)

	s.Undo()
	assert.Zero(t, extra.PrefabSourceID)
	link, ok := m.Link(inst)
	require.True(t, ok)
	assert.Equal(t, oldRev, link.Revision)

	stale, err := m.IsStale(link)
	require.NoError(t, err)
	assert.True(t, stale, "the asset keeps the applied revision")

	doc, _, err := m.Library().Load("sign")
	require.NoError(t, err)
	assert.Len(t, doc.Root.Children, 2)
}

func TestActionNames(t *testing.T) {
	assert.Equal(t, "revert prefab", ActionRevert.String())
	assert.Equal(t, "unknown", ActionType(99).String())
}
