package prefab

import (
	"errors"
	"fmt"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
)

type Health struct {
	engine.BaseComponent
	Max     int
	Current int
	Resist  map[string]float32
	Regen   float32 `prefab:"-"`
}

type Mover struct {
	engine.BaseComponent
	Speed     float32
	Waypoints []rl.Vector3
	Target    engine.GameObjectRef
	Partner   engine.ComponentRef
}

func testComponents() *engine.ComponentRegistry {
	r := engine.NewComponentRegistry()
	r.Register("Health", func() engine.Component { return &Health{Max: 100, Current: 100} })
	r.Register("Mover", func() engine.Component { return &Mover{Speed: 1} })
	return r
}

type fixture struct {
	t     *testing.T
	store asset.Store
	lib   *Library
	comps *engine.ComponentRegistry
	hook  *test.Hook
	log   *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := asset.NewFileStore(t.TempDir())
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return &fixture{
		t:     t,
		store: store,
		lib:   NewLibrary(store, log),
		comps: testComponents(),
		hook:  hook,
		log:   log,
	}
}

func (f *fixture) manager(opts ...Option) *Manager {
	opts = append([]Option{WithComponents(f.comps), WithLogger(f.log)}, opts...)
	return NewManager(engine.NewScene("test"), f.lib, opts...)
}

func addTree(scene *engine.Scene, parent *engine.GameObject, name string) *engine.GameObject {
	obj := engine.NewGameObject(name)
	if parent != nil {
		parent.AddChild(obj)
	}
	scene.AddGameObject(obj)
	return obj
}

// crate builds:
//
//	crate [Health]
//	  lid [Mover -> crate, crate.Health]
//	  base
func crate(scene *engine.Scene) *engine.GameObject {
	root := addTree(scene, nil, "crate")
	root.Transform.Position = rl.Vector3{X: 1, Y: 2, Z: 3}
	health := &Health{Max: 100, Current: 100, Resist: map[string]float32{"fire": 0.5}}
	root.AddComponent(health)

	lid := addTree(scene, root, "lid")
	mover := &Mover{Speed: 2, Waypoints: []rl.Vector3{{X: 1}}}
	mover.Target.Set(root)
	mover.Partner.Set(health)
	lid.AddComponent(mover)

	addTree(scene, root, "base")
	return root
}

// stage builds prefabRoot > so1 > so1_0.
func stage(scene *engine.Scene) *engine.GameObject {
	root := addTree(scene, nil, "prefabRoot")
	so1 := addTree(scene, root, "so1")
	addTree(scene, so1, "so1_0")
	return root
}

func describe(root *engine.GameObject) []string {
	ref := func(uid uint64) string {
		if uid == 0 {
			return "none"
		}
		var out string
		root.Walk(func(obj *engine.GameObject) {
			if obj.UID == uid {
				p, _ := obj.PathFrom(root)
				out = "@" + p
			}
			for _, c := range obj.Components() {
				if c.ID() == uid {
					p, _ := obj.PathFrom(root)
					out = fmt.Sprintf("@%s.%T", p, c)
				}
			}
		})
		if out == "" {
			return fmt.Sprintf("#%d", uid)
		}
		return out
	}

	var lines []string
	root.Walk(func(obj *engine.GameObject) {
		p, _ := obj.PathFrom(root)
		line := fmt.Sprintf("[%s] name=%s active=%v tags=%v", p, obj.Name, obj.Active, obj.Tags)
		if obj != root {
			line += fmt.Sprintf(" pos=%v scale=%v", obj.Transform.Position, obj.Transform.Scale)
		}
		for _, c := range obj.Components() {
			switch v := c.(type) {
			case *Health:
				line += fmt.Sprintf(" Health{%d/%d %v}", v.Current, v.Max, v.Resist)
			case *Mover:
				line += fmt.Sprintf(" Mover{%v %v target=%s partner=%s}", v.Speed, v.Waypoints, ref(v.Target.UID), ref(v.Partner.ID))
			}
		}
		lines = append(lines, line)
	})
	return lines
}

func uids(root *engine.GameObject) map[string]uint64 {
	out := make(map[string]uint64)
	root.Walk(func(obj *engine.GameObject) {
		p, _ := obj.PathFrom(root)
		out[p] = obj.UID
	})
	return out
}

func TestCreatePrefabAndInstantiate(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	src := crate(m.Scene())

	link, report, err := m.CreatePrefab(src, "crate")
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, "crate", link.AssetID)
	assert.True(t, link.Mods.IsEmpty())
	assert.True(t, m.HasPrefabLink(src))
	src.Walk(func(obj *engine.GameObject) {
		assert.NotZero(t, obj.PrefabSourceID, obj.Name)
	})

	inst, report, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.True(t, m.HasPrefabLink(inst))
	assert.NotEqual(t, src.UID, inst.UID)

	// Transforms of the root come from the prefab on instantiation.
	assert.Equal(t, src.Transform.Position, inst.Transform.Position)
	assert.Equal(t, describe(src), describe(inst))

	mover := engine.GetComponent[*Mover](inst.FindChild("lid", false))
	require.NotNil(t, mover)
	assert.Same(t, inst, mover.Target.Get(m.Scene()))
	assert.Same(t, engine.GetComponent[*Health](inst), mover.Partner.Get(m.Scene()))

	mods, err := m.Modifications(inst)
	require.NoError(t, err)
	assert.True(t, mods.IsEmpty())
}

func TestCreatePrefabRejectsLinkedObjects(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	src := crate(m.Scene())
	_, _, err := m.CreatePrefab(src, "crate")
	require.NoError(t, err)

	_, _, err = m.CreatePrefab(src, "again")
	assert.ErrorIs(t, err, ErrAlreadyLinked)

	_, _, err = m.CreatePrefab(src.FindChild("lid", false), "lid")
	assert.ErrorIs(t, err, ErrAlreadyLinked)

	other := crate(m.Scene())
	_, _, err = m.CreatePrefab(other, "crate")
	assert.ErrorIs(t, err, ErrAssetExists)
	assert.False(t, m.HasPrefabLink(other))
}

func TestCreatePrefabSkipsUnserializedFields(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	src := crate(m.Scene())
	engine.GetComponent[*Health](src).Regen = 3

	_, _, err := m.CreatePrefab(src, "crate")
	require.NoError(t, err)
	assert.Equal(t, float32(3), engine.GetComponent[*Health](src).Regen)

	doc, _, err := f.lib.Load("crate")
	require.NoError(t, err)
	require.Len(t, doc.Root.Components, 1)
	var stored Health
	require.NoError(t, diff.Unmarshal(doc.Root.Components[0].Data, &stored))
	assert.Zero(t, stored.Regen)
	assert.Equal(t, 100, stored.Max)

	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	assert.Zero(t, engine.GetComponent[*Health](inst).Regen)
}

func TestCreatePrefabClearsOutsideReferences(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	outside := addTree(m.Scene(), nil, "outside")
	src := crate(m.Scene())
	mover := engine.GetComponent[*Mover](src.FindChild("lid", false))
	mover.Target.Set(outside)

	link, report, err := m.CreatePrefab(src, "crate")
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.ErrorIs(t, report.Warnings[0], diff.ErrDanglingReference)

	// The instance keeps its reference as an override.
	require.Len(t, link.Mods.Components, 1)
	assert.Equal(t, "Mover", link.Mods.Components[0].Type)

	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	assert.Zero(t, engine.GetComponent[*Mover](inst.FindChild("lid", false)).Target.UID)
}

func editCrate(t *testing.T, scene *engine.Scene, inst *engine.GameObject) {
	t.Helper()
	inst.Name = "renamed"
	lid := inst.FindChild("lid", false)
	lid.Transform.Position.X = 5
	engine.GetComponent[*Health](inst).Current = 50
	engine.GetComponent[*Health](inst).Resist["ice"] = 0.25

	inst.AddComponent(&Mover{Speed: 3})
	require.True(t, lid.RemoveComponent(engine.GetComponent[*Mover](lid)))

	scene.RemoveGameObject(inst.FindChild("base", false))

	extra := addTree(scene, lid, "extra")
	extra.Tags = []string{"new"}
	extraMover := &Mover{Speed: 7}
	extraMover.Target.Set(inst)
	extra.AddComponent(extraMover)
}

func TestModificationsRecordEveryKindOfEdit(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)

	editCrate(t, m.Scene(), inst)

	mods, err := m.Modifications(inst)
	require.NoError(t, err)
	assert.Len(t, mods.Objects, 2)
	assert.Len(t, mods.Components, 1)
	assert.Len(t, mods.RemovedComponents, 1)
	assert.Len(t, mods.RemovedChildren, 1)
	assert.Len(t, mods.AddedComponents, 1)
	require.Len(t, mods.AddedChildren, 1)
	assert.Equal(t, "lid", mods.AddedChildren[0].Parent.Path)
	assert.Equal(t, "base", mods.RemovedChildren[0].Path)

	// The added mover points at the prefab root, so it is recorded as a
	// prefab-local reference.
	added := mods.AddedChildren[0].Object
	require.Len(t, added.Components, 1)
	target, ok := added.Components[0].Record.Entry("Target")
	require.True(t, ok)
	assert.True(t, target.Ref.Local)

	data, err := mods.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalModifications(data)
	require.NoError(t, err)
	assert.Equal(t, mods.Count(), decoded.Count())
	assert.True(t, diff.Equal(mods.Components[0].Record, decoded.Components[0].Record))
}

func TestReconcileKeepsEditsAndIdentity(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	inst.Transform.Position = rl.Vector3{X: 10}
	editCrate(t, m.Scene(), inst)

	before := describe(inst)
	beforeIDs := uids(inst)

	rebuilt, report, err := m.Reconcile(inst)
	require.NoError(t, err)
	assert.True(t, report.Empty(), report.String())
	assert.NotSame(t, inst, rebuilt)

	assert.Equal(t, before, describe(rebuilt))
	assert.Equal(t, beforeIDs, uids(rebuilt))
	assert.Equal(t, rl.Vector3{X: 10}, rebuilt.Transform.Position)
	assert.Same(t, rebuilt, m.Scene().FindByUID(inst.UID))
	assert.Nil(t, inst.Scene)

	mods, err := m.Modifications(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, 7, mods.Count())
}

func TestRevertRestoresSource(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	parent := addTree(m.Scene(), nil, "holder")
	addTree(m.Scene(), parent, "first")
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)

	inst, _, err := m.Instantiate("crate", parent)
	require.NoError(t, err)
	addTree(m.Scene(), parent, "last")
	inst.Transform.Position = rl.Vector3{Y: 4}
	rootID, lidID := inst.UID, inst.FindChild("lid", false).UID

	editCrate(t, m.Scene(), inst)

	reverted, _, err := m.RevertPrefab(inst)
	require.NoError(t, err)

	fresh, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	assert.Equal(t, describe(fresh), describe(reverted))

	assert.Equal(t, rootID, reverted.UID)
	assert.Equal(t, lidID, reverted.FindChild("lid", false).UID)
	assert.Equal(t, rl.Vector3{Y: 4}, reverted.Transform.Position)
	assert.Same(t, parent, reverted.Parent)
	assert.Equal(t, 1, parent.ChildIndex(reverted))
	assert.Nil(t, m.Scene().FindByName("extra"))

	link, ok := m.Link(reverted)
	require.True(t, ok)
	assert.True(t, link.Mods.IsEmpty())
}

func TestApplyReachesOtherInstances(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	a, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	b, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)

	// An instance in another scene, sharing the library.
	m2 := f.manager()
	c, _, err := m2.Instantiate("crate", nil)
	require.NoError(t, err)

	editCrate(t, m.Scene(), a)
	want := describe(a)

	report, err := m.ApplyPrefab(a)
	require.NoError(t, err)
	assert.True(t, report.Empty(), report.String())

	linkA, _ := m.Link(a)
	assert.True(t, linkA.Mods.IsEmpty())
	a.Walk(func(obj *engine.GameObject) {
		assert.NotZero(t, obj.PrefabSourceID, obj.Name)
		for _, comp := range obj.Components() {
			assert.NotZero(t, comp.SourceID(), "%s.%T", obj.Name, comp)
		}
	})

	b = m.Scene().FindByUID(b.UID)
	assert.Equal(t, want, describe(b))

	stale, err := m2.IsStale(m2.Links()[0])
	require.NoError(t, err)
	assert.True(t, stale)
	n, report, err := m2.ReconcileStale()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, report.Empty(), report.String())
	assert.Equal(t, want, describe(m2.Scene().FindByUID(c.UID)))

	doc, _, err := f.lib.Load("crate")
	require.NoError(t, err)
	require.NoError(t, doc.Validate())
	assert.Equal(t, "renamed", doc.Root.Name)
}

func TestRevertAndApplyAreInverse(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	pristine, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	source := describe(pristine)

	edited, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	editCrate(t, m.Scene(), edited)
	edit := describe(edited)

	reverted, _, err := m.RevertPrefab(edited)
	require.NoError(t, err)
	assert.Equal(t, source, describe(reverted))

	editCrate(t, m.Scene(), reverted)
	_, err = m.ApplyPrefab(reverted)
	require.NoError(t, err)
	assert.Equal(t, edit, describe(m.Scene().FindByUID(pristine.UID)))
}

func TestSourceRenamePropagatesOnReload(t *testing.T) {
	f := newFixture(t)
	editor := f.manager()
	_, _, err := editor.CreatePrefab(stage(editor.Scene()), "stage")
	require.NoError(t, err)

	other := f.manager()
	ref, _, err := other.Instantiate("stage", nil)
	require.NoError(t, err)

	src, _, err := editor.Instantiate("stage", nil)
	require.NoError(t, err)
	so1 := src.FindChild("so1", true)
	so1.Name = "so1_modified"
	editor.Scene().RemoveGameObject(so1.FindChild("so1_0", false))
	addTree(editor.Scene(), so1, "so1_1")
	_, err = editor.ApplyPrefab(src)
	require.NoError(t, err)

	n, _, err := other.ReconcileStale()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ref = other.Scene().FindByUID(ref.UID)
	modified := ref.FindChild("so1_modified", true)
	require.NotNil(t, modified)
	assert.NotNil(t, modified.FindChild("so1_1", false))
	assert.Nil(t, ref.FindChild("so1_0", true))
	assert.Nil(t, ref.FindChild("so1", true))
}

func TestInstanceRenameWinsOverSourceRename(t *testing.T) {
	f := newFixture(t)
	editor := f.manager()
	_, _, err := editor.CreatePrefab(stage(editor.Scene()), "stage")
	require.NoError(t, err)

	other := f.manager()
	ref, _, err := other.Instantiate("stage", nil)
	require.NoError(t, err)
	ref.FindChild("so1", true).Name = "mine"

	src, _, err := editor.Instantiate("stage", nil)
	require.NoError(t, err)
	src.FindChild("so1", true).Name = "theirs"
	addTree(editor.Scene(), src.FindChild("theirs", true), "so1_1")
	_, err = editor.ApplyPrefab(src)
	require.NoError(t, err)

	_, _, err = other.ReconcileStale()
	require.NoError(t, err)
	ref = other.Scene().FindByUID(ref.UID)
	mine := ref.FindChild("mine", true)
	require.NotNil(t, mine)
	assert.NotNil(t, mine.FindChild("so1_1", false), "structural changes still arrive")
	assert.Nil(t, ref.FindChild("theirs", true))
}

func TestReconcileWarnsAboutVanishedTargets(t *testing.T) {
	f := newFixture(t)
	editor := f.manager()
	_, _, err := editor.CreatePrefab(stage(editor.Scene()), "stage")
	require.NoError(t, err)

	other := f.manager()
	ref, _, err := other.Instantiate("stage", nil)
	require.NoError(t, err)
	so1_0 := ref.FindChild("so1_0", true)
	so1_0.Active = false
	pointer := &Mover{}
	pointer.Target.Set(so1_0)
	ref.AddComponent(pointer)

	src, _, err := editor.Instantiate("stage", nil)
	require.NoError(t, err)
	editor.Scene().RemoveGameObject(src.FindChild("so1_0", true))
	_, err = editor.ApplyPrefab(src)
	require.NoError(t, err)

	_, report, err := other.ReconcileStale()
	require.NoError(t, err)

	var missing, dangling int
	for _, w := range report.Warnings {
		switch {
		case errors.Is(w, diff.ErrMissingPathNode):
			missing++
		case errors.Is(w, diff.ErrDanglingReference):
			dangling++
		}
	}
	assert.Equal(t, 1, missing, report.String())
	assert.Equal(t, 1, dangling, report.String())

	ref = other.Scene().FindByUID(ref.UID)
	mover := engine.GetComponent[*Mover](ref)
	require.NotNil(t, mover)
	assert.Zero(t, mover.Target.UID)
	assert.NotEmpty(t, f.hook.AllEntries())
}

func TestStrictReferencesLeaveSceneUntouched(t *testing.T) {
	f := newFixture(t)
	editor := f.manager()
	_, _, err := editor.CreatePrefab(stage(editor.Scene()), "stage")
	require.NoError(t, err)

	strict := f.manager(WithStrictReferences(true))
	ref, _, err := strict.Instantiate("stage", nil)
	require.NoError(t, err)
	pointer := &Mover{}
	pointer.Target.Set(ref.FindChild("so1_0", true))
	ref.AddComponent(pointer)
	linkBefore, _ := strict.Link(ref)
	revBefore := linkBefore.Revision

	src, _, err := editor.Instantiate("stage", nil)
	require.NoError(t, err)
	editor.Scene().RemoveGameObject(src.FindChild("so1_0", true))
	_, err = editor.ApplyPrefab(src)
	require.NoError(t, err)

	_, _, err = strict.ReconcileStale()
	require.ErrorIs(t, err, diff.ErrDanglingReference)

	assert.Same(t, ref, strict.Scene().FindByUID(ref.UID))
	assert.NotNil(t, ref.FindChild("so1_0", true))
	link, _ := strict.Link(ref)
	assert.Equal(t, revBefore, link.Revision)
}

type failingStore struct {
	asset.Store
	fail bool
}

func (s *failingStore) Save(id string, doc *asset.Document) (asset.Revision, error) {
	if s.fail {
		return "", fmt.Errorf("%w: disk full", asset.ErrPersistence)
	}
	return s.Store.Save(id, doc)
}

func TestApplySaveFailureChangesNothing(t *testing.T) {
	f := newFixture(t)
	store := &failingStore{Store: f.store}
	f.lib = NewLibrary(store, f.log)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	editCrate(t, m.Scene(), inst)
	link, _ := m.Link(inst)
	rev := link.Revision

	store.fail = true
	_, err = m.ApplyPrefab(inst)
	require.ErrorIs(t, err, asset.ErrPersistence)

	assert.Equal(t, rev, link.Revision)
	assert.Zero(t, m.Scene().FindByName("extra").PrefabSourceID)
	_, curRev, err := f.lib.Load("crate")
	require.NoError(t, err)
	assert.Equal(t, rev, curRev)

	mods, err := m.Modifications(inst)
	require.NoError(t, err)
	assert.Equal(t, 7, mods.Count())
}

func TestApplyReconcilesStaleInstanceFirst(t *testing.T) {
	f := newFixture(t)
	editor := f.manager()
	_, _, err := editor.CreatePrefab(stage(editor.Scene()), "stage")
	require.NoError(t, err)

	other := f.manager()
	ref, _, err := other.Instantiate("stage", nil)
	require.NoError(t, err)
	ref.FindChild("so1", true).Active = false

	src, _, err := editor.Instantiate("stage", nil)
	require.NoError(t, err)
	addTree(editor.Scene(), src, "so2")
	_, err = editor.ApplyPrefab(src)
	require.NoError(t, err)

	_, err = other.ApplyPrefab(ref)
	require.NoError(t, err)

	doc, _, err := f.lib.Load("stage")
	require.NoError(t, err)
	names := map[string]bool{}
	doc.Walk(func(n *asset.Node) {
		names[n.Name] = n.Active
	})
	assert.Contains(t, names, "so2", "the stale instance must not drop the other edit")
	assert.False(t, names["so1"])
}

func TestBreakPrefabLink(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(crate(m.Scene()), "crate")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("crate", nil)
	require.NoError(t, err)
	engine.GetComponent[*Health](inst).Current = 1
	before := describe(inst)

	require.NoError(t, m.BreakPrefabLink(inst))
	assert.False(t, m.HasPrefabLink(inst))
	assert.Equal(t, before, describe(inst))
	inst.Walk(func(obj *engine.GameObject) {
		assert.Zero(t, obj.PrefabSourceID)
		for _, c := range obj.Components() {
			assert.Zero(t, c.SourceID())
		}
	})

	assert.ErrorIs(t, m.BreakPrefabLink(inst), ErrNoLink)
	_, err = m.ApplyPrefab(inst)
	assert.ErrorIs(t, err, ErrNoLink)
	_, _, err = m.RevertPrefab(inst)
	assert.ErrorIs(t, err, ErrNoLink)

	// A broken instance can become a prefab of its own.
	_, _, err = m.CreatePrefab(inst, "crate2")
	assert.NoError(t, err)
}

func TestReconcileFromRecordedModifications(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	_, _, err := m.CreatePrefab(stage(m.Scene()), "stage")
	require.NoError(t, err)
	inst, _, err := m.Instantiate("stage", nil)
	require.NoError(t, err)
	inst.FindChild("so1_0", true).Tags = []string{"kept"}
	require.NoError(t, m.RecordModifications())

	// A new library has no history, as after a restart.
	other := NewLibrary(f.store, f.log)
	m2 := NewManager(m.Scene(), other, WithComponents(f.comps), WithLogger(f.log))
	link, _ := m.Link(inst)
	require.NoError(t, m2.AddLink(link.Clone()))

	rebuilt, _, err := m2.Reconcile(inst)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, rebuilt.FindChild("so1_0", true).Tags)
}
