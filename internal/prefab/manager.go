// Package prefab links scene subtrees to prefab assets: creating and
// instantiating prefabs, recording per-instance modifications, applying
// them back to the asset, reverting them, and rebuilding instances when
// the asset changes.
package prefab

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
	"mirgo/internal/shape"
)

// Manager owns the prefab links of one scene. It is not safe for
// concurrent use; the Library it reads from is.
type Manager struct {
	scene  *engine.Scene
	lib    *Library
	comps  *engine.ComponentRegistry
	shapes *shape.Registry
	log    logrus.FieldLogger
	strict bool

	props *shape.Shape
	links map[uint64]*Link

	// slots stand in for nested instances in builds that replaced or were
	// replaced by their outer instance.
	slots map[*engine.GameObject]bool
}

type Option func(*Manager)

// WithComponents sets the registry used to create components. Defaults to
// engine.DefaultRegistry().
func WithComponents(r *engine.ComponentRegistry) Option {
	return func(m *Manager) { m.comps = r }
}

func WithShapes(r *shape.Registry) Option {
	return func(m *Manager) { m.shapes = r }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithStrictReferences makes unresolved references fail reconciliation
// instead of being cleared with a warning.
func WithStrictReferences(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func NewManager(scene *engine.Scene, lib *Library, opts ...Option) *Manager {
	m := &Manager{
		scene:  scene,
		lib:    lib,
		comps:  engine.DefaultRegistry(),
		shapes: shape.NewRegistry(),
		log:    logrus.StandardLogger(),
		links:  make(map[uint64]*Link),
		slots:  make(map[*engine.GameObject]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	props, err := m.shapes.OfValue(ObjectProps{})
	if err != nil {
		panic(fmt.Sprintf("prefab: object props shape: %v", err))
	}
	m.props = props
	return m
}

func (m *Manager) Scene() *engine.Scene { return m.scene }

func (m *Manager) Library() *Library { return m.lib }

// HasPrefabLink reports whether root is the root of a linked instance.
func (m *Manager) HasPrefabLink(root *engine.GameObject) bool {
	if root == nil {
		return false
	}
	l, ok := m.links[root.UID]
	return ok && l.AssetID != ""
}

// Link returns the link of an instance root.
func (m *Manager) Link(root *engine.GameObject) (*Link, bool) {
	if root == nil {
		return nil, false
	}
	l, ok := m.links[root.UID]
	return l, ok
}

// Links returns every link, ordered by root id.
func (m *Manager) Links() []*Link {
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Root < links[j].Root })
	return links
}

// AddLink registers a link read from a scene file.
func (m *Manager) AddLink(l *Link) error {
	if l.AssetID == "" {
		return fmt.Errorf("link for %d: %w", l.Root, asset.ErrInvalidID)
	}
	if m.scene.FindByUID(l.Root) == nil {
		return fmt.Errorf("link for %d: %w", l.Root, ErrNotInScene)
	}
	if l.Mods == nil {
		l.Mods = &Modifications{}
	}
	m.links[l.Root] = l
	return nil
}

// RestoreLink replaces the link of rootUID; nil removes it.
func (m *Manager) RestoreLink(rootUID uint64, l *Link) {
	if l == nil {
		delete(m.links, rootUID)
		return
	}
	m.links[rootUID] = l
}

func (m *Manager) link(root *engine.GameObject) (*Link, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil object", ErrNoLink)
	}
	l, ok := m.links[root.UID]
	if !ok || l.AssetID == "" {
		return nil, fmt.Errorf("%q: %w", root.Name, ErrNoLink)
	}
	return l, nil
}

// IsStale reports whether a newer revision of the link's asset exists.
func (m *Manager) IsStale(l *Link) (bool, error) {
	_, rev, err := m.lib.Load(l.AssetID)
	if err != nil {
		return false, err
	}
	return rev != l.Revision, nil
}

// CreatePrefab saves the subtree at root as a new prefab asset and links
// root to it. An empty assetID gets a generated one.
func (m *Manager) CreatePrefab(root *engine.GameObject, assetID string) (*Link, *Report, error) {
	if assetID == "" {
		assetID = asset.NewID()
	}
	if err := asset.ValidateID(assetID); err != nil {
		return nil, nil, err
	}
	var linked error
	root.Walk(func(obj *engine.GameObject) {
		if linked == nil && (obj.PrefabSourceID != 0 || m.links[obj.UID] != nil) {
			linked = fmt.Errorf("create prefab from %q: %q: %w", root.Name, obj.Name, ErrAlreadyLinked)
		}
	})
	if linked != nil {
		return nil, nil, linked
	}

	doc := asset.NewDocument()
	ids := make(map[uint64]uint64)
	root.Walk(func(obj *engine.GameObject) {
		ids[obj.UID] = doc.AllocID()
		for _, c := range obj.Components() {
			ids[c.ID()] = doc.AllocID()
		}
	})

	report := &Report{}
	node, err := m.capture(root, func(id uint64) uint64 { return ids[id] }, report)
	if err != nil {
		return nil, nil, err
	}
	doc.Root = node

	rev, err := m.lib.Create(assetID, doc)
	if err != nil {
		return nil, nil, err
	}

	root.Walk(func(obj *engine.GameObject) {
		obj.PrefabSourceID = ids[obj.UID]
		for _, c := range obj.Components() {
			c.SetSourceID(ids[c.ID()])
		}
	})
	l := &Link{Root: root.UID, AssetID: assetID, Revision: rev, Mods: &Modifications{}}
	// References that left the subtree are overrides of the new instance.
	if mods, err := m.modifications(doc, root); err == nil {
		l.Mods = mods
	}
	m.links[root.UID] = l
	m.logReport(report, logrus.Fields{"asset": assetID, "root": root.UID})
	return l, report, nil
}

// Instantiate builds a linked instance of an asset under parent, or at the
// scene root when parent is nil.
func (m *Manager) Instantiate(assetID string, parent *engine.GameObject) (*engine.GameObject, *Report, error) {
	doc, rev, err := m.lib.Load(assetID)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	t, err := m.build(doc, m.newSceneIDs(nil, doc), report)
	if err != nil {
		return nil, nil, fmt.Errorf("instantiate %s: %w", assetID, err)
	}

	if parent != nil {
		parent.AddChild(t.root)
	}
	m.scene.AddTree(t.root)
	m.links[t.root.UID] = &Link{Root: t.root.UID, AssetID: assetID, Revision: rev, Mods: &Modifications{}}

	m.log.WithFields(logrus.Fields{"asset": assetID, "root": t.root.UID, "revision": rev.Short()}).Debug("prefab instantiated")
	m.logReport(report, logrus.Fields{"asset": assetID, "root": t.root.UID})
	return t.root, report, nil
}

// Modifications diffs an instance against the revision it was built from.
// When that revision is no longer known, the recorded modifications are
// returned.
func (m *Manager) Modifications(root *engine.GameObject) (*Modifications, error) {
	l, err := m.link(root)
	if err != nil {
		return nil, err
	}
	doc, ok := m.lib.Revision(l.AssetID, l.Revision)
	if !ok {
		cur, rev, err := m.lib.Load(l.AssetID)
		if err != nil {
			return nil, err
		}
		if rev != l.Revision {
			return l.Mods.Clone(), nil
		}
		doc = cur
	}
	return m.modifications(doc, root)
}

// RecordModifications stores the current modifications of every instance
// in its link. Call it before saving the scene.
func (m *Manager) RecordModifications() error {
	var errs []error
	for _, l := range m.Links() {
		if err := m.record(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) record(l *Link) error {
	root := m.scene.FindByUID(l.Root)
	if root == nil {
		return fmt.Errorf("link %d: %w", l.Root, ErrNotInScene)
	}
	mods, err := m.Modifications(root)
	if err != nil {
		return fmt.Errorf("record %q: %w", root.Name, err)
	}
	l.Mods = mods
	return nil
}

// BreakPrefabLink turns an instance into plain objects. Values are left
// untouched.
func (m *Manager) BreakPrefabLink(root *engine.GameObject) error {
	l, err := m.link(root)
	if err != nil {
		return err
	}
	m.walkOwn(root, func(obj *engine.GameObject) {
		obj.PrefabSourceID = 0
		for _, c := range obj.Components() {
			c.SetSourceID(0)
		}
	})
	delete(m.links, root.UID)
	m.log.WithFields(logrus.Fields{"asset": l.AssetID, "root": root.UID}).Info("prefab link broken")
	return nil
}

// nestedRoot reports whether obj is the root of an instance other than the
// one at root.
func (m *Manager) nestedRoot(obj, root *engine.GameObject) bool {
	if obj == root {
		return false
	}
	l, ok := m.links[obj.UID]
	return ok && l.AssetID != ""
}

// walkOwn visits the objects of the instance at root. Instances nested in
// it are skipped along with their subtrees.
func (m *Manager) walkOwn(root *engine.GameObject, fn func(*engine.GameObject)) {
	var walk func(obj *engine.GameObject)
	walk = func(obj *engine.GameObject) {
		fn(obj)
		for _, child := range obj.Children {
			if !m.nestedRoot(child, root) {
				walk(child)
			}
		}
	}
	walk(root)
}

func (m *Manager) logReport(r *Report, fields logrus.Fields) {
	for _, w := range r.Warnings {
		m.log.WithFields(fields).WithError(w).Warn("prefab warning")
	}
}

// danglingCount counts the unresolved references in r.
func danglingCount(r *Report) int {
	n := 0
	for _, w := range r.Warnings {
		if errors.Is(w, diff.ErrDanglingReference) {
			n++
		}
	}
	return n
}
