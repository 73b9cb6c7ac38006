package prefab

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
)

// rebuild is one instance being replaced by a fresh build of its asset.
type rebuild struct {
	old  *engine.GameObject
	link *Link
	mods *Modifications
	doc  *asset.Document
	rev  asset.Revision

	t   *tree
	r   *replayer
	ids map[uint64]bool
}

// Reconcile rebuilds an instance from the current revision of its asset
// and replays its modifications. Nodes matched by source id (or, failing
// that, by name path) keep their UIDs; the root keeps its parent, sibling
// index and local transform. It returns the new root.
func (m *Manager) Reconcile(root *engine.GameObject) (*engine.GameObject, *Report, error) {
	l, err := m.link(root)
	if err != nil {
		return nil, nil, err
	}
	mods, err := m.Modifications(root)
	if err != nil {
		return nil, nil, err
	}
	roots, report, err := m.rebuild([]*rebuild{{old: root, link: l, mods: mods}})
	if err != nil {
		return nil, nil, err
	}
	return roots[0], report, nil
}

// RevertPrefab discards an instance's modifications and rebuilds it from
// the current revision of its asset. It returns the new root.
func (m *Manager) RevertPrefab(root *engine.GameObject) (*engine.GameObject, *Report, error) {
	l, err := m.link(root)
	if err != nil {
		return nil, nil, err
	}
	roots, report, err := m.rebuild([]*rebuild{{old: root, link: l, mods: &Modifications{}}})
	if err != nil {
		return nil, nil, err
	}
	m.log.WithFields(logrus.Fields{"asset": l.AssetID, "root": root.UID}).Info("prefab instance reverted")
	return roots[0], report, nil
}

// ReconcileStale reconciles every instance whose asset has a newer
// revision, as one batch: references between the rebuilt instances are
// resolved against the rebuilt objects. It returns the number of instances
// rebuilt.
func (m *Manager) ReconcileStale() (int, *Report, error) {
	return m.reconcileStale("")
}

func (m *Manager) reconcileStale(assetID string) (int, *Report, error) {
	var batch []*rebuild
	for _, l := range m.Links() {
		if assetID != "" && l.AssetID != assetID {
			continue
		}
		stale, err := m.IsStale(l)
		if err != nil {
			return 0, nil, fmt.Errorf("reconcile %s: %w", l.AssetID, err)
		}
		if !stale {
			continue
		}
		root := m.scene.FindByUID(l.Root)
		if root == nil {
			return 0, nil, fmt.Errorf("reconcile link %d: %w", l.Root, ErrNotInScene)
		}
		mods, err := m.Modifications(root)
		if err != nil {
			return 0, nil, err
		}
		batch = append(batch, &rebuild{old: root, link: l, mods: mods})
	}
	if len(batch) == 0 {
		return 0, &Report{}, nil
	}
	_, report, err := m.rebuild(batch)
	if err != nil {
		return 0, nil, err
	}
	return len(batch), report, nil
}

// rebuild replaces every instance of batch. All builds, replays and
// reference resolution happen before the scene is touched; on error the
// scene is left as it was.
func (m *Manager) rebuild(batch []*rebuild) ([]*engine.GameObject, *Report, error) {
	report := &Report{}
	replaced := make(map[uint64]bool)

	for _, b := range batch {
		doc, rev, err := m.lib.Load(b.link.AssetID)
		if err != nil {
			return nil, nil, fmt.Errorf("reconcile %q: %w", b.old.Name, err)
		}
		b.doc, b.rev = doc, rev

		t, err := m.build(doc, m.newSceneIDs(b.old, doc), report)
		if err != nil {
			return nil, nil, fmt.Errorf("reconcile %q: %w", b.old.Name, err)
		}
		t.root.Transform = b.old.Transform

		used := t.ids()
		b.t = t
		b.r = m.replay(t, b.mods, func(uid uint64) uint64 {
			if uid == 0 || used[uid] {
				uid = engine.NextUID()
			}
			used[uid] = true
			return uid
		}, true, report)
		b.ids = t.ids()

		m.walkOwn(b.old, func(obj *engine.GameObject) {
			replaced[obj.UID] = true
			for _, c := range obj.Components() {
				replaced[c.ID()] = true
			}
		})
	}

	// A reference may point into any instance of the batch, or at an
	// object of the scene that is not being replaced.
	external := func(id uint64) bool {
		for _, b := range batch {
			if b.ids[id] {
				return true
			}
		}
		return m.scene.Contains(id) && !replaced[id]
	}
	for _, b := range batch {
		warnings := b.t.pending.Resolve(b.r.resolver(b.ids, external))
		report.Warnings = append(report.Warnings, warnings...)
	}

	if m.strict {
		if n := danglingCount(report); n > 0 {
			return nil, nil, fmt.Errorf("reconcile: %d unresolved reference(s): %w", n, report.Err())
		}
	}

	roots := make([]*engine.GameObject, len(batch))
	for i, b := range batch {
		m.carryNested(b, report)
		m.Swap(b.old, b.t.root)
		if b.t.root.UID != b.link.Root {
			delete(m.links, b.link.Root)
		}
		mods, err := m.modifications(b.doc, b.t.root)
		if err != nil {
			mods = b.mods
			report.warn(err)
		}
		m.links[b.t.root.UID] = &Link{Root: b.t.root.UID, AssetID: b.link.AssetID, Revision: b.rev, Mods: mods}
		roots[i] = b.t.root

		m.log.WithFields(logrus.Fields{
			"asset":    b.link.AssetID,
			"root":     b.t.root.UID,
			"revision": b.rev.Short(),
			"mods":     mods.Count(),
		}).Info("prefab instance rebuilt")
	}
	m.dropOrphans()
	m.logReport(report, logrus.Fields{"op": "reconcile"})
	return roots, report, nil
}

// carryNested hands the slots of b's build to Swap, which fills them with
// the nested instances of b.old. Slots whose instance is gone are removed.
func (m *Manager) carryNested(b *rebuild, report *Report) {
	for _, slot := range b.r.slots {
		if m.scene.FindByUID(slot.UID) == nil {
			report.warn(fmt.Errorf("nested instance %d: %w", slot.UID, ErrNotInScene))
			if slot.Parent != nil {
				slot.Parent.RemoveChild(slot)
			}
			continue
		}
		m.slots[slot] = true
	}
}

// dropOrphans forgets links whose root left the scene with a replaced
// subtree, as nested instances do on revert.
func (m *Manager) dropOrphans() {
	for uid, l := range m.links {
		if m.scene.FindByUID(uid) == nil {
			delete(m.links, uid)
			m.log.WithFields(logrus.Fields{"asset": l.AssetID, "root": uid}).Debug("prefab link dropped")
		}
	}
}

// Swap puts replacement where current is, under the same parent at the
// same sibling index. current leaves the scene with its subtree intact.
// Nested instances of current move into the slots replacement holds for
// them, and the slots take their place in current.
func (m *Manager) Swap(current, replacement *engine.GameObject) {
	var slots []*engine.GameObject
	replacement.Walk(func(obj *engine.GameObject) {
		if m.slots[obj] {
			slots = append(slots, obj)
		}
	})
	for _, slot := range slots {
		nested := m.scene.FindByUID(slot.UID)
		if nested == nil || nested == current || !within(nested, current) || slot.Parent == nil {
			continue
		}
		at, atIndex := nested.Parent, nested.Parent.ChildIndex(nested)
		to, toIndex := slot.Parent, slot.Parent.ChildIndex(slot)
		m.scene.RemoveGameObject(nested)
		to.RemoveChild(slot)
		at.InsertChild(atIndex, slot)
		to.InsertChild(toIndex, nested)
	}

	parent := current.Parent
	index := -1
	if parent != nil {
		index = parent.ChildIndex(current)
	}
	m.scene.RemoveGameObject(current)
	if parent != nil {
		parent.InsertChild(index, replacement)
	}
	m.scene.AddTree(replacement)
}

// within reports whether obj is below root.
func within(obj, root *engine.GameObject) bool {
	for p := obj.Parent; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
