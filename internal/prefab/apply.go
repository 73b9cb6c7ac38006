package prefab

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
)

// ApplyPrefab writes an instance's modifications into its prefab asset.
//
// The modifications are replayed on a fresh build of the stored document,
// never on the shared snapshot, and the result is saved as a new revision.
// A stale instance is reconciled first. Other instances of the asset in
// this scene have their modifications recorded against the old revision
// and are reconciled after the save. If the save fails the scene and every
// link are left unchanged.
func (m *Manager) ApplyPrefab(root *engine.GameObject) (*Report, error) {
	l, err := m.link(root)
	if err != nil {
		return nil, err
	}
	report := &Report{}

	stale, err := m.IsStale(l)
	if err != nil {
		return nil, err
	}
	if stale {
		newRoot, r, err := m.Reconcile(root)
		if err != nil {
			return nil, fmt.Errorf("apply %q: %w", root.Name, err)
		}
		report.merge(r)
		root = newRoot
		l = m.links[root.UID]
	}

	mods, err := m.Modifications(root)
	if err != nil {
		return nil, err
	}

	// Others replay their own edits on the new structure later.
	others := make(map[uint64]*Modifications)
	for _, other := range m.Links() {
		if other.AssetID != l.AssetID || other.Root == l.Root {
			continue
		}
		if err := m.record(other); err != nil {
			return nil, fmt.Errorf("apply %q: %w", root.Name, err)
		}
		others[other.Root] = other.Mods
	}

	var added map[uint64]uint64
	var saved *asset.Document
	rev, err := m.lib.Update(l.AssetID, func(cur *asset.Document, curRev asset.Revision) (*asset.Document, error) {
		if cur == nil {
			return nil, fmt.Errorf("apply %s: %w", l.AssetID, asset.ErrNotFound)
		}
		if curRev != l.Revision {
			return nil, fmt.Errorf("apply %s: %w", l.AssetID, ErrStale)
		}
		next, a, err := m.merge(cur, mods, report)
		if err != nil {
			return nil, err
		}
		added, saved = a, next
		return next, nil
	})
	if err != nil {
		if errors.Is(err, asset.ErrPersistence) {
			m.log.WithFields(logrus.Fields{"asset": l.AssetID, "root": root.UID}).WithError(err).Error("prefab save failed")
		}
		return nil, err
	}

	// Objects and components the instance added now exist in the prefab.
	m.walkOwn(root, func(obj *engine.GameObject) {
		if id, ok := added[obj.UID]; ok {
			obj.PrefabSourceID = id
		}
		for _, c := range obj.Components() {
			if id, ok := added[c.ID()]; ok {
				c.SetSourceID(id)
			}
		}
	})
	l.Revision = rev
	l.Mods, err = m.modifications(saved, root)
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"asset":    l.AssetID,
		"root":     root.UID,
		"revision": rev.Short(),
		"applied":  mods.Count(),
	}).Info("prefab applied")

	if len(others) > 0 {
		_, r, err := m.reconcileStale(l.AssetID)
		if err != nil {
			return report, fmt.Errorf("apply %q: update other instances: %w", root.Name, err)
		}
		report.merge(r)
	}
	m.logReport(report, logrus.Fields{"asset": l.AssetID, "root": root.UID})
	return report, nil
}

// merge replays mods on a build of cur that uses document ids and captures
// the result as a new document. Objects and components added by mods get
// fresh document ids; added maps their scene ids to them. References to
// objects outside the prefab are cleared and reported.
func (m *Manager) merge(cur *asset.Document, mods *Modifications, report *Report) (*asset.Document, map[uint64]uint64, error) {
	t, err := m.build(cur, assetIDs{}, report)
	if err != nil {
		return nil, nil, err
	}

	next := &asset.Document{Version: asset.FormatVersion, NextID: cur.NextID}
	// Nested instances stay instance additions.
	r := m.replay(t, mods, func(uint64) uint64 { return next.AllocID() }, false, report)

	ids := t.ids()
	report.Warnings = append(report.Warnings, t.pending.Resolve(r.resolver(ids, func(uint64) bool { return false }))...)

	root, err := m.capture(t.root, func(id uint64) uint64 {
		if ids[id] {
			return id
		}
		return 0
	}, report)
	if err != nil {
		return nil, nil, err
	}
	next.Root = root
	return next, r.added, nil
}
