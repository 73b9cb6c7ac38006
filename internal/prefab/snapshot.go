package prefab

import (
	"fmt"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
)

// Snapshot captures an instance as a document next to the revision it was
// built from, for side by side display. Objects and components that came
// from the prefab keep their document ids; instance additions get ids past
// the document's NextID. References leaving the instance are cleared. The
// root transform is taken from the source, since it is not an override.
func (m *Manager) Snapshot(root *engine.GameObject) (source, current *asset.Document, err error) {
	l, err := m.link(root)
	if err != nil {
		return nil, nil, err
	}
	source, ok := m.lib.Revision(l.AssetID, l.Revision)
	if !ok {
		if source, _, err = m.lib.Load(l.AssetID); err != nil {
			return nil, nil, err
		}
	}

	inDoc := source.IDs()
	next := source.NextID
	ids := make(map[uint64]uint64)
	alloc := func(local, src uint64) {
		if src != 0 && inDoc[src] {
			ids[local] = src
			return
		}
		ids[local] = next
		next++
	}
	// Source ids inside nested instances belong to other documents.
	own := make(map[*engine.GameObject]bool)
	m.walkOwn(root, func(obj *engine.GameObject) { own[obj] = true })
	root.Walk(func(obj *engine.GameObject) {
		if !own[obj] {
			alloc(obj.UID, 0)
			for _, c := range obj.Components() {
				alloc(c.ID(), 0)
			}
			return
		}
		alloc(obj.UID, obj.PrefabSourceID)
		for _, c := range obj.Components() {
			alloc(c.ID(), c.SourceID())
		}
	})
	ids[root.UID] = source.Root.ID

	node, err := m.capture(root, func(id uint64) uint64 { return ids[id] }, &Report{})
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %q: %w", root.Name, err)
	}
	node.Position, node.Rotation, node.Scale = source.Root.Position, source.Root.Rotation, source.Root.Scale

	current = &asset.Document{Version: source.Version, NextID: next, Root: node}
	return source, current, nil
}
