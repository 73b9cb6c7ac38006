package prefab

import (
	"fmt"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
	"mirgo/internal/engine"
)

// capture encodes the subtree at root into document nodes. idOf maps the
// id of an object or component in the subtree to its document id and
// returns 0 for ids outside it. References inside component data are
// mapped the same way; references leaving the subtree are cleared and
// reported. The subtree itself is not modified.
func (m *Manager) capture(root *engine.GameObject, idOf func(uint64) uint64, report *Report) (*asset.Node, error) {
	n := &asset.Node{ID: idOf(root.UID)}
	if n.ID == 0 {
		return nil, fmt.Errorf("capture %q: no document id for object %d", root.Name, root.UID)
	}
	propsOf(root).toNode(n)

	for _, c := range root.Components() {
		cp, name, err := m.copyComponent(c)
		if err != nil {
			return nil, fmt.Errorf("capture %q: %w", root.Name, err)
		}
		s, err := m.shapeOf(cp)
		if err != nil {
			return nil, err
		}
		err = diff.RemapRefs(s, cp, func(id uint64) uint64 {
			to := idOf(id)
			if to == 0 {
				report.warn(fmt.Errorf("%w: %s.%s -> %d is outside the prefab", diff.ErrDanglingReference, root.Name, name, id))
			}
			return to
		})
		if err != nil {
			return nil, err
		}
		data, err := diff.Marshal(cp)
		if err != nil {
			return nil, fmt.Errorf("capture %q: encode %s: %w", root.Name, name, err)
		}
		id := idOf(c.ID())
		if id == 0 {
			return nil, fmt.Errorf("capture %q: no document id for component %s", root.Name, name)
		}
		n.Components = append(n.Components, asset.ComponentData{ID: id, Type: name, Data: data})
	}

	for _, child := range root.Children {
		cn, err := m.capture(child, idOf, report)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}
