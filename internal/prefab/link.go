package prefab

import (
	"fmt"

	"mirgo/internal/asset"
	"mirgo/internal/diff"
)

// Link ties the root of an instance subtree to the prefab asset it was
// built from.
type Link struct {
	Root     uint64         `cbor:"root" json:"root"`
	AssetID  string         `cbor:"asset" json:"asset"`
	Revision asset.Revision `cbor:"revision" json:"revision"`
	Mods     *Modifications `cbor:"mods,omitempty" json:"-"`
}

// Clone returns a deep copy of l.
func (l *Link) Clone() *Link {
	out := *l
	out.Mods = l.Mods.Clone()
	return &out
}

// NodeKey names a node of the prefab document: primarily by its id, with
// the name path below the prefab root as fallback.
type NodeKey struct {
	Source uint64 `cbor:"source,omitempty"`
	Path   string `cbor:"path,omitempty"`
}

func (k NodeKey) String() string {
	if k.Path == "" {
		return fmt.Sprintf("#%d (root)", k.Source)
	}
	return fmt.Sprintf("#%d (%s)", k.Source, k.Path)
}

// ObjectOverride is a diff of an object's properties against the prefab.
type ObjectOverride struct {
	Node   NodeKey      `cbor:"node"`
	Record *diff.Record `cbor:"record"`
}

// ComponentOverride is a diff of a prefab component's fields.
type ComponentOverride struct {
	Node      NodeKey      `cbor:"node"`
	Component uint64       `cbor:"component"`
	Type      string       `cbor:"type"`
	Record    *diff.Record `cbor:"record"`
}

// AddedComponent is a component the instance has and the prefab does not.
// Record is a diff against the component's defaults. UID is the
// component's scene id, kept so references to it survive a rebuild.
type AddedComponent struct {
	Node   NodeKey      `cbor:"node"`
	UID    uint64       `cbor:"uid"`
	Type   string       `cbor:"type"`
	Record *diff.Record `cbor:"record,omitempty"`
}

// ComponentKey names a prefab component removed from the instance.
type ComponentKey struct {
	Node      NodeKey `cbor:"node"`
	Component uint64  `cbor:"component"`
}

// AddedObject is an object subtree that exists only on the instance.
// Nested marks the root of another prefab instance placed in this one. Only
// its UID is recorded; a rebuild carries the nested instance over as it is.
type AddedObject struct {
	UID        uint64           `cbor:"uid"`
	Nested     bool             `cbor:"nested,omitempty"`
	Props      *diff.Record     `cbor:"props,omitempty"`
	Components []AddedComponent `cbor:"components,omitempty"`
	Children   []*AddedObject   `cbor:"children,omitempty"`
}

// AddedChild places an AddedObject under a prefab node.
type AddedChild struct {
	Parent NodeKey      `cbor:"parent"`
	Index  int          `cbor:"index"`
	Object *AddedObject `cbor:"object"`
}

// Modifications is everything an instance changes relative to its prefab.
// Replayed in field order: overrides first, then removals, then additions.
type Modifications struct {
	Objects           []ObjectOverride    `cbor:"objects,omitempty"`
	Components        []ComponentOverride `cbor:"components,omitempty"`
	RemovedComponents []ComponentKey      `cbor:"removed_components,omitempty"`
	RemovedChildren   []NodeKey           `cbor:"removed_children,omitempty"`
	AddedComponents   []AddedComponent    `cbor:"added_components,omitempty"`
	AddedChildren     []AddedChild        `cbor:"added_children,omitempty"`
}

// IsEmpty reports whether the instance matches its prefab.
func (m *Modifications) IsEmpty() bool {
	return m.Count() == 0
}

// Count is the number of top level modifications.
func (m *Modifications) Count() int {
	if m == nil {
		return 0
	}
	return len(m.Objects) + len(m.Components) + len(m.RemovedComponents) +
		len(m.RemovedChildren) + len(m.AddedComponents) + len(m.AddedChildren)
}

func (m *Modifications) Marshal() ([]byte, error) {
	if m == nil {
		m = &Modifications{}
	}
	return diff.Marshal(m)
}

func UnmarshalModifications(data []byte) (*Modifications, error) {
	var m Modifications
	if len(data) == 0 {
		return &m, nil
	}
	if err := diff.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode modifications: %w", err)
	}
	return &m, nil
}

// Clone returns a deep copy. A nil receiver clones to an empty set.
func (m *Modifications) Clone() *Modifications {
	if m.IsEmpty() {
		return &Modifications{}
	}
	data, err := m.Marshal()
	if err != nil {
		panic(fmt.Sprintf("prefab: encode modifications: %v", err))
	}
	out, err := UnmarshalModifications(data)
	if err != nil {
		panic(fmt.Sprintf("prefab: decode modifications: %v", err))
	}
	return out
}
