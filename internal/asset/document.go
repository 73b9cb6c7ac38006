// Package asset holds prefab documents and the stores that persist them.
//
// A Document is the saved form of a prefab: a tree of nodes, each with
// its properties and encoded component data. Node and component ids are
// allocated from the document's own counter and never reused, so an
// instance can name the prefab node it came from across edits.
package asset

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/jinzhu/copier"
)

// FormatVersion is written into every new document.
const FormatVersion = 1

var ErrInvalidDocument = errors.New("invalid prefab document")

type Vec3 [3]float32

type Document struct {
	Version int    `cbor:"version"`
	NextID  uint64 `cbor:"next_id"`
	Root    *Node  `cbor:"root"`
}

type Node struct {
	ID         uint64          `cbor:"id"`
	Name       string          `cbor:"name"`
	Tags       []string        `cbor:"tags,omitempty"`
	Active     bool            `cbor:"active"`
	Position   Vec3            `cbor:"position"`
	Rotation   Vec3            `cbor:"rotation"`
	Scale      Vec3            `cbor:"scale"`
	Components []ComponentData `cbor:"components,omitempty"`
	Children   []*Node         `cbor:"children,omitempty"`
}

// ComponentData is one component of a node. Data is the CBOR encoding of
// the component value; references inside it hold document ids.
type ComponentData struct {
	ID   uint64          `cbor:"id"`
	Type string          `cbor:"type"`
	Data cbor.RawMessage `cbor:"data"`
}

func NewDocument() *Document {
	return &Document{Version: FormatVersion, NextID: 1}
}

// AllocID returns a fresh id for a node or component.
func (d *Document) AllocID() uint64 {
	if d.NextID == 0 {
		d.NextID = 1
	}
	id := d.NextID
	d.NextID++
	return id
}

// Walk visits every node depth first, parents before children.
func (d *Document) Walk(fn func(n *Node)) {
	if d.Root != nil {
		d.Root.walk(fn)
	}
}

func (n *Node) walk(fn func(n *Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// Find returns the node with the given id.
func (d *Document) Find(id uint64) *Node {
	var found *Node
	d.Walk(func(n *Node) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// IDs returns every node and component id in the document.
func (d *Document) IDs() map[uint64]bool {
	ids := make(map[uint64]bool)
	d.Walk(func(n *Node) {
		ids[n.ID] = true
		for _, c := range n.Components {
			ids[c.ID] = true
		}
	})
	return ids
}

// Validate checks that the document has a root, that ids are unique and
// non-zero, and that NextID is past every id in use.
func (d *Document) Validate() error {
	if d.Root == nil {
		return fmt.Errorf("%w: no root node", ErrInvalidDocument)
	}
	seen := make(map[uint64]bool)
	var err error
	check := func(id uint64, what string) {
		switch {
		case err != nil:
		case id == 0:
			err = fmt.Errorf("%w: %s with id 0", ErrInvalidDocument, what)
		case seen[id]:
			err = fmt.Errorf("%w: duplicate id %d", ErrInvalidDocument, id)
		case id >= d.NextID:
			err = fmt.Errorf("%w: id %d not below next id %d", ErrInvalidDocument, id, d.NextID)
		}
		seen[id] = true
	}
	d.Walk(func(n *Node) {
		check(n.ID, "node "+n.Name)
		for _, c := range n.Components {
			if c.Type == "" && err == nil {
				err = fmt.Errorf("%w: component %d has no type", ErrInvalidDocument, c.ID)
			}
			check(c.ID, "component "+c.Type)
		}
	})
	return err
}

// Clone returns a deep copy. Documents handed out by a Library are shared
// and must be cloned before they are modified.
func (d *Document) Clone() (*Document, error) {
	var out Document
	if err := copier.CopyWithOption(&out, d, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return &out, nil
}
