// Package diff computes and replays sparse structural differences between
// two values of the same shape.
package diff

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrShapeMismatch means the inputs do not share a shape, or a record
	// names a field the target shape does not have.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDanglingReference is reported when a deferred reference has no live
	// target after resolution. The reference is cleared.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrMissingPathNode is reported when an entry addresses an element or
	// node that no longer exists in the target. The entry is skipped.
	ErrMissingPathNode = errors.New("missing path node")
)

// Op says how a Change rewrites its field.
type Op uint8

const (
	OpSet Op = iota + 1
	OpReplace
	OpNested
	OpElements
	OpEntries
	OpRef
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpReplace:
		return "replace"
	case OpNested:
		return "nested"
	case OpElements:
		return "elements"
	case OpEntries:
		return "entries"
	case OpRef:
		return "ref"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// KeyOp is the kind of a dictionary entry change.
type KeyOp uint8

const (
	KeyAdded KeyOp = iota + 1
	KeyRemoved
	KeyChanged
)

func (k KeyOp) String() string {
	switch k {
	case KeyAdded:
		return "added"
	case KeyRemoved:
		return "removed"
	case KeyChanged:
		return "changed"
	}
	return fmt.Sprintf("keyop(%d)", uint8(k))
}

// Ref is the canonical target of a reference. Local targets live inside the
// graph being diffed and are identified by their source id; other targets
// carry a live instance id. Path is the target's name path, used when the id
// cannot be matched.
type Ref struct {
	ID    uint64 `cbor:"id"`
	Local bool   `cbor:"local,omitempty"`
	Path  string `cbor:"path,omitempty"`
}

func (r Ref) sameTarget(o Ref) bool {
	return r.ID == o.ID && r.Local == o.Local
}

// StepKind selects which part of a Step is meaningful.
type StepKind uint8

const (
	StepField StepKind = iota + 1
	StepIndex
	StepKey
)

// Step is one hop of a path inside a value.
type Step struct {
	Kind  StepKind        `cbor:"k"`
	Field string          `cbor:"f,omitempty"`
	Index int             `cbor:"i,omitempty"`
	Key   cbor.RawMessage `cbor:"key,omitempty"`
}

// EmbeddedRef is a reference found inside a wholesale value, addressed
// relative to that value.
type EmbeddedRef struct {
	Path []Step `cbor:"path,omitempty"`
	Ref  Ref    `cbor:"ref"`
}

// Change is the payload of an entry, element or dictionary key.
type Change struct {
	Op       Op              `cbor:"op,omitempty"`
	Value    cbor.RawMessage `cbor:"value,omitempty"`
	Ref      *Ref            `cbor:"ref,omitempty"`
	Refs     []EmbeddedRef   `cbor:"refs,omitempty"`
	Nested   *Record         `cbor:"nested,omitempty"`
	Elements []Element       `cbor:"elements,omitempty"`
	Keys     []KeyEntry      `cbor:"keys,omitempty"`
}

// Entry is a changed field.
type Entry struct {
	Field string `cbor:"field"`
	Change
}

// Element is a changed array or list index.
type Element struct {
	Index int `cbor:"index"`
	Change
}

// KeyEntry is an added, removed or changed dictionary key. Key is the
// canonical encoding of the key value.
type KeyEntry struct {
	Key   cbor.RawMessage `cbor:"key"`
	KeyOp KeyOp           `cbor:"keyop"`
	Change
}

// Record is the diff of one object. Entries only name fields that differ
// and are kept in shape order.
type Record struct {
	Shape   string  `cbor:"shape,omitempty"`
	Entries []Entry `cbor:"entries,omitempty"`
}

// IsEmpty reports whether the record changes nothing.
func (r *Record) IsEmpty() bool {
	return r == nil || len(r.Entries) == 0
}

// Entry returns the entry for a field.
func (r *Record) Entry(field string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Entries {
		if r.Entries[i].Field == field {
			return &r.Entries[i], true
		}
	}
	return nil, false
}

// Marshal encodes a record canonically.
func (r *Record) Marshal() ([]byte, error) {
	return Marshal(r)
}

// UnmarshalRecord decodes a record produced by Marshal.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("diff: unmarshal record: %w", err)
	}
	return &r, nil
}

// Equal compares two records by their canonical encoding.
func Equal(a, b *Record) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return true
	}
	ea, err := Marshal(a)
	if err != nil {
		return false
	}
	eb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
