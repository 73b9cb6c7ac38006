package prefab

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLink is returned for objects that are not the root of a prefab
	// instance.
	ErrNoLink = errors.New("no prefab link")

	// ErrStale means the instance was built from an older revision than the
	// one stored. Reconcile it first.
	ErrStale = errors.New("prefab instance is stale")

	ErrAlreadyLinked = errors.New("object already belongs to a prefab instance")
	ErrUnknownType   = errors.New("unknown component type")
	ErrAssetExists   = errors.New("prefab asset already exists")
	ErrNotInScene    = errors.New("object is not in the scene")
)

// Report collects the soft failures of an operation: references that could
// not be resolved and modifications whose target no longer exists.
type Report struct {
	Warnings []error
}

func (r *Report) warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

func (r *Report) merge(other *Report) {
	if other != nil {
		r.Warnings = append(r.Warnings, other.Warnings...)
	}
}

// Empty reports whether there were no warnings.
func (r *Report) Empty() bool {
	return r == nil || len(r.Warnings) == 0
}

// Err joins the warnings into one error, or returns nil.
func (r *Report) Err() error {
	if r.Empty() {
		return nil
	}
	return errors.Join(r.Warnings...)
}

func (r *Report) String() string {
	if r.Empty() {
		return "no warnings"
	}
	return fmt.Sprintf("%d warning(s): %v", len(r.Warnings), r.Err())
}
