package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Load for an unknown asset id.
	ErrNotFound = errors.New("asset not found")

	// ErrPersistence wraps storage failures. A failed Save leaves the
	// previously stored document in place.
	ErrPersistence = errors.New("asset persistence failed")

	ErrInvalidID = errors.New("invalid asset id")
)

// Store persists prefab documents by asset id. Save must be atomic: a
// reader sees either the old or the new document, never a mix.
type Store interface {
	Load(id string) (*Document, Revision, error)
	Save(id string, doc *Document) (Revision, error)
	List() ([]string, error)
}

// NewID returns a fresh asset id.
func NewID() string {
	return uuid.NewString()
}

// ValidateID rejects ids that cannot be used as a file name.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// encodeForSave validates doc and returns its encoding and revision.
func encodeForSave(id string, doc *Document) ([]byte, Revision, error) {
	if err := ValidateID(id); err != nil {
		return nil, "", err
	}
	if err := doc.Validate(); err != nil {
		return nil, "", fmt.Errorf("save %s: %w", id, err)
	}
	data, err := Encode(doc)
	if err != nil {
		return nil, "", fmt.Errorf("save %s: %w", id, err)
	}
	return data, RevisionOf(data), nil
}
