package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Revision identifies the content of a saved document: the hex SHA-256 of
// its canonical encoding.
type Revision string

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("asset: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Encode returns the canonical encoding of doc. Equal documents encode to
// equal bytes.
func Encode(doc *Document) ([]byte, error) {
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("%w: format version %d is newer than %d", ErrInvalidDocument, doc.Version, FormatVersion)
	}
	return &doc, nil
}

func RevisionOf(data []byte) Revision {
	sum := sha256.Sum256(data)
	return Revision(hex.EncodeToString(sum[:]))
}

// Short is the first 12 hex digits, for display.
func (r Revision) Short() string {
	if len(r) > 12 {
		return string(r[:12])
	}
	return string(r)
}
