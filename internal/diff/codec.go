package diff

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Canonical mode keeps encodings byte-stable, which makes records
// comparable and dictionary keys sortable.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("diff: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes v with the canonical CBOR mode used for diff values.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR produced by Marshal.
func Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func encode(v reflect.Value) (cbor.RawMessage, error) {
	data, err := encMode.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Type(), err)
	}
	return data, nil
}

func decode(raw cbor.RawMessage, t reflect.Type) (reflect.Value, error) {
	p := reflect.New(t)
	if len(raw) == 0 {
		return p.Elem(), nil
	}
	if err := cbor.Unmarshal(raw, p.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("decode %s: %w", t, err)
	}
	return p.Elem(), nil
}
