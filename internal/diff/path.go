package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

func fieldStep(name string) Step { return Step{Kind: StepField, Field: name} }

func indexStep(i int) Step { return Step{Kind: StepIndex, Index: i} }

func keyStep(raw cbor.RawMessage) Step { return Step{Kind: StepKey, Key: raw} }

// appendStep never shares the backing array of path.
func appendStep(path []Step, s Step) []Step {
	p := make([]Step, len(path)+1)
	copy(p, path)
	p[len(path)] = s
	return p
}

func joinPath(base, rel []Step) []Step {
	p := make([]Step, 0, len(base)+len(rel))
	p = append(p, base...)
	return append(p, rel...)
}

// FormatPath renders a path as Field.Sub[2]{key}.
func FormatPath(path []Step) string {
	var b strings.Builder
	for _, s := range path {
		switch s.Kind {
		case StepField:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Field)
		case StepIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
		case StepKey:
			b.WriteByte('{')
			b.WriteString(formatKey(s.Key))
			b.WriteByte('}')
		}
	}
	return b.String()
}

func formatKey(raw cbor.RawMessage) string {
	var k any
	if err := cbor.Unmarshal(raw, &k); err != nil {
		return fmt.Sprintf("%x", []byte(raw))
	}
	if s, ok := k.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(k)
}
