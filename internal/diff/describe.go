package diff

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Line is one leaf change of a record, flattened for display.
type Line struct {
	Path  string `yaml:"path" json:"path"`
	Op    string `yaml:"op" json:"op"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// Describe flattens rec into display lines, depth first in record order.
func Describe(rec *Record) []Line {
	if rec.IsEmpty() {
		return nil
	}
	var lines []Line
	for i := range rec.Entries {
		e := &rec.Entries[i]
		lines = describe(lines, []Step{fieldStep(e.Field)}, &e.Change)
	}
	return lines
}

func describe(lines []Line, path []Step, c *Change) []Line {
	switch c.Op {
	case OpNested:
		for i := range c.Nested.Entries {
			e := &c.Nested.Entries[i]
			lines = describe(lines, appendStep(path, fieldStep(e.Field)), &e.Change)
		}
		return lines

	case OpElements:
		for i := range c.Elements {
			el := &c.Elements[i]
			lines = describe(lines, appendStep(path, indexStep(el.Index)), &el.Change)
		}
		return lines

	case OpEntries:
		for i := range c.Keys {
			ke := &c.Keys[i]
			line := Line{Path: FormatPath(appendStep(path, keyStep(ke.Key))), Op: ke.KeyOp.String()}
			if ke.KeyOp != KeyRemoved {
				line.Value = plain(ke.Value)
			}
			lines = append(lines, line)
		}
		return lines

	case OpRef:
		return append(lines, Line{Path: FormatPath(path), Op: c.Op.String(), Value: describeRef(c.Ref)})
	}
	return append(lines, Line{Path: FormatPath(path), Op: c.Op.String(), Value: plain(c.Value)})
}

func describeRef(r *Ref) string {
	if r == nil || r.ID == 0 {
		return "none"
	}
	if r.Local {
		if r.Path != "" {
			return fmt.Sprintf("local:%d (%s)", r.ID, r.Path)
		}
		return fmt.Sprintf("local:%d", r.ID)
	}
	return fmt.Sprintf("#%d", r.ID)
}

func plain(raw cbor.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := cbor.Unmarshal(raw, &v); err != nil {
		return fmt.Sprintf("<%x>", []byte(raw))
	}
	return v
}
