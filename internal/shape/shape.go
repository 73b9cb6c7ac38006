// Package shape describes serializable Go types as ordered field lists.
//
// A Shape is built once per struct type by a Registry and never changes
// afterwards. The diff engine walks values through their Shape instead of
// through raw reflection, so every consumer agrees on field order, field
// names and which fields are references.
package shape

import (
	"fmt"
	"reflect"
)

// Kind classifies a field or collection element.
type Kind int

const (
	Primitive Kind = iota
	Object
	Array
	List
	Dictionary
	Reference
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Object:
		return "object"
	case Array:
		return "array"
	case List:
		return "list"
	case Dictionary:
		return "dictionary"
	case Reference:
		return "reference"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Referencer is implemented by value types that point at another graph node
// by id. The id 0 means "no target". Fields of such types have Kind
// Reference.
type Referencer interface {
	TargetID() uint64
}

// ReferenceSetter is implemented by the pointer of a Referencer type.
type ReferenceSetter interface {
	SetTargetID(id uint64)
}

// Type describes the static type of a field or collection element.
type Type struct {
	Kind Kind
	Go   reflect.Type

	// Nullable is set for objects held through a pointer.
	Nullable bool

	// Shape is the nested object's shape (Object only).
	Shape *Shape

	// Elem is the element type of arrays and lists, and the value type of
	// dictionaries.
	Elem *Type

	// Key is the key type of dictionaries. Always Primitive.
	Key *Type

	// Len is the fixed length of arrays.
	Len int
}

// Field is one serialized struct field.
type Field struct {
	Name  string
	Index int
	Type  *Type
}

// Shape is the ordered field list of a struct type.
type Shape struct {
	Name   string
	Go     reflect.Type
	Fields []Field

	byName map[string]int
}

// Field looks up a field by its serialized name.
func (s *Shape) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Conforms reports whether v (a struct or a pointer to one) has this shape.
func (s *Shape) Conforms(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == s.Go
}

// CopyFields sets the shape's fields of dst to those of src. Both must be
// pointers to structs of this shape. Values are copied shallowly; fields
// outside the shape keep what dst had.
func (s *Shape) CopyFields(dst, src any) error {
	d, sv := reflect.ValueOf(dst), reflect.ValueOf(src)
	if d.Kind() != reflect.Pointer || sv.Kind() != reflect.Pointer || d.IsNil() || sv.IsNil() {
		return fmt.Errorf("copy %s: want two struct pointers, got %T and %T", s.Name, dst, src)
	}
	d, sv = d.Elem(), sv.Elem()
	if d.Type() != s.Go || sv.Type() != s.Go {
		return fmt.Errorf("copy %s: got %s and %s", s.Name, d.Type(), sv.Type())
	}
	for _, f := range s.Fields {
		d.Field(f.Index).Set(sv.Field(f.Index))
	}
	return nil
}

func (s *Shape) String() string {
	return s.Name
}
