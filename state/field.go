package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind is the presence state of a Field.
type Kind uint8

const (
	// KindUnset means the snapshot says nothing about the field; apply
	// leaves the live element untouched.
	KindUnset Kind = iota
	// KindRemove means the field must be absent on the live element.
	KindRemove
	// KindValue means the field holds a value, possibly the empty string.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindRemove:
		return "remove"
	case KindValue:
		return "value"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is a tri-state snapshot field: Unset, Remove or Value(v).
// The zero Field is Unset.
type Field struct {
	kind  Kind
	value string
}

// Value returns a Field holding v. The empty string is a real value.
func Value(v string) Field { return Field{kind: KindValue, value: v} }

// Remove returns a Field asking for the attribute or content to be removed.
func Remove() Field { return Field{kind: KindRemove} }

// Kind reports the presence state.
func (f Field) Kind() Kind { return f.kind }

// Get returns the value and true when the field holds a value.
func (f Field) Get() (string, bool) {
	return f.value, f.kind == KindValue
}

// IsZero reports whether the field is Unset. It lets encoding/json omit
// unset fields via the omitzero option.
func (f Field) IsZero() bool { return f.kind == KindUnset }

// truthy mirrors a loose truthiness check: only a non-empty value counts.
func (f Field) truthy() bool { return f.kind == KindValue && f.value != "" }

func (f Field) String() string {
	switch f.kind {
	case KindValue:
		return fmt.Sprintf("%q", f.value)
	case KindRemove:
		return "<remove>"
	default:
		return "<unset>"
	}
}

// MarshalJSON encodes Value(v) as a JSON string and Remove as null.
// Unset also encodes as null; use omitzero to drop it.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.kind != KindValue {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes a JSON string as Value and null as Remove.
// Absent keys never reach this method and stay Unset.
func (f *Field) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Remove()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("state: field must be a string or null: %w", err)
	}
	*f = Value(s)
	return nil
}
