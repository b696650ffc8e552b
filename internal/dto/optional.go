package dto

import (
	"bytes"
	"encoding/json"
	"strings"
)

var jsonNull = []byte("null")

// OptionalString tracks whether a JSON field was sent, sent as null, or sent
// with a value. The zero value means the key was absent.
type OptionalString struct {
	Present bool
	Null    bool
	Value   string
}

// SomeString builds a present, non-null OptionalString.
func SomeString(v string) OptionalString {
	return OptionalString{Present: true, Value: v}
}

// NullString builds an explicit null.
func NullString() OptionalString {
	return OptionalString{Present: true, Null: true}
}

// UnmarshalJSON records presence; encoding/json only calls it for keys in the payload.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		o.Null = true
		o.Value = ""
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON renders absent and null values as null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Null {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// Set reports whether the field carries a non-null value.
func (o OptionalString) Set() bool {
	return o.Present && !o.Null
}

// Blank reports whether the field was sent as null or as a blank string.
func (o OptionalString) Blank() bool {
	return o.Present && (o.Null || strings.TrimSpace(o.Value) == "")
}

// Trimmed returns a copy with surrounding whitespace removed from the value.
func (o OptionalString) Trimmed() OptionalString {
	if o.Set() {
		o.Value = strings.TrimSpace(o.Value)
	}
	return o
}
