package recstore

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// Delimiter separates fields of an encoded record
	Delimiter = "|"
	// Separator separates key from value within a field
	Separator = "="
)

// DefaultFields are the fields of the default schema
var DefaultFields = []string{"file", "rule", "result"}

// Schema is the fixed, ordered list of field names a record can have.
// It's immutable after creation.
type Schema struct {
	fields []string
}

// NewSchema creates a schema with fields in the given order
func NewSchema(fields ...string) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema must have at least one field")
	}
	for i, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("field %d has empty name", i)
		}
		if strings.ContainsAny(f, Delimiter+Separator+" \t\r\n") {
			return nil, fmt.Errorf("field name '%s' can't contain '|', '=' or whitespace", f)
		}
		if slices.Contains(fields[:i], f) {
			return nil, fmt.Errorf("duplicate field '%s'", f)
		}
	}
	return &Schema{
		fields: slices.Clone(fields),
	}, nil
}

// MustNewSchema is like NewSchema but panics on error
func MustNewSchema(fields ...string) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSchema returns schema made of DefaultFields
func DefaultSchema() *Schema {
	return MustNewSchema(DefaultFields...)
}

// Fields returns a copy of field names in schema order
func (s *Schema) Fields() []string {
	return slices.Clone(s.fields)
}

// Has returns true if name is a schema field
func (s *Schema) Has(name string) bool {
	return slices.Contains(s.fields, name)
}

func (s *Schema) String() string {
	return strings.Join(s.fields, ",")
}
