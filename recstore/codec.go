package recstore

import (
	"fmt"
	"strings"
)

// Record is a mapping of field name to value
type Record map[string]string

// Codec converts between records and single lines of text
type Codec struct {
	schema *Schema
}

// NewCodec creates a Codec for schema, DefaultSchema() if nil
func NewCodec(schema *Schema) *Codec {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Codec{
		schema: schema,
	}
}

// Schema returns the schema that determines field order and validity
func (c *Codec) Schema() *Schema {
	return c.schema
}

// Encode returns `k1=v1|k2=v2|...` with every schema field in schema order.
// Missing fields are encoded as empty values, keys outside the schema are
// not written.
// Values are not validated here, that's done by ParseFields.
func (c *Codec) Encode(rec Record) string {
	var sb strings.Builder
	for i, k := range c.schema.fields {
		if i > 0 {
			sb.WriteString(Delimiter)
		}
		sb.WriteString(k)
		sb.WriteString(Separator)
		sb.WriteString(rec[k])
	}
	return sb.String()
}

func validateValue(key, val string) error {
	if strings.Contains(val, Delimiter) {
		return fmt.Errorf("%w: value of '%s' can't contain '%s'", ErrInvalidValue, key, Delimiter)
	}
	// a newline would split the record in two when stored
	if strings.ContainsAny(val, "\r\n") {
		return fmt.Errorf("%w: value of '%s' can't contain newlines", ErrInvalidValue, key)
	}
	return nil
}

// ParseFields builds a record from `key=value` items, e.g. command line
// arguments. Items are split on the first '='. If a key repeats, the last
// value wins. The result has every schema field, missing ones are empty.
func (c *Codec) ParseFields(items []string) (Record, error) {
	rec := Record{}
	for _, item := range items {
		key, val, ok := strings.Cut(item, Separator)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' is not key=value", ErrInvalidFormat, item)
		}
		if !c.schema.Has(key) {
			return nil, fmt.Errorf("%w: '%s' (known fields: %s)", ErrUnknownField, key, c.schema)
		}
		if err := validateValue(key, val); err != nil {
			return nil, err
		}
		rec[key] = val
	}
	for _, k := range c.schema.fields {
		if _, ok := rec[k]; !ok {
			rec[k] = ""
		}
	}
	return rec, nil
}

// DecodeLine parses a line created by Encode.
// Unlike ParseFields it doesn't add missing schema fields and doesn't reject
// unknown keys: the record has exactly the keys present in the line.
// Empty segments (e.g. trailing '|') are skipped.
func (c *Codec) DecodeLine(line string) (Record, error) {
	rec := Record{}
	for _, part := range strings.Split(strings.TrimSpace(line), Delimiter) {
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, Separator)
		if !ok {
			return nil, fmt.Errorf("%w: bad part '%s'", ErrMalformedRecord, part)
		}
		rec[key] = val
	}
	return rec, nil
}
