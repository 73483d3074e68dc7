package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kjk/reckeep/recstore"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

const (
	formatKV   = "kv"
	formatJSON = "json"
	formatToon = "toon"
)

func writeKV(w io.Writer, c *recstore.Codec, records []recstore.Record) error {
	for _, rec := range records {
		if _, err := fmt.Fprintln(w, c.Encode(rec)); err != nil {
			return err
		}
	}
	return nil
}

// marshalJSON returns records as JSON array of objects with keys in schema order,
// same fields as the kv format
func marshalJSON(c *recstore.Codec, records []recstore.Record) ([]byte, error) {
	fields := c.Schema().Fields()
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, k := range fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			dk, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			dv, err := json.Marshal(rec[k])
			if err != nil {
				return nil, err
			}
			buf.Write(dk)
			buf.WriteByte(':')
			buf.Write(dv)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, c *recstore.Codec, records []recstore.Record, prettyPrint bool) error {
	d, err := marshalJSON(c, records)
	if err != nil {
		return err
	}
	if prettyPrint {
		d = pretty.Pretty(d)
	} else {
		d = append(d, '\n')
	}
	_, err = w.Write(d)
	return err
}

func writeToon(w io.Writer, c *recstore.Codec, records []recstore.Record) error {
	fields := c.Schema().Fields()
	// toon.Object keeps columns in schema order, a map would sort them
	rows := make([]toon.Object, 0, len(records))
	for _, rec := range records {
		row := make([]toon.Field, 0, len(fields))
		for _, k := range fields {
			row = append(row, toon.Field{Key: k, Value: rec[k]})
		}
		rows = append(rows, toon.NewObject(row...))
	}
	d, err := toon.Marshal(toon.NewObject(toon.Field{Key: "records", Value: rows}))
	if err != nil {
		return err
	}
	if len(d) > 0 && d[len(d)-1] != '\n' {
		d = append(d, '\n')
	}
	_, err = w.Write(d)
	return err
}

func writeRecords(w io.Writer, format string, prettyPrint bool, c *recstore.Codec, records []recstore.Record) error {
	switch format {
	case formatKV, "":
		return writeKV(w, c, records)
	case formatJSON:
		return writeJSON(w, c, records, prettyPrint)
	case formatToon:
		return writeToon(w, c, records)
	}
	return fmt.Errorf("unknown format %q (must be %s, %s or %s)", format, formatKV, formatJSON, formatToon)
}
