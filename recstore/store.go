package recstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is where the store lives if Config.Path is not set
const DefaultPath = "data/store.txt"

// mode of a newly created store file
const storePerm fs.FileMode = 0644

// Config configures a Store
type Config struct {
	// path of the store file, directory is created as needed
	Path string
	// if nil, DefaultSchema() is used
	Schema *Schema
	// optional schema field summed up by Summarize. Empty disables it
	NumericField string
}

// Store is an append-only list of records, one encoded record per line.
// It doesn't cache anything: every read scans the whole file.
type Store struct {
	path         string
	codec        *Codec
	numericField string
}

// New validates the config and creates a Store. It doesn't touch the filesystem.
func New(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	schema := cfg.Schema
	if schema == nil {
		schema = DefaultSchema()
	}
	if cfg.NumericField != "" && !schema.Has(cfg.NumericField) {
		return nil, fmt.Errorf("numeric field '%s' is not in schema (%s)", cfg.NumericField, schema)
	}
	return &Store{
		path:         path,
		codec:        NewCodec(schema),
		numericField: cfg.NumericField,
	}, nil
}

// Path returns path of the store file
func (s *Store) Path() string {
	return s.path
}

// Codec returns the codec for the store's schema
func (s *Store) Codec() *Codec {
	return s.codec
}

// NumericField returns the field totaled by Summarize, empty if none
func (s *Store) NumericField() string {
	return s.numericField
}

func ioErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func (s *Store) ensureDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioErr("create directory", err)
	}
	return nil
}

// Initialize creates an empty store file, truncating an existing one.
// All previously stored records are lost.
func (s *Store) Initialize() error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, storePerm)
	if err != nil {
		return ioErr("truncate store", err)
	}
	if err = f.Close(); err != nil {
		return ioErr("truncate store", err)
	}
	return nil
}

func appendToFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, storePerm)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err != nil {
		f.Close()
		return err
	}
	err = f.Sync()
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Append writes rec as a new line at the end of the store.
// rec should come from Codec.ParseFields, which validates values.
func (s *Store) Append(rec Record) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	line := s.codec.Encode(rec) + "\n"
	if err := appendToFile(s.path, []byte(line)); err != nil {
		return ioErr("append record", err)
	}
	return nil
}

// decodeLines decodes all non-blank lines from r.
// The first malformed line fails the whole read.
func (s *Store) decodeLines(r io.Reader) ([]Record, error) {
	records := []Record{}
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, ioErr("read store", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNo++
		if strings.TrimSpace(line) != "" {
			rec, errDecode := s.codec.DecodeLine(line)
			if errDecode != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, errDecode)
			}
			records = append(records, rec)
		}
		if err == io.EOF {
			break
		}
	}
	return records, nil
}

// LoadAll reads all records in the order they were appended.
// A store that was never initialized is empty, not an error.
func (s *Store) LoadAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, ioErr("open store", err)
	}
	defer f.Close()
	return s.decodeLines(f)
}
