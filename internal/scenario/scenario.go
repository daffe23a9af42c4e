// Package scenario reads and writes the scenario JSON documents under the
// configured scenarios directory.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// StoreErrorType represents the type of scenario store error.
type StoreErrorType string

const (
	// DirectoryNotFound indicates the scenarios directory does not exist.
	DirectoryNotFound StoreErrorType = "DIRECTORY_NOT_FOUND"
	// ReadError indicates a scenario file could not be read or parsed.
	ReadError StoreErrorType = "READ_ERROR"
	// WriteError indicates a scenario file could not be written.
	WriteError StoreErrorType = "WRITE_ERROR"
)

// StoreError represents an error from the scenario store.
type StoreError struct {
	Type StoreErrorType
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return string(e.Type) + ": " + e.Path + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store provides access to the scenario documents in a single directory.
// Enumeration is non-recursive and limited to .json files.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the scenario file names (not paths) sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StoreError{Type: DirectoryNotFound, Path: s.dir, Err: err}
		}
		return nil, &StoreError{Type: ReadError, Path: s.dir, Err: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the full path of a scenario file by name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// ReadDocument reads and decodes a scenario file into an order-preserving
// document. The root may be any JSON value: objects decode as ordered maps,
// arrays as []interface{} with ordered-map elements, scalars as themselves.
func (s *Store) ReadDocument(name string) (interface{}, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StoreError{Type: ReadError, Path: path, Err: err}
	}

	doc, err := decodeValue(data)
	if err != nil {
		return nil, &StoreError{Type: ReadError, Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return doc, nil
}

// decodeValue decodes raw JSON into the document form: objects become
// ordered maps (key order kept through a rewrite), arrays []interface{},
// everything else stdlib scalars. Arrays are decoded element by element so
// objects nested inside them stay ordered too.
func decodeValue(data []byte) (interface{}, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	switch trimmed[0] {
	case '{':
		doc := orderedmap.New()
		doc.SetEscapeHTML(false)
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, err
		}
		return doc, nil
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
		arr := make([]interface{}, len(raws))
		for i, raw := range raws {
			elem, err := decodeValue(raw)
			if err != nil {
				return nil, err
			}
			arr[i] = elem
		}
		return arr, nil
	default:
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// WriteDocument encodes a document with two-space indentation and writes it
// back to the named scenario file. Non-ASCII characters are preserved
// unescaped; the encoder appends a trailing newline.
func (s *Store) WriteDocument(name string, doc interface{}) error {
	path := s.Path(name)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &StoreError{Type: WriteError, Path: path, Err: err}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &StoreError{Type: WriteError, Path: path, Err: err}
	}
	return nil
}
