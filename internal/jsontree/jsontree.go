// Package jsontree walks order-preserving JSON documents and rewrites
// matching string fields in place.
//
// Documents are the decoded form produced by internal/scenario: objects are
// orderedmap.OrderedMap values, arrays are []interface{}, everything else is
// a scalar leaf. The root may be any of the three. Rewriting only replaces
// the value of an existing key, so object key order is never disturbed.
package jsontree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Replacer resolves a current field value to its replacement.
// replacemap.Map satisfies this.
type Replacer interface {
	Lookup(value string) (string, bool)
}

// Change records a single rewritten field. Path is an RFC 6901 JSON Pointer
// to the field inside its document.
type Change struct {
	Path string
	Old  string
	New  string
}

// ChangeRecorder accumulates changes in rewrite order.
type ChangeRecorder struct {
	changes []Change
}

func (r *ChangeRecorder) add(path, old, updated string) {
	r.changes = append(r.changes, Change{Path: path, Old: old, New: updated})
}

// Changes returns the recorded changes in the order they were made.
func (r *ChangeRecorder) Changes() []Change {
	return r.changes
}

// Len returns the number of recorded changes.
func (r *ChangeRecorder) Len() int {
	return len(r.changes)
}

// RewriteField recursively visits root, which may be an object, an array, or
// a scalar. For every object carrying the named field with a string value
// that the replacer resolves to a different string, the value is overwritten
// in place and the change recorded. Arrays and objects are always recursed
// into; non-string field values are not matches. The recursion is bounded
// only by the document's own nesting; JSON values are acyclic by
// construction.
func RewriteField(root interface{}, field string, rep Replacer, rec *ChangeRecorder) {
	rewriteValue(root, field, rep, rec, "")
}

func rewriteObject(obj *orderedmap.OrderedMap, field string, rep Replacer, rec *ChangeRecorder, path string) {
	if value, ok := obj.Get(field); ok {
		if old, isString := value.(string); isString {
			if updated, found := rep.Lookup(old); found && old != updated {
				obj.Set(field, updated)
				rec.add(path+"/"+escapeToken(field), old, updated)
			}
		}
	}

	for _, key := range obj.Keys() {
		value, _ := obj.Get(key)
		rewriteValue(value, field, rep, rec, path+"/"+escapeToken(key))
	}
}

func rewriteValue(value interface{}, field string, rep Replacer, rec *ChangeRecorder, path string) {
	switch v := value.(type) {
	case orderedmap.OrderedMap:
		// Nested objects are stored by value; the copy shares the
		// underlying key/value storage, so in-place rewrites stick.
		rewriteObject(&v, field, rep, rec, path)
	case *orderedmap.OrderedMap:
		rewriteObject(v, field, rep, rec, path)
	case []interface{}:
		for i, elem := range v {
			rewriteValue(elem, field, rep, rec, path+"/"+strconv.Itoa(i))
		}
	}
	// Scalars are leaves.
}

// PointerErrorType represents the type of JSON pointer resolution error.
type PointerErrorType string

const (
	PointerNotFound PointerErrorType = "POINTER_NOT_FOUND"
	TypeMismatch    PointerErrorType = "TYPE_MISMATCH"
	ValueMismatch   PointerErrorType = "VALUE_MISMATCH"
	InvalidPointer  PointerErrorType = "INVALID_POINTER"
)

// PointerError represents a failure to resolve or apply a JSON pointer.
// Found carries the actual current value on a VALUE_MISMATCH.
type PointerError struct {
	Type    PointerErrorType
	Pointer string
	Message string
	Found   string
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Message)
}

// IsValueMismatch reports whether err is a PointerError signaling that the
// current value differs from the expected one.
func IsValueMismatch(err error) bool {
	pe, ok := err.(*PointerError)
	return ok && pe.Type == ValueMismatch
}

// SetByPointer resolves an RFC 6901 pointer to a string field, verifies the
// current value equals expect, and overwrites it with value. The pointer
// must address an object member; only existing keys are ever written. Root
// may be an object or an array.
func SetByPointer(root interface{}, pointer, expect, value string) error {
	tokens, err := parsePointer(pointer)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return &PointerError{Type: InvalidPointer, Pointer: pointer, Message: "pointer must address a field, not the document root"}
	}

	node := root
	for _, token := range tokens[:len(tokens)-1] {
		node, err = descend(node, token, pointer)
		if err != nil {
			return err
		}
	}

	obj, ok := asObject(node)
	if !ok {
		return &PointerError{Type: TypeMismatch, Pointer: pointer, Message: "parent of addressed field is not an object"}
	}

	field := tokens[len(tokens)-1]
	current, ok := obj.Get(field)
	if !ok {
		return &PointerError{Type: PointerNotFound, Pointer: pointer, Message: fmt.Sprintf("field %q not present", field)}
	}
	currentStr, ok := current.(string)
	if !ok {
		return &PointerError{Type: TypeMismatch, Pointer: pointer, Message: fmt.Sprintf("field %q is not a string", field)}
	}
	if currentStr != expect {
		return &PointerError{
			Type:    ValueMismatch,
			Pointer: pointer,
			Message: fmt.Sprintf("expected %q, found %q", expect, currentStr),
			Found:   currentStr,
		}
	}

	obj.Set(field, value)
	return nil
}

// descend resolves one pointer token against an object or array node.
func descend(node interface{}, token, pointer string) (interface{}, error) {
	if obj, ok := asObject(node); ok {
		child, found := obj.Get(token)
		if !found {
			return nil, &PointerError{Type: PointerNotFound, Pointer: pointer, Message: fmt.Sprintf("key %q not present", token)}
		}
		return child, nil
	}

	if arr, ok := node.([]interface{}); ok {
		index, err := strconv.Atoi(token)
		if err != nil || index < 0 || index >= len(arr) {
			return nil, &PointerError{Type: PointerNotFound, Pointer: pointer, Message: fmt.Sprintf("array index %q out of range", token)}
		}
		return arr[index], nil
	}

	return nil, &PointerError{Type: TypeMismatch, Pointer: pointer, Message: fmt.Sprintf("cannot descend into scalar at %q", token)}
}

// asObject normalizes the two object representations to a mutable pointer
// sharing the original storage.
func asObject(node interface{}) (*orderedmap.OrderedMap, bool) {
	switch v := node.(type) {
	case *orderedmap.OrderedMap:
		return v, true
	case orderedmap.OrderedMap:
		return &v, true
	default:
		return nil, false
	}
}

func parsePointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, &PointerError{Type: InvalidPointer, Pointer: pointer, Message: "pointer must start with /"}
	}
	raw := strings.Split(pointer[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = unescapeToken(t)
	}
	return tokens, nil
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
