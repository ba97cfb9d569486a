// Package docstore is the document database seam: a small get/set/update API with
// dotted field-path merge semantics, backed by memory, MongoDB or PostgreSQL.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid field path")
)

// Document is a JSON-shaped document: nested map[string]any, []any and scalars.
type Document map[string]any

// Entry pairs a document with its id.
type Entry struct {
	ID  string
	Doc Document
}

type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	// List returns every document of the collection ordered by id.
	List(ctx context.Context, collection string) ([]Entry, error)
	// Put replaces the whole document.
	Put(ctx context.Context, collection, id string, doc Document) error
	// SetFields writes each dotted path, creating the document and intermediate
	// maps as needed. Fields not named are left untouched.
	SetFields(ctx context.Context, collection, id string, fields map[string]any) error
	// ClaimField writes a top-level field only if it is absent and reports whether
	// it did. The document is created when missing.
	ClaimField(ctx context.Context, collection, id, field string, value any) (bool, error)
	// AddToSet appends value to the array at path unless already present.
	AddToSet(ctx context.Context, collection, id, path string, value any) error
	Close(ctx context.Context) error
}

// SplitPath validates a dotted path and returns its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if err := ValidateSegment(s); err != nil {
			return nil, fmt.Errorf("%w in %q", err, path)
		}
	}
	return segs, nil
}

// ValidateSegment rejects names that cannot be used as one path segment.
func ValidateSegment(s string) error {
	if s == "" || strings.HasPrefix(s, "$") || strings.Contains(s, ".") {
		return fmt.Errorf("%w: segment %q", ErrInvalidPath, s)
	}
	return nil
}

// JoinPath builds a dotted path, validating every segment.
func JoinPath(segs ...string) (string, error) {
	for _, s := range segs {
		if err := ValidateSegment(s); err != nil {
			return "", err
		}
	}
	return strings.Join(segs, "."), nil
}

func setPath(doc Document, segs []string, value any) {
	cur := map[string]any(doc)
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[s] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

func getPath(doc Document, segs []string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[s]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// addToSet returns the array at path with value appended when missing.
func addToSet(doc Document, segs []string, value any) bool {
	cur, ok := getPath(doc, segs)
	if !ok || cur == nil {
		setPath(doc, segs, []any{value})
		return true
	}
	arr, ok := cur.([]any)
	if !ok {
		setPath(doc, segs, []any{value})
		return true
	}
	for _, v := range arr {
		if reflect.DeepEqual(v, value) {
			return false
		}
	}
	setPath(doc, segs, append(arr, value))
	return true
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case Document:
		return map[string]any(t.Clone())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = deepCopy(v)
	}
	return out
}
