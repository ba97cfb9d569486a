package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps documents in process. Every operation is atomic per store.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]map[string]Document{}}
}

func (s *MemoryStore) coll(name string) map[string]Document {
	c, ok := s.collections[name]
	if !ok {
		c = map[string]Document{}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.coll(collection)[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(collection)
	out := make([]Entry, 0, len(c))
	for id, doc := range c {
		out = append(out, Entry{ID: id, Doc: doc.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.coll(collection)[id] = doc.Clone()
	return nil
}

func (s *MemoryStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	split := make(map[string][]string, len(fields))
	for path := range fields {
		segs, err := SplitPath(path)
		if err != nil {
			return err
		}
		split[path] = segs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(collection)
	doc, ok := c[id]
	if !ok {
		doc = Document{}
		c[id] = doc
	}
	for path, value := range fields {
		setPath(doc, split[path], deepCopy(value))
	}
	return nil
}

func (s *MemoryStore) ClaimField(ctx context.Context, collection, id, field string, value any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := ValidateSegment(field); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(collection)
	doc, ok := c[id]
	if !ok {
		doc = Document{}
		c[id] = doc
	}
	if _, taken := doc[field]; taken {
		return false, nil
	}
	doc[field] = deepCopy(value)
	return true, nil
}

func (s *MemoryStore) AddToSet(ctx context.Context, collection, id, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(collection)
	doc, ok := c[id]
	if !ok {
		doc = Document{}
		c[id] = doc
	}
	addToSet(doc, segs, deepCopy(value))
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
