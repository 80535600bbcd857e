package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-media/pkg/mediastore"
)

// Store is an in-memory implementation of the mediastore.ContentStore
// interface, intended for tests and development.
type Store struct {
	mu       sync.RWMutex
	entities map[string]map[string][]byte // entityID -> objectID -> bytes
}

// New creates a new in-memory content store
func New() *Store {
	return &Store{entities: make(map[string]map[string][]byte)}
}

var _ mediastore.ContentStore = (*Store)(nil)

func (s *Store) Put(ctx context.Context, entityID, objectID string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.entities[entityID]
	if !ok {
		objects = make(map[string][]byte)
		s.entities[entityID] = objects
	}
	objects[objectID] = data
	return nil
}

func (s *Store) Get(ctx context.Context, entityID, objectID string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.entities[entityID][objectID]
	if !ok {
		return nil, mediastore.ErrMediaNotFound
	}
	// Copy so later writes cannot mutate an open reader.
	buf := make([]byte, len(data))
	copy(buf, data)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *Store) Delete(ctx context.Context, entityID, objectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.entities[entityID]
	if !ok {
		return false, nil
	}
	if _, ok := objects[objectID]; !ok {
		return false, nil
	}
	delete(objects, objectID)
	if len(objects) == 0 {
		delete(s.entities, entityID)
	}
	return true, nil
}

func (s *Store) Exists(ctx context.Context, entityID, objectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entities[entityID][objectID]
	return ok, nil
}

func (s *Store) Clear(ctx context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entities, entityID)
	return nil
}
