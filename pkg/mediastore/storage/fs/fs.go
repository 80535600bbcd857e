package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-media/pkg/mediastore"
)

// Store is a filesystem implementation of the mediastore.ContentStore
// interface. Objects live at <baseDir>/<entityID>/<objectID>; the object id
// is the file name, without extension.
type Store struct {
	baseDir string
}

// Config options for the filesystem content store
type Config struct {
	BaseDir string // Base directory for stored objects
}

// New creates a new filesystem content store, creating the base directory
// if it does not exist.
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{baseDir: config.BaseDir}, nil
}

var _ mediastore.ContentStore = (*Store)(nil)

func (s *Store) objectPath(entityID, objectID string) string {
	return filepath.Join(s.baseDir, entityID, objectID)
}

// validPathPart guards against ids that would resolve outside the base
// directory or alias another key's path.
func validPathPart(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}

func checkKey(entityID, objectID string) error {
	if !validPathPart(entityID) {
		return fmt.Errorf("%w: entity id %q", mediastore.ErrInvalidID, entityID)
	}
	if !validPathPart(objectID) {
		return fmt.Errorf("%w: object id %q", mediastore.ErrInvalidID, objectID)
	}
	return nil
}

// Put writes the object atomically: the bytes go to a temporary file in the
// entity's directory and are renamed into place, so readers never observe a
// truncated object.
func (s *Store) Put(ctx context.Context, entityID, objectID string, r io.Reader) error {
	if err := checkKey(entityID, objectID); err != nil {
		return err
	}

	dir := filepath.Join(s.baseDir, entityID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create entity directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+objectID+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(entityID, objectID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, entityID, objectID string) (io.ReadCloser, error) {
	if err := checkKey(entityID, objectID); err != nil {
		return nil, err
	}

	file, err := os.Open(s.objectPath(entityID, objectID))
	if os.IsNotExist(err) {
		return nil, mediastore.ErrMediaNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *Store) Delete(ctx context.Context, entityID, objectID string) (bool, error) {
	if err := checkKey(entityID, objectID); err != nil {
		return false, err
	}

	err := os.Remove(s.objectPath(entityID, objectID))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}

	// Drop the entity directory once its last object is gone.
	dir := filepath.Join(s.baseDir, entityID)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		os.Remove(dir)
	}

	return true, nil
}

func (s *Store) Exists(ctx context.Context, entityID, objectID string) (bool, error) {
	if err := checkKey(entityID, objectID); err != nil {
		return false, err
	}

	_, err := os.Stat(s.objectPath(entityID, objectID))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context, entityID string) error {
	if !validPathPart(entityID) {
		return fmt.Errorf("%w: entity id %q", mediastore.ErrInvalidID, entityID)
	}

	if err := os.RemoveAll(filepath.Join(s.baseDir, entityID)); err != nil {
		return fmt.Errorf("failed to clear entity directory: %w", err)
	}
	return nil
}
