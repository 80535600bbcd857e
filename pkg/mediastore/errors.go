package mediastore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates the authorizer denied the request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthUnavailable indicates the authorizer could not be reached;
	// the engine fails closed and nothing downstream is touched
	ErrAuthUnavailable = errors.New("authorization unavailable")

	// ErrMediaNotFound indicates a media record or its bytes were not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrAvatarNotFound indicates an entity has no avatar
	ErrAvatarNotFound = errors.New("avatar not found")

	// ErrMediaExists indicates an id collision on create
	ErrMediaExists = errors.New("media already exists")

	// ErrCorruptMedia indicates the uploaded bytes could not be decoded
	// for their declared media kind
	ErrCorruptMedia = errors.New("corrupt media")

	// ErrInvalidID indicates an entity or media identifier that cannot
	// serve as a storage key (empty, dot segments, or path separators)
	ErrInvalidID = errors.New("invalid identifier")
)

// MediaError represents an error from an engine operation on one media object
type MediaError struct {
	MediaID string
	Op      string
	Err     error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for media %s: %v", e.Op, e.MediaID, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// StorageError represents a failure of the content store or metadata store
type StorageError struct {
	Store string
	Key   string
	Op    string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on %s: %v", e.Op, e.Key, e.Store, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
