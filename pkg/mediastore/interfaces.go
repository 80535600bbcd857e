package mediastore

import (
	"context"
	"io"
)

// ContentStore defines the interface for raw byte storage, keyed by entity
// namespace and object id. One object per (entityID, objectID).
type ContentStore interface {
	// Put writes the object's bytes, creating the entity namespace if
	// absent and overwriting an existing object. Implementations must not
	// expose partially written objects to readers.
	Put(ctx context.Context, entityID, objectID string, r io.Reader) error

	// Get opens the object's bytes for reading. Returns ErrMediaNotFound
	// if the object does not exist.
	Get(ctx context.Context, entityID, objectID string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a nonexistent object is not an
	// error at this layer; found reports whether anything was removed.
	Delete(ctx context.Context, entityID, objectID string) (found bool, err error)

	// Exists reports whether the object is present.
	Exists(ctx context.Context, entityID, objectID string) (bool, error)

	// Clear removes every object stored for the entity.
	Clear(ctx context.Context, entityID string) error
}

// MetadataStore defines the interface for Media record persistence.
type MetadataStore interface {
	// StoreMedia inserts or replaces the record keyed by media.ID.
	StoreMedia(ctx context.Context, media *Media) error

	// GetMedia returns the record, or ErrMediaNotFound.
	GetMedia(ctx context.Context, id string) (*Media, error)

	// DeleteMedia removes the record, or returns ErrMediaNotFound.
	DeleteMedia(ctx context.Context, id string) error

	// StoreAvatar marks media.ID as the avatar for media.EntityID and
	// unmarks any prior avatar for that entity in the same transaction.
	// At no point are two avatars for the entity visible.
	StoreAvatar(ctx context.Context, media *Media) error

	// GetAvatar returns the entity's current avatar record, or
	// ErrAvatarNotFound.
	GetAvatar(ctx context.Context, entityID string) (*Media, error)

	// DeleteEntityAvatar unmarks the entity's avatar, or returns
	// ErrAvatarNotFound when none exists.
	DeleteEntityAvatar(ctx context.Context, entityID string) error
}

// Authorizer answers allow/deny for a mutating request. A transport or
// availability failure is returned as an error distinct from a deny; the
// engine fails closed in both cases.
type Authorizer interface {
	VerifyRequest(ctx context.Context, actor, credential, resourcePath string) (bool, error)
}

// Notifier publishes a change event to downstream observers. Publishing is
// best-effort from the engine's perspective: a failure surfaces as a
// degraded-success result, never as a rollback.
type Notifier interface {
	Publish(ctx context.Context, entityID string, kind EventKind, media *Media) error
}
