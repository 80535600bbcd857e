package mediastore

import "io"

// Request DTOs

// Auth carries the requesting actor's identity and credential together with
// the resource path the authorizer is asked about.
type Auth struct {
	Actor      string
	Credential string
	Resource   string
}

// UploadMediaRequest contains parameters for creating a new media object.
// MediaID is optional; the engine generates one when empty.
type UploadMediaRequest struct {
	Auth        Auth
	EntityID    string
	MediaID     string
	FileName    string
	Title       string
	Description string
	Content     io.Reader
}

// UpdateMediaRequest contains parameters for updating an existing media
// object. Title and Description are applied when non-nil. Content, when
// non-nil, replaces the stored bytes and recomputes the derived attributes;
// FileName declares the replacement's name and extension.
type UpdateMediaRequest struct {
	Auth        Auth
	EntityID    string
	MediaID     string
	Title       *string
	Description *string
	FileName    string
	Content     io.Reader
}

// SetAvatarRequest contains parameters for setting an entity's avatar.
// The new avatar supersedes any prior one for the entity.
type SetAvatarRequest struct {
	Auth        Auth
	EntityID    string
	MediaID     string
	FileName    string
	Title       string
	Description string
	Content     io.Reader
}

// DeleteMediaRequest contains parameters for deleting a media object.
type DeleteMediaRequest struct {
	Auth     Auth
	EntityID string
	MediaID  string
}
