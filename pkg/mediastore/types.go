package mediastore

import "time"

// MediaKind is the domain type for the broad media category. It is resolved
// once at extraction time from the declared file extension; the engine never
// branches on extension strings directly.
type MediaKind string

// Media kind constants (typed).
const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindOther MediaKind = "other"
)

// EventKind identifies the change announced to the notifier after a
// successful mutation.
type EventKind string

// Event kind constants (typed).
const (
	EventCreate       EventKind = "create"
	EventUpdate       EventKind = "update"
	EventDelete       EventKind = "delete"
	EventAvatarChange EventKind = "avatarChange"
)

// Media is the canonical record for one stored object.
//
// ID and EntityID are immutable once assigned. FileExtension and MimeType are
// fixed at creation. FileSize and ShaChecksum always reflect the bytes most
// recently committed to the content store for this ID. Width/Height are set
// only for images and videos, Length (duration in milliseconds) only for
// videos and audio.
type Media struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	Author        string    `json:"author,omitempty"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	FileName      string    `json:"file_name,omitempty"`
	FileExtension string    `json:"file_extension,omitempty"`
	MimeType      string    `json:"mime_type"`
	FileSize      int64     `json:"file_size"`
	ShaChecksum   string    `json:"sha_checksum,omitempty"`
	Kind          MediaKind `json:"kind"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	Length        int64     `json:"length,omitempty"`
	IsAvatar      bool      `json:"is_avatar"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Result is the outcome of a successful mutating operation.
//
// Degraded is set when both stores committed but the change notification was
// rejected or timed out. The caller's data is safe; downstream observers may
// have missed one event.
type Result struct {
	Media    *Media `json:"media"`
	Degraded bool   `json:"degraded,omitempty"`
}
