package mediastore

import (
	"context"
	"io"
)

// Service defines the main interface for the simple-media library
type Service interface {
	// Mutating operations
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Result, error)
	UpdateMedia(ctx context.Context, req UpdateMediaRequest) (*Result, error)
	SetAvatar(ctx context.Context, req SetAvatarRequest) (*Result, error)
	DeleteMedia(ctx context.Context, req DeleteMediaRequest) (*Result, error)

	// Read operations
	GetMedia(ctx context.Context, entityID, mediaID string) (*Media, error)
	DownloadMedia(ctx context.Context, entityID, mediaID string) (io.ReadCloser, *Media, error)
	GetAvatar(ctx context.Context, entityID string) (*Media, error)
}
