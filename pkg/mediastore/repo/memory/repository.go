package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-media/pkg/mediastore"
)

// Repository implements mediastore.MetadataStore using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	media   map[string]*mediastore.Media // media id -> record
	avatars map[string]string            // entity id -> avatar media id
}

// New creates a new in-memory metadata store
func New() *Repository {
	return &Repository{
		media:   make(map[string]*mediastore.Media),
		avatars: make(map[string]string),
	}
}

var _ mediastore.MetadataStore = (*Repository)(nil)

func (r *Repository) StoreMedia(ctx context.Context, media *mediastore.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to avoid external modifications
	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id string) (*mediastore.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, exists := r.media[id]
	if !exists {
		return nil, mediastore.ErrMediaNotFound
	}
	mediaCopy := *media
	return &mediaCopy, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	media, exists := r.media[id]
	if !exists {
		return mediastore.ErrMediaNotFound
	}
	if r.avatars[media.EntityID] == id {
		delete(r.avatars, media.EntityID)
	}
	delete(r.media, id)
	return nil
}

// StoreAvatar marks media.ID as the avatar for its entity and unmarks the
// prior one under the same lock, so no reader ever observes two avatars.
func (r *Repository) StoreAvatar(ctx context.Context, media *mediastore.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevID, ok := r.avatars[media.EntityID]; ok && prevID != media.ID {
		if prev, ok := r.media[prevID]; ok {
			prev.IsAvatar = false
		}
	}

	mediaCopy := *media
	mediaCopy.IsAvatar = true
	r.media[media.ID] = &mediaCopy
	r.avatars[media.EntityID] = media.ID
	return nil
}

func (r *Repository) GetAvatar(ctx context.Context, entityID string) (*mediastore.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.avatars[entityID]
	if !ok {
		return nil, mediastore.ErrAvatarNotFound
	}
	media, ok := r.media[id]
	if !ok {
		return nil, mediastore.ErrAvatarNotFound
	}
	mediaCopy := *media
	return &mediaCopy, nil
}

func (r *Repository) DeleteEntityAvatar(ctx context.Context, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.avatars[entityID]
	if !ok {
		return mediastore.ErrAvatarNotFound
	}
	if media, ok := r.media[id]; ok {
		media.IsAvatar = false
	}
	delete(r.avatars, entityID)
	return nil
}
