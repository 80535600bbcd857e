package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/mediastore"
)

func testMedia(id, entityID string) *mediastore.Media {
	now := time.Now().UTC()
	return &mediastore.Media{
		ID:        id,
		EntityID:  entityID,
		FileName:  id + ".jpg",
		MimeType:  "image/jpeg",
		Kind:      mediastore.KindImage,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreAndGetMedia(t *testing.T) {
	ctx := context.Background()
	repo := New()

	media := testMedia("m1", "e1")
	require.NoError(t, repo.StoreMedia(ctx, media))

	got, err := repo.GetMedia(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, media.ID, got.ID)
	assert.Equal(t, media.EntityID, got.EntityID)

	// Returned records are copies.
	got.Title = "mutated"
	again, err := repo.GetMedia(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, again.Title)
}

func TestGetMediaNotFound(t *testing.T) {
	repo := New()

	_, err := repo.GetMedia(context.Background(), "missing")
	assert.ErrorIs(t, err, mediastore.ErrMediaNotFound)
}

func TestDeleteMedia(t *testing.T) {
	ctx := context.Background()
	repo := New()

	require.NoError(t, repo.StoreMedia(ctx, testMedia("m1", "e1")))
	require.NoError(t, repo.DeleteMedia(ctx, "m1"))

	_, err := repo.GetMedia(ctx, "m1")
	assert.ErrorIs(t, err, mediastore.ErrMediaNotFound)

	assert.ErrorIs(t, repo.DeleteMedia(ctx, "m1"), mediastore.ErrMediaNotFound)
}

func TestStoreAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the record as avatar", func(t *testing.T) {
		repo := New()

		require.NoError(t, repo.StoreAvatar(ctx, testMedia("a1", "e1")))

		avatar, err := repo.GetAvatar(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "a1", avatar.ID)
		assert.True(t, avatar.IsAvatar)
	})

	t.Run("supersedes and unmarks the prior avatar", func(t *testing.T) {
		repo := New()

		require.NoError(t, repo.StoreAvatar(ctx, testMedia("a1", "e1")))
		require.NoError(t, repo.StoreAvatar(ctx, testMedia("a2", "e1")))

		avatar, err := repo.GetAvatar(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "a2", avatar.ID)

		prior, err := repo.GetMedia(ctx, "a1")
		require.NoError(t, err)
		assert.False(t, prior.IsAvatar)
	})

	t.Run("entities are independent", func(t *testing.T) {
		repo := New()

		require.NoError(t, repo.StoreAvatar(ctx, testMedia("a1", "e1")))
		require.NoError(t, repo.StoreAvatar(ctx, testMedia("a2", "e2")))

		avatar, err := repo.GetAvatar(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "a1", avatar.ID)
	})
}

func TestGetAvatarNotFound(t *testing.T) {
	repo := New()

	_, err := repo.GetAvatar(context.Background(), "e1")
	assert.ErrorIs(t, err, mediastore.ErrAvatarNotFound)
}

func TestDeleteEntityAvatar(t *testing.T) {
	ctx := context.Background()
	repo := New()

	require.NoError(t, repo.StoreAvatar(ctx, testMedia("a1", "e1")))
	require.NoError(t, repo.DeleteEntityAvatar(ctx, "e1"))

	_, err := repo.GetAvatar(ctx, "e1")
	assert.ErrorIs(t, err, mediastore.ErrAvatarNotFound)

	// The media record itself survives, unmarked.
	media, err := repo.GetMedia(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, media.IsAvatar)

	assert.ErrorIs(t, repo.DeleteEntityAvatar(ctx, "e1"), mediastore.ErrAvatarNotFound)
}

func TestDeleteMediaClearsAvatarPointer(t *testing.T) {
	ctx := context.Background()
	repo := New()

	require.NoError(t, repo.StoreAvatar(ctx, testMedia("a1", "e1")))
	require.NoError(t, repo.DeleteMedia(ctx, "a1"))

	_, err := repo.GetAvatar(ctx, "e1")
	assert.ErrorIs(t, err, mediastore.ErrAvatarNotFound)
}
