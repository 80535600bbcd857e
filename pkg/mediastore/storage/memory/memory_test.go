package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/mediastore"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Put(ctx, "e1", "o1", strings.NewReader("content")))

	rc, err := store.Get(ctx, "e1", "o1")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "content", string(got))

	found, err := store.Delete(ctx, "e1", "o1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Delete(ctx, "e1", "o1")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Get(ctx, "e1", "o1")
	assert.ErrorIs(t, err, mediastore.ErrMediaNotFound)
}

func TestGetReturnsACopy(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Put(ctx, "e1", "o1", strings.NewReader("first")))
	rc, err := store.Get(ctx, "e1", "o1")
	require.NoError(t, err)
	defer rc.Close()

	// Overwriting while a reader is open must not change what it reads.
	require.NoError(t, store.Put(ctx, "e1", "o1", strings.NewReader("second")))

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Put(ctx, "e1", "o1", strings.NewReader("a")))
	require.NoError(t, store.Put(ctx, "e2", "o1", strings.NewReader("b")))

	require.NoError(t, store.Clear(ctx, "e1"))

	exists, err := store.Exists(ctx, "e1", "o1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.Exists(ctx, "e2", "o1")
	require.NoError(t, err)
	assert.True(t, exists)
}
