package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/internal/blob/core"
)

func TestStore_MissingHeadGet(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, err := store.Head(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
	ok, err := store.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutIsCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, err := store.Put(ctx, "setup/001-IPTG.csv", bytes.NewReader([]byte("a,b\n")), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"sheet": "IPTG"}})
	require.NoError(t, err)
	_, err = store.Put(ctx, "setup/001-IPTG.csv", bytes.NewReader([]byte("x")), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)

	info, rc, err := store.Get(ctx, "setup/001-IPTG.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "a,b\n", string(body))
	assert.Equal(t, "IPTG", info.Metadata["sheet"])

	info.Metadata["sheet"] = "mutated"
	again, err := store.Head(ctx, "setup/001-IPTG.csv")
	require.NoError(t, err)
	assert.Equal(t, "IPTG", again.Metadata["sheet"])
}

func TestStore_ListPrefixOrdered(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, k := range []string{"b/2", "a/1", "b/1", "c"} {
		_, err := store.Put(ctx, k, bytes.NewReader(nil), core.PutOptions{})
		require.NoError(t, err)
	}
	list, err := store.List(ctx, "b/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b/1", list[0].Key)
	assert.Equal(t, "b/2", list[1].Key)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = store.PresignURL(ctx, "c", core.SignedURLOptions{})
	assert.True(t, errors.Is(err, core.ErrUnsupported))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("fail") }

func TestStore_PutReadErrorAndDriver(t *testing.T) {
	store := New()
	assert.Equal(t, core.DriverMemory, store.Driver())
	_, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{})
	require.Error(t, err)
	_, err = store.Put(context.Background(), " ", bytes.NewReader(nil), core.PutOptions{})
	require.Error(t, err)
}
