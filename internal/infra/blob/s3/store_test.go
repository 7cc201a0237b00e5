package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/internal/blob/core"
)

func TestStore_MockedBasicFlow(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "setup/001-IPTG.csv", bytes.NewReader([]byte("ID,c\nI001,0\n")), core.PutOptions{ContentType: "text/csv"})
	require.NoError(t, err)
	assert.Equal(t, "setup/001-IPTG.csv", info.Key)
	assert.Equal(t, "text/csv", info.ContentType)

	_, err = store.Put(ctx, "setup/001-IPTG.csv", bytes.NewReader([]byte("ignored")), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)

	_, rc, err := store.Get(ctx, "setup/001-IPTG.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "ID,c\nI001,0\n", string(data))

	list, err := store.List(ctx, "setup/")
	require.NoError(t, err)
	require.Len(t, list, 1)

	url, err := store.PresignURL(ctx, "setup/001-IPTG.csv", core.SignedURLOptions{})
	require.NoError(t, err)
	assert.Contains(t, url, "setup/001-IPTG.csv")

	ok, err := store.Delete(ctx, "setup/001-IPTG.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "setup/001-IPTG.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutNonSeekableReader(t *testing.T) {
	store := NewMockForTests()
	var buf bytes.Buffer
	buf.WriteString("payload")
	_, err := store.Put(context.Background(), "k", &buf, core.PutOptions{})
	require.NoError(t, err)
	_, rc, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "payload", string(data))
}

func TestStore_MissingKeys(t *testing.T) {
	store := NewMockForTests()
	_, err := store.Head(context.Background(), "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_PresignRejectsPut(t *testing.T) {
	store := NewMockForTests()
	_, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{Method: "put"})
	require.ErrorIs(t, err, core.ErrUnsupported)
	assert.Equal(t, core.DriverS3, store.Driver())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PLATEDESIGN_BLOB_S3_BUCKET", "plates")
	t.Setenv("PLATEDESIGN_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("PLATEDESIGN_BLOB_S3_PATH_STYLE", "TRUE")
	cfg := ConfigFromEnv()
	assert.Equal(t, "plates", cfg.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.True(t, cfg.PathStyle)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bucket"))
}

func TestNew_WithEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://minio.local", PathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, core.DriverS3, s.Driver())
}
