package s3

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-sorter/pkg/storage"
)

func TestNew(t *testing.T) {
	_, err := New(Options{Bucket: "images"})
	assert.Error(t, err)
	_, err = New(Options{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	c, err := New(Options{Endpoint: "localhost:9000", Bucket: "images", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)
	assert.Equal(t, "images", c.bucket)
	assert.Equal(t, "http", c.api.EndpointURL().Scheme)
}

func TestUploadSkipsVideo(t *testing.T) {
	c, err := New(Options{Endpoint: "localhost:9000", Bucket: "images"})
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "holiday.mp4")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	assert.ErrorIs(t, c.Upload(context.Background(), p, "holiday.mp4"), storage.ErrVideoSkipped)
}
