package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
)

func testResource(t *testing.T, name string, data []byte) *audio.Resource {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return &audio.Resource{
		SourceURL: "https://example.com/" + name,
		Path:      path,
		Size:      int64(len(data)),
		MIMEType:  audio.GuessMIMEType(path),
	}
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	bkt, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	a := New(bkt, "audiohook/")
	defer a.Close()

	data := []byte("ID3 fake mp3 payload")
	res := testResource(t, "clip.mp3", data)

	key, err := a.Archive(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "audiohook/clip.mp3", key)

	got, err := bkt.ReadAll(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	attrs, err := a.Attributes(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", attrs.ContentType)
	assert.Equal(t, res.SourceURL, attrs.Metadata[MetaSourceURL])

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), attrs.Metadata[MetaSHA256])
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, "mem://", "")
	require.NoError(t, err)
	defer a.Close()

	ok, err := a.Exists(ctx, "missing.wav")
	require.NoError(t, err)
	assert.False(t, ok)

	key, err := a.Archive(ctx, testResource(t, "x.wav", []byte("RIFF")))
	require.NoError(t, err)
	assert.Equal(t, "x.wav", key)

	ok, err = a.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArchiveFileBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := Open(ctx, "file://"+filepath.ToSlash(dir), "runs")
	require.NoError(t, err)
	defer a.Close()

	key, err := a.Archive(ctx, testResource(t, "note.m4a", []byte("ftypM4A")))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "runs", "note.m4a"))
	assert.Equal(t, "runs/note.m4a", key)
}

func TestArchiveMissingFile(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, "mem://", "")
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Archive(ctx, &audio.Resource{Path: filepath.Join(t.TempDir(), "gone.mp3")})
	assert.ErrorIs(t, err, audio.ErrFilesystem)
}

func TestOpenInvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "nosuchscheme://bucket", "")
	assert.ErrorContains(t, err, "open bucket")
}
