package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/downloader"
	audiohttp "github.com/lacer2k/n8n-lacer2k-chatbot/internal/http"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/metrics"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/uploader"
)

type fakeDownloader struct {
	dir string
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, url, outputPath string) (*audio.Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "clip.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		return nil, err
	}
	return &audio.Resource{SourceURL: url, Path: path, Size: 3, MIMEType: "audio/mpeg"}, nil
}

type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, filePath string, target audio.Target) error {
	f.calls++
	return f.err
}

type fakeArchiver struct {
	err error
}

func (f *fakeArchiver) Archive(ctx context.Context, res *audio.Resource) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "audiohook/" + filepath.Base(res.Path), nil
}

func testDeps(t *testing.T) (Deps, *fakeUploader) {
	t.Helper()
	up := &fakeUploader{}
	return Deps{
		Downloader:         &fakeDownloader{dir: t.TempDir()},
		Uploader:           up,
		Metrics:            metrics.New(),
		Logger:             zerolog.Nop(),
		CleanupAfterUpload: true,
	}, up
}

func TestRunSuccessRemovesFile(t *testing.T) {
	deps, up := testDeps(t)

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})
	require.NoError(t, result.Err)

	assert.True(t, result.OK())
	assert.True(t, result.Uploaded)
	assert.True(t, result.Removed)
	assert.Equal(t, 1, up.calls)
	assert.NoFileExists(t, result.Resource.Path)

	n, err := testutil.GatherAndCount(deps.Metrics.Registry(), "audiohook_uploads_total", "audiohook_cleanups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunKeepFile(t *testing.T) {
	deps, _ := testDeps(t)

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3", KeepFile: true})
	require.True(t, result.OK())

	assert.False(t, result.Removed)
	assert.FileExists(t, result.Resource.Path)
}

func TestRunCleanupDisabled(t *testing.T) {
	deps, _ := testDeps(t)
	deps.CleanupAfterUpload = false

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})
	require.True(t, result.OK())

	assert.False(t, result.Removed)
	assert.FileExists(t, result.Resource.Path)
}

func TestRunDownloadFailureSkipsUpload(t *testing.T) {
	deps, up := testDeps(t)
	deps.Downloader = &fakeDownloader{err: audio.NewError(audio.KindTransport, "download", "u", errors.New("refused"))}

	var logs bytes.Buffer
	deps.Logger = zerolog.New(&logs)

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})

	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, audio.ErrTransport)
	assert.Nil(t, result.Resource)
	assert.Equal(t, 0, up.calls)
	assert.Contains(t, logs.String(), "failed to download audio")
}

func TestRunUploadFailureKeepsFile(t *testing.T) {
	deps, up := testDeps(t)
	up.err = audio.NewError(audio.KindHTTPStatus, "upload", "u", &audio.StatusError{Code: 500})

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})

	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, audio.ErrHTTPStatus)
	assert.False(t, result.Removed)
	assert.FileExists(t, result.Resource.Path)
}

func TestRunArchive(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Archiver = &fakeArchiver{}

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})
	require.True(t, result.OK())
	assert.Equal(t, "audiohook/clip.mp3", result.ArchiveKey)
}

func TestRunArchiveFailureIsNotFatal(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Archiver = &fakeArchiver{err: errors.New("bucket gone")}

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})

	assert.True(t, result.OK())
	assert.Empty(t, result.ArchiveKey)
	assert.True(t, result.Removed)
}

func TestRunCleanupFailureIsNotFatal(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Remove = func(string) error { return os.ErrPermission }

	var logs bytes.Buffer
	deps.Logger = zerolog.New(&logs)

	result := Run(context.Background(), deps, Request{URL: "https://example.com/clip.mp3"})

	assert.True(t, result.OK())
	assert.False(t, result.Removed)
	assert.Contains(t, logs.String(), "could not remove local file")
}

// TestRunEndToEnd wires the real downloader and uploader against local
// servers.
func TestRunEndToEnd(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 10*1024)
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(payload)
	}))
	defer source.Close()

	var got []byte
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("voice.mp3")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		buf := new(bytes.Buffer)
		buf.ReadFrom(f)
		got = buf.Bytes()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	client := audiohttp.NewClient(audiohttp.DefaultOptions())
	dir := t.TempDir()
	result := Run(context.Background(), Deps{
		Downloader:         downloader.New(client, downloader.Options{Dir: dir, Logger: zerolog.Nop()}),
		Uploader:           uploader.New(client, uploader.Options{Logger: zerolog.Nop()}),
		Logger:             zerolog.Nop(),
		CleanupAfterUpload: true,
	}, Request{
		URL:     source.URL + "/voice.mp3",
		Webhook: audio.Target{Endpoint: hook.URL},
	})

	require.NoError(t, result.Err)
	assert.Equal(t, payload, got)
	assert.NoFileExists(t, filepath.Join(dir, "voice.mp3"))
}
