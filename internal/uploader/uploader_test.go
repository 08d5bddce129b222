package uploader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	audiohttp "github.com/lacer2k/n8n-lacer2k-chatbot/internal/http"
)

type received struct {
	field     string
	filename  string
	partType  string
	data      []byte
	requestID string
}

// webhook records the single file part of each request and answers status.
func webhook(t *testing.T, status int, calls *atomic.Int32, got *received) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got != nil {
			got.requestID = r.Header.Get(RequestIDHeader)
			mr, err := r.MultipartReader()
			if assert.NoError(t, err) {
				part, err := mr.NextPart()
				if assert.NoError(t, err) {
					got.field = part.FormName()
					got.filename = part.FileName()
					got.partType = part.Header.Get("Content-Type")
					got.data, _ = io.ReadAll(part)
				}
				_, err = mr.NextPart()
				assert.ErrorIs(t, err, io.EOF, "expected exactly one part")
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"message":"Workflow was started"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0644))
	return path
}

func newUploader(logs io.Writer, opts Options) *Uploader {
	if logs == nil {
		logs = io.Discard
	}
	opts.Logger = zerolog.New(logs)
	return New(audiohttp.NewClient(audiohttp.DefaultOptions()), opts)
}

func TestUploadSinglePart(t *testing.T) {
	var calls atomic.Int32
	var got received
	server := webhook(t, http.StatusOK, &calls, &got)

	path := writeFile(t, "clip.mp3", 10*1024)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "clip.mp3", got.field)
	assert.Equal(t, "clip.mp3", got.filename)
	assert.Equal(t, "audio/mpeg", got.partType)
	assert.Len(t, got.data, 10*1024)
	_, err = uuid.Parse(got.requestID)
	assert.NoError(t, err)
}

func TestUploadExactlyMaxSize(t *testing.T) {
	var calls atomic.Int32
	server := webhook(t, http.StatusOK, &calls, nil)

	path := writeFile(t, "max.wav", 2048)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{
		Endpoint:    server.URL,
		MaxFileSize: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadOverMaxSize(t *testing.T) {
	var calls atomic.Int32
	server := webhook(t, http.StatusOK, &calls, nil)

	path := writeFile(t, "big.wav", 2049)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{
		Endpoint:    server.URL,
		MaxFileSize: 2048,
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, audio.ErrSizeExceeded)
	var sizeErr *audio.SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(2049), sizeErr.Size)
	assert.Equal(t, int32(0), calls.Load())
}

func TestUploadFileNotFound(t *testing.T) {
	var calls atomic.Int32
	server := webhook(t, http.StatusOK, &calls, nil)

	u := newUploader(nil, Options{})
	err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), audio.Target{Endpoint: server.URL})
	assert.ErrorIs(t, err, audio.ErrNotFound)

	err = u.Upload(context.Background(), t.TempDir(), audio.Target{Endpoint: server.URL})
	assert.ErrorIs(t, err, audio.ErrNotFound)

	assert.Equal(t, int32(0), calls.Load())
}

func TestUploadNonAudioWarns(t *testing.T) {
	var calls atomic.Int32
	var got received
	server := webhook(t, http.StatusOK, &calls, &got)

	var logs bytes.Buffer
	path := writeFile(t, "notes.json", 16)
	err := newUploader(&logs, Options{AllowedExtensions: []string{".mp3"}}).
		Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "file may not be an audio file")
	assert.Contains(t, logs.String(), "extension not in allowed list")
	assert.Equal(t, "application/json", got.partType)
}

func TestUploadUnknownExtensionFallsBack(t *testing.T) {
	var calls atomic.Int32
	var got received
	server := webhook(t, http.StatusOK, &calls, &got)

	path := writeFile(t, "audio.audio", 16)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.NoError(t, err)

	assert.Equal(t, audio.FallbackMIMEType, got.partType)
	assert.Equal(t, "audio.audio", got.field)
}

func TestUploadServerError(t *testing.T) {
	var calls atomic.Int32
	server := webhook(t, http.StatusInternalServerError, &calls, nil)

	path := writeFile(t, "clip.mp3", 128)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.Error(t, err)

	assert.ErrorIs(t, err, audio.ErrHTTPStatus)
	var statusErr *audio.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Contains(t, statusErr.Body, "Workflow was started")
	assert.FileExists(t, path)
}

func TestUploadNon200Success(t *testing.T) {
	var calls atomic.Int32
	server := webhook(t, http.StatusCreated, &calls, nil)

	path := writeFile(t, "clip.mp3", 128)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	assert.ErrorIs(t, err, audio.ErrHTTPStatus)
}

func TestUploadTruncatesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		w.Write(bytes.Repeat([]byte("x"), 3*MaxResponseBody))
	}))
	defer server.Close()

	path := writeFile(t, "clip.mp3", 128)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})

	var statusErr *audio.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, statusErr.Body, MaxResponseBody)
}

func TestUploadShortResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		conn, buf, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n{\"message\":")
		buf.Flush()
	}))
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	path := writeFile(t, "clip.mp3", 512)
	err := newUploader(&logs, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "failed to read webhook response")
	assert.Contains(t, logs.String(), `"status":200`)
}

func TestUploadTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	path := writeFile(t, "clip.mp3", 128)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{
		Endpoint: server.URL,
		Timeout:  50 * time.Millisecond,
	})
	assert.ErrorIs(t, err, audio.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadInvalidEndpoint(t *testing.T) {
	path := writeFile(t, "clip.mp3", 128)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: "mailto:x@y"})
	assert.ErrorIs(t, err, audio.ErrInvalidInput)
}

func TestQuotedFilename(t *testing.T) {
	var calls atomic.Int32
	var got received
	server := webhook(t, http.StatusOK, &calls, &got)

	path := writeFile(t, `say "hi".mp3`, 8)
	err := newUploader(nil, Options{}).Upload(context.Background(), path, audio.Target{Endpoint: server.URL})
	require.NoError(t, err)

	assert.Equal(t, `say "hi".mp3`, got.field)
	assert.Equal(t, `say "hi".mp3`, got.filename)
}
