// Package testutils provides shared test infrastructure: a source server for
// audio files, a webhook that records multipart uploads, and (with the
// integration build tag) a Minio container for bucket tests.
package testutils

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
)

// TestFile is an audio file served by StartAudioServer.
type TestFile struct {
	// Name is served at "/" + Name.
	Name string
	Data []byte

	// ContentType defaults to the type for Name's extension; the header is
	// omitted when that is unknown.
	ContentType string

	// Disposition, if set, is sent as the Content-Disposition header.
	Disposition string
}

// GenerateTestData returns size bytes in a deterministic pattern.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// StartAudioServer serves files by path. Unknown paths return 404.
func StartAudioServer(t *testing.T, files ...TestFile) *httptest.Server {
	t.Helper()

	fileMap := make(map[string]TestFile)
	for _, f := range files {
		fileMap["/"+f.Name] = f
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := fileMap[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		ct := f.ContentType
		if ct == "" {
			ct = audio.GuessMIMEType(f.Name)
		}
		if ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if f.Disposition != "" {
			w.Header().Set("Content-Disposition", f.Disposition)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		w.Write(f.Data)
	}))
	t.Cleanup(server.Close)
	return server
}

// Upload is one multipart file part received by a Webhook.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
	RequestID   string
}

// Webhook is a test server that records uploads and answers with Status.
type Webhook struct {
	*httptest.Server

	mu      sync.Mutex
	status  int
	uploads []Upload
}

// StartWebhook starts a webhook that answers every request with status.
func StartWebhook(t *testing.T, status int) *Webhook {
	t.Helper()

	wh := &Webhook{status: status}
	wh.Server = httptest.NewServer(http.HandlerFunc(wh.handle))
	t.Cleanup(wh.Server.Close)
	return wh
}

func (wh *Webhook) handle(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var received []Upload
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, part); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received = append(received, Upload{
			Field:       part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        buf.Bytes(),
			RequestID:   r.Header.Get("X-Request-ID"),
		})
	}

	wh.mu.Lock()
	wh.uploads = append(wh.uploads, received...)
	status := wh.status
	wh.mu.Unlock()

	w.WriteHeader(status)
	fmt.Fprintf(w, `{"received":%d}`, len(received))
}

// Uploads returns the file parts received so far.
func (wh *Webhook) Uploads() []Upload {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return append([]Upload(nil), wh.uploads...)
}

// SetStatus changes the status returned to later requests.
func (wh *Webhook) SetStatus(status int) {
	wh.mu.Lock()
	wh.status = status
	wh.mu.Unlock()
}
