package audio

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// FallbackMIMEType is sent as the part content type when the extension is unknown.
const FallbackMIMEType = "audio/mpeg"

// Resource is an audio file that has been downloaded to local storage.
type Resource struct {
	SourceURL string
	Path      string
	Size      int64
	MIMEType  string
}

// Target describes the webhook that receives the upload.
type Target struct {
	Endpoint string

	// Timeout bounds the whole upload request.
	// Default: 30s
	Timeout time.Duration

	// MaxFileSize is the largest file accepted, in bytes.
	// Default: 50 MiB
	MaxFileSize int64
}

// Defaults for Target fields left at zero.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxFileSize = 50 * 1024 * 1024
)

// WithDefaults returns t with zero fields replaced by their defaults.
func (t Target) WithDefaults() Target {
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	if t.MaxFileSize <= 0 {
		t.MaxFileSize = DefaultMaxFileSize
	}
	return t
}

// audioTypes pins the common audio extensions so results do not depend on
// the host's mime database.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

// GuessMIMEType returns the MIME type for path based on its extension,
// or "" if it cannot be determined.
func GuessMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if i := strings.Index(t, ";"); i != -1 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// IsAudioMIME reports whether t is an audio/* type.
func IsAudioMIME(t string) bool {
	return strings.HasPrefix(t, "audio/")
}
