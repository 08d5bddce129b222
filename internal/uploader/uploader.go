package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/config"
	audiohttp "github.com/lacer2k/n8n-lacer2k-chatbot/internal/http"
)

// MaxResponseBody is how much of the webhook response is kept for logs and
// errors.
const MaxResponseBody = 4 * 1024

// RequestIDHeader carries a per-upload UUID for correlating webhook logs.
const RequestIDHeader = "X-Request-ID"

// Options configures the uploader.
type Options struct {
	// AllowedExtensions, when non-empty, lists the extensions the workflow
	// expects. Other extensions are uploaded with a warning.
	AllowedExtensions []string

	Logger zerolog.Logger
}

// Uploader posts local audio files to a webhook as multipart form data.
type Uploader struct {
	client *audiohttp.Client
	opts   Options
}

// New creates an Uploader that posts through client.
func New(client *audiohttp.Client, opts Options) *Uploader {
	return &Uploader{client: client, opts: opts}
}

// Upload sends filePath to target. The form field name and the filename are
// both the file's base name. A nil error means the webhook answered 200.
//
// The file is checked for existence and size before any request is made.
func (u *Uploader) Upload(ctx context.Context, filePath string, target audio.Target) error {
	target = target.WithDefaults()
	log := u.opts.Logger.With().Str("file", filePath).Str("webhook", target.Endpoint).Logger()

	if err := config.ValidateHTTPURL(target.Endpoint); err != nil {
		return audio.NewError(audio.KindInvalidInput, "upload", target.Endpoint, err)
	}

	info, err := os.Stat(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Error().Msg("audio file not found")
		return audio.NewError(audio.KindNotFound, "upload", filePath, err)
	case err != nil:
		return audio.NewError(audio.KindFilesystem, "stat", filePath, err)
	case info.IsDir():
		log.Error().Msg("audio path is a directory")
		return audio.NewError(audio.KindNotFound, "upload", filePath, errors.New("is a directory"))
	}

	if info.Size() > target.MaxFileSize {
		sizeErr := &audio.SizeError{Size: info.Size(), Max: target.MaxFileSize}
		log.Error().Err(sizeErr).Msg("audio file rejected")
		return audio.NewError(audio.KindSizeExceeded, "upload", filePath, sizeErr)
	}

	name := filepath.Base(filePath)
	mimeType := audio.GuessMIMEType(filePath)
	if !audio.IsAudioMIME(mimeType) {
		log.Warn().Str("mime_type", mimeType).Msg("file may not be an audio file")
	}
	if ext := strings.ToLower(filepath.Ext(name)); len(u.opts.AllowedExtensions) > 0 && !slices.Contains(u.opts.AllowedExtensions, ext) {
		log.Warn().Str("extension", ext).Strs("allowed", u.opts.AllowedExtensions).Msg("extension not in allowed list")
	}
	partType := mimeType
	if partType == "" {
		partType = audio.FallbackMIMEType
	}

	requestID := uuid.NewString()
	log.Info().
		Str("field", name).
		Str("size", fmt.Sprintf("%.2f KB", float64(info.Size())/1024)).
		Str("mime_type", partType).
		Str("request_id", requestID).
		Msg("uploading file")

	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	header := http.Header{}
	header.Set(RequestIDHeader, requestID)

	resp, err := u.client.Post(ctx, target.Endpoint, header, func() (io.ReadCloser, string, error) {
		return multipartBody(filePath, name, partType)
	})
	if err != nil {
		log.Error().Err(err).Msg("upload request failed")
		return audio.NewError(audio.KindTransport, "upload", target.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	if err != nil {
		log.Debug().Err(err).Msg("failed to read webhook response")
	}
	log.Info().
		Int("status", resp.StatusCode).
		Str("response", string(body)).
		Msg("webhook responded")

	if resp.StatusCode != http.StatusOK {
		return audio.NewError(audio.KindHTTPStatus, "upload", target.Endpoint,
			&audio.StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	log.Info().Msg("audio uploaded successfully")
	return nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// multipartBody streams a single-part form through a pipe. The part's field
// name and filename are both name.
func multipartBody(path, name, contentType string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", audio.NewError(audio.KindFilesystem, "open", path, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()

		h := make(textproto.MIMEHeader)
		escaped := quoteEscaper.Replace(name)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escaped, escaped))
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType(), nil
}
