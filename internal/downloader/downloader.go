package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/config"
	audiohttp "github.com/lacer2k/n8n-lacer2k-chatbot/internal/http"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/progress"
)

// DefaultChunkSize is the write buffer size.
const DefaultChunkSize = 8 * 1024

// Options configures the downloader.
type Options struct {
	// Dir is where files named from the response are written. An explicit
	// output path is used as given.
	// Default: "."
	Dir string

	// ChunkSize is the size of each write to disk.
	// Default: 8 KiB
	ChunkSize int

	// MaxFilenameLength truncates resolved names, keeping the extension.
	// Zero disables truncation.
	MaxFilenameLength int

	// Resolvers overrides DefaultResolvers.
	Resolvers []Resolver

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	Logger zerolog.Logger
}

// Downloader fetches audio over HTTP to local files.
type Downloader struct {
	client *audiohttp.Client
	opts   Options
}

// New creates a Downloader that fetches through client.
func New(client *audiohttp.Client, opts Options) *Downloader {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if len(opts.Resolvers) == 0 {
		opts.Resolvers = DefaultResolvers
	}
	return &Downloader{client: client, opts: opts}
}

// Download fetches url and writes it to outputPath, or to a name derived
// from the response when outputPath is empty. A partially written file is
// removed on failure.
func (d *Downloader) Download(ctx context.Context, url, outputPath string) (*audio.Resource, error) {
	log := d.opts.Logger.With().Str("url", url).Logger()

	if err := config.ValidateHTTPURL(url); err != nil {
		return nil, audio.NewError(audio.KindInvalidInput, "download", url, err)
	}

	log.Info().Msg("downloading audio")

	resp, err := d.client.Get(ctx, url)
	if err != nil {
		log.Error().Err(err).Msg("download request failed")
		return nil, audio.NewError(audio.KindTransport, "download", url, err)
	}
	defer resp.Body.Close()

	path := d.destination(Source{
		OutputPath:         outputPath,
		URL:                url,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentType:        resp.Header.Get("Content-Type"),
	})
	log.Debug().Str("path", path).Msg("resolved filename")

	var body io.Reader = resp.Body
	if p := d.opts.Progress; p != nil {
		if resp.ContentLength > 0 {
			p.SetTotal(resp.ContentLength)
		}
		p.Start()
		defer p.Stop()
		body = io.TeeReader(body, p)
	}

	size, err := d.writeFile(path, body)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("download failed")
		return nil, err
	}

	res := &audio.Resource{
		SourceURL: url,
		Path:      path,
		Size:      size,
		MIMEType:  audio.GuessMIMEType(path),
	}
	log.Info().
		Str("path", path).
		Str("size", progress.FormatBytes(size)).
		Msg("audio downloaded successfully")
	return res, nil
}

// destination resolves the local path for src. Names taken from the
// response are reduced to a base name inside Options.Dir.
func (d *Downloader) destination(src Source) string {
	name := ResolveFilename(src, d.opts.Resolvers...)
	if src.OutputPath != "" && name == src.OutputPath {
		return name
	}
	name = truncateName(baseName(name), d.opts.MaxFilenameLength)
	return filepath.Join(d.opts.Dir, name)
}

func (d *Downloader) writeFile(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, audio.NewError(audio.KindFilesystem, "create", path, err)
	}

	w := &trackingWriter{w: f}
	n, copyErr := copyChunks(w, body, d.opts.ChunkSize)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.opts.Logger.Warn().Err(rmErr).Str("path", path).Msg("failed to remove partial download")
		}
	}

	switch {
	case copyErr != nil && w.err != nil:
		return 0, audio.NewError(audio.KindFilesystem, "write", path, copyErr)
	case copyErr != nil:
		return 0, audio.NewError(audio.KindTransport, "download", path, fmt.Errorf("read body: %w", copyErr))
	case closeErr != nil:
		return 0, audio.NewError(audio.KindFilesystem, "close", path, closeErr)
	}
	return n, nil
}

// copyChunks copies src to dst through a buffer of chunkSize bytes. ReadFrom
// and WriteTo are hidden so every write is at most one chunk.
func copyChunks(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, make([]byte, chunkSize))
}

// trackingWriter remembers write errors so they can be told apart from
// read errors after io.CopyBuffer returns.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
