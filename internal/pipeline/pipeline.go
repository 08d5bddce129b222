package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/metrics"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/telemetry"
)

// Downloader fetches a URL to a local file.
type Downloader interface {
	Download(ctx context.Context, url, outputPath string) (*audio.Resource, error)
}

// Uploader posts a local file to a webhook.
type Uploader interface {
	Upload(ctx context.Context, filePath string, target audio.Target) error
}

// Archiver copies an uploaded file to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, res *audio.Resource) (string, error)
}

// Deps are the components a run is built from. Archiver and Metrics are
// optional.
type Deps struct {
	Downloader Downloader
	Uploader   Uploader
	Archiver   Archiver
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger

	// CleanupAfterUpload removes the local file after a successful upload
	// unless the request keeps it.
	CleanupAfterUpload bool

	// Remove deletes the local file.
	// Default: os.Remove
	Remove func(string) error
}

// Request is one CLI invocation.
type Request struct {
	URL        string
	OutputPath string
	Webhook    audio.Target
	KeepFile   bool
}

// Result reports what a run did. Err is the first fatal error; archive and
// cleanup failures are logged and never set it.
type Result struct {
	Resource   *audio.Resource
	Uploaded   bool
	ArchiveKey string
	Removed    bool
	Err        error
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool {
	return r.Uploaded && r.Err == nil
}

// Run downloads req.URL, uploads it to req.Webhook and then archives and
// cleans up. The upload is never attempted when the download fails, and the
// local file is kept whenever the upload fails.
func Run(ctx context.Context, deps Deps, req Request) (result Result) {
	if deps.Remove == nil {
		deps.Remove = os.Remove
	}
	log := deps.Logger

	ctx, span := telemetry.Tracer().Start(ctx, "audiohook.run",
		trace.WithAttributes(attribute.String("audio.source_url", req.URL)))
	defer func() {
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, audio.KindOf(result.Err).String())
		}
		if deps.Metrics != nil {
			deps.Metrics.SetLastRun(result.OK(), time.Now())
		}
		span.End()
	}()

	res, err := download(ctx, deps, req)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL).Msg("failed to download audio")
		result.Err = err
		return result
	}
	result.Resource = res

	if err := upload(ctx, deps, res, req.Webhook); err != nil {
		log.Error().Err(err).Str("file", res.Path).Msg("failed to upload audio")
		result.Err = err
		return result
	}
	result.Uploaded = true

	if deps.Archiver != nil {
		key, err := archive(ctx, deps, res)
		if err != nil {
			log.Warn().Err(err).Str("file", res.Path).Msg("failed to archive audio")
		} else {
			result.ArchiveKey = key
			log.Info().Str("key", key).Msg("audio archived")
		}
	}

	switch {
	case req.KeepFile:
		log.Info().Str("file", res.Path).Msg("keeping local file")
	case !deps.CleanupAfterUpload:
		log.Info().Str("file", res.Path).Msg("cleanup disabled, keeping local file")
	default:
		result.Removed = cleanup(deps, res.Path)
	}

	return result
}

func download(ctx context.Context, deps Deps, req Request) (*audio.Resource, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "audiohook.download")
	defer span.End()

	res, err := deps.Downloader.Download(ctx, req.URL, req.OutputPath)
	if deps.Metrics != nil {
		var size int64
		if res != nil {
			size = res.Size
		}
		deps.Metrics.ObserveDownload(size, err)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("audio.path", res.Path),
		attribute.Int64("audio.size", res.Size),
		attribute.String("audio.mime_type", res.MIMEType),
	)
	return res, nil
}

func upload(ctx context.Context, deps Deps, res *audio.Resource, target audio.Target) error {
	ctx, span := telemetry.Tracer().Start(ctx, "audiohook.upload")
	defer span.End()

	start := time.Now()
	err := deps.Uploader.Upload(ctx, res.Path, target)
	if deps.Metrics != nil {
		deps.Metrics.ObserveUpload(time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func archive(ctx context.Context, deps Deps, res *audio.Resource) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "audiohook.archive")
	defer span.End()

	key, err := deps.Archiver.Archive(ctx, res)
	if deps.Metrics != nil {
		deps.Metrics.ObserveArchive(err)
	}
	if err != nil {
		span.RecordError(err)
	}
	return key, err
}

// cleanup removes path and reports whether it is gone. Failures are
// warnings only.
func cleanup(deps Deps, path string) bool {
	err := deps.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if err != nil {
		err = audio.NewError(audio.KindFilesystem, "cleanup", path, err)
	}
	if deps.Metrics != nil {
		deps.Metrics.ObserveCleanup(err)
	}
	if err != nil {
		deps.Logger.Warn().Err(err).Msg("could not remove local file")
		return false
	}
	deps.Logger.Info().Str("file", path).Msg("cleaned up local file")
	return true
}
