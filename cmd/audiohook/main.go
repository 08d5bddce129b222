package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/archive"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/config"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/downloader"
	audiohttp "github.com/lacer2k/n8n-lacer2k-chatbot/internal/http"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/logging"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/metrics"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/pipeline"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/progress"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/telemetry"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/uploader"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
)

const serviceName = "audiohook"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return runWith(args, os.Stdout, os.Stderr)
}

type flags struct {
	output        string
	webhook       string
	keepFile      bool
	configPath    string
	progress      bool
	archiveBucket string
	metricsFile   string
	logLevel      string
}

// runWith parses args and runs one download and upload. Only argument
// parsing errors return ExitInvalidArgs; every other failure is ExitFailure.
func runWith(args []string, stdout, stderr io.Writer) int {
	var (
		f    flags
		code = ExitSuccess
	)

	cmd := &cobra.Command{
		Use:   "audiohook <url>",
		Short: "Download audio from a URL and send it to an n8n webhook",
		Long: `Download an audio file and post it to an n8n webhook as multipart form data.

The form field name and the filename are both the downloaded file's name, so
the workflow finds the binary under that property. The local file is removed
after a successful upload unless --keep-file is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code = execute(cmd.Context(), args[0], f, stdout, stderr)
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Output path for the downloaded audio (default: derived from the response)")
	fl.StringVarP(&f.webhook, "webhook", "w", "", "Webhook URL (default: from config)")
	fl.BoolVarP(&f.keepFile, "keep-file", "k", false, "Keep the downloaded file after uploading")
	fl.StringVarP(&f.configPath, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	fl.BoolVar(&f.progress, "progress", false, "Show download progress")
	fl.StringVar(&f.archiveBucket, "archive-bucket", "", "Copy uploaded audio to this bucket URL (file://, s3://, gs://)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[audiohook] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return ExitInvalidArgs
	}
	return code
}

func execute(ctx context.Context, url string, f flags, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Error loading .env: %v\n", err)
		return ExitFailure
	}

	cfg, source, err := config.Load(ctx, f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return ExitFailure
	}
	cfg = cfg.Merge(config.Config{
		Webhook: config.WebhookConfig{URL: f.webhook},
		Logging: config.LoggingConfig{Level: f.logLevel},
		Archive: config.ArchiveConfig{BucketURL: f.archiveBucket},
		Metrics: config.MetricsConfig{File: f.metricsFile},
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return ExitFailure
	}

	logger, closeLog, err := logging.New(cfg.Logging, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error setting up logging: %v\n", err)
		return ExitFailure
	}
	defer closeLog()

	if source == "" {
		logger.Warn().Msg("config file not found, using built-in defaults")
	} else {
		logger.Debug().Str("config", source).Msg("loaded configuration")
	}

	shutdown, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	client := audiohttp.NewClient(audiohttp.Options{
		RetryAttempts:   cfg.Retry.Attempts,
		RetryBackoff:    cfg.Retry.Backoff,
		RetryMaxBackoff: cfg.Retry.MaxBackoff,
		UserAgent:       cfg.Webhook.UserAgent,
		WrapTransport:   telemetry.Transport,
	})

	var reporter *progress.Reporter
	if f.progress {
		reporter = progress.NewReporter(progress.Options{
			Output:         stderr,
			UpdateInterval: time.Second,
			SourceURL:      url,
		})
	}

	m := metrics.New()
	deps := pipeline.Deps{
		Downloader: downloader.New(client, downloader.Options{
			Dir:               cfg.Files.TempDirectory,
			MaxFilenameLength: cfg.Files.MaxFilenameLength,
			Progress:          reporter,
			Logger:            logger,
		}),
		Uploader: uploader.New(client, uploader.Options{
			AllowedExtensions: cfg.Files.AllowedExtensions,
			Logger:            logger,
		}),
		Metrics:            m,
		Logger:             logger,
		CleanupAfterUpload: cfg.Files.CleanupAfterUpload,
	}

	if cfg.Archive.BucketURL != "" {
		a, err := archive.Open(ctx, cfg.Archive.BucketURL, cfg.Archive.Prefix)
		if err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.Archive.BucketURL).Msg("archiving disabled")
		} else {
			defer a.Close()
			deps.Archiver = a
		}
	}

	result := pipeline.Run(ctx, deps, pipeline.Request{
		URL:        url,
		OutputPath: f.output,
		Webhook:    cfg.Target(),
		KeepFile:   f.keepFile,
	})

	if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
		logger.Warn().Err(err).Msg("failed to write metrics")
	}

	if !result.OK() {
		if ctx.Err() != nil {
			logger.Error().Msg("interrupted")
		}
		logger.Error().Msg("process failed")
		return ExitFailure
	}
	logger.Info().Msg("process completed successfully")
	return ExitSuccess
}
