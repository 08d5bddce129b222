package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/progress"
)

// DefaultFile is looked up in the working directory when no config path is given.
const DefaultFile = "audiohook.yaml"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AUDIOHOOK_"

// DefaultWebhookURL is the n8n test webhook used when nothing else is configured.
const DefaultWebhookURL = "https://lacer2k.app.n8n.cloud/webhook-test/b533d79f-b898-40da-ac8d-61039df6dce0"

// Config defines configuration for the audiohook CLI.
type Config struct {
	Webhook  WebhookConfig  `yaml:"webhook"`
	Retry    RetryConfig    `yaml:"retry"`
	Audio    AudioConfig    `yaml:"audio"`
	Files    FilesConfig    `yaml:"files"`
	Metadata MetadataConfig `yaml:"metadata"`
	Logging  LoggingConfig  `yaml:"logging"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// WebhookConfig describes the upload destination.
type WebhookConfig struct {
	URL         string        `yaml:"url" env:"WEBHOOK_URL,overwrite"`
	Timeout     time.Duration `yaml:"timeout" env:"WEBHOOK_TIMEOUT,overwrite"`
	MaxFileSize ByteSize      `yaml:"max_file_size" env:"WEBHOOK_MAX_FILE_SIZE,overwrite"`
	UserAgent   string        `yaml:"user_agent" env:"WEBHOOK_USER_AGENT,overwrite"`
}

// RetryConfig defines retry behavior for both network calls.
// Attempts counts retries after the first try; zero disables retrying.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts" env:"RETRY_ATTEMPTS,overwrite"`
	Backoff    time.Duration `yaml:"backoff" env:"RETRY_BACKOFF,overwrite"`
	MaxBackoff time.Duration `yaml:"max_backoff" env:"RETRY_MAX_BACKOFF,overwrite"`
}

// AudioConfig lists the formats the webhook workflow understands.
// MaxDuration is informational; audio contents are never inspected.
type AudioConfig struct {
	SupportedFormats []string      `yaml:"supported_formats" env:"AUDIO_SUPPORTED_FORMATS,overwrite"`
	MaxDuration      time.Duration `yaml:"max_duration" env:"AUDIO_MAX_DURATION,overwrite"`
}

// FilesConfig controls local file handling.
type FilesConfig struct {
	TempDirectory      string   `yaml:"temp_directory" env:"FILES_TEMP_DIRECTORY,overwrite"`
	CleanupAfterUpload bool     `yaml:"cleanup_after_upload" env:"FILES_CLEANUP_AFTER_UPLOAD,overwrite"`
	AllowedExtensions  []string `yaml:"allowed_extensions" env:"FILES_ALLOWED_EXTENSIONS,overwrite"`
	MaxFilenameLength  int      `yaml:"max_filename_length" env:"FILES_MAX_FILENAME_LENGTH,overwrite"`
}

// MetadataConfig is part of the declared configuration surface. The
// pipeline does not send it; downstream workflows read it from the file.
type MetadataConfig struct {
	DefaultTags        []string `yaml:"default_tags" env:"METADATA_DEFAULT_TAGS,overwrite"`
	DefaultDescription string   `yaml:"default_description" env:"METADATA_DEFAULT_DESCRIPTION,overwrite"`
}

// LoggingConfig selects level, format and destination of diagnostics.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL,overwrite"`
	Format string `yaml:"format" env:"LOG_FORMAT,overwrite"`
	Output string `yaml:"output" env:"LOG_OUTPUT,overwrite"`
}

// ArchiveConfig enables copying uploaded audio to a bucket.
// An empty BucketURL disables archiving.
type ArchiveConfig struct {
	BucketURL string `yaml:"bucket_url" env:"ARCHIVE_BUCKET_URL,overwrite"`
	Prefix    string `yaml:"prefix" env:"ARCHIVE_PREFIX,overwrite"`
}

// MetricsConfig enables writing a Prometheus textfile after each run.
type MetricsConfig struct {
	File string `yaml:"file" env:"METRICS_FILE,overwrite"`
}

// ByteSize is a byte count that accepts strings such as "50MB" in YAML and
// environment variables.
type ByteSize int64

// UnmarshalYAML accepts either an integer or a human-readable size.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	n, err := progress.ParseBytes(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = ByteSize(n)
	return nil
}

// EnvDecode implements envconfig.Decoder.
func (b *ByteSize) EnvDecode(val string) error {
	n, err := progress.ParseBytes(val)
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return progress.FormatBytes(int64(b))
}

// Default returns a Config with the built-in defaults.
func Default() Config {
	return Config{
		Webhook: WebhookConfig{
			URL:         DefaultWebhookURL,
			Timeout:     audio.DefaultTimeout,
			MaxFileSize: audio.DefaultMaxFileSize,
			UserAgent:   "audiohook/1.0",
		},
		Retry: RetryConfig{
			Attempts:   0,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Audio: AudioConfig{
			SupportedFormats: []string{".mp3", ".wav", ".m4a", ".webm", ".ogg"},
			MaxDuration:      5 * time.Minute,
		},
		Files: FilesConfig{
			TempDirectory:      ".",
			CleanupAfterUpload: true,
			AllowedExtensions:  []string{".mp3", ".wav", ".m4a", ".webm", ".ogg", ".flac"},
			MaxFilenameLength:  255,
		},
		Metadata: MetadataConfig{
			DefaultTags:        []string{"voice", "recording"},
			DefaultDescription: "Audio recording",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Archive: ArchiveConfig{
			Prefix: "audiohook/",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Keys absent from the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv overlays environment variables with the AUDIOHOOK_ prefix.
func (c *Config) LoadFromEnv(ctx context.Context) error {
	return c.loadFromLookuper(ctx, envconfig.OsLookuper())
}

func (c *Config) loadFromLookuper(ctx context.Context, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored; variables that
// are already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves the configuration for one run: defaults, then the YAML file,
// then the environment. With an empty path, DefaultFile is used if it
// exists; otherwise the built-in defaults apply and source is empty.
// An explicit path that cannot be read is an error.
func Load(ctx context.Context, path string) (cfg Config, source string, err error) {
	switch {
	case path != "":
		cfg, err = LoadFromFile(path)
		if err != nil {
			return Config{}, "", err
		}
		source = path
	default:
		if _, statErr := os.Stat(DefaultFile); statErr == nil {
			cfg, err = LoadFromFile(DefaultFile)
			if err != nil {
				return Config{}, "", err
			}
			source = DefaultFile
		} else {
			cfg = Default()
		}
	}

	if err := cfg.LoadFromEnv(ctx); err != nil {
		return Config{}, "", err
	}
	return cfg, source, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Webhook.Validate(); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	if err := c.Files.Validate(); err != nil {
		return fmt.Errorf("files config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates webhook configuration.
func (w *WebhookConfig) Validate() error {
	if w.URL == "" {
		return errors.New("url is required")
	}
	if err := ValidateHTTPURL(w.URL); err != nil {
		return err
	}
	if w.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", w.Timeout)
	}
	if w.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", w.MaxFileSize)
	}
	return nil
}

// Validate validates retry configuration.
func (r *RetryConfig) Validate() error {
	if r.Attempts < 0 {
		return fmt.Errorf("attempts cannot be negative, got %d", r.Attempts)
	}
	if r.Attempts > 0 && r.Backoff <= 0 {
		return errors.New("backoff must be positive when attempts > 0")
	}
	if r.MaxBackoff < r.Backoff {
		return fmt.Errorf("max_backoff (%s) must not be less than backoff (%s)", r.MaxBackoff, r.Backoff)
	}
	return nil
}

// Validate validates file handling configuration.
func (f *FilesConfig) Validate() error {
	if f.MaxFilenameLength < 0 {
		return fmt.Errorf("max_filename_length cannot be negative, got %d", f.MaxFilenameLength)
	}
	for _, ext := range f.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed_extensions entries must start with '.', got %q", ext)
		}
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("format must be 'console' or 'json', got '%s'", l.Format)
	}
	return nil
}

// ValidateHTTPURL checks that raw is an absolute http or https URL.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// Target returns the webhook target described by the configuration.
func (c *Config) Target() audio.Target {
	return audio.Target{
		Endpoint:    c.Webhook.URL,
		Timeout:     c.Webhook.Timeout,
		MaxFileSize: int64(c.Webhook.MaxFileSize),
	}
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Webhook.URL != "" {
		c.Webhook.URL = override.Webhook.URL
	}
	if override.Webhook.Timeout != 0 {
		c.Webhook.Timeout = override.Webhook.Timeout
	}
	if override.Webhook.MaxFileSize != 0 {
		c.Webhook.MaxFileSize = override.Webhook.MaxFileSize
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Files.TempDirectory != "" {
		c.Files.TempDirectory = override.Files.TempDirectory
	}
	if override.Logging.Level != "" {
		c.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		c.Logging.Format = override.Logging.Format
	}
	if override.Archive.BucketURL != "" {
		c.Archive.BucketURL = override.Archive.BucketURL
	}
	if override.Metrics.File != "" {
		c.Metrics.File = override.Metrics.File
	}
	return c
}
