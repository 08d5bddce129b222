// Package config defines configuration structures for the audiohook CLI.
//
// Configuration is layered, later sources winning:
//   - Built-in defaults (Default)
//   - YAML configuration file (audiohook.yaml, or -c PATH)
//   - Environment variables (AUDIOHOOK_ prefix, optionally from .env)
//   - Command-line flags (Merge)
//
// When no file is given and audiohook.yaml does not exist, the defaults are
// used and the CLI logs a warning.
//
// # Structure
//
//	type Config struct {
//	    Webhook  WebhookConfig  // url, timeout, max_file_size, user_agent
//	    Retry    RetryConfig    // attempts (default 0), backoff, max_backoff
//	    Audio    AudioConfig    // supported_formats, max_duration
//	    Files    FilesConfig    // temp_directory, cleanup_after_upload, ...
//	    Metadata MetadataConfig // default_tags, default_description
//	    Logging  LoggingConfig  // level, format, output
//	    Archive  ArchiveConfig  // bucket_url, prefix
//	    Metrics  MetricsConfig  // file
//	}
package config
