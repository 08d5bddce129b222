// Command audiohook downloads an audio file from a URL and posts it to an
// n8n webhook as multipart form data.
//
// # Usage
//
//	audiohook <url> [flags]
//
//	  -o, --output PATH          where to save the download (default: derived from the response)
//	  -w, --webhook URL          webhook URL (default: from config)
//	  -k, --keep-file            keep the local file after a successful upload
//	  -c, --config PATH          YAML config (default: ./audiohook.yaml if present)
//	      --progress             show download progress on stderr
//	      --archive-bucket URL   copy uploaded audio to a gocloud bucket
//	      --metrics-file PATH    write Prometheus metrics to a textfile
//	      --log-level LEVEL      debug, info, warn or error
//
// Environment variables with the AUDIOHOOK_ prefix override the config
// file, for example AUDIOHOOK_WEBHOOK_URL or AUDIOHOOK_RETRY_ATTEMPTS. A
// .env file in the working directory is loaded first.
//
// # Exit Codes
//
//	0  the webhook answered 200
//	1  any failure: configuration, download or upload
//	2  invalid command-line arguments
package main
