// Package http provides the HTTP client used to fetch audio and post it to
// the webhook.
//
// This package handles:
//   - Streaming GET requests whose body is handed back unread
//   - POST requests whose body is rebuilt for every attempt
//   - Optional retry with exponential backoff and jitter
//   - Transport wrapping (tracing) and a fixed User-Agent
//
// Retries are off by default: RetryAttempts is the number of attempts made
// after the first one.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    RetryAttempts: 2,
//	    UserAgent:     "audiohook/1.0",
//	})
//
//	resp, err := client.Get(ctx, url)
//	defer resp.Body.Close()
//	// resp.Header.Get("Content-Disposition"), resp.ContentLength
//
//	res, err := client.Post(ctx, webhook, nil, func() (io.ReadCloser, string, error) {
//	    return buildMultipart(path)
//	})
package http
