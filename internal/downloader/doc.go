// Package downloader fetches audio over HTTP into a local file.
//
// The response body is streamed to disk in fixed-size chunks (8 KiB by
// default). When no output path is given, the file name is chosen by an
// ordered list of resolvers:
//
//  1. FromOutputPath: the caller's path, used verbatim
//  2. FromURLPath: the last URL path segment, if it has an extension
//  3. FromContentDisposition: filename=... from the response header
//  4. FromContentType: audio.mp3, audio.wav or audio.m4a, else audio.audio
//
// # Usage
//
//	d := downloader.New(client, downloader.Options{
//	    Dir:    cfg.Files.TempDirectory,
//	    Logger: logger,
//	})
//
//	res, err := d.Download(ctx, "https://example.com/voice.mp3", "")
//	// res.Path == "voice.mp3", res.MIMEType == "audio/mpeg"
//
// Errors are *audio.Error values: InvalidInput for bad URLs, Transport for
// request failures and non-2xx statuses, Filesystem for local write errors.
package downloader
