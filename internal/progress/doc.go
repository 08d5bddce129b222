// Package progress provides progress reporting for downloads.
//
// This package outputs human-readable progress information to stdout,
// including completion percentage, transfer speed, and ETA.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    SourceURL: url,
//	    Output:    os.Stdout,
//	})
//	reporter.SetTotal(resp.ContentLength)
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Count bytes as they stream through
//	io.Copy(dst, io.TeeReader(body, reporter))
//
// # Output Format
//
//	[audiohook] Downloading: https://example.com/voice-note.mp3
//	[audiohook] Total size: 4.2 MB
//	[audiohook] Progress: 45.2% | 1.9 MB / 4.2 MB | Speed: 1.1 MB/s | ETA: 2s
//	[audiohook] Downloaded 4.2 MB in 4s | Average speed: 1.0 MB/s
package progress
