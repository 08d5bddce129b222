// Package pipeline runs one download, upload, archive and cleanup pass.
//
// Stages run strictly in order and own the local file in turn:
//
//	Downloading -> Uploading -> Archiving (optional) -> Cleanup
//
// A failed download skips everything else. A failed upload keeps the local
// file. Archive and cleanup failures are logged as warnings and do not
// change the outcome.
//
// # Usage
//
//	result := pipeline.Run(ctx, pipeline.Deps{
//	    Downloader:         downloader.New(client, dlOpts),
//	    Uploader:           uploader.New(client, upOpts),
//	    Logger:             logger,
//	    CleanupAfterUpload: cfg.Files.CleanupAfterUpload,
//	}, pipeline.Request{URL: url, Webhook: cfg.Target()})
//
//	if !result.OK() {
//	    return ExitFailure
//	}
package pipeline
