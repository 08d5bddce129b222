// Package archive keeps a copy of uploaded audio in object storage.
//
// Any gocloud.dev/blob URL works: file:///var/lib/audiohook, mem://,
// s3://bucket?region=eu-west-1, gs://bucket.
//
// # Usage
//
//	a, err := archive.Open(ctx, cfg.Archive.BucketURL, cfg.Archive.Prefix)
//	defer a.Close()
//
//	key, err := a.Archive(ctx, res) // "audiohook/clip.mp3"
//
// Archiving runs after a successful upload; a failure is reported but does
// not fail the run.
package archive
