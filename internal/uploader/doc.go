// Package uploader posts a local audio file to an n8n webhook.
//
// The request is multipart/form-data with exactly one part. n8n exposes the
// binary under the part's field name, so the field name and the filename
// are both the file's base name:
//
//	Content-Disposition: form-data; name="clip.mp3"; filename="clip.mp3"
//	Content-Type: audio/mpeg
//
// Before any request is made the file must exist and be no larger than
// Target.MaxFileSize. A MIME type that is not audio/* only logs a warning.
//
// # Usage
//
//	u := uploader.New(client, uploader.Options{Logger: logger})
//	err := u.Upload(ctx, "clip.mp3", audio.Target{
//	    Endpoint: cfg.Webhook.URL,
//	    Timeout:  30 * time.Second,
//	})
//
// Only a 200 response counts as success; other statuses return an
// HTTPStatus error carrying up to 4 KiB of the response body.
package uploader
