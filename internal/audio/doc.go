// Package audio defines the values passed between the download and upload
// stages: the downloaded Resource, the webhook Target, and the typed errors
// each stage returns at its boundary.
//
// # Errors
//
// Every stage reports failures as *Error with a Kind. Callers branch on the
// kind with errors.Is against the sentinels:
//
//	if errors.Is(err, audio.ErrSizeExceeded) {
//	    var se *audio.SizeError
//	    errors.As(err, &se) // se.Size, se.Max
//	}
//
// # MIME types
//
// GuessMIMEType maps a file extension to a MIME type. Only the extension is
// consulted; file contents are never inspected.
package audio
