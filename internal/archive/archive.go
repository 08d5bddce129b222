package archive

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
)

// Metadata keys written with every archived object.
const (
	MetaSourceURL = "source_url"
	MetaSHA256    = "sha256"
)

// Archiver copies uploaded audio into a bucket.
type Archiver struct {
	bucket *blob.Bucket
	prefix string
}

// Open opens the bucket at bucketURL (file://, mem://, s3://, gs://).
// Objects are stored under prefix.
func Open(ctx context.Context, bucketURL, prefix string) (*Archiver, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return New(bkt, prefix), nil
}

// New wraps an open bucket. The Archiver takes ownership of bkt.
func New(bkt *blob.Bucket, prefix string) *Archiver {
	return &Archiver{bucket: bkt, prefix: prefix}
}

// Key returns the object key for a local file.
func (a *Archiver) Key(localPath string) string {
	return path.Join(a.prefix, filepath.Base(localPath))
}

// Archive streams res into the bucket and returns the object key. The
// object carries the resource's MIME type, its source URL and a SHA-256 of
// the content; the upload is verified against an MD5 where the provider
// supports it.
func (a *Archiver) Archive(ctx context.Context, res *audio.Resource) (string, error) {
	key := a.Key(res.Path)

	md5sum, sha, err := checksums(res.Path)
	if err != nil {
		return "", audio.NewError(audio.KindFilesystem, "archive", res.Path, err)
	}

	f, err := os.Open(res.Path)
	if err != nil {
		return "", audio.NewError(audio.KindFilesystem, "archive", res.Path, err)
	}
	defer f.Close()

	contentType := res.MIMEType
	if contentType == "" {
		contentType = audio.FallbackMIMEType
	}

	w, err := a.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: contentType,
		ContentMD5:  md5sum,
		Metadata: map[string]string{
			MetaSourceURL: res.SourceURL,
			MetaSHA256:    sha,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return key, nil
}

// Exists reports whether key is present in the bucket.
func (a *Archiver) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.bucket.Attributes(ctx, key)
	if err == nil {
		return true, nil
	}
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	return false, err
}

// Attributes returns the stored attributes of key.
func (a *Archiver) Attributes(ctx context.Context, key string) (*blob.Attributes, error) {
	return a.bucket.Attributes(ctx, key)
}

// Close closes the bucket.
func (a *Archiver) Close() error {
	return a.bucket.Close()
}

func checksums(p string) ([]byte, string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, s := md5.New(), sha256.New()
	if _, err := io.Copy(io.MultiWriter(m, s), f); err != nil {
		return nil, "", err
	}
	return m.Sum(nil), hex.EncodeToString(s.Sum(nil)), nil
}
