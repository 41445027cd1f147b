// Package gcs uploads metadata objects to a Google Cloud Storage bucket
// under content-addressed names.
package gcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"strings"

	"cloud.google.com/go/storage"
	sol "github.com/gagliardetto/solana-go"
)

// DefaultPublicBase serves public objects.
const DefaultPublicBase = "https://storage.googleapis.com"

type writerFunc func(ctx context.Context, object string, attrs storage.ObjectAttrs) io.WriteCloser

// Uploader writes objects as <prefix><sha256><ext>.
type Uploader struct {
	bucket     string
	prefix     string
	publicBase string
	newWriter  writerFunc
}

// NewUploader creates an uploader for bucket using client.
func NewUploader(client *storage.Client, bucket, prefix string) *Uploader {
	return &Uploader{
		bucket:     bucket,
		prefix:     prefix,
		publicBase: DefaultPublicBase,
		newWriter: func(ctx context.Context, object string, attrs storage.ObjectAttrs) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = attrs.ContentType
			w.CacheControl = attrs.CacheControl
			w.Metadata = attrs.Metadata
			return w
		},
	}
}

// UploadFile stores data and returns its public URL.
func (u *Uploader) UploadFile(ctx context.Context, uploader sol.PublicKey, name, contentType string, data []byte) (string, error) {
	return u.put(ctx, uploader, name, contentType, data)
}

// UploadJSON stores a JSON document and returns its public URL.
func (u *Uploader) UploadJSON(ctx context.Context, uploader sol.PublicKey, data []byte) (string, error) {
	return u.put(ctx, uploader, "metadata.json", "application/json", data)
}

func (u *Uploader) put(ctx context.Context, uploader sol.PublicKey, name, contentType string, data []byte) (string, error) {
	if u.bucket == "" {
		return "", fmt.Errorf("gcs bucket not configured")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("object %s is empty", name)
	}

	object := u.objectName(name, contentType, data)
	w := u.newWriter(ctx, object, storage.ObjectAttrs{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
		Metadata: map[string]string{
			"uploader":      uploader.String(),
			"original-name": name,
		},
	})
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", u.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", u.bucket, object, err)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.publicBase, "/"), u.bucket, object), nil
}

func (u *Uploader) objectName(name, contentType string, data []byte) string {
	sum := sha256.Sum256(data)
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i:]
	} else if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	return u.prefix + hex.EncodeToString(sum[:]) + ext
}
