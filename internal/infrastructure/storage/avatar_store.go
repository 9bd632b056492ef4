package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-project-tracker/pkg/helpers"
)

// avatarCacheControl is safe because every upload gets a fresh object name.
const avatarCacheControl = "public, max-age=31536000, immutable"

// GCSAvatarStore uploads avatars into one bucket.
type GCSAvatarStore struct {
	Client *storage.Client
	Bucket string
}

func NewGCSAvatarStore(client *storage.Client, bucket string) *GCSAvatarStore {
	return &GCSAvatarStore{Client: client, Bucket: bucket}
}

// Upload streams r into objectPath and returns its public URL.
// Objects are create-only; an existing name is never overwritten.
func (s *GCSAvatarStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if s.Client == nil || s.Bucket == "" {
		return "", errors.New("gcs not configured")
	}
	obj := s.Client.Bucket(s.Bucket).Object(objectPath).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = avatarCacheControl
	w.ChunkSize = 0 // avatars are small; single request upload
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", objectPath, err)
	}
	return helpers.PublicURL(s.Bucket, objectPath), nil
}
