// Package storage adapts Google Cloud Storage to the account avatar store.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

// MaxAvatarBytes bounds a single avatar upload
const MaxAvatarBytes = 5 << 20

var ErrUnsupportedType = errors.New("only image uploads are accepted")

type GCSObjectStore struct {
	Client *gcs.Client
	Bucket string
}

// NewGCSObjectStore returns nil when no bucket is configured so callers can
// treat uploads as unavailable.
func NewGCSObjectStore(client *gcs.Client, bucket string) *GCSObjectStore {
	if client == nil || bucket == "" {
		return nil
	}
	return &GCSObjectStore{Client: client, Bucket: bucket}
}

func (s *GCSObjectStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}
	return helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, contentType, io.LimitReader(r, MaxAvatarBytes))
}

var _ application.ObjectStore = (*GCSObjectStore)(nil)
