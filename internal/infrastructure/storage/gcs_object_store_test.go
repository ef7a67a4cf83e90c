package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

func TestNewGCSObjectStoreRequiresBucket(t *testing.T) {
	require.Nil(t, NewGCSObjectStore(nil, "avatars"))
}

func TestUploadRejectsNonImages(t *testing.T) {
	s := &GCSObjectStore{Bucket: "b"}
	_, err := s.Upload(context.Background(), "avatars/x.txt", "text/plain", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPublicURLEscapesSegments(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/b/avatars/doctor/a%20b.png", helpers.PublicURL("b", "avatars/doctor/a b.png"))
}
