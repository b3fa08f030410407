package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryUploadAndDelete(t *testing.T) {
	store := NewInMemory()
	url, err := store.Upload(context.Background(), Object{
		Folder: "org/logo", Name: "Logo.PNG", ContentType: "image/png", Body: strings.NewReader("png"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://org/logo/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.True(t, store.Has(url))

	require.NoError(t, store.Delete(context.Background(), url))
	assert.False(t, store.Has(url))
	assert.Zero(t, store.Len())
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"explicit base", S3Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{"custom endpoint", S3Config{Bucket: "b", Endpoint: "http://minio:9000"}, "http://minio:9000/b"},
		{"aws default", S3Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestObjectKeyWithoutFolder(t *testing.T) {
	key := objectKey(Object{Name: "a.jpg"})
	assert.NotContains(t, key, "/")
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}
