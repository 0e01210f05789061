package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"blogcms/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir, PublicUploadsPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "abc.png", bytes.NewReader([]byte("data")), 4, "image/png"))

	content, err := os.ReadFile(filepath.Join(dir, "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
	assert.Equal(t, "/uploads/abc.png", store.URL("abc.png"))
	assert.Equal(t, filepath.Join(dir, "abc.png"), store.Location("abc.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, store.Delete(ctx, "abc.png"))
	require.NoError(t, store.Delete(ctx, "abc.png"), "deleting a missing file is not an error")
	_, err = os.Stat(filepath.Join(dir, "abc.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), PublicUploadsPath)
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/b.png", `a\b.png`} {
		assert.Error(t, store.Save(context.Background(), key, bytes.NewReader(nil), 0, ""), key)
	}
}

type fakeObjects struct {
	puts    map[string][]byte
	types   map[string]string
	deleted []string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeObjects{puts: map[string][]byte{}, types: map[string]string{}}
	store := newS3Store(fake, S3Options{Bucket: "media", Region: "eu-west-1"})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "x.jpg", bytes.NewReader([]byte("jpeg")), 4, "image/jpeg"))
	assert.Equal(t, []byte("jpeg"), fake.puts["x.jpg"])
	assert.Equal(t, "image/jpeg", fake.types["x.jpg"])
	assert.Equal(t, "s3://media/x.jpg", store.Location("x.jpg"))
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/x.jpg", store.URL("x.jpg"))

	require.NoError(t, store.Delete(ctx, "x.jpg"))
	assert.Equal(t, []string{"x.jpg"}, fake.deleted)

	fake.err = errors.New("access denied")
	assert.ErrorContains(t, store.Save(ctx, "y.jpg", bytes.NewReader(nil), 0, "image/jpeg"), "access denied")
}

func TestS3Store_URLs(t *testing.T) {
	tests := []struct {
		name string
		opts S3Options
		want string
	}{
		{"public base url", S3Options{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/k.png"},
		{"custom endpoint", S3Options{Bucket: "b", Endpoint: "http://127.0.0.1:9000/"}, "http://127.0.0.1:9000/b/k.png"},
		{"aws default", S3Options{Bucket: "b", Region: "us-east-1"}, "https://b.s3.us-east-1.amazonaws.com/k.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newS3Store(nil, tt.opts).URL("k.png"))
		})
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	local, err := New(ctx, &config.Config{StorageBackend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", local.Name())

	s3Store, err := New(ctx, &config.Config{
		StorageBackend: "s3",
		S3Bucket:       "media",
		S3Region:       "us-east-1",
		S3AccessKey:    "minio",
		S3SecretKey:    "minio123",
		S3Endpoint:     "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", s3Store.Name())

	_, err = New(ctx, &config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}
