package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blogcms/internal/featureflags"
	"blogcms/internal/models"
	"blogcms/internal/repository"
	"blogcms/internal/storage"
	"blogcms/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMediaService(t *testing.T, flags string, maxBytes int64) (*MediaService, *gorm.DB, *storage.LocalStore, *recordingPublisher) {
	t.Helper()
	db := testutil.NewTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), storage.PublicUploadsPath)
	require.NoError(t, err)
	events := &recordingPublisher{}
	svc := NewMediaService(repository.NewMediaRepository(db), store, featureflags.NewManager(flags), events, MediaOptions{
		MaxBytes:        maxBytes,
		PreviewMaxWidth: 16,
	})
	n := 0
	svc.newName = func() string {
		n++
		return "file-" + strings.Repeat("x", n)
	}
	return svc, db, store, events
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMediaService_RejectsBeforeStoring(t *testing.T) {
	svc, _, store, _ := newMediaService(t, "", 1024)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadMediaInput{OriginalName: "a.png", MimeType: "image/png"})
	assertAppError(t, err, models.CodeValidation)

	_, err = svc.Upload(ctx, UploadMediaInput{OriginalName: "a.png", MimeType: "image/png", Size: 2048, Body: bytes.NewReader(make([]byte, 2048))})
	assertAppError(t, err, models.CodeTooLarge)

	// The declared size lies; the body is still cut off at the ceiling.
	_, err = svc.Upload(ctx, UploadMediaInput{OriginalName: "a.png", MimeType: "image/png", Size: 10, Body: bytes.NewReader(make([]byte, 2048))})
	assertAppError(t, err, models.CodeTooLarge)

	_, err = svc.Upload(ctx, UploadMediaInput{OriginalName: "a.pdf", MimeType: "application/pdf", Size: 10, Body: bytes.NewReader([]byte("%PDF-1.4"))})
	assertAppError(t, err, models.CodeUnsupportedType)

	assert.Empty(t, listDir(t, store.Dir()))
}

func TestMediaService_UploadImageWithPreview(t *testing.T) {
	svc, _, store, events := newMediaService(t, "media_previews=on", 1<<20)
	ctx := context.Background()
	png := testutil.TinyPNG(t, 64, 32)

	media, err := svc.Upload(ctx, UploadMediaInput{
		OriginalName: "../../holiday.PNG",
		MimeType:     "image/png; charset=binary",
		Size:         int64(len(png)),
		Body:         bytes.NewReader(png),
	})
	require.NoError(t, err)

	assert.Equal(t, "file-x.png", media.Filename)
	assert.Equal(t, "holiday.PNG", media.OriginalName)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, int64(len(png)), media.Size)
	assert.Equal(t, 64, media.Width)
	assert.Equal(t, 32, media.Height)
	assert.Equal(t, "file-x-preview.webp", media.PreviewFilename)
	assert.Equal(t, "/uploads/file-x.png", media.URL)
	assert.Equal(t, "/uploads/file-x-preview.webp", media.PreviewURL)
	assert.Equal(t, filepath.Join(store.Dir(), "file-x.png"), media.StoragePath)
	assert.Nil(t, media.PostID)

	stored, err := os.ReadFile(filepath.Join(store.Dir(), "file-x.png"))
	require.NoError(t, err)
	assert.Equal(t, png, stored)
	assert.ElementsMatch(t, []string{"file-x.png", "file-x-preview.webp"}, listDir(t, store.Dir()))
	assert.Equal(t, []string{"media_uploaded"}, events.types())
}

func TestMediaService_PreviewsFlagOff(t *testing.T) {
	svc, _, store, _ := newMediaService(t, "media_previews=off", 1<<20)
	png := testutil.TinyPNG(t, 8, 8)

	media, err := svc.Upload(context.Background(), UploadMediaInput{OriginalName: "a.png", MimeType: "image/png", Size: int64(len(png)), Body: bytes.NewReader(png)})
	require.NoError(t, err)
	assert.Equal(t, 8, media.Width)
	assert.Empty(t, media.PreviewFilename)
	assert.Equal(t, []string{"file-x.png"}, listDir(t, store.Dir()))
}

func TestMediaService_VideoAndPostLink(t *testing.T) {
	svc, db, store, _ := newMediaService(t, "media_previews=on", 1<<20)
	ctx := context.Background()
	post := testutil.CreatePost(t, db, "P", models.PostStatusDraft, nil, time.Time{})

	media, err := svc.Upload(ctx, UploadMediaInput{OriginalName: "clip.mov", MimeType: "video/quicktime", Size: 4, Body: strings.NewReader("moov"), PostID: &post.ID})
	require.NoError(t, err)
	assert.Equal(t, "file-x.mov", media.Filename)
	assert.Zero(t, media.Width)
	require.NotNil(t, media.PostID)
	assert.Equal(t, post.ID, *media.PostID)

	missing := post.ID + 100
	_, err = svc.Upload(ctx, UploadMediaInput{OriginalName: "clip.mp4", MimeType: "video/mp4", Size: 4, Body: strings.NewReader("mp4!"), PostID: &missing})
	assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, []string{"file-x.mov"}, listDir(t, store.Dir()), "bytes of a rejected row are removed")
}

func TestMediaService_ListAndDelete(t *testing.T) {
	svc, _, store, _ := newMediaService(t, "", 1<<20)
	ctx := context.Background()

	first, err := svc.Upload(ctx, UploadMediaInput{OriginalName: "a.gif", MimeType: "image/gif", Size: 3, Body: strings.NewReader("GIF")})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Upload(ctx, UploadMediaInput{OriginalName: "b.webm", MimeType: "video/webm", Size: 4, Body: strings.NewReader("webm")})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "/uploads/"+list[1].Filename, list[1].URL)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assertAppError(t, svc.Delete(ctx, first.ID), models.CodeNotFound)
	assert.Equal(t, []string{second.Filename}, listDir(t, store.Dir()))
}
