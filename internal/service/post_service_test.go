package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"blogcms/internal/cache"
	"blogcms/internal/models"
	"blogcms/internal/repository"
	"blogcms/internal/storage"
	"blogcms/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPostService(t *testing.T, c *cache.Cache) (*PostService, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testutil.NewTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), storage.PublicUploadsPath)
	require.NoError(t, err)
	events := &recordingPublisher{}
	return NewPostService(repository.NewPostRepository(db), c, store, events), db, events
}

func TestPostService_CreateValidation(t *testing.T) {
	svc, _, _ := newPostService(t, nil)
	ctx := context.Background()

	cases := []CreatePostInput{
		{Title: "", Content: "C"},
		{Title: "T", Content: "  "},
		{Title: "T", Content: "C", Status: "archived"},
	}
	for _, in := range cases {
		_, err := svc.CreatePost(ctx, in)
		assertAppError(t, err, models.CodeValidation)
	}
}

func TestPostService_RoundTrip(t *testing.T) {
	svc, db, events := newPostService(t, nil)
	ctx := context.Background()
	author := testutil.CreateAccount(t, db, "admin")

	post, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Empty(t, events.types(), "drafts are not announced")

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Content)
	assert.Equal(t, "admin", got.AuthorName)
	require.NotNil(t, got.Media)
	assert.Empty(t, got.Media)

	_, err = svc.GetPost(ctx, post.ID+100)
	assertAppError(t, err, models.CodeNotFound)
}

func TestPostService_GetIncludesMediaURLs(t *testing.T) {
	svc, db, _ := newPostService(t, nil)
	ctx := context.Background()

	post := testutil.CreatePost(t, db, "With media", models.PostStatusPublished, nil, time.Time{})
	require.NoError(t, db.Create(&models.Media{
		Filename: "abc.png", OriginalName: "a.png", MimeType: "image/png", Size: 3,
		StoragePath: "uploads/abc.png", PostID: &post.ID,
	}).Error)

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "/uploads/abc.png", got.Media[0].URL)
}

func TestPostService_UpdateAndPublish(t *testing.T) {
	svc, _, events := newPostService(t, nil)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, CreatePostInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	assertAppError(t, svc.UpdatePost(ctx, post.ID, UpdatePostInput{Title: "", Content: "C"}), models.CodeValidation)
	assertAppError(t, svc.UpdatePost(ctx, post.ID+50, UpdatePostInput{Title: "T", Content: "C"}), models.CodeNotFound)

	require.NoError(t, svc.UpdatePost(ctx, post.ID, UpdatePostInput{Title: "T2", Content: "C2", Status: models.PostStatusPublished}))
	require.NoError(t, svc.UpdatePost(ctx, post.ID, UpdatePostInput{Title: "T3", Content: "C3", Status: models.PostStatusPublished}))
	assert.Equal(t, []string{"post_published"}, events.types(), "only the draft to published transition is announced")

	require.NoError(t, svc.UpdatePost(ctx, post.ID, UpdatePostInput{Title: "T4", Content: "C4"}))
	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "T4", got.Title)
	assert.Equal(t, models.PostStatusPublished, got.Status, "empty status keeps the current one")
}

func TestPostService_DeleteCascades(t *testing.T) {
	svc, db, _ := newPostService(t, nil)
	ctx := context.Background()

	post := testutil.CreatePost(t, db, "P", models.PostStatusPublished, nil, time.Time{})
	testutil.CreateComment(t, db, post.ID, models.CommentStatusApproved, time.Time{})

	require.NoError(t, svc.DeletePost(ctx, post.ID))
	assertAppError(t, svc.DeletePost(ctx, post.ID), models.CodeNotFound)

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestPostService_ListOnlyPublished(t *testing.T) {
	svc, db, _ := newPostService(t, nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.CreatePost(t, db, fmt.Sprintf("pub-%d", i), models.PostStatusPublished, nil, base.Add(time.Duration(i)*time.Minute))
	}
	testutil.CreatePost(t, db, "draft", models.PostStatusDraft, nil, base.Add(time.Hour))

	list, err := svc.ListPosts(ctx, "", 1, 2)
	require.NoError(t, err)
	require.Len(t, list.Posts, 2)
	assert.Equal(t, "pub-4", list.Posts[0].Title)
	assert.Equal(t, "pub-3", list.Posts[1].Title)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, list.Pagination)

	last, err := svc.ListPosts(ctx, models.PostStatusPublished, 3, 2)
	require.NoError(t, err)
	require.Len(t, last.Posts, 1)
	for _, p := range append(list.Posts, last.Posts...) {
		assert.Equal(t, models.PostStatusPublished, p.Status)
	}

	drafts, err := svc.ListPosts(ctx, models.PostStatusDraft, 1, 10)
	require.NoError(t, err)
	require.Len(t, drafts.Posts, 1)
	assert.Equal(t, "draft", drafts.Posts[0].Title)

	_, err = svc.ListPosts(ctx, "deleted", 1, 10)
	assertAppError(t, err, models.CodeValidation)

	clamped, err := svc.ListPosts(ctx, "", -1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Pagination.Page)
	assert.Equal(t, MaxLimit, clamped.Pagination.Limit)
}

func TestPostService_ListIsCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, db, _ := newPostService(t, cache.New(rdb))
	ctx := context.Background()

	testutil.CreatePost(t, db, "first", models.PostStatusPublished, nil, time.Time{})

	list, err := svc.ListPosts(ctx, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Posts, 1)

	// A row written behind the service's back stays invisible until a
	// mutation bumps the listing version.
	testutil.CreatePost(t, db, "sneaky", models.PostStatusPublished, nil, time.Time{})
	cached, err := svc.ListPosts(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, cached.Posts, 1)

	_, err = svc.CreatePost(ctx, CreatePostInput{Title: "third", Content: "C", Status: models.PostStatusPublished})
	require.NoError(t, err)

	fresh, err := svc.ListPosts(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, fresh.Posts, 3)
	assert.Equal(t, int64(3), fresh.Pagination.Total)
}
