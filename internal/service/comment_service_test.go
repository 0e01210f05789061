package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"blogcms/internal/models"
	"blogcms/internal/repository"
	"blogcms/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCommentService(t *testing.T) (*CommentService, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testutil.NewTestDB(t)
	events := &recordingPublisher{}
	return NewCommentService(repository.NewCommentRepository(db), events), db, events
}

func TestCommentService_SubmitValidation(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, db, "P", models.PostStatusPublished, nil, time.Time{})

	cases := []SubmitCommentInput{
		{PostID: post.ID, AuthorName: "", AuthorEmail: "a@b.co", Content: "hi"},
		{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "", Content: "hi"},
		{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "a@b.co", Content: " "},
		{PostID: 0, AuthorName: "Ana", AuthorEmail: "a@b.co", Content: "hi"},
		{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "not an email", Content: "hi"},
		{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "a@b", Content: "hi"},
		{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "a@b.co", Content: strings.Repeat("x", maxCommentLen+1)},
	}
	for _, in := range cases {
		_, err := svc.Submit(ctx, in)
		assertAppError(t, err, models.CodeValidation)
	}

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count, "validation runs before any write")
}

func TestCommentService_SubmitUnknownPost(t *testing.T) {
	svc, db, events := newCommentService(t)

	_, err := svc.Submit(context.Background(), SubmitCommentInput{
		PostID: 404, AuthorName: "Ana", AuthorEmail: "ana@example.com", Content: "hi",
	})
	assertAppError(t, err, models.CodeNotFound)
	assert.Empty(t, events.types())

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCommentService_ModerationLifecycle(t *testing.T) {
	svc, db, events := newCommentService(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, db, "P", models.PostStatusPublished, nil, time.Time{})

	first, err := svc.Submit(ctx, SubmitCommentInput{PostID: post.ID, AuthorName: "Ana", AuthorEmail: "ana@example.com", Content: "first"})
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusPending, first.Status)

	approved, err := svc.ListForPost(ctx, post.ID, "")
	require.NoError(t, err)
	assert.Empty(t, approved, "pending comments are not public")
	assert.NotNil(t, approved)

	require.NoError(t, svc.Approve(ctx, first.ID))
	require.NoError(t, svc.Approve(ctx, first.ID))

	// Make the second comment strictly newer than the first.
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Submit(ctx, SubmitCommentInput{PostID: post.ID, AuthorName: "Bo", AuthorEmail: "bo@example.com", Content: "second"})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, second.ID))

	approved, err = svc.ListForPost(ctx, post.ID, models.CommentStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, first.ID, approved[0].ID)
	assert.Equal(t, second.ID, approved[1].ID)

	require.NoError(t, svc.Reject(ctx, first.ID))
	rejected, err := svc.ListForPost(ctx, post.ID, models.CommentStatusRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)

	_, err = svc.ListForPost(ctx, post.ID, "spam")
	assertAppError(t, err, models.CodeValidation)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assertAppError(t, svc.Delete(ctx, first.ID), models.CodeNotFound)
	assertAppError(t, svc.Approve(ctx, first.ID), models.CodeNotFound)
	assertAppError(t, svc.Reject(ctx, first.ID), models.CodeNotFound)

	assert.Equal(t, []string{
		"comment_submitted",
		"comment_moderated",
		"comment_moderated",
		"comment_submitted",
		"comment_moderated",
		"comment_moderated",
		"comment_deleted",
	}, events.types())
}

func TestCommentService_AdminListing(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()
	post := testutil.CreatePost(t, db, "Hello", models.PostStatusPublished, nil, time.Time{})

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.CreateComment(t, db, post.ID, models.CommentStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	testutil.CreateComment(t, db, post.ID, models.CommentStatusApproved, base)

	page, err := svc.ListAll(ctx, models.CommentStatusPending, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, page.Pagination)
	assert.Equal(t, "Hello", page.Comments[0].PostTitle)

	all, err := svc.ListAll(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCommentLimit, all.Pagination.Limit)
	assert.Equal(t, int64(6), all.Pagination.Total)

	_, err = svc.ListAll(ctx, "spam", 1, 20)
	assertAppError(t, err, models.CodeValidation)

	got, err := svc.Get(ctx, page.Comments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.PostTitle)

	_, err = svc.Get(ctx, 9999)
	assertAppError(t, err, models.CodeNotFound)
}
