package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"blogcms/internal/models"
	"blogcms/internal/service"
	"blogcms/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetPost_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "T", "content": "C"}, env.adminToken)
	require.Equal(t, http.StatusCreated, status, "body: %s", raw)

	var created struct {
		Message string `json:"message"`
		PostID  uint   `json:"postId"`
	}
	decodeJSON(t, raw, &created)
	require.NotZero(t, created.PostID)

	status, raw = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", created.PostID), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"media":[]`)

	var post service.PostDetail
	decodeJSON(t, raw, &post)
	assert.Equal(t, "T", post.Title)
	assert.Equal(t, "C", post.Content)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	require.NotNil(t, post.AuthorID)
	assert.Equal(t, env.admin.ID, *post.AuthorID)
	assert.Empty(t, post.Media)
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"Missing title", map[string]string{"content": "C"}},
		{"Missing content", map[string]string{"title": "T"}},
		{"Unknown status", map[string]string{"title": "T", "content": "C", "status": "archived"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(t, http.MethodPost, "/api/posts", tt.body, env.adminToken)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetPost_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, http.MethodGet, "/api/posts/999", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Post with ID 999 not found", errorMessage(t, raw))

	status, raw = env.do(t, http.MethodGet, "/api/posts/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", errorMessage(t, raw))
}

func TestGetPosts_PublicListingIsPublishedOnly(t *testing.T) {
	env := newTestEnv(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.CreatePost(t, env.db, fmt.Sprintf("Published %d", i), models.PostStatusPublished, &env.admin.ID, base.Add(time.Duration(i)*time.Minute))
	}
	draft := testutil.CreatePost(t, env.db, "Draft", models.PostStatusDraft, &env.admin.ID, base.Add(time.Hour))

	status, raw := env.do(t, http.MethodGet, "/api/posts?page=1&limit=2", nil, "")
	require.Equal(t, http.StatusOK, status)

	var list service.PostList
	decodeJSON(t, raw, &list)
	require.Len(t, list.Posts, 2)
	assert.Equal(t, "Published 4", list.Posts[0].Title)
	assert.Equal(t, "Published 3", list.Posts[1].Title)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, list.Pagination)

	status, raw = env.do(t, http.MethodGet, "/api/posts?limit=100", nil, "")
	require.Equal(t, http.StatusOK, status)
	decodeJSON(t, raw, &list)
	assert.Len(t, list.Posts, 5)
	for _, p := range list.Posts {
		assert.Equal(t, models.PostStatusPublished, p.Status)
		assert.NotEqual(t, draft.ID, p.ID)
	}

	// Drafts are admin-only.
	status, _ = env.do(t, http.MethodGet, "/api/posts?status=draft", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	viewer := issueToken(t, env.srv, env.admin.ID, "viewer", "viewer")
	status, _ = env.do(t, http.MethodGet, "/api/posts?status=draft", nil, viewer)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = env.do(t, http.MethodGet, "/api/posts?status=draft", nil, env.adminToken)
	require.Equal(t, http.StatusOK, status)
	decodeJSON(t, raw, &list)
	require.Len(t, list.Posts, 1)
	assert.Equal(t, draft.ID, list.Posts[0].ID)
}

func TestGetPosts_HugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, env.db, fmt.Sprintf("Published %d", i), models.PostStatusPublished, &env.admin.ID, time.Time{})
	}

	status, raw := env.do(t, http.MethodGet, "/api/posts?page=9223372036854775807&limit=2", nil, "")
	require.Equal(t, http.StatusOK, status)

	var list service.PostList
	decodeJSON(t, raw, &list)
	assert.Empty(t, list.Posts)
	assert.Equal(t, models.Pagination{Page: service.MaxPage, Limit: 2, Total: 3, Pages: 2}, list.Pagination)
}

func TestGetPosts_LimitIsCapped(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, http.MethodGet, "/api/posts?limit=1000&page=-3", nil, "")
	require.Equal(t, http.StatusOK, status)

	var list service.PostList
	decodeJSON(t, raw, &list)
	assert.Equal(t, service.MaxLimit, list.Pagination.Limit)
	assert.Equal(t, 1, list.Pagination.Page)
	assert.NotNil(t, list.Posts)
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "Old", models.PostStatusDraft, &env.admin.ID, time.Time{})
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	status, raw := env.do(t, http.MethodPut, path, map[string]string{
		"title": "New", "content": "Body", "excerpt": "Short", "status": models.PostStatusPublished,
	}, env.adminToken)
	require.Equal(t, http.StatusOK, status, "body: %s", raw)

	var got models.Post
	require.NoError(t, env.db.First(&got, post.ID).Error)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "Short", got.Excerpt)
	assert.Equal(t, models.PostStatusPublished, got.Status)

	// An empty status keeps the current one.
	status, _ = env.do(t, http.MethodPut, path, map[string]string{"title": "Newer", "content": "Body"}, env.adminToken)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, env.db.First(&got, post.ID).Error)
	assert.Equal(t, models.PostStatusPublished, got.Status)

	status, _ = env.do(t, http.MethodPut, path, map[string]string{"title": "", "content": "Body"}, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPut, "/api/posts/9999", map[string]string{"title": "X", "content": "Y"}, env.adminToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeletePost_Cascades(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "Doomed", models.PostStatusPublished, &env.admin.ID, time.Time{})
	testutil.CreateComment(t, env.db, post.ID, models.CommentStatusApproved, time.Time{})
	testutil.CreateComment(t, env.db, post.ID, models.CommentStatusPending, time.Time{})
	media := &models.Media{Filename: "x.png", OriginalName: "x.png", MimeType: "image/png", Size: 1, StoragePath: "uploads/x.png", PostID: &post.ID}
	require.NoError(t, env.db.Create(media).Error)

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	status, _ := env.do(t, http.MethodDelete, path, nil, env.adminToken)
	require.Equal(t, http.StatusOK, status)

	var comments int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Zero(t, comments)

	var detached models.Media
	require.NoError(t, env.db.First(&detached, media.ID).Error)
	assert.Nil(t, detached.PostID)

	status, _ = env.do(t, http.MethodDelete, path, nil, env.adminToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPostAdminRoutes_RejectWithoutAdminToken(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "Keep", models.PostStatusPublished, &env.admin.ID, time.Time{})
	path := fmt.Sprintf("/api/posts/%d", post.ID)
	viewer := issueToken(t, env.srv, env.admin.ID, "viewer", "viewer")
	body := map[string]string{"title": "Hacked", "content": "Hacked"}

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{"Create without token", http.MethodPost, "/api/posts", "", http.StatusUnauthorized},
		{"Create with garbage token", http.MethodPost, "/api/posts", "garbage", http.StatusUnauthorized},
		{"Create as non-admin", http.MethodPost, "/api/posts", viewer, http.StatusForbidden},
		{"Update without token", http.MethodPut, path, "", http.StatusUnauthorized},
		{"Update as non-admin", http.MethodPut, path, viewer, http.StatusForbidden},
		{"Delete without token", http.MethodDelete, path, "", http.StatusUnauthorized},
		{"Delete as non-admin", http.MethodDelete, path, viewer, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := env.do(t, tt.method, tt.path, body, tt.token)
			assert.Equal(t, tt.expectedStatus, status)
			assert.NotEmpty(t, errorMessage(t, raw))
		})
	}

	var posts []models.Post
	require.NoError(t, env.db.Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, "Keep", posts[0].Title)
	assert.False(t, strings.Contains(posts[0].Content, "Hacked"))
}
