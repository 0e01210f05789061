// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"blogcms/internal/config"
	"blogcms/internal/database"
	"blogcms/internal/models"

	"gorm.io/gorm"
)

// NewTestDB opens a fresh SQLite database in a temp dir with the schema
// applied through AutoMigrate and foreign keys enforced.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "blog.db"),
		SchemaMode: database.SchemaModeAuto,
	}
	db, err := database.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateAccount inserts an admin account with a placeholder hash.
func CreateAccount(t testing.TB, db *gorm.DB, username string) *models.Account {
	t.Helper()
	acc := &models.Account{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Email:        username + "@blog.test",
		Role:         models.RoleAdmin,
	}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

// CreatePost inserts a post with the given status. createdAt lets tests
// control listing order; the zero value means now.
func CreatePost(t testing.TB, db *gorm.DB, title, status string, authorID *uint, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:     title,
		Content:   "Content of " + title,
		Status:    status,
		AuthorID:  authorID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

// CreateComment inserts a comment directly, bypassing moderation rules.
func CreateComment(t testing.TB, db *gorm.DB, postID uint, status string, createdAt time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		PostID:      postID,
		AuthorName:  "Reader",
		AuthorEmail: "reader@example.com",
		Content:     "A comment",
		Status:      status,
		CreatedAt:   createdAt,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
