package models

import "time"

// Comment moderation states.
const (
	CommentStatusPending  = "pending"
	CommentStatusApproved = "approved"
	CommentStatusRejected = "rejected"
)

// Comment is a reader comment on a post. It is created pending and only
// approved comments are listed publicly.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	Post        *Post     `gorm:"foreignKey:PostID" json:"-"`
	AuthorName  string    `gorm:"not null" json:"author_name"`
	AuthorEmail string    `gorm:"not null" json:"author_email"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Status      string    `gorm:"not null;default:pending;size:20;index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	// PostTitle is filled by the admin join on posts.
	PostTitle string `gorm:"->;-:migration" json:"post_title,omitempty"`
}

// ValidCommentStatus reports whether s is a known moderation state.
func ValidCommentStatus(s string) bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusRejected:
		return true
	}
	return false
}
