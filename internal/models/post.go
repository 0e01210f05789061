package models

import "time"

// Post statuses.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is a blog article. Only published posts are visible to readers.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Excerpt       string    `gorm:"type:text" json:"excerpt"`
	FeaturedImage string    `json:"featured_image"`
	Status        string    `gorm:"not null;default:draft;size:20;index" json:"status"`
	AuthorID      *uint     `gorm:"index" json:"author_id"`
	Author        *Account  `gorm:"foreignKey:AuthorID" json:"-"`
	Media         []Media   `gorm:"foreignKey:PostID" json:"media,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// AuthorName is filled by the author join; it is never written.
	AuthorName string `gorm:"->;-:migration" json:"author_name"`
}

// ValidPostStatus reports whether s is a known post status.
func ValidPostStatus(s string) bool {
	return s == PostStatusDraft || s == PostStatusPublished
}
