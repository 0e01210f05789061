package models

import "time"

// Media is an uploaded file, optionally attached to a post.
type Media struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Filename        string    `gorm:"not null;uniqueIndex" json:"filename"`
	OriginalName    string    `gorm:"not null" json:"original_name"`
	MimeType        string    `gorm:"not null;size:100" json:"mime_type"`
	Size            int64     `gorm:"not null" json:"size"`
	StoragePath     string    `gorm:"column:path;not null" json:"path"`
	PostID          *uint     `gorm:"index" json:"post_id"`
	Post            *Post     `gorm:"foreignKey:PostID" json:"-"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	PreviewFilename string    `json:"preview_filename,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`

	// URL is derived from the storage backend on read.
	URL        string `gorm:"-" json:"url,omitempty"`
	PreviewURL string `gorm:"-" json:"preview_url,omitempty"`
}

// TableName keeps the table name singular-looking, as inflection would
// otherwise guess "medias".
func (Media) TableName() string {
	return "media"
}
