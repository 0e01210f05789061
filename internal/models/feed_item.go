package models

import "time"

// Upstream media types counted by feed stats.
const (
	FeedMediaImage    = "IMAGE"
	FeedMediaVideo    = "VIDEO"
	FeedMediaCarousel = "CAROUSEL_ALBUM"
)

// FeedItem is a cached copy of one upstream social-media record, keyed by
// the upstream id.
type FeedItem struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ExternalID        string    `gorm:"column:external_id;uniqueIndex;not null" json:"external_id"`
	Caption           string    `gorm:"type:text" json:"caption"`
	MediaURL          string    `gorm:"not null" json:"media_url"`
	MediaType         string    `gorm:"not null;size:32;index" json:"media_type"`
	Permalink         string    `json:"permalink"`
	ExternalTimestamp time.Time `gorm:"index" json:"timestamp"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FeedSyncRun records the outcome counts of one synchronization.
type FeedSyncRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Source     string    `gorm:"not null;size:32" json:"source"`
	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `gorm:"not null;index" json:"finished_at"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
}

// FeedStats counts cached items by media type.
type FeedStats struct {
	Total     int64      `json:"total"`
	Images    int64      `json:"images"`
	Videos    int64      `json:"videos"`
	Carousels int64      `json:"carousels"`
	LastSync  *time.Time `json:"lastSync"`
}
