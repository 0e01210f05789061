// Package feed fetches records from the upstream social-media feed that the
// CMS mirrors.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Record is one upstream item as delivered by a Source. Timestamp is kept
// as the upstream string; the synchronizer parses it per record so that a
// malformed value fails only that record.
type Record struct {
	ExternalID string
	Caption    string
	MediaURL   string
	MediaType  string
	Permalink  string
	Timestamp  string
	// Undated marks an item the upstream published without a date. Its
	// Timestamp is empty; the synchronizer keeps the stored value on
	// later syncs and uses the first-seen time for a new item.
	Undated bool
}

// Source is an upstream feed.
type Source interface {
	Name() string
	// Configured reports whether the source has the credentials or URL it
	// needs to fetch.
	Configured() bool
	Fetch(ctx context.Context) ([]Record, error)
}

// ErrNotConfigured is returned by Fetch when the source lacks credentials.
var ErrNotConfigured = errors.New("feed source not configured")

// StatusError is a non-2xx reply from the upstream.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

// IsAuth reports whether the upstream rejected our credentials.
func (e *StatusError) IsAuth() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
