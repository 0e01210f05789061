package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blogcms/internal/models"

	"github.com/mmcdole/gofeed"
)

// RSSSource mirrors an RSS or Atom feed. Each entry becomes one record keyed
// by its GUID (or link when the feed has no GUIDs).
type RSSSource struct {
	parser *gofeed.Parser
	url    string
}

// NewRSSSource creates a source for feedURL.
func NewRSSSource(feedURL string, timeout time.Duration) *RSSSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &RSSSource{parser: parser, url: feedURL}
}

func (s *RSSSource) Name() string {
	return "rss"
}

func (s *RSSSource) Configured() bool {
	return s.url != ""
}

func (s *RSSSource) Fetch(ctx context.Context) ([]Record, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &StatusError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]Record, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		records = append(records, s.toRecord(item))
	}
	return records, nil
}

func (s *RSSSource) toRecord(item *gofeed.Item) Record {
	id := item.GUID
	if id == "" {
		id = item.Link
	}

	mediaURL, mediaType := "", models.FeedMediaImage
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		mediaURL = enc.URL
		if strings.HasPrefix(enc.Type, "video/") {
			mediaType = models.FeedMediaVideo
		}
		break
	}
	if mediaURL == "" && item.Image != nil {
		mediaURL = item.Image.URL
	}

	var published *time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed
	}

	caption := item.Title
	if item.Description != "" && item.Description != item.Title {
		caption = strings.TrimSpace(item.Title + "\n\n" + item.Description)
	}

	rec := Record{
		ExternalID: id,
		Caption:    caption,
		MediaURL:   mediaURL,
		MediaType:  mediaType,
		Permalink:  item.Link,
		Undated:    published == nil,
	}
	if published != nil {
		rec.Timestamp = published.UTC().Format(time.RFC3339)
	}
	return rec
}
