package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const instagramFields = "id,caption,media_type,media_url,permalink,timestamp"

// InstagramOptions configures the Graph API client.
type InstagramOptions struct {
	BaseURL     string
	AccessToken string
	MaxPages    int
	Timeout     time.Duration
}

// InstagramSource reads the authenticated user's media from the Instagram
// Graph API, following paging.next links.
type InstagramSource struct {
	client   *http.Client
	baseURL  string
	token    string
	maxPages int
}

// NewInstagramSource creates a source with its own bounded HTTP client.
func NewInstagramSource(opts InstagramOptions) *InstagramSource {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InstagramSource{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.AccessToken,
		maxPages: maxPages,
	}
}

func (s *InstagramSource) Name() string {
	return "instagram"
}

func (s *InstagramSource) Configured() bool {
	return s.token != ""
}

type graphMedia struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	Permalink string `json:"permalink"`
	Timestamp string `json:"timestamp"`
}

type graphPage struct {
	Data   []graphMedia `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Fetch returns every record across at most MaxPages pages.
func (s *InstagramSource) Fetch(ctx context.Context) ([]Record, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("fields", instagramFields)
	q.Set("access_token", s.token)
	next := s.baseURL + "/me/media?" + q.Encode()

	var records []Record
	for page := 0; page < s.maxPages && next != ""; page++ {
		body, err := s.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, m := range body.Data {
			records = append(records, Record{
				ExternalID: m.ID,
				Caption:    m.Caption,
				MediaURL:   m.MediaURL,
				MediaType:  m.MediaType,
				Permalink:  m.Permalink,
				Timestamp:  m.Timestamp,
			})
		}
		next = body.Paging.Next
	}
	return records, nil
}

func (s *InstagramSource) getPage(ctx context.Context, pageURL string) (*graphPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build instagram request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL carries the access token; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("instagram request failed: %w", uerr.Err)
		}
		return nil, fmt.Errorf("instagram request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read instagram response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge graphError
		_ = json.Unmarshal(raw, &ge)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: ge.Error.Message}
	}

	var page graphPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode instagram response: %w", err)
	}
	return &page, nil
}
