package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogcms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstagramSource_FollowsPaging(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("after") {
		case "":
			assert.Equal(t, "/me/media", r.URL.Path)
			assert.Equal(t, instagramFields, r.URL.Query().Get("fields"))
			fmt.Fprintf(w, `{"data":[{"id":"1","caption":"one","media_type":"IMAGE","media_url":"https://cdn/1.jpg","permalink":"https://ig/p/1","timestamp":"2024-05-01T10:00:00+0000"}],
				"paging":{"next":"%s/me/media?access_token=token-1&after=p2"}}`, srv.URL)
		case "p2":
			fmt.Fprint(w, `{"data":[{"id":"2","media_type":"VIDEO","media_url":"https://cdn/2.mp4","timestamp":"2024-05-02T10:00:00+0000"}],"paging":{}}`)
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	src := NewInstagramSource(InstagramOptions{BaseURL: srv.URL, AccessToken: "token-1", MaxPages: 5})
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{
		ExternalID: "1", Caption: "one", MediaType: models.FeedMediaImage,
		MediaURL: "https://cdn/1.jpg", Permalink: "https://ig/p/1", Timestamp: "2024-05-01T10:00:00+0000",
	}, records[0])
	assert.Equal(t, "2", records[1].ExternalID)
	assert.Empty(t, records[1].Caption)
}

func TestInstagramSource_StopsAtMaxPages(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"data":[{"id":"%d"}],"paging":{"next":"%s/me/media?access_token=t&after=%d"}}`, calls, srv.URL, calls)
	}))
	defer srv.Close()

	src := NewInstagramSource(InstagramOptions{BaseURL: srv.URL, AccessToken: "t", MaxPages: 2})
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, calls)
}

func TestInstagramSource_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantAuth bool
	}{
		{"expired token", http.StatusBadRequest, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`, true},
		{"unauthorized", http.StatusUnauthorized, `{}`, true},
		{"upstream outage", http.StatusBadGateway, `bad gateway`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewInstagramSource(InstagramOptions{BaseURL: srv.URL, AccessToken: "t"}).Fetch(context.Background())
			var se *StatusError
			require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.wantAuth, se.IsAuth())
		})
	}
}

func TestInstagramSource_NotConfigured(t *testing.T) {
	src := NewInstagramSource(InstagramOptions{BaseURL: "http://unused"})
	assert.False(t, src.Configured())
	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInstagramSource_ErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewInstagramSource(InstagramOptions{BaseURL: base, AccessToken: "secret-token", Timeout: time.Second}).Fetch(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Studio</title>
  <link>https://studio.example.com</link>
  <item>
    <title>Spring collection</title>
    <link>https://studio.example.com/spring</link>
    <guid>spring-2024</guid>
    <description>New pieces</description>
    <pubDate>Wed, 01 May 2024 10:00:00 GMT</pubDate>
    <enclosure url="https://cdn.example.com/spring.jpg" type="image/jpeg" length="100"/>
  </item>
  <item>
    <title>Behind the scenes</title>
    <link>https://studio.example.com/bts</link>
    <pubDate>Thu, 02 May 2024 10:00:00 GMT</pubDate>
    <enclosure url="https://cdn.example.com/bts.mp4" type="video/mp4" length="100"/>
  </item>
</channel>
</rss>`

func TestRSSSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	src := NewRSSSource(srv.URL, time.Second)
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "spring-2024", records[0].ExternalID)
	assert.Equal(t, "Spring collection\n\nNew pieces", records[0].Caption)
	assert.Equal(t, "https://cdn.example.com/spring.jpg", records[0].MediaURL)
	assert.Equal(t, models.FeedMediaImage, records[0].MediaType)
	assert.Equal(t, "2024-05-01T10:00:00Z", records[0].Timestamp)

	assert.Equal(t, "https://studio.example.com/bts", records[1].ExternalID, "link is the fallback id")
	assert.Equal(t, models.FeedMediaVideo, records[1].MediaType)
}

func TestRSSSource_UndatedItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Studio</title>
<item><title>Undated</title><guid>g1</guid></item></channel></rss>`)
	}))
	defer srv.Close()

	records, err := NewRSSSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Undated)
	assert.Empty(t, records[0].Timestamp)
}

func TestRSSSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewRSSSource(srv.URL, time.Second).Fetch(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	assert.True(t, se.IsAuth())

	_, err = NewRSSSource("", time.Second).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
