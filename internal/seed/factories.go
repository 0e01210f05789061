// Package seed creates demo content for development databases. It is never
// run against production data.
package seed

import (
	"fmt"
	"strings"
	"time"

	"blogcms/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var feedMediaTypes = []string{models.FeedMediaImage, models.FeedMediaImage, models.FeedMediaVideo, models.FeedMediaCarousel}

// Factory builds domain entities with fake content. It does not touch the
// database.
type Factory struct {
	faker   *gofakeit.Faker
	now     time.Time
	maxDays int
}

// NewFactory creates a Factory. The same seed yields the same content.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: gofakeit.New(seed), now: time.Now(), maxDays: maxDays}
}

// pastTime spreads timestamps over the last maxDays.
func (f *Factory) pastTime() time.Time {
	minutes := f.faker.Number(0, f.maxDays*24*60)
	return f.now.Add(-time.Duration(minutes) * time.Minute)
}

// BuildPost returns an unsaved post. Roughly a quarter of posts are drafts.
func (f *Factory) BuildPost(authorID *uint) *models.Post {
	status := models.PostStatusPublished
	if f.faker.Number(1, 4) == 1 {
		status = models.PostStatusDraft
	}
	n := f.faker.Number(2, 4)
	paragraphs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		paragraphs = append(paragraphs, f.faker.Paragraph(1, 4, 12, " "))
	}
	created := f.pastTime()
	return &models.Post{
		Title:         strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:       strings.Join(paragraphs, "\n\n"),
		Excerpt:       f.faker.Sentence(12),
		FeaturedImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID()),
		Status:        status,
		AuthorID:      authorID,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// BuildComment returns an unsaved comment on post, created after the post.
func (f *Factory) BuildComment(post *models.Post) *models.Comment {
	statuses := []string{models.CommentStatusPending, models.CommentStatusApproved, models.CommentStatusApproved, models.CommentStatusRejected}
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if created.After(f.now) {
		created = f.now
	}
	return &models.Comment{
		PostID:      post.ID,
		AuthorName:  f.faker.Name(),
		AuthorEmail: f.faker.Email(),
		Content:     f.faker.Sentence(f.faker.Number(5, 25)),
		Status:      statuses[f.faker.Number(0, len(statuses)-1)],
		CreatedAt:   created,
	}
}

// BuildFeedItem returns an unsaved cached feed item with a unique external id.
func (f *Factory) BuildFeedItem() *models.FeedItem {
	id := f.faker.Numerify("179##############")
	mediaType := feedMediaTypes[f.faker.Number(0, len(feedMediaTypes)-1)]
	return &models.FeedItem{
		ExternalID:        id,
		Caption:           f.faker.Sentence(10) + " #" + f.faker.Word(),
		MediaURL:          fmt.Sprintf("https://picsum.photos/seed/ig-%s/1080/1080", id),
		MediaType:         mediaType,
		Permalink:         "https://www.instagram.com/p/" + f.faker.LetterN(11) + "/",
		ExternalTimestamp: f.pastTime().UTC(),
	}
}
