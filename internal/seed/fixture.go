package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"blogcms/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/demo.yml
var demoFixture []byte

// Fixture is a hand-written data set loaded from YAML.
type Fixture struct {
	Posts []FixturePost `yaml:"posts"`
	Feed  []FixtureFeed `yaml:"feed"`
}

type FixturePost struct {
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Excerpt  string           `yaml:"excerpt"`
	Status   string           `yaml:"status"`
	Comments []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Content     string `yaml:"content"`
	Status      string `yaml:"status"`
}

type FixtureFeed struct {
	ExternalID string    `yaml:"external_id"`
	Caption    string    `yaml:"caption"`
	MediaURL   string    `yaml:"media_url"`
	MediaType  string    `yaml:"media_type"`
	Permalink  string    `yaml:"permalink"`
	Timestamp  time.Time `yaml:"timestamp"`
}

// ParseFixture decodes and checks a fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, p := range fx.Posts {
		if p.Title == "" || p.Content == "" {
			return nil, fmt.Errorf("post %d: title and content are required", i)
		}
		if p.Status == "" {
			fx.Posts[i].Status = models.PostStatusDraft
		} else if !models.ValidPostStatus(p.Status) {
			return nil, fmt.Errorf("post %d: invalid status %q", i, p.Status)
		}
		for j, c := range p.Comments {
			if c.Status == "" {
				fx.Posts[i].Comments[j].Status = models.CommentStatusPending
			} else if !models.ValidCommentStatus(c.Status) {
				return nil, fmt.Errorf("post %d comment %d: invalid status %q", i, j, c.Status)
			}
		}
	}
	for i, item := range fx.Feed {
		if item.ExternalID == "" {
			return nil, fmt.Errorf("feed item %d: external_id is required", i)
		}
	}
	return &fx, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseFixture(f)
}

// DemoFixture is the fixture shipped with the binary.
func DemoFixture() (*Fixture, error) {
	return ParseFixture(bytes.NewReader(demoFixture))
}

// ApplyFixture inserts the fixture in one transaction. Feed items whose
// external id already exists are left alone.
func ApplyFixture(ctx context.Context, db *gorm.DB, fx *Fixture, authorID *uint) (Summary, error) {
	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range fx.Posts {
			post := &models.Post{
				Title:    p.Title,
				Content:  p.Content,
				Excerpt:  p.Excerpt,
				Status:   p.Status,
				AuthorID: authorID,
			}
			if err := tx.Create(post).Error; err != nil {
				return fmt.Errorf("insert post %q: %w", p.Title, err)
			}
			sum.Posts++
			for _, c := range p.Comments {
				comment := &models.Comment{
					PostID:      post.ID,
					AuthorName:  c.AuthorName,
					AuthorEmail: c.AuthorEmail,
					Content:     c.Content,
					Status:      c.Status,
				}
				if err := tx.Create(comment).Error; err != nil {
					return fmt.Errorf("insert comment on %q: %w", p.Title, err)
				}
				sum.Comments++
			}
		}
		for _, item := range fx.Feed {
			row := &models.FeedItem{
				ExternalID:        item.ExternalID,
				Caption:           item.Caption,
				MediaURL:          item.MediaURL,
				MediaType:         item.MediaType,
				Permalink:         item.Permalink,
				ExternalTimestamp: item.Timestamp.UTC(),
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_id"}},
				DoNothing: true,
			}).Create(row)
			if res.Error != nil {
				return fmt.Errorf("insert feed item %s: %w", item.ExternalID, res.Error)
			}
			sum.FeedItems += int(res.RowsAffected)
		}
		return nil
	})
	return sum, err
}
