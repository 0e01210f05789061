package seed

import (
	"context"
	"fmt"
	"time"

	"blogcms/internal/middleware"
	"blogcms/internal/models"

	"gorm.io/gorm"
)

// Options configures a fake-data run.
type Options struct {
	Posts           int
	CommentsPerPost int
	FeedItems       int
	MaxDays         int
	// Seed makes runs reproducible. Zero means the current time.
	Seed int64
	// Clean deletes posts, comments, media rows and feed items first.
	// Accounts are kept.
	Clean bool
}

// Summary counts the rows a run inserted.
type Summary struct {
	Posts     int
	Comments  int
	FeedItems int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d posts, %d comments, %d feed items", s.Posts, s.Comments, s.FeedItems)
}

// Seed fills the database with fake content authored by authorID.
func Seed(ctx context.Context, db *gorm.DB, authorID *uint, opts Options) (Summary, error) {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	f := NewFactory(opts.Seed, opts.MaxDays)
	middleware.Logger.InfoContext(ctx, "seeding database",
		"posts", opts.Posts, "comments_per_post", opts.CommentsPerPost, "feed_items", opts.FeedItems)

	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Clean {
			if err := clearData(tx); err != nil {
				return err
			}
		}

		posts := make([]*models.Post, 0, opts.Posts)
		for i := 0; i < opts.Posts; i++ {
			posts = append(posts, f.BuildPost(authorID))
		}
		if len(posts) > 0 {
			if err := tx.CreateInBatches(posts, 100).Error; err != nil {
				return fmt.Errorf("insert posts: %w", err)
			}
		}
		sum.Posts = len(posts)

		var comments []*models.Comment
		for _, p := range posts {
			for i := 0; i < opts.CommentsPerPost; i++ {
				comments = append(comments, f.BuildComment(p))
			}
		}
		if len(comments) > 0 {
			if err := tx.CreateInBatches(comments, 200).Error; err != nil {
				return fmt.Errorf("insert comments: %w", err)
			}
		}
		sum.Comments = len(comments)

		items := make([]*models.FeedItem, 0, opts.FeedItems)
		for i := 0; i < opts.FeedItems; i++ {
			items = append(items, f.BuildFeedItem())
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 100).Error; err != nil {
				return fmt.Errorf("insert feed items: %w", err)
			}
		}
		sum.FeedItems = len(items)
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	middleware.Logger.InfoContext(ctx, "seeding complete", "summary", sum.String())
	return sum, nil
}

// clearData removes content rows, children first.
func clearData(tx *gorm.DB) error {
	for _, model := range []any{&models.Comment{}, &models.Media{}, &models.Post{}, &models.FeedItem{}, &models.FeedSyncRun{}} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}
