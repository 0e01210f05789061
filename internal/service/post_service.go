package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogcms/internal/cache"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/notifications"
	"blogcms/internal/observability"
	"blogcms/internal/repository"
	"blogcms/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type PostService struct {
	postRepo repository.PostRepository
	cache    *cache.Cache
	store    storage.Store
	events   notifications.Publisher
}

type CreatePostInput struct {
	AuthorID      uint
	Title         string
	Content       string
	Excerpt       string
	FeaturedImage string
	Status        string
}

type UpdatePostInput struct {
	Title         string
	Content       string
	Excerpt       string
	FeaturedImage string
	Status        string
}

// PostDetail is a single post with its media. Media is never null.
type PostDetail struct {
	*models.Post
	Media []models.Media `json:"media"`
}

// PostList is one page of posts.
type PostList struct {
	Posts      []*models.Post    `json:"posts"`
	Pagination models.Pagination `json:"pagination"`
}

// NewPostService wires the post service. cache, store and events may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	c *cache.Cache,
	store storage.Store,
	events notifications.Publisher,
) *PostService {
	if c == nil {
		c = cache.New(nil)
	}
	return &PostService{postRepo: postRepo, cache: c, store: store, events: events}
}

func validatePostFields(title, content, status string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return models.NewValidationError("Title and content are required")
	}
	if status != "" && !models.ValidPostStatus(status) {
		return models.NewValidationError("Invalid status. Must be draft or published")
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content, in.Status); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	post := &models.Post{
		Title:         strings.TrimSpace(in.Title),
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		FeaturedImage: in.FeaturedImage,
		Status:        status,
	}
	if in.AuthorID != 0 {
		author := in.AuthorID
		post.AuthorID = &author
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.cache.InvalidatePostLists(ctx)
	if post.Status == models.PostStatusPublished {
		s.publishPublished(ctx, post.ID, post.Title)
	}
	return post, nil
}

// UpdatePost overwrites the editable fields. An empty status keeps the
// current one.
func (s *PostService) UpdatePost(ctx context.Context, id uint, in UpdatePostInput) error {
	if err := validatePostFields(in.Title, in.Content, in.Status); err != nil {
		return err
	}

	wasPublished := false
	if in.Status == models.PostStatusPublished {
		if current, err := s.postRepo.GetByID(ctx, id); err == nil {
			wasPublished = current.Status == models.PostStatusPublished
		}
	}

	err := s.postRepo.Update(ctx, id, repository.PostUpdate{
		Title:         strings.TrimSpace(in.Title),
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		FeaturedImage: in.FeaturedImage,
		Status:        in.Status,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return fmt.Errorf("update post %d: %w", id, err)
	}

	s.cache.InvalidatePostLists(ctx)
	if in.Status == models.PostStatusPublished && !wasPublished {
		s.publishPublished(ctx, id, in.Title)
	}
	return nil
}

// DeletePost removes the post and its comments and detaches its media.
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	if err := s.postRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	s.cache.InvalidatePostLists(ctx)
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", id)
	return nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	media := make([]models.Media, 0, len(post.Media))
	for _, m := range post.Media {
		media = append(media, withMediaURLs(s.store, m))
	}
	post.Media = nil
	return &PostDetail{Post: post, Media: media}, nil
}

// ListPosts returns one page of posts with the given status, newest first.
// Published listings go through the Redis cache.
func (s *PostService) ListPosts(ctx context.Context, status string, page, limit int) (*PostList, error) {
	if status == "" {
		status = models.PostStatusPublished
	}
	if !models.ValidPostStatus(status) {
		return nil, models.NewValidationError("Invalid status. Must be draft or published")
	}
	page, limit = normalizePage(page, limit, DefaultPostLimit)

	ctx, end := observability.StartSpan(ctx, "service", "posts.list",
		attribute.String("post.status", status),
		attribute.Int("page", page),
	)
	var err error
	defer func() { end(err) }()

	load := func(dest *PostList) error {
		pg := models.NewPagination(page, limit, 0)
		posts, err := s.postRepo.List(ctx, status, limit, pg.Offset())
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}
		total, err := s.postRepo.Count(ctx, status)
		if err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		if posts == nil {
			posts = []*models.Post{}
		}
		*dest = PostList{Posts: posts, Pagination: models.NewPagination(page, limit, total)}
		return nil
	}

	var out PostList
	if status != models.PostStatusPublished {
		err = load(&out)
	} else {
		key := s.cache.PostListKey(ctx, status, page, limit)
		err = s.cache.CacheAside(ctx, key, &out, cache.PostListTTL, func() error { return load(&out) })
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostService) publishPublished(ctx context.Context, id uint, title string) {
	notifications.PublishBestEffort(ctx, s.events, notifications.EventPostPublished, map[string]any{
		"id":    id,
		"title": title,
	})
}
