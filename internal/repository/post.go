package repository

import (
	"context"
	"time"

	"blogcms/internal/models"

	"gorm.io/gorm"
)

// PostUpdate carries the editable fields of a post. An empty Status leaves
// the current status unchanged.
type PostUpdate struct {
	Title         string
	Content       string
	Excerpt       string
	FeaturedImage string
	Status        string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context, status string) (int64, error)
	Update(ctx context.Context, id uint, in PostUpdate) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// withAuthor selects every post column plus the author's username.
func (r *postRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*, accounts.username AS author_name").
		Joins("LEFT JOIN accounts ON accounts.id = posts.author_id")
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withAuthor(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("media.created_at ASC, media.id ASC")
		}).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Post, error) {
	q := r.withAuthor(ctx)
	if status != "" {
		q = q.Where("posts.status = ?", status)
	}

	var posts []*models.Post
	err := q.Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count(ctx context.Context, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

func (r *postRepository) Update(ctx context.Context, id uint, in PostUpdate) error {
	fields := map[string]interface{}{
		"title":          in.Title,
		"content":        in.Content,
		"excerpt":        in.Excerpt,
		"featured_image": in.FeaturedImage,
		"updated_at":     time.Now(),
	}
	if in.Status != "" {
		fields["status"] = in.Status
	}

	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a post in one transaction: its comments are deleted and its
// media rows are detached (post_id set to NULL) before the post row goes.
// Returns gorm.ErrRecordNotFound when the post does not exist.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Media{}).Where("post_id = ?", id).Update("post_id", nil).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
