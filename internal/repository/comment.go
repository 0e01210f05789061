package repository

import (
	"context"

	"blogcms/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	// Create inserts a comment. A missing post surfaces as a foreign key
	// violation from the store.
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, status string) ([]*models.Comment, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]*models.Comment, error)
	CountAll(ctx context.Context, status string) (int64, error)
	SetStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) withPostTitle(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*, posts.title AS post_title").
		Joins("LEFT JOIN posts ON posts.id = comments.post_id")
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.withPostTitle(ctx).Where("comments.id = ?", id).Take(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns a post's comments in the given status, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, status string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, status).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// ListAll returns comments across posts, newest first, with the post title.
// An empty status matches every status.
func (r *commentRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]*models.Comment, error) {
	q := r.withPostTitle(ctx)
	if status != "" {
		q = q.Where("comments.status = ?", status)
	}

	var comments []*models.Comment
	err := q.Order("comments.created_at DESC, comments.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) CountAll(ctx context.Context, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Comment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// SetStatus moves a comment to status. Setting the status it already has
// still counts as a match, so the operation is idempotent.
func (r *commentRepository) SetStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
