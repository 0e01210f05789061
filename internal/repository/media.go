package repository

import (
	"context"

	"blogcms/internal/models"

	"gorm.io/gorm"
)

// MediaRepository defines interface for uploaded media metadata
type MediaRepository interface {
	// Create records an upload. A post_id naming no post surfaces as a
	// foreign key violation.
	Create(ctx context.Context, media *models.Media) error
	GetByID(ctx context.Context, id uint) (*models.Media, error)
	List(ctx context.Context) ([]*models.Media, error)
	Delete(ctx context.Context, id uint) error
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *mediaRepository) GetByID(ctx context.Context, id uint) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).Take(&media, id).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *mediaRepository) List(ctx context.Context) ([]*models.Media, error) {
	var media []*models.Media
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&media).Error
	return media, err
}

func (r *mediaRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Media{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
