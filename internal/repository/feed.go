package repository

import (
	"context"
	"time"

	"blogcms/internal/models"

	"gorm.io/gorm"
)

// FeedItemRepository defines the interface for the cached upstream feed
type FeedItemRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.FeedItem, error)
	Create(ctx context.Context, item *models.FeedItem) error
	// Update overwrites the mutable upstream fields of the row with item.ID
	// and touches updated_at.
	Update(ctx context.Context, item *models.FeedItem) error
	List(ctx context.Context, limit, offset int) ([]*models.FeedItem, error)
	Count(ctx context.Context) (int64, error)
	CountByMediaType(ctx context.Context) (map[string]int64, error)
	Delete(ctx context.Context, id uint) error
}

type feedItemRepository struct {
	db *gorm.DB
}

// NewFeedItemRepository creates a new FeedItemRepository
func NewFeedItemRepository(db *gorm.DB) FeedItemRepository {
	return &feedItemRepository{db: db}
}

func (r *feedItemRepository) FindByExternalID(ctx context.Context, externalID string) (*models.FeedItem, error) {
	var item models.FeedItem
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *feedItemRepository) Create(ctx context.Context, item *models.FeedItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *feedItemRepository) Update(ctx context.Context, item *models.FeedItem) error {
	item.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.FeedItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"caption":            item.Caption,
		"media_url":          item.MediaURL,
		"media_type":         item.MediaType,
		"permalink":          item.Permalink,
		"external_timestamp": item.ExternalTimestamp,
		"updated_at":         item.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns cached items, most recent upstream timestamp first.
func (r *feedItemRepository) List(ctx context.Context, limit, offset int) ([]*models.FeedItem, error) {
	var items []*models.FeedItem
	err := r.db.WithContext(ctx).
		Order("external_timestamp DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}

func (r *feedItemRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.FeedItem{}).Count(&total).Error
	return total, err
}

func (r *feedItemRepository) CountByMediaType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		MediaType string
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.FeedItem{}).
		Select("media_type, COUNT(*) AS total").
		Group("media_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.MediaType] = row.Total
	}
	return out, nil
}

func (r *feedItemRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.FeedItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SyncRunRepository records feed synchronization runs
type SyncRunRepository interface {
	Create(ctx context.Context, run *models.FeedSyncRun) error
	Latest(ctx context.Context) (*models.FeedSyncRun, error)
}

type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository creates a new SyncRunRepository
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

func (r *syncRunRepository) Create(ctx context.Context, run *models.FeedSyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepository) Latest(ctx context.Context) (*models.FeedSyncRun, error) {
	var run models.FeedSyncRun
	err := r.db.WithContext(ctx).Order("finished_at DESC, id DESC").Take(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
