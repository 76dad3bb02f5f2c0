package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

// Repository manages the append-only activity feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, entry *models.ActivityFeedEntry) error
	ListPublic(ctx context.Context, page pagination.Params) ([]models.ActivityFeedEntry, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.ActivityFeedEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an activity feed repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, entry *models.ActivityFeedEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListPublic(ctx context.Context, page pagination.Params) ([]models.ActivityFeedEntry, error) {
	page = pagination.Normalize(page)
	var entries []models.ActivityFeedEntry
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.ActivityFeedEntry, error) {
	page = pagination.Normalize(page)
	var entries []models.ActivityFeedEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
