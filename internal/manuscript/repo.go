package manuscript

import (
	"context"

	"gorm.io/gorm"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
)

// Repository reads manuscript pages and symbols. The import job that seeds
// them lives elsewhere; everything here is lookup only.
type Repository interface {
	GetPage(ctx context.Context, id int) (*models.ManuscriptPage, error)
	GetSymbol(ctx context.Context, id int) (*models.Symbol, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a manuscript repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetPage(ctx context.Context, id int) (*models.ManuscriptPage, error) {
	var page models.ManuscriptPage
	err := r.db.WithContext(ctx).Take(&page, id).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *repository) GetSymbol(ctx context.Context, id int) (*models.Symbol, error) {
	var symbol models.Symbol
	err := r.db.WithContext(ctx).Preload("Page").Take(&symbol, id).Error
	if err != nil {
		return nil, err
	}
	return &symbol, nil
}
