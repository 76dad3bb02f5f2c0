package models

import "time"

// ManuscriptPage is one folio of the manuscript. Pages are seeded by an
// import job and referenced from annotations, symbols, and analysis prompts.
type ManuscriptPage struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement"`
	FolioNumber string    `gorm:"column:folio_number;type:text;not null;uniqueIndex"`
	Section     *string   `gorm:"column:section"`
	ImageURL    *string   `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
