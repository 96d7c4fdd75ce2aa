package models

import (
	"time"
)

// Document is one record of any collection. Fields live in Data as jsonb.
type Document struct {
	Collection string    `json:"collection" gorm:"type:text;primaryKey"`
	ID         string    `json:"id" gorm:"type:text;primaryKey"`
	Data       string    `json:"data" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp();index"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}
