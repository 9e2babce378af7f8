package models

import "time"

// ViewRecord is the persisted view count of a single page.
type ViewRecord struct {
	Slug      string    `gorm:"primaryKey;size:255" json:"slug"`
	Count     uint      `gorm:"column:count;not null;default:0" json:"count"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (ViewRecord) TableName() string {
	return "views"
}
