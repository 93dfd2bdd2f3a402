package models

import "time"

// Item is a catalog entry priced in points.
type Item struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Price       int       `gorm:"column:price;not null;default:0"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	Description string    `gorm:"column:description;not null;default:''"`
	IsPublished bool      `gorm:"column:is_published;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
