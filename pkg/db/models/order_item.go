package models

import "time"

// OrderItem captures the snapshot of one line within an order. Name and
// price are copied at order time so later catalog edits never change
// historical orders. Exactly one of ItemID (internal catalog) or
// ExternalRef (external catalog code) is set.
type OrderItem struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     string    `gorm:"column:order_id;type:text;not null;index"`
	ItemID      *string   `gorm:"column:item_id;type:text"`
	ExternalRef string    `gorm:"column:external_ref;not null;default:''"`
	ItemName    string    `gorm:"column:item_name;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	Price       int       `gorm:"column:price;not null"`
	Fee         int       `gorm:"column:fee;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
