package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InventoryItem represents a stock record pushed by a pharmacy system
type InventoryItem struct {
	ID         uint              `json:"id" gorm:"primarykey"`
	PharmacyID uint              `json:"pharmacy_id" gorm:"index;not null;comment:'Pharmacy this item belongs to'"`
	SKU        string            `json:"sku" gorm:"type:varchar(100);index;not null"`
	Name       string            `json:"name" gorm:"type:varchar(255);not null"`
	Quantity   int               `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal   `json:"price" gorm:"type:decimal(10,2);not null"`
	ExtraData  datatypes.JSONMap `json:"extra_data,omitempty" gorm:"type:jsonb"`
	UpdatedAt  time.Time         `json:"updated_at"`
	DeletedAt  gorm.DeletedAt    `json:"-" gorm:"index"`
}
