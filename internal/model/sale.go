package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sale represents a point-of-sale transaction reported by a pharmacy.
// The inventory item reference is optional and is cleared, not
// cascaded, when the referenced item is deleted.
type Sale struct {
	ID              uint              `json:"id" gorm:"primarykey"`
	PharmacyID      uint              `json:"pharmacy_id" gorm:"index;not null;comment:'Pharmacy this sale belongs to'"`
	InventoryItemID *uint             `json:"inventory_item_id" gorm:"index"`
	Quantity        int               `json:"quantity" gorm:"not null"`
	TotalPrice      decimal.Decimal   `json:"total_price" gorm:"type:decimal(10,2);not null"`
	SaleTime        time.Time         `json:"sale_time" gorm:"not null"`
	ExtraData       datatypes.JSONMap `json:"extra_data,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at"`
	DeletedAt       gorm.DeletedAt    `json:"-" gorm:"index"`
}
