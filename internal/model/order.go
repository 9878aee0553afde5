package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order represents a purchase order placed through a pharmacy system.
// Items holds the free-form line item list as submitted.
type Order struct {
	ID             uint            `json:"id" gorm:"primarykey"`
	PharmacyID     uint            `json:"pharmacy_id" gorm:"index;not null;comment:'Pharmacy this order belongs to'"`
	OrderReference string          `json:"order_reference" gorm:"type:varchar(100);index;not null"`
	Status         string          `json:"status" gorm:"type:varchar(50);not null"`
	Items          datatypes.JSON  `json:"items" gorm:"type:jsonb;not null"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}
