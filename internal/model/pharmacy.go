package model

import (
	"time"

	"gorm.io/gorm"
)

// Pharmacy represents an onboarded pharmacy account.
// This is the core of the multi-tenant architecture: every resource
// record carries a PharmacyID and every API request is resolved to
// exactly one Pharmacy through its API key.
type Pharmacy struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	Name       string         `json:"name" gorm:"type:varchar(255);not null"`
	APIKey     string         `json:"api_key" gorm:"type:varchar(64);uniqueIndex;not null"`
	WebhookURL string         `json:"webhook_url,omitempty" gorm:"type:varchar(255)"`
	IsActive   bool           `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
