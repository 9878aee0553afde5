package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent represents an event pushed to us by an external system.
// Events are recorded as-is and default to unprocessed; this service
// never dispatches or retries them.
type WebhookEvent struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	PharmacyID uint           `json:"pharmacy_id" gorm:"index;not null;comment:'Pharmacy this event belongs to'"`
	EventType  string         `json:"event_type" gorm:"type:varchar(100);index;not null"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Processed  bool           `json:"processed" gorm:"default:false"`
	ReceivedAt time.Time      `json:"received_at" gorm:"autoCreateTime"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
