package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is a bank-transfer payment tracked against a bill. Rows are
// created by the payment-initiation flow; this service only reads them
// and advances their status from rail events.
type Payment struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BillID       uuid.UUID      `gorm:"type:uuid;index;not null"`
	TransferID   string         `gorm:"type:varchar(64);uniqueIndex;not null"` // id assigned by the transfer rail
	Status       Status         `gorm:"type:varchar(20);not null"`
	ErrorMessage string         `gorm:"type:varchar(512)"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// SyncCursor is the single durable row holding the highest rail event id
// fully processed. One row per event stream; Stream is the primary key so
// upserts stay trivial.
type SyncCursor struct {
	Stream      string    `gorm:"type:varchar(32);primaryKey"`
	LastSyncNum int64     `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TransferEventStream is the cursor row key for payment transfer events.
const TransferEventStream = "transfer_events"
