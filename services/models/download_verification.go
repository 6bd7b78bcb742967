package models

import (
	"time"

	"github.com/google/uuid"
)

// DownloadVerification is a bearer credential for one product's file. The ID
// is the token placed in the download link.
type DownloadVerification struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	ProductID uuid.UUID `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	Product Product `gorm:"foreignKey:ProductID;references:ID"`
}

func (DownloadVerification) TableName() string { return "download_verifications" }
