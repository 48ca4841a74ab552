package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LocationStatusInactive = "inactive"
	LocationStatusActive   = "active"
)

type Location struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Description  *string   `json:"description" gorm:"type:text"`
	VideoSource  *string   `json:"video_source" gorm:"size:255"`
	Status       string    `json:"status" gorm:"size:20;default:inactive"`
	IsMonitoring bool      `json:"is_monitoring" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
