package models

import "time"

const (
	ViolationStatusActive       = "active"
	ViolationStatusAcknowledged = "acknowledged"
)

// Violation is a vehicle detected parked past the allowed duration.
// Rows are written by the detection pipeline; operators only acknowledge them.
type Violation struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	LocationID      *string    `json:"location_id" gorm:"size:36;index"`
	VehicleID       *int       `json:"vehicle_id"`
	DetectedAt      time.Time  `json:"detected_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
	ConfidenceScore *float64   `json:"confidence_score"`
	ImagePath       *string    `json:"image_path" gorm:"size:255"`
	VideoPath       *string    `json:"video_path" gorm:"size:255"`
	Status          string     `json:"status" gorm:"size:20;default:active"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at"`

	Location *Location `json:"-" gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
}
