package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"parking-violation-monitor/be/config"
	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/realtime"

	"go.uber.org/zap"
)

var (
	ErrBelowThreshold = errors.New("confidence score below threshold")
	ErrStreamCapacity = errors.New("maximum concurrent video streams reached")
)

// DetectionStore is the slice of the store the detection pipeline writes through.
type DetectionStore interface {
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	SetLocationMonitoring(ctx context.Context, id string, monitoring bool, limit int) (*models.Location, bool, error)
	CreateViolation(ctx context.Context, violation *models.Violation) error
}

// DetectionService is the entry point for the external video detection
// pipeline: it records violations and toggles location monitoring, and
// publishes the matching realtime events.
type DetectionService struct {
	// serializes monitoring toggles within the process
	monitorMu sync.Mutex
	store     DetectionStore
	publisher realtime.Publisher
	config    config.DetectionConfig
	log       *zap.Logger
}

func NewDetectionService(store DetectionStore, publisher realtime.Publisher, cfg config.DetectionConfig, log *zap.Logger) *DetectionService {
	return &DetectionService{
		store:     store,
		publisher: publisher,
		config:    cfg,
		log:       log,
	}
}

func (s *DetectionService) Config() config.DetectionConfig {
	return s.config
}

// RecordViolation stores a detected violation and pushes a violation_alert.
// Detections under the configured confidence threshold are rejected.
func (s *DetectionService) RecordViolation(ctx context.Context, violation *models.Violation) error {
	if violation.ConfidenceScore != nil && *violation.ConfidenceScore < s.config.ConfidenceThreshold {
		return fmt.Errorf("%w: %.2f < %.2f", ErrBelowThreshold, *violation.ConfidenceScore, s.config.ConfidenceThreshold)
	}

	if violation.LocationID != nil {
		if _, err := s.store.GetLocation(ctx, *violation.LocationID); err != nil {
			return err
		}
	}

	if err := s.store.CreateViolation(ctx, violation); err != nil {
		return err
	}

	s.log.Info("violation recorded",
		zap.Uint("violation_id", violation.ID),
		zap.Stringp("location_id", violation.LocationID),
	)
	s.publisher.Publish(realtime.EventViolationAlert, violation)
	return nil
}

// SetMonitoring switches analysis of a location's video feed on or off.
// Switching on is refused once MaxVideoStreams locations are monitored.
func (s *DetectionService) SetMonitoring(ctx context.Context, locationID string, monitoring bool) (*models.Location, error) {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	location, changed, err := s.store.SetLocationMonitoring(ctx, locationID, monitoring, s.config.MaxVideoStreams)
	if err != nil {
		if errors.Is(err, database.ErrMonitoringLimit) {
			return nil, fmt.Errorf("%w (%d)", ErrStreamCapacity, s.config.MaxVideoStreams)
		}
		return nil, err
	}
	if !changed {
		return location, nil
	}

	s.log.Info("location monitoring changed",
		zap.String("location_id", location.ID),
		zap.Bool("is_monitoring", location.IsMonitoring),
	)
	s.publisher.Publish(realtime.EventLocationStatus, LocationStatusEvent(location))
	return location, nil
}

// LocationStatusEvent is the payload of a location_status event.
func LocationStatusEvent(location *models.Location) map[string]interface{} {
	return map[string]interface{}{
		"id":            location.ID,
		"status":        location.Status,
		"is_monitoring": location.IsMonitoring,
	}
}
