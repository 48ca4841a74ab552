package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/utils"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrMonitoringLimit = errors.New("monitoring limit reached")
)

// LocationChanges carries a partial location update. Fields that are not Set
// keep their stored value; a Set field with a nil Value writes NULL.
type LocationChanges struct {
	Name        utils.Optional[string]
	Description utils.Optional[string]
	VideoSource utils.Optional[string]
	Status      utils.Optional[string]
}

func (c LocationChanges) columns() map[string]interface{} {
	columns := map[string]interface{}{}
	for column, field := range map[string]utils.Optional[string]{
		"name":         c.Name,
		"description":  c.Description,
		"video_source": c.VideoSource,
		"status":       c.Status,
	} {
		if !field.Set {
			continue
		}
		if field.Value == nil {
			columns[column] = nil
		} else {
			columns[column] = *field.Value
		}
	}
	return columns
}

// Store is the storage handle shared by handlers and services.
// Each call runs on a session bound to the caller's context, and the
// connection goes back to the pool when the call returns.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) session(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	locations := []models.Location{}
	if err := s.session(ctx).Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var location models.Location
	if err := s.session(ctx).First(&location, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &location, nil
}

// CreateLocation inserts a new location. Status and monitoring flag always
// start as inactive/false whatever the caller passed.
func (s *Store) CreateLocation(ctx context.Context, location *models.Location) error {
	now := s.db.NowFunc()
	location.ID = ""
	location.Status = models.LocationStatusInactive
	location.IsMonitoring = false
	location.CreatedAt = now
	location.UpdatedAt = now

	if err := s.session(ctx).Create(location).Error; err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func (s *Store) UpdateLocation(ctx context.Context, id string, changes LocationChanges) (*models.Location, error) {
	var location models.Location
	err := s.session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&location, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		columns := changes.columns()
		columns["updated_at"] = s.db.NowFunc()
		if err := tx.Model(&models.Location{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return fmt.Errorf("update location: %w", err)
		}

		// Reload so explicit NULLs show up in the returned record.
		location = models.Location{}
		return tx.First(&location, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// SetLocationMonitoring flips the monitoring flag of a location and reports
// whether it changed. Enabling fails with ErrMonitoringLimit once limit
// locations are monitored; the count and the flip share one transaction.
func (s *Store) SetLocationMonitoring(ctx context.Context, id string, monitoring bool, limit int) (*models.Location, bool, error) {
	var location models.Location
	changed := false
	err := s.session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&location, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if location.IsMonitoring == monitoring {
			return nil
		}

		if monitoring {
			var active int64
			if err := tx.Model(&models.Location{}).Where("is_monitoring = ?", true).Count(&active).Error; err != nil {
				return fmt.Errorf("count monitoring locations: %w", err)
			}
			if active >= int64(limit) {
				return ErrMonitoringLimit
			}
		}

		location.IsMonitoring = monitoring
		changed = true
		return tx.Save(&location).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &location, changed, nil
}

func (s *Store) CountMonitoringLocations(ctx context.Context) (int64, error) {
	var count int64
	if err := s.session(ctx).Model(&models.Location{}).Where("is_monitoring = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count monitoring locations: %w", err)
	}
	return count, nil
}

// DeleteLocation hard-deletes a location. Violations that referenced it
// keep their rows with location_id cleared.
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	return s.session(ctx).Transaction(func(tx *gorm.DB) error {
		var location models.Location
		if err := tx.First(&location, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Model(&models.Violation{}).
			Where("location_id = ?", id).
			Update("location_id", nil).Error; err != nil {
			return fmt.Errorf("detach violations: %w", err)
		}

		return tx.Delete(&location).Error
	})
}

func (s *Store) ListViolations(ctx context.Context) ([]models.Violation, error) {
	violations := []models.Violation{}
	if err := s.session(ctx).Find(&violations).Error; err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return violations, nil
}

func (s *Store) GetViolation(ctx context.Context, id uint) (*models.Violation, error) {
	var violation models.Violation
	if err := s.session(ctx).First(&violation, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &violation, nil
}

func (s *Store) CreateViolation(ctx context.Context, violation *models.Violation) error {
	violation.ID = 0
	violation.Status = models.ViolationStatusActive
	violation.AcknowledgedAt = nil
	if violation.DetectedAt.IsZero() {
		violation.DetectedAt = s.db.NowFunc()
	}

	if err := s.session(ctx).Omit("Location").Create(violation).Error; err != nil {
		return fmt.Errorf("create violation: %w", err)
	}
	return nil
}

// AcknowledgeViolation marks a violation acknowledged at the given instant.
// Acknowledging twice is allowed and re-stamps acknowledged_at.
func (s *Store) AcknowledgeViolation(ctx context.Context, id uint, at time.Time) (*models.Violation, error) {
	var violation models.Violation
	err := s.session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&violation, id).Error; err != nil {
			return notFound(err)
		}

		acknowledgedAt := at.UTC()
		violation.Status = models.ViolationStatusAcknowledged
		violation.AcknowledgedAt = &acknowledgedAt

		return tx.Omit("Location").Save(&violation).Error
	})
	if err != nil {
		return nil, err
	}
	return &violation, nil
}

func (s *Store) FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var operator models.Operator
	if err := s.session(ctx).Where("email = ?", email).First(&operator).Error; err != nil {
		return nil, notFound(err)
	}
	return &operator, nil
}

func (s *Store) GetOperator(ctx context.Context, id uint) (*models.Operator, error) {
	var operator models.Operator
	if err := s.session(ctx).First(&operator, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &operator, nil
}

// SaveOperator inserts a new operator or updates an existing one.
func (s *Store) SaveOperator(ctx context.Context, operator *models.Operator) error {
	if err := s.session(ctx).Save(operator).Error; err != nil {
		return fmt.Errorf("save operator: %w", err)
	}
	return nil
}
