package services

import (
	"context"

	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TrackerStore is the persistence the monitoring pass depends on
type TrackerStore interface {
	// ListActive returns every active tracker ordered by id
	ListActive(ctx context.Context) ([]models.Tracker, error)

	// BatchUpdate writes all observation updates atomically
	BatchUpdate(ctx context.Context, updates []models.ObservationUpdate) error
}

// TrackerService handles tracker persistence
type TrackerService struct {
	db *gorm.DB
}

// NewTrackerService creates a new tracker service
func NewTrackerService(db *gorm.DB) *TrackerService {
	return &TrackerService{db: db}
}

// Create validates and saves a new active tracker
func (s *TrackerService) Create(ctx context.Context, tracker *models.Tracker) error {
	tracker.Normalize()
	if err := tracker.Validate(); err != nil {
		return err
	}

	tracker.ID = 0
	tracker.IsActive = true
	tracker.LastPrice = decimal.NullDecimal{}
	tracker.LastCheckedAt = nil
	tracker.LastTriggeredAt = nil

	if err := s.db.WithContext(ctx).Create(tracker).Error; err != nil {
		return errors.Wrap(err, "create tracker")
	}
	return nil
}

// Get retrieves a tracker by ID
func (s *TrackerService) Get(ctx context.Context, id uint) (*models.Tracker, error) {
	var tracker models.Tracker
	if err := s.db.WithContext(ctx).First(&tracker, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackerNotFound
		}
		return nil, errors.Wrapf(err, "get tracker %d", id)
	}
	return &tracker, nil
}

// ListByOwner returns the owner's trackers, newest first
func (s *TrackerService) ListByOwner(ctx context.Context, ownerID int64) ([]models.Tracker, error) {
	var trackers []models.Tracker
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&trackers).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list trackers of %d", ownerID)
	}
	return trackers, nil
}

// Toggle flips the active flag of a tracker owned by ownerID
func (s *TrackerService) Toggle(ctx context.Context, id uint, ownerID int64) (*models.Tracker, error) {
	var tracker models.Tracker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&tracker).Error; err != nil {
			return err
		}
		tracker.IsActive = !tracker.IsActive
		return tx.Model(&tracker).Update("is_active", tracker.IsActive).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackerNotFound
		}
		return nil, errors.Wrapf(err, "toggle tracker %d", id)
	}
	return &tracker, nil
}

// Delete removes a tracker owned by ownerID
func (s *TrackerService) Delete(ctx context.Context, id uint, ownerID int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Tracker{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete tracker %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrTrackerNotFound
	}
	return nil
}

// ListActive returns every active tracker ordered by id
func (s *TrackerService) ListActive(ctx context.Context) ([]models.Tracker, error) {
	var trackers []models.Tracker
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&trackers).Error; err != nil {
		return nil, errors.Wrap(err, "list active trackers")
	}
	return trackers, nil
}

// BatchUpdate writes observation columns for all updates in one transaction.
// The active flag is never touched; an id that no longer exists is skipped.
func (s *TrackerService) BatchUpdate(ctx context.Context, updates []models.ObservationUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			columns := map[string]interface{}{
				"last_checked_at": u.LastCheckedAt,
			}
			if u.LastPrice.Valid {
				columns["last_price"] = u.LastPrice
			}
			if u.LastTriggeredAt != nil {
				columns["last_triggered_at"] = *u.LastTriggeredAt
			}

			if err := tx.Model(&models.Tracker{}).Where("id = ?", u.ID).UpdateColumns(columns).Error; err != nil {
				return errors.Wrapf(err, "tracker %d", u.ID)
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}
