package journal

import (
	"time"

	"kioskidle/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for the cycle journal
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new cycle event into the journal
func (r *Repository) Create(event *models.CycleEvent) error {
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert cycle event")
	}
	return nil
}

// GetEventsSince retrieves all cycle events since a given time in order
func (r *Repository) GetEventsSince(since time.Time) ([]models.CycleEvent, error) {
	var events []models.CycleEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query cycle events")
	}

	return events, nil
}

// GetLatest retrieves the most recent cycle event, nil when the journal
// is empty.
func (r *Repository) GetLatest() (*models.CycleEvent, error) {
	var event models.CycleEvent
	result := r.db.Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest cycle event")
	}
	return &event, nil
}

// GetSummarySince returns aggregated blank/wake counts and dark time
// since a given time. SQL does the SUM; callers derive the rest.
func (r *Repository) GetSummarySince(since time.Time) (*models.CycleSummary, error) {
	var summary models.CycleSummary

	result := r.db.Model(&models.CycleEvent{}).
		Select(`SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) as blank_count,
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END) as wake_count,
			COALESCE(SUM(dark_seconds), 0) as total_dark_secs,
			COALESCE(AVG(CASE WHEN kind = ? THEN idle_seconds END), 0) as mean_idle_seconds`,
			models.KindBlank, models.KindWake, models.KindBlank).
		Where("timestamp >= ?", since).
		Scan(&summary)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query cycle summary")
	}

	return &summary, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.CycleEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the journal
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// Clear removes all cycle events and error logs from the journal
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM cycle_events"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear cycle events")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
