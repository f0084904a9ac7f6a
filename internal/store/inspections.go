package store

import (
	"context"
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"gorm.io/gorm"
)

type InspectionRepository struct {
	db *gorm.DB
}

func (r *InspectionRepository) Create(ctx context.Context, i *models.Inspection) error {
	return translate(r.db.WithContext(ctx).Create(i).Error, "inspection")
}

func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*models.Inspection, error) {
	var i models.Inspection
	if err := r.db.WithContext(ctx).First(&i, "id = ?", id).Error; err != nil {
		return nil, translate(err, "inspection")
	}
	return &i, nil
}

// ListByPermit returns a permit's inspections, latest scheduled first.
func (r *InspectionRepository) ListByPermit(ctx context.Context, permitID string) ([]models.Inspection, error) {
	inspections := []models.Inspection{}
	err := r.db.WithContext(ctx).
		Where("permit_id = ?", permitID).
		Order("scheduled_date desc").
		Find(&inspections).Error
	if err != nil {
		return nil, translate(err, "inspection")
	}
	return inspections, nil
}

// ListUpcoming returns scheduled inspections of the given projects from now on.
func (r *InspectionRepository) ListUpcoming(ctx context.Context, projectIDs []string, now time.Time) ([]models.Inspection, error) {
	inspections := []models.Inspection{}
	if len(projectIDs) == 0 {
		return inspections, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Where("scheduled_date >= ?", now.UTC()).
		Where("status IN ?", []string{models.InspectionScheduled, models.InspectionRescheduled}).
		Order("scheduled_date").
		Find(&inspections).Error
	if err != nil {
		return nil, translate(err, "inspection")
	}
	return inspections, nil
}

// FindReminderCandidates returns scheduled inspections strictly inside (from, to)
// that have not been reminded yet.
func (r *InspectionRepository) FindReminderCandidates(ctx context.Context, from, to time.Time) ([]models.Inspection, error) {
	var inspections []models.Inspection
	err := r.db.WithContext(ctx).
		Where("scheduled_date > ? AND scheduled_date < ?", from.UTC(), to.UTC()).
		Where("status = ?", models.InspectionScheduled).
		Where("reminder_sent_at IS NULL").
		Order("scheduled_date").
		Find(&inspections).Error
	if err != nil {
		return nil, translate(err, "inspection")
	}
	return inspections, nil
}

func (r *InspectionRepository) Save(ctx context.Context, i *models.Inspection) error {
	return translate(r.db.WithContext(ctx).Save(i).Error, "inspection")
}

func (r *InspectionRepository) Delete(ctx context.Context, id string) (*models.Inspection, error) {
	i, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(i).Error; err != nil {
		return nil, translate(err, "inspection")
	}
	return i, nil
}
