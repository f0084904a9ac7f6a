package store

import (
	"context"
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermitFilter struct {
	Status   string
	Type     string
	Priority string
}

func (f PermitFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	return q
}

const priorityOrder = "CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"

type PermitRepository struct {
	db *gorm.DB
}

func (r *PermitRepository) Create(ctx context.Context, p *models.Permit) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "permit")
}

func (r *PermitRepository) FindByID(ctx context.Context, id string) (*models.Permit, error) {
	var p models.Permit
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "permit")
	}
	return &p, nil
}

// ListByProjects returns permits of the given projects, most urgent first.
func (r *PermitRepository) ListByProjects(ctx context.Context, projectIDs []string, f PermitFilter) ([]models.Permit, error) {
	permits := []models.Permit{}
	if len(projectIDs) == 0 {
		return permits, nil
	}
	q := f.apply(r.db.WithContext(ctx).Where("project_id IN ?", projectIDs))
	err := q.Order(priorityOrder).
		Order("timeline_estimated_approval_date").
		Order("created_at desc").
		Find(&permits).Error
	if err != nil {
		return nil, translate(err, "permit")
	}
	return permits, nil
}

// Save writes the whole row: status, timeline, notes and tracking land together.
func (r *PermitRepository) Save(ctx context.Context, p *models.Permit) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error, "permit")
}

// Delete removes a permit and its inspections in one transaction and
// returns both so callers can announce the removals.
func (r *PermitRepository) Delete(ctx context.Context, id string) (*models.Permit, []models.Inspection, error) {
	var permit models.Permit
	var removed []models.Inspection

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&permit, "id = ?", id).Error; err != nil {
			return translate(err, "permit")
		}
		if err := tx.Where("permit_id = ?", id).Find(&removed).Error; err != nil {
			return translate(err, "inspection")
		}
		if len(removed) > 0 {
			if err := tx.Where("permit_id = ?", id).Delete(&models.Inspection{}).Error; err != nil {
				return translate(err, "inspection")
			}
		}
		return translate(tx.Delete(&permit).Error, "permit")
	})
	if err != nil {
		return nil, nil, err
	}
	return &permit, removed, nil
}

// FindSyncEligible returns permits awaiting a decision that carry an external id.
func (r *PermitRepository) FindSyncEligible(ctx context.Context) ([]models.Permit, error) {
	var permits []models.Permit
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.PermitSubmitted, models.PermitUnderReview}).
		Where("jurisdiction_external_id IS NOT NULL AND jurisdiction_external_id <> ''").
		Find(&permits).Error
	if err != nil {
		return nil, translate(err, "permit")
	}
	return permits, nil
}

// FindExpiring returns approved or renewal-required permits whose expiry falls in [from, to].
func (r *PermitRepository) FindExpiring(ctx context.Context, from, to time.Time) ([]models.Permit, error) {
	var permits []models.Permit
	err := r.db.WithContext(ctx).
		Where("timeline_expiry_date >= ? AND timeline_expiry_date <= ?", from.UTC(), to.UTC()).
		Where("status IN ?", []string{models.PermitApproved, models.PermitRenewalRequired}).
		Find(&permits).Error
	if err != nil {
		return nil, translate(err, "permit")
	}
	return permits, nil
}
