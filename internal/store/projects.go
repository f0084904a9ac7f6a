package store

import (
	"context"

	"github.com/offolaunch/launchtrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository struct {
	db *gorm.DB
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error, "project")
}

// FindByID loads a project with its owner and team.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Team.User").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "project")
	}
	return &p, nil
}

// ListForUser returns projects the user owns or is a team member of, newest first.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Team.User").
		Where("owner_id = ? OR id IN (?)", userID, r.memberProjects(userID)).
		Order("created_at desc").
		Find(&projects).Error
	if err != nil {
		return nil, translate(err, "project")
	}
	return projects, nil
}

// IDsForUser returns the ids of every project the user can access.
func (r *ProjectRepository) IDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("owner_id = ? OR id IN (?)", userID, r.memberProjects(userID)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err, "project")
	}
	return ids, nil
}

func (r *ProjectRepository) memberProjects(userID string) *gorm.DB {
	return r.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)
}

func (r *ProjectRepository) Save(ctx context.Context, p *models.Project) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error, "project")
}

// AddMember inserts a team member. Adding the same user twice is a conflict.
func (r *ProjectRepository) AddMember(ctx context.Context, m *models.ProjectMember) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error, "team member")
}
