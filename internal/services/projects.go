package services

import (
	"context"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
)

type ProjectService struct {
	store *store.Store
	hub   Broadcaster
	now   func() time.Time
	lg    *zap.SugaredLogger
}

type CreateProjectInput struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Location     models.Location `json:"location" binding:"required"`
	TargetDate   time.Time       `json:"targetDate" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	Status       string          `json:"status"`
	Budget       *float64        `json:"budget"`
	Tags         []string        `json:"tags"`
	CustomFields map[string]any  `json:"customFields"`
}

type UpdateProjectInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Location    *models.Location `json:"location"`
	TargetDate  *time.Time       `json:"targetDate"`
	ActualDate  *time.Time       `json:"actualDate"`
	Category    *string          `json:"category"`
	Status      *string          `json:"status"`
	Budget      *float64         `json:"budget"`
	Tags        *[]string        `json:"tags"`
}

type AddMemberInput struct {
	UserID      string   `json:"userId" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
}

type ProjectStats struct {
	TotalPermits int `json:"totalPermits"`
	Approved     int `json:"approved"`
	Pending      int `json:"pending"`
	Critical     int `json:"critical"`
	Overdue      int `json:"overdue"`
}

type ProjectDetail struct {
	Project *models.Project `json:"project"`
	Permits []models.Permit `json:"permits"`
	Stats   ProjectStats    `json:"stats"`
}

// Authorize loads a project the user may act on: its owner, a team member, or an admin.
func (s *ProjectService) Authorize(ctx context.Context, user *models.User, projectID string) (*models.Project, error) {
	project, err := s.store.Projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin && !project.HasMember(user.ID) {
		return nil, apperr.Forbidden("Access denied")
	}
	return project, nil
}

// CanJoin gates realtime room membership with the same rule as Authorize.
func (s *ProjectService) CanJoin(ctx context.Context, userID, projectID string) error {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.Authorize(ctx, user, projectID)
	return err
}

func (s *ProjectService) List(ctx context.Context, user *models.User) ([]models.Project, error) {
	return s.store.Projects.ListForUser(ctx, user.ID)
}

func (s *ProjectService) Get(ctx context.Context, user *models.User, id string) (*ProjectDetail, error) {
	project, err := s.Authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	permits, err := s.store.Permits.ListByProjects(ctx, []string{id}, store.PermitFilter{})
	if err != nil {
		return nil, err
	}

	return &ProjectDetail{
		Project: project,
		Permits: permits,
		Stats:   computeStats(permits, s.now()),
	}, nil
}

func computeStats(permits []models.Permit, now time.Time) ProjectStats {
	stats := ProjectStats{TotalPermits: len(permits)}
	for _, p := range permits {
		switch p.Status {
		case models.PermitApproved:
			stats.Approved++
		case models.PermitDraft, models.PermitSubmitted, models.PermitUnderReview:
			stats.Pending++
		}
		if p.Priority == "critical" {
			stats.Critical++
		}
		if est := p.Timeline.EstimatedApprovalDate; est != nil && est.Before(now) && p.Status != models.PermitApproved {
			stats.Overdue++
		}
	}
	return stats
}

func (s *ProjectService) Create(ctx context.Context, user *models.User, in CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(in.Location.Address) == "" {
		return nil, apperr.Validation("invalid project", apperr.FieldError{Field: "location.address", Message: "address is required"})
	}
	if err := checkEnum("category", in.Category, models.ProjectCategories); err != nil {
		return nil, err
	}
	if err := checkEnum("status", in.Status, models.ProjectStatuses); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Location:       in.Location,
		TargetDate:     in.TargetDate.UTC(),
		Category:       in.Category,
		Status:         in.Status,
		OwnerID:        user.ID,
		Budget:         in.Budget,
		Tags:           in.Tags,
		CreatedBy:      user.ID,
		LastModifiedBy: user.ID,
	}
	if project.Status == "" {
		project.Status = models.ProjectPlanning
	}
	if in.CustomFields != nil {
		raw, err := marshalJSON(in.CustomFields)
		if err != nil {
			return nil, apperr.Validation("invalid customFields")
		}
		project.CustomFields = raw
	}

	if err := s.store.Projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, user *models.User, id string, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.Authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		project.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Location != nil {
		project.Location = *in.Location
	}
	if in.TargetDate != nil {
		project.TargetDate = in.TargetDate.UTC()
	}
	if in.ActualDate != nil {
		at := in.ActualDate.UTC()
		project.ActualDate = &at
	}
	if in.Category != nil {
		if err := checkEnum("category", *in.Category, models.ProjectCategories); err != nil {
			return nil, err
		}
		project.Category = *in.Category
	}
	if in.Status != nil {
		if err := checkEnum("status", *in.Status, models.ProjectStatuses); err != nil {
			return nil, err
		}
		project.Status = *in.Status
	}
	if in.Budget != nil {
		project.Budget = in.Budget
	}
	if in.Tags != nil {
		project.Tags = *in.Tags
	}
	project.LastModifiedBy = user.ID

	if err := s.store.Projects.Save(ctx, project); err != nil {
		return nil, err
	}

	s.hub.ToProject(project.ID, realtime.EventProjectUpdated, project)
	return project, nil
}

func (s *ProjectService) AddMember(ctx context.Context, user *models.User, id string, in AddMemberInput) (*models.Project, error) {
	project, err := s.Authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if in.UserID == project.OwnerID {
		return nil, apperr.Conflict("user already owns this project")
	}
	if _, err := s.store.Users.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	permissions := in.Permissions
	if len(permissions) == 0 {
		permissions = []string{"view"}
	}
	member := &models.ProjectMember{
		ProjectID:   project.ID,
		UserID:      in.UserID,
		Role:        in.Role,
		Permissions: permissions,
	}
	if err := s.store.Projects.AddMember(ctx, member); err != nil {
		return nil, err
	}

	project, err = s.store.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hub.ToProject(project.ID, realtime.EventProjectUpdated, project)
	return project, nil
}
