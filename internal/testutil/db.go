package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offolaunch/launchtrack/db"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the full schema.
// A single connection serializes access, which sqlite needs once
// several goroutines write at the same time.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.MigrateDatabase(conn))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// UserOption customizes a fixture user before insert.
type UserOption func(*models.User)

func WithPhone(phone string) UserOption {
	return func(u *models.User) { u.Phone = phone }
}

func WithPreferences(p models.NotificationPreferences) UserOption {
	return func(u *models.User) { u.Preferences = p }
}

func WithRole(role string) UserOption {
	return func(u *models.User) { u.Role = role }
}

func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

func CreateUser(t *testing.T, conn *gorm.DB, name string, opts ...UserOption) *models.User {
	t.Helper()

	u := &models.User{
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "x",
		Name:         name,
		Role:         models.RoleProjectManager,
		Preferences:  models.DefaultPreferences(),
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}

// CreateProject inserts a project owned by owner with the given team members.
func CreateProject(t *testing.T, conn *gorm.DB, owner *models.User, team ...*models.User) *models.Project {
	t.Helper()

	p := &models.Project{
		Name:       "Mission St Cafe",
		Location:   models.Location{Address: "1 Mission St", City: "San Francisco", State: "CA", ZipCode: "94105", Country: "US"},
		TargetDate: time.Now().UTC().Add(90 * 24 * time.Hour),
		Category:   "restaurant",
		Status:     models.ProjectPlanning,
		OwnerID:    owner.ID,
	}
	require.NoError(t, conn.Create(p).Error)

	for _, member := range team {
		m := &models.ProjectMember{ProjectID: p.ID, UserID: member.ID, Role: "member"}
		require.NoError(t, conn.Create(m).Error)
		p.Team = append(p.Team, *m)
	}
	return p
}

// CreatePermit inserts a permit under project; mutate may adjust it before insert.
func CreatePermit(t *testing.T, conn *gorm.DB, project *models.Project, mutate func(*models.Permit)) *models.Permit {
	t.Helper()

	p := &models.Permit{
		ProjectID: project.ID,
		Name:      "Health Permit",
		Type:      "health",
		Status:    models.PermitDraft,
		Priority:  "high",
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func CreateInspection(t *testing.T, conn *gorm.DB, permit *models.Permit, mutate func(*models.Inspection)) *models.Inspection {
	t.Helper()

	i := &models.Inspection{
		PermitID:      permit.ID,
		ProjectID:     permit.ProjectID,
		Type:          "final",
		ScheduledDate: time.Now().UTC().Add(36 * time.Hour),
		Status:        models.InspectionScheduled,
	}
	if mutate != nil {
		mutate(i)
	}
	require.NoError(t, conn.Create(i).Error)
	return i
}
