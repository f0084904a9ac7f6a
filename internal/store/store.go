package store

import (
	"errors"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle.
type Store struct {
	DB            *gorm.DB
	Users         *UserRepository
	Projects      *ProjectRepository
	Permits       *PermitRepository
	Inspections   *InspectionRepository
	Notifications *NotificationRepository
}

func New(db *gorm.DB) *Store {
	return &Store{
		DB:            db,
		Users:         &UserRepository{db: db},
		Projects:      &ProjectRepository{db: db},
		Permits:       &PermitRepository{db: db},
		Inspections:   &InspectionRepository{db: db},
		Notifications: &NotificationRepository{db: db},
	}
}

// translate maps driver errors onto the application taxonomy.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(entity + " already exists")
	default:
		return apperr.Internal("database error", err)
	}
}
