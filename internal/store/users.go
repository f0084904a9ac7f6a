package store

import (
	"context"
	"strings"

	"github.com/offolaunch/launchtrack/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate(r.db.WithContext(ctx).Create(u).Error, "user")
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// FindByIDs returns the users that exist among ids. Missing ids are skipped.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Save(u).Error, "user")
}
