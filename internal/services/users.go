package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/auth"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
)

type UserService struct {
	store  *store.Store
	tokens *auth.Manager
	now    func() time.Time
	lg     *zap.SugaredLogger
}

type RegisterInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Role         string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ProfileInput struct {
	Name         *string                         `json:"name"`
	Phone        *string                         `json:"phone"`
	Organization *string                         `json:"organization"`
	Avatar       *string                         `json:"avatar"`
	Preferences  *models.NotificationPreferences `json:"preferences"`
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// Session is a signed-in user and the bearer token for it.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	role := in.Role
	if role == "" {
		role = models.RoleProjectManager
	}
	if err := checkEnum("role", role, models.UserRoles); err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		return nil, apperr.Validation("invalid role", apperr.FieldError{Field: "role", Message: "admin accounts cannot self-register"})
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		Phone:        in.Phone,
		Organization: strings.TrimSpace(in.Organization),
		Preferences:  models.DefaultPreferences(),
		IsActive:     true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("User already exists with this email")
		}
		return nil, err
	}

	return s.session(user)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.store.Users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.store.Users.Save(ctx, user); err != nil {
		return nil, err
	}

	return s.session(user)
}

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	return &Session{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Please authenticate")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("Please authenticate")
	}
	user, err := s.store.Users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, apperr.Unauthorized("Please authenticate")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("invalid profile", apperr.FieldError{Field: "name", Message: "name cannot be empty"})
		}
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Organization != nil {
		user.Organization = strings.TrimSpace(*in.Organization)
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
	}
	if in.Preferences != nil {
		user.Preferences = *in.Preferences
	}

	if err := s.store.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, user *models.User, in PasswordInput) error {
	if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return apperr.Validation("Current password is incorrect",
			apperr.FieldError{Field: "currentPassword", Message: "current password is incorrect"})
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	user.PasswordHash = hash
	return s.store.Users.Save(ctx, user)
}
