package services

import (
	"context"
	"strings"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/municipal"
)

// IntegrationService exposes the municipal directory directly, without
// touching stored permits.
type IntegrationService struct {
	directory *municipal.Directory
}

type CityLookupInput struct {
	PermitNumber string           `json:"permitNumber" binding:"required"`
	Location     *models.Location `json:"location"`
}

func (s *IntegrationService) SupportedCities() []municipal.City {
	if s.directory == nil {
		return []municipal.City{}
	}
	return s.directory.SupportedCities()
}

// PermitStatus looks a permit number up in a city's records. loc, when
// given, overrides the city path segment.
func (s *IntegrationService) PermitStatus(ctx context.Context, city string, loc *models.Location, permitNumber string) (*municipal.Lookup, error) {
	if strings.TrimSpace(permitNumber) == "" {
		return nil, apperr.Validation("Permit number is required", apperr.FieldError{Field: "permitNumber", Message: "permit number is required"})
	}
	if s.directory == nil {
		return nil, apperr.Dependency("municipal directory not configured", nil)
	}

	location := models.Location{City: city}
	if loc != nil && loc.City != "" {
		location = *loc
	}

	lookup, err := s.directory.PermitStatus(ctx, location, permitNumber)
	if err != nil {
		return nil, apperr.Dependency("Failed to fetch permit data", err)
	}
	return lookup, nil
}

func (s *IntegrationService) SearchBusinessPermits(ctx context.Context, city, businessName string) (*municipal.Lookup, error) {
	if strings.TrimSpace(businessName) == "" {
		return nil, apperr.Validation("Business name is required", apperr.FieldError{Field: "name", Message: "business name is required"})
	}
	if s.directory == nil {
		return nil, apperr.Dependency("municipal directory not configured", nil)
	}

	lookup, err := s.directory.SearchBusinessPermits(ctx, models.Location{City: city}, businessName)
	if err != nil {
		return nil, apperr.Dependency("Failed to search business permits", err)
	}
	return lookup, nil
}
