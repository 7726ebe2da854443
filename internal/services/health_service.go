package services

import (
	"context"
	"errors"

	"github.com/lumen-optics/storefront/internal/domain"
	"github.com/lumen-optics/storefront/internal/repositories"
)

var errHealthRepositoryRequired = errors.New("health service: repository is required")

// ErrHealthUnavailable indicates the readiness report could not be produced.
var ErrHealthUnavailable = errors.New("health service: unavailable")

type healthService struct {
	repo repositories.HealthRepository
}

// NewHealthService constructs a HealthService over the dependency probe repository.
func NewHealthService(repo repositories.HealthRepository) (HealthService, error) {
	if repo == nil {
		return nil, errHealthRepositoryRequired
	}
	return &healthService{repo: repo}, nil
}

// Report collects dependency probe results.
func (s *healthService) Report(ctx context.Context) (domain.HealthReport, error) {
	report, err := s.repo.Collect(ctx)
	if err != nil {
		return domain.HealthReport{}, ErrHealthUnavailable
	}
	return report, nil
}
