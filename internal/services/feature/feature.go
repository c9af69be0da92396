// Package services содержит бизнес-логику управления функциями организации.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// FeatureRepository определяет методы для работы с функциями в хранилище.
type FeatureRepository interface {
	CreateFeature(ctx context.Context, feature models.Feature) (string, error)
	ListFeatures(ctx context.Context, organizationID string) ([]*models.Feature, error)
}

// FeatureService реализует управление функциями.
type FeatureService struct {
	repo FeatureRepository
	log  *slog.Logger
}

// NewFeatureService создает новый экземпляр FeatureService.
func NewFeatureService(repo FeatureRepository, log *slog.Logger) *FeatureService {
	return &FeatureService{
		repo: repo,
		log:  log,
	}
}

// Create создает новую функцию и возвращает её ID.
func (s *FeatureService) Create(ctx context.Context, req models.DummyFeature) (string, error) {
	feature := models.Feature{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		IsActive:       true,
	}
	id, err := s.repo.CreateFeature(ctx, feature)
	if err != nil {
		return "", err
	}
	s.log.Info("created new feature", slog.String("id", id))
	return id, nil
}

// List возвращает функции организации.
func (s *FeatureService) List(ctx context.Context, organizationID string) ([]*models.Feature, error) {
	return s.repo.ListFeatures(ctx, organizationID)
}
