// Package services содержит бизнес-логику управления планами и разрешение
// прав (entitlement) с кешированием планов в Redis.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// ErrDuplicateFeature возвращается, когда функция встречается в списке
// лимитов плана более одного раза. Уникальность обеспечивается при записи.
var ErrDuplicateFeature = errors.New("duplicate feature in plan")

const cacheTTL = time.Hour

// PlanRepository определяет методы для работы с планами в хранилище.
type PlanRepository interface {
	// CreatePlan вставляет план с лимитами функций и возвращает его ID.
	CreatePlan(ctx context.Context, plan models.Plan) (string, error)
	// ReadPlan возвращает план по ID, (nil, nil) если его нет.
	ReadPlan(ctx context.Context, id string) (*models.Plan, error)
	// ListPlans возвращает планы организации.
	ListPlans(ctx context.Context, organizationID string) ([]*models.Plan, error)
	// UpdatePlan обновляет план и заменяет список лимитов.
	UpdatePlan(ctx context.Context, plan models.Plan, id string) (int, error)
	// RemovePlan удаляет план.
	RemovePlan(ctx context.Context, id string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// PlanService реализует управление планами, включая кеширование.
type PlanService struct {
	repo  PlanRepository
	cache Cache
	log   *slog.Logger
}

// NewPlanService создает новый экземпляр PlanService.
func NewPlanService(repo PlanRepository, cache Cache, log *slog.Logger) *PlanService {
	return &PlanService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("plan:%s", id)
}

// checkFeatures отклоняет списки, где функция встречается дважды.
func checkFeatures(features []models.FeatureLimit) error {
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, ok := seen[f.FeatureID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFeature, f.FeatureID)
		}
		seen[f.FeatureID] = struct{}{}
	}
	return nil
}

// Create создает новый план организации, кеширует его и возвращает ID.
func (s *PlanService) Create(ctx context.Context, req models.DummyPlan) (string, error) {
	if err := checkFeatures(req.Features); err != nil {
		return "", err
	}

	plan := models.Plan{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Features:       req.Features,
		IsActive:       true,
	}
	id, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		return "", err
	}
	plan.ID = id

	s.log.Info("created new plan", slog.String("id", id))

	if err := s.cache.Set(cacheKey(id), plan, cacheTTL); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", cacheKey(id)), slog.Any("err", err))
	}
	return id, nil
}

// Resolve возвращает план по ID, используя кеш или репозиторий.
// Отсутствие плана не является ошибкой: возвращается (nil, nil).
func (s *PlanService) Resolve(ctx context.Context, id string) (*models.Plan, error) {
	var result *models.Plan
	key := cacheKey(id)
	found, err := s.cache.Get(key, &result)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return result, nil
	}
	result, err = s.repo.ReadPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := s.cache.Set(key, result, cacheTTL); err != nil {
			s.log.Warn("failed to add plan to cache", slog.String("key", key), slog.Any("err", err))
		}
	}
	return result, nil
}

// List возвращает планы организации.
func (s *PlanService) List(ctx context.Context, organizationID string) ([]*models.Plan, error) {
	return s.repo.ListPlans(ctx, organizationID)
}

// Update обновляет план и кеш, возвращает количество изменённых строк.
func (s *PlanService) Update(ctx context.Context, req models.DummyPlan, id string) (int, error) {
	if err := checkFeatures(req.Features); err != nil {
		return 0, err
	}

	plan := models.Plan{
		ID:             id,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Features:       req.Features,
		IsActive:       true,
	}
	res, err := s.repo.UpdatePlan(ctx, plan, id)
	if err != nil {
		return 0, err
	}
	s.log.Info("updated plan in storage", slog.String("id", id))

	if err := s.cache.Set(cacheKey(id), plan, cacheTTL); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", cacheKey(id)), slog.Any("err", err))
	}
	return res, nil
}

// Remove удаляет план и инвалидирует кеш.
func (s *PlanService) Remove(ctx context.Context, id string) (int, error) {
	if err := s.cache.Invalidate(cacheKey(id)); err != nil {
		s.log.Warn("failed to remove plan from cache", slog.String("key", cacheKey(id)), slog.Any("err", err))
	}
	return s.repo.RemovePlan(ctx, id)
}
