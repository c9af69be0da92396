// Package services содержит логику чтения аналитических агрегатов
// для внешнего компонента отчетности.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// ErrBadDateRange возвращается, когда границы периода не разобрались.
var ErrBadDateRange = errors.New("invalid date range")

// AnalyticsRepository определяет методы чтения агрегатов из хранилища.
type AnalyticsRepository interface {
	ListAnalytics(ctx context.Context, organizationID string, from, to time.Time) ([]*models.AnalyticsBucket, error)
}

// AnalyticsService отдает суточные агрегаты по организации.
type AnalyticsService struct {
	repo AnalyticsRepository
	log  *slog.Logger
}

// NewAnalyticsService создает новый экземпляр AnalyticsService.
func NewAnalyticsService(repo AnalyticsRepository, log *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo: repo,
		log:  log,
	}
}

// List возвращает агрегаты организации за период. Даты приходят строками
// в формате 02-01-2006; пустой период означает последние 30 дней.
func (s *AnalyticsService) List(ctx context.Context, organizationID, from, to string) ([]*models.AnalyticsBucket, error) {
	now := time.Now().UTC()
	fromDate := now.AddDate(0, 0, -30)
	toDate := now

	var err error
	if from != "" {
		fromDate, err = time.Parse("02-01-2006", from)
		if err != nil {
			return nil, fmt.Errorf("%w: from=%s", ErrBadDateRange, from)
		}
	}
	if to != "" {
		toDate, err = time.Parse("02-01-2006", to)
		if err != nil {
			return nil, fmt.Errorf("%w: to=%s", ErrBadDateRange, to)
		}
	}

	return s.repo.ListAnalytics(ctx, organizationID, fromDate, toDate)
}
