// Package services содержит периодическую задачу сброса счетчиков
// потребления с истекшим горизонтом.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/models"
	"github.com/magabrotheeeer/usage-gate/internal/rabbitmq"
)

// UsageRepository определяет операцию пакетного сброса счетчиков.
type UsageRepository interface {
	ResetDueUsage(ctx context.Context) ([]*models.UsageRecord, error)
}

// SchedulerService периодически обнуляет счетчики, у которых прошла
// дата сброса, и публикует события для внешних потребителей.
type SchedulerService struct {
	repo UsageRepository
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo UsageRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		log:  log,
	}
}

// Run запускает цикл сброса с заданным интервалом до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context, channel *amqp.Channel, interval time.Duration) {
	s.resetDueUsage(ctx, channel)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resetDueUsage(ctx, channel)
		}
	}
}

func (s *SchedulerService) resetDueUsage(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting usage reset pass")
	records, err := s.repo.ResetDueUsage(ctx)
	if err != nil {
		s.log.Error("failed to reset due usage", sl.Err(err))
		return
	}
	if len(records) == 0 {
		s.log.Info("no usage records due for reset")
		return
	}
	s.log.Info("reset usage records", "count", len(records))
	if channel == nil {
		s.log.Warn("no rabbitmq channel, reset events not published")
		return
	}
	for _, rec := range records {
		event := models.UsageEvent{
			UserID:         rec.UserID,
			FeatureID:      rec.FeatureID,
			PlanID:         rec.PlanID,
			OrganizationID: rec.OrganizationID,
			OccurredAt:     time.Now(),
		}
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, rabbitmq.RoutingKeyReset, event); err != nil {
			s.log.Error("failed to publish reset event", sl.Err(err))
		}
	}
}
