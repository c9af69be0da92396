// Package usage реализует проверку и учет потребления функций: разрешение
// токена, прозрачное обновление токена, проверку срока подписки, поиск
// лимита в плане, ограничение частоты и атомарное списание квоты.
// Аналитика и события публикуются по принципу best-effort и никогда не
// влияют на решение о допуске.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/metrics"
	"github.com/magabrotheeeer/usage-gate/internal/models"
	"github.com/magabrotheeeer/usage-gate/internal/rabbitmq"
)

// Ошибки проверки квоты. Каждая локальна для одного запроса:
// никакая не запускает межзапросную компенсацию.
var (
	// ErrInvalidToken — токен неизвестен, отозван или деактивирован.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrPlanExpired — срок действия подписки истек; обновление токена
	// подписку не продлевает.
	ErrPlanExpired = errors.New("plan expired")
	// ErrPlanNotFound — запись ссылается на несуществующий план;
	// нарушение целостности данных, серверная ошибка.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrFeatureNotEntitled — план вообще не включает функцию.
	ErrFeatureNotEntitled = errors.New("feature not included in plan")
	// ErrRateLimited — исчерпан потолок окна частоты.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrQuotaExceeded — исчерпан лимит потребления.
	ErrQuotaExceeded = errors.New("usage limit exceeded")
	// ErrTokenRefresh — не удалось заменить устаревший токен.
	ErrTokenRefresh = errors.New("failed to refresh token")
)

// QuotaExceededError несет текущее потребление и лимит для тела ответа.
type QuotaExceededError struct {
	CurrentUsage int64
	Limit        int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded: %d of %d", e.CurrentUsage, e.Limit)
}

// Is сопоставляет ошибку с ErrQuotaExceeded для errors.Is.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// CredentialRepository определяет операции с учетными данными,
// нужные проверке квоты.
type CredentialRepository interface {
	// FindCredentialByToken возвращает активную запись по токену, (nil, nil) если её нет.
	FindCredentialByToken(ctx context.Context, accessToken string) (*models.Credential, error)
	// RefreshCredentialToken заменяет токен и срок его жизни на той же записи.
	RefreshCredentialToken(ctx context.Context, id, newToken string, tokenExpiry time.Time) (*models.Credential, error)
}

// PlanResolver возвращает план по ID, (nil, nil) если план не существует.
type PlanResolver interface {
	Resolve(ctx context.Context, planID string) (*models.Plan, error)
}

// UsageRepository определяет операции со счетчиками потребления.
type UsageRepository interface {
	// IncrementUsage атомарно списывает единицу квоты; allowed == false — лимит исчерпан.
	IncrementUsage(ctx context.Context, rec models.UsageRecord, unlimited bool, limit int64) (int64, bool, error)
	// ReadUsageCount возвращает текущее значение счетчика, 0 если записи нет.
	ReadUsageCount(ctx context.Context, userID, featureID, planID string) (int64, error)
	// ResetUsage обнуляет счетчик и сдвигает горизонт сброса.
	ResetUsage(ctx context.Context, userID, featureID, planID string) (int, error)
	// ListUsageByOrganization возвращает счетчики организации.
	ListUsageByOrganization(ctx context.Context, organizationID string) ([]*models.UsageRecord, error)
}

// AnalyticsRecorder пишет суточные агрегаты.
type AnalyticsRecorder interface {
	RecordAnalytics(ctx context.Context, sample models.AnalyticsSample) error
}

// RateLimiter регистрирует попытку допуска в фиксированном окне.
type RateLimiter interface {
	Allow(ctx context.Context, userID, featureID string) (bool, int64, error)
}

// TokenSource выдает новые токены доступа.
type TokenSource interface {
	New() (string, error)
}

// EventPublisher публикует события учета во внешнюю шину.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// UsageService оркестрирует проверку квоты.
type UsageService struct {
	credentials CredentialRepository
	plans       PlanResolver
	usage       UsageRepository
	analytics   AnalyticsRecorder
	limiter     RateLimiter
	tokens      TokenSource
	events      EventPublisher
	tokenTTL    time.Duration
	log         *slog.Logger
}

// NewUsageService создает новый экземпляр UsageService.
// events может быть nil — тогда события не публикуются.
func NewUsageService(credentials CredentialRepository, plans PlanResolver, usage UsageRepository,
	analytics AnalyticsRecorder, limiter RateLimiter, tokens TokenSource,
	events EventPublisher, tokenTTL time.Duration, log *slog.Logger) *UsageService {
	return &UsageService{
		credentials: credentials,
		plans:       plans,
		usage:       usage,
		analytics:   analytics,
		limiter:     limiter,
		tokens:      tokens,
		events:      events,
		tokenTTL:    tokenTTL,
		log:         log,
	}
}

// TrackUsage проверяет допуск одного вызова функции по токену доступа
// и при успехе списывает единицу квоты. Любой исход до успешного списания
// также фиксируется в аналитике, кроме случая неизвестного токена:
// организация не определена, агрегат без владельца не пишется.
func (s *UsageService) TrackUsage(ctx context.Context, accessToken, featureID string) (*models.UsageDecision, error) {
	start := time.Now()

	cred, err := s.credentials.FindCredentialByToken(ctx, accessToken)
	if err != nil {
		metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
		return nil, err
	}
	if cred == nil {
		metrics.TrackRequests.WithLabelValues(metrics.DecisionInvalidToken).Inc()
		return nil, ErrInvalidToken
	}

	// Устаревший токен заменяется прозрачно, запрос не прерывается.
	// Гонка двух одновременных обновлений допустима: побеждает последняя
	// запись, проигравший клиент повторит запрос с токеном из заголовка.
	var newAccessToken string
	now := time.Now()
	if now.After(cred.TokenExpiryDate) {
		minted, err := s.tokens.New()
		if err != nil {
			s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
			metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
			return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
		}
		refreshed, err := s.credentials.RefreshCredentialToken(ctx, cred.ID, minted, now.Add(s.tokenTTL))
		if err != nil {
			s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
			metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
			return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
		}
		cred = refreshed
		newAccessToken = refreshed.AccessToken
		s.log.Info("access token refreshed", slog.String("credential_id", cred.ID))
	}

	// Истекшая подписка терминальна независимо от свежести токена.
	if now.After(cred.ExpiryDate) {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionPlanExpired).Inc()
		return nil, ErrPlanExpired
	}

	plan, err := s.plans.Resolve(ctx, cred.PlanID)
	if err != nil {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
		return nil, err
	}
	if plan == nil {
		s.log.Error("credential references missing plan",
			slog.String("credential_id", cred.ID), slog.String("plan_id", cred.PlanID))
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionPlanNotFound).Inc()
		return nil, ErrPlanNotFound
	}

	featureLimit := findFeatureLimit(plan, featureID)
	if featureLimit == nil {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionFeatureNotEntitled).Inc()
		return nil, ErrFeatureNotEntitled
	}

	allowed, _, err := s.limiter.Allow(ctx, cred.UserID, featureID)
	if err != nil {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
		return nil, err
	}
	if !allowed {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionRateLimited).Inc()
		return nil, ErrRateLimited
	}

	rec := models.UsageRecord{
		UserID:         cred.UserID,
		FeatureID:      featureID,
		PlanID:         cred.PlanID,
		OrganizationID: cred.OrganizationID,
	}

	// Свежая вставка пишет счетчик 1, поэтому ограниченный лимит меньше 1
	// закрыт еще до обращения к хранилищу.
	if !featureLimit.IsUnlimited && featureLimit.Limit < 1 {
		return nil, s.quotaExceeded(ctx, rec, featureLimit.Limit, featureID, start)
	}

	count, ok, err := s.usage.IncrementUsage(ctx, rec, featureLimit.IsUnlimited, featureLimit.Limit)
	if err != nil {
		s.recordAnalytics(ctx, cred.OrganizationID, featureID, false, start, false)
		metrics.TrackRequests.WithLabelValues(metrics.DecisionError).Inc()
		return nil, err
	}
	if !ok {
		return nil, s.quotaExceeded(ctx, rec, featureLimit.Limit, featureID, start)
	}

	s.recordAnalytics(ctx, cred.OrganizationID, featureID, true, start, false)
	metrics.TrackRequests.WithLabelValues(metrics.DecisionAllowed).Inc()
	s.publishEvent(rabbitmq.RoutingKeyTracked, models.UsageEvent{
		UserID:         cred.UserID,
		FeatureID:      featureID,
		PlanID:         cred.PlanID,
		OrganizationID: cred.OrganizationID,
		UsageCount:     count,
		OccurredAt:     now,
	})

	decision := &models.UsageDecision{
		CurrentUsage:   count,
		NewAccessToken: newAccessToken,
	}
	if featureLimit.IsUnlimited {
		decision.Limit = models.UnlimitedLimit()
		decision.Remaining = models.UnlimitedLimit()
	} else {
		decision.Limit = models.Bounded(featureLimit.Limit)
		decision.Remaining = models.Bounded(featureLimit.Limit - count)
	}
	return decision, nil
}

// GetUsageStats возвращает счетчики потребления организации.
func (s *UsageService) GetUsageStats(ctx context.Context, organizationID string) ([]*models.UsageRecord, error) {
	return s.usage.ListUsageByOrganization(ctx, organizationID)
}

// ResetUsage явно обнуляет счетчик по тройке ключей и публикует событие.
func (s *UsageService) ResetUsage(ctx context.Context, req models.DummyResetUsage) (int, error) {
	count, err := s.usage.ResetUsage(ctx, req.UserID, req.FeatureID, req.PlanID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publishEvent(rabbitmq.RoutingKeyReset, models.UsageEvent{
			UserID:     req.UserID,
			FeatureID:  req.FeatureID,
			PlanID:     req.PlanID,
			OccurredAt: time.Now(),
		})
	}
	return count, nil
}

func (s *UsageService) quotaExceeded(ctx context.Context, rec models.UsageRecord, limit int64, featureID string, start time.Time) error {
	current, err := s.usage.ReadUsageCount(ctx, rec.UserID, rec.FeatureID, rec.PlanID)
	if err != nil {
		s.log.Warn("failed to read usage count for rejection", sl.Err(err))
	}
	s.recordAnalytics(ctx, rec.OrganizationID, featureID, false, start, true)
	metrics.TrackRequests.WithLabelValues(metrics.DecisionQuotaExceeded).Inc()
	return &QuotaExceededError{CurrentUsage: current, Limit: limit}
}

// findFeatureLimit возвращает первую запись функции в плане.
func findFeatureLimit(plan *models.Plan, featureID string) *models.FeatureLimit {
	for i := range plan.Features {
		if plan.Features[i].FeatureID == featureID {
			return &plan.Features[i]
		}
	}
	return nil
}

// recordAnalytics пишет агрегат по принципу best-effort: ошибка записи
// логируется и не меняет решение о допуске.
func (s *UsageService) recordAnalytics(ctx context.Context, organizationID, featureID string, success bool, start time.Time, limitExceeded bool) {
	if organizationID == "" {
		return
	}
	sample := models.AnalyticsSample{
		OrganizationID: organizationID,
		FeatureID:      featureID,
		Success:        success,
		LimitExceeded:  limitExceeded,
		ResponseTime:   time.Since(start),
	}
	if err := s.analytics.RecordAnalytics(ctx, sample); err != nil {
		s.log.Warn("failed to record analytics", sl.Err(err))
	}
}

// publishEvent — best-effort публикация события учета.
func (s *UsageService) publishEvent(routingKey string, event models.UsageEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish usage event", sl.Err(err))
	}
}
