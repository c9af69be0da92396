// Package services содержит бизнес-логику жизненного цикла учетных данных:
// выдача, смена плана, деактивация, удаление, продление и история.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// ErrPlanNotFound возвращается, когда целевой план не существует.
var ErrPlanNotFound = errors.New("plan not found")

// ErrBadExpiryDate возвращается, когда дата окончания подписки
// не разобралась из формата 02-01-2006.
var ErrBadExpiryDate = errors.New("invalid expiry date")

// CredentialRepository определяет методы для работы с учетными данными в хранилище.
type CredentialRepository interface {
	// CreateCredential вставляет запись и возвращает её ID.
	CreateCredential(ctx context.Context, c models.Credential) (string, error)
	// ChangeCredentialPlan переводит запись на новый план с новым токеном,
	// (nil, nil) если активной записи с таким ID нет.
	ChangeCredentialPlan(ctx context.Context, id, newPlanID, newToken string, tokenExpiry time.Time) (*models.Credential, error)
	// DeactivateCredential выполняет мягкое удаление.
	DeactivateCredential(ctx context.Context, id string) (int, error)
	// RemoveCredential удаляет запись.
	RemoveCredential(ctx context.Context, id string) (int, error)
	// ExtendCredentialExpiry продлевает срок действия подписки,
	// (nil, nil) если записи с таким ID нет.
	ExtendCredentialExpiry(ctx context.Context, id string, newExpiry time.Time) (*models.Credential, error)
	// ListCredentialHistory возвращает все записи пользователя.
	ListCredentialHistory(ctx context.Context, userID string) ([]*models.Credential, error)
}

// PlanResolver проверяет существование плана перед привязкой.
type PlanResolver interface {
	Resolve(ctx context.Context, planID string) (*models.Plan, error)
}

// TokenSource выдает новые токены доступа.
type TokenSource interface {
	New() (string, error)
}

// CredentialService реализует жизненный цикл учетных данных.
type CredentialService struct {
	repo     CredentialRepository
	plans    PlanResolver
	tokens   TokenSource
	tokenTTL time.Duration
	log      *slog.Logger
}

// NewCredentialService создает новый экземпляр CredentialService.
func NewCredentialService(repo CredentialRepository, plans PlanResolver, tokens TokenSource,
	tokenTTL time.Duration, log *slog.Logger) *CredentialService {
	return &CredentialService{
		repo:     repo,
		plans:    plans,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// Assign выдает пользователю учетные данные по плану: генерирует токен
// доступа со сроком жизни tokenTTL и создает активную запись.
func (s *CredentialService) Assign(ctx context.Context, req models.DummyCredential) (*models.Credential, error) {
	expiryDate, err := time.Parse("02-01-2006", req.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadExpiryDate, req.ExpiryDate)
	}

	plan, err := s.plans.Resolve(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	accessToken, err := s.tokens.New()
	if err != nil {
		return nil, err
	}

	cred := models.Credential{
		UserID:          req.UserID,
		PlanID:          req.PlanID,
		OrganizationID:  req.OrganizationID,
		AccessToken:     accessToken,
		TokenExpiryDate: time.Now().Add(s.tokenTTL),
		ExpiryDate:      expiryDate,
		IsActive:        true,
	}
	id, err := s.repo.CreateCredential(ctx, cred)
	if err != nil {
		return nil, err
	}
	cred.ID = id

	s.log.Info("assigned plan to user",
		slog.String("credential_id", id), slog.String("plan_id", req.PlanID))
	return &cred, nil
}

// ChangePlan переводит запись на другой план (upgrade или downgrade):
// старый токен атомарно заменяется новым, срок действия подписки не меняется.
func (s *CredentialService) ChangePlan(ctx context.Context, id string, req models.DummyChangePlan) (*models.Credential, error) {
	plan, err := s.plans.Resolve(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	accessToken, err := s.tokens.New()
	if err != nil {
		return nil, err
	}

	cred, err := s.repo.ChangeCredentialPlan(ctx, id, req.PlanID, accessToken, time.Now().Add(s.tokenTTL))
	if err != nil {
		return nil, err
	}

	s.log.Info("changed credential plan",
		slog.String("credential_id", id), slog.String("plan_id", req.PlanID))
	return cred, nil
}

// Deactivate выполняет мягкое удаление записи.
func (s *CredentialService) Deactivate(ctx context.Context, id string) (int, error) {
	return s.repo.DeactivateCredential(ctx, id)
}

// Remove удаляет запись насовсем.
func (s *CredentialService) Remove(ctx context.Context, id string) (int, error) {
	return s.repo.RemoveCredential(ctx, id)
}

// ExtendExpiry продлевает срок действия подписки до новой даты.
func (s *CredentialService) ExtendExpiry(ctx context.Context, id, newExpiry string) (*models.Credential, error) {
	expiryDate, err := time.Parse("02-01-2006", newExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadExpiryDate, newExpiry)
	}
	return s.repo.ExtendCredentialExpiry(ctx, id, expiryDate)
}

// History возвращает все записи пользователя, включая деактивированные.
func (s *CredentialService) History(ctx context.Context, userID string) ([]*models.Credential, error) {
	return s.repo.ListCredentialHistory(ctx, userID)
}
