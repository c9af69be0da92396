package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

type CredentialRepoMock struct{ mock.Mock }

func (m *CredentialRepoMock) FindCredentialByToken(ctx context.Context, accessToken string) (*models.Credential, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

func (m *CredentialRepoMock) RefreshCredentialToken(ctx context.Context, id, newToken string, tokenExpiry time.Time) (*models.Credential, error) {
	args := m.Called(ctx, id, newToken, tokenExpiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

type PlanResolverMock struct{ mock.Mock }

func (m *PlanResolverMock) Resolve(ctx context.Context, planID string) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

type UsageRepoMock struct{ mock.Mock }

func (m *UsageRepoMock) IncrementUsage(ctx context.Context, rec models.UsageRecord, unlimited bool, limit int64) (int64, bool, error) {
	args := m.Called(ctx, rec, unlimited, limit)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *UsageRepoMock) ReadUsageCount(ctx context.Context, userID, featureID, planID string) (int64, error) {
	args := m.Called(ctx, userID, featureID, planID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UsageRepoMock) ResetUsage(ctx context.Context, userID, featureID, planID string) (int, error) {
	args := m.Called(ctx, userID, featureID, planID)
	return args.Int(0), args.Error(1)
}

func (m *UsageRepoMock) ListUsageByOrganization(ctx context.Context, organizationID string) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

type AnalyticsMock struct{ mock.Mock }

func (m *AnalyticsMock) RecordAnalytics(ctx context.Context, sample models.AnalyticsSample) error {
	return m.Called(ctx, sample).Error(0)
}

type LimiterMock struct{ mock.Mock }

func (m *LimiterMock) Allow(ctx context.Context, userID, featureID string) (bool, int64, error) {
	args := m.Called(ctx, userID, featureID)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

type TokenMock struct{ mock.Mock }

func (m *TokenMock) New() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type EventsMock struct{ mock.Mock }

func (m *EventsMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

type fixture struct {
	credentials *CredentialRepoMock
	plans       *PlanResolverMock
	usage       *UsageRepoMock
	analytics   *AnalyticsMock
	limiter     *LimiterMock
	tokens      *TokenMock
	events      *EventsMock
	service     *UsageService
}

func newFixture() *fixture {
	f := &fixture{
		credentials: new(CredentialRepoMock),
		plans:       new(PlanResolverMock),
		usage:       new(UsageRepoMock),
		analytics:   new(AnalyticsMock),
		limiter:     new(LimiterMock),
		tokens:      new(TokenMock),
		events:      new(EventsMock),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	f.service = NewUsageService(f.credentials, f.plans, f.usage, f.analytics,
		f.limiter, f.tokens, f.events, 24*time.Hour, log)
	return f
}

const (
	testToken     = "a1b2c3"
	testUserID    = "6f1e0b52-0000-0000-0000-000000000001"
	testPlanID    = "6f1e0b52-0000-0000-0000-000000000002"
	testOrgID     = "6f1e0b52-0000-0000-0000-000000000003"
	testFeatureID = "6f1e0b52-0000-0000-0000-000000000004"
	testCredID    = "6f1e0b52-0000-0000-0000-000000000005"
)

func freshCredential() *models.Credential {
	return &models.Credential{
		ID:              testCredID,
		UserID:          testUserID,
		PlanID:          testPlanID,
		OrganizationID:  testOrgID,
		AccessToken:     testToken,
		TokenExpiryDate: time.Now().Add(time.Hour),
		ExpiryDate:      time.Now().Add(30 * 24 * time.Hour),
		IsActive:        true,
	}
}

func boundedPlan(limit int64) *models.Plan {
	return &models.Plan{
		ID:             testPlanID,
		OrganizationID: testOrgID,
		Features: []models.FeatureLimit{
			{FeatureID: testFeatureID, Limit: limit},
		},
	}
}

func unlimitedPlan() *models.Plan {
	return &models.Plan{
		ID:             testPlanID,
		OrganizationID: testOrgID,
		Features: []models.FeatureLimit{
			{FeatureID: testFeatureID, IsUnlimited: true},
		},
	}
}

func TestTrackUsage_BoundedSequence(t *testing.T) {
	// План с лимитом 3: вызовы 1-3 возвращают счетчик 1,2,3 и остаток 2,1,0,
	// четвертый закрывается квотой со счетчиком 3.
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(3), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	for i := int64(1); i <= 3; i++ {
		f.usage.ExpectedCalls = nil
		f.usage.On("IncrementUsage", mock.Anything, mock.Anything, false, int64(3)).Return(i, true, nil)

		decision, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
		require.NoError(t, err)
		assert.Equal(t, i, decision.CurrentUsage)
		assert.Equal(t, models.Bounded(3), decision.Limit)
		assert.Equal(t, models.Bounded(3-i), decision.Remaining)
		assert.Empty(t, decision.NewAccessToken)
	}

	f.usage.ExpectedCalls = nil
	f.usage.On("IncrementUsage", mock.Anything, mock.Anything, false, int64(3)).Return(int64(0), false, nil)
	f.usage.On("ReadUsageCount", mock.Anything, testUserID, testFeatureID, testPlanID).Return(int64(3), nil)

	decision, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.Nil(t, decision)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, int64(3), qe.CurrentUsage)
	assert.Equal(t, int64(3), qe.Limit)
}

func TestTrackUsage_Unlimited(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(unlimitedPlan(), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.usage.On("IncrementUsage", mock.Anything, mock.Anything, true, int64(0)).Return(int64(42), true, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	decision, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decision.CurrentUsage)
	assert.Equal(t, models.UnlimitedLimit(), decision.Limit)
	assert.Equal(t, models.UnlimitedLimit(), decision.Remaining)
}

func TestTrackUsage_InvalidToken(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, "unknown").Return(nil, nil)

	decision, err := f.service.TrackUsage(context.Background(), "unknown", testFeatureID)
	assert.Nil(t, decision)
	assert.ErrorIs(t, err, ErrInvalidToken)
	// Организация неизвестна: аналитика не пишется.
	f.analytics.AssertNotCalled(t, "RecordAnalytics", mock.Anything, mock.Anything)
}

func TestTrackUsage_TokenRefresh(t *testing.T) {
	// Устаревший токен заменяется прозрачно, новый токен отдается клиенту.
	f := newFixture()
	stale := freshCredential()
	stale.TokenExpiryDate = time.Now().Add(-time.Hour)

	refreshed := freshCredential()
	refreshed.AccessToken = "minted-token"

	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(stale, nil)
	f.tokens.On("New").Return("minted-token", nil)
	f.credentials.On("RefreshCredentialToken", mock.Anything, testCredID, "minted-token", mock.Anything).
		Return(refreshed, nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(10), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.usage.On("IncrementUsage", mock.Anything, mock.Anything, false, int64(10)).Return(int64(1), true, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	decision, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	require.NoError(t, err)
	assert.Equal(t, "minted-token", decision.NewAccessToken)
	f.credentials.AssertNumberOfCalls(t, "RefreshCredentialToken", 1)
}

func TestTrackUsage_RefreshFailure(t *testing.T) {
	f := newFixture()
	stale := freshCredential()
	stale.TokenExpiryDate = time.Now().Add(-time.Hour)

	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(stale, nil)
	f.tokens.On("New").Return("minted-token", nil)
	f.credentials.On("RefreshCredentialToken", mock.Anything, testCredID, "minted-token", mock.Anything).
		Return(nil, errors.New("db error"))
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrTokenRefresh)
}

func TestTrackUsage_PlanExpired(t *testing.T) {
	// Истекшая подписка терминальна даже при только что обновлённом токене.
	f := newFixture()
	cred := freshCredential()
	cred.TokenExpiryDate = time.Now().Add(-time.Hour)
	cred.ExpiryDate = time.Now().Add(-time.Minute)

	refreshed := freshCredential()
	refreshed.AccessToken = "minted-token"
	refreshed.ExpiryDate = cred.ExpiryDate

	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(cred, nil)
	f.tokens.On("New").Return("minted-token", nil)
	f.credentials.On("RefreshCredentialToken", mock.Anything, testCredID, "minted-token", mock.Anything).
		Return(refreshed, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrPlanExpired)
	f.usage.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackUsage_PlanNotFound(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(nil, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestTrackUsage_FeatureNotEntitled(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	plan := &models.Plan{ID: testPlanID, OrganizationID: testOrgID,
		Features: []models.FeatureLimit{{FeatureID: "6f1e0b52-0000-0000-0000-00000000ffff", Limit: 5}}}
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(plan, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrFeatureNotEntitled)
}

func TestTrackUsage_RateLimited(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(10), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(false, int64(101), nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrRateLimited)
	// Отказ ограничителя не списывает квоту.
	f.usage.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackUsage_ZeroLimit(t *testing.T) {
	// Ограниченный лимит 0 закрывается без обращения к инкременту:
	// свежая вставка записала бы счетчик 1.
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(0), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.usage.On("ReadUsageCount", mock.Anything, testUserID, testFeatureID, testPlanID).Return(int64(0), nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	f.usage.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackUsage_AnalyticsFailureDoesNotChangeDecision(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(10), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.usage.On("IncrementUsage", mock.Anything, mock.Anything, false, int64(10)).Return(int64(1), true, nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.Anything).Return(errors.New("analytics store down"))
	f.events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	decision, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), decision.CurrentUsage)
}

func TestTrackUsage_QuotaExceededRecordsLimitExceeded(t *testing.T) {
	f := newFixture()
	f.credentials.On("FindCredentialByToken", mock.Anything, testToken).Return(freshCredential(), nil)
	f.plans.On("Resolve", mock.Anything, testPlanID).Return(boundedPlan(1), nil)
	f.limiter.On("Allow", mock.Anything, testUserID, testFeatureID).Return(true, int64(1), nil)
	f.usage.On("IncrementUsage", mock.Anything, mock.Anything, false, int64(1)).Return(int64(0), false, nil)
	f.usage.On("ReadUsageCount", mock.Anything, testUserID, testFeatureID, testPlanID).Return(int64(1), nil)
	f.analytics.On("RecordAnalytics", mock.Anything, mock.MatchedBy(func(s models.AnalyticsSample) bool {
		return s.LimitExceeded && !s.Success
	})).Return(nil)

	_, err := f.service.TrackUsage(context.Background(), testToken, testFeatureID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	f.analytics.AssertExpectations(t)
}

func TestResetUsage(t *testing.T) {
	f := newFixture()
	req := models.DummyResetUsage{UserID: testUserID, FeatureID: testFeatureID, PlanID: testPlanID}
	f.usage.On("ResetUsage", mock.Anything, testUserID, testFeatureID, testPlanID).Return(1, nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	count, err := f.service.ResetUsage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	f.events.AssertNumberOfCalls(t, "Publish", 1)
}
