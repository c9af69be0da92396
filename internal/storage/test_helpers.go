package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateFeature создает тестовую функцию и возвращает её ID
func (f *TestDataFactory) CreateFeature(t *testing.T, organizationID, name string) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO features (organization_id, name, description)
		VALUES ($1, $2, $3) RETURNING id`,
		organizationID, name, "").Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePlan создает тестовый план с одним лимитом функции и возвращает ID плана
func (f *TestDataFactory) CreatePlan(t *testing.T, organizationID, featureID string,
	limit int64, unlimited bool) string {
	var planID string
	err := f.storage.DB.QueryRow(`INSERT INTO plans (organization_id, name, description, price)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		organizationID, "basic", "", 1000).Scan(&planID)
	require.NoError(t, err)

	_, err = f.storage.DB.Exec(`INSERT INTO plan_features (plan_id, feature_id, feature_limit, is_unlimited)
		VALUES ($1, $2, $3, $4)`,
		planID, featureID, limit, unlimited)
	require.NoError(t, err)
	return planID
}

// CreateCredential создает тестовую запись учетных данных и возвращает её ID
func (f *TestDataFactory) CreateCredential(t *testing.T, userID, planID, organizationID,
	accessToken string, tokenExpiry, expiry time.Time) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO user_plans
		(user_id, plan_id, organization_id, access_token, token_expiry_date, expiry_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true) RETURNING id`,
		userID, planID, organizationID, accessToken, tokenExpiry, expiry).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateUsageRecord создает тестовую запись потребления
func (f *TestDataFactory) CreateUsageRecord(t *testing.T, userID, featureID, planID,
	organizationID string, count int64, resetDate time.Time) {
	_, err := f.storage.DB.Exec(`INSERT INTO usage_records
		(user_id, feature_id, plan_id, organization_id, usage_count, reset_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, featureID, planID, organizationID, count, resetDate)
	require.NoError(t, err)
}

// TestMeteringData содержит стандартный набор идентификаторов для тестов учета
type TestMeteringData struct {
	OrganizationID string
	UserID         string
	FeatureID      string
	PlanID         string
	AccessToken    string
}

// GetTestMeteringData создает в БД функцию, план и учетные данные
// и возвращает их идентификаторы
func GetTestMeteringData(t *testing.T, factory *TestDataFactory, limit int64, unlimited bool) TestMeteringData {
	organizationID := uuid.New().String()
	userID := uuid.New().String()
	accessToken := uuid.New().String()

	featureID := factory.CreateFeature(t, organizationID, "api_call")
	planID := factory.CreatePlan(t, organizationID, featureID, limit, unlimited)
	factory.CreateCredential(t, userID, planID, organizationID, accessToken,
		time.Now().Add(24*time.Hour), time.Now().AddDate(0, 1, 0))

	return TestMeteringData{
		OrganizationID: organizationID,
		UserID:         userID,
		FeatureID:      featureID,
		PlanID:         planID,
		AccessToken:    accessToken,
	}
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyUsageCount проверяет значение счетчика потребления в БД
func (v *TestVerification) VerifyUsageCount(t *testing.T, userID, featureID, planID string, expected int64) {
	var count int64
	err := v.storage.DB.QueryRow(`SELECT usage_count FROM usage_records
		WHERE user_id = $1 AND feature_id = $2 AND plan_id = $3`,
		userID, featureID, planID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// VerifyCredentialActive проверяет флаг активности записи
func (v *TestVerification) VerifyCredentialActive(t *testing.T, id string, expected bool) {
	var isActive bool
	err := v.storage.DB.QueryRow("SELECT is_active FROM user_plans WHERE id = $1", id).Scan(&isActive)
	require.NoError(t, err)
	require.Equal(t, expected, isActive)
}

// VerifyCredentialDeleted проверяет удаление записи из БД
func (v *TestVerification) VerifyCredentialDeleted(t *testing.T, id string) {
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM user_plans WHERE id = $1", id).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

// VerifyPlanDeleted проверяет удаление плана из БД
func (v *TestVerification) VerifyPlanDeleted(t *testing.T, planID string) {
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM plans WHERE id = $1", planID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
