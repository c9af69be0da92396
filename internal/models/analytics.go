package models

import "time"

// AnalyticsBucket — суточный агрегат по паре (организация, функция).
// Создается при первой записи за день. AverageResponseTime хранит
// длительность последнего запроса в миллисекундах: источник перезаписывает
// последнее значение вместо настоящего скользящего среднего.
type AnalyticsBucket struct {
	OrganizationID      string    `json:"organization_id"`
	FeatureID           string    `json:"feature_id"`
	Date                time.Time `json:"date"`
	TotalRequests       int64     `json:"total_requests"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	LimitExceededCount  int64     `json:"limit_exceeded_count"`
	AverageResponseTime float64   `json:"average_response_time_ms"`
}

// AnalyticsSample — одна запись в аналитику от проверки квоты.
type AnalyticsSample struct {
	OrganizationID string
	FeatureID      string
	Success        bool
	LimitExceeded  bool
	ResponseTime   time.Duration
}

// UsageEvent — событие учета, публикуемое во внешнюю шину.
type UsageEvent struct {
	UserID         string    `json:"user_id"`
	FeatureID      string    `json:"feature_id"`
	PlanID         string    `json:"plan_id"`
	OrganizationID string    `json:"organization_id"`
	UsageCount     int64     `json:"usage_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}
