package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// RecordAnalytics обновляет суточный агрегат (организация, функция, день)
// одним upsert-выражением: создает строку при первой записи за день,
// дальше увеличивает счетчики. average_response_time_ms перезаписывается
// последним замером — источник хранит именно последнее значение.
func (s *Storage) RecordAnalytics(ctx context.Context, sample models.AnalyticsSample) error {
	const op = "storage.RecordAnalytics"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var success, failure, exceeded int64
	if sample.Success {
		success = 1
	} else {
		failure = 1
	}
	if sample.LimitExceeded {
		exceeded = 1
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	responseMs := float64(sample.ResponseTime) / float64(time.Millisecond)

	query := `INSERT INTO analytics (organization_id, feature_id, date, total_requests,
			      successful_requests, failed_requests, limit_exceeded_count, average_response_time_ms)
			  VALUES ($1, $2, $3, 1, $4, $5, $6, $7)
			  ON CONFLICT (organization_id, feature_id, date) DO UPDATE
			  SET total_requests = analytics.total_requests + 1,
			      successful_requests = analytics.successful_requests + EXCLUDED.successful_requests,
			      failed_requests = analytics.failed_requests + EXCLUDED.failed_requests,
			      limit_exceeded_count = analytics.limit_exceeded_count + EXCLUDED.limit_exceeded_count,
			      average_response_time_ms = EXCLUDED.average_response_time_ms`
	_, err := s.DB.ExecContext(ctx, query,
		sample.OrganizationID, sample.FeatureID, day, success, failure, exceeded, responseMs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAnalytics возвращает суточные агрегаты организации за период [from, to].
func (s *Storage) ListAnalytics(ctx context.Context, organizationID string, from, to time.Time) ([]*models.AnalyticsBucket, error) {
	const op = "storage.ListAnalytics"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT organization_id, feature_id, date, total_requests, successful_requests,
			      failed_requests, limit_exceeded_count, average_response_time_ms
			  FROM analytics
			  WHERE organization_id = $1 AND date BETWEEN $2 AND $3
			  ORDER BY date, feature_id`
	rows, err := s.DB.QueryContext(ctx, query, organizationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AnalyticsBucket
	for rows.Next() {
		var item models.AnalyticsBucket
		if err := rows.Scan(&item.OrganizationID, &item.FeatureID, &item.Date,
			&item.TotalRequests, &item.SuccessfulRequests, &item.FailedRequests,
			&item.LimitExceededCount, &item.AverageResponseTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
