package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// IncrementUsage атомарно увеличивает счетчик потребления по тройке
// (пользователь, функция, план), создавая запись при первом обращении.
// Инкремент применяется только если лимит не исчерпан: условие проверяется
// в том же SQL-выражении, поэтому параллельные запросы не могут
// переступить лимит или потерять инкремент. Возвращает новое значение
// счетчика и признак допуска. При захлопнувшейся квоте allowed == false,
// а счетчик остается нетронутым.
//
// Свежая вставка всегда записывает счетчик 1, поэтому вызывающая сторона
// обязана отсечь ограниченный лимит < 1 до обращения сюда.
func (s *Storage) IncrementUsage(ctx context.Context, rec models.UsageRecord, unlimited bool, limit int64) (int64, bool, error) {
	const op = "storage.IncrementUsage"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO usage_records (user_id, feature_id, plan_id, organization_id,
			      usage_count, last_used, reset_date)
			  VALUES ($1, $2, $3, $4, 1, now(), now() + interval '1 month')
			  ON CONFLICT (user_id, feature_id, plan_id) DO UPDATE
			  SET usage_count = usage_records.usage_count + 1, last_used = now()
			  WHERE $5 OR usage_records.usage_count < $6
			  RETURNING usage_count`
	var count int64
	err := s.DB.QueryRowContext(ctx, query,
		rec.UserID, rec.FeatureID, rec.PlanID, rec.OrganizationID, unlimited, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return count, true, nil
}

// ReadUsageCount возвращает текущее значение счетчика.
// Отсутствие записи трактуется как нулевое потребление.
func (s *Storage) ReadUsageCount(ctx context.Context, userID, featureID, planID string) (int64, error) {
	const op = "storage.ReadUsageCount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT usage_count FROM usage_records
			  WHERE user_id = $1 AND feature_id = $2 AND plan_id = $3`
	var count int64
	err := s.DB.QueryRowContext(ctx, query, userID, featureID, planID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ResetUsage обнуляет счетчик и сдвигает горизонт сброса на месяц вперед.
// Возвращает количество изменённых строк.
func (s *Storage) ResetUsage(ctx context.Context, userID, featureID, planID string) (int, error) {
	const op = "storage.ResetUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_records
			  SET usage_count = 0, last_used = now(), reset_date = now() + interval '1 month'
			  WHERE user_id = $1 AND feature_id = $2 AND plan_id = $3`
	result, err := s.DB.ExecContext(ctx, query, userID, featureID, planID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ResetDueUsage обнуляет все счетчики с истекшим горизонтом сброса одним
// выражением и возвращает затронутые записи для публикации событий.
func (s *Storage) ResetDueUsage(ctx context.Context) ([]*models.UsageRecord, error) {
	const op = "storage.ResetDueUsage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_records
			  SET usage_count = 0, reset_date = now() + interval '1 month'
			  WHERE reset_date <= now()
			  RETURNING user_id, feature_id, plan_id, organization_id, usage_count, last_used, reset_date`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UsageRecord
	for rows.Next() {
		var item models.UsageRecord
		if err := rows.Scan(&item.UserID, &item.FeatureID, &item.PlanID, &item.OrganizationID,
			&item.UsageCount, &item.LastUsed, &item.ResetDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListUsageByOrganization возвращает все счетчики организации.
func (s *Storage) ListUsageByOrganization(ctx context.Context, organizationID string) ([]*models.UsageRecord, error) {
	const op = "storage.ListUsageByOrganization"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, feature_id, plan_id, organization_id, usage_count, last_used, reset_date
			  FROM usage_records
			  WHERE organization_id = $1
			  ORDER BY last_used DESC`
	rows, err := s.DB.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UsageRecord
	for rows.Next() {
		var item models.UsageRecord
		if err := rows.Scan(&item.UserID, &item.FeatureID, &item.PlanID, &item.OrganizationID,
			&item.UsageCount, &item.LastUsed, &item.ResetDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
