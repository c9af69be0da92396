package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// CreatePlan вставляет план вместе с лимитами функций и возвращает его ID.
// Уникальность функции внутри плана обеспечивает ограничение
// UNIQUE (plan_id, feature_id).
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (string, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO plans (organization_id, name, description, price, is_active)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID string
	err = tx.QueryRowContext(ctx, query,
		plan.OrganizationID, plan.Name, plan.Description, plan.Price, plan.IsActive).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	featureQuery := `INSERT INTO plan_features (plan_id, feature_id, feature_limit, is_unlimited)
			  VALUES ($1, $2, $3, $4)`
	for _, f := range plan.Features {
		if _, err = tx.ExecContext(ctx, featureQuery, newID, f.FeatureID, f.Limit, f.IsUnlimited); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadPlan возвращает план с лимитами функций по ID.
// Отсутствие плана не является ошибкой: возвращается (nil, nil).
func (s *Storage) ReadPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.ReadPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, organization_id, name, description, price, is_active
			  FROM plans WHERE id = $1`
	var result models.Plan
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&result.ID, &result.OrganizationID,
		&result.Name, &result.Description, &result.Price, &result.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	featureQuery := `SELECT feature_id, feature_limit, is_unlimited
			  FROM plan_features
			  WHERE plan_id = $1`
	rows, err := s.DB.QueryContext(ctx, featureQuery, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var f models.FeatureLimit
		if err := rows.Scan(&f.FeatureID, &f.Limit, &f.IsUnlimited); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.Features = append(result.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListPlans возвращает планы организации без лимитов функций.
func (s *Storage) ListPlans(ctx context.Context, organizationID string) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, organization_id, name, description, price, is_active
			  FROM plans
			  WHERE organization_id = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		var item models.Plan
		if err := rows.Scan(&item.ID, &item.OrganizationID, &item.Name,
			&item.Description, &item.Price, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdatePlan обновляет план и полностью заменяет список лимитов функций,
// возвращает количество изменённых строк плана.
func (s *Storage) UpdatePlan(ctx context.Context, plan models.Plan, id string) (int, error) {
	const op = "storage.UpdatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE plans
			  SET name = $1, description = $2, price = $3
			  WHERE id = $4`
	result, err := tx.ExecContext(ctx, query, plan.Name, plan.Description, plan.Price, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM plan_features WHERE plan_id = $1`, id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	featureQuery := `INSERT INTO plan_features (plan_id, feature_id, feature_limit, is_unlimited)
			  VALUES ($1, $2, $3, $4)`
	for _, f := range plan.Features {
		if _, err = tx.ExecContext(ctx, featureQuery, id, f.FeatureID, f.Limit, f.IsUnlimited); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemovePlan удаляет план по ID и возвращает количество удалённых строк.
func (s *Storage) RemovePlan(ctx context.Context, id string) (int, error) {
	const op = "storage.RemovePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM plans WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
