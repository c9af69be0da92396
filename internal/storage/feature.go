package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// CreateFeature вставляет новую функцию и возвращает её ID.
func (s *Storage) CreateFeature(ctx context.Context, feature models.Feature) (string, error) {
	const op = "storage.CreateFeature"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO features (organization_id, name, description, is_active)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		feature.OrganizationID, feature.Name, feature.Description, feature.IsActive).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListFeatures возвращает функции организации.
func (s *Storage) ListFeatures(ctx context.Context, organizationID string) ([]*models.Feature, error) {
	const op = "storage.ListFeatures"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, organization_id, name, description, is_active
			  FROM features
			  WHERE organization_id = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Feature
	for rows.Next() {
		var item models.Feature
		if err := rows.Scan(&item.ID, &item.OrganizationID, &item.Name,
			&item.Description, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
