package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/usage-gate/internal/models"
)

const credentialColumns = `id, user_id, plan_id, organization_id, access_token,
			      token_expiry_date, expiry_date, purchase_date, is_active`

func scanCredential(row *sql.Row) (*models.Credential, error) {
	var c models.Credential
	if err := row.Scan(&c.ID, &c.UserID, &c.PlanID, &c.OrganizationID, &c.AccessToken,
		&c.TokenExpiryDate, &c.ExpiryDate, &c.PurchaseDate, &c.IsActive); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCredential вставляет новую запись учетных данных и возвращает её ID.
func (s *Storage) CreateCredential(ctx context.Context, c models.Credential) (string, error) {
	const op = "storage.CreateCredential"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_plans (user_id, plan_id, organization_id, access_token,
			      token_expiry_date, expiry_date, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		c.UserID, c.PlanID, c.OrganizationID, c.AccessToken,
		c.TokenExpiryDate, c.ExpiryDate, c.IsActive).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindCredentialByToken возвращает активную запись по токену доступа.
// Отсутствие записи не является ошибкой: возвращается (nil, nil).
func (s *Storage) FindCredentialByToken(ctx context.Context, accessToken string) (*models.Credential, error) {
	const op = "storage.FindCredentialByToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + credentialColumns + `
			  FROM user_plans
			  WHERE access_token = $1 AND is_active = true`
	result, err := scanCredential(s.DB.QueryRowContext(ctx, query, accessToken))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RefreshCredentialToken заменяет токен и срок его жизни на той же записи.
// Старый токен перестает разрешаться сразу: замена, а не добавление.
func (s *Storage) RefreshCredentialToken(ctx context.Context, id, newToken string, tokenExpiry time.Time) (*models.Credential, error) {
	const op = "storage.RefreshCredentialToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_plans
			  SET access_token = $2, token_expiry_date = $3
			  WHERE id = $1 AND is_active = true
			  RETURNING ` + credentialColumns
	result, err := scanCredential(s.DB.QueryRowContext(ctx, query, id, newToken, tokenExpiry))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ChangeCredentialPlan переводит запись на новый план с новым токеном,
// не трогая срок действия подписки. Неизвестная или деактивированная
// запись не является ошибкой: возвращается (nil, nil).
func (s *Storage) ChangeCredentialPlan(ctx context.Context, id, newPlanID, newToken string, tokenExpiry time.Time) (*models.Credential, error) {
	const op = "storage.ChangeCredentialPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_plans
			  SET plan_id = $2, access_token = $3, token_expiry_date = $4
			  WHERE id = $1 AND is_active = true
			  RETURNING ` + credentialColumns
	result, err := scanCredential(s.DB.QueryRowContext(ctx, query, id, newPlanID, newToken, tokenExpiry))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeactivateCredential выполняет мягкое удаление записи и возвращает
// количество изменённых строк.
func (s *Storage) DeactivateCredential(ctx context.Context, id string) (int, error) {
	const op = "storage.DeactivateCredential"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_plans SET is_active = false WHERE id = $1`
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

// RemoveCredential удаляет запись по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveCredential(ctx context.Context, id string) (int, error) {
	const op = "storage.RemoveCredential"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM user_plans WHERE id = $1`
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

// ExtendCredentialExpiry продлевает срок действия подписки до новой даты.
// Неизвестная запись не является ошибкой: возвращается (nil, nil).
func (s *Storage) ExtendCredentialExpiry(ctx context.Context, id string, newExpiry time.Time) (*models.Credential, error) {
	const op = "storage.ExtendCredentialExpiry"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_plans
			  SET expiry_date = $2
			  WHERE id = $1
			  RETURNING ` + credentialColumns
	result, err := scanCredential(s.DB.QueryRowContext(ctx, query, id, newExpiry))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListCredentialHistory возвращает все записи пользователя, включая
// деактивированные, от новых к старым.
func (s *Storage) ListCredentialHistory(ctx context.Context, userID string) ([]*models.Credential, error) {
	const op = "storage.ListCredentialHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + credentialColumns + `
			  FROM user_plans
			  WHERE user_id = $1
			  ORDER BY purchase_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Credential
	for rows.Next() {
		var item models.Credential
		if err := rows.Scan(&item.ID, &item.UserID, &item.PlanID, &item.OrganizationID,
			&item.AccessToken, &item.TokenExpiryDate, &item.ExpiryDate,
			&item.PurchaseDate, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
