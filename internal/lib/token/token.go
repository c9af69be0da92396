// Package token генерирует непрозрачные токены доступа для учетных данных.
// Токен — это случайный секрет, а не подписанные утверждения: его
// единственное назначение — поиск живой записи в хранилище.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// New возвращает случайный токен доступа в hex-представлении (64 символа).
func New() (string, error) {
	const op = "token.New"
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}

// Generator реализует источник токенов для внедрения в сервисы.
type Generator struct{}

// New возвращает новый случайный токен доступа.
func (Generator) New() (string, error) {
	return New()
}
