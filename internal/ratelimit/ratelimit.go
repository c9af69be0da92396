// Package ratelimit реализует ограничитель частоты с фиксированным окном
// по паре (пользователь, функция) поверх Redis. Окно живет ровно window:
// первый запрос открывает его (INCR создает ключ, EXPIRE задает TTL),
// последующие увеличивают счетчик в том же окне, по истечении TTL ключ
// исчезает и следующий запрос открывает новое окно. Счетчик учитывает все
// попытки допуска, включая отклонённые дальше по квоте.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter считает попытки допуска в фиксированном окне.
type Limiter struct {
	db      *redis.Client
	window  time.Duration
	ceiling int64
}

// New создает ограничитель с заданным окном и потолком.
func New(db *redis.Client, window time.Duration, ceiling int64) *Limiter {
	return &Limiter{
		db:      db,
		window:  window,
		ceiling: ceiling,
	}
}

func (l *Limiter) key(userID, featureID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", userID, featureID)
}

// Allow регистрирует попытку и сообщает, прошла ли она под потолок.
// Инкремент атомарный: параллельные запросы одного ключа не теряют
// друг друга. Возвращает также значение счетчика после инкремента.
func (l *Limiter) Allow(ctx context.Context, userID, featureID string) (bool, int64, error) {
	const op = "ratelimit.Allow"

	key := l.key(userID, featureID)
	count, err := l.db.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if count == 1 {
		if err := l.db.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("%s: %w", op, err)
		}
	}
	return count <= l.ceiling, count, nil
}

// Window возвращает остаток текущего окна для ключа; 0 — окна нет.
func (l *Limiter) Window(ctx context.Context, userID, featureID string) (time.Duration, error) {
	const op = "ratelimit.Window"

	ttl, err := l.db.TTL(ctx, l.key(userID, featureID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
