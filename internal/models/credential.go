// Package models содержит доменные структуры сервиса:
// учетные данные пользователя (credential), тарифные планы с лимитами функций,
// записи потребления, аналитические агрегаты, а также вспомогательные типы
// для приёма данных из JSON-запросов.
package models

import "time"

// Credential представляет привязку пользователя к тарифному плану
// вместе с bearer-токеном доступа. AccessToken уникален среди всех
// живых записей. TokenExpiryDate — срок жизни самого токена
// (продлевается прозрачно), ExpiryDate — срок действия подписки
// (никогда не продлевается автоматически).
type Credential struct {
	ID              string    // Идентификатор записи
	UserID          string    // Пользователь-владелец
	PlanID          string    // Привязанный тарифный план
	OrganizationID  string    // Организация, владеющая планом
	AccessToken     string    // Токен доступа
	TokenExpiryDate time.Time // Срок жизни токена
	ExpiryDate      time.Time // Срок действия подписки
	PurchaseDate    time.Time // Дата выдачи
	IsActive        bool      // Флаг активности (soft-delete)
}

// DummyCredential используется для приёма данных из JSON-запроса
// на выдачу учетных данных. Дата окончания приходит строкой
// в формате 02-01-2006 и парсится вручную.
type DummyCredential struct {
	UserID         string `json:"user_id" validate:"required,uuid"`
	PlanID         string `json:"plan_id" validate:"required,uuid"`
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	ExpiryDate     string `json:"expiry_date" validate:"required"` // Дата окончания подписки в формате 02-01-2006
}

// DummyChangePlan используется для запроса на смену тарифного плана
// (upgrade или downgrade) по существующей записи.
type DummyChangePlan struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

// DummyExtendExpiry используется для запроса на продление подписки.
type DummyExtendExpiry struct {
	ExpiryDate string `json:"expiry_date" validate:"required"` // Новая дата окончания в формате 02-01-2006
}
