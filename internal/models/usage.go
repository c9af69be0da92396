package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// UsageRecord — счетчик потребления функции по тройке
// (пользователь, функция, план). Создается лениво при первом обращении.
// ResetDate — горизонт сброса для периодической задачи, сам счетчик
// при проверке квоты на него не смотрит.
type UsageRecord struct {
	UserID         string
	FeatureID      string
	PlanID         string
	OrganizationID string
	UsageCount     int64
	LastUsed       time.Time
	ResetDate      time.Time
}

// Limit — значение лимита, которое сериализуется либо числом,
// либо строкой "unlimited".
type Limit struct {
	Value     int64
	Unlimited bool
}

// Bounded возвращает конечный лимит.
func Bounded(v int64) Limit { return Limit{Value: v} }

// UnlimitedLimit возвращает безлимитное значение.
func UnlimitedLimit() Limit { return Limit{Unlimited: true} }

// MarshalJSON сериализует лимит в число или строку "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON разбирает число или строку "unlimited".
// Любая другая строка считается ошибкой.
func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("unknown limit value %q", s)
		}
		*l = Limit{Unlimited: true}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Limit{Value: v}
	return nil
}

// UsageDecision — результат успешной проверки квоты.
// NewAccessToken заполняется только при прозрачном обновлении токена
// и передается клиенту вне тела ответа (заголовок X-New-Token).
type UsageDecision struct {
	CurrentUsage   int64  `json:"current_usage"`
	Limit          Limit  `json:"limit"`
	Remaining      Limit  `json:"remaining"`
	NewAccessToken string `json:"-"`
}

// DummyTrackRequest используется для приёма запроса на учет использования функции.
type DummyTrackRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	FeatureID   string `json:"feature_id" validate:"required,uuid"`
}

// DummyResetUsage используется для приёма запроса на явный сброс счетчика.
type DummyResetUsage struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	FeatureID string `json:"feature_id" validate:"required,uuid"`
	PlanID    string `json:"plan_id" validate:"required,uuid"`
}
