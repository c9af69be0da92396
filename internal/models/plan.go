package models

// FeatureLimit описывает лимит одной функции внутри плана.
// При IsUnlimited значение Limit игнорируется.
type FeatureLimit struct {
	FeatureID   string `json:"feature_id" validate:"required,uuid"`
	Limit       int64  `json:"limit" validate:"gte=0"`
	IsUnlimited bool   `json:"is_unlimited"`
}

// Plan представляет тарифный план организации: набор функций с лимитами
// и цена. Внутри плана функция встречается не более одного раза.
type Plan struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	Price          int
	Features       []FeatureLimit
	IsActive       bool
}

// Feature — учитываемая функция, которую организация предоставляет
// пользователям. Идентифицируется независимо от планов.
type Feature struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	IsActive       bool
}

// DummyPlan используется для приёма данных из JSON-запроса на создание
// или обновление плана.
type DummyPlan struct {
	OrganizationID string         `json:"organization_id" validate:"required,uuid"`
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description"`
	Price          int            `json:"price" validate:"gte=0"`
	Features       []FeatureLimit `json:"features" validate:"required,min=1,dive"`
}

// DummyFeature используется для приёма данных из JSON-запроса на создание функции.
type DummyFeature struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description"`
}
