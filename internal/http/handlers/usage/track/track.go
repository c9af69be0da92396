// Package track реализует HTTP-обработчик учета использования функции —
// единственную внешнюю операцию ядра. Обработчик принимает токен доступа
// и идентификатор функции, вызывает проверку квоты и отображает исход
// на HTTP-статус. При прозрачном обновлении токена новый токен передается
// клиенту в заголовке X-New-Token.
package track

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/usage-gate/internal/http/response"
	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/models"
	usageservice "github.com/magabrotheeeer/usage-gate/internal/services/usage"
)

// Handler управляет HTTP-запросами на учет использования.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс проверки квоты.
type Service interface {
	TrackUsage(ctx context.Context, accessToken, featureID string) (*models.UsageDecision, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Учесть использование функции
// @Description Проверяет допуск вызова по токену доступа и списывает единицу квоты.
// @Tags Usage
// @Accept  json
// @Produce  json
// @Param request body models.DummyTrackRequest true "Токен доступа и функция"
// @Success 200 {object} response.Response "Решение о допуске"
// @Header 200 {string} X-New-Token "Новый токен доступа при прозрачном обновлении"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неизвестный токен или истекшая подписка"
// @Failure 403 {object} response.ErrorResponse "Функция не входит в план"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 429 {object} response.ErrorResponse "Превышена частота или квота"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /usage/track [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.track"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	decision, err := h.service.TrackUsage(r.Context(), req.AccessToken, req.FeatureID)
	if err != nil {
		h.renderError(w, r, log, err)
		return
	}

	if decision.NewAccessToken != "" {
		w.Header().Set("X-New-Token", decision.NewAccessToken)
	}
	render.JSON(w, r, response.OKWithData(decision))
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var qe *usageservice.QuotaExceededError

	switch {
	case errors.Is(err, usageservice.ErrInvalidToken):
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid access token"))
	case errors.Is(err, usageservice.ErrPlanExpired):
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("plan expired"))
	case errors.Is(err, usageservice.ErrPlanNotFound):
		log.Error("credential references missing plan", sl.Err(err))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("plan not found"))
	case errors.Is(err, usageservice.ErrFeatureNotEntitled):
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("feature not included in plan"))
	case errors.Is(err, usageservice.ErrRateLimited):
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("rate limit exceeded"))
	case errors.As(err, &qe):
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, response.Response{
			Success: false,
			Message: "usage limit exceeded",
			Data: map[string]any{
				"current_usage": qe.CurrentUsage,
				"limit":         qe.Limit,
			},
		})
	case errors.Is(err, usageservice.ErrTokenRefresh):
		log.Error("failed to refresh token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to refresh token"))
	default:
		log.Error("failed to track usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not track usage"))
	}
}
