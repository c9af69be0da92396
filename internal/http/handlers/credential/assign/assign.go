// Package assign реализует HTTP-обработчик выдачи учетных данных.
//
// Handler принимает пользователя, план и дату окончания подписки,
// выпускает новый непрозрачный токен доступа и возвращает созданную
// запись вместе с токеном.
package assign

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
	credentialservice "github.com/magabrotheeeer/usage-gate/internal/services/credential"
)

// Handler управляет HTTP-запросами на выдачу учетных данных.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс выдачи учетных данных.
type Service interface {
	Assign(ctx context.Context, req models.DummyCredential) (*models.Credential, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдать учетные данные
// @Description Назначает пользователю план и выпускает токен доступа.
// @Tags Credentials
// @Accept json
// @Produce json
// @Param request body models.DummyCredential true "Данные подписки пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или дата"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /credentials [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credential.assign"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCredential
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

	credential, err := h.service.Assign(r.Context(), req)
	if err != nil {
		if errors.Is(err, credentialservice.ErrPlanNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
			return
		}
		if errors.Is(err, credentialservice.ErrBadExpiryDate) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid expiry date"))
			return
		}
		log.Error("failed to assign credential", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not assign credential"))
		return
	}

	log.Info("assigned credential",
		slog.String("user_id", req.UserID),
		slog.String("plan_id", req.PlanID))
	render.JSON(w, r, response.OKWithData(credential))
}
