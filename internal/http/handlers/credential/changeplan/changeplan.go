// Package changeplan реализует HTTP-обработчик смены тарифного плана
// у действующих учетных данных.
package changeplan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/usage-gate/internal/http/response"
	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/models"
	credentialservice "github.com/magabrotheeeer/usage-gate/internal/services/credential"
)

// Handler управляет HTTP-запросами на смену плана.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс смены плана.
type Service interface {
	ChangePlan(ctx context.Context, id string, req models.DummyChangePlan) (*models.Credential, error)
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
// @Summary Сменить план учетных данных
// @Tags Credentials
// @Accept json
// @Produce json
// @Param id path string true "ID учетных данных"
// @Param request body models.DummyChangePlan true "Новый план"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 404 {object} response.ErrorResponse "План или запись не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /credentials/{id}/change-plan [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credential.changeplan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Error("invalid credential id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid credential id"))
		return
	}

	var req models.DummyChangePlan
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

	credential, err := h.service.ChangePlan(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, credentialservice.ErrPlanNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
			return
		}
		log.Error("failed to change plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not change plan"))
		return
	}
	if credential == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("credential not found"))
		return
	}

	log.Info("changed credential plan",
		slog.String("id", id),
		slog.String("plan_id", req.PlanID))
	render.JSON(w, r, response.OKWithData(credential))
}
