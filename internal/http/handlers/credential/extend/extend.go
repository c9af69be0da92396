// Package extend реализует HTTP-обработчик продления срока действия подписки.
package extend

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

// Handler управляет HTTP-запросами на продление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс продления подписки.
type Service interface {
	ExtendExpiry(ctx context.Context, id, newExpiry string) (*models.Credential, error)
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
// @Summary Продлить подписку
// @Description Устанавливает новую дату окончания подписки без смены токена.
// @Tags Credentials
// @Accept json
// @Produce json
// @Param id path string true "ID учетных данных"
// @Param request body models.DummyExtendExpiry true "Новая дата окончания"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID, JSON или дата"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /credentials/{id}/extend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credential.extend"
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

	var req models.DummyExtendExpiry
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

	credential, err := h.service.ExtendExpiry(r.Context(), id, req.ExpiryDate)
	if err != nil {
		if errors.Is(err, credentialservice.ErrBadExpiryDate) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid expiry date"))
			return
		}
		log.Error("failed to extend credential expiry", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not extend expiry"))
		return
	}
	if credential == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("credential not found"))
		return
	}

	log.Info("extended credential expiry",
		slog.String("id", id),
		slog.String("expiry_date", req.ExpiryDate))
	render.JSON(w, r, response.OKWithData(credential))
}
