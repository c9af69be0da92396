// Package deactivate реализует HTTP-обработчик мягкого удаления
// учетных данных: запись остается в истории, но токен перестает действовать.
package deactivate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/usage-gate/internal/http/response"
	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
)

// Handler управляет HTTP-запросами на деактивацию.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс деактивации учетных данных.
type Service interface {
	Deactivate(ctx context.Context, id string) (int, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Деактивировать учетные данные
// @Tags Credentials
// @Produce json
// @Param id path string true "ID учетных данных"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /credentials/{id}/deactivate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credential.deactivate"
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

	count, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		log.Error("failed to deactivate credential", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not deactivate credential"))
		return
	}
	if count == 0 {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("credential not found"))
		return
	}

	log.Info("deactivated credential", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"deactivated": count}))
}
