// Package history реализует HTTP-обработчик чтения истории учетных данных
// пользователя, включая деактивированные записи.
package history

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
	"github.com/magabrotheeeer/usage-gate/internal/models"
)

// Handler управляет HTTP-запросами на чтение истории.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения истории учетных данных.
type Service interface {
	History(ctx context.Context, userID string) ([]*models.Credential, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История учетных данных пользователя
// @Description Возвращает все записи пользователя от новых к старым, включая деактивированные.
// @Tags Credentials
// @Produce json
// @Param userID path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID пользователя"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /credentials/history/{userID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credential.history"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		log.Error("invalid user id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		log.Error("failed to list credential history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list credential history"))
		return
	}

	render.JSON(w, r, response.OKWithData(history))
}
