// Package list реализует HTTP-обработчик списка планов организации.
package list

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

// Handler управляет HTTP-запросами на список планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс списка планов.
type Service interface {
	List(ctx context.Context, organizationID string) ([]*models.Plan, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список планов организации
// @Tags Plans
// @Produce json
// @Param organizationID path string true "ID организации"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID организации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /plans/list/{organizationID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	organizationID := chi.URLParam(r, "organizationID")
	if _, err := uuid.Parse(organizationID); err != nil {
		log.Error("invalid organization id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid organization id"))
		return
	}

	plans, err := h.service.List(r.Context(), organizationID)
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list plans"))
		return
	}

	render.JSON(w, r, response.OKWithData(plans))
}
