// Package stats реализует HTTP-обработчик чтения счетчиков потребления организации.
package stats

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

// Handler управляет HTTP-запросами на чтение статистики потребления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения счетчиков.
type Service interface {
	GetUsageStats(ctx context.Context, organizationID string) ([]*models.UsageRecord, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Счетчики потребления организации
// @Tags Usage
// @Produce json
// @Param organizationID path string true "ID организации"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID организации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /usage/stats/{organizationID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.stats"
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

	records, err := h.service.GetUsageStats(r.Context(), organizationID)
	if err != nil {
		log.Error("failed to list usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list usage"))
		return
	}

	render.JSON(w, r, response.OKWithData(records))
}
