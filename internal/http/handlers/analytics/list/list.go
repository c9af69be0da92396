// Package list реализует HTTP-обработчик чтения дневных агрегатов
// использования по организации за указанный период.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/usage-gate/internal/http/response"
	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/models"
	analyticsservice "github.com/magabrotheeeer/usage-gate/internal/services/analytics"
)

// Handler управляет HTTP-запросами на чтение аналитики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения аналитики.
type Service interface {
	List(ctx context.Context, organizationID, from, to string) ([]*models.AnalyticsBucket, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Аналитика использования организации
// @Description Возвращает дневные агрегаты. Без параметров from/to берется период за последние 30 дней.
// @Tags Analytics
// @Produce json
// @Param organizationID path string true "ID организации"
// @Param from query string false "Начало периода в формате 02-01-2006"
// @Param to query string false "Конец периода в формате 02-01-2006"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или даты"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /analytics/{organizationID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.list"
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

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	buckets, err := h.service.List(r.Context(), organizationID, from, to)
	if err != nil {
		if errors.Is(err, analyticsservice.ErrBadDateRange) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid date range"))
			return
		}
		log.Error("failed to list analytics", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list analytics"))
		return
	}

	render.JSON(w, r, response.OKWithData(buckets))
}
