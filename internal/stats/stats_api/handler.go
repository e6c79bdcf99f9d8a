package stats_api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-admissions/internal/logger"
	"ms-admissions/internal/models"
	"ms-admissions/internal/stats"
	"ms-admissions/internal/utils"
)

// Handler exposes the reporting endpoints consumed by the dashboard.
type Handler struct {
	Service *stats.Service
	Logger  *logger.Logger
}

func NewHandler(service *stats.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the stats routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/daily", h.Daily)
		r.Get("/weekly", h.Weekly)
		r.Get("/monthly", h.Monthly)
		r.Get("/ticket-types", h.TicketTypes)
		r.Get("/today", h.Today)
	})
}

// Daily returns the stored rollups for a date range, defaulting to the
// last seven days.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, func() (time.Time, time.Time) {
		now := time.Now()
		return now.AddDate(0, 0, -6), now
	})
	if err != nil {
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid date parameters", err.Error()))
		return
	}

	days, err := h.Service.DailyRange(r.Context(), start, end)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	views := make([]models.DailyStatView, 0, len(days))
	for i := range days {
		views = append(views, days[i].View())
	}
	sendJSON(w, http.StatusOK, utils.SuccessResponse("Daily stats", views))
}

// Weekly returns the ISO-week rollup for a year, defaulting to the
// current year.
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid year parameter", err.Error()))
		return
	}

	weeks, err := h.Service.WeeklyRollup(r.Context(), year)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, utils.SuccessResponse("Weekly stats", weeks))
}

// Monthly returns the calendar-month rollup for a year.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid year parameter", err.Error()))
		return
	}

	months, err := h.Service.MonthlyRollup(r.Context(), year)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, utils.SuccessResponse("Monthly stats", months))
}

// TicketTypes returns the category distribution for a range, defaulting
// to the current month.
func (h *Handler) TicketTypes(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, func() (time.Time, time.Time) {
		// Zero times make the service default to the current month.
		return time.Time{}, time.Time{}
	})
	if err != nil {
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid date parameters", err.Error()))
		return
	}

	dist, err := h.Service.CategoryDistribution(r.Context(), start, end)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, utils.SuccessResponse("Ticket type distribution", dist))
}

// Today returns the live dashboard summary.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Today(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, utils.SuccessResponse("Today's summary", summary))
}

func (h *Handler) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stats.ErrInvalidDateRange):
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid date parameters", err.Error()))
	case errors.Is(err, stats.ErrInvalidYear):
		sendJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid year parameter", err.Error()))
	default:
		if h.Logger != nil {
			h.Logger.Error("STATS_API", err.Error())
		}
		sendJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Error fetching stats", err.Error()))
	}
}

// parseDateRange reads startDate/endDate query params (both or neither).
func parseDateRange(r *http.Request, defaults func() (time.Time, time.Time)) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")

	if startStr == "" && endStr == "" {
		start, end := defaults()
		return start, end, nil
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseYear(r *http.Request) (int, error) {
	yearStr := r.URL.Query().Get("year")
	if yearStr == "" {
		return time.Now().Year(), nil
	}
	return strconv.Atoi(yearStr)
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
