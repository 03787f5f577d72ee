package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
)

type availabilityService interface {
	Day(ctx context.Context, date availability.Date) (application.DayView, error)
	EndTimes(ctx context.Context, date availability.Date, start availability.TimeOfDay) (application.EndTimesView, error)
	Calendar(ctx context.Context, r availability.DateRange) (application.CalendarView, error)
}

// AvailabilityHandler serves the public booking form's time pickers and calendar.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger)}
}

// Day handles GET /availability/{date}.
func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}

	view, err := h.service.Day(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayResponse{
		Date:       view.Date,
		Status:     view.Status,
		Known:      view.Known,
		StartTimes: nonNilTimes(view.StartTimes),
	})
}

// EndTimes handles GET /availability/{date}/end-times?start=HH:MM.
func (h *AvailabilityHandler) EndTimes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := h.pathDate(w, r)
	if !ok {
		return
	}
	start, err := availability.ParseTimeOfDay(strings.TrimSpace(r.URL.Query().Get("start")))
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "start", "start time must use HH:MM")
		return
	}

	view, err := h.service.EndTimes(r.Context(), date, start)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, endTimesResponse{
		Date:     view.Date,
		Start:    view.Start,
		Known:    view.Known,
		EndTimes: nonNilTimes(view.EndTimes),
	})
}

// Calendar handles GET /calendar?month=YYYY-MM.
func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	month := strings.TrimSpace(r.URL.Query().Get("month"))
	first, err := time.Parse("2006-01", month)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "month", "month must use YYYY-MM")
		return
	}

	view, err := h.service.Calendar(r.Context(), availability.MonthOf(availability.DateOf(first)))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	days := make([]calendarDayDTO, 0, len(view.Days))
	for _, day := range view.Days {
		days = append(days, calendarDayDTO{Date: day.Date, Status: day.Status})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{
		Month: first.Format("2006-01"),
		Known: view.Known,
		Days:  days,
	})
}

func (h *AvailabilityHandler) pathDate(w http.ResponseWriter, r *http.Request) (availability.Date, bool) {
	date, err := availability.ParseDate(r.PathValue("date"))
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, "date", "date must use YYYY-MM-DD")
		return availability.Date{}, false
	}
	return date, true
}

func nonNilTimes(times []availability.TimeOfDay) []availability.TimeOfDay {
	if times == nil {
		return []availability.TimeOfDay{}
	}
	return times
}

type dayResponse struct {
	Date       availability.Date        `json:"date"`
	Status     availability.DayStatus   `json:"status"`
	Known      bool                     `json:"known"`
	StartTimes []availability.TimeOfDay `json:"start_times"`
}

type endTimesResponse struct {
	Date     availability.Date        `json:"date"`
	Start    availability.TimeOfDay   `json:"start"`
	Known    bool                     `json:"known"`
	EndTimes []availability.TimeOfDay `json:"end_times"`
}

type calendarDayDTO struct {
	Date   availability.Date      `json:"date"`
	Status availability.DayStatus `json:"status"`
}

type calendarResponse struct {
	Month string           `json:"month"`
	Known bool             `json:"known"`
	Days  []calendarDayDTO `json:"days"`
}
