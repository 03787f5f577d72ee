package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/metrics"
)

const maxBodyBytes = 64 << 10

type reservationService interface {
	Submit(ctx context.Context, input application.ReservationInput) (application.Reservation, error)
	Approve(ctx context.Context, params application.ReviewReservationParams) (application.Reservation, error)
	Reject(ctx context.Context, params application.ReviewReservationParams) (application.Reservation, error)
	Get(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	List(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
}

// ReservationHandler serves public submission and the administrator review queue.
type ReservationHandler struct {
	service   reservationService
	responder responder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, m *metrics.Metrics, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), metrics: m, logger: base}
}

func (h *ReservationHandler) record(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordBooking(operation, application.ErrorKind(err))
	}
}

// Submit handles POST /reservations.
func (h *ReservationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "ReservationHandler", "Submit").
			WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.Submit(r.Context(), req.toInput())
	h.record("submit", err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

// List handles GET /admin/reservations?status=&from=&to=&q=.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query, field, message := buildReservationQuery(r)
	if field != "" {
		h.responder.writeFieldError(r.Context(), w, field, message)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservations, err := h.service.List(r.Context(), application.ListReservationsParams{
		Principal: principal,
		Query:     query,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		dtos = append(dtos, toReservationDTO(reservation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: dtos})
}

// Get handles GET /admin/reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

// Approve handles POST /admin/reservations/{id}/approve.
func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve")
}

// Reject handles POST /admin/reservations/{id}/reject.
func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject")
}

func (h *ReservationHandler) review(w http.ResponseWriter, r *http.Request, operation string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ReviewReservationParams{Principal: principal, ReservationID: id}

	var (
		reservation application.Reservation
		err         error
	)
	if operation == "approve" {
		reservation, err = h.service.Approve(r.Context(), params)
	} else {
		reservation, err = h.service.Reject(r.Context(), params)
	}
	h.record(operation, err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

// buildReservationQuery parses listing filters. A non-empty field names the
// offending parameter.
func buildReservationQuery(r *http.Request) (application.ReservationQuery, string, string) {
	values := r.URL.Query()
	var query application.ReservationQuery

	for _, raw := range values["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := application.ParseReservationStatus(part)
			if !ok {
				return query, "status", "status must be one of pending, approved, rejected"
			}
			query.Statuses = append(query.Statuses, status)
		}
	}

	for _, bound := range []struct {
		key string
		dst *availability.Date
	}{{"from", &query.From}, {"to", &query.To}} {
		raw := strings.TrimSpace(values.Get(bound.key))
		if raw == "" {
			continue
		}
		date, err := availability.ParseDate(raw)
		if err != nil {
			return query, bound.key, bound.key + " must use YYYY-MM-DD"
		}
		*bound.dst = date
	}

	query.Name = strings.TrimSpace(values.Get("q"))
	return query, "", ""
}

type reservationRequest struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email"`
	ActivityType string  `json:"activity_type"`
	Description  *string `json:"description"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		ActivityType: r.ActivityType,
		Description:  r.Description,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Phone        string                  `json:"phone"`
	Email        *string                 `json:"email,omitempty"`
	ActivityType string                  `json:"activity_type"`
	Description  *string                 `json:"description,omitempty"`
	Date         availability.Date       `json:"date"`
	StartTime    availability.TimeOfDay  `json:"start_time"`
	EndTime      *availability.TimeOfDay `json:"end_time"`
	Status       string                  `json:"status"`
	CreatedAt    string                  `json:"created_at"`
	ReviewedAt   *string                 `json:"reviewed_at,omitempty"`
	ReviewedBy   *string                 `json:"reviewed_by,omitempty"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:           reservation.ID,
		Name:         reservation.Name,
		Phone:        reservation.Phone,
		Email:        reservation.Email,
		ActivityType: reservation.ActivityType,
		Description:  reservation.Description,
		Date:         reservation.Date,
		StartTime:    reservation.Start,
		EndTime:      reservation.End,
		Status:       string(reservation.Status),
		CreatedAt:    reservation.CreatedAt.Format(time.RFC3339),
		ReviewedBy:   reservation.ReviewedBy,
	}
	if reservation.ReviewedAt != nil {
		reviewed := reservation.ReviewedAt.Format(time.RFC3339)
		dto.ReviewedAt = &reviewed
	}
	return dto
}
