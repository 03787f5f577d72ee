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

type activityService interface {
	Create(ctx context.Context, params application.CreateActivityParams) (application.Activity, error)
	Update(ctx context.Context, params application.UpdateActivityParams) (application.Activity, error)
	Deactivate(ctx context.Context, params application.ActivityIDParams) error
	Delete(ctx context.Context, params application.ActivityIDParams) error
	Get(ctx context.Context, principal application.Principal, id string) (application.Activity, error)
	ListUpcoming(ctx context.Context, r availability.DateRange) ([]application.ActivityOccurrence, error)
}

// ActivityHandler serves the public activity schedule and its administration.
type ActivityHandler struct {
	service   activityService
	responder responder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewActivityHandler(service activityService, m *metrics.Metrics, logger *slog.Logger) *ActivityHandler {
	base := defaultLogger(logger)
	return &ActivityHandler{service: service, responder: newResponder(base), metrics: m, logger: base}
}

func (h *ActivityHandler) record(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordBooking(operation, application.ErrorKind(err))
	}
}

// ListUpcoming handles GET /activities?from=&to=.
func (h *ActivityHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var rng availability.DateRange
	values := r.URL.Query()
	for _, bound := range []struct {
		key string
		dst *availability.Date
	}{{"from", &rng.From}, {"to", &rng.To}} {
		raw := strings.TrimSpace(values.Get(bound.key))
		if raw == "" {
			continue
		}
		date, err := availability.ParseDate(raw)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, bound.key, bound.key+" must use YYYY-MM-DD")
			return
		}
		*bound.dst = date
	}

	occurrences, err := h.service.ListUpcoming(r.Context(), rng)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, occurrenceDTO{
			ActivityID:   occurrence.ActivityID,
			Title:        occurrence.Title,
			ActivityType: occurrence.ActivityType,
			Description:  occurrence.Description,
			Date:         occurrence.Date,
			StartTime:    occurrence.Start,
			EndTime:      occurrence.End,
			Recurring:    occurrence.Recurring,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listActivitiesResponse{Activities: dtos})
}

// Get handles GET /activities/{id}. Administrators also see inactive activities.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	activity, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toActivityDTO(activity))
}

// Create handles POST /admin/activities.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	req, ok := h.decode(w, r, "Create")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	activity, err := h.service.Create(r.Context(), application.CreateActivityParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	h.record("activity_create", err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toActivityDTO(activity))
}

// Update handles PUT /admin/activities/{id}.
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r, "Update")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	activity, err := h.service.Update(r.Context(), application.UpdateActivityParams{
		Principal:  principal,
		ActivityID: id,
		Input:      req.toInput(),
	})
	h.record("activity_update", err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toActivityDTO(activity))
}

// Deactivate handles POST /admin/activities/{id}/deactivate.
func (h *ActivityHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "activity_deactivate", func(ctx context.Context, params application.ActivityIDParams) error {
		return h.service.Deactivate(ctx, params)
	})
}

// Delete handles DELETE /admin/activities/{id}.
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "activity_delete", func(ctx context.Context, params application.ActivityIDParams) error {
		return h.service.Delete(ctx, params)
	})
}

func (h *ActivityHandler) remove(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, application.ActivityIDParams) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := fn(r.Context(), application.ActivityIDParams{Principal: principal, ActivityID: id})
	h.record(operation, err)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ActivityHandler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return "", false
	}
	return id, true
}

func (h *ActivityHandler) decode(w http.ResponseWriter, r *http.Request, operation string) (activityRequest, bool) {
	var req activityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "ActivityHandler", operation).
			WarnContext(r.Context(), "failed to decode activity request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return req, false
	}
	return req, true
}

type recurrenceRequest struct {
	Frequency string   `json:"frequency"`
	Weekdays  []string `json:"weekdays"`
	Until     *string  `json:"until"`
}

type activityRequest struct {
	Title        string             `json:"title"`
	ActivityType string             `json:"activity_type"`
	Description  *string            `json:"description"`
	Date         string             `json:"date"`
	StartTime    *string            `json:"start_time"`
	EndTime      *string            `json:"end_time"`
	Recurrence   *recurrenceRequest `json:"recurrence"`
}

func (r activityRequest) toInput() application.ActivityInput {
	input := application.ActivityInput{
		Title:        r.Title,
		ActivityType: r.ActivityType,
		Description:  r.Description,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
	if r.Recurrence != nil {
		input.Recurrence = &application.RecurrenceInput{
			Frequency: r.Recurrence.Frequency,
			Weekdays:  append([]string(nil), r.Recurrence.Weekdays...),
			Until:     r.Recurrence.Until,
		}
	}
	return input
}

type listActivitiesResponse struct {
	Activities []occurrenceDTO `json:"activities"`
}

type occurrenceDTO struct {
	ActivityID   string                  `json:"activity_id"`
	Title        string                  `json:"title"`
	ActivityType string                  `json:"activity_type"`
	Description  *string                 `json:"description,omitempty"`
	Date         availability.Date       `json:"date"`
	StartTime    *availability.TimeOfDay `json:"start_time"`
	EndTime      *availability.TimeOfDay `json:"end_time"`
	Recurring    bool                    `json:"recurring"`
}

type recurrenceDTO struct {
	Frequency string             `json:"frequency"`
	Weekdays  []string           `json:"weekdays,omitempty"`
	Until     *availability.Date `json:"until,omitempty"`
}

type activityDTO struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	ActivityType string                  `json:"activity_type"`
	Description  *string                 `json:"description,omitempty"`
	Date         availability.Date       `json:"date"`
	StartTime    *availability.TimeOfDay `json:"start_time"`
	EndTime      *availability.TimeOfDay `json:"end_time"`
	Active       bool                    `json:"active"`
	CreatedBy    string                  `json:"created_by"`
	Recurrence   *recurrenceDTO          `json:"recurrence,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	UpdatedAt    string                  `json:"updated_at"`
}

func toActivityDTO(activity application.Activity) activityDTO {
	dto := activityDTO{
		ID:           activity.ID,
		Title:        activity.Title,
		ActivityType: activity.ActivityType,
		Description:  activity.Description,
		Date:         activity.Date,
		StartTime:    activity.Start,
		EndTime:      activity.End,
		Active:       activity.Active,
		CreatedBy:    activity.CreatedBy,
		CreatedAt:    activity.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    activity.UpdatedAt.Format(time.RFC3339),
	}
	if rule := activity.Recurrence; rule != nil {
		weekdays := make([]string, 0, len(rule.Weekdays))
		for _, day := range rule.Weekdays {
			weekdays = append(weekdays, strings.ToLower(day.String()))
		}
		dto.Recurrence = &recurrenceDTO{
			Frequency: rule.Frequency.String(),
			Weekdays:  weekdays,
			Until:     rule.Until,
		}
	}
	return dto
}
