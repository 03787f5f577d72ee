package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/masjid-scheduler/internal/application"
)

var (
	errBadRequestBody = errors.New("Format permintaan tidak valid.")
	errMissingID      = errors.New("ID tidak valid.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeFieldError reports a malformed path or query value the same way the
// services report invalid input.
func (r responder) writeFieldError(ctx context.Context, w http.ResponseWriter, field, message string) {
	r.handleServiceError(ctx, w, &application.ValidationError{FieldErrors: map[string]string{field: message}})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrSlotUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_UNAVAILABLE",
			Message:   "Waktu yang dipilih sudah tidak tersedia. Silakan pilih waktu lain.",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "Reservasi ini sudah ditinjau.",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: localizedStatusMessage(http.StatusConflict)})
	case errors.Is(err, application.ErrAvailabilityUnknown):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "AVAILABILITY_UNKNOWN",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: localizedStatusMessage(http.StatusUnprocessableEntity),
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Permintaan tidak valid."
	case http.StatusForbidden:
		return "Anda tidak memiliki izin untuk melakukan tindakan ini."
	case http.StatusNotFound:
		return "Data yang diminta tidak ditemukan."
	case http.StatusConflict:
		return "Permintaan bertentangan dengan data yang ada."
	case http.StatusUnprocessableEntity:
		return "Periksa kembali isian Anda."
	case http.StatusTooManyRequests:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."
	case http.StatusServiceUnavailable:
		return "Ketersediaan tidak dapat diperiksa saat ini. Silakan coba lagi."
	default:
		return "Terjadi kesalahan pada server."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var validationMessages = map[string]string{
	"date must use YYYY-MM-DD":                        "Tanggal harus berformat YYYY-MM-DD.",
	"date must not be in the past":                    "Tanggal tidak boleh di masa lalu.",
	"start time must use HH:MM":                       "Jam mulai harus berformat HH:MM.",
	"start time is not an offered slot":               "Jam mulai tidak tersedia dalam pilihan.",
	"end time must use HH:MM":                         "Jam selesai harus berformat HH:MM.",
	"end time is not an offered slot":                 "Jam selesai tidak tersedia dalam pilihan.",
	"end time must be after start time":               "Jam selesai harus setelah jam mulai.",
	"end time requires a start time":                  "Jam selesai memerlukan jam mulai.",
	"email is invalid":                                "Format email tidak valid.",
	"phone must have between 8 and 15 digits":         "Nomor telepon harus terdiri dari 8 sampai 15 digit.",
	"frequency must be daily or weekly":               "Pengulangan harus harian atau mingguan.",
	"to must not be before from":                      "Tanggal akhir tidak boleh sebelum tanggal awal.",
	"month must use YYYY-MM":                          "Bulan harus berformat YYYY-MM.",
	"from must use YYYY-MM-DD":                        "Tanggal awal harus berformat YYYY-MM-DD.",
	"to must use YYYY-MM-DD":                          "Tanggal akhir harus berformat YYYY-MM-DD.",
	"weekly recurrence requires at least one weekday": "Pengulangan mingguan memerlukan minimal satu hari.",
}

func translateValidationMessage(message string) string {
	if translated, ok := validationMessages[message]; ok {
		return translated
	}
	if field, ok := strings.CutSuffix(message, " is required"); ok {
		return field + " wajib diisi."
	}
	if field, ok := strings.CutSuffix(message, " is too long"); ok {
		return field + " terlalu panjang."
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
