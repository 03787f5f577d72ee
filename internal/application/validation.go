package application

import (
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

const (
	maxNameLength        = 120
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// window is a parsed date and time range.
type window struct {
	date  availability.Date
	start *availability.TimeOfDay
	end   *availability.TimeOfDay
}

// parseWindow validates the date and times of a booking against the ladder.
// A missing start is reported only when requireStart is set.
func parseWindow(ladder availability.Ladder, today availability.Date, date string, start, end *string, requireStart bool, vErr *ValidationError) window {
	var w window

	trimmedDate := strings.TrimSpace(date)
	if trimmedDate == "" {
		vErr.add("date", "date is required")
	} else if parsed, err := availability.ParseDate(trimmedDate); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	} else if parsed.Before(today) {
		vErr.add("date", "date must not be in the past")
	} else {
		w.date = parsed
	}

	if start == nil || strings.TrimSpace(*start) == "" {
		if requireStart {
			vErr.add("start_time", "start time is required")
		}
		if end != nil && strings.TrimSpace(*end) != "" {
			vErr.add("end_time", "end time requires a start time")
		}
		return w
	}

	parsedStart, err := availability.ParseTimeOfDay(*start)
	switch {
	case err != nil:
		vErr.add("start_time", "start time must use HH:MM")
		return w
	case !ladder.Contains(parsedStart):
		vErr.add("start_time", "start time is not an offered slot")
		return w
	}
	w.start = &parsedStart

	if end == nil || strings.TrimSpace(*end) == "" {
		return w
	}
	parsedEnd, err := availability.ParseTimeOfDay(*end)
	switch {
	case err != nil:
		vErr.add("end_time", "end time must use HH:MM")
	case !ladder.Contains(parsedEnd):
		vErr.add("end_time", "end time is not an offered slot")
	case parsedEnd <= parsedStart:
		vErr.add("end_time", "end time must be after start time")
	default:
		w.end = &parsedEnd
	}
	return w
}

func validateRequired(field, value string, maxLength int, vErr *ValidationError) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		vErr.add(field, field+" is required")
	case len([]rune(trimmed)) > maxLength:
		vErr.add(field, field+" is too long")
	}
	return trimmed
}

func validateOneOf(field, value string, allowed []string, vErr *ValidationError) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		vErr.add(field, field+" is required")
		return ""
	}
	if !slices.Contains(allowed, normalized) {
		vErr.add(field, field+" must be one of "+strings.Join(allowed, ", "))
	}
	return normalized
}

func validatePhone(value string, vErr *ValidationError) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		vErr.add("phone", "phone is required")
		return ""
	}
	digits := 0
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0, r == ' ', r == '-':
		default:
			vErr.add("phone", "phone may only contain digits, spaces, dashes and a leading +")
			return trimmed
		}
	}
	if digits < 8 || digits > 15 {
		vErr.add("phone", "phone must have between 8 and 15 digits")
	}
	return trimmed
}

func validateEmail(value *string, vErr *ValidationError) *string {
	normalized := normalizeOptionalString(value)
	if normalized == nil {
		return nil
	}
	addr, err := mail.ParseAddress(*normalized)
	if err != nil || addr.Address != *normalized {
		vErr.add("email", "email is invalid")
		return normalized
	}
	lowered := strings.ToLower(*normalized)
	return &lowered
}

func validateDescription(value *string, vErr *ValidationError) *string {
	normalized := normalizeOptionalString(value)
	if normalized != nil && len([]rune(*normalized)) > maxDescriptionLength {
		vErr.add("description", "description is too long")
	}
	return normalized
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func validateRecurrence(input *RecurrenceInput, startsOn availability.Date, vErr *ValidationError) *ActivityRecurrence {
	if input == nil {
		return nil
	}

	rule := &ActivityRecurrence{}
	freq, err := recurrence.ParseFrequency(input.Frequency)
	if err != nil {
		vErr.add("recurrence.frequency", "frequency must be daily or weekly")
	}
	rule.Frequency = freq

	seen := make(map[time.Weekday]struct{})
	for _, name := range input.Weekdays {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			vErr.add("recurrence.weekdays", "weekdays must be English day names")
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		rule.Weekdays = append(rule.Weekdays, day)
	}
	slices.Sort(rule.Weekdays)
	if freq == recurrence.FrequencyWeekly && len(rule.Weekdays) == 0 {
		vErr.add("recurrence.weekdays", "weekly recurrence requires at least one weekday")
	}

	if until := normalizeOptionalString(input.Until); until != nil {
		parsed, err := availability.ParseDate(*until)
		switch {
		case err != nil:
			vErr.add("recurrence.until", "until must use YYYY-MM-DD")
		case !startsOn.IsZero() && parsed.Before(startsOn):
			vErr.add("recurrence.until", "until must not be before the activity date")
		default:
			rule.Until = &parsed
		}
	}
	return rule
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
