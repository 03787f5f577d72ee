package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when an identifier collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotUnavailable is returned when the requested window overlaps an approved
	// reservation or an active activity.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
	// ErrInvalidTransition is returned when a reservation is reviewed outside the pending state.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrAvailabilityUnknown is returned when occupancy could not be fetched and
	// the operation refuses to proceed without it.
	ErrAvailabilityUnknown = errors.New("application: availability unknown")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}
