// Package http exposes the facility availability service over HTTP.
//
// Public endpoints:
//   - GET /availability/{date}: {"date","status","known","start_times"} for the
//     booking form's start picker. status is free, partial, full or unknown.
//   - GET /availability/{date}/end-times?start=HH:MM: {"date","start","known","end_times"}.
//   - GET /calendar?month=YYYY-MM: {"month","known","days":[{"date","status"}]}.
//   - POST /reservations: submits a pending reservation using the
//     `reservationRequest` payload in reservation_handler.go. Rate limited per client.
//   - GET /activities?from=&to=: upcoming active activities with recurrences
//     expanded into dated occurrences. GET /activities/{id} returns one activity.
//
// Administrator endpoints require the X-Gateway-Secret header plus
// X-Principal-ID and X-Principal-Role: admin, all set by the fronting backend:
//   - GET /admin/reservations?status=&from=&to=&q=, GET /admin/reservations/{id}
//   - POST /admin/reservations/{id}/approve, POST /admin/reservations/{id}/reject
//   - POST /admin/activities, PUT /admin/activities/{id},
//     POST /admin/activities/{id}/deactivate, DELETE /admin/activities/{id}
//
// Operational endpoints are GET /healthz and GET /metrics.
//
// Errors use {"error_code","message","errors"}: 403 for non-admins, 404, 409 for
// slot conflicts and repeated reviews, 422 for invalid input, 429 when rate
// limited and 503 when availability cannot be checked.
package http
