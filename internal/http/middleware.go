package http

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/logging"
	"github.com/example/masjid-scheduler/internal/metrics"
)

// Headers set by the fronting backend. Principal headers are honoured only
// when the request also carries the shared gateway secret.
const (
	HeaderGatewaySecret = "X-Gateway-Secret"
	HeaderPrincipalID   = "X-Principal-ID"
	HeaderPrincipalRole = "X-Principal-Role"
	HeaderRequestID     = "X-Request-ID"

	adminRole = "admin"
)

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// RequestLogger attaches a request scoped logger and request id to the context
// and logs each request on completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ctx = logging.ContextWithRequestID(ctx, id)
			rec := recordStatus(w)
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

// Instrument records request counts and latency per route pattern. It must
// wrap the ServeMux directly so the matched pattern is visible afterwards.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := recordStatus(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}

// TrustedPrincipal resolves the calling principal from gateway headers. Requests
// without the matching secret are treated as anonymous.
func TrustedPrincipal(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = defaultLogger(logger)
	expected := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			provided := r.Header.Get(HeaderGatewaySecret)
			trusted := len(expected) > 0 && subtle.ConstantTimeCompare([]byte(provided), expected) == 1

			var principal application.Principal
			switch {
			case trusted:
				ctx = contextWithGateway(ctx)
				principal.UserID = strings.TrimSpace(r.Header.Get(HeaderPrincipalID))
				principal.IsAdmin = principal.UserID != "" &&
					strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderPrincipalRole)), adminRole)
			case r.Header.Get(HeaderPrincipalID) != "" || provided != "":
				log := LoggerFromContext(ctx)
				if log == nil {
					log = logger
				}
				log.WarnContext(ctx, "ignoring principal headers without a valid gateway secret")
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, principal)))
		})
	}
}

// RequireAdmin rejects callers that are not administrators.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			if !principal.IsAdmin {
				responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitConfig bounds how often one client may hit a limited route.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
	// Clients caps the number of tracked clients; idle clients expire after IdleTTL.
	Clients int
	IdleTTL time.Duration
}

// RateLimit applies a token bucket per client address. A zero PerMinute
// disables limiting.
func RateLimit(cfg RateLimitConfig, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.PerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Clients <= 0 {
		cfg.Clients = 4096
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	every := rate.Every(time.Minute / time.Duration(cfg.PerMinute))
	limiters := expirable.NewLRU[string, *rate.Limiter](cfg.Clients, nil, cfg.IdleTTL)
	var mu sync.Mutex
	responder := newResponder(logger)
	retryAfter := strconv.Itoa(max(1, int((time.Minute / time.Duration(cfg.PerMinute)).Seconds())))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientAddress(r)
			mu.Lock()
			limiter, ok := limiters.Get(key)
			if !ok {
				limiter = rate.NewLimiter(every, cfg.Burst)
				limiters.Add(key, limiter)
			}
			mu.Unlock()
			if !limiter.Allow() {
				if m != nil {
					m.RecordRateLimited()
				}
				w.Header().Set("Retry-After", retryAfter)
				responder.writeError(r.Context(), w, http.StatusTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress identifies the caller. X-Forwarded-For is only trusted on
// requests relayed by the gateway.
func clientAddress(r *http.Request) string {
	if viaGateway(r.Context()) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
