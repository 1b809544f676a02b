package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

const headerRequestID = "X-Request-ID"

// AuthedFunc is a handler that runs only for a verified bearer token.
type AuthedFunc func(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims)

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func Actor(ctx context.Context) (domain.SessionClaims, bool) {
	actor, ok := ctx.Value(actorKey).(domain.SessionClaims)
	return actor, ok
}

func (h *HTTPHandler) authed(next AuthedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Not authenticated"})
			return
		}

		actor, err := h.auth.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)), actor)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument tags every request with an id, logs it and records metrics.
func (h *HTTPHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observeRequest(r.Method, route, rec.status, elapsed)

		h.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}
