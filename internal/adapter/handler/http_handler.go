package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/backend"
	"github.com/rl1809/stockdesk/internal/core/domain"
)

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPHandler struct {
	auth      *backend.AuthService
	inventory *backend.InventoryService
	requests  *backend.RequestService
	db        Pinger
	logger    zerolog.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type bulkImportRequest struct {
	Items []domain.ImportCandidate `json:"items"`
}

func NewHTTPHandler(auth *backend.AuthService, inventory *backend.InventoryService, requests *backend.RequestService, db Pinger, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		auth:      auth,
		inventory: inventory,
		requests:  requests,
		db:        db,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !h.decode(w, r, &reg) {
		return
	}
	if _, err := h.auth.Register(r.Context(), reg); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User created"})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid form"})
		return
	}
	token, err := h.auth.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *HTTPHandler) Welcome(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	role := r.PathValue("role")
	if role != string(actor.Role) {
		writeJSON(w, http.StatusForbidden, errorResponse{Detail: "Access denied"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Welcome, %s! You are logged in as %s.", actor.Subject, role),
	})
}

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) CreateInventory(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	var draft domain.InventoryDraft
	if !h.decode(w, r, &draft) {
		return
	}
	item, err := h.inventory.Create(r.Context(), actor, draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) UpdateInventory(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.InventoryPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.inventory.Update(r.Context(), actor, id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) DeleteInventory(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	msg, err := h.inventory.Delete(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *HTTPHandler) BulkImport(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	var body bulkImportRequest
	if !h.decode(w, r, &body) {
		return
	}
	result, err := h.inventory.BulkImport(r.Context(), actor, body.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.inventory.ExportCSV(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory-export.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *HTTPHandler) ListPending(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	h.writeRecords(w, r)(h.requests.Pending(r.Context(), actor))
}

func (h *HTTPHandler) ListHistory(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	h.writeRecords(w, r)(h.requests.History(r.Context(), actor))
}

func (h *HTTPHandler) ListMine(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	h.writeRecords(w, r)(h.requests.Mine(r.Context(), actor))
}

func (h *HTTPHandler) ListAvailable(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	items, err := h.inventory.Available(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	var draft domain.RequestDraft
	if !h.decode(w, r, &draft) {
		return
	}
	rec, err := h.requests.Create(r.Context(), actor, draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) DeleteRequest(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.requests.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Request deleted"})
}

func (h *HTTPHandler) TransitionRequest(w http.ResponseWriter, r *http.Request, actor domain.SessionClaims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	action := domain.Action(r.PathValue("action"))
	if action != domain.ActionAccept && action != domain.ActionDecline {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Not Found"})
		return
	}

	rec, err := h.requests.Transition(r.Context(), actor, id, action)
	transitionOutcomes.WithLabelValues(string(action), outcomeLabel(err)).Inc()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeRecords(w http.ResponseWriter, r *http.Request) func([]domain.RequestRecord, error) {
	return func(records []domain.RequestRecord, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid request body"})
		return false
	}
	return true
}

// writeError maps a service error to a status code. Rejections carry their
// own message; anything else is logged and reported as an internal error.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := "internal error"

	var rej *backend.Rejection
	if errors.As(err, &rej) {
		detail = rej.Detail
	} else if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	} else {
		detail = err.Error()
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "already_processed"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
