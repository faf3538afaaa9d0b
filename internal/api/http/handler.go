package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"
	"equiprent-backend/internal/security"
	"equiprent-backend/internal/service"

	"github.com/gorilla/mux"
)

// Sweeper runs the lifecycle sweep on demand and reports the last result.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*domain.SweepSummary, error)
	LastSweep() (*domain.SweepSummary, error)
}

// Handler serves the transaction lifecycle HTTP API
type Handler struct {
	lifecycle service.LifecycleService
	sweeper   Sweeper
	tokens    security.TokenManager
	now       func() time.Time
}

func NewHandler(lifecycle service.LifecycleService, sweeper Sweeper, tokens security.TokenManager) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		sweeper:   sweeper,
		tokens:    tokens,
		now:       time.Now,
	}
}

// Router registers every route. Authentication is decided per route template
// by config.EndpointSecurityConfig.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests, h.authenticate)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/sales/{id}", h.GetSale).Methods(http.MethodGet)
	api.HandleFunc("/{kind:bookings|sales}/{id}/status", h.RequestTransition).Methods(http.MethodPost)
	api.HandleFunc("/{kind:bookings|sales}/{id}/notifications", h.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/admin/sweep", h.RunSweep).Methods(http.MethodPost)
	return r
}

type transitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// RequestTransition handles POST /api/v1/{kind}/{id}/status
func (h *Handler) RequestTransition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := domain.ParseKind(vars["kind"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidInput, err))
		return
	}
	requested, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txn, err := h.lifecycle.RequestTransition(r.Context(), actorFrom(r.Context()), kind, vars["id"], requested, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// GetBooking handles GET /api/v1/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := h.lifecycle.GetBooking(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	view, err := h.lifecycle.GetSale(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListNotifications handles GET /api/v1/{kind}/{id}/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.lifecycle.ListNotifications(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notes})
}

// RunSweep handles POST /api/v1/admin/sweep. An optional RFC 3339 "now" query
// parameter sweeps against that instant instead of the current time.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: now must be RFC 3339: %v", domain.ErrInvalidInput, err))
			return
		}
		now = parsed
	}

	actor := actorFrom(r.Context())
	logger.Info("Manual lifecycle sweep requested", "actor", actor.UserID, "now", now)
	summary, err := h.sweeper.Sweep(r.Context(), now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type healthResponse struct {
	Status         string               `json:"status"`
	LastSweep      *domain.SweepSummary `json:"last_sweep,omitempty"`
	LastSweepError string               `json:"last_sweep_error,omitempty"`
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.sweeper != nil {
		summary, err := h.sweeper.LastSweep()
		resp.LastSweep = summary
		if err != nil {
			resp.LastSweepError = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
