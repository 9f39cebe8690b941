package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pestwatch/internal/engine"
	"pestwatch/internal/types"
)

// SubscriptionService is the facade surface the handlers consume; satisfied
// by *engine.Service.
type SubscriptionService interface {
	Subscribe(ctx context.Context, params engine.SubscribeParams) (types.AlertSubscription, error)
	Unsubscribe(ctx context.Context, subscriberID string) (bool, error)
	ForceEvaluate(ctx context.Context, lat, lon float64, subscriberID string) (types.RiskAssessment, error)
}

// Handler holds the HTTP handlers for the engine API.
type Handler struct {
	service SubscriptionService
	logger  *slog.Logger
}

// NewHandler creates the handler set.
func NewHandler(service SubscriptionService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/subscriptions", h.Subscribe)
	r.Delete("/v1/subscriptions/{subscriberID}", h.Unsubscribe)
	r.Post("/v1/evaluate", h.Evaluate)
}

// subscribeRequest is the POST /v1/subscriptions payload.
type subscribeRequest struct {
	SubscriberID string  `json:"subscriber_id"`
	Contact      string  `json:"contact"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	MinSeverity  string  `json:"min_severity"`
}

// Subscribe handles POST /v1/subscriptions. Upserts: repeating the call
// updates the existing subscription.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sub, err := h.service.Subscribe(r.Context(), engine.SubscribeParams{
		SubscriberID: req.SubscriberID,
		Contact:      req.Contact,
		Lat:          req.Lat,
		Lon:          req.Lon,
		MinSeverity:  req.MinSeverity,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// unsubscribeResponse reports whether an active subscription existed.
type unsubscribeResponse struct {
	SubscriberID string `json:"subscriber_id"`
	Existed      bool   `json:"existed"`
}

// Unsubscribe handles DELETE /v1/subscriptions/{subscriberID}. Idempotent:
// deactivating an already-inactive subscription returns 200 with
// existed=false.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "subscriberID")

	existed, err := h.service.Unsubscribe(r.Context(), subscriberID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unsubscribeResponse{
		SubscriberID: subscriberID,
		Existed:      existed,
	})
}

// evaluateRequest is the POST /v1/evaluate payload. SubscriberID is optional
// and only feeds the pest-history lookup.
type evaluateRequest struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	SubscriberID string  `json:"subscriber_id"`
}

// Evaluate handles POST /v1/evaluate: one synchronous pipeline run, returning
// the assessment without dispatching any alert.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	assessment, err := h.service.ForceEvaluate(r.Context(), req.Lat, req.Lon, req.SubscriberID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}
