package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/internal/service"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// SubscriptionHandler handles HTTP requests for subscription management
type SubscriptionHandler struct {
	service *service.SubscriptionService
	logger  logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(svc *service.SubscriptionService, logger logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes registers the subscription HTTP endpoints
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /subscriptions", h.handleCreate)
	mux.HandleFunc("GET /subscriptions", h.handleList)
	mux.HandleFunc("GET /subscriptions/{id}", h.handleGet)
	mux.HandleFunc("PATCH /subscriptions/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /subscriptions/{id}", h.handleDelete)
}

func (h *SubscriptionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to create subscription")
		WriteJSONError(w, "Failed to create subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "skip", 0)

	subs, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to list subscriptions")
		WriteJSONError(w, "Failed to list subscriptions", http.StatusInternalServerError)
		return
	}

	if subs == nil {
		subs = []*domain.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			WriteJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.WithField("error", err.Error()).Error("Failed to get subscription")
		WriteJSONError(w, "Failed to get subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			WriteJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.WithField("error", err.Error()).Error("Failed to update subscription")
		WriteJSONError(w, "Failed to update subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			WriteJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.WithField("error", err.Error()).Error("Failed to delete subscription")
		WriteJSONError(w, "Failed to delete subscription", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
