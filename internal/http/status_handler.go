package http

import (
	"errors"
	"net/http"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/internal/service"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

const (
	defaultDeliveryLimit = 20
	maxDeliveryLimit     = 100
)

// StatusHandler handles HTTP requests for delivery status and analytics
type StatusHandler struct {
	service *service.StatusService
	logger  logger.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(svc *service.StatusService, logger logger.Logger) *StatusHandler {
	return &StatusHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes registers the status HTTP endpoints
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /status/deliveries/{delivery_id}", h.handleDeliveryStatus)
	mux.HandleFunc("GET /status/subscriptions/{subscription_id}/deliveries", h.handleSubscriptionDeliveries)
}

func (h *StatusHandler) handleDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("delivery_id")

	status, err := h.service.GetDeliveryStatus(r.Context(), deliveryID)
	if err != nil {
		if errors.Is(err, domain.ErrDeliveryNotFound) {
			WriteJSONError(w, "Delivery not found", http.StatusNotFound)
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"delivery_id": deliveryID,
			"error":       err.Error(),
		}).Error("Failed to get delivery status")
		WriteJSONError(w, "Failed to get delivery status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) handleSubscriptionDeliveries(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.PathValue("subscription_id")

	limit := queryInt(r, "limit", defaultDeliveryLimit)
	if limit <= 0 {
		limit = defaultDeliveryLimit
	}
	if limit > maxDeliveryLimit {
		limit = maxDeliveryLimit
	}

	stats, err := h.service.GetSubscriptionDeliveries(r.Context(), subscriptionID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			WriteJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"error":           err.Error(),
		}).Error("Failed to get subscription deliveries")
		WriteJSONError(w, "Failed to get subscription deliveries", http.StatusInternalServerError)
		return
	}

	if stats.RecentLogs == nil {
		stats.RecentLogs = []*domain.WebhookLog{}
	}
	writeJSON(w, http.StatusOK, stats)
}
