package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/hookrelay/hookrelay/internal/domain"
	"github.com/hookrelay/hookrelay/internal/service"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// Inbound request headers read by the ingest endpoint
const (
	headerSignature = "X-Hub-Signature-256"
	headerEventType = "X-Webhook-Event"
)

// IngestHandler handles inbound webhook payloads
type IngestHandler struct {
	service *service.IngestService
	logger  logger.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(svc *service.IngestService, logger logger.Logger) *IngestHandler {
	return &IngestHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes registers the ingest HTTP endpoint
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest/{subscription_id}", h.handleIngest)
}

func (h *IngestHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.PathValue("subscription_id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to read ingest request body")
		WriteJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	deliveryID, err := h.service.Ingest(
		r.Context(),
		subscriptionID,
		body,
		r.Header.Get(headerSignature),
		r.Header.Get(headerEventType),
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubscriptionNotFound):
			WriteJSONError(w, "Subscription not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrSignatureRequired):
			WriteJSONError(w, "Signature required", http.StatusUnauthorized)
		case errors.Is(err, domain.ErrInvalidSignature):
			WriteJSONError(w, "Invalid signature", http.StatusUnauthorized)
		case errors.Is(err, domain.ErrInvalidPayload):
			WriteJSONError(w, "Payload must be a JSON object", http.StatusBadRequest)
		default:
			h.logger.WithFields(map[string]interface{}{
				"subscription_id": subscriptionID,
				"error":           err.Error(),
			}).Error("Failed to ingest webhook")
			WriteJSONError(w, "Failed to queue webhook", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":      "accepted",
		"delivery_id": deliveryID,
		"message":     "Webhook queued for delivery",
	})
}
