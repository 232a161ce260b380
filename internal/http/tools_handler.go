package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hookrelay/hookrelay/pkg/crypto"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// ToolsHandler exposes developer utilities
type ToolsHandler struct {
	logger logger.Logger
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(logger logger.Logger) *ToolsHandler {
	return &ToolsHandler{logger: logger}
}

// RegisterRoutes registers the tools HTTP endpoints
func (h *ToolsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /tools/signature-generator", h.handleSignatureGenerator)
}

type signatureGeneratorRequest struct {
	SecretKey string                 `json:"secret_key"`
	Payload   map[string]interface{} `json:"payload"`
}

// handleSignatureGenerator computes the signature a caller must send for a
// given payload and secret. Useful when testing signed subscriptions by hand.
func (h *ToolsHandler) handleSignatureGenerator(w http.ResponseWriter, r *http.Request) {
	var req signatureGeneratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SecretKey == "" {
		WriteJSONError(w, "secret_key is required", http.StatusBadRequest)
		return
	}
	if req.Payload == nil {
		WriteJSONError(w, "payload is required", http.StatusBadRequest)
		return
	}

	body, err := json.Marshal(req.Payload)
	if err != nil {
		WriteJSONError(w, "Failed to serialize payload", http.StatusBadRequest)
		return
	}

	signature := "sha256=" + crypto.Sign(body, req.SecretKey)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"x_hub_signature_256": signature,
		"instructions":        "Send the compact JSON payload with the X-Hub-Signature-256 header set to this value.",
		"curl_example": fmt.Sprintf(
			"curl -X POST -H 'Content-Type: application/json' -H 'X-Hub-Signature-256: %s' -d '%s' <ingest_url>",
			signature, string(body),
		),
	})
}
