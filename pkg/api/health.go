package api

import (
	"log"
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Printf("WARN: Health check failed: %v", err)
		WriteJSONError(w, http.StatusServiceUnavailable, MsgStoreUnhealthy)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "sheetstore is running",
	})
}
