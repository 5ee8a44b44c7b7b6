package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Messages returned to clients
const (
	MsgNoFile         = "No file provided"
	MsgSearchTermReq  = "Search term is required"
	MsgInternalError  = "Internal server error"
	MsgStoreUnhealthy = "Store unavailable"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeInternalError logs the cause and returns the generic 500 body
func writeInternalError(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s failed: %v", op, err)
	WriteJSONError(w, http.StatusInternalServerError, MsgInternalError)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ERROR: Encoding response failed: %v", err)
	}
}
