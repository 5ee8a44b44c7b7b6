package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/upload", h.HandleUpload).Methods("POST")
	router.HandleFunc("/data", h.HandleListData).Methods("GET")

	// the term may be empty so that /search/ reaches the handler and gets a 400.
	// HandleSearch unescapes it; the router must match on the encoded path.
	router.HandleFunc("/search/{searchTerm:[^/]*}", h.HandleSearch).Methods("GET")

	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
