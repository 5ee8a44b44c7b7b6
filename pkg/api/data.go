package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// HandleListData handles GET requests returning every stored document
func (h *Handler) HandleListData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	docs, err := h.store.FindAll(ctx)
	if err != nil {
		writeInternalError(w, "Listing documents", err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}

	log.Printf("INFO: Found %d documents", len(docs))
	writeJSON(w, http.StatusOK, DataResponse{Data: docs})
}
