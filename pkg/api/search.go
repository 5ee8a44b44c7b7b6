package api

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/sheetstore/pkg/domain"
	"github.com/adfharrison1/sheetstore/pkg/search"
)

// HandleSearch handles GET /search/{searchTerm}. The result is a bare array.
// The term arrives still escaped so that an encoded slash stays inside it.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term, err := url.PathUnescape(mux.Vars(r)["searchTerm"])
	if err != nil {
		log.Printf("WARN: Invalid search term: %v", err)
		WriteJSONError(w, http.StatusBadRequest, MsgSearchTermReq)
		return
	}

	log.Printf("INFO: handleSearch called for term '%s'", term)

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results, err := search.Search(ctx, h.store, term)
	if err != nil {
		if errors.Is(err, domain.ErrMissingTerm) {
			WriteJSONError(w, http.StatusBadRequest, MsgSearchTermReq)
			return
		}
		writeInternalError(w, "Search", err)
		return
	}

	log.Printf("INFO: Search for '%s' returned %d documents", term, len(results))
	writeJSON(w, http.StatusOK, results)
}
