package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/adfharrison1/sheetstore/pkg/domain"
	"github.com/adfharrison1/sheetstore/pkg/sheet"
)

// UploadFormField is the multipart field carrying the workbook
const UploadFormField = "file"

// DataResponse wraps documents returned by upload and listing
type DataResponse struct {
	Data []domain.Document `json:"data"`
}

// HandleUpload handles POST requests carrying a workbook. The rows of its first
// sheet are inserted as one batch and echoed back.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	log.Printf("INFO: handleUpload called")

	file, header, err := r.FormFile(UploadFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			log.Printf("WARN: Upload rejected: %v", domain.ErrMissingFile)
			WriteJSONError(w, http.StatusBadRequest, MsgNoFile)
			return
		}
		writeInternalError(w, "Reading upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeInternalError(w, "Reading upload", err)
		return
	}

	docs, err := sheet.DecodeBytes(data)
	if err != nil {
		writeInternalError(w, "Decoding workbook "+header.Filename, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.store.InsertMany(ctx, docs); err != nil {
		writeInternalError(w, "Inserting rows", err)
		return
	}
	log.Printf("INFO: Inserted %d rows from %s", len(docs), header.Filename)

	if h.archiver != nil {
		key, err := h.archiver.Archive(ctx, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			// Don't fail the request if archiving fails, just log the warning
			log.Printf("WARN: Failed to archive %s: %v", header.Filename, err)
		} else {
			log.Printf("INFO: Archived %s as %s", header.Filename, key)
		}
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: docs})
}
