package api

import (
	"context"
	"net/http"
	"time"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Handler provides HTTP handlers for the sheetstore API
type Handler struct {
	store          domain.DocumentStore
	archiver       domain.Archiver
	requestTimeout time.Duration
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithArchiver keeps a copy of every uploaded workbook
func WithArchiver(archiver domain.Archiver) HandlerOption {
	return func(h *Handler) {
		h.archiver = archiver
	}
}

// WithRequestTimeout bounds the store work of each request; zero disables it
func WithRequestTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.requestTimeout = timeout
	}
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(store domain.DocumentStore, options ...HandlerOption) *Handler {
	h := &Handler{
		store: store,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// requestContext scopes store access to the request
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.requestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.requestTimeout)
	}
	return context.WithCancel(r.Context())
}
