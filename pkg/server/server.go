package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/sheetstore/pkg/api"
	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// Server holds references to the store, router, etc.
type Server struct {
	router *mux.Router
	store  domain.DocumentStore
}

// NewServer creates a new instance of Server around an already connected store
func NewServer(store domain.DocumentStore, options ...api.HandlerOption) *Server {
	s := &Server{
		router: mux.NewRouter(),
		store:  store,
	}

	// match on the escaped path so /search/a%2Fb keeps its slash in the term
	s.router.UseEncodedPath()

	handler := api.NewHandler(store, options...)
	handler.RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return s
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLoggerMiddleware logs the method, URL path, status and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s -> %d took %s", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}
