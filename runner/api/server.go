package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/types"
)

// HistoryLoader is the read side of the history store
type HistoryLoader interface {
	Load() (*types.History, error)
}

// Server provides read-only HTTP endpoints over the benchmark history
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() string
}

// server implements the API server
type server struct {
	addr       string
	store      HistoryLoader
	log        logrus.FieldLogger
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a new API server instance
func NewServer(addr string, store HistoryLoader, log logrus.FieldLogger) Server {
	return &server{
		addr:  addr,
		store: store,
		log:   log.WithField("component", "api-server"),
	}
}

// Start binds the listen address and serves in the background
func (s *server) Start(ctx context.Context) error {
	s.log.Info("Starting API server")

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.setupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		s.log.WithField("addr", listener.Addr().String()).Info("API server listening")
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP API server
func (s *server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Error("Failed to shutdown API server gracefully")
		return err
	}

	s.log.Info("API server stopped")
	return nil
}

// Addr returns the bound address once started, the configured one before
func (s *server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// setupRoutes configures all HTTP routes and middleware
func (s *server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.enableCORS)
	router.Use(s.loggingMiddleware)
	router.Use(s.errorHandlingMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/history", s.handleHistory).Methods("GET", "OPTIONS")
	api.HandleFunc("/runs/latest", s.handleLatestRun).Methods("GET", "OPTIONS")
	api.HandleFunc("/analysis", s.handleAnalysis).Methods("GET", "OPTIONS")
	api.HandleFunc("/trends/{name:.+}", s.handleTrend).Methods("GET", "OPTIONS")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorResponse(w, http.StatusNotFound, "Not found")
	})

	return router
}

// enableCORS adds CORS headers to responses
func (s *server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapper.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Debug("HTTP request processed")
	})
}

// errorHandlingMiddleware turns handler panics into 500 responses
func (s *server) errorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithField("error", err).Error("Panic in HTTP handler")
				s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status codes
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// writeJSONResponse writes a JSON response with the given status code
func (s *server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response with the given status code and message
func (s *server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	})
}
