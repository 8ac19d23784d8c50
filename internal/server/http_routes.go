package server

import (
	"context"
	"net/http"
	"strings"

	"cvforge/internal/keys"
	"cvforge/internal/observability"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) http.Handler {
	mux := http.NewServeMux()

	rateLimitHandler := s.rateLimitMiddleware(om)
	requestLimitHandler := s.requestSizeLimitMiddleware()
	annotate := observability.ObservabilityMiddleware(om)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return annotate(rateLimitHandler(s.authMiddleware(requestLimitHandler(h))))
	}

	mux.HandleFunc("GET /health", annotate(s.healthHandler))
	mux.HandleFunc("GET /stats", annotate(s.statsHandler))
	mux.HandleFunc("GET /models", protected(s.modelsHandler))
	mux.HandleFunc("POST /sanitize", protected(s.createSanitizeHandler(om)))
	mux.HandleFunc("POST /extract", protected(s.createExtractHandler(om)))
	mux.HandleFunc("POST /analyze", protected(s.createAnalyzeHandler(om)))
	mux.HandleFunc("POST /preview", protected(s.createPreviewHandler(om)))
	mux.HandleFunc("POST /export", protected(s.createExportHandler(om)))

	return requestIDMiddleware(mux)
}

// requestIDMiddleware assigns every request an id, reusing a client supplied
// X-Request-ID when it is a valid UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(observability.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			r.Header.Set(observability.RequestIDHeader, id)
		}
		w.Header().Set(observability.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := clientAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, r, "Missing API key", "X-API-Key header or Authorization Bearer token required", "", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key", keys.Mask(apiKey))
			writeErrorResponse(w, r, "Invalid API key", "Unauthorized access", "", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", getClientIP(r),
			"api_key", keys.Mask(apiKey))

		next(w, r)
	}
}

// clientAPIKey reads X-API-Key, falling back to a Bearer token.
func clientAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}
