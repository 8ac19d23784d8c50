package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"cvforge/internal/errors"
	"cvforge/internal/types"
)

const healthCheckTimeout = 5 * time.Second

// healthHandler reports service status, the AI provider and its circuit breaker
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "cvforge",
		"version": s.Version,
	}

	healthy := true
	if s.deps.Service != nil {
		info := s.deps.Service.GetModelInfo(ctx)
		response["provider"] = s.deps.Service.ProviderName()
		response["ai_model"] = info
		breaker := s.deps.Service.CircuitBreakerStats()
		response["circuit_breaker"] = breaker
		healthy = !breakerOpen(breaker)
	}

	if s.deps.Keys != nil {
		response["keys"] = map[string]any{
			"any_configured": s.deps.Keys.HasAny(),
			"available":      s.deps.Keys.Available(),
		}
	}

	if s.deps.VaultWatcher != nil {
		status := s.deps.VaultWatcher.Status()
		response["vault_watcher"] = status
		if _, failed := status["last_error"]; failed {
			response["vault_degraded"] = true
		}
	}

	// The rule engine keeps analysis available, so an open breaker only
	// degrades the service.
	if !healthy {
		response["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, response)
}

// breakerOpen reports an open breaker in either the single-breaker or the
// per-operation stats layout.
func breakerOpen(stats map[string]any) bool {
	if state, ok := stats["state"].(string); ok && state == "open" {
		return true
	}
	if overall, ok := stats["overall_healthy"].(bool); ok && !overall {
		return true
	}
	return false
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "cvforge",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_upload_size_bytes":  s.AppConfig.Upload.MaxFileSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// modelsHandler lists model families that have keys. Keys are not returned.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	response := ModelsResponse{
		RequestID:  requestID(r),
		Available:  []types.ModelID{},
		Configured: []types.ModelID{},
		Known:      types.KnownModels,
	}
	if s.deps.Keys != nil {
		response.Available = s.deps.Keys.Available()
		response.Configured = s.deps.Keys.Configured()
	}
	if s.deps.Service != nil {
		response.Provider = s.deps.Service.ProviderName()
	}
	writeJSON(w, http.StatusOK, response)
}

// normalizer is implemented by requests that canonicalize fields before
// validation.
type normalizer interface {
	normalize()
}

// parseJSONRequest decodes the request body into v and validates it.
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", err)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON: "+err.Error(), err)
	}
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}

	return validateRequest(v)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, title, message, code string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:     title,
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
	})
}

// writeAppError maps err to a status code and writes it.
func writeAppError(w http.ResponseWriter, r *http.Request, title string, err error) {
	status, code := statusFor(err)
	writeErrorResponse(w, r, title, errorMessage(err), code, status)
}

func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError, ""
	}

	switch appErr.Code {
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge, appErr.Code
	case errors.ErrCodeUnsupportedFileType:
		return http.StatusUnsupportedMediaType, appErr.Code
	case errors.ErrCodeFileNotFound:
		return http.StatusNotFound, appErr.Code
	case errors.ErrCodeAITimeout, errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout, appErr.Code
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeIO:
		return http.StatusBadRequest, appErr.Code
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway, appErr.Code
	default:
		return http.StatusInternalServerError, appErr.Code
	}
}
