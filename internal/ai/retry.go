package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"cvforge/internal/errors"

	"google.golang.org/api/googleapi"
)

// maxBackoff caps the delay between two attempts.
const maxBackoff = 30 * time.Second

// StatusError is a non-2xx answer from a chat-completions endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: status %d", e.StatusCode)
}

// retrier runs an operation up to maxRetries+1 times with exponential
// backoff and jitter.
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *errors.Logger
}

func newRetrier(maxRetries int, logger *errors.Logger) retrier {
	return retrier{maxRetries: max(0, maxRetries), baseDelay: time.Second, logger: logger}
}

func (r retrier) backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay
	var jitter time.Duration
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if jitterBig, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(jitterBig.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

// withRetry executes fn, retrying while isRetryableError holds.
func withRetry[T any](ctx context.Context, r retrier, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", r.maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			r.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	r.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", r.maxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, r.maxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
