package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kris-hansen/versecraft/utils/config"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries  int           // Maximum number of retry attempts after the first call
	InitialWait time.Duration // Initial wait time before first retry
	MaxWait     time.Duration // Maximum wait time between retries
	Factor      float64       // Exponential backoff factor
}

// DefaultRetryConfig provides the defaults used when nothing is configured
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 1 * time.Second,
	MaxWait:     30 * time.Second,
	Factor:      2.0,
}

// FromSettings builds a RetryConfig from loaded configuration, keeping the
// default factor and filling zero durations from the defaults
func FromSettings(s config.RetrySettings) RetryConfig {
	rc := DefaultRetryConfig
	rc.MaxRetries = s.MaxRetries
	if s.InitialWait > 0 {
		rc.InitialWait = s.InitialWait
	}
	if s.MaxWait > 0 {
		rc.MaxWait = s.MaxWait
	}
	return rc
}

// WithRetry executes operation, retrying while shouldRetry accepts the error.
// Non-retryable errors and context cancellation return immediately.
func WithRetry[T any](ctx context.Context, operation func(context.Context) (T, error), shouldRetry func(error) bool, cfg RetryConfig) (T, error) {
	var zero T
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := operation(ctx)
		if err == nil || !shouldRetry(err) {
			return result, err
		}

		if attempt >= cfg.MaxRetries {
			if cfg.MaxRetries == 0 {
				return zero, err
			}
			return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if hinted := extractRetryTime(err.Error()); hinted > 0 {
			retryWait = hinted
		}

		config.Logger().Warnf("Retryable error: %v. Retrying in %v (attempt %d/%d)",
			err, retryWait, attempt+1, cfg.MaxRetries)

		timer := time.NewTimer(retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}

// extractRetryTime attempts to extract a retry time from an error message
// Returns 0 if no retry time could be extracted
func extractRetryTime(errMsg string) time.Duration {
	// Look for patterns like "retry in 18s" or "retry after 30 seconds"
	retryPatterns := []string{
		"retry in ",
		"retry after ",
		"try again in ",
		"try again after ",
	}

	lower := strings.ToLower(errMsg)
	for _, pattern := range retryPatterns {
		if idx := strings.Index(lower, pattern); idx >= 0 {
			timeStr := lower[idx+len(pattern):]

			var seconds int
			if _, err := fmt.Sscanf(timeStr, "%ds", &seconds); err == nil {
				return time.Duration(seconds) * time.Second
			}
			if _, err := fmt.Sscanf(timeStr, "%d seconds", &seconds); err == nil {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return 0
}
