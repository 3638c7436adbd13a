// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package invoke wraps one generation call with bounded retry on
// rate-limit failures.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/course-engine/internal/llm"
	"github.com/pdiddy/course-engine/internal/stream"
	"github.com/pdiddy/course-engine/pkg/types"
)

// RetryBaseDelay is the per-attempt backoff step: the wait after attempt n
// is n × RetryBaseDelay (1.5 s, 3 s, 4.5 s).
var RetryBaseDelay = 1500 * time.Millisecond

const defaultMaxRetries = 3

// Generator performs one streaming generation call.
type Generator interface {
	Stream(ctx context.Context, req types.GenerationRequest, h stream.Handler) (string, error)
}

// GenerationFailure is returned when every allowed attempt was rate limited.
type GenerationFailure struct {
	Attempts int
	Err      error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// Invoker retries rate-limited generation calls. The zero MaxRetries uses
// the default of 3 retries (4 attempts in total).
type Invoker struct {
	Generator  Generator
	MaxRetries int
	Logger     *zap.Logger

	// Sleep waits between attempts. Tests substitute a recorder; nil uses a
	// context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Invoke performs the call and returns the full generated text. A
// rate-limited failure is retried while attempts remain; any other failure
// is returned unchanged without retry. Events of a failed attempt have
// already been delivered to h, so h may see a prefix repeated.
func (i *Invoker) Invoke(ctx context.Context, req types.GenerationRequest, h stream.Handler) (string, error) {
	maxRetries := i.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	logger := i.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := i.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		text, err := i.Generator.Stream(ctx, req, h)
		if err == nil {
			return text, nil
		}
		if !IsRateLimited(err) {
			return "", err
		}
		if attempt > maxRetries {
			logger.Warn("rate limit retries exhausted", zap.Int("attempts", attempt), zap.Error(err))
			return "", &GenerationFailure{Attempts: attempt, Err: err}
		}

		backoff := time.Duration(attempt) * RetryBaseDelay
		logger.Info("rate limited, retrying",
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		if err := sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
}

// IsRateLimited reports whether err signals a rate limit: an HTTP 429, a
// rate_limit_error reported inside the stream, or an error text that says so.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var pe *stream.ProtocolError
	if errors.As(err, &pe) && pe.Type == "rate_limit_error" {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
