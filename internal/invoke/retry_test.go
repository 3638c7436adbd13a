// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package invoke

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/course-engine/internal/llm"
	"github.com/pdiddy/course-engine/internal/stream"
	"github.com/pdiddy/course-engine/pkg/types"
)

// scriptedGenerator returns errs[i] on call i, then text.
type scriptedGenerator struct {
	errs  []error
	text  string
	calls int
}

func (g *scriptedGenerator) Stream(_ context.Context, _ types.GenerationRequest, h stream.Handler) (string, error) {
	g.calls++
	if g.calls <= len(g.errs) {
		return "", g.errs[g.calls-1]
	}
	if h != nil {
		h(stream.Done{FullText: g.text})
	}
	return g.text, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func rateLimited() error {
	return &llm.APIError{StatusCode: http.StatusTooManyRequests, Type: "rate_limit_error", Message: "slow down"}
}

func TestInvoke_ImmediateSuccess(t *testing.T) {
	gen := &scriptedGenerator{text: "done"}
	rec := &sleepRecorder{}
	inv := &Invoker{Generator: gen, Sleep: rec.sleep}

	text, err := inv.Invoke(t.Context(), types.GenerationRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, rec.delays)
}

func TestInvoke_RetriesThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{rateLimited(), rateLimited(), rateLimited()}, text: "finally"}
	rec := &sleepRecorder{}
	inv := &Invoker{Generator: gen, Sleep: rec.sleep}

	text, err := inv.Invoke(t.Context(), types.GenerationRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "finally", text)
	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond, 4500 * time.Millisecond}, rec.delays)
}

func TestInvoke_ExhaustsRetries(t *testing.T) {
	errs := []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}
	gen := &scriptedGenerator{errs: errs, text: "unreachable"}
	rec := &sleepRecorder{}
	inv := &Invoker{Generator: gen, Sleep: rec.sleep}

	_, err := inv.Invoke(t.Context(), types.GenerationRequest{}, nil)

	var gf *GenerationFailure
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, 4, gf.Attempts)
	assert.ErrorIs(t, err, errs[3])
	assert.Equal(t, 4, gen.calls)
	assert.Len(t, rec.delays, 3)
}

func TestInvoke_CustomMaxRetries(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{rateLimited(), rateLimited()}, text: "ok"}
	rec := &sleepRecorder{}
	inv := &Invoker{Generator: gen, MaxRetries: 1, Sleep: rec.sleep}

	_, err := inv.Invoke(t.Context(), types.GenerationRequest{}, nil)
	var gf *GenerationFailure
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, 2, gf.Attempts)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, rec.delays)
}

func TestInvoke_NonRateLimitPassesThrough(t *testing.T) {
	boom := &llm.APIError{StatusCode: http.StatusBadRequest, Type: "invalid_request_error", Message: "bad model"}
	gen := &scriptedGenerator{errs: []error{boom}, text: "unreachable"}
	rec := &sleepRecorder{}
	inv := &Invoker{Generator: gen, Sleep: rec.sleep}

	_, err := inv.Invoke(t.Context(), types.GenerationRequest{}, nil)
	assert.Same(t, boom, err)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, rec.delays)
}

func TestInvoke_ContextCancelledDuringBackoff(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	gen := &scriptedGenerator{errs: []error{rateLimited()}, text: "unreachable"}
	inv := &Invoker{Generator: gen}

	_, err := inv.Invoke(ctx, types.GenerationRequest{}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, gen.calls)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", &llm.APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"stream rate limit", &stream.ProtocolError{Type: "rate_limit_error", Message: "x"}, true},
		{"wrapped 429", errors.Join(errors.New("outer"), &llm.APIError{StatusCode: 429}), true},
		{"textual", errors.New("upstream said: Rate limit reached for requests"), true},
		{"too many requests", errors.New("429 Too Many Requests"), true},
		{"overloaded", &stream.ProtocolError{Type: "overloaded_error", Message: "Overloaded"}, false},
		{"server error", &llm.APIError{StatusCode: 500, Message: "internal"}, false},
		{"plain", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}
