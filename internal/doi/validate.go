// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package doi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// resolverBase is the handle API endpoint. Declared as a var so tests can
// substitute an httptest server.
var resolverBase = "https://doi.org/api/handles/"

// resolvedCode is the handle API responseCode for "handle found".
const resolvedCode = 1

const (
	defaultConcurrency = 8
	defaultTimeout     = 15 * time.Second
)

// handleResponse captures the field we need from a handle API record.
type handleResponse struct {
	ResponseCode int `json:"responseCode"`
}

// Validator checks identifiers against the resolution service.
type Validator struct {
	Client      *http.Client
	BaseURL     string
	UserAgent   string
	Concurrency int
	Logger      *zap.Logger
}

// NewValidator returns a Validator with a bounded-timeout client.
func NewValidator(baseURL, userAgent string, timeout time.Duration, concurrency int, logger *zap.Logger) *Validator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Validator{
		Client:      &http.Client{Timeout: timeout},
		BaseURL:     baseURL,
		UserAgent:   userAgent,
		Concurrency: concurrency,
		Logger:      logger,
	}
}

// Validate returns, for every input string, whether its normalized form
// resolves. Identifiers sharing a normalized form are checked once; checks
// run in parallel and all settle before Validate returns. Network failures,
// throttling, and server errors count as valid; only an explicit "not found"
// marks an identifier invalid.
func (v *Validator) Validate(ctx context.Context, ids []string) map[string]bool {
	unique := make(map[string]struct{})
	for _, id := range ids {
		if n := Normalize(id); n != "" {
			unique[n] = struct{}{}
		}
	}

	limit := v.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var (
		mu       sync.Mutex
		resolved = make(map[string]bool, len(unique))
		g        errgroup.Group
	)
	g.SetLimit(limit)
	for n := range unique {
		g.Go(func() error {
			ok := v.check(ctx, n)
			mu.Lock()
			resolved[n] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = resolved[Normalize(id)]
	}
	return out
}

// Stale returns the inputs whose check in results came back false.
func Stale(results map[string]bool) []string {
	var out []string
	for id, ok := range results {
		if !ok {
			out = append(out, id)
		}
	}
	return out
}

func (v *Validator) check(ctx context.Context, normalized string) bool {
	logger := v.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ok, err := v.resolve(ctx, normalized)
	if err != nil {
		logger.Debug("identifier check inconclusive, keeping", zap.String("doi", normalized), zap.Error(err))
		return true
	}
	if !ok {
		logger.Info("identifier does not resolve", zap.String("doi", normalized))
	}
	return ok
}

// resolve reports whether the handle API knows normalized. A non-nil error
// means the answer is unknown.
func (v *Validator) resolve(ctx context.Context, normalized string) (bool, error) {
	base := v.BaseURL
	if base == "" {
		base = resolverBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	segments := strings.Split(normalized, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+strings.Join(segments, "/"), nil)
	if err != nil {
		return false, fmt.Errorf("creating handle request: %w", err)
	}
	if v.UserAgent != "" {
		req.Header.Set("User-Agent", v.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("handle request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return false, fmt.Errorf("handle API returned HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, nil
	}

	var hr handleResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return false, nil
	}
	return hr.ResponseCode == resolvedCode, nil
}
