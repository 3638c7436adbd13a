// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research drives research units through web search and synthesis
// into committed dossiers. Units run independently; a unit whose output
// cannot be parsed, or whose search tool is unavailable, still commits a
// dossier.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/course-engine/internal/doi"
	"github.com/pdiddy/course-engine/internal/llm"
	"github.com/pdiddy/course-engine/internal/stream"
	"github.com/pdiddy/course-engine/pkg/types"
)

const (
	defaultMaxSearches = 5
	defaultModel       = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 16000
)

// ErrToolUnavailable marks a failure caused by the search tool itself.
var ErrToolUnavailable = errors.New("web search tool unavailable")

var toolUnavailableMarkers = []string{
	"web_search",
	"web search",
	"server tool",
}

var unavailableMarkers = []string{
	"unavailable",
	"not available",
	"not enabled",
	"not supported",
	"not allowed",
	"disabled",
}

// IsToolUnavailable reports whether err says the search capability could
// not be used, as opposed to a general generation failure.
func IsToolUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrToolUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		msg = strings.ToLower(apiErr.Message)
	}
	return containsAny(msg, toolUnavailableMarkers) && containsAny(msg, unavailableMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Invoker performs one generation call with retry.
type Invoker interface {
	Invoke(ctx context.Context, req types.GenerationRequest, h stream.Handler) (string, error)
}

// Validator checks bibliographic identifiers.
type Validator interface {
	Validate(ctx context.Context, ids []string) map[string]bool
}

// Orchestrator runs research attempts against a registry.
type Orchestrator struct {
	Invoker   Invoker
	Validator Validator
	Registry  *Registry
	Config    types.ResearchConfig
	Logger    *zap.Logger

	// Now stamps committed dossiers. Nil uses time.Now.
	Now func() time.Time
}

// BatchSummary holds counts from a research-all run.
type BatchSummary struct {
	Researched int
	Degraded   int
	Fallback   int
	Skipped    int
	Failed     int
}

// Total returns the number of units considered.
func (s BatchSummary) Total() int {
	return s.Researched + s.Degraded + s.Fallback + s.Skipped + s.Failed
}

// HasFailures reports whether any unit failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Research runs one attempt for topic and returns the committed dossier.
// A tool-unavailable failure commits a degraded dossier and returns it with
// a nil error; any other generation failure is returned after recording it
// on the unit.
func (o *Orchestrator) Research(ctx context.Context, topic types.ResearchTopic) (types.Dossier, error) {
	logger := o.logger().With(zap.String("unit", topic.Key))

	attempt, err := o.Registry.begin(topic.Key)
	if err != nil {
		return types.Dossier{}, err
	}

	req, err := o.request(topic)
	if err != nil {
		o.Registry.settle(topic.Key, attempt, err.Error())
		return types.Dossier{}, err
	}

	update := func(fn func(types.ResearchUnit) types.ResearchUnit) {
		o.Registry.apply(topic.Key, attempt, fn)
	}
	handler := func(ev stream.Event) {
		switch e := ev.(type) {
		case stream.ReasoningDelta:
			update(withReasoning)
		case stream.ToolInvocationComplete:
			if q := searchQuery(e); q != "" {
				logger.Debug("search issued", zap.String("query", q))
				update(func(u types.ResearchUnit) types.ResearchUnit { return withQuery(u, q) })
			}
		case stream.ToolResult:
			if e.ErrorCode != "" {
				logger.Debug("search returned an error", zap.String("code", e.ErrorCode))
			}
			update(func(u types.ResearchUnit) types.ResearchUnit { return withResults(u, e.Items) })
		case stream.TextDelta:
			update(func(u types.ResearchUnit) types.ResearchUnit { return withText(u, e.Text) })
		}
	}

	text, err := o.Invoker.Invoke(ctx, req, handler)
	if err != nil {
		if IsToolUnavailable(err) {
			logger.Warn("search unavailable, committing degraded dossier", zap.Error(err))
			d := o.stamp(degradedDossier(topic.Key))
			o.commit(logger, topic.Key, attempt, d, err.Error())
			return d, nil
		}
		logger.Error("research failed", zap.Error(err))
		o.Registry.settle(topic.Key, attempt, err.Error())
		return types.Dossier{}, fmt.Errorf("researching %s: %w", topic.Key, err)
	}

	unit := o.Registry.current(topic.Key, attempt)

	d, perr := parseDossier(topic.Key, text)
	switch {
	case perr != nil:
		logger.Warn("dossier unparseable, using search results", zap.Error(perr), zap.Int("results", len(unit.ResultsCollected)))
		d = fallbackDossier(unit)
	case len(d.Sources) == 0 && len(unit.ResultsCollected) > 0:
		logger.Warn("dossier lists no sources, using search results", zap.Int("results", len(unit.ResultsCollected)))
		notes := d.SynthesisNotes
		d = fallbackDossier(unit)
		if notes != "" {
			d.SynthesisNotes = notes + "\n\n" + d.SynthesisNotes
		}
	}
	d.Queries = unit.QueriesIssued

	if ids := d.DOIs(); len(ids) > 0 && o.Validator != nil {
		update(withValidation)
		d = applyValidation(d, o.Validator.Validate(ctx, ids))
		logger.Info("identifiers checked",
			zap.Int("verified", d.Validation.VerifiedCount),
			zap.Int("stripped", d.Validation.StrippedCount))
	}

	d = o.stamp(d)
	o.commit(logger, topic.Key, attempt, d, "")
	return d, nil
}

// ResearchAll starts one attempt per topic that has no dossier and no
// attempt in flight, then waits for all of them to settle. One line per
// settled unit is written to w. Individual failures are counted, never
// returned.
func (o *Orchestrator) ResearchAll(ctx context.Context, topics []types.ResearchTopic, w io.Writer) BatchSummary {
	type settled struct {
		key     string
		dossier types.Dossier
		err     error
	}

	var summary BatchSummary
	var todo []types.ResearchTopic
	seen := make(map[string]bool)
	for _, t := range topics {
		if seen[t.Key] || !o.Registry.pending(t.Key) {
			summary.Skipped++
			continue
		}
		seen[t.Key] = true
		todo = append(todo, t)
	}

	ch := make(chan settled, len(todo))
	var wg sync.WaitGroup
	for _, t := range todo {
		wg.Add(1)
		go func(t types.ResearchTopic) {
			defer wg.Done()
			d, err := o.Research(ctx, t)
			ch <- settled{key: t.Key, dossier: d, err: err}
		}(t)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	for s := range ch {
		switch {
		case errors.Is(s.err, ErrAlreadyRunning):
			summary.Skipped++
		case s.err != nil:
			summary.Failed++
			fmt.Fprintf(w, "  failed %s: %v\n", s.key, s.err)
		case s.dossier.Degraded:
			summary.Degraded++
			fmt.Fprintf(w, "  degraded %s: search unavailable\n", s.key)
		case s.dossier.Fallback:
			summary.Fallback++
			fmt.Fprintf(w, "  fallback %s: %d raw results\n", s.key, len(s.dossier.Sources))
		default:
			summary.Researched++
			fmt.Fprintf(w, "  researched %s: %d sources\n", s.key, len(s.dossier.Sources))
		}
	}

	fmt.Fprintf(w, "Research complete: %d researched, %d degraded, %d fallback, %d skipped, %d failed\n",
		summary.Researched, summary.Degraded, summary.Fallback, summary.Skipped, summary.Failed)
	return summary
}

func (o *Orchestrator) request(topic types.ResearchTopic) (types.GenerationRequest, error) {
	prompt, err := renderPrompt(topic)
	if err != nil {
		return types.GenerationRequest{}, fmt.Errorf("rendering prompt: %w", err)
	}
	model := o.Config.Model
	if model == "" {
		model = defaultModel
	}
	maxSearches := o.Config.MaxSearches
	if maxSearches <= 0 {
		maxSearches = defaultMaxSearches
	}
	maxTokens := o.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return types.GenerationRequest{
		Model:     model,
		System:    systemPrompt,
		Turns:     []types.Turn{{Role: types.RoleUser, Content: prompt}},
		Reasoning: o.Config.Reasoning,
		Tools:     []types.ToolDeclaration{types.WebSearchTool(maxSearches)},
		MaxTokens: maxTokens,
	}, nil
}

func (o *Orchestrator) commit(logger *zap.Logger, key, attempt string, d types.Dossier, lastError string) {
	if !o.Registry.commit(key, attempt, d, lastError) {
		logger.Info("attempt superseded, dossier discarded")
	}
}

func (o *Orchestrator) stamp(d types.Dossier) types.Dossier {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	d.CommittedAt = now().UTC()
	return d
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// searchQuery returns the query of a completed web search invocation.
func searchQuery(e stream.ToolInvocationComplete) string {
	if e.Name != types.WebSearchToolName {
		return ""
	}
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(e.Input, &in); err != nil {
		return ""
	}
	return strings.TrimSpace(in.Query)
}

// applyValidation strips identifiers that failed to resolve. The source
// record stays; only its DOI is removed and it is marked unverified.
func applyValidation(d types.Dossier, results map[string]bool) types.Dossier {
	d = d.Clone()
	outcome := &types.ValidationOutcome{}
	for i, s := range d.Sources {
		if s.DOI == "" {
			continue
		}
		if results[s.DOI] {
			outcome.VerifiedCount++
			s.DOI = doi.Normalize(s.DOI)
			s.Verified = true
		} else {
			outcome.StrippedCount++
			s.DOI = ""
			s.Verified = false
		}
		d.Sources[i] = s
	}
	d.Validation = outcome
	return d
}
