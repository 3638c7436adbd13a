// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit detects the "correct answer is the longest option" tell in
// generated multiple-choice items and asks the model to lengthen selected
// distractors until the batch no longer exceeds the chance baseline.
package audit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/course-engine/internal/extract"
	"github.com/pdiddy/course-engine/internal/stream"
	"github.com/pdiddy/course-engine/pkg/types"
)

const (
	// chanceBaseline is the fraction of 4-option items expected to have the
	// longest correct answer when option lengths are uniformly random.
	chanceBaseline = 0.25

	defaultMinItems  = 5
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096
)

// Invoker performs one generation call with retry.
type Invoker interface {
	Invoke(ctx context.Context, req types.GenerationRequest, h stream.Handler) (string, error)
}

// Auditor rewrites distractors in batches that show the length tell.
type Auditor struct {
	Invoker Invoker
	Config  types.AuditConfig
	Logger  *zap.Logger

	// Rand picks flagged items to rewrite. Nil uses the global source.
	Rand *rand.Rand
}

// Analyze computes the flagged items and excess for a batch. An item is
// flagged when it has at least one distractor and its correct answer is
// strictly longer, in characters, than every distractor.
func Analyze(items []types.QuizItem) types.AuditFinding {
	f := types.AuditFinding{Total: len(items)}
	for i, q := range items {
		if flagged(q) {
			f.FlaggedIndices = append(f.FlaggedIndices, i)
		}
	}
	f.Excess = len(f.FlaggedIndices) - int(math.Round(float64(len(items))*chanceBaseline))
	return f
}

func flagged(q types.QuizItem) bool {
	if len(q.Distractors) == 0 {
		return false
	}
	n := utf8.RuneCountInString(q.CorrectAnswer)
	for _, d := range q.Distractors {
		if utf8.RuneCountInString(d) >= n {
			return false
		}
	}
	return true
}

// Audit returns the batch with selected distractors rewritten, and a report
// of what was done. The correct answers, ids, and item order are never
// changed. On any failure the original batch is returned unchanged.
func (a *Auditor) Audit(ctx context.Context, items []types.QuizItem) ([]types.QuizItem, types.AuditReport) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cloneItems(items)

	minItems := a.Config.MinItems
	if minItems <= 0 {
		minItems = defaultMinItems
	}
	report := types.AuditReport{}
	if len(items) < minItems {
		report.Skipped = fmt.Sprintf("batch of %d is below the %d-item minimum", len(items), minItems)
		return out, report
	}

	report.Finding = Analyze(items)
	if report.Finding.Excess <= 0 {
		logger.Debug("no answer-length bias",
			zap.Int("flagged", len(report.Finding.FlaggedIndices)),
			zap.Int("total", len(items)))
		return out, report
	}

	report.Selected = a.pick(report.Finding.FlaggedIndices, report.Finding.Excess)
	req, ids, err := a.request(items, report.Selected)
	if err != nil {
		report.FallbackReason = err.Error()
		return out, report
	}

	logger.Info("rewriting distractors",
		zap.Int("flagged", len(report.Finding.FlaggedIndices)),
		zap.Int("excess", report.Finding.Excess),
		zap.Ints("selected", report.Selected))

	text, err := a.Invoker.Invoke(ctx, req, nil)
	if err != nil {
		logger.Warn("audit rewrite failed, keeping original batch", zap.Error(err))
		report.FallbackReason = fmt.Sprintf("rewrite call: %v", err)
		return out, report
	}

	var rewrites []rewriteItem
	if err := extract.JSON(text, &rewrites); err != nil {
		logger.Warn("audit response unparseable, keeping original batch", zap.Error(err))
		report.FallbackReason = fmt.Sprintf("parsing rewrite: %v", err)
		return out, report
	}

	report.Rewritten = apply(out, rewrites, ids)
	return out, report
}

// pick draws n distinct indices from flagged, returned in ascending order.
func (a *Auditor) pick(flagged []int, n int) []int {
	n = min(n, len(flagged))
	var perm []int
	if a.Rand != nil {
		perm = a.Rand.Perm(len(flagged))
	} else {
		perm = rand.Perm(len(flagged))
	}
	picked := make([]int, 0, n)
	for _, p := range perm[:n] {
		picked = append(picked, flagged[p])
	}
	slices.Sort(picked)
	return picked
}

// apply replaces distractors that the rewrite changed. Entries for ids
// that were not requested, positions beyond the original list, blank
// strings, and strings equal to the correct answer are ignored.
func apply(items []types.QuizItem, rewrites []rewriteItem, ids map[string]int) int {
	changed := 0
	for _, rw := range rewrites {
		idx, ok := ids[rw.ID]
		if !ok {
			continue
		}
		q := &items[idx]
		for pos, d := range rw.Distractors {
			if pos >= len(q.Distractors) {
				break
			}
			d = strings.TrimSpace(d)
			if d == "" || d == q.Distractors[pos] || d == q.CorrectAnswer {
				continue
			}
			q.Distractors[pos] = d
			changed++
		}
	}
	return changed
}

func cloneItems(items []types.QuizItem) []types.QuizItem {
	out := make([]types.QuizItem, len(items))
	for i, q := range items {
		out[i] = q.Clone()
	}
	return out
}
