// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "slices"

// QuizItem is one multiple-choice question with its correct answer and
// ordered distractors.
type QuizItem struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correct_answer"`
	Distractors   []string `json:"distractors" yaml:"distractors"`
}

// Clone returns a copy that shares no slices with q.
func (q QuizItem) Clone() QuizItem {
	q.Distractors = slices.Clone(q.Distractors)
	return q
}

// AuditFinding is the per-batch result of the longest-answer scan.
type AuditFinding struct {
	Total int `json:"total" yaml:"total"`

	// FlaggedIndices lists items whose correct answer is strictly longer
	// than every distractor.
	FlaggedIndices []int `json:"flagged_indices" yaml:"flagged_indices"`

	// Excess is the flagged count beyond the chance-expected baseline.
	Excess int `json:"excess" yaml:"excess"`
}

// AuditReport describes what an audit did to a batch.
type AuditReport struct {
	Finding AuditFinding `json:"finding" yaml:"finding"`

	// Selected lists the flagged indices sent for rewriting.
	Selected []int `json:"selected,omitempty" yaml:"selected,omitempty"`

	// Rewritten counts distractor strings replaced across the batch.
	Rewritten int `json:"rewritten" yaml:"rewritten"`

	// Skipped explains why no audit ran (e.g. sample too small).
	Skipped string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// FallbackReason is set when a failure caused the original batch to be returned.
	FallbackReason string `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
}
