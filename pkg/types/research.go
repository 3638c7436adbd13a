// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"slices"
	"time"
)

// Phase is the progress state of a research unit within one attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseThinking   Phase = "thinking"
	PhaseSearching  Phase = "searching"
	PhaseCompiling  Phase = "compiling"
	PhaseValidating Phase = "validating"
)

// Rank orders phases along the attempt lifecycle. Idle ranks lowest.
func (p Phase) Rank() int {
	switch p {
	case PhaseThinking:
		return 1
	case PhaseSearching:
		return 2
	case PhaseCompiling:
		return 3
	case PhaseValidating:
		return 4
	default:
		return 0
	}
}

// ResearchTopic is one topical subdivision to research (e.g. a course
// chapter). Key identifies the research unit.
type ResearchTopic struct {
	Key         string `json:"key" yaml:"key"`
	CourseTitle string `json:"course_title,omitempty" yaml:"course_title,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SearchResult is one item returned by the web search tool.
type SearchResult struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	AgeHint string `json:"age_hint,omitempty" yaml:"age_hint,omitempty"`
}

// ValidationOutcome counts identifier checks applied to a dossier.
type ValidationOutcome struct {
	VerifiedCount int `json:"verified_count" yaml:"verified_count"`
	StrippedCount int `json:"stripped_count" yaml:"stripped_count"`
}

// ResearchUnit is the progress record of one research topic. Records are
// values: every update produces a new record that replaces the old one in
// its registry.
type ResearchUnit struct {
	Key       string `json:"key" yaml:"key"`
	AttemptID string `json:"attempt_id,omitempty" yaml:"attempt_id,omitempty"`
	Phase     Phase  `json:"phase" yaml:"phase"`
	Running   bool   `json:"running" yaml:"running"`

	// QueriesIssued is append-only, in issuance order.
	QueriesIssued []string `json:"queries_issued" yaml:"queries_issued"`

	// ResultsCollected holds unique results keyed by URL, in arrival order.
	ResultsCollected []SearchResult `json:"results_collected" yaml:"results_collected"`

	// LatestResult is the most recently collected new result, for progress display.
	LatestResult *SearchResult `json:"latest_result,omitempty" yaml:"latest_result,omitempty"`

	// ResultFrames counts tool result frames received in this attempt.
	ResultFrames int `json:"result_frames" yaml:"result_frames"`

	SynthesisText string             `json:"synthesis_text" yaml:"synthesis_text"`
	Validation    *ValidationOutcome `json:"validation,omitempty" yaml:"validation,omitempty"`
	LastError     string             `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// HasResult reports whether a result with the given URL was already collected.
func (u ResearchUnit) HasResult(url string) bool {
	return slices.ContainsFunc(u.ResultsCollected, func(r SearchResult) bool {
		return r.URL == url
	})
}

// Source is one bibliographic entry in a dossier.
type Source struct {
	Title     string   `json:"title" yaml:"title"`
	Authors   []string `json:"authors" yaml:"authors"`
	Year      string   `json:"year" yaml:"year"`
	URL       string   `json:"url,omitempty" yaml:"url,omitempty"`
	DOI       string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Summary   string   `json:"summary" yaml:"summary"`
	Relevance string   `json:"relevance" yaml:"relevance"`
	Verified  bool     `json:"verified" yaml:"verified"`
}

// Dossier is the committed output of one completed research unit.
type Dossier struct {
	Key            string             `json:"key" yaml:"key"`
	Sources        []Source           `json:"sources" yaml:"sources"`
	SynthesisNotes string             `json:"synthesis_notes" yaml:"synthesis_notes"`
	Queries        []string           `json:"queries,omitempty" yaml:"queries,omitempty"`
	Validation     *ValidationOutcome `json:"validation,omitempty" yaml:"validation,omitempty"`

	// Degraded marks a dossier committed without web search.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`

	// Fallback marks a dossier built from raw search results because the
	// model output could not be parsed.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	CommittedAt time.Time `json:"committed_at" yaml:"committed_at"`
}

// DOIs returns the non-empty identifiers of the dossier's sources in order.
func (d Dossier) DOIs() []string {
	var ids []string
	for _, s := range d.Sources {
		if s.DOI != "" {
			ids = append(ids, s.DOI)
		}
	}
	return ids
}

// Clone returns a deep copy so the committed dossier cannot be changed
// through shared slices.
func (d Dossier) Clone() Dossier {
	out := d
	out.Sources = make([]Source, len(d.Sources))
	for i, s := range d.Sources {
		s.Authors = slices.Clone(s.Authors)
		out.Sources[i] = s
	}
	out.Queries = slices.Clone(d.Queries)
	if d.Validation != nil {
		v := *d.Validation
		out.Validation = &v
	}
	return out
}
