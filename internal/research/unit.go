// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import "github.com/pdiddy/course-engine/pkg/types"

// The functions below are the only way a unit record changes during an
// attempt. Each returns a new record; phases only move forward.

func advance(u types.ResearchUnit, p types.Phase) types.ResearchUnit {
	if p.Rank() > u.Phase.Rank() {
		u.Phase = p
	}
	return u
}

// withReasoning moves an idle unit to thinking.
func withReasoning(u types.ResearchUnit) types.ResearchUnit {
	if u.Phase == types.PhaseIdle {
		u.Phase = types.PhaseThinking
	}
	return u
}

// withQuery records an issued search query.
func withQuery(u types.ResearchUnit, query string) types.ResearchUnit {
	u = cloneUnit(u)
	u.QueriesIssued = append(u.QueriesIssued, query)
	return advance(u, types.PhaseSearching)
}

// withResults merges one tool result frame. Results whose URL was already
// collected are dropped; only new results move the latest pointer.
func withResults(u types.ResearchUnit, items []types.SearchResult) types.ResearchUnit {
	u = cloneUnit(u)
	u.ResultFrames++
	for _, it := range items {
		if it.URL == "" || u.HasResult(it.URL) {
			continue
		}
		u.ResultsCollected = append(u.ResultsCollected, it)
		latest := it
		u.LatestResult = &latest
	}
	return u
}

// withText handles a prose delta. The first one after any tool result
// starts compiling; text is accumulated while compiling.
func withText(u types.ResearchUnit, text string) types.ResearchUnit {
	if u.ResultFrames > 0 {
		u = advance(u, types.PhaseCompiling)
	}
	if u.Phase == types.PhaseCompiling {
		u.SynthesisText += text
	}
	return u
}

// withValidation marks identifier checks as started.
func withValidation(u types.ResearchUnit) types.ResearchUnit {
	return advance(u, types.PhaseValidating)
}

// finish ends the attempt: the unit returns to idle and stops running.
func finish(u types.ResearchUnit, lastError string) types.ResearchUnit {
	u.Phase = types.PhaseIdle
	u.Running = false
	u.LastError = lastError
	return u
}
