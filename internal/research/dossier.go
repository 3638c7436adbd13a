// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/course-engine/internal/extract"
	"github.com/pdiddy/course-engine/pkg/types"
)

const (
	degradedNote = "Web search was unavailable for this unit. Content will be generated from model knowledge alone and must be independently verified before use."
	fallbackNote = "The research summary could not be parsed. Sources below are the raw search results collected during research; none has been verified."
)

// dossierPayload is the dossier shape the model is asked to produce.
type dossierPayload struct {
	Sources        []sourcePayload `json:"sources"`
	SynthesisNotes string          `json:"synthesisNotes"`
}

type sourcePayload struct {
	Title      string      `json:"title"`
	Authors    flexStrings `json:"authors"`
	Year       flexString  `json:"year"`
	URL        string      `json:"url"`
	DOI        string      `json:"doi"`
	Summary    string      `json:"summary"`
	Relevance  string      `json:"relevance"`
	IsVerified bool        `json:"isVerified"`
}

// flexStrings accepts a list of strings or a single comma-separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("authors: expected string or list: %w", err)
	}
	*f = nil
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*f = append(*f, part)
		}
	}
	return nil
}

// flexString accepts a string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("year: expected string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// parseDossier extracts the model's dossier from the full output text.
func parseDossier(key, text string) (types.Dossier, error) {
	var p dossierPayload
	if err := extract.JSON(text, &p); err != nil {
		return types.Dossier{}, err
	}
	d := types.Dossier{Key: key, SynthesisNotes: strings.TrimSpace(p.SynthesisNotes)}
	for _, s := range p.Sources {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		d.Sources = append(d.Sources, types.Source{
			Title:     strings.TrimSpace(s.Title),
			Authors:   []string(s.Authors),
			Year:      string(s.Year),
			URL:       s.URL,
			DOI:       strings.TrimSpace(s.DOI),
			Summary:   s.Summary,
			Relevance: s.Relevance,
			Verified:  s.IsVerified,
		})
	}
	if len(d.Sources) == 0 && d.SynthesisNotes == "" {
		return types.Dossier{}, errors.New("dossier has neither sources nor notes")
	}
	return d, nil
}

// fallbackDossier builds an unverified dossier from the collected search
// results alone.
func fallbackDossier(u types.ResearchUnit) types.Dossier {
	d := types.Dossier{Key: u.Key, SynthesisNotes: fallbackNote, Fallback: true}
	for _, r := range u.ResultsCollected {
		d.Sources = append(d.Sources, types.Source{
			Title:     r.Title,
			URL:       r.URL,
			Relevance: "Collected during web search.",
		})
	}
	return d
}

// degradedDossier records that research ran without search.
func degradedDossier(key string) types.Dossier {
	return types.Dossier{Key: key, SynthesisNotes: degradedNote, Degraded: true}
}
