// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/google/uuid"

	"github.com/pdiddy/course-engine/pkg/types"
)

// rewriteItem is one entry of the rewrite response.
type rewriteItem struct {
	ID          string   `json:"id"`
	Distractors []string `json:"distractors"`
}

const systemPrompt = `You edit multiple-choice questions so that answer length gives nothing away. You never change a question or its correct answer.`

var rewritePromptTmpl = template.Must(template.New("rewrite").Parse(`In each question below the correct answer is visibly longer than every incorrect option, which lets students guess it without knowing the material.

For each question, lengthen one or two of the incorrect options with a substantive, plausible elaboration so that the correct answer is no longer the longest option. Keep every option wrong. Do not make any option longer than about 130% of the correct answer's length. Never change the correct answer.

Respond with a JSON array containing one object per question, with the same "id" and the full "distractors" list in the original order. Return nothing else.

` + "```json\n{{.Items}}\n```\n"))

// request builds the rewrite call for the selected items. Items without a
// usable id get a fresh one for the round trip; ids maps each request id
// back to its batch index.
func (a *Auditor) request(items []types.QuizItem, selected []int) (types.GenerationRequest, map[string]int, error) {
	ids := make(map[string]int, len(selected))
	payload := make([]types.QuizItem, 0, len(selected))
	for _, idx := range selected {
		q := items[idx].Clone()
		if _, dup := ids[q.ID]; q.ID == "" || dup {
			q.ID = uuid.NewString()
		}
		ids[q.ID] = idx
		payload = append(payload, q)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return types.GenerationRequest{}, nil, fmt.Errorf("encoding rewrite request: %w", err)
	}
	var buf bytes.Buffer
	if err := rewritePromptTmpl.Execute(&buf, struct{ Items string }{Items: string(data)}); err != nil {
		return types.GenerationRequest{}, nil, fmt.Errorf("rendering prompt: %w", err)
	}

	model := a.Config.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := a.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return types.GenerationRequest{
		Model:     model,
		System:    systemPrompt,
		Turns:     []types.Turn{{Role: types.RoleUser, Content: buf.String()}},
		Reasoning: a.Config.Reasoning,
		MaxTokens: maxTokens,
	}, ids, nil
}
