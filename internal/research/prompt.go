// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/course-engine/pkg/types"
)

const systemPrompt = `You are a meticulous research assistant preparing source material for an educational course. Use web search to find authoritative, citable sources. Prefer peer-reviewed publications, standards documents, and primary sources. Never invent a DOI; omit it when you are not certain it exists.`

// researchPromptTmpl asks for a dossier matching dossierPayload.
var researchPromptTmpl = template.Must(template.New("research").Parse(`Research the following unit{{if .CourseTitle}} of the course "{{.CourseTitle}}"{{end}}.

Unit: {{.Title}}
{{- if .Description}}
Scope: {{.Description}}
{{- end}}

Search the web for sources that a course author could cite when writing this unit. After searching, respond with a single JSON object and nothing else:

{"sources": [{"title": "...", "authors": ["..."], "year": "2021", "url": "https://...", "doi": "10.xxxx/...", "summary": "two sentences on what the source covers", "relevance": "why it matters for this unit", "isVerified": true}], "synthesisNotes": "a short synthesis of what the sources agree and disagree on"}

Set isVerified to true only for sources you opened through search. Leave url or doi empty when unknown.
`))

func renderPrompt(topic types.ResearchTopic) (string, error) {
	var buf bytes.Buffer
	if err := researchPromptTmpl.Execute(&buf, topic); err != nil {
		return "", err
	}
	return buf.String(), nil
}
