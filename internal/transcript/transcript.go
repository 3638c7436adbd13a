// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcript splits narration text into pieces that a speech
// synthesiser accepts in one request.
package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultCeiling is the largest chunk, in characters, handed to synthesis.
const DefaultCeiling = 2800

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// level is one boundary kind, tried from coarsest to finest.
type level struct {
	split func(string) []string
	sep   string
}

var levels = []level{
	{paragraphs, "\n\n"},
	{sentences, " "},
	{strings.Fields, " "},
}

// Split breaks text into chunks of at most ceiling characters. Chunks end
// at paragraph boundaries where possible, then sentence boundaries, then
// word boundaries; a single word longer than the ceiling is cut. Adjacent
// pieces are packed together while they fit. A non-positive ceiling uses
// DefaultCeiling.
func Split(text string, ceiling int) []string {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return split(text, ceiling, 0)
}

func split(text string, ceiling, depth int) []string {
	if runeLen(text) <= ceiling {
		return []string{text}
	}
	if depth == len(levels) {
		return hardCut(text, ceiling)
	}

	lv := levels[depth]
	var chunks []string
	cur := ""
	flush := func() {
		if cur != "" {
			chunks = append(chunks, cur)
			cur = ""
		}
	}
	for _, part := range lv.split(text) {
		switch {
		case runeLen(part) > ceiling:
			flush()
			chunks = append(chunks, split(part, ceiling, depth+1)...)
		case cur == "":
			cur = part
		case runeLen(cur)+runeLen(lv.sep)+runeLen(part) <= ceiling:
			cur += lv.sep + part
		default:
			flush()
			cur = part
		}
	}
	flush()
	return chunks
}

func paragraphs(s string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after ".", "!" or "?" (and any closing quotes or
// brackets) when followed by whitespace or the end of the text.
func sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(s) && strings.IndexByte(`"')]`, s[j]) >= 0 {
			j++
		}
		if j < len(s) && !isSpace(s[j]) {
			continue
		}
		if p := strings.TrimSpace(s[start:j]); p != "" {
			out = append(out, p)
		}
		start = j
		i = j
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		out = append(out, p)
	}
	return out
}

func hardCut(s string, ceiling int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > ceiling {
		out = append(out, string(runes[:ceiling]))
		runes = runes[ceiling:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
