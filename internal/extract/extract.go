// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract recovers structured payloads from free-form model output.
// Model text often wraps JSON in prose or code fences, leaves trailing
// commas, or forgets to escape quotes inside string values; this package
// locates the payload and repairs those defects before decoding.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// maxRepairs bounds the unescaped-quote repair loop.
const maxRepairs = 10

// MalformedResponseError reports model output from which no valid payload
// could be recovered.
type MalformedResponseError struct {
	Reason  string
	Offset  int64
	Repairs int
}

func (e *MalformedResponseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("malformed response: %s (offset %d, %d repairs)", e.Reason, e.Offset, e.Repairs)
	}
	return "malformed response: " + e.Reason
}

var (
	jsonFence     = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Payload returns the repaired JSON text found in text. The result is
// guaranteed to be syntactically valid JSON.
func Payload(text string) (string, error) {
	candidate, ok := locate(text)
	if !ok {
		return "", &MalformedResponseError{Reason: "no JSON object or array found"}
	}
	candidate = trailingComma.ReplaceAllString(candidate, "$1")
	return repairQuotes(candidate)
}

// JSON locates, repairs, and decodes the payload in text into v.
func JSON(text string, v any) error {
	payload, err := Payload(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &MalformedResponseError{Reason: "decoding payload: " + err.Error()}
	}
	return nil
}

// Lenient behaves like JSON but falls back to a general-purpose repair
// of the located candidate when the targeted repairs fail.
func Lenient(text string, v any) error {
	err := JSON(text, v)
	var mre *MalformedResponseError
	if err == nil || !errors.As(err, &mre) {
		return err
	}
	candidate, ok := locate(text)
	if !ok {
		return err
	}
	repaired, rerr := jsonrepair.JSONRepair(candidate)
	if rerr != nil {
		return err
	}
	if uerr := json.Unmarshal([]byte(repaired), v); uerr != nil {
		return err
	}
	return nil
}

// locate returns the JSON candidate: the body of a ```json fence when
// present, otherwise the span from the first opening bracket to the last
// matching closer.
func locate(text string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		if body != "" {
			return body, true
		}
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

// repairQuotes decodes candidate and, on a syntax error, escapes the
// unescaped quote the decoder tripped over, up to maxRepairs times.
func repairQuotes(candidate string) (string, error) {
	repairs := 0
	for {
		err := json.Unmarshal([]byte(candidate), new(json.RawMessage))
		if err == nil {
			return candidate, nil
		}
		var se *json.SyntaxError
		if !errors.As(err, &se) {
			return "", &MalformedResponseError{Reason: err.Error(), Repairs: repairs}
		}
		if repairs >= maxRepairs {
			return "", &MalformedResponseError{Reason: se.Error(), Offset: se.Offset, Repairs: repairs}
		}
		fixed, ok := escapeQuoteAt(candidate, int(se.Offset)-1)
		if !ok {
			return "", &MalformedResponseError{Reason: se.Error(), Offset: se.Offset, Repairs: repairs}
		}
		candidate = fixed
		repairs++
	}
}

// escapeQuoteAt escapes the quote that most plausibly ended a string value
// too early. The decoder reports the first byte after the premature close;
// the offending quote is at pos, or the nearest unescaped quote before pos
// once whitespace is skipped.
func escapeQuoteAt(s string, pos int) (string, bool) {
	if pos < 0 || pos >= len(s) {
		return "", false
	}
	i := pos
	if s[i] != '"' {
		i--
		for i >= 0 && isSpace(s[i]) {
			i--
		}
	}
	if i < 0 || s[i] != '"' || escaped(s, i) {
		return "", false
	}
	return s[:i] + `\` + s[i:], true
}

// escaped reports whether the byte at i is preceded by an odd number of
// backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
