// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestPayload_Locate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"title":"a"}`,
			want: `{"title":"a"}`,
		},
		{
			name: "prose around object",
			in:   "Here is the result:\n{\"title\":\"a\"}\nHope this helps.",
			want: `{"title":"a"}`,
		},
		{
			name: "fenced block wins over earlier braces",
			in:   "Using {placeholders} here.\n```json\n{\"title\":\"b\"}\n```\n",
			want: `{"title":"b"}`,
		},
		{
			name: "array",
			in:   "Items: [1, 2, 3] done",
			want: `[1, 2, 3]`,
		},
		{
			name: "nested closers use the last one",
			in:   `result {"a":{"b":{}}} trailing`,
			want: `{"a":{"b":{}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Payload(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayload_TrailingCommas(t *testing.T) {
	got, err := Payload("{\"tags\": [\"x\", \"y\",], \"title\": \"t\",\n}")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(got)))
	assert.Equal(t, "{\"tags\": [\"x\", \"y\"], \"title\": \"t\"}", got)
}

func TestPayload_NotFound(t *testing.T) {
	_, err := Payload("I could not produce any output.")
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.Contains(t, mre.Error(), "no JSON")
}

func TestJSON_RepairsUnescapedQuotes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		title string
	}{
		{
			name:  "one quoted word",
			in:    `{"title": "He said "hi" to me", "tags": []}`,
			title: `He said "hi" to me`,
		},
		{
			name:  "quote before comma",
			in:    `{"title": "the "best", "tags": ["a"]}`,
			title: `the "best`,
		},
		{
			name:  "two quoted phrases",
			in:    `{"title": "A "b" and "c" d", "tags": []}`,
			title: `A "b" and "c" d`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n note
			require.NoError(t, JSON(tt.in, &n))
			assert.Equal(t, tt.title, n.Title)
		})
	}
}

func TestJSON_RepairLoopIsBounded(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"title": "`)
	for range maxRepairs + 2 {
		b.WriteString(`x "y" `)
	}
	b.WriteString(`end"}`)

	var n note
	err := JSON(b.String(), &n)
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, maxRepairs, mre.Repairs)
	assert.Positive(t, mre.Offset)
}

func TestJSON_UnrepairableStructure(t *testing.T) {
	var n note
	err := JSON(`{"title" "missing colon"}`, &n)
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
}

func TestJSON_TypeMismatch(t *testing.T) {
	var n note
	err := JSON(`{"title": 7}`, &n)
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.Contains(t, mre.Reason, "decoding payload")
}

func TestLenient_FallsBackToGeneralRepair(t *testing.T) {
	var n note
	require.NoError(t, Lenient(`{title: 'single quoted', tags: ['a']}`, &n))
	assert.Equal(t, "single quoted", n.Title)
	assert.Equal(t, []string{"a"}, n.Tags)
}

func TestLenient_StrictPathFirst(t *testing.T) {
	var n note
	require.NoError(t, Lenient(`{"title":"ok","tags":["a",]}`, &n))
	assert.Equal(t, "ok", n.Title)
}

func TestEscapeQuoteAt(t *testing.T) {
	s, ok := escapeQuoteAt(`"a" b`, 4)
	require.True(t, ok)
	assert.Equal(t, `"a\" b`, s)

	s, ok = escapeQuoteAt(`"a"x`, 3)
	require.True(t, ok)
	assert.Equal(t, `"a\"x`, s)

	_, ok = escapeQuoteAt(`"a\" b`, 5)
	assert.False(t, ok, "already escaped quote is left alone")

	_, ok = escapeQuoteAt(`abc`, 1)
	assert.False(t, ok)

	_, ok = escapeQuoteAt(`abc`, 10)
	assert.False(t, ok)
}

func TestHTML(t *testing.T) {
	doc := "<!DOCTYPE html><html><body><p>hi</p></body></html>"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", doc, doc},
		{"prose around", "Sure! " + doc + "\nLet me know.", doc},
		{"fenced", "```html\n" + doc + "\n```", doc},
		{"no doctype", "x <HTML lang=en><p>a</p></HTML> y", "<HTML lang=en><p>a</p></HTML>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTML(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTML_Errors(t *testing.T) {
	_, err := HTML("just prose")
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)

	_, err = HTML("<html><body>never closed")
	require.ErrorAs(t, err, &mre)
}
