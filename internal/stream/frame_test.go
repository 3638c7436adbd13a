// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/course-engine/pkg/types"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		data      string
		want      Frame
	}{
		{
			name:      "message start",
			eventType: "message_start",
			data:      `{"type":"message_start","message":{"id":"msg_1","model":"m"}}`,
			want:      MessageStart{ID: "msg_1", Model: "m"},
		},
		{
			name:      "text block",
			eventType: "content_block_start",
			data:      `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			want:      BlockStart{Index: 0, Kind: BlockText},
		},
		{
			name:      "server tool use",
			eventType: "content_block_start",
			data:      `{"type":"content_block_start","index":1,"content_block":{"type":"server_tool_use","id":"srvtoolu_1","name":"web_search","input":{}}}`,
			want:      BlockStart{Index: 1, Kind: BlockToolUse, ToolID: "srvtoolu_1", ToolName: "web_search", Input: json.RawMessage(`{}`)},
		},
		{
			name:      "search results",
			eventType: "content_block_start",
			data: `{"type":"content_block_start","index":2,"content_block":{"type":"web_search_tool_result","tool_use_id":"srvtoolu_1",
				"content":[{"type":"web_search_result","title":"Cells","url":"https://cells.example","page_age":"April 2024","encrypted_content":"x"}]}}`,
			want: BlockStart{Index: 2, Kind: BlockSearchResult, Results: []types.SearchResult{
				{Title: "Cells", URL: "https://cells.example", AgeHint: "April 2024"},
			}},
		},
		{
			name:      "search error",
			eventType: "content_block_start",
			data:      `{"type":"content_block_start","index":2,"content_block":{"type":"web_search_tool_result","content":{"type":"web_search_tool_result_error","error_code":"unavailable"}}}`,
			want:      BlockStart{Index: 2, Kind: BlockSearchResult, ResultError: "unavailable"},
		},
		{
			name:      "text delta",
			eventType: "content_block_delta",
			data:      `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
			want:      BlockDelta{Index: 0, Kind: DeltaText, Text: "hi"},
		},
		{
			name:      "thinking delta",
			eventType: "content_block_delta",
			data:      `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}`,
			want:      BlockDelta{Index: 0, Kind: DeltaThinking, Text: "hmm"},
		},
		{
			name:      "input json delta",
			eventType: "content_block_delta",
			data:      `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q"}}`,
			want:      BlockDelta{Index: 1, Kind: DeltaInputJSON, Text: `{"q`},
		},
		{
			name:      "signature delta",
			eventType: "content_block_delta",
			data:      `{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"abc"}}`,
			want:      BlockDelta{Index: 0, Kind: DeltaOther},
		},
		{
			name: "stop", eventType: "content_block_stop",
			data: `{"type":"content_block_stop","index":4}`,
			want: BlockStop{Index: 4},
		},
		{
			name: "message delta", eventType: "message_delta",
			data: `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`,
			want: MessageDelta{StopReason: "end_turn"},
		},
		{
			name: "error", eventType: "error",
			data: `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			want: ErrorFrame{Type: "rate_limit_error", Message: "slow down"},
		},
		{
			name: "type taken from payload", eventType: "",
			data: `{"type":"ping"}`,
			want: Ping{},
		},
		{
			name: "unknown event", eventType: "future_event",
			data: `{"type":"future_event"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame(tt.eventType, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFrame_Malformed(t *testing.T) {
	_, err := ParseFrame("content_block_delta", []byte(`{"type":`))
	assert.Error(t, err)

	_, err = ParseFrame("content_block_start", []byte(`{"type":"content_block_start","index":0}`))
	assert.Error(t, err)
}

func TestNewSSESource(t *testing.T) {
	body := strings.Join([]string{
		"event: message_start",
		`data: {"type":"message_start","message":{"id":"msg_1"}}`,
		"",
		"event: ping",
		`data: {"type":"ping"}`,
		"",
		"event: content_block_delta",
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		"",
		"event: message_stop",
		`data: {"type":"message_stop"}`,
		"",
		"",
	}, "\n")
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	text, err := Decode(NewSSESource(resp), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", text)
}
