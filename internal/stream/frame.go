// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream decodes the generative service's streaming protocol.
// Wire events are turned into a closed Frame variant at the transport
// boundary; Decode then turns frames into typed Event callbacks.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/course-engine/pkg/types"
)

// Frame is one protocol frame. The set of implementations is closed.
type Frame interface {
	isFrame()
}

// BlockKind classifies a content block.
type BlockKind int

const (
	BlockOther BlockKind = iota
	BlockText
	BlockThinking
	BlockToolUse
	BlockSearchResult
)

// DeltaKind classifies a content block delta.
type DeltaKind int

const (
	DeltaOther DeltaKind = iota
	DeltaText
	DeltaThinking
	DeltaInputJSON
)

// MessageStart opens a message.
type MessageStart struct {
	ID    string
	Model string
}

// BlockStart opens the content block at Index.
type BlockStart struct {
	Index int
	Kind  BlockKind

	// Text carries initial text for text or thinking blocks.
	Text string

	// ToolID, ToolName and Input describe a tool invocation block.
	ToolID   string
	ToolName string
	Input    json.RawMessage

	// Results or ResultError describe a search result block.
	Results     []types.SearchResult
	ResultError string
}

// BlockDelta carries an incremental piece of the block at Index. Text holds
// prose, reasoning, or partial tool input depending on Kind.
type BlockDelta struct {
	Index int
	Kind  DeltaKind
	Text  string
}

// BlockStop closes the content block at Index.
type BlockStop struct {
	Index int
}

// MessageDelta carries top-level message changes such as the stop reason.
type MessageDelta struct {
	StopReason string
}

// MessageStop ends the message.
type MessageStop struct{}

// Ping is a keep-alive frame.
type Ping struct{}

// ErrorFrame reports a service-side failure in the middle of a stream.
type ErrorFrame struct {
	Type    string
	Message string
}

func (MessageStart) isFrame() {}
func (BlockStart) isFrame()   {}
func (BlockDelta) isFrame()   {}
func (BlockStop) isFrame()    {}
func (MessageDelta) isFrame() {}
func (MessageStop) isFrame()  {}
func (Ping) isFrame()         {}
func (ErrorFrame) isFrame()   {}

// wireEvent captures every field the protocol events use.
type wireEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Message *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"message"`
	ContentBlock *wireBlock `json:"content_block"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type wireBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Content  json.RawMessage `json:"content"`
}

type wireSearchResult struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	PageAge string `json:"page_age"`
}

type wireSearchError struct {
	Type      string `json:"type"`
	ErrorCode string `json:"error_code"`
}

// ParseFrame decodes one wire event. eventType is the SSE event name; when
// empty the payload's own type field is used. Unknown event types yield a
// nil frame and no error.
func ParseFrame(eventType string, data []byte) (Frame, error) {
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding %q event: %w", eventType, err)
	}
	if eventType == "" {
		eventType = ev.Type
	}

	switch eventType {
	case "message_start":
		f := MessageStart{}
		if ev.Message != nil {
			f.ID, f.Model = ev.Message.ID, ev.Message.Model
		}
		return f, nil
	case "content_block_start":
		if ev.ContentBlock == nil {
			return nil, fmt.Errorf("content_block_start at index %d has no content block", ev.Index)
		}
		return parseBlockStart(ev.Index, ev.ContentBlock)
	case "content_block_delta":
		if ev.Delta == nil {
			return nil, fmt.Errorf("content_block_delta at index %d has no delta", ev.Index)
		}
		switch ev.Delta.Type {
		case "text_delta":
			return BlockDelta{Index: ev.Index, Kind: DeltaText, Text: ev.Delta.Text}, nil
		case "thinking_delta":
			return BlockDelta{Index: ev.Index, Kind: DeltaThinking, Text: ev.Delta.Thinking}, nil
		case "input_json_delta":
			return BlockDelta{Index: ev.Index, Kind: DeltaInputJSON, Text: ev.Delta.PartialJSON}, nil
		default:
			return BlockDelta{Index: ev.Index, Kind: DeltaOther}, nil
		}
	case "content_block_stop":
		return BlockStop{Index: ev.Index}, nil
	case "message_delta":
		f := MessageDelta{}
		if ev.Delta != nil {
			f.StopReason = ev.Delta.StopReason
		}
		return f, nil
	case "message_stop":
		return MessageStop{}, nil
	case "ping":
		return Ping{}, nil
	case "error":
		f := ErrorFrame{Type: "error"}
		if ev.Error != nil {
			f.Type, f.Message = ev.Error.Type, ev.Error.Message
		}
		return f, nil
	default:
		return nil, nil
	}
}

func parseBlockStart(index int, b *wireBlock) (Frame, error) {
	switch b.Type {
	case "text":
		return BlockStart{Index: index, Kind: BlockText, Text: b.Text}, nil
	case "thinking":
		return BlockStart{Index: index, Kind: BlockThinking, Text: b.Thinking}, nil
	case "tool_use", "server_tool_use":
		return BlockStart{Index: index, Kind: BlockToolUse, ToolID: b.ID, ToolName: b.Name, Input: b.Input}, nil
	case "web_search_tool_result":
		f := BlockStart{Index: index, Kind: BlockSearchResult, ToolID: b.ID}
		if len(b.Content) == 0 {
			return f, nil
		}
		var results []wireSearchResult
		if err := json.Unmarshal(b.Content, &results); err == nil {
			for _, r := range results {
				f.Results = append(f.Results, types.SearchResult{Title: r.Title, URL: r.URL, AgeHint: r.PageAge})
			}
			return f, nil
		}
		var se wireSearchError
		if err := json.Unmarshal(b.Content, &se); err != nil {
			return nil, fmt.Errorf("decoding search result content at index %d: %w", index, err)
		}
		f.ResultError = se.ErrorCode
		if f.ResultError == "" {
			f.ResultError = "unknown"
		}
		return f, nil
	default:
		return BlockStart{Index: index, Kind: BlockOther}, nil
	}
}
