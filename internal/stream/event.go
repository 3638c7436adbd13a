// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"encoding/json"

	"github.com/pdiddy/course-engine/pkg/types"
)

// Event is one typed callback produced by Decode. The set of
// implementations is closed; consumers switch on the concrete type.
type Event interface {
	isEvent()
}

// Handler receives events in arrival order. A nil Handler discards them.
type Handler func(Event)

// TextDelta is a piece of prose output.
type TextDelta struct {
	Text string
}

// ReasoningDelta is a piece of reasoning output. It is never part of the
// full text.
type ReasoningDelta struct {
	Text string
}

// ToolInvocationStart opens a tool invocation. PartialInput holds the
// input sent with the opening frame, often "{}".
type ToolInvocationStart struct {
	Index        int
	ID           string
	Name         string
	PartialInput string
}

// ToolInvocationInput is one fragment of an invocation's input.
type ToolInvocationInput struct {
	Index int
	Delta string
}

// ToolInvocationComplete carries the assembled input of a closed
// invocation. It is only emitted when the input is valid JSON.
type ToolInvocationComplete struct {
	Index int
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult carries the items a tool returned. ErrorCode is set instead
// when the tool reported a failure.
type ToolResult struct {
	Index     int
	Items     []types.SearchResult
	ErrorCode string
}

// Done ends a successful stream. FullText concatenates every text delta.
type Done struct {
	FullText   string
	StopReason string
}

// Error reports a failure that ended the stream.
type Error struct {
	Cause error
}

func (TextDelta) isEvent()              {}
func (ReasoningDelta) isEvent()         {}
func (ToolInvocationStart) isEvent()    {}
func (ToolInvocationInput) isEvent()    {}
func (ToolInvocationComplete) isEvent() {}
func (ToolResult) isEvent()             {}
func (Done) isEvent()                   {}
func (Error) isEvent()                  {}
