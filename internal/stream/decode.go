// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Source yields frames in arrival order. Next returns false when the
// stream ends or fails; Err distinguishes the two.
type Source interface {
	Next() bool
	Frame() Frame
	Err() error
}

// ProtocolError is a failure reported by the service inside the stream.
type ProtocolError struct {
	Type    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stream error (%s): %s", e.Type, e.Message)
}

// invocation accumulates the input of one open tool invocation.
type invocation struct {
	id      string
	name    string
	initial json.RawMessage
	input   strings.Builder
}

// Decode reads every frame from src and reports events to h in arrival
// order. It returns the concatenated text deltas. When the source fails or
// the service reports an error, Decode emits Error and returns the error;
// it never retries.
func Decode(src Source, h Handler) (string, error) {
	emit := func(ev Event) {
		if h != nil {
			h(ev)
		}
	}

	var (
		text       strings.Builder
		stopReason string
		open       = make(map[int]*invocation)
	)

	for src.Next() {
		switch f := src.Frame().(type) {
		case BlockStart:
			switch f.Kind {
			case BlockText:
				if f.Text != "" {
					text.WriteString(f.Text)
					emit(TextDelta{Text: f.Text})
				}
			case BlockThinking:
				if f.Text != "" {
					emit(ReasoningDelta{Text: f.Text})
				}
			case BlockToolUse:
				open[f.Index] = &invocation{id: f.ToolID, name: f.ToolName, initial: f.Input}
				emit(ToolInvocationStart{Index: f.Index, ID: f.ToolID, Name: f.ToolName, PartialInput: string(f.Input)})
			case BlockSearchResult:
				emit(ToolResult{Index: f.Index, Items: f.Results, ErrorCode: f.ResultError})
			}
		case BlockDelta:
			switch f.Kind {
			case DeltaText:
				text.WriteString(f.Text)
				emit(TextDelta{Text: f.Text})
			case DeltaThinking:
				emit(ReasoningDelta{Text: f.Text})
			case DeltaInputJSON:
				inv, ok := open[f.Index]
				if !ok {
					continue
				}
				inv.input.WriteString(f.Text)
				emit(ToolInvocationInput{Index: f.Index, Delta: f.Text})
			}
		case BlockStop:
			inv, ok := open[f.Index]
			if !ok {
				continue
			}
			delete(open, f.Index)
			if input, ok := inv.assembled(); ok {
				emit(ToolInvocationComplete{Index: f.Index, ID: inv.id, Name: inv.name, Input: input})
			}
		case MessageDelta:
			if f.StopReason != "" {
				stopReason = f.StopReason
			}
		case ErrorFrame:
			err := &ProtocolError{Type: f.Type, Message: f.Message}
			emit(Error{Cause: err})
			return text.String(), err
		}
	}

	if err := src.Err(); err != nil {
		emit(Error{Cause: err})
		return text.String(), err
	}

	full := text.String()
	emit(Done{FullText: full, StopReason: stopReason})
	return full, nil
}

// assembled returns the invocation input once streamed fragments (or the
// opening input when none arrived) form valid JSON.
func (inv *invocation) assembled() (json.RawMessage, bool) {
	raw := []byte(inv.input.String())
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = inv.initial
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, false
	}
	return json.RawMessage(raw), true
}
