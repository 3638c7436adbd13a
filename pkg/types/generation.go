// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the course-engine pipeline:
// generation requests, research units and dossiers, quiz items and audit
// results, and the per-stage configuration structs.
package types

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the ordered conversation sent to the model.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ReasoningTier selects how much extended reasoning the model may spend.
// The empty tier disables reasoning.
type ReasoningTier string

const (
	ReasoningNone   ReasoningTier = ""
	ReasoningLow    ReasoningTier = "low"
	ReasoningMedium ReasoningTier = "medium"
	ReasoningHigh   ReasoningTier = "high"
)

// Valid reports whether t is empty or a known tier.
func (t ReasoningTier) Valid() bool {
	return t == "" || t.BudgetTokens() > 0
}

// BudgetTokens maps the tier to a reasoning token budget. Unknown tiers
// and ReasoningNone return 0.
func (t ReasoningTier) BudgetTokens() int {
	switch t {
	case ReasoningLow:
		return 2048
	case ReasoningMedium:
		return 8192
	case ReasoningHigh:
		return 24576
	default:
		return 0
	}
}

// ToolDeclaration describes a tool offered to the model. Server-side tools
// (web search) set Type; client tools leave Type empty and carry an
// InputSchema.
type ToolDeclaration struct {
	Type        string          `json:"type,omitempty" yaml:"type,omitempty"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"-"`
	MaxUses     int             `json:"max_uses,omitempty" yaml:"max_uses,omitempty"`
}

// WebSearchToolName is the name the model uses when invoking web search.
const WebSearchToolName = "web_search"

// WebSearchTool returns the server-side web search declaration. A maxUses
// of zero leaves the limit to the service.
func WebSearchTool(maxUses int) ToolDeclaration {
	return ToolDeclaration{
		Type:    "web_search_20250305",
		Name:    WebSearchToolName,
		MaxUses: maxUses,
	}
}

// GenerationRequest is one call to the generative language service.
type GenerationRequest struct {
	Model     string            `json:"model" yaml:"model"`
	System    string            `json:"system,omitempty" yaml:"system,omitempty"`
	Turns     []Turn            `json:"turns" yaml:"turns"`
	Reasoning ReasoningTier     `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Tools     []ToolDeclaration `json:"tools,omitempty" yaml:"tools,omitempty"`
	MaxTokens int               `json:"max_tokens" yaml:"max_tokens"`
}
