package types

import (
	"context"
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// ChatMessage represents one entry in the conversation transcript.
// System messages are tool-execution log lines, not model dialogue.
type ChatMessage struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID   string // correlation id assigned by the model
	Name string
	Args map[string]interface{}
}

// ToolResult carries the outcome of one invocation back to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content string // JSON-encoded dispatch result
}

// Reply is one model turn: free text and zero or more tool calls.
type Reply struct {
	Text  string
	Calls []ToolCall
}

// ModelSession is a persistent conversation with the external model.
// Implementations keep the dialogue history internally; callers only
// push user turns and tool-result batches.
type ModelSession interface {
	Send(ctx context.Context, text string) (Reply, error)
	SendToolResults(ctx context.Context, results []ToolResult) (Reply, error)
}
