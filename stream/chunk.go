// Package stream defines the canonical chunk protocol emitted by every
// provider, plus the shared normalizer that turns raw CLI output bytes into
// chunks. The chunk union is the only cross-provider contract; everything
// backend-specific lives behind the LineParser interface.
package stream

// Kind discriminates between chunk variants.
type Kind int

const (
	// KindText is incremental assistant output.
	KindText Kind = iota
	// KindThinking is incremental reasoning trace (optional capability).
	KindThinking
	// KindToolUse announces a tool invocation with fully-resolved input.
	KindToolUse
	// KindToolResult carries the outcome of a previously announced tool call.
	KindToolResult
	// KindSession carries the backend-assigned session identifier.
	KindSession
	// KindError is a human-readable failure. It does not by itself mean the
	// process died.
	KindError
	// KindDone terminates the stream, optionally with usage counters.
	KindDone
)

// Chunk is the interface for all stream chunks.
type Chunk interface {
	ChunkKind() Kind
}

// ToolStatus is the lifecycle state of a tool call.
type ToolStatus string

const (
	ToolStatusRunning   ToolStatus = "running"
	ToolStatusCompleted ToolStatus = "completed"
	ToolStatusFailed    ToolStatus = "failed"
)

// ToolCall identifies one tool invocation. IDs are never reused within a
// single process's lifetime.
type ToolCall struct {
	Input  map[string]interface{}
	ID     string
	Name   string
	Status ToolStatus
}

// TextChunk is incremental assistant text.
type TextChunk struct {
	Text string
}

func (c TextChunk) ChunkKind() Kind { return KindText }

// ThinkingChunk is incremental reasoning text.
type ThinkingChunk struct {
	Text string
}

func (c ThinkingChunk) ChunkKind() Kind { return KindThinking }

// ToolUseChunk announces that a tool call started or that its arguments
// became fully known.
type ToolUseChunk struct {
	Call ToolCall
}

func (c ToolUseChunk) ChunkKind() Kind { return KindToolUse }

// ToolResultChunk reports that a tool call finished.
type ToolResultChunk struct {
	Call   ToolCall
	Output string
}

func (c ToolResultChunk) ChunkKind() Kind { return KindToolResult }

// SessionChunk carries a freshly assigned session identifier. The normalizer
// guarantees at most one per process, and none for resumed sessions.
type SessionChunk struct {
	SessionID string
}

func (c SessionChunk) ChunkKind() Kind { return KindSession }

// ErrorChunk carries a failure description.
type ErrorChunk struct {
	Err     error
	Context string
}

func (c ErrorChunk) ChunkKind() Kind { return KindError }

// Usage tracks token consumption for one turn.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	CacheReadTokens int
	CostUSD         float64
}

// DoneChunk is the terminal marker. Usage is nil when the backend reported
// no counters.
type DoneChunk struct {
	Usage *Usage
}

func (c DoneChunk) ChunkKind() Kind { return KindDone }
