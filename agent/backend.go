// Package agent implements the provider layer: per-backend policy objects
// that spawn a CLI, feed its output through the canonical stream normalizer,
// and maintain session continuity across turns. Adding a backend means
// implementing the Backend interface with its own argument builder and line
// parser; everything above that (prompt assembly, process lifecycle, error
// conversion) is shared.
package agent

import (
	"github.com/biodoia/mystlin/history"
	"github.com/biodoia/mystlin/runner"
	"github.com/biodoia/mystlin/stream"
)

// Capabilities describes what a backend's event stream can carry.
type Capabilities struct {
	Streaming bool
	Thinking  bool
	ToolUse   bool
	Sessions  bool
}

// Mode selects the directive appended to the end of every assembled prompt.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModePlan  Mode = "plan"
	ModeAgent Mode = "agent"
)

// Directive returns the instruction appended last to the prompt. An unknown
// or empty mode appends nothing.
func (m Mode) Directive() string {
	switch m {
	case ModeChat:
		return "Respond conversationally. Do not modify any files."
	case ModePlan:
		return "Produce a step-by-step plan only. Do not make any changes yet."
	case ModeAgent:
		return "Use your tools to complete the task end to end."
	default:
		return ""
	}
}

// ContextItem is a file or selection supplied by the context collaborator.
// StartLine/EndLine are 1-based and optional (0 means whole file).
type ContextItem struct {
	Path      string
	Content   string
	Language  string
	StartLine int
	EndLine   int
}

// SendRequest carries everything needed for one turn.
type SendRequest struct {
	// Message is the user's message, passed through verbatim.
	Message string
	// Context items are formatted into the prompt ahead of the message.
	Context []ContextItem
	// History is the conversation so far; only the most recent HistoryWindow
	// entries reach the prompt.
	History []history.Message
	// Instructions is the persona/skill text prepended first, if any.
	Instructions string
	Mode         Mode
	Model        string
	WorkDir      string
	// Tools are local tool definitions advertised to backends that accept
	// them.
	Tools *ToolSet
	// OnProcessStart, if set, is invoked once the child process is running.
	// Callers use it to register the process in a panel table.
	OnProcessStart func(*runner.Process)
}

// Backend is the per-CLI policy: identity, argument construction, and the
// line parser for its wire dialect. Backends hold no per-turn state; that
// lives in the Provider and the parser instance it creates per process.
type Backend interface {
	ID() string
	DisplayName() string
	Capabilities() Capabilities

	// BinaryName is the executable looked up in PATH during discovery.
	BinaryName() string

	// BuildArgs builds CLI arguments for one send. A non-empty sessionID
	// must make the backend resume that session.
	BuildArgs(req SendRequest, sessionID string) []string

	// NewParser returns a fresh stateful parser for one process's stdout.
	NewParser() stream.LineParser

	// AuthProbeArgs are arguments whose zero exit means the CLI is
	// authenticated.
	AuthProbeArgs() []string

	// LoginHint is the manual remediation command shown on auth failure.
	LoginHint() string
}
