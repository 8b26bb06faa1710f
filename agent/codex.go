package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/biodoia/mystlin/stream"
)

// codexBackend drives the Codex CLI in exec --json mode. Codex calls its
// sessions "threads"; the thread id doubles as our session id.
type codexBackend struct{}

// Codex returns the Codex CLI backend.
func Codex() Backend { return codexBackend{} }

func (codexBackend) ID() string          { return "codex" }
func (codexBackend) DisplayName() string { return "Codex CLI" }
func (codexBackend) BinaryName() string  { return "codex" }

func (codexBackend) Capabilities() Capabilities {
	return Capabilities{Streaming: true, Thinking: true, ToolUse: true, Sessions: true}
}

func (codexBackend) BuildArgs(req SendRequest, sessionID string) []string {
	args := []string{"exec"}
	if sessionID != "" {
		args = append(args, "resume", sessionID)
	}
	args = append(args, "--json")
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	// "-" reads the prompt from stdin.
	args = append(args, "-")
	return args
}

func (codexBackend) AuthProbeArgs() []string { return []string{"login", "status"} }
func (codexBackend) LoginHint() string       { return "codex login" }

func (codexBackend) NewParser() stream.LineParser { return &codexParser{} }

// codexParser maps Codex thread/item events to canonical chunks. Codex
// resolves command arguments before announcing an item, so there is no
// fragment accumulation here; item.started carries the full input.
type codexParser struct{}

type codexItem struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Text             string `json:"text"`
	Command          string `json:"command"`
	CWD              string `json:"cwd"`
	AggregatedOutput string `json:"aggregated_output"`
	ExitCode         *int   `json:"exit_code"`
}

func (p *codexParser) ParseLine(line []byte) ([]stream.Chunk, error) {
	var rec struct {
		Type     string    `json:"type"`
		ThreadID string    `json:"thread_id"`
		Message  string    `json:"message"`
		Item     codexItem `json:"item"`
		Error    struct {
			Message string `json:"message"`
		} `json:"error"`
		Usage struct {
			InputTokens       int `json:"input_tokens"`
			CachedInputTokens int `json:"cached_input_tokens"`
			OutputTokens      int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}

	switch rec.Type {
	case "thread.started":
		if rec.ThreadID != "" {
			return []stream.Chunk{stream.SessionChunk{SessionID: rec.ThreadID}}, nil
		}
		return nil, nil

	case "item.started":
		if rec.Item.Type == "command_execution" {
			return []stream.Chunk{stream.ToolUseChunk{Call: stream.ToolCall{
				ID:     rec.Item.ID,
				Name:   "Bash",
				Input:  commandInput(rec.Item),
				Status: stream.ToolStatusRunning,
			}}}, nil
		}
		return nil, nil

	case "item.completed":
		return p.parseItemCompleted(rec.Item)

	case "turn.completed":
		return []stream.Chunk{stream.DoneChunk{Usage: &stream.Usage{
			InputTokens:     rec.Usage.InputTokens,
			OutputTokens:    rec.Usage.OutputTokens,
			CacheReadTokens: rec.Usage.CachedInputTokens,
		}}}, nil

	case "turn.failed":
		return []stream.Chunk{
			stream.ErrorChunk{Err: fmt.Errorf("%s", rec.Error.Message), Context: "turn"},
			stream.DoneChunk{},
		}, nil

	case "error":
		return []stream.Chunk{stream.ErrorChunk{Err: fmt.Errorf("%s", rec.Message), Context: "stream"}}, nil

	case "turn.started", "item.updated":
		return nil, nil

	default:
		slog.Debug("skipping unknown codex record type", "type", rec.Type)
		return nil, nil
	}
}

func (p *codexParser) parseItemCompleted(item codexItem) ([]stream.Chunk, error) {
	switch item.Type {
	case "agent_message":
		if item.Text == "" {
			return nil, nil
		}
		return []stream.Chunk{stream.TextChunk{Text: item.Text}}, nil

	case "reasoning":
		if item.Text == "" {
			return nil, nil
		}
		return []stream.Chunk{stream.ThinkingChunk{Text: item.Text}}, nil

	case "command_execution":
		status := stream.ToolStatusCompleted
		if item.ExitCode != nil && *item.ExitCode != 0 {
			status = stream.ToolStatusFailed
		}
		return []stream.Chunk{stream.ToolResultChunk{
			Call: stream.ToolCall{
				ID:     item.ID,
				Name:   "Bash",
				Input:  commandInput(item),
				Status: status,
			},
			Output: item.AggregatedOutput,
		}}, nil

	default:
		return nil, nil
	}
}

func commandInput(item codexItem) map[string]interface{} {
	input := map[string]interface{}{}
	if item.Command != "" {
		input["command"] = item.Command
	}
	if item.CWD != "" {
		input["cwd"] = item.CWD
	}
	return input
}
