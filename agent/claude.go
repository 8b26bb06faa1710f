package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biodoia/mystlin/stream"
)

// claudeBackend drives the Claude Code CLI in stream-json mode with partial
// events enabled.
type claudeBackend struct{}

// Claude returns the Claude Code backend.
func Claude() Backend { return claudeBackend{} }

func (claudeBackend) ID() string          { return "claude" }
func (claudeBackend) DisplayName() string { return "Claude Code" }
func (claudeBackend) BinaryName() string  { return "claude" }

func (claudeBackend) Capabilities() Capabilities {
	return Capabilities{Streaming: true, Thinking: true, ToolUse: true, Sessions: true}
}

func (claudeBackend) BuildArgs(req SendRequest, sessionID string) []string {
	args := []string{
		"-p",
		"--output-format", "stream-json",
		"--verbose",
		"--include-partial-messages",
	}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	if req.Tools != nil && len(req.Tools.Names()) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.Tools.Names(), ","))
	}
	return args
}

func (claudeBackend) AuthProbeArgs() []string { return []string{"auth", "status"} }
func (claudeBackend) LoginHint() string       { return "claude login" }

func (claudeBackend) NewParser() stream.LineParser {
	return &claudeParser{open: make(map[int]*openToolBlock)}
}

// openToolBlock accumulates a streaming tool call's input fragments. Keyed
// by the block's positional index; removed when the closing signal arrives,
// so a reused index for a later call starts from a clean accumulator.
type openToolBlock struct {
	id      string
	name    string
	partial strings.Builder
}

// claudeParser maps Claude stream-json records to canonical chunks. State is
// per process: open tool blocks, the ids already announced, and how much
// assistant text the partial events have already emitted.
type claudeParser struct {
	open        map[int]*openToolBlock
	seenTools   map[string]bool
	emittedText int
}

type claudeRecord struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	SessionID string          `json:"session_id"`
	Event     json.RawMessage `json:"event"`
	Message   json.RawMessage `json:"message"`

	// result fields
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	Usage        struct {
		InputTokens          int `json:"input_tokens"`
		OutputTokens         int `json:"output_tokens"`
		CacheReadInputTokens int `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

func (p *claudeParser) ParseLine(line []byte) ([]stream.Chunk, error) {
	var rec claudeRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}

	switch rec.Type {
	case "system":
		if rec.Subtype == "init" && rec.SessionID != "" {
			return []stream.Chunk{stream.SessionChunk{SessionID: rec.SessionID}}, nil
		}
		return nil, nil

	case "stream_event":
		return p.parseStreamEvent(rec.Event)

	case "assistant":
		return p.parseAssistant(rec.Message)

	case "user":
		return p.parseUser(rec.Message)

	case "result":
		return p.parseResult(rec)

	case "":
		return nil, fmt.Errorf("record without type")

	default:
		slog.Debug("skipping unknown claude record type", "type", rec.Type)
		return nil, nil
	}
}

// parseStreamEvent handles partial message events: text and thinking deltas
// stream straight through, tool input json deltas accumulate per positional
// index until content_block_stop flushes the call.
func (p *claudeParser) parseStreamEvent(raw json.RawMessage) ([]stream.Chunk, error) {
	var ev struct {
		Type         string          `json:"type"`
		Index        int             `json:"index"`
		ContentBlock json.RawMessage `json:"content_block"`
		Delta        json.RawMessage `json:"delta"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "message_start":
		// Delta accounting is per message.
		p.emittedText = 0
		return nil, nil

	case "content_block_start":
		var block struct {
			Type string `json:"type"`
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(ev.ContentBlock, &block); err != nil {
			return nil, nil
		}
		if block.Type == "tool_use" {
			p.open[ev.Index] = &openToolBlock{id: block.ID, name: block.Name}
			p.markToolSeen(block.ID)
			// Announce the call immediately; the fully-resolved input
			// follows from content_block_stop once the fragments are in.
			return []stream.Chunk{stream.ToolUseChunk{Call: stream.ToolCall{
				ID:     block.ID,
				Name:   block.Name,
				Input:  map[string]interface{}{},
				Status: stream.ToolStatusRunning,
			}}}, nil
		}
		return nil, nil

	case "content_block_delta":
		var delta struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Thinking    string `json:"thinking"`
			PartialJSON string `json:"partial_json"`
		}
		if err := json.Unmarshal(ev.Delta, &delta); err != nil {
			return nil, nil
		}
		switch delta.Type {
		case "text_delta":
			p.emittedText += len(delta.Text)
			return []stream.Chunk{stream.TextChunk{Text: delta.Text}}, nil
		case "thinking_delta":
			return []stream.Chunk{stream.ThinkingChunk{Text: delta.Thinking}}, nil
		case "input_json_delta":
			if block, ok := p.open[ev.Index]; ok {
				block.partial.WriteString(delta.PartialJSON)
			}
			return nil, nil
		default:
			return nil, nil
		}

	case "content_block_stop":
		block, ok := p.open[ev.Index]
		if !ok {
			return nil, nil
		}
		delete(p.open, ev.Index)
		return []stream.Chunk{stream.ToolUseChunk{Call: stream.ToolCall{
			ID:     block.id,
			Name:   block.name,
			Input:  parseToolInput(block.partial.String()),
			Status: stream.ToolStatusRunning,
		}}}, nil

	default:
		// message_delta, message_stop and friends are lifecycle
		// bookkeeping.
		return nil, nil
	}
}

// parseAssistant handles complete assistant messages. Text already emitted
// through partial events is not repeated; tool calls that never streamed are
// announced here.
func (p *claudeParser) parseAssistant(raw json.RawMessage) ([]stream.Chunk, error) {
	var msg struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, nil
	}

	var chunks []stream.Chunk
	for _, blockRaw := range msg.Content {
		var block struct {
			Type  string                 `json:"type"`
			Text  string                 `json:"text"`
			ID    string                 `json:"id"`
			Name  string                 `json:"name"`
			Input map[string]interface{} `json:"input"`
		}
		if err := json.Unmarshal(blockRaw, &block); err != nil {
			continue
		}
		switch block.Type {
		case "text":
			if len(block.Text) > p.emittedText {
				chunks = append(chunks, stream.TextChunk{Text: block.Text[p.emittedText:]})
				p.emittedText = len(block.Text)
			}
		case "tool_use":
			if p.seenTools[block.ID] {
				continue
			}
			p.markToolSeen(block.ID)
			input := block.Input
			if input == nil {
				input = map[string]interface{}{}
			}
			chunks = append(chunks, stream.ToolUseChunk{Call: stream.ToolCall{
				ID:     block.ID,
				Name:   block.Name,
				Input:  input,
				Status: stream.ToolStatusRunning,
			}})
		}
	}
	// The assistant record closes its message; the next one starts its own
	// delta accounting.
	p.emittedText = 0
	return chunks, nil
}

// parseUser handles tool_result blocks echoed back after the CLI executed a
// tool. Every line produces its own chunk; there is no deduplication across
// distinct records.
func (p *claudeParser) parseUser(raw json.RawMessage) ([]stream.Chunk, error) {
	var msg struct {
		Content []struct {
			Type      string          `json:"type"`
			ToolUseID string          `json:"tool_use_id"`
			Content   json.RawMessage `json:"content"`
			IsError   bool            `json:"is_error"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, nil
	}

	var chunks []stream.Chunk
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			continue
		}
		status := stream.ToolStatusCompleted
		if block.IsError {
			status = stream.ToolStatusFailed
		}
		chunks = append(chunks, stream.ToolResultChunk{
			Call: stream.ToolCall{
				ID:     block.ToolUseID,
				Status: status,
			},
			Output: flattenContent(block.Content),
		})
	}
	return chunks, nil
}

func (p *claudeParser) parseResult(rec claudeRecord) ([]stream.Chunk, error) {
	usage := &stream.Usage{
		InputTokens:     rec.Usage.InputTokens,
		OutputTokens:    rec.Usage.OutputTokens,
		CacheReadTokens: rec.Usage.CacheReadInputTokens,
		CostUSD:         rec.TotalCostUSD,
	}
	if rec.IsError {
		return []stream.Chunk{
			stream.ErrorChunk{Err: fmt.Errorf("%s", rec.Result), Context: "result"},
			stream.DoneChunk{Usage: usage},
		}, nil
	}
	return []stream.Chunk{stream.DoneChunk{Usage: usage}}, nil
}

func (p *claudeParser) markToolSeen(id string) {
	if p.seenTools == nil {
		p.seenTools = make(map[string]bool)
	}
	p.seenTools[id] = true
}

// parseToolInput decodes the accumulated partial JSON fragments as one
// object. Backends occasionally close a block with no fragments or with
// unfinished JSON; both degrade to an empty input map.
func parseToolInput(partial string) map[string]interface{} {
	input := map[string]interface{}{}
	if strings.TrimSpace(partial) == "" {
		return input
	}
	if err := json.Unmarshal([]byte(partial), &input); err != nil {
		return map[string]interface{}{}
	}
	return input
}

// flattenContent renders a tool_result content field, which may be a plain
// string or an array of text blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String()
	}
	return string(raw)
}
