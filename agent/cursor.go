package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/biodoia/mystlin/stream"
)

// cursorBackend drives the Cursor Agent CLI in stream-json mode.
type cursorBackend struct{}

// Cursor returns the Cursor Agent backend.
func Cursor() Backend { return cursorBackend{} }

func (cursorBackend) ID() string          { return "cursor" }
func (cursorBackend) DisplayName() string { return "Cursor Agent" }
func (cursorBackend) BinaryName() string  { return "agent" }

func (cursorBackend) Capabilities() Capabilities {
	return Capabilities{Streaming: true, ToolUse: true, Sessions: true}
}

func (cursorBackend) BuildArgs(req SendRequest, sessionID string) []string {
	args := []string{"chat", "--output-format", "stream-json"}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}
	return args
}

func (cursorBackend) AuthProbeArgs() []string { return []string{"status"} }
func (cursorBackend) LoginHint() string       { return "agent login" }

func (cursorBackend) NewParser() stream.LineParser { return &cursorParser{} }

// cursorParser maps Cursor Agent records to canonical chunks. The tool_call
// field is a single-key map from tool name to {args, result?}.
type cursorParser struct{}

func (p *cursorParser) ParseLine(line []byte) ([]stream.Chunk, error) {
	var rec struct {
		Type      string `json:"type"`
		Subtype   string `json:"subtype"`
		SessionID string `json:"session_id"`
		CallID    string `json:"call_id"`
		IsError   bool   `json:"is_error"`
		Result    string `json:"result"`
		Message   struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		ToolCall map[string]map[string]interface{} `json:"tool_call"`
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}

	switch rec.Type {
	case "system":
		if rec.Subtype == "init" && rec.SessionID != "" {
			return []stream.Chunk{stream.SessionChunk{SessionID: rec.SessionID}}, nil
		}
		return nil, nil

	case "assistant":
		var chunks []stream.Chunk
		for _, block := range rec.Message.Content {
			if block.Type == "text" && block.Text != "" {
				chunks = append(chunks, stream.TextChunk{Text: block.Text})
			}
		}
		return chunks, nil

	case "tool_call":
		return p.parseToolCall(rec.Subtype, rec.CallID, rec.ToolCall)

	case "result":
		if rec.IsError {
			return []stream.Chunk{
				stream.ErrorChunk{Err: fmt.Errorf("%s", rec.Result), Context: "result"},
				stream.DoneChunk{},
			}, nil
		}
		return []stream.Chunk{stream.DoneChunk{}}, nil

	default:
		slog.Debug("skipping unknown cursor record type", "type", rec.Type)
		return nil, nil
	}
}

func (p *cursorParser) parseToolCall(subtype, callID string, toolCall map[string]map[string]interface{}) ([]stream.Chunk, error) {
	name, args, result := extractToolCall(toolCall)
	if name == "" {
		return nil, nil
	}

	switch subtype {
	case "started":
		return []stream.Chunk{stream.ToolUseChunk{Call: stream.ToolCall{
			ID:     callID,
			Name:   name,
			Input:  args,
			Status: stream.ToolStatusRunning,
		}}}, nil

	case "completed":
		return []stream.Chunk{stream.ToolResultChunk{
			Call: stream.ToolCall{
				ID:     callID,
				Name:   name,
				Input:  args,
				Status: stream.ToolStatusCompleted,
			},
			Output: stringifyResult(result),
		}}, nil

	default:
		return nil, nil
	}
}

// extractToolCall pulls the single tool entry out of the tool_call map.
func extractToolCall(toolCall map[string]map[string]interface{}) (name string, args map[string]interface{}, result interface{}) {
	for n, detail := range toolCall {
		name = n
		if raw, ok := detail["args"].(map[string]interface{}); ok {
			args = raw
		} else {
			args = map[string]interface{}{}
		}
		result = detail["result"]
		return
	}
	return "", nil, nil
}

func stringifyResult(result interface{}) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
