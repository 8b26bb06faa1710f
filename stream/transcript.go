package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/biodoia/mystlin/internal/ndjson"
)

// envelope is the on-disk transcript record, one JSON object per line.
type envelope struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Context   string    `json:"context,omitempty"`
	Call      *ToolCall `json:"call,omitempty"`
	Output    string    `json:"output,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
}

// Recorder persists a chunk stream as newline-delimited JSON so a
// conversation can be inspected or replayed later.
type Recorder struct {
	w *ndjson.Writer
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: ndjson.NewWriter(w)}
}

// Record appends one chunk to the transcript.
func (r *Recorder) Record(chunk Chunk) error {
	var env envelope
	switch c := chunk.(type) {
	case TextChunk:
		env = envelope{Type: "text", Text: c.Text}
	case ThinkingChunk:
		env = envelope{Type: "thinking", Text: c.Text}
	case ToolUseChunk:
		call := c.Call
		env = envelope{Type: "tool_use", Call: &call}
	case ToolResultChunk:
		call := c.Call
		env = envelope{Type: "tool_result", Call: &call, Output: c.Output}
	case SessionChunk:
		env = envelope{Type: "session_active", SessionID: c.SessionID}
	case ErrorChunk:
		env = envelope{Type: "error", Error: c.Err.Error(), Context: c.Context}
	case DoneChunk:
		env = envelope{Type: "done", Usage: c.Usage}
	default:
		return fmt.Errorf("unknown chunk kind %d", chunk.ChunkKind())
	}
	return r.w.WriteMessage(env)
}

// ReadTranscript decodes a transcript written by Recorder back into chunks.
// Unknown record types are skipped so newer transcripts stay readable.
func ReadTranscript(r io.Reader) ([]Chunk, error) {
	reader := ndjson.NewReader(r)
	var chunks []Chunk
	for {
		line, err := reader.ReadLine()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return chunks, fmt.Errorf("malformed transcript line: %w", err)
		}

		switch env.Type {
		case "text":
			chunks = append(chunks, TextChunk{Text: env.Text})
		case "thinking":
			chunks = append(chunks, ThinkingChunk{Text: env.Text})
		case "tool_use":
			if env.Call != nil {
				chunks = append(chunks, ToolUseChunk{Call: *env.Call})
			}
		case "tool_result":
			if env.Call != nil {
				chunks = append(chunks, ToolResultChunk{Call: *env.Call, Output: env.Output})
			}
		case "session_active":
			chunks = append(chunks, SessionChunk{SessionID: env.SessionID})
		case "error":
			chunks = append(chunks, ErrorChunk{Err: fmt.Errorf("%s", env.Error), Context: env.Context})
		case "done":
			chunks = append(chunks, DoneChunk{Usage: env.Usage})
		}
	}
}
