package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodoia/mystlin/stream"
)

func TestCursorSessionInit(t *testing.T) {
	p := Cursor().NewParser()

	chunks := parseAll(t, p, `{"type":"system","subtype":"init","session_id":"cs-1"}`)

	require.Len(t, chunks, 1)
	assert.Equal(t, stream.SessionChunk{SessionID: "cs-1"}, chunks[0])
}

func TestCursorAssistantText(t *testing.T) {
	p := Cursor().NewParser()

	chunks := parseAll(t, p,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}`,
	)

	require.Len(t, chunks, 2)
	assert.Equal(t, stream.TextChunk{Text: "part one"}, chunks[0])
	assert.Equal(t, stream.TextChunk{Text: "part two"}, chunks[1])
}

func TestCursorToolCallLifecycle(t *testing.T) {
	p := Cursor().NewParser()

	chunks := parseAll(t, p,
		`{"type":"tool_call","subtype":"started","call_id":"c-1","tool_call":{"readFile":{"args":{"path":"main.go"}}}}`,
		`{"type":"tool_call","subtype":"completed","call_id":"c-1","tool_call":{"readFile":{"args":{"path":"main.go"},"result":"package main"}}}`,
	)

	require.Len(t, chunks, 2)

	use := chunks[0].(stream.ToolUseChunk)
	assert.Equal(t, "readFile", use.Call.Name)
	assert.Equal(t, "main.go", use.Call.Input["path"])
	assert.Equal(t, stream.ToolStatusRunning, use.Call.Status)

	result := chunks[1].(stream.ToolResultChunk)
	assert.Equal(t, "c-1", result.Call.ID)
	assert.Equal(t, "package main", result.Output)
	assert.Equal(t, stream.ToolStatusCompleted, result.Call.Status)
}

func TestCursorStructuredResultStringified(t *testing.T) {
	p := Cursor().NewParser()

	chunks := parseAll(t, p,
		`{"type":"tool_call","subtype":"completed","call_id":"c-2","tool_call":{"listDir":{"args":{},"result":{"entries":["a","b"]}}}}`,
	)

	require.Len(t, chunks, 1)
	assert.JSONEq(t, `{"entries":["a","b"]}`, chunks[0].(stream.ToolResultChunk).Output)
}

func TestCursorResult(t *testing.T) {
	p := Cursor().NewParser()

	chunks := parseAll(t, p, `{"type":"result","is_error":false}`)
	require.Len(t, chunks, 1)
	assert.IsType(t, stream.DoneChunk{}, chunks[0])

	p2 := Cursor().NewParser()
	chunks = parseAll(t, p2, `{"type":"result","is_error":true,"result":"rate limited"}`)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].(stream.ErrorChunk).Err.Error(), "rate limited")
}

func TestCursorBuildArgs(t *testing.T) {
	b := Cursor()

	args := b.BuildArgs(SendRequest{Model: "sonnet"}, "cs-3")
	assert.Equal(t, []string{"chat", "--output-format", "stream-json", "--model", "sonnet", "--resume", "cs-3"}, args)
}
