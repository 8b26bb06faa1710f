package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodoia/mystlin/stream"
)

func TestCodexThreadStarted(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p, `{"type":"thread.started","thread_id":"th-1"}`)

	require.Len(t, chunks, 1)
	assert.Equal(t, stream.SessionChunk{SessionID: "th-1"}, chunks[0])
}

func TestCodexCommandExecution(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p,
		`{"type":"item.started","item":{"id":"item-1","type":"command_execution","command":"ls -la","cwd":"/tmp"}}`,
		`{"type":"item.completed","item":{"id":"item-1","type":"command_execution","command":"ls -la","aggregated_output":"total 0\n","exit_code":0}}`,
	)

	require.Len(t, chunks, 2)

	use := chunks[0].(stream.ToolUseChunk)
	assert.Equal(t, "Bash", use.Call.Name)
	assert.Equal(t, "ls -la", use.Call.Input["command"])
	assert.Equal(t, "/tmp", use.Call.Input["cwd"])
	assert.Equal(t, stream.ToolStatusRunning, use.Call.Status)

	result := chunks[1].(stream.ToolResultChunk)
	assert.Equal(t, "item-1", result.Call.ID)
	assert.Equal(t, stream.ToolStatusCompleted, result.Call.Status)
	assert.Equal(t, "total 0\n", result.Output)
}

func TestCodexFailedCommand(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p,
		`{"type":"item.completed","item":{"id":"item-2","type":"command_execution","command":"false","exit_code":1}}`,
	)

	require.Len(t, chunks, 1)
	assert.Equal(t, stream.ToolStatusFailed, chunks[0].(stream.ToolResultChunk).Call.Status)
}

func TestCodexMessageAndReasoning(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p,
		`{"type":"item.completed","item":{"id":"r1","type":"reasoning","text":"considering"}}`,
		`{"type":"item.completed","item":{"id":"m1","type":"agent_message","text":"the answer"}}`,
	)

	require.Len(t, chunks, 2)
	assert.Equal(t, stream.ThinkingChunk{Text: "considering"}, chunks[0])
	assert.Equal(t, stream.TextChunk{Text: "the answer"}, chunks[1])
}

func TestCodexTurnCompleted(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p,
		`{"type":"turn.completed","usage":{"input_tokens":10,"cached_input_tokens":4,"output_tokens":7}}`,
	)

	require.Len(t, chunks, 1)
	done := chunks[0].(stream.DoneChunk)
	require.NotNil(t, done.Usage)
	assert.Equal(t, 10, done.Usage.InputTokens)
	assert.Equal(t, 7, done.Usage.OutputTokens)
	assert.Equal(t, 4, done.Usage.CacheReadTokens)
}

func TestCodexTurnFailed(t *testing.T) {
	p := Codex().NewParser()

	chunks := parseAll(t, p,
		`{"type":"turn.failed","error":{"message":"model overloaded"}}`,
	)

	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].(stream.ErrorChunk).Err.Error(), "model overloaded")
	assert.IsType(t, stream.DoneChunk{}, chunks[1])
}

func TestCodexBuildArgsResume(t *testing.T) {
	b := Codex()

	args := b.BuildArgs(SendRequest{Model: "o4"}, "th-2")
	assert.Equal(t, []string{"exec", "resume", "th-2", "--json", "--model", "o4", "-"}, args)

	fresh := b.BuildArgs(SendRequest{}, "")
	assert.Equal(t, []string{"exec", "--json", "-"}, fresh)
}
