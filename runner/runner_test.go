package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectOutput(p *Process) string {
	var sb strings.Builder
	for chunk := range p.Output() {
		sb.Write(chunk)
	}
	return sb.String()
}

func TestRunEchoesStdinAndExitsZero(t *testing.T) {
	p, err := Start("/bin/cat", nil, Options{Stdin: "hello prompt"})
	require.NoError(t, err)

	out := collectOutput(p)
	res := p.Wait()

	assert.Equal(t, "hello prompt", out)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestStderrIsCaptured(t *testing.T) {
	p, err := Start("/bin/sh", []string{"-c", "echo oops >&2; exit 3"}, Options{})
	require.NoError(t, err)

	collectOutput(p)
	res := p.Wait()

	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "oops")
}

func TestSpawnFailureOnMissingBinary(t *testing.T) {
	_, err := Start("/nonexistent/definitely-not-a-cli", nil, Options{})

	require.Error(t, err)
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.NotFound())
}

func TestHardTimeoutTerminatesSigtermIgnoringProcess(t *testing.T) {
	// The child traps and ignores TERM, so only the forced kill after the
	// grace period can end it.
	p, err := Start("/bin/sh", []string{"-c", `trap "" TERM; sleep 60`}, Options{
		HardTimeout: 200 * time.Millisecond,
		GracePeriod: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	collectOutput(p)
	res := p.Wait()

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, res.TimedOut)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestStopTerminatesAndStopsYielding(t *testing.T) {
	p, err := Start("/bin/sh", []string{"-c", "while true; do echo tick; sleep 0.05; done"}, Options{
		GracePeriod: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	// Read a little, then cancel.
	select {
	case <-p.Output():
	case <-time.After(5 * time.Second):
		t.Fatal("no output before stop")
	}
	p.Stop()

	start := time.Now()
	collectOutput(p)
	res := p.Wait()

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, res.Stopped)
	assert.False(t, res.TimedOut)
}

func TestStopIsIdempotent(t *testing.T) {
	p, err := Start("/bin/sh", []string{"-c", "sleep 60"}, Options{
		GracePeriod: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	p.Stop()
	p.Stop()
	collectOutput(p)
	p.Wait()
	p.Stop() // no-op on a finished process
}

func TestOutputStreamsBeforeExit(t *testing.T) {
	p, err := Start("/bin/sh", []string{"-c", "echo first; sleep 60"}, Options{
		GracePeriod: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer p.Stop()

	select {
	case chunk := <-p.Output():
		assert.Contains(t, string(chunk), "first")
	case <-time.After(5 * time.Second):
		t.Fatal("expected streamed output while process still running")
	}
	p.Stop()
	collectOutput(p)
	p.Wait()
}
