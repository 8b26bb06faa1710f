package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolveFallback(t *testing.T) {
	claude := New(Claude())
	codex := New(Codex())
	r, err := NewRegistry("claude", claude, codex)
	require.NoError(t, err)

	assert.Same(t, codex, r.Resolve("codex"))
	assert.Same(t, claude, r.Resolve("unknown"))
	assert.Same(t, claude, r.Resolve(""))

	_, ok := r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistryMissingDefault(t *testing.T) {
	_, err := NewRegistry("cursor", New(Claude()))
	assert.Error(t, err)
}

func TestRegistryDuplicateProvider(t *testing.T) {
	_, err := NewRegistry("claude", New(Claude()), New(Claude()))
	assert.Error(t, err)
}

func TestRegistryAvailableFiltersMissing(t *testing.T) {
	cli := writeFakeCLI(t, `printf '%s\n' '{"type":"result","is_error":false}'`)
	claude := New(Claude(), WithCLIPath(cli))
	codex := New(Codex(), WithCLIPath("/nonexistent/codex"))
	r, err := NewRegistry("claude", claude, codex)
	require.NoError(t, err)

	avail := r.Available(context.Background())

	require.Len(t, avail, 1)
	assert.Same(t, claude, avail[0])
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	r, err := NewRegistry("codex", New(Cursor()), New(Codex()), New(Claude()))
	require.NoError(t, err)

	var ids []string
	for _, p := range r.All() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"cursor", "codex", "claude"}, ids)
}
