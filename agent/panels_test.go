package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProc struct {
	stopped int
}

func (s *stubProc) Stop() { s.stopped++ }

func TestPanelCancelIsolation(t *testing.T) {
	table := NewPanelTable()
	a := &stubProc{}
	b := &stubProc{}
	table.Register("panel-a", a)
	table.Register("panel-b", b)

	assert.True(t, table.Cancel("panel-a"))

	assert.Equal(t, 1, a.stopped)
	assert.Zero(t, b.stopped)
	assert.False(t, table.Active("panel-a"))
	assert.True(t, table.Active("panel-b"))
	assert.Equal(t, 1, table.Len())
}

func TestPanelCancelIdempotent(t *testing.T) {
	table := NewPanelTable()
	a := &stubProc{}
	table.Register("panel-a", a)

	assert.True(t, table.Cancel("panel-a"))
	assert.False(t, table.Cancel("panel-a"))
	assert.False(t, table.Cancel("never-existed"))
	assert.Equal(t, 1, a.stopped)
}

func TestPanelRegisterStopsStaleEntry(t *testing.T) {
	table := NewPanelTable()
	old := &stubProc{}
	table.Register("panel-a", old)

	fresh := &stubProc{}
	table.Register("panel-a", fresh)

	assert.Equal(t, 1, old.stopped)
	assert.Zero(t, fresh.stopped)
	assert.Equal(t, 1, table.Len())
}

func TestPanelReleaseDoesNotStop(t *testing.T) {
	table := NewPanelTable()
	a := &stubProc{}
	table.Register("panel-a", a)

	// A stream that drained on its own is released, never signaled.
	table.Release("panel-a", a)

	assert.Zero(t, a.stopped)
	assert.False(t, table.Active("panel-a"))
	assert.Zero(t, table.Len())
}

func TestPanelReleaseOnlyCurrent(t *testing.T) {
	table := NewPanelTable()
	first := &stubProc{}
	table.Register("panel-a", first)

	second := &stubProc{}
	table.Register("panel-a", second)

	// Natural completion of the superseded process leaves the new entry.
	table.Release("panel-a", first)
	assert.True(t, table.Active("panel-a"))

	table.Release("panel-a", second)
	assert.False(t, table.Active("panel-a"))
}
