package agent

import "sync"

// Canceler is the process handle the panel table stores. *runner.Process
// satisfies it; tests substitute stubs.
type Canceler interface {
	Stop()
}

// PanelTable maps a panel (conversation) handle to its in-flight child
// process so one panel can be cancelled without touching the others. All
// operations are single-step under the mutex; there is at most one live
// entry per panel.
type PanelTable struct {
	mu    sync.Mutex
	procs map[string]Canceler
}

// NewPanelTable creates an empty table.
func NewPanelTable() *PanelTable {
	return &PanelTable{procs: make(map[string]Canceler)}
}

// Register records the process for a panel when a send begins. A stale
// previous entry, if any, is stopped first.
func (t *PanelTable) Register(panelID string, proc Canceler) {
	t.mu.Lock()
	prev := t.procs[panelID]
	t.procs[panelID] = proc
	t.mu.Unlock()

	if prev != nil && prev != proc {
		prev.Stop()
	}
}

// Cancel stops and removes exactly the given panel's process. Returns false
// if the panel had nothing in flight; cancelling twice is a no-op.
func (t *PanelTable) Cancel(panelID string) bool {
	t.mu.Lock()
	proc, ok := t.procs[panelID]
	delete(t.procs, panelID)
	t.mu.Unlock()

	if !ok {
		return false
	}
	proc.Stop()
	return true
}

// Release removes the entry on natural completion, but only if it still
// refers to the given process; a newer send's entry is left alone.
func (t *PanelTable) Release(panelID string, proc Canceler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.procs[panelID] == proc {
		delete(t.procs, panelID)
	}
}

// Active reports whether a panel has a process in flight.
func (t *PanelTable) Active(panelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.procs[panelID]
	return ok
}

// Len returns the number of live entries.
func (t *PanelTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}
