package permission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureNotifier records requests and optionally answers them.
type captureNotifier struct {
	mu       sync.Mutex
	requests []Request
	respond  func(req Request)
}

func (c *captureNotifier) NotifyPermissionRequest(req Request) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.respond != nil {
		c.respond(req)
	}
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func TestReadNeverCreatesPendingEntry(t *testing.T) {
	n := &captureNotifier{}
	m := NewManager(n, Config{Timeout: time.Hour})

	ok := m.Request(context.Background(), ActionRead, nil)

	assert.True(t, ok)
	assert.Zero(t, m.PendingCount())
	assert.Zero(t, n.count())
}

func TestReadOnlyDeniesImmediately(t *testing.T) {
	n := &captureNotifier{}
	m := NewManager(n, Config{})
	m.SetLevel(AccessReadOnly)

	assert.False(t, m.Request(context.Background(), ActionEdit, nil))
	assert.True(t, m.Request(context.Background(), ActionRead, nil))
	assert.Zero(t, n.count())
}

func TestApproveDecision(t *testing.T) {
	var m *Manager
	n := &captureNotifier{respond: func(req Request) {
		m.Respond(req.ID, DecisionApprove)
	}}
	m = NewManager(n, Config{})

	ok := m.Request(context.Background(), ActionRunCommand, map[string]interface{}{"command": "ls"})

	assert.True(t, ok)
	assert.Zero(t, m.PendingCount())
	assert.Equal(t, AccessAskPermission, m.Level())
}

func TestDenyDecision(t *testing.T) {
	var m *Manager
	n := &captureNotifier{respond: func(req Request) {
		m.Respond(req.ID, DecisionDeny)
	}}
	m = NewManager(n, Config{})

	assert.False(t, m.Request(context.Background(), ActionDelete, nil))
}

func TestAlwaysAllowUpgradesSession(t *testing.T) {
	var m *Manager
	n := &captureNotifier{respond: func(req Request) {
		m.Respond(req.ID, DecisionAlwaysAllow)
	}}
	m = NewManager(n, Config{})

	require.True(t, m.Request(context.Background(), ActionEdit, nil))
	assert.Equal(t, AccessFullAccess, m.Level())

	// Subsequent requests resolve without notifying anyone.
	before := n.count()
	assert.True(t, m.Request(context.Background(), ActionRunCommand, nil))
	assert.Equal(t, before, n.count())
	assert.Zero(t, m.PendingCount())

	// Reset returns to gated behavior.
	m.Reset()
	assert.Equal(t, AccessAskPermission, m.Level())
}

func TestAlwaysAllowAfterExpiryKeepsLevel(t *testing.T) {
	n := &captureNotifier{}
	m := NewManager(n, Config{Timeout: 20 * time.Millisecond, OnTimeout: TimeoutDeny})

	require.False(t, m.Request(context.Background(), ActionRunCommand, nil))
	require.Equal(t, 1, n.count())

	// A decision arriving after the timeout already resolved the request must
	// not upgrade the session.
	m.Respond(n.requests[0].ID, DecisionAlwaysAllow)
	assert.Equal(t, AccessAskPermission, m.Level())

	// The next risky action is still gated and still times out to deny.
	assert.False(t, m.Request(context.Background(), ActionEdit, nil))
	assert.Equal(t, 2, n.count())
}

func TestTimeoutDeny(t *testing.T) {
	m := NewManager(nil, Config{Timeout: 20 * time.Millisecond, OnTimeout: TimeoutDeny})

	start := time.Now()
	ok := m.Request(context.Background(), ActionEdit, nil)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, m.PendingCount())
}

func TestTimeoutApprove(t *testing.T) {
	m := NewManager(nil, Config{Timeout: 20 * time.Millisecond, OnTimeout: TimeoutApprove})

	assert.True(t, m.Request(context.Background(), ActionEdit, nil))
}

func TestTimeoutWaitKeepsPending(t *testing.T) {
	var m *Manager
	n := &captureNotifier{respond: func(req Request) {
		go func() {
			time.Sleep(80 * time.Millisecond)
			m.Respond(req.ID, DecisionApprove)
		}()
	}}
	m = NewManager(n, Config{Timeout: 10 * time.Millisecond, OnTimeout: TimeoutWait})

	// Outlives the timeout because wait policy never auto-resolves.
	assert.True(t, m.Request(context.Background(), ActionEdit, nil))
}

func TestContextCancelDenies(t *testing.T) {
	m := NewManager(nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() { done <- m.Request(ctx, ActionRunCommand, nil) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not resolve after cancel")
	}
	assert.Zero(t, m.PendingCount())
}

func TestDuplicateRespondIsNoOp(t *testing.T) {
	var m *Manager
	n := &captureNotifier{respond: func(req Request) {
		m.Respond(req.ID, DecisionApprove)
		m.Respond(req.ID, DecisionDeny)
		m.Respond("no-such-id", DecisionApprove)
	}}
	m = NewManager(n, Config{})

	assert.True(t, m.Request(context.Background(), ActionEdit, nil))
}

func TestResetDeniesPending(t *testing.T) {
	m := NewManager(nil, Config{})

	done := make(chan bool, 1)
	go func() { done <- m.Request(context.Background(), ActionEdit, nil) }()

	require.Eventually(t, func() bool { return m.PendingCount() == 1 }, time.Second, 5*time.Millisecond)
	m.Reset()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not denied by reset")
	}
}

func TestRiskClassification(t *testing.T) {
	assert.Equal(t, RiskLow, RiskOf(ActionRead))
	assert.Equal(t, RiskMedium, RiskOf(ActionEdit))
	assert.Equal(t, RiskHigh, RiskOf(ActionRunCommand))
	assert.Equal(t, RiskHigh, RiskOf(ActionMultiFileEdit))
}
