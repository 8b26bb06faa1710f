// Package permission gates risky tool actions behind human approval. Each
// request is a one-shot future keyed by id: user response, timeout, and
// cancellation all collapse to resolve-once-and-remove, so a late duplicate
// answer is a harmless no-op.
package permission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionType classifies what a tool wants to do.
type ActionType string

const (
	ActionRead          ActionType = "read"
	ActionCreate        ActionType = "create"
	ActionEdit          ActionType = "edit"
	ActionDelete        ActionType = "delete"
	ActionRunCommand    ActionType = "run-command"
	ActionWebRequest    ActionType = "web-request"
	ActionMultiFileEdit ActionType = "multi-file-edit"
)

// Risk is the presentation-level severity of an action. It never affects
// gating; only the action type and access level do.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// RiskOf classifies an action type.
func RiskOf(action ActionType) Risk {
	switch action {
	case ActionRead:
		return RiskLow
	case ActionCreate, ActionEdit, ActionWebRequest:
		return RiskMedium
	case ActionDelete, ActionRunCommand, ActionMultiFileEdit:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// AccessLevel is the per-conversation gating posture.
type AccessLevel int

const (
	// AccessReadOnly denies every non-read action without asking.
	AccessReadOnly AccessLevel = iota
	// AccessAskPermission gates non-read actions behind a request.
	AccessAskPermission
	// AccessFullAccess approves everything without asking.
	AccessFullAccess
)

// Decision is a user's answer to a request.
type Decision int

const (
	DecisionDeny Decision = iota
	DecisionApprove
	// DecisionAlwaysAllow approves and upgrades the session to full access.
	DecisionAlwaysAllow
)

// Status is a request's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Request is the payload handed to the UI collaborator.
type Request struct {
	Details   map[string]interface{}
	ID        string
	Action    ActionType
	Risk      Risk
	Status    Status
	CreatedAt time.Time
	// ExpiresAt is zero when no timeout applies.
	ExpiresAt time.Time
}

// Notifier delivers a pending request to whatever surface collects the
// user's decision.
type Notifier interface {
	NotifyPermissionRequest(req Request)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(req Request)

func (f NotifierFunc) NotifyPermissionRequest(req Request) { f(req) }

// TimeoutPolicy decides what happens when a request times out.
type TimeoutPolicy int

const (
	// TimeoutDeny auto-rejects on timeout.
	TimeoutDeny TimeoutPolicy = iota
	// TimeoutApprove auto-accepts on timeout.
	TimeoutApprove
	// TimeoutWait keeps the request pending until an explicit action.
	TimeoutWait
)

// Config controls timeout behavior. A zero Timeout means requests never
// expire on their own.
type Config struct {
	Timeout   time.Duration
	OnTimeout TimeoutPolicy
}

type pendingRequest struct {
	req     Request
	decided chan bool
	timer   *time.Timer
}

// Manager is the permission state machine for one conversation.
type Manager struct {
	notifier Notifier
	cfg      Config

	mu      sync.Mutex
	level   AccessLevel
	pending map[string]*pendingRequest
}

// NewManager creates a manager starting at ask-permission level.
func NewManager(notifier Notifier, cfg Config) *Manager {
	if notifier == nil {
		notifier = NotifierFunc(func(Request) {})
	}
	return &Manager{
		notifier: notifier,
		cfg:      cfg,
		level:    AccessAskPermission,
		pending:  make(map[string]*pendingRequest),
	}
}

// Level returns the current access level.
func (m *Manager) Level() AccessLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// SetLevel overrides the access level (e.g. read-only conversations).
func (m *Manager) SetLevel(level AccessLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

// Request asks whether the action may proceed. Reads resolve true without
// ever creating a pending entry, as does anything under full access. At
// read-only level every other action resolves false immediately. Otherwise
// the call blocks until the user decides, the configured timeout fires, or
// ctx is cancelled (which resolves to deny).
func (m *Manager) Request(ctx context.Context, action ActionType, details map[string]interface{}) bool {
	if action == ActionRead {
		return true
	}

	m.mu.Lock()
	switch m.level {
	case AccessFullAccess:
		m.mu.Unlock()
		return true
	case AccessReadOnly:
		m.mu.Unlock()
		return false
	}

	now := time.Now()
	pr := &pendingRequest{
		req: Request{
			ID:        uuid.NewString(),
			Action:    action,
			Risk:      RiskOf(action),
			Status:    StatusPending,
			Details:   details,
			CreatedAt: now,
		},
		decided: make(chan bool, 1),
	}
	if m.cfg.Timeout > 0 && m.cfg.OnTimeout != TimeoutWait {
		pr.req.ExpiresAt = now.Add(m.cfg.Timeout)
		id := pr.req.ID
		pr.timer = time.AfterFunc(m.cfg.Timeout, func() { m.expire(id) })
	}
	m.pending[pr.req.ID] = pr
	m.mu.Unlock()

	m.notifier.NotifyPermissionRequest(pr.req)

	select {
	case approved := <-pr.decided:
		return approved
	case <-ctx.Done():
		m.Cancel(pr.req.ID)
		return false
	}
}

// Respond applies the user's decision. Unknown or already-resolved ids are
// no-ops, including their always-allow upgrade: only a decision that lands on
// a live request changes the session level.
func (m *Manager) Respond(requestID string, decision Decision) {
	approved := decision != DecisionDeny
	status := StatusDenied
	if approved {
		status = StatusApproved
	}

	m.mu.Lock()
	pr := m.take(requestID)
	if pr != nil && decision == DecisionAlwaysAllow {
		m.level = AccessFullAccess
	}
	m.mu.Unlock()

	resolve(pr, status, approved)
}

// Cancel resolves a pending request to deny. Idempotent.
func (m *Manager) Cancel(requestID string) {
	m.mu.Lock()
	pr := m.take(requestID)
	m.mu.Unlock()

	resolve(pr, StatusDenied, false)
}

// Reset returns the session to ask-permission level and denies anything
// still pending. Used on conversation reset.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.level = AccessAskPermission
	var stale []*pendingRequest
	for id, pr := range m.pending {
		stale = append(stale, pr)
		delete(m.pending, id)
	}
	m.mu.Unlock()

	for _, pr := range stale {
		resolve(pr, StatusDenied, false)
	}
}

// PendingCount returns the number of unresolved requests.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) expire(requestID string) {
	approved := m.cfg.OnTimeout == TimeoutApprove

	m.mu.Lock()
	pr := m.take(requestID)
	m.mu.Unlock()

	resolve(pr, StatusExpired, approved)
}

// take removes and returns a pending request. Caller holds m.mu.
func (m *Manager) take(requestID string) *pendingRequest {
	pr, ok := m.pending[requestID]
	if !ok {
		return nil
	}
	delete(m.pending, requestID)
	if pr.timer != nil {
		pr.timer.Stop()
	}
	return pr
}

// resolve fires the one-shot waiter. The request left the pending map under
// the lock, so this runs at most once per request.
func resolve(pr *pendingRequest, status Status, approved bool) {
	if pr == nil {
		return
	}
	pr.req.Status = status
	pr.decided <- approved
}
