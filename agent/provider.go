package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/biodoia/mystlin/runner"
	"github.com/biodoia/mystlin/stream"
)

const chunkBufferSize = 64

// Provider owns one backend's in-flight process and session identifier. The
// process handle is exclusive: nothing else writes to that child's stdin.
type Provider struct {
	backend     Backend
	cliPath     string
	env         map[string]string
	hardTimeout time.Duration
	gracePeriod time.Duration

	mu        sync.Mutex
	proc      *runner.Process
	sessionID string
}

// Option configures a Provider.
type Option func(*Provider)

// WithCLIPath overrides PATH-based discovery with an explicit binary path.
func WithCLIPath(path string) Option {
	return func(p *Provider) { p.cliPath = path }
}

// WithEnv sets extra environment variables for spawned processes.
func WithEnv(env map[string]string) Option {
	return func(p *Provider) { p.env = env }
}

// WithHardTimeout bounds each process's total lifetime.
func WithHardTimeout(d time.Duration) Option {
	return func(p *Provider) { p.hardTimeout = d }
}

// WithGracePeriod sets the delay between graceful signal and forced kill.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Provider) { p.gracePeriod = d }
}

// New creates a Provider for the given backend.
func New(backend Backend, opts ...Option) *Provider {
	p := &Provider{backend: backend}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the backend identifier.
func (p *Provider) ID() string { return p.backend.ID() }

// DisplayName returns the backend's human-readable name.
func (p *Provider) DisplayName() string { return p.backend.DisplayName() }

// Capabilities returns the backend's capability flags.
func (p *Provider) Capabilities() Capabilities { return p.backend.Capabilities() }

// SessionID returns the current session identifier, or "" if none is known.
func (p *Provider) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// ClearSession forgets the current session. The next send starts fresh.
func (p *Provider) ClearSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = ""
}

// CancelCurrentRequest terminates the in-flight process, if any, and clears
// the reference. Safe to call with nothing in flight.
func (p *Provider) CancelCurrentRequest() {
	p.mu.Lock()
	proc := p.proc
	p.proc = nil
	p.mu.Unlock()

	if proc != nil {
		proc.Stop()
	}
}

// SendMessage runs one turn: assemble the prompt, spawn the CLI, normalize
// its output, and stream canonical chunks. The returned channel always
// terminates with exactly one DoneChunk, or with an ErrorChunk followed by
// nothing. Internal failures never escape as panics or errors; they become
// ErrorChunks.
func (p *Provider) SendMessage(ctx context.Context, req SendRequest) <-chan stream.Chunk {
	out := make(chan stream.Chunk, chunkBufferSize)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				out <- stream.ErrorChunk{Err: fmt.Errorf("internal error: %v", r), Context: "send"}
			}
		}()
		p.send(ctx, req, out)
	}()
	return out
}

func (p *Provider) send(ctx context.Context, req SendRequest, out chan<- stream.Chunk) {
	prompt := BuildPrompt(req)
	sessionID := p.SessionID()
	resumed := sessionID != ""
	args := p.backend.BuildArgs(req, sessionID)

	path := p.cliPath
	if path == "" {
		disc := p.DiscoverCLI(ctx)
		if !disc.Found {
			out <- stream.ErrorChunk{
				Err:     fmt.Errorf("%s CLI not installed", p.backend.DisplayName()),
				Context: "discover",
			}
			return
		}
		path = disc.Path
	}

	proc, err := runner.Start(path, args, runner.Options{
		Stdin:       prompt,
		WorkDir:     req.WorkDir,
		Env:         p.env,
		HardTimeout: p.hardTimeout,
		GracePeriod: p.gracePeriod,
	})
	if err != nil {
		out <- stream.ErrorChunk{Err: err, Context: "spawn"}
		return
	}

	p.mu.Lock()
	p.proc = proc
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.proc == proc {
			p.proc = nil
		}
		p.mu.Unlock()
	}()

	if req.OnProcessStart != nil {
		req.OnProcessStart(proc)
	}

	// Translate context cancellation into the same graceful-then-forced
	// termination as the hard timeout.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			proc.Stop()
		case <-watchDone:
		}
	}()

	norm := stream.NewNormalizer(p.backend.NewParser())
	if resumed {
		norm.MarkSessionKnown()
	}

	var usage *stream.Usage
	produced := false
	emit := func(chunks []stream.Chunk) {
		for _, c := range chunks {
			switch c := c.(type) {
			case stream.SessionChunk:
				// Session bookkeeping is forwarded but is not content: a run
				// that only announced its session id still counts as empty.
				p.adoptSession(c.SessionID)
				out <- c
				continue
			case stream.DoneChunk:
				// Terminal marker is appended once below, after the process
				// settles. Only the usage survives.
				if c.Usage != nil {
					usage = c.Usage
				}
				continue
			}
			produced = true
			out <- c
		}
	}

	for data := range proc.Output() {
		emit(norm.Feed(data))
	}
	emit(norm.Flush())

	res := proc.Wait()

	if !produced {
		switch {
		case res.TimedOut:
			out <- stream.ErrorChunk{
				Err:     fmt.Errorf("%s produced no output before the %s timeout", p.backend.ID(), p.timeoutForLog()),
				Context: "timeout",
			}
			return
		case res.ExitCode != 0 && !res.Stopped:
			if resumed {
				// The stale session is the most likely culprit; drop it so
				// the next turn starts clean.
				p.ClearSession()
			}
			msg := strings.TrimSpace(res.Stderr)
			if msg == "" {
				msg = fmt.Sprintf("%s exited with code %d", p.backend.ID(), res.ExitCode)
			}
			out <- stream.ErrorChunk{Err: errors.New(msg), Context: "exit"}
			return
		}
	}

	if res.ExitCode != 0 && produced {
		// Content already reached the user; a late non-zero exit is noise
		// more often than signal. Log it instead of surfacing an error.
		slog.Debug("provider exited non-zero after producing content",
			"provider", p.backend.ID(), "exit_code", res.ExitCode)
	}

	out <- stream.DoneChunk{Usage: usage}
}

// adoptSession records a freshly assigned session id. An already-known id is
// never overwritten.
func (p *Provider) adoptSession(id string) {
	if id == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID == "" {
		p.sessionID = id
	}
}

func (p *Provider) timeoutForLog() time.Duration {
	if p.hardTimeout > 0 {
		return p.hardTimeout
	}
	return runner.DefaultHardTimeout
}
