// Package runner spawns backend CLI processes and owns their lifecycle. A
// Process streams raw stdout bytes to its consumer, captures stderr
// unconditionally, and is guaranteed to terminate: a hard timeout sends a
// graceful signal to the whole process group, then force-kills after a grace
// period. External cancellation takes the identical path.
package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/biodoia/mystlin/internal/procattr"
)

// Default lifecycle bounds. Both are configuration, not constants of the
// protocol; these values only apply when Options leaves them zero.
const (
	DefaultHardTimeout = 120 * time.Second
	DefaultGracePeriod = 5 * time.Second
)

const stderrCaptureLimit = 256 * 1024

// Options configures one process invocation.
type Options struct {
	Env         map[string]string
	WorkDir     string
	Stdin       string
	HardTimeout time.Duration
	GracePeriod time.Duration
}

// Result is the completion signal for a finished process.
type Result struct {
	Stderr   string
	ExitCode int
	TimedOut bool
	Stopped  bool
}

// SpawnError indicates the executable exists but failed to launch, or could
// not be found.
type SpawnError struct {
	Cause error
	Path  string
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Path, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }

// NotFound reports whether the spawn failed because the binary is missing.
func (e *SpawnError) NotFound() bool {
	return errors.Is(e.Cause, exec.ErrNotFound) || errors.Is(e.Cause, os.ErrNotExist)
}

// Process is a running CLI child. The prompt is written to stdin in full and
// stdin closed immediately; the backends read one prompt, not a dialogue.
type Process struct {
	cmd      *exec.Cmd
	output   chan []byte
	done     chan struct{}
	stop     chan struct{}
	timer    *time.Timer
	grace    time.Duration
	stopOnce sync.Once

	mu     sync.Mutex
	result Result
}

// Start spawns the executable and begins streaming its stdout. The returned
// Process always reaches completion within HardTimeout + GracePeriod plus
// scheduling slack, even if the child ignores the graceful signal.
func Start(path string, args []string, opts Options) (*Process, error) {
	if opts.HardTimeout <= 0 {
		opts.HardTimeout = DefaultHardTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	procattr.Set(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Cause: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: path, Cause: err}
	}

	p := &Process{
		cmd:    cmd,
		output: make(chan []byte, 64),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		grace:  opts.GracePeriod,
	}
	p.timer = time.AfterFunc(opts.HardTimeout, func() { p.terminate(true) })

	go func() {
		_, _ = io.WriteString(stdin, opts.Stdin)
		_ = stdin.Close()
	}()

	var readers sync.WaitGroup
	readers.Add(2)

	go func() {
		defer readers.Done()
		defer close(p.output)
		buf := make([]byte, 4096)
		for {
			n, readErr := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case p.output <- chunk:
				case <-p.stop:
					// Stop yielding immediately; keep draining so the child
					// cannot block on a full pipe while being torn down.
					for {
						if _, drainErr := stdout.Read(buf); drainErr != nil {
							return
						}
					}
				}
			}
			if readErr != nil {
				return
			}
		}
	}()

	var stderrBuf cappedBuffer
	go func() {
		defer readers.Done()
		_, _ = io.Copy(&stderrBuf, stderr)
	}()

	go func() {
		readers.Wait()
		err := cmd.Wait()
		p.timer.Stop()

		p.mu.Lock()
		p.result.ExitCode = exitCode(err)
		p.result.Stderr = stderrBuf.String()
		p.mu.Unlock()

		close(p.done)
	}()

	return p, nil
}

// Output returns the raw stdout byte stream. The channel closes at end of
// stream (or as soon as the process is stopped).
func (p *Process) Output() <-chan []byte {
	return p.output
}

// Done is closed once the completion result is available.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process has fully completed and returns its result.
func (p *Process) Wait() Result {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Stop cancels the process: graceful signal, then forced kill after the
// grace period. Idempotent, and a no-op on an already-finished process.
func (p *Process) Stop() {
	p.terminate(false)
}

func (p *Process) terminate(timedOut bool) {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		p.mu.Lock()
		p.result.TimedOut = timedOut
		p.result.Stopped = !timedOut
		p.mu.Unlock()

		close(p.stop)

		go func() {
			_ = procattr.SignalGroup(p.cmd.Process, syscall.SIGTERM)
			select {
			case <-p.done:
				return
			case <-time.After(p.grace):
			}
			_ = procattr.KillGroup(p.cmd.Process)
		}()
	})
}

// exitCode maps a Wait error to an exit code. Signal deaths report -1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// cappedBuffer keeps at most stderrCaptureLimit bytes and silently discards
// the rest, so a chatty CLI cannot grow memory without bound.
type cappedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := stderrCaptureLimit - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
