package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds the --version and auth probes so a wedged CLI cannot
// stall discovery.
const probeTimeout = 5 * time.Second

// Discovery is the result of locating a backend CLI. Never an error: a
// missing binary is Found=false.
type Discovery struct {
	Found   bool
	Path    string
	Version string
}

// AuthStatus is the result of an authentication probe.
type AuthStatus struct {
	Authenticated bool
	Detail        string
	Remediation   string
}

// DiscoverCLI locates the backend executable and probes its version. It
// never returns an error; any failure yields Found=false. The version probe
// respects ctx as well as its own timeout.
func (p *Provider) DiscoverCLI(ctx context.Context) Discovery {
	path := p.cliPath
	if path == "" {
		found, err := exec.LookPath(p.backend.BinaryName())
		if err != nil {
			return Discovery{}
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		return Discovery{}
	}

	return Discovery{
		Found:   true,
		Path:    path,
		Version: probeVersion(ctx, path),
	}
}

// CheckAuthentication runs the backend's auth probe. Zero exit means
// authenticated; anything else carries the manual remediation command.
func (p *Provider) CheckAuthentication(ctx context.Context) AuthStatus {
	disc := p.DiscoverCLI(ctx)
	if !disc.Found {
		return AuthStatus{
			Detail: fmt.Sprintf("%s CLI not installed", p.backend.DisplayName()),
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, disc.Path, p.backend.AuthProbeArgs()...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(combined.String())
		if detail == "" {
			detail = err.Error()
		}
		return AuthStatus{
			Detail:      detail,
			Remediation: p.backend.LoginHint(),
		}
	}

	return AuthStatus{Authenticated: true}
}

// probeVersion runs `<binary> --version` and returns the first stdout line.
// Stderr is discarded; some CLIs print runtime deprecation noise there.
func probeVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--version")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	firstLine := strings.SplitN(strings.TrimSpace(out.String()), "\n", 2)[0]
	return strings.TrimSpace(firstLine)
}
