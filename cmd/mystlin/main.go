// Command mystlin chats with local AI assistant CLIs through one canonical
// streaming interface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/biodoia/mystlin/agent"
	"github.com/biodoia/mystlin/config"
	"github.com/biodoia/mystlin/permission"
)

// Global flags (persistent across all commands)
var (
	providerID string
	model      string
	workDir    string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mystlin",
	Short: "One streaming interface over local AI assistant CLIs",
	Long: `mystlin spawns locally installed AI assistant CLIs (Claude Code, Codex,
Cursor Agent), normalizes their streaming output into one canonical chunk
protocol, and keeps session continuity across turns.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&providerID, "provider", "p", "", "Provider id (claude, codex, cursor); defaults to the configured default")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model override passed to the backend")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", ".", "Working directory for the spawned CLI")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Hard timeout per request (e.g. 2m). 0 uses the configured default")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging configures the process-wide slog handler from flags/config.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if verbose || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// setupContext creates a context cancelled on SIGINT/SIGTERM; a second
// signal forces exit.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nCancelling...")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	return ctx, cancel
}

// buildRegistry wires every known backend into a registry using the config's
// per-provider overrides.
func buildRegistry(cfg *config.Config) (*agent.Registry, error) {
	hardTimeout := cfg.HardTimeout()
	if timeout > 0 {
		hardTimeout = timeout
	}

	newProvider := func(b agent.Backend) *agent.Provider {
		opts := []agent.Option{
			agent.WithHardTimeout(hardTimeout),
			agent.WithGracePeriod(cfg.GracePeriod()),
		}
		if path := cfg.CLIPath(b.ID()); path != "" {
			opts = append(opts, agent.WithCLIPath(path))
		}
		return agent.New(b, opts...)
	}

	return agent.NewRegistry(cfg.DefaultProvider,
		newProvider(agent.Claude()),
		newProvider(agent.Codex()),
		newProvider(agent.Cursor()),
	)
}

// permissionConfig maps config strings onto the permission manager's
// timeout policy.
func permissionConfig(cfg *config.Config) permission.Config {
	policy := permission.TimeoutDeny
	switch cfg.OnTimeout {
	case "approve":
		policy = permission.TimeoutApprove
	case "wait":
		policy = permission.TimeoutWait
	}
	return permission.Config{
		Timeout:   cfg.PermissionTimeoutDuration(),
		OnTimeout: policy,
	}
}

func resolveProvider(cfg *config.Config, reg *agent.Registry) *agent.Provider {
	id := providerID
	if id == "" {
		id = cfg.DefaultProvider
	}
	return reg.Resolve(id)
}
