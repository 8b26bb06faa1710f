package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biodoia/mystlin/agent"
	"github.com/biodoia/mystlin/brainstorm"
	"github.com/biodoia/mystlin/config"
)

var (
	brainstormProviders []string
	brainstormFull      bool
	brainstormShowAll   bool
)

var brainstormCmd = &cobra.Command{
	Use:   "brainstorm <question>",
	Short: "Ask several providers at once and synthesize their answers",
	Long: `Fan the question out to multiple providers concurrently and combine
their answers into one. Quick mode synthesizes directly; --full runs a
critique round first where each provider reviews the others' answers.

Example:
  mystlin brainstorm "how should we shard the session store?"
  mystlin brainstorm "naming ideas for the new package" --full --providers claude,codex`,
	Args: cobra.ExactArgs(1),
	RunE: runBrainstorm,
}

func init() {
	brainstormCmd.Flags().StringSliceVar(&brainstormProviders, "providers", nil, "Provider ids to consult (default: all installed)")
	brainstormCmd.Flags().BoolVar(&brainstormFull, "full", false, "Run a critique round before synthesis")
	brainstormCmd.Flags().BoolVar(&brainstormShowAll, "show-answers", false, "Print each provider's individual answer")

	rootCmd.AddCommand(brainstormCmd)
}

func runBrainstorm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := setupContext()
	defer cancel()

	var clients []brainstorm.Client
	if len(brainstormProviders) > 0 {
		for _, id := range brainstormProviders {
			p, ok := reg.Get(id)
			if !ok {
				return fmt.Errorf("unknown provider %q", id)
			}
			clients = append(clients, p)
		}
	} else {
		for _, p := range reg.Available(ctx) {
			clients = append(clients, p)
		}
	}
	if len(clients) < 2 {
		return fmt.Errorf("brainstorm needs at least 2 providers installed, found %d", len(clients))
	}

	var opts []brainstorm.Option
	if p, ok := reg.Get(cfg.DefaultProvider); ok && containsClient(clients, p) {
		opts = append(opts, brainstorm.WithSynthesizer(p))
	}
	if cfg.CritiqueTemplate != "" {
		opts = append(opts, brainstorm.WithCritiqueTemplate(cfg.CritiqueTemplate))
	}

	orch, err := brainstorm.New(clients, opts...)
	if err != nil {
		return err
	}

	mode := brainstorm.ModeQuick
	if brainstormFull {
		mode = brainstorm.ModeFull
	}

	fmt.Fprintf(os.Stderr, "Consulting %d providers...\n", len(clients))
	result, err := orch.Run(ctx, agent.SendRequest{
		Message: args[0],
		Model:   modelOrDefault(cfg),
		WorkDir: workDir,
	}, mode)
	if err != nil {
		return err
	}

	if brainstormShowAll {
		for _, a := range result.Answers {
			fmt.Printf("=== %s ===\n", a.ProviderID)
			if a.Err != nil {
				fmt.Printf("(failed: %v)\n\n", a.Err)
				continue
			}
			fmt.Printf("%s\n\n", a.Text)
		}
		fmt.Println("=== synthesis ===")
	}
	fmt.Println(strings.TrimSpace(result.Synthesis))
	return nil
}

func containsClient(clients []brainstorm.Client, p *agent.Provider) bool {
	for _, c := range clients {
		if c == brainstorm.Client(p) {
			return true
		}
	}
	return false
}
