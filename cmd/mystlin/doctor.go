package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/biodoia/mystlin/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check which backend CLIs are installed and authenticated",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
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

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tINSTALLED\tVERSION\tAUTH\tNOTE")

	anyMissing := false
	for _, p := range reg.All() {
		disc := p.DiscoverCLI(ctx)
		if !disc.Found {
			anyMissing = true
			fmt.Fprintf(w, "%s\tno\t-\t-\t%s CLI not found in PATH\n", p.ID(), p.DisplayName())
			continue
		}

		auth := p.CheckAuthentication(ctx)
		authCol := "yes"
		note := ""
		if !auth.Authenticated {
			authCol = "no"
			note = "run: " + auth.Remediation
		}
		version := disc.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, "%s\tyes\t%s\t%s\t%s\n", p.ID(), version, authCol, note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ndefault provider: %s\n", cfg.DefaultProvider)
	if config.Exists() {
		fmt.Println("config: loaded")
	} else {
		fmt.Printf("config: none found (looked for %s and %s)\n", config.ProjectPath(), config.GlobalPath())
	}

	if anyMissing {
		fmt.Println("\nsome providers are missing; mystlin works with any subset that is installed")
	}
	return nil
}
