package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biodoia/mystlin/stream"
)

var replayCmd = &cobra.Command{
	Use:   "replay <transcript>",
	Short: "Print a recorded chunk transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	chunks, err := stream.ReadTranscript(f)
	if err != nil {
		return fmt.Errorf("reading transcript: %w", err)
	}

	for _, chunk := range chunks {
		switch c := chunk.(type) {
		case stream.TextChunk:
			fmt.Print(c.Text)
		case stream.ThinkingChunk:
			fmt.Fprintf(os.Stderr, "\x1b[2m%s\x1b[0m", c.Text)
		case stream.ToolUseChunk:
			fmt.Fprintf(os.Stderr, "\n[tool] %s %s\n", c.Call.Name, summarizeInput(c.Call.Input))
		case stream.ToolResultChunk:
			if c.Call.Status == stream.ToolStatusFailed {
				fmt.Fprintf(os.Stderr, "[tool] failed: %s\n", firstLine(c.Output))
			}
		case stream.SessionChunk:
			fmt.Fprintf(os.Stderr, "session: %s\n", c.SessionID)
		case stream.ErrorChunk:
			fmt.Fprintf(os.Stderr, "error: %v\n", c.Err)
		case stream.DoneChunk:
			fmt.Println()
		}
	}
	return nil
}
