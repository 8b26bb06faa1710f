package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/biodoia/mystlin/agent"
	"github.com/biodoia/mystlin/config"
	"github.com/biodoia/mystlin/history"
	"github.com/biodoia/mystlin/permission"
	"github.com/biodoia/mystlin/persona"
	"github.com/biodoia/mystlin/runner"
	"github.com/biodoia/mystlin/stream"
)

var (
	chatMode     string
	chatPersona  string
	chatSkills   []string
	contextFiles []string
	transcript   string
	showThinking bool
	yoloMode     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message and stream the reply",
	Long: `Send a message to the selected provider and stream its reply.

Messages beginning with "/" are passed to the backend verbatim as native
slash-commands.

Example:
  mystlin chat "explain this function" --context main.go
  mystlin chat "refactor the config loader" --mode agent --persona architect`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatMode, "mode", "chat", "Interaction mode: chat, plan, or agent")
	chatCmd.Flags().StringVar(&chatPersona, "persona", "", "Persona id (overrides the configured default)")
	chatCmd.Flags().StringArrayVar(&chatSkills, "skill", nil, "Skill id to enable (repeatable)")
	chatCmd.Flags().StringArrayVarP(&contextFiles, "context", "c", nil, "File to include as context (repeatable)")
	chatCmd.Flags().BoolVar(&showThinking, "thinking", false, "Show the model's reasoning stream")
	chatCmd.Flags().StringVar(&transcript, "transcript", "", "Append the chunk stream to this file for later replay")
	chatCmd.Flags().BoolVar(&yoloMode, "yolo", false, "Approve every tool action without asking")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	provider := resolveProvider(cfg, reg)

	ctx, cancel := setupContext()
	defer cancel()

	items, err := loadContextFiles(contextFiles)
	if err != nil {
		return err
	}

	personaID := chatPersona
	if personaID == "" {
		personaID = cfg.Persona
	}
	skills := chatSkills
	if len(skills) == 0 {
		skills = cfg.Skills
	}
	instructions := persona.NewResolver(nil).BuildInstructions(personaID, skills)

	notifier := newTerminalNotifier()
	perms := permission.NewManager(notifier, permissionConfig(cfg))
	notifier.manager = perms
	if yoloMode {
		perms.SetLevel(permission.AccessFullAccess)
	}

	store := history.NewMemoryStore()
	panels := agent.NewPanelTable()
	var chatProc *runner.Process

	req := agent.SendRequest{
		Message:      args[0],
		Context:      items,
		History:      store.Recent(cfg.HistoryWindow),
		Instructions: instructions,
		Mode:         agent.Mode(chatMode),
		Model:        modelOrDefault(cfg),
		WorkDir:      workDir,
		OnProcessStart: func(proc *runner.Process) {
			chatProc = proc
			panels.Register("chat", proc)
		},
	}

	store.Append(history.Message{Role: history.RoleUser, Content: args[0]})

	var recorder *stream.Recorder
	if transcript != "" {
		f, err := os.OpenFile(transcript, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer f.Close()
		recorder = stream.NewRecorder(f)
	}

	var reply strings.Builder
	var failed error
	for chunk := range provider.SendMessage(ctx, req) {
		if recorder != nil {
			if err := recorder.Record(chunk); err != nil {
				slog.Warn("transcript write failed", "error", err)
				recorder = nil
			}
		}
		switch c := chunk.(type) {
		case stream.TextChunk:
			fmt.Print(c.Text)
			reply.WriteString(c.Text)

		case stream.ThinkingChunk:
			if showThinking {
				fmt.Fprintf(os.Stderr, "\x1b[2m%s\x1b[0m", c.Text)
			}

		case stream.ToolUseChunk:
			fmt.Fprintf(os.Stderr, "\n[tool] %s %s\n", c.Call.Name, summarizeInput(c.Call.Input))
			action := permission.ActionForTool(c.Call.Name)
			if !perms.Request(ctx, action, c.Call.Input) {
				fmt.Fprintln(os.Stderr, "[tool] denied, cancelling request")
				provider.CancelCurrentRequest()
			}

		case stream.ToolResultChunk:
			if c.Call.Status == stream.ToolStatusFailed {
				fmt.Fprintf(os.Stderr, "[tool] failed: %s\n", firstLine(c.Output))
			}

		case stream.SessionChunk:
			// Printed at the end alongside usage.

		case stream.ErrorChunk:
			failed = c.Err
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", c.Err)

		case stream.DoneChunk:
			fmt.Println()
			printUsage(c.Usage)
		}
	}

	// The stream ended on its own; unregister the panel without signaling a
	// process that already exited.
	if chatProc != nil {
		panels.Release("chat", chatProc)
	}
	if reply.Len() > 0 {
		store.Append(history.Message{Role: history.RoleAssistant, Content: reply.String()})
	}

	if sess := provider.SessionID(); sess != "" && verbose {
		fmt.Fprintf(os.Stderr, "session: %s\n", sess)
	}
	if failed != nil && reply.Len() == 0 {
		return fmt.Errorf("request failed: %w", failed)
	}
	return nil
}

func modelOrDefault(cfg *config.Config) string {
	if model != "" {
		return model
	}
	return cfg.Model
}

// loadContextFiles reads each path into a ContextItem with a language tag
// derived from the extension.
func loadContextFiles(paths []string) ([]agent.ContextItem, error) {
	var items []agent.ContextItem
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading context file %s: %w", path, err)
		}
		items = append(items, agent.ContextItem{
			Path:     path,
			Content:  string(data),
			Language: languageForExt(filepath.Ext(path)),
		})
	}
	return items, nil
}

func languageForExt(ext string) string {
	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".rs":
		return "rust"
	case ".sh":
		return "bash"
	case ".json":
		return "json"
	case ".yml", ".yaml":
		return "yaml"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}

func summarizeInput(input map[string]interface{}) string {
	for _, key := range []string{"command", "path", "file_path", "pattern", "url"} {
		if v, ok := input[key].(string); ok {
			return firstLine(v)
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func printUsage(u *stream.Usage) {
	if u == nil || !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "tokens: %d in / %d out (%d cached)", u.InputTokens, u.OutputTokens, u.CacheReadTokens)
	if u.CostUSD > 0 {
		fmt.Fprintf(os.Stderr, ", cost: $%.4f", u.CostUSD)
	}
	fmt.Fprintln(os.Stderr)
}

// terminalNotifier prompts on the terminal and feeds the decision back to
// the manager. One prompt at a time.
type terminalNotifier struct {
	manager *permission.Manager
	mu      sync.Mutex
	in      *bufio.Reader
}

func newTerminalNotifier() *terminalNotifier {
	return &terminalNotifier{in: bufio.NewReader(os.Stdin)}
}

func (n *terminalNotifier) NotifyPermissionRequest(req permission.Request) {
	go func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		fmt.Fprintf(os.Stderr, "[permission] allow %s (%s risk)? [y/N/a]: ", req.Action, req.Risk)
		line, err := n.in.ReadString('\n')
		if err != nil {
			n.manager.Respond(req.ID, permission.DecisionDeny)
			return
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			n.manager.Respond(req.ID, permission.DecisionApprove)
		case "a", "always":
			n.manager.Respond(req.ID, permission.DecisionAlwaysAllow)
		default:
			n.manager.Respond(req.ID, permission.DecisionDeny)
		}
	}()
}
