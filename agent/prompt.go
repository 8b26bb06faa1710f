package agent

import (
	"fmt"
	"strings"
)

// HistoryWindow bounds how much conversation history a single turn sees.
const HistoryWindow = 10

// BuildPrompt assembles the full prompt text in fixed order: persona/skill
// instructions, formatted context, the recent history window, the user's
// message verbatim, and the mode directive last.
//
// A message beginning with "/" is a native backend slash-command, not prose;
// it bypasses assembly entirely and is passed through unmodified.
func BuildPrompt(req SendRequest) string {
	if strings.HasPrefix(req.Message, "/") {
		return req.Message
	}

	var b strings.Builder

	if req.Instructions != "" {
		b.WriteString(req.Instructions)
		b.WriteString("\n\n")
	}

	if len(req.Context) > 0 {
		b.WriteString("## Context\n\n")
		for _, item := range req.Context {
			writeContextItem(&b, item)
		}
	}

	hist := req.History
	if len(hist) > HistoryWindow {
		hist = hist[len(hist)-HistoryWindow:]
	}
	if len(hist) > 0 {
		b.WriteString("## Conversation so far\n\n")
		for _, m := range hist {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString(req.Message)

	if d := req.Mode.Directive(); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}

	return b.String()
}

func writeContextItem(b *strings.Builder, item ContextItem) {
	if item.StartLine > 0 {
		fmt.Fprintf(b, "### %s (lines %d-%d)\n", item.Path, item.StartLine, item.EndLine)
	} else {
		fmt.Fprintf(b, "### %s\n", item.Path)
	}
	fmt.Fprintf(b, "```%s\n", item.Language)
	b.WriteString(item.Content)
	if !strings.HasSuffix(item.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
}
