package permission

import "strings"

// ActionForTool maps a backend tool name to the action type it performs.
// Unknown tools are treated as command execution, the most conservative
// gate.
func ActionForTool(name string) ActionType {
	switch name {
	case "Read", "Glob", "Grep", "LS", "NotebookRead":
		return ActionRead
	case "Write", "NotebookWrite":
		return ActionCreate
	case "Edit":
		return ActionEdit
	case "MultiEdit":
		return ActionMultiFileEdit
	case "Bash", "BashOutput", "KillShell":
		return ActionRunCommand
	case "WebFetch", "WebSearch":
		return ActionWebRequest
	case "Delete", "Remove":
		return ActionDelete
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "read") || strings.Contains(lower, "search") || strings.Contains(lower, "list"):
		return ActionRead
	case strings.Contains(lower, "delete") || strings.Contains(lower, "remove"):
		return ActionDelete
	case strings.Contains(lower, "write") || strings.Contains(lower, "create"):
		return ActionCreate
	case strings.Contains(lower, "edit"):
		return ActionEdit
	case strings.Contains(lower, "web") || strings.Contains(lower, "fetch") || strings.Contains(lower, "http"):
		return ActionWebRequest
	default:
		return ActionRunCommand
	}
}
