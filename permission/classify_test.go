package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionForTool(t *testing.T) {
	cases := []struct {
		tool string
		want ActionType
	}{
		{"Read", ActionRead},
		{"Glob", ActionRead},
		{"Grep", ActionRead},
		{"Write", ActionCreate},
		{"Edit", ActionEdit},
		{"MultiEdit", ActionMultiFileEdit},
		{"Bash", ActionRunCommand},
		{"WebFetch", ActionWebRequest},
		{"WebSearch", ActionWebRequest},
		{"file_search", ActionRead},
		{"delete_file", ActionDelete},
		{"run_terminal_cmd", ActionRunCommand},
		{"SomethingUnknown", ActionRunCommand},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ActionForTool(tc.tool), "tool %s", tc.tool)
	}
}
