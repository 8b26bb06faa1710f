package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentWindow(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 15; i++ {
		s.Append(Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	recent := s.Recent(10)
	require.Len(t, recent, 10)
	assert.Equal(t, "m5", recent[0].Content)
	assert.Equal(t, "m14", recent[9].Content)

	all := s.Recent(0)
	assert.Len(t, all, 15)
}

func TestRecentReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Append(Message{Role: RoleUser, Content: "original"})

	recent := s.Recent(10)
	recent[0].Content = "mutated"

	assert.Equal(t, "original", s.Recent(10)[0].Content)
}

func TestUpdate(t *testing.T) {
	s := NewMemoryStore()
	s.Append(Message{Role: RoleAssistant, Content: "partial"})

	assert.True(t, s.Update(0, Message{Role: RoleAssistant, Content: "complete"}))
	assert.Equal(t, "complete", s.Recent(1)[0].Content)

	assert.False(t, s.Update(5, Message{}))
	assert.False(t, s.Update(-1, Message{}))
}

func TestClear(t *testing.T) {
	s := NewMemoryStore()
	s.Append(Message{Role: RoleUser, Content: "x"})
	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Recent(10))
}
