// Package persona resolves persona and skill definitions into prompt
// instructions. Lookup is a two-step fallback: a dynamic Source (user or
// workspace definitions) is consulted first, then a built-in table.
package persona

import (
	"strings"
)

// Definition is one persona or skill: a stable id plus the instruction text
// it contributes to the prompt.
type Definition struct {
	ID           string
	Name         string
	Instructions string
}

// Source supplies dynamically loaded definitions. Lookups return false when
// the id is unknown or the source is unavailable; the built-in table is then
// consulted.
type Source interface {
	Persona(id string) (Definition, bool)
	Skill(id string) (Definition, bool)
}

var builtinPersonas = map[string]Definition{
	"architect": {
		ID:   "architect",
		Name: "Architect",
		Instructions: "You are a senior software architect. Weigh trade-offs explicitly, " +
			"favor simple designs over clever ones, and call out long-term maintenance costs.",
	},
	"reviewer": {
		ID:   "reviewer",
		Name: "Code Reviewer",
		Instructions: "You are a meticulous code reviewer. Point out correctness issues first, " +
			"then style. Reference the specific lines you are commenting on.",
	},
	"pair": {
		ID:   "pair",
		Name: "Pair Programmer",
		Instructions: "You are pair programming with the user. Think out loud briefly, " +
			"propose small incremental changes, and ask before large refactors.",
	},
}

var builtinSkills = map[string]Definition{
	"testing": {
		ID:           "testing",
		Name:         "Testing",
		Instructions: "When writing code, include table-driven tests for the behavior you add.",
	},
	"security": {
		ID:           "security",
		Name:         "Security",
		Instructions: "Flag any input that crosses a trust boundary and check it for injection or traversal issues.",
	},
	"docs": {
		ID:           "docs",
		Name:         "Documentation",
		Instructions: "Keep doc comments up to date with any exported identifier you touch.",
	},
}

// Resolver builds combined instruction text from a selected persona and any
// enabled skills. A nil Source skips straight to the built-in table.
type Resolver struct {
	source Source
}

// NewResolver returns a resolver backed by the given dynamic source, which
// may be nil.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

func (r *Resolver) lookupPersona(id string) (Definition, bool) {
	if r.source != nil {
		if def, ok := r.source.Persona(id); ok {
			return def, true
		}
	}
	def, ok := builtinPersonas[id]
	return def, ok
}

func (r *Resolver) lookupSkill(id string) (Definition, bool) {
	if r.source != nil {
		if def, ok := r.source.Skill(id); ok {
			return def, true
		}
	}
	def, ok := builtinSkills[id]
	return def, ok
}

// BuildInstructions assembles the instruction block for a prompt. The
// persona id may be empty and unknown ids are skipped, so the result can be
// empty.
func (r *Resolver) BuildInstructions(personaID string, skillIDs []string) string {
	var parts []string

	if personaID != "" {
		if def, ok := r.lookupPersona(personaID); ok {
			parts = append(parts, def.Instructions)
		}
	}

	for _, id := range skillIDs {
		if def, ok := r.lookupSkill(id); ok {
			parts = append(parts, def.Instructions)
		}
	}

	return strings.Join(parts, "\n\n")
}

// BuiltinPersonaIDs lists the ids in the built-in persona table.
func BuiltinPersonaIDs() []string {
	ids := make([]string, 0, len(builtinPersonas))
	for id := range builtinPersonas {
		ids = append(ids, id)
	}
	return ids
}
