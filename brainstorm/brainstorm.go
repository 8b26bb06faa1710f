// Package brainstorm fans one user request out to several providers
// concurrently and synthesizes their answers into one. A full round
// additionally lets each provider critique the others' answers before
// synthesis. Individual provider failures are isolated; the orchestration
// fails only when nobody answers.
package brainstorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/biodoia/mystlin/agent"
	"github.com/biodoia/mystlin/stream"
)

// Mode selects how many rounds run before synthesis.
type Mode int

const (
	// ModeQuick synthesizes directly from the initial answers.
	ModeQuick Mode = iota
	// ModeFull runs a critique round first.
	ModeFull
)

// Phase tracks orchestration progress.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDispatched
	PhaseCritiquing
	PhaseSynthesizing
	PhaseComplete
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDispatched:
		return "dispatched"
	case PhaseCritiquing:
		return "critiquing"
	case PhaseSynthesizing:
		return "synthesizing"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client is the provider surface the orchestrator needs. *agent.Provider
// satisfies it.
type Client interface {
	ID() string
	SendMessage(ctx context.Context, req agent.SendRequest) <-chan stream.Chunk
	CancelCurrentRequest()
}

// Answer is one provider's contribution to a round.
type Answer struct {
	Err        error
	ProviderID string
	Text       string
}

// Result is the outcome of one orchestration.
type Result struct {
	Synthesis string
	Answers   []Answer
	Critiques []Answer
}

// ErrAllProvidersFailed is returned when no provider produced an answer.
var ErrAllProvidersFailed = errors.New("all providers failed")

// DefaultCritiqueTemplate shapes the critique-round prompt. It receives the
// original question and the other providers' answers. Product behavior, not
// protocol: override it via WithCritiqueTemplate.
const DefaultCritiqueTemplate = `You previously answered this question:

%[1]s

Other assistants answered:

%[2]s

Critique their answers against your own, then give your single best refined answer.`

// DefaultSynthesisTemplate shapes the synthesis prompt.
const DefaultSynthesisTemplate = `Several assistants answered this question:

%[1]s

Their answers:

%[2]s

Combine the strongest points into one final answer. Do not mention that multiple assistants were involved.`

// Orchestrator runs brainstorm rounds over two or more providers.
type Orchestrator struct {
	providers        []Client
	synthesizer      Client
	critiqueTemplate string
	synthTemplate    string

	mu    sync.Mutex
	phase Phase
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSynthesizer designates the provider that produces the final synthesis.
// Defaults to the first provider that answered successfully.
func WithSynthesizer(c Client) Option {
	return func(o *Orchestrator) { o.synthesizer = c }
}

// WithCritiqueTemplate overrides the critique prompt template.
func WithCritiqueTemplate(tmpl string) Option {
	return func(o *Orchestrator) { o.critiqueTemplate = tmpl }
}

// WithSynthesisTemplate overrides the synthesis prompt template.
func WithSynthesisTemplate(tmpl string) Option {
	return func(o *Orchestrator) { o.synthTemplate = tmpl }
}

// New creates an orchestrator over the given providers.
func New(providers []Client, opts ...Option) (*Orchestrator, error) {
	if len(providers) < 2 {
		return nil, fmt.Errorf("brainstorm needs at least 2 providers, got %d", len(providers))
	}
	o := &Orchestrator{
		providers:        providers,
		critiqueTemplate: DefaultCritiqueTemplate,
		synthTemplate:    DefaultSynthesisTemplate,
		phase:            PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Phase returns the current orchestration phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// Cancel terminates every provider's in-flight process.
func (o *Orchestrator) Cancel() {
	for _, p := range o.providers {
		p.CancelCurrentRequest()
	}
	if o.synthesizer != nil {
		o.synthesizer.CancelCurrentRequest()
	}
}

// Run executes one orchestration. Context cancellation propagates to every
// dispatched provider.
func (o *Orchestrator) Run(ctx context.Context, req agent.SendRequest, mode Mode) (*Result, error) {
	o.setPhase(PhaseDispatched)

	answers := o.fanOut(ctx, o.providers, func(Client) agent.SendRequest { return req })
	successful := succeededOnly(answers)
	if len(successful) == 0 {
		o.setPhase(PhaseFailed)
		return nil, fmt.Errorf("%w: %s", ErrAllProvidersFailed, failureSummary(answers))
	}

	result := &Result{Answers: answers}
	synthesisInput := successful

	if mode == ModeFull {
		o.setPhase(PhaseCritiquing)
		critiques := o.critiqueRound(ctx, req, successful)
		result.Critiques = critiques
		if refined := succeededOnly(critiques); len(refined) > 0 {
			synthesisInput = refined
		}
	}

	o.setPhase(PhaseSynthesizing)
	synthesis, err := o.synthesize(ctx, req, synthesisInput)
	if err != nil {
		o.setPhase(PhaseFailed)
		return nil, err
	}

	result.Synthesis = synthesis
	o.setPhase(PhaseComplete)
	return result, nil
}

// critiqueRound shows each successful provider the others' answers. Only
// providers that succeeded in round one participate.
func (o *Orchestrator) critiqueRound(ctx context.Context, req agent.SendRequest, answers []Answer) []Answer {
	byID := make(map[string]Client, len(o.providers))
	for _, p := range o.providers {
		byID[p.ID()] = p
	}

	var participants []Client
	for _, a := range answers {
		if p, ok := byID[a.ProviderID]; ok {
			participants = append(participants, p)
		}
	}

	return o.fanOut(ctx, participants, func(c Client) agent.SendRequest {
		critiqueReq := req
		critiqueReq.Message = fmt.Sprintf(o.critiqueTemplate, req.Message, formatAnswers(answers, c.ID()))
		return critiqueReq
	})
}

func (o *Orchestrator) synthesize(ctx context.Context, req agent.SendRequest, answers []Answer) (string, error) {
	synthesizer := o.synthesizer
	if synthesizer == nil {
		byID := make(map[string]Client, len(o.providers))
		for _, p := range o.providers {
			byID[p.ID()] = p
		}
		synthesizer = byID[answers[0].ProviderID]
	}
	if synthesizer == nil {
		return "", errors.New("no synthesizer available")
	}

	synthReq := req
	synthReq.Message = fmt.Sprintf(o.synthTemplate, req.Message, formatAnswers(answers, ""))

	answer := collect(ctx, synthesizer, synthReq)
	if answer.Err != nil {
		return "", fmt.Errorf("synthesis failed: %w", answer.Err)
	}
	return answer.Text, nil
}

// fanOut dispatches to all given providers concurrently and waits for every
// answer. Failures stay per-provider.
func (o *Orchestrator) fanOut(ctx context.Context, providers []Client, buildReq func(Client) agent.SendRequest) []Answer {
	answers := make([]Answer, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Client) {
			defer wg.Done()
			answers[i] = collect(ctx, p, buildReq(p))
		}(i, p)
	}
	wg.Wait()
	return answers
}

// collect drains one provider's chunk stream into an Answer. A provider that
// yields only an error contributes no text and is marked failed.
func collect(ctx context.Context, p Client, req agent.SendRequest) Answer {
	answer := Answer{ProviderID: p.ID()}
	var sb strings.Builder
	var lastErr error

	for chunk := range p.SendMessage(ctx, req) {
		switch c := chunk.(type) {
		case stream.TextChunk:
			sb.WriteString(c.Text)
		case stream.ErrorChunk:
			lastErr = c.Err
		}
	}

	answer.Text = strings.TrimSpace(sb.String())
	if answer.Text == "" {
		if lastErr == nil {
			lastErr = errors.New("provider produced no answer")
		}
		answer.Err = lastErr
	}
	return answer
}

// succeededOnly filters to answers with text.
func succeededOnly(answers []Answer) []Answer {
	var out []Answer
	for _, a := range answers {
		if a.Err == nil {
			out = append(out, a)
		}
	}
	return out
}

// formatAnswers renders answers for a critique or synthesis prompt,
// excluding the given provider's own answer.
func formatAnswers(answers []Answer, excludeID string) string {
	var sb strings.Builder
	n := 0
	for _, a := range answers {
		if a.Err != nil || a.ProviderID == excludeID {
			continue
		}
		n++
		fmt.Fprintf(&sb, "--- Assistant %d (%s) ---\n%s\n\n", n, a.ProviderID, a.Text)
	}
	return strings.TrimSpace(sb.String())
}

func failureSummary(answers []Answer) string {
	var parts []string
	for _, a := range answers {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", a.ProviderID, a.Err))
		}
	}
	return strings.Join(parts, "; ")
}
