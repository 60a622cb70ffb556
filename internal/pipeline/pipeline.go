// Package pipeline executes one full turn of the research pipeline:
// extractor -> challenger -> integrator -> validator -> planner, with
// an optional clarification debate at each of the four handoff
// boundaries.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"arc/internal/agent"
	"arc/internal/debate"
	"arc/internal/schema"
)

// Options configures turn execution.
type Options struct {
	DebateEnabled   bool
	MaxDebateRounds int
	StepDelay       time.Duration // sleep after each agent invocation; zero disables
	Logger          *zap.Logger
}

// Pipeline drives one agent set through the fixed role sequence.
type Pipeline struct {
	agents *agent.Set
	opts   Options
	logger *zap.Logger
}

// New creates a pipeline over the given agent set.
func New(agents *agent.Set, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxDebateRounds < 1 {
		opts.MaxDebateRounds = 1
	}
	return &Pipeline{agents: agents, opts: opts, logger: logger}
}

// Execute runs one turn for the topic. The returned messages are in
// exact temporal order: each main-stage message followed by the debate
// exchange at its outgoing boundary. stopConfidence is the validator's
// self-assessed confidence, which the run controller compares against
// the consensus threshold.
//
// Each debate consumes the upstream role's original output as context,
// while the next main stage consumes the debated handoff. This keeps
// every debate grounded in its predecessor's literal output while still
// letting clarification propagate forward.
func (p *Pipeline) Execute(ctx context.Context, topic string) (messages []schema.Message, stopConfidence float64, err error) {
	// Extractor
	extractorMsg, err := p.invoke(ctx, p.agents.Extractor, topic)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, extractorMsg)

	challengerHandoff, msgs, err := p.boundary(ctx, p.agents.Extractor, p.agents.Challenger, extractorMsg.Content)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, msgs...)

	// Challenger
	challengerInput := fmt.Sprintf(
		"The Extractor has provided the following analysis (after debate handoff):\n\n%s\n\n"+
			"Critically evaluate the Extractor's findings. Identify gaps, unsupported claims, and potential biases. "+
			"Reference specific points from the Extractor's analysis.",
		challengerHandoff)
	challengerMsg, err := p.invoke(ctx, p.agents.Challenger, challengerInput)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, challengerMsg)

	integratorHandoff, msgs, err := p.boundary(ctx, p.agents.Challenger, p.agents.Integrator, challengerMsg.Content)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, msgs...)

	// Integrator
	integratorInput := fmt.Sprintf(
		"--- Extractor's Analysis ---\n%s\n\n"+
			"--- Challenger's Evaluation (after debate handoff) ---\n%s\n\n"+
			"Synthesize the Extractor's findings with the Challenger's challenges. "+
			"Generate hypotheses that address the Challenger's concerns while building on the Extractor's insights. "+
			"Reference specific points from both agents.",
		extractorMsg.Content, integratorHandoff)
	integratorMsg, err := p.invoke(ctx, p.agents.Integrator, integratorInput)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, integratorMsg)

	validatorHandoff, msgs, err := p.boundary(ctx, p.agents.Integrator, p.agents.Validator, integratorMsg.Content)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, msgs...)

	// Validator
	validatorInput := fmt.Sprintf(
		"--- Integrator's Hypotheses (after debate handoff) ---\n%s\n\n"+
			"Verify the Integrator's hypotheses against the original evidence. "+
			"Consider the Extractor's findings and the Challenger's concerns. "+
			"Reference specific hypotheses and explain your confidence assessment.",
		validatorHandoff)
	validatorMsg, err := p.invoke(ctx, p.agents.Validator, validatorInput)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, validatorMsg)

	plannerHandoff, msgs, err := p.boundary(ctx, p.agents.Validator, p.agents.Planner, validatorMsg.Content)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, msgs...)

	// Planner
	plannerInput := fmt.Sprintf(
		"--- Research Context ---\nTopic: %s\n\n"+
			"Extractor's Findings:\n%s\n\n"+
			"Challenger's Challenges (debated):\n%s\n\n"+
			"Integrator's Hypotheses (debated):\n%s\n\n"+
			"Validator's Assessment (debated, Confidence: %v):\n%s\n\n"+
			"Based on the complete multi-agent analysis above, propose follow-up research questions "+
			"and identify knowledge gaps. Reference specific findings from each agent.",
		topic,
		excerpt(extractorMsg.Content),
		excerpt(integratorHandoff),
		excerpt(validatorHandoff),
		validatorMsg.Confidence,
		excerpt(plannerHandoff))
	plannerMsg, err := p.invoke(ctx, p.agents.Planner, plannerInput)
	if err != nil {
		return nil, 0, err
	}
	messages = append(messages, plannerMsg)

	return messages, validatorMsg.Confidence, nil
}

// boundary runs the debate at a role-to-role handoff when enabled;
// otherwise the upstream content passes through unchanged.
func (p *Pipeline) boundary(ctx context.Context, a, b agent.Invoker, upstream string) (string, []schema.Message, error) {
	if !p.opts.DebateEnabled {
		return upstream, nil, nil
	}
	res, err := debate.Run(ctx, a, b, upstream, p.opts.MaxDebateRounds, p.opts.StepDelay)
	if err != nil {
		return "", nil, fmt.Errorf("debate %s->%s failed: %w", a.Role(), b.Role(), err)
	}
	p.logger.Debug("debate completed",
		zap.String("from", string(a.Role())),
		zap.String("to", string(b.Role())),
		zap.Int("messages", len(res.Messages)))
	if res.Handoff == "" {
		return upstream, res.Messages, nil
	}
	return res.Handoff, res.Messages, nil
}

func (p *Pipeline) invoke(ctx context.Context, inv agent.Invoker, prompt string) (schema.Message, error) {
	msg, err := inv.Invoke(ctx, prompt)
	if err != nil {
		return schema.Message{}, err
	}
	p.logger.Debug("agent responded",
		zap.String("role", string(inv.Role())),
		zap.Float64("confidence", msg.Confidence))
	if p.opts.StepDelay > 0 {
		t := time.NewTimer(p.opts.StepDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return schema.Message{}, ctx.Err()
		case <-t.C:
		}
	}
	return msg, nil
}

// excerpt bounds a section of the planner prompt to 500 characters.
func excerpt(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
