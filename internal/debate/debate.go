// Package debate runs the bounded clarification exchange between two
// adjacent pipeline roles before a handoff. The downstream role (B)
// questions the upstream role's (A) output, A answers, and B closes the
// round with a synthesis that signals readiness via an explicit marker.
package debate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arc/internal/agent"
	"arc/internal/schema"
)

// Completion markers B embeds in its synthesis. Matching is
// case-insensitive and first-match-wins; a synthesis carrying neither
// marker is treated as [MORE], never as an error.
const (
	MarkerDone = "[DONE]"
	MarkerMore = "[MORE]"
)

// Result carries the outcome of one debate.
type Result struct {
	// Handoff is the usable text for the next pipeline stage: the final
	// synthesis with its round-tag header stripped. If no round ran it
	// is the original context unchanged.
	Handoff string

	// Messages is the full exchange in production order. These are
	// always recorded in the enclosing turn for auditability even
	// though only Handoff feeds the next stage.
	Messages []schema.Message
}

// Run executes up to maxRounds clarification rounds between upstream a
// and downstream b over contextText. stepDelay, when positive, is slept
// after every agent invocation to respect provider rate limits.
func Run(ctx context.Context, a, b agent.Invoker, contextText string, maxRounds int, stepDelay time.Duration) (Result, error) {
	res := Result{Handoff: contextText}
	if maxRounds < 1 {
		return res, nil
	}

	aRole := strings.ToUpper(string(a.Role()))
	bRole := strings.ToUpper(string(b.Role()))
	var lastSynthesis string

	for round := 1; round <= maxRounds; round++ {
		// 1. B asks up to 3 clarifying questions.
		askPrompt := fmt.Sprintf(
			"As the %s, before proceeding, read the following %s's output and ask up to 3 clarifying questions you need to form a coherent understanding.\n\n"+
				"=== %s OUTPUT ===\n%s\n\n"+
				"Return ONLY a numbered list of questions.",
			bRole, aRole, aRole, contextText)
		askMsg, err := invokeTagged(ctx, b, askPrompt, tag(a, b, bRole+" asks", round), stepDelay)
		if err != nil {
			return Result{}, err
		}
		res.Messages = append(res.Messages, askMsg)

		// 2. A answers concisely.
		answerPrompt := fmt.Sprintf(
			"As the %s, answer the following questions clearly and concisely, filling any missing details from your analysis. If a question is outside your scope, say so.\n\n"+
				"=== QUESTIONS FROM %s (Round %d) ===\n%s\n\n"+
				"Provide numbered answers.",
			aRole, bRole, round, askMsg.Content)
		answerMsg, err := invokeTagged(ctx, a, answerPrompt, tag(a, b, aRole+" answers", round), stepDelay)
		if err != nil {
			return Result{}, err
		}
		res.Messages = append(res.Messages, answerMsg)

		// 3. B synthesizes and signals readiness.
		synthPrompt := fmt.Sprintf(
			"As the %s, produce a concise coherent summary of your understanding incorporating the answers. End the message with either %s if you have enough to proceed, or %s if you still need clarification.\n\n"+
				"=== %s ORIGINAL OUTPUT ===\n%s\n\n"+
				"=== %s ANSWERS (Round %d) ===\n%s\n",
			bRole, MarkerDone, MarkerMore, aRole, contextText, aRole, round, answerMsg.Content)
		synthMsg, err := invokeTagged(ctx, b, synthPrompt, tag(a, b, bRole+" synthesis", round), stepDelay)
		if err != nil {
			return Result{}, err
		}
		res.Messages = append(res.Messages, synthMsg)
		lastSynthesis = synthMsg.Content

		if strings.Contains(strings.ToLower(synthMsg.Content), strings.ToLower(MarkerDone)) {
			break
		}
	}

	if lastSynthesis != "" {
		res.Handoff = stripHeader(lastSynthesis)
	}
	return res, nil
}

// tag builds the display header prepended to a debate message so trace
// renderers can show who is talking.
func tag(a, b agent.Invoker, action string, round int) string {
	return fmt.Sprintf("[DEBATE %s->%s | %s | Round %d]", a.Role(), b.Role(), action, round)
}

// invokeTagged runs one agent call, prepends the debate header to the
// produced message, and applies the inter-step delay. The header is
// added by the orchestration layer; the agent's own output is never
// edited beyond this prefix.
func invokeTagged(ctx context.Context, inv agent.Invoker, prompt, header string, stepDelay time.Duration) (schema.Message, error) {
	msg, err := inv.Invoke(ctx, prompt)
	if err != nil {
		return schema.Message{}, err
	}
	msg.Content = header + "\n" + msg.Content
	if stepDelay > 0 {
		t := time.NewTimer(stepDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return schema.Message{}, ctx.Err()
		case <-t.C:
		}
	}
	return msg, nil
}

// stripHeader drops the first line (the round-tag header); the
// remainder is the usable handoff text.
func stripHeader(content string) string {
	if i := strings.Index(content, "\n"); i >= 0 {
		return content[i+1:]
	}
	return content
}
