package orchestrator

import (
	"strings"

	"arc/internal/schema"
)

const (
	maxHypotheses = 5
	summaryChars  = 300
	followupChars = 200
)

// BuildReport derives the insight report from the final turn of a
// completed trace. The integrator message supplies the summary and the
// hypotheses; the validator supplies the confidence (0.0 when absent);
// citations concatenate the integrator, validator, and planner lists in
// that order with duplicates kept.
//
// Hypotheses come from naive sentence-splitting on periods, which
// mis-splits on abbreviations and decimals. Known limitation, kept for
// behavior equivalence with the trace format's consumers.
func BuildReport(trace *schema.Trace) *schema.InsightReport {
	report := &schema.InsightReport{
		RunID:      trace.RunID,
		Topic:      trace.Topic,
		Hypotheses: []string{},
		Citations:  []string{},
	}
	if len(trace.Turns) == 0 {
		return report
	}
	last := trace.Turns[len(trace.Turns)-1]

	integrator := firstByRole(last.Messages, schema.RoleIntegrator)
	validator := firstByRole(last.Messages, schema.RoleValidator)
	planner := firstByRole(last.Messages, schema.RolePlanner)

	if integrator != nil {
		report.Summary = head(integrator.Content, summaryChars)
		for _, frag := range strings.Split(integrator.Content, ".") {
			if frag = strings.TrimSpace(frag); frag != "" {
				report.Hypotheses = append(report.Hypotheses, frag)
				if len(report.Hypotheses) == maxHypotheses {
					break
				}
			}
		}
		report.Citations = append(report.Citations, integrator.Citations...)
	}
	if planner != nil {
		report.Summary += "\n\nFollow-up Research Directions:\n" + head(planner.Content, followupChars) + "..."
	}
	if validator != nil {
		report.Confidence = validator.Confidence
		report.Citations = append(report.Citations, validator.Citations...)
	}
	if planner != nil {
		report.Citations = append(report.Citations, planner.Citations...)
	}
	return report
}

func firstByRole(messages []schema.Message, role schema.Role) *schema.Message {
	for i := range messages {
		if messages[i].Role == role {
			return &messages[i]
		}
	}
	return nil
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
