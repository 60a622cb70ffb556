package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arc/internal/schema"
)

func msg(role schema.Role, content string, confidence float64, citations ...string) schema.Message {
	if citations == nil {
		citations = []string{}
	}
	return schema.Message{Role: role, Content: content, Citations: citations, Confidence: confidence}
}

func TestBuildReportEmptyTrace(t *testing.T) {
	report := BuildReport(&schema.Trace{RunID: "r1", Topic: "t"})
	require.Equal(t, "r1", report.RunID)
	require.Equal(t, "t", report.Topic)
	require.Empty(t, report.Summary)
	require.Zero(t, report.Confidence)
	require.NotNil(t, report.Hypotheses)
	require.NotNil(t, report.Citations)
}

func TestBuildReportComposition(t *testing.T) {
	trace := &schema.Trace{
		RunID: "r1",
		Topic: "t",
		Turns: []schema.Turn{{Index: 0, Messages: []schema.Message{
			msg(schema.RoleExtractor, "extractor findings", 0.6, "e1"),
			msg(schema.RoleChallenger, "challenges", 0.6, "ch1"),
			msg(schema.RoleIntegrator, "Hypothesis one. Hypothesis two. Hypothesis three.", 0.7, "i1", "i2"),
			msg(schema.RoleValidator, "verified", 0.91, "v1"),
			msg(schema.RolePlanner, "next steps for the research follow here", 0.8, "p1"),
		}}},
	}

	report := BuildReport(trace)

	require.True(t, strings.HasPrefix(report.Summary, "Hypothesis one."))
	require.Contains(t, report.Summary, "Follow-up Research Directions:")
	require.Contains(t, report.Summary, "next steps for the research follow here...")

	require.Equal(t, []string{"Hypothesis one", "Hypothesis two", "Hypothesis three"}, report.Hypotheses)
	require.Equal(t, 0.91, report.Confidence)

	// Integrator, validator, planner order; extractor and challenger
	// citations are excluded.
	require.Equal(t, []string{"i1", "i2", "v1", "p1"}, report.Citations)
}

func TestBuildReportUsesFinalTurn(t *testing.T) {
	trace := &schema.Trace{
		RunID: "r1",
		Turns: []schema.Turn{
			{Index: 0, Messages: []schema.Message{
				msg(schema.RoleIntegrator, "early hypothesis.", 0.5),
				msg(schema.RoleValidator, "early", 0.4),
			}},
			{Index: 1, Messages: []schema.Message{
				msg(schema.RoleIntegrator, "final hypothesis.", 0.7),
				msg(schema.RoleValidator, "final", 0.88),
			}},
		},
	}

	report := BuildReport(trace)
	require.Contains(t, report.Summary, "final hypothesis.")
	require.NotContains(t, report.Summary, "early")
	require.Equal(t, 0.88, report.Confidence)
}

func TestBuildReportHypothesesCappedAtFive(t *testing.T) {
	content := "One. Two. Three. Four. Five. Six. Seven."
	trace := &schema.Trace{Turns: []schema.Turn{{Messages: []schema.Message{
		msg(schema.RoleIntegrator, content, 0.7),
	}}}}

	report := BuildReport(trace)
	require.Equal(t, []string{"One", "Two", "Three", "Four", "Five"}, report.Hypotheses)
}

func TestBuildReportSummaryTruncation(t *testing.T) {
	long := strings.Repeat("a", 400) + ". tail"
	trace := &schema.Trace{Turns: []schema.Turn{{Messages: []schema.Message{
		msg(schema.RoleIntegrator, long, 0.7),
		msg(schema.RolePlanner, strings.Repeat("b", 400), 0.7),
	}}}}

	report := BuildReport(trace)
	head, _, found := strings.Cut(report.Summary, "\n\n")
	require.True(t, found)
	require.Len(t, head, 300, "integrator contribution capped at 300 chars")
	require.Contains(t, report.Summary, strings.Repeat("b", 200)+"...")
	require.NotContains(t, report.Summary, strings.Repeat("b", 201))
}

func TestBuildReportMissingValidator(t *testing.T) {
	trace := &schema.Trace{Turns: []schema.Turn{{Messages: []schema.Message{
		msg(schema.RoleIntegrator, "only the integrator spoke.", 0.7, "i1"),
	}}}}

	report := BuildReport(trace)
	require.Zero(t, report.Confidence, "absent validator yields zero confidence, not an error")
	require.Equal(t, []string{"i1"}, report.Citations)
}

func TestBuildReportFirstMessagePerRoleWins(t *testing.T) {
	trace := &schema.Trace{Turns: []schema.Turn{{Messages: []schema.Message{
		msg(schema.RoleValidator, "[DEBATE header]\ndebate noise", 0.3),
		msg(schema.RoleValidator, "real validation", 0.9),
	}}}}

	report := BuildReport(trace)
	require.Equal(t, 0.3, report.Confidence, "selection is first-by-role over the turn's messages")
}
